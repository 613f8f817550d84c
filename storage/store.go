package storage

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrObjectNotFound 对象不存在
var ErrObjectNotFound = errors.New("audio object not found")

// ObjectInfo 文件信息
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ContentType  string
}

// BucketStats 存储桶统计信息
type BucketStats struct {
	TotalObjects int64
	TotalSize    int64
	LastModified time.Time
}

// AudioStore holds recording payloads by object key.
type AudioStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]ObjectInfo, *BucketStats, error)
}

// RecordingKey 生成录音对象的存储路径
func RecordingKey(recordingID string) string {
	return "recordings/" + recordingID
}

type memoryObject struct {
	data        []byte
	contentType string
	modified    time.Time
}

// MemoryStore is an AudioStore kept entirely in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memoryObject)}
}

func (m *MemoryStore) Put(_ context.Context, key string, data []byte, contentType string) error {
	buf := make([]byte, len(data))
	copy(buf, data)

	m.mu.Lock()
	m.objects[key] = memoryObject{data: buf, contentType: contentType, modified: time.Now()}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	obj, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrObjectNotFound
	}
	buf := make([]byte, len(obj.data))
	copy(buf, obj.data)
	return buf, nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) List(_ context.Context, prefix string) ([]ObjectInfo, *BucketStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &BucketStats{}
	var objects []ObjectInfo
	for key, obj := range m.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		objects = append(objects, ObjectInfo{
			Key:          key,
			Size:         int64(len(obj.data)),
			LastModified: obj.modified,
			ContentType:  obj.contentType,
		})
		stats.TotalObjects++
		stats.TotalSize += int64(len(obj.data))
		if obj.modified.After(stats.LastModified) {
			stats.LastModified = obj.modified
		}
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, stats, nil
}
