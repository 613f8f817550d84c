package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cuetrainer/model"

	"github.com/go-redis/redis/v8"
)

const (
	progressKey     = "cuetrainer:progress"         // String: latest ProgressSnapshot JSON
	progressChannel = "cuetrainer:progress:events"  // Pub/Sub: snapshot stream
	statusKey       = "cuetrainer:status"           // String: current StatusMessage JSON, expires with the message
	progressTTL     = 24 * time.Hour
)

// PlaybackCache mirrors scheduler progress and status messages into Redis so
// other processes can observe the trainer.
type PlaybackCache struct {
	client *redis.Client
}

// NewPlaybackCache 创建播放缓存
func NewPlaybackCache(client *redis.Client) *PlaybackCache {
	return &PlaybackCache{client: client}
}

// ========== 进度 ==========

// MirrorProgress 保存最新快照并广播
func (c *PlaybackCache) MirrorProgress(ctx context.Context, snap model.ProgressSnapshot) error {
	if c.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal progress: %w", err)
	}

	pipe := c.client.Pipeline()
	pipe.Set(ctx, progressKey, data, progressTTL)
	pipe.Publish(ctx, progressChannel, data)
	_, err = pipe.Exec(ctx)
	return err
}

// LoadProgress 读取最新快照，不存在时返回 nil
func (c *PlaybackCache) LoadProgress(ctx context.Context) (*model.ProgressSnapshot, error) {
	if c.client == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}

	data, err := c.client.Get(ctx, progressKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var snap model.ProgressSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal progress: %w", err)
	}
	return &snap, nil
}

// SubscribeProgress 订阅快照流，ctx 取消后通道关闭
func (c *PlaybackCache) SubscribeProgress(ctx context.Context) (<-chan model.ProgressSnapshot, error) {
	if c.client == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}

	sub := c.client.Subscribe(ctx, progressChannel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("failed to subscribe progress: %w", err)
	}

	out := make(chan model.ProgressSnapshot, 16)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var snap model.ProgressSnapshot
				if err := json.Unmarshal([]byte(msg.Payload), &snap); err != nil {
					continue
				}
				select {
				case out <- snap:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// ========== 状态提示 ==========

// MirrorStatus 保存状态提示，过期时间与提示一致
func (c *PlaybackCache) MirrorStatus(ctx context.Context, msg model.StatusMessage, ttl time.Duration) error {
	if c.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}
	return c.client.Set(ctx, statusKey, data, ttl).Err()
}

// ClearStatus 删除状态提示
func (c *PlaybackCache) ClearStatus(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	return c.client.Del(ctx, statusKey).Err()
}

// LoadStatus 读取当前状态提示，不存在时返回 nil
func (c *PlaybackCache) LoadStatus(ctx context.Context) (*model.StatusMessage, error) {
	if c.client == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}

	data, err := c.client.Get(ctx, statusKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var msg model.StatusMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status: %w", err)
	}
	return &msg, nil
}
