package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// IDList 有序的实体ID列表，作为 JSON 列存储
type IDList []string

// Scan 实现 sql.Scanner 接口
func (l *IDList) Scan(value interface{}) error {
	return scanJSON(value, l)
}

// Value 实现 driver.Valuer 接口
func (l IDList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	return string(b), err
}

// Contains reports whether id is present.
func (l IDList) Contains(id string) bool {
	for _, v := range l {
		if v == id {
			return true
		}
	}
	return false
}

// Clone 返回独立副本
func (l IDList) Clone() IDList {
	if l == nil {
		return nil
	}
	out := make(IDList, len(l))
	copy(out, l)
	return out
}

// LabelSet 录音标签集合，保持插入顺序且不重复
type LabelSet []string

// Scan 实现 sql.Scanner 接口
func (s *LabelSet) Scan(value interface{}) error {
	return scanJSON(value, s)
}

// Value 实现 driver.Valuer 接口
func (s LabelSet) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(s))
	return string(b), err
}

// Has reports whether the label is in the set.
func (s LabelSet) Has(label string) bool {
	for _, v := range s {
		if v == label {
			return true
		}
	}
	return false
}

// Add 添加标签，已存在时原样返回
func (s LabelSet) Add(label string) LabelSet {
	if label == "" || s.Has(label) {
		return s
	}
	return append(s.Clone(), label)
}

// Remove 删除标签
func (s LabelSet) Remove(label string) LabelSet {
	out := make(LabelSet, 0, len(s))
	for _, v := range s {
		if v != label {
			out = append(out, v)
		}
	}
	return out
}

// Clone 返回独立副本
func (s LabelSet) Clone() LabelSet {
	out := make(LabelSet, len(s))
	copy(out, s)
	return out
}

// TimingMap maps a recording id to the delays (seconds) an ExactTiming phase may use for it.
type TimingMap map[string][]float64

// Scan 实现 sql.Scanner 接口
func (m *TimingMap) Scan(value interface{}) error {
	return scanJSON(value, m)
}

// Value 实现 driver.Valuer 接口
func (m TimingMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string][]float64(m))
	return string(b), err
}

// Clone 返回深拷贝
func (m TimingMap) Clone() TimingMap {
	if m == nil {
		return nil
	}
	out := make(TimingMap, len(m))
	for k, v := range m {
		vv := make([]float64, len(v))
		copy(vv, v)
		out[k] = vv
	}
	return out
}

func scanJSON(value interface{}, dest interface{}) error {
	if value == nil {
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("unsupported JSON column type %T", value)
	}
	if len(bytes) == 0 || string(bytes) == "null" {
		return nil
	}
	return json.Unmarshal(bytes, dest)
}
