package model

import "time"

// PhaseType 阶段的选取策略
type PhaseType string

const (
	PhaseTypeRandom      PhaseType = "random"
	PhaseTypeRoundRobin  PhaseType = "roundRobin"
	PhaseTypeExactTiming PhaseType = "exactTiming"
)

// Valid reports whether t is a known phase type.
func (t PhaseType) Valid() bool {
	switch t {
	case PhaseTypeRandom, PhaseTypeRoundRobin, PhaseTypeExactTiming:
		return true
	}
	return false
}

// Phase 一组录音加上计时策略
type Phase struct {
	ID               string    `json:"id" gorm:"primaryKey;size:36"`
	Name             string    `json:"name" gorm:"size:255;not null"`
	Type             PhaseType `json:"type" gorm:"size:20;default:'random'"`
	MinDelay         float64   `json:"minDelay"`
	MaxDelay         float64   `json:"maxDelay"`
	SoundRepetitions int       `json:"soundRepetitions" gorm:"default:1"`
	RecordingIDs     IDList    `json:"recordingIds" gorm:"type:json"`
	ExactTimings     TimingMap `json:"exactTimings,omitempty" gorm:"type:json"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// TableName 指定表名
func (Phase) TableName() string {
	return "phases"
}

// DelayBounds returns the effective [lo, hi] delay bounds regardless of input order.
func (p *Phase) DelayBounds() (lo, hi float64) {
	lo, hi = p.MinDelay, p.MaxDelay
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo, hi
}

// Clone 返回深拷贝
func (p *Phase) Clone() *Phase {
	if p == nil {
		return nil
	}
	c := *p
	c.RecordingIDs = p.RecordingIDs.Clone()
	c.ExactTimings = p.ExactTimings.Clone()
	return &c
}
