package model

import "time"

// ExerciseType 练习类型
type ExerciseType string

const (
	ExerciseTypePhased ExerciseType = "phased"
	ExerciseTypeTimed  ExerciseType = "timed"
)

// Exercise is either a countdown (Timed) or an ordered list of phases repeated N times (Phased).
// Empty StartRecordingID / EndRecordingID mean no boundary sound.
type Exercise struct {
	ID               string       `json:"id" gorm:"primaryKey;size:36"`
	Name             string       `json:"name" gorm:"size:255;not null"`
	IsFavorite       bool         `json:"isFavorite" gorm:"default:false;index"`
	Type             ExerciseType `json:"type" gorm:"size:20;default:'phased'"`
	PhaseIDs         IDList       `json:"phaseIds" gorm:"type:json"`
	Repetitions      int          `json:"repetitions" gorm:"default:1"`
	Duration         float64      `json:"duration"` // seconds, timed only
	StartRecordingID string       `json:"startRecordingId,omitempty" gorm:"size:36"`
	EndRecordingID   string       `json:"endRecordingId,omitempty" gorm:"size:36"`
	CreatedAt        time.Time    `json:"createdAt"`
	UpdatedAt        time.Time    `json:"updatedAt"`
}

// TableName 指定表名
func (Exercise) TableName() string {
	return "exercises"
}

// Clone 返回深拷贝
func (e *Exercise) Clone() *Exercise {
	if e == nil {
		return nil
	}
	c := *e
	c.PhaseIDs = e.PhaseIDs.Clone()
	return &c
}
