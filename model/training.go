package model

import "time"

// Training 按顺序执行的一组练习
type Training struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	Name        string    `json:"name" gorm:"size:255;not null"`
	IsFavorite  bool      `json:"isFavorite" gorm:"default:false;index"`
	ExerciseIDs IDList    `json:"exerciseIds" gorm:"type:json"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TableName 指定表名
func (Training) TableName() string {
	return "trainings"
}

// Clone 返回深拷贝
func (t *Training) Clone() *Training {
	if t == nil {
		return nil
	}
	c := *t
	c.ExerciseIDs = t.ExerciseIDs.Clone()
	return &c
}

// TrainingHistoryEntry 一次完整完成的训练记录（只追加）
type TrainingHistoryEntry struct {
	ID            string    `json:"id" gorm:"primaryKey;size:36"`
	TrainingID    string    `json:"trainingId" gorm:"size:36;index"`
	CompletedAt   time.Time `json:"completedAt" gorm:"index"`
	Duration      float64   `json:"duration"` // seconds
	ExerciseCount int       `json:"exerciseCount"`
}

// TableName 指定表名
func (TrainingHistoryEntry) TableName() string {
	return "training_history"
}
