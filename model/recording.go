package model

import "time"

// Recording 一段录制的提示音
type Recording struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	Name      string    `json:"name" gorm:"size:255;not null"`
	AudioKey  string    `json:"-" gorm:"size:512;not null"` // object key of the payload in the audio store
	MimeType  string    `json:"mimeType" gorm:"size:100"`
	Size      int64     `json:"size"`
	Checksum  string    `json:"checksum" gorm:"size:64"`
	Labels    LabelSet  `json:"labels" gorm:"type:json"`
	CreatedAt time.Time `json:"timestamp"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName 指定表名
func (Recording) TableName() string {
	return "recordings"
}

// Clone 返回独立副本，调度器只持有副本
func (r *Recording) Clone() *Recording {
	if r == nil {
		return nil
	}
	c := *r
	c.Labels = r.Labels.Clone()
	return &c
}
