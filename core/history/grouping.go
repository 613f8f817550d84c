// Package history turns the flat training history into per-day groups,
// exports them as a workbook and prunes old entries.
package history

import (
	"fmt"
	"sort"
	"time"

	"cuetrainer/core/apperr"
	"cuetrainer/model"
)

// DeletedTrainingName 训练已被删除时显示的名称
const DeletedTrainingName = "Deleted Training"

// DateLayout is the group date key format.
const DateLayout = "2006-01-02"

// Source is the part of the library the history views need.
type Source interface {
	History() []*model.TrainingHistoryEntry
	Training(id string) (*model.Training, bool)
	DeleteHistoryEntries(ids ...string) int
	DeleteHistoryBefore(cutoff time.Time) int
}

// Group 同一天同一训练的完成记录
type Group struct {
	Date          string                        `json:"date"`
	TrainingID    string                        `json:"trainingId"`
	TrainingName  string                        `json:"trainingName"`
	Count         int                           `json:"count"`
	TotalDuration float64                       `json:"totalDuration"`
	ExerciseCount int                           `json:"exerciseCount"`
	Entries       []*model.TrainingHistoryEntry `json:"entries"`
}

// GroupEntries groups entries by calendar day in loc and training id.
// exerciseCount comes from the first entry seen for the group. Groups are
// ordered by their newest entry, newest first.
func GroupEntries(entries []*model.TrainingHistoryEntry, nameOf func(trainingID string) string, loc *time.Location) []Group {
	if loc == nil {
		loc = time.Local
	}
	sorted := append([]*model.TrainingHistoryEntry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CompletedAt.After(sorted[j].CompletedAt)
	})

	index := make(map[string]int)
	var groups []Group
	for _, e := range sorted {
		date := e.CompletedAt.In(loc).Format(DateLayout)
		key := date + "_" + e.TrainingID
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{
				Date:          date,
				TrainingID:    e.TrainingID,
				TrainingName:  nameOf(e.TrainingID),
				ExerciseCount: e.ExerciseCount,
			})
		}
		g := &groups[i]
		g.Count++
		g.TotalDuration += e.Duration
		g.Entries = append(g.Entries, e)
	}
	return groups
}

// FormatDuration renders seconds as "2m 5s" or "45s".
func FormatDuration(seconds float64) string {
	total := int(seconds + 0.5)
	mins, secs := total/60, total%60
	if mins > 0 {
		return fmt.Sprintf("%dm %ds", mins, secs)
	}
	return fmt.Sprintf("%ds", secs)
}

// Service 训练记录视图
type Service struct {
	src Source
	loc *time.Location
}

// NewService creates a history view over src; loc decides calendar days.
func NewService(src Source, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{src: src, loc: loc}
}

// Groups returns the grouped history.
func (s *Service) Groups() []Group {
	return GroupEntries(s.src.History(), s.trainingName, s.loc)
}

// DeleteGroup deletes every entry of the (date, training) group.
func (s *Service) DeleteGroup(date, trainingID string) (int, error) {
	if _, err := time.ParseInLocation(DateLayout, date, s.loc); err != nil {
		return 0, apperr.Validation("Invalid date " + date)
	}
	for _, g := range s.Groups() {
		if g.Date != date || g.TrainingID != trainingID {
			continue
		}
		ids := make([]string, len(g.Entries))
		for i, e := range g.Entries {
			ids[i] = e.ID
		}
		return s.src.DeleteHistoryEntries(ids...), nil
	}
	return 0, apperr.NotFound("history group", date+"/"+trainingID)
}

func (s *Service) trainingName(id string) string {
	if t, ok := s.src.Training(id); ok {
		return t.Name
	}
	return DeletedTrainingName
}
