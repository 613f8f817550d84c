package repository

import (
	"context"
	"time"

	"cuetrainer/model"

	"gorm.io/gorm"
)

// LibrarySnapshot 全部实体的一次性快照
type LibrarySnapshot struct {
	Recordings []*model.Recording
	Phases     []*model.Phase
	Exercises  []*model.Exercise
	Trainings  []*model.Training
	History    []*model.TrainingHistoryEntry
}

// LibraryRepository 训练库数据访问接口
type LibraryRepository interface {
	// 录音
	SaveRecording(ctx context.Context, rec *model.Recording) error
	DeleteRecording(ctx context.Context, id string) error

	// 阶段 / 练习 / 训练
	SavePhase(ctx context.Context, phase *model.Phase) error
	DeletePhase(ctx context.Context, id string) error
	SaveExercise(ctx context.Context, ex *model.Exercise) error
	DeleteExercise(ctx context.Context, id string) error
	SaveTraining(ctx context.Context, t *model.Training) error
	DeleteTraining(ctx context.Context, id string) error

	// 训练记录
	CreateHistory(ctx context.Context, entry *model.TrainingHistoryEntry) error
	DeleteHistory(ctx context.Context, ids ...string) error
	DeleteHistoryBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// 整体
	LoadAll(ctx context.Context) (*LibrarySnapshot, error)
	ClearAll(ctx context.Context) error
	ReplaceAll(ctx context.Context, snap *LibrarySnapshot) error
}

// gormLibraryRepository GORM 实现
type gormLibraryRepository struct {
	db *gorm.DB
}

// NewGormLibraryRepository 创建 GORM 训练库仓库
func NewGormLibraryRepository(db *gorm.DB) LibraryRepository {
	return &gormLibraryRepository{db: db}
}

// ========== 录音 ==========

// SaveRecording 新建或更新录音
func (r *gormLibraryRepository) SaveRecording(ctx context.Context, rec *model.Recording) error {
	return r.db.WithContext(ctx).Save(rec).Error
}

// DeleteRecording 删除录音
func (r *gormLibraryRepository) DeleteRecording(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&model.Recording{}, "id = ?", id).Error
}

// ========== 阶段 / 练习 / 训练 ==========

func (r *gormLibraryRepository) SavePhase(ctx context.Context, phase *model.Phase) error {
	return r.db.WithContext(ctx).Save(phase).Error
}

func (r *gormLibraryRepository) DeletePhase(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&model.Phase{}, "id = ?", id).Error
}

func (r *gormLibraryRepository) SaveExercise(ctx context.Context, ex *model.Exercise) error {
	return r.db.WithContext(ctx).Save(ex).Error
}

func (r *gormLibraryRepository) DeleteExercise(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&model.Exercise{}, "id = ?", id).Error
}

func (r *gormLibraryRepository) SaveTraining(ctx context.Context, t *model.Training) error {
	return r.db.WithContext(ctx).Save(t).Error
}

func (r *gormLibraryRepository) DeleteTraining(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&model.Training{}, "id = ?", id).Error
}

// ========== 训练记录 ==========

// CreateHistory 追加训练记录
func (r *gormLibraryRepository) CreateHistory(ctx context.Context, entry *model.TrainingHistoryEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// DeleteHistory 批量删除训练记录
func (r *gormLibraryRepository) DeleteHistory(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&model.TrainingHistoryEntry{}).Error
}

// DeleteHistoryBefore 删除早于 cutoff 的训练记录
func (r *gormLibraryRepository) DeleteHistoryBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("completed_at < ?", cutoff).Delete(&model.TrainingHistoryEntry{})
	return result.RowsAffected, result.Error
}

// ========== 整体 ==========

// LoadAll 读取全部实体
func (r *gormLibraryRepository) LoadAll(ctx context.Context) (*LibrarySnapshot, error) {
	snap := &LibrarySnapshot{}
	db := r.db.WithContext(ctx)
	if err := db.Order("created_at ASC").Find(&snap.Recordings).Error; err != nil {
		return nil, err
	}
	if err := db.Order("created_at ASC").Find(&snap.Phases).Error; err != nil {
		return nil, err
	}
	if err := db.Order("created_at ASC").Find(&snap.Exercises).Error; err != nil {
		return nil, err
	}
	if err := db.Order("created_at ASC").Find(&snap.Trainings).Error; err != nil {
		return nil, err
	}
	if err := db.Order("completed_at DESC").Find(&snap.History).Error; err != nil {
		return nil, err
	}
	return snap, nil
}

// ClearAll 清空全部表
func (r *gormLibraryRepository) ClearAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Transaction(clearTables)
}

// ReplaceAll 在一个事务中清空并写入快照
func (r *gormLibraryRepository) ReplaceAll(ctx context.Context, snap *LibrarySnapshot) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := clearTables(tx); err != nil {
			return err
		}
		if len(snap.Recordings) > 0 {
			if err := tx.CreateInBatches(snap.Recordings, 100).Error; err != nil {
				return err
			}
		}
		if len(snap.Phases) > 0 {
			if err := tx.CreateInBatches(snap.Phases, 100).Error; err != nil {
				return err
			}
		}
		if len(snap.Exercises) > 0 {
			if err := tx.CreateInBatches(snap.Exercises, 100).Error; err != nil {
				return err
			}
		}
		if len(snap.Trainings) > 0 {
			if err := tx.CreateInBatches(snap.Trainings, 100).Error; err != nil {
				return err
			}
		}
		if len(snap.History) > 0 {
			if err := tx.CreateInBatches(snap.History, 100).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func clearTables(tx *gorm.DB) error {
	for _, m := range []interface{}{
		&model.Recording{},
		&model.Phase{},
		&model.Exercise{},
		&model.Training{},
		&model.TrainingHistoryEntry{},
	} {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
			return err
		}
	}
	return nil
}
