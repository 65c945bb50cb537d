package repository

import (
	"context"
	"time"

	"chamapay/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationRepository interface {
	Save(ctx context.Context, log *models.NotificationLog) error
	List(ctx context.Context, filter models.NotificationFilter) ([]models.NotificationLog, int64, error)
	MarkRead(ctx context.Context, memberID uuid.UUID, id int64) (int64, error)
	Delete(ctx context.Context, memberID uuid.UUID, id int64) (int64, error)
}

type gormNotificationRepo struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &gormNotificationRepo{db: db}
}

func (r *gormNotificationRepo) Save(ctx context.Context, log *models.NotificationLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *gormNotificationRepo) List(ctx context.Context, filter models.NotificationFilter) ([]models.NotificationLog, int64, error) {
	var logs []models.NotificationLog
	var total int64

	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	if filter.PageSize > 100 {
		filter.PageSize = 100
	}
	if filter.Page < 1 {
		filter.Page = 1
	}

	query := r.db.WithContext(ctx).Model(&models.NotificationLog{}).
		Where("member_id = ?", filter.MemberID)
	if filter.Unread {
		query = query.Where("read_at IS NULL")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.PageSize
	err := query.Order("created_at DESC").
		Limit(filter.PageSize).
		Offset(offset).
		Find(&logs).Error

	return logs, total, err
}

func (r *gormNotificationRepo) MarkRead(ctx context.Context, memberID uuid.UUID, id int64) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.NotificationLog{}).
		Where("id = ? AND member_id = ? AND read_at IS NULL", id, memberID).
		Update("read_at", time.Now())
	return res.RowsAffected, res.Error
}

func (r *gormNotificationRepo) Delete(ctx context.Context, memberID uuid.UUID, id int64) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND member_id = ?", id, memberID).
		Delete(&models.NotificationLog{})
	return res.RowsAffected, res.Error
}
