package repository

import (
	"context"

	"chamapay/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MemberRepository interface {
	Create(ctx context.Context, member *models.Member) error
	FindByEmail(ctx context.Context, email string) (*models.Member, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Member, error)
	Update(ctx context.Context, member *models.Member) error
	List(ctx context.Context) ([]models.Member, error)
}

type gormMemberRepo struct {
	db *gorm.DB
}

func NewMemberRepository(db *gorm.DB) MemberRepository {
	return &gormMemberRepo{db: db}
}

func (r *gormMemberRepo) Create(ctx context.Context, member *models.Member) error {
	return r.db.WithContext(ctx).Create(member).Error
}

func (r *gormMemberRepo) FindByEmail(ctx context.Context, email string) (*models.Member, error) {
	var member models.Member
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *gormMemberRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Member, error) {
	var member models.Member
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *gormMemberRepo) Update(ctx context.Context, member *models.Member) error {
	return r.db.WithContext(ctx).Save(member).Error
}

func (r *gormMemberRepo) List(ctx context.Context) ([]models.Member, error) {
	var members []models.Member
	err := r.db.WithContext(ctx).Order("name ASC").Find(&members).Error
	return members, err
}
