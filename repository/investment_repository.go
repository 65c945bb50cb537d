package repository

import (
	"context"

	"chamapay/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InvestmentRepository interface {
	Create(ctx context.Context, investment *models.Investment) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Investment, error)
	List(ctx context.Context) ([]models.Investment, error)
	CastVote(ctx context.Context, investmentID, memberID uuid.UUID, inFavor bool) error
}

type gormInvestmentRepo struct {
	db *gorm.DB
}

func NewInvestmentRepository(db *gorm.DB) InvestmentRepository {
	return &gormInvestmentRepo{db: db}
}

func (r *gormInvestmentRepo) Create(ctx context.Context, investment *models.Investment) error {
	return r.db.WithContext(ctx).Create(investment).Error
}

func (r *gormInvestmentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Investment, error) {
	var investment models.Investment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&investment).Error; err != nil {
		return nil, err
	}
	if err := r.tally(ctx, &investment); err != nil {
		return nil, err
	}
	return &investment, nil
}

func (r *gormInvestmentRepo) List(ctx context.Context) ([]models.Investment, error) {
	var investments []models.Investment
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&investments).Error; err != nil {
		return nil, err
	}
	for i := range investments {
		if err := r.tally(ctx, &investments[i]); err != nil {
			return nil, err
		}
	}
	return investments, nil
}

// CastVote records a member's vote, overwriting any previous choice.
func (r *gormInvestmentRepo) CastVote(ctx context.Context, investmentID, memberID uuid.UUID, inFavor bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var vote models.InvestmentVote
		err := tx.Where("investment_id = ? AND member_id = ?", investmentID, memberID).First(&vote).Error
		if err == gorm.ErrRecordNotFound {
			return tx.Create(&models.InvestmentVote{
				InvestmentID: investmentID,
				MemberID:     memberID,
				InFavor:      inFavor,
			}).Error
		}
		if err != nil {
			return err
		}
		return tx.Model(&vote).Update("in_favor", inFavor).Error
	})
}

func (r *gormInvestmentRepo) tally(ctx context.Context, investment *models.Investment) error {
	if err := r.db.WithContext(ctx).Model(&models.InvestmentVote{}).
		Where("investment_id = ? AND in_favor = ?", investment.ID, true).
		Count(&investment.VotesFor).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(&models.InvestmentVote{}).
		Where("investment_id = ? AND in_favor = ?", investment.ID, false).
		Count(&investment.VotesAgainst).Error
}
