package repository

import (
	"context"
	"time"

	"chamapay/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentIntentRepository interface {
	Create(ctx context.Context, intent *models.PaymentIntent) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error)
	ListByMember(ctx context.Context, memberID uuid.UUID, status string) ([]models.PaymentIntent, error)
	SetCheckoutRequestID(ctx context.Context, id uuid.UUID, checkoutRequestID string) error
	MarkVerified(ctx context.Context, checkoutRequestID, receipt string, occurredAt time.Time) (*models.PaymentIntent, int64, error)
	MarkDeclined(ctx context.Context, checkoutRequestID, resultDesc string) (*models.PaymentIntent, int64, error)
}

type gormPaymentIntentRepo struct {
	db *gorm.DB
}

func NewPaymentIntentRepository(db *gorm.DB) PaymentIntentRepository {
	return &gormPaymentIntentRepo{db: db}
}

func (r *gormPaymentIntentRepo) Create(ctx context.Context, intent *models.PaymentIntent) error {
	return r.db.WithContext(ctx).Create(intent).Error
}

func (r *gormPaymentIntentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&intent).Error; err != nil {
		return nil, err
	}
	return &intent, nil
}

func (r *gormPaymentIntentRepo) ListByMember(ctx context.Context, memberID uuid.UUID, status string) ([]models.PaymentIntent, error) {
	var intents []models.PaymentIntent
	query := r.db.WithContext(ctx).Where("member_id = ?", memberID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Order("created_at DESC").Find(&intents).Error
	return intents, err
}

func (r *gormPaymentIntentRepo) SetCheckoutRequestID(ctx context.Context, id uuid.UUID, checkoutRequestID string) error {
	return r.db.WithContext(ctx).Model(&models.PaymentIntent{}).
		Where("id = ?", id).
		Update("checkout_request_id", checkoutRequestID).Error
}

// MarkVerified applies the pending→verified transition. The status predicate
// is the idempotency mechanism: a duplicate callback, or one racing a decline,
// matches zero rows and changes nothing. Amount is deliberately untouched.
func (r *gormPaymentIntentRepo) MarkVerified(ctx context.Context, checkoutRequestID, receipt string, occurredAt time.Time) (*models.PaymentIntent, int64, error) {
	res := r.db.WithContext(ctx).Model(&models.PaymentIntent{}).
		Where("checkout_request_id = ? AND status = ?", checkoutRequestID, models.StatusPending).
		Updates(map[string]interface{}{
			"status":        models.StatusVerified,
			"mpesa_receipt": receipt,
			"occurred_at":   occurredAt,
			"updated_at":    time.Now(),
		})
	if res.Error != nil || res.RowsAffected == 0 {
		return nil, res.RowsAffected, res.Error
	}

	var intent models.PaymentIntent
	if err := r.db.WithContext(ctx).Where("checkout_request_id = ?", checkoutRequestID).First(&intent).Error; err != nil {
		return nil, res.RowsAffected, err
	}
	return &intent, res.RowsAffected, nil
}

// MarkDeclined applies the pending→declined transition with the same guarded
// update pattern.
func (r *gormPaymentIntentRepo) MarkDeclined(ctx context.Context, checkoutRequestID, resultDesc string) (*models.PaymentIntent, int64, error) {
	res := r.db.WithContext(ctx).Model(&models.PaymentIntent{}).
		Where("checkout_request_id = ? AND status = ?", checkoutRequestID, models.StatusPending).
		Updates(map[string]interface{}{
			"status":      models.StatusDeclined,
			"result_desc": resultDesc,
			"updated_at":  time.Now(),
		})
	if res.Error != nil || res.RowsAffected == 0 {
		return nil, res.RowsAffected, res.Error
	}

	var intent models.PaymentIntent
	if err := r.db.WithContext(ctx).Where("checkout_request_id = ?", checkoutRequestID).First(&intent).Error; err != nil {
		return nil, res.RowsAffected, err
	}
	return &intent, res.RowsAffected, nil
}
