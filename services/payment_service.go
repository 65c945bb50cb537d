package services

import (
	"context"
	"errors"
	"math"
	"time"

	"chamapay/daraja"
	"chamapay/models"
	"chamapay/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrNoPhoneOnFile = errors.New("member has no phone number on file")

// GatewayClient is the outbound surface of the Daraja client the payment flow
// depends on.
type GatewayClient interface {
	InitiateSTKPush(ctx context.Context, phone string, amount int, accountRef string) (*daraja.STKPushResponse, error)
	InitiateB2C(ctx context.Context, phone string, amount int, remarks string) (*daraja.B2CResponse, error)
}

type PaymentService struct {
	gateway GatewayClient
	repo    repository.PaymentIntentRepository
	events  EventPublisher
	logger  *zap.Logger
}

func NewPaymentService(gateway GatewayClient, repo repository.PaymentIntentRepository, events EventPublisher, logger *zap.Logger) *PaymentService {
	return &PaymentService{gateway: gateway, repo: repo, events: events, logger: logger}
}

// InitiateDeposit creates the pending ledger row first and only then calls the
// gateway, so a callback racing the synchronous response always has a durable
// row behind it. If the push or the correlation-id persist fails the row stays
// pending with no correlation id attached: that orphaned row is the audit
// record of the attempt and is left for operational reconciliation.
func (s *PaymentService) InitiateDeposit(ctx context.Context, member *models.Member, amount float64) (*models.PaymentIntent, error) {
	return s.initiate(ctx, member, amount, models.DirectionCredit)
}

// InitiateWithdrawal is the payout mirror of InitiateDeposit, going through
// the B2C flow.
func (s *PaymentService) InitiateWithdrawal(ctx context.Context, member *models.Member, amount float64) (*models.PaymentIntent, error) {
	return s.initiate(ctx, member, amount, models.DirectionDebit)
}

func (s *PaymentService) initiate(ctx context.Context, member *models.Member, amount float64, direction string) (*models.PaymentIntent, error) {
	whole := int(math.Floor(amount))
	if whole < 1 {
		return nil, daraja.ErrInvalidAmount
	}
	if member.Phone == "" {
		return nil, ErrNoPhoneOnFile
	}

	intent := &models.PaymentIntent{
		ID:         uuid.New(),
		MemberID:   member.ID,
		Direction:  direction,
		Amount:     whole,
		Status:     models.StatusPending,
		OccurredAt: time.Now(),
	}
	if err := s.repo.Create(ctx, intent); err != nil {
		return nil, err
	}
	// The initiated event follows the durable insert, not the gateway call: an
	// attempt that never reached the gateway is still an attempt.
	s.publishInitiated(intent)

	var correlationID string
	switch direction {
	case models.DirectionCredit:
		resp, err := s.gateway.InitiateSTKPush(ctx, member.Phone, whole, intent.ID.String())
		if err != nil {
			s.logger.Warn("Deposit push failed, intent left pending",
				zap.String("intent_id", intent.ID.String()),
				zap.Error(err),
			)
			return nil, err
		}
		correlationID = resp.CheckoutRequestID
	case models.DirectionDebit:
		resp, err := s.gateway.InitiateB2C(ctx, member.Phone, whole, "Member withdrawal")
		if err != nil {
			s.logger.Warn("Withdrawal request failed, intent left pending",
				zap.String("intent_id", intent.ID.String()),
				zap.Error(err),
			)
			return nil, err
		}
		correlationID = resp.ConversationID
	}

	if err := s.repo.SetCheckoutRequestID(ctx, intent.ID, correlationID); err != nil {
		s.logger.Error("Failed to persist gateway correlation id",
			zap.String("intent_id", intent.ID.String()),
			zap.String("correlation_id", correlationID),
			zap.Error(err),
		)
		return nil, err
	}
	intent.CheckoutRequestID = &correlationID

	s.logger.Info("Payment intent initiated",
		zap.String("intent_id", intent.ID.String()),
		zap.String("direction", direction),
		zap.Int("amount", whole),
		zap.String("correlation_id", correlationID),
	)
	return intent, nil
}

func (s *PaymentService) publishInitiated(intent *models.PaymentIntent) {
	if s.events == nil {
		return
	}
	event := models.PaymentEvent{
		Type:      "payment_initiated",
		IntentID:  intent.ID.String(),
		MemberID:  intent.MemberID.String(),
		Direction: intent.Direction,
		Amount:    intent.Amount,
		Timestamp: time.Now().UTC(),
	}
	if err := s.events.SendPaymentEvent(event); err != nil {
		s.logger.Error("Failed to publish payment event",
			zap.String("event_type", event.Type),
			zap.String("intent_id", event.IntentID),
			zap.Error(err),
		)
	}
}
