package services

import (
	"context"
	"fmt"
	"time"

	"chamapay/daraja"
	"chamapay/models"
	"chamapay/repository"

	"go.uber.org/zap"
)

// EventPublisher is the outbound eventing surface for reconciliation outcomes.
type EventPublisher interface {
	SendPaymentEvent(event models.PaymentEvent) error
}

// ReconcileService applies gateway callbacks to the payment-intent ledger.
// Every path ends in an acknowledgement: malformed payloads, unknown
// correlation ids and duplicate deliveries are logged and dropped, never
// surfaced to the gateway.
type ReconcileService struct {
	repo      repository.PaymentIntentRepository
	notifRepo repository.NotificationRepository
	events    EventPublisher
	logger    *zap.Logger
}

func NewReconcileService(repo repository.PaymentIntentRepository, notifRepo repository.NotificationRepository, events EventPublisher, logger *zap.Logger) *ReconcileService {
	return &ReconcileService{repo: repo, notifRepo: notifRepo, events: events, logger: logger}
}

// ProcessSTKCallback reconciles one STK push callback. The envelope may be
// arbitrarily malformed; structural anomalies are no-ops.
func (s *ReconcileService) ProcessSTKCallback(ctx context.Context, env *daraja.CallbackEnvelope) {
	if env == nil || env.Body == nil || env.Body.STKCallback == nil {
		s.logger.Warn("STK callback missing envelope or result object, dropping")
		return
	}

	cb := env.Body.STKCallback
	if cb.ResultCode != 0 {
		s.decline(ctx, cb.CheckoutRequestID, cb.ResultDesc)
		return
	}

	details := cb.CallbackMetadata.Details()
	if details.Receipt == nil || details.TransactionDate == nil {
		s.logger.Warn("STK success callback missing receipt or date, dropping",
			zap.String("correlation_id", cb.CheckoutRequestID),
		)
		return
	}

	s.verify(ctx, cb.CheckoutRequestID, *details.Receipt, *details.TransactionDate)
}

// ProcessB2CResult reconciles one B2C result callback through the same
// guarded transitions as the STK path.
func (s *ReconcileService) ProcessB2CResult(ctx context.Context, env *daraja.B2CResultEnvelope) {
	if env == nil || env.Result == nil {
		s.logger.Warn("B2C result missing envelope or result object, dropping")
		return
	}

	result := env.Result
	if result.ResultCode != 0 {
		s.decline(ctx, result.ConversationID, result.ResultDesc)
		return
	}

	if result.TransactionID == "" {
		s.logger.Warn("B2C success result missing transaction id, dropping",
			zap.String("correlation_id", result.ConversationID),
		)
		return
	}

	occurredAt := time.Now()
	if completed := result.CompletedAt(); completed != nil {
		occurredAt = *completed
	}
	s.verify(ctx, result.ConversationID, result.TransactionID, occurredAt)
}

func (s *ReconcileService) verify(ctx context.Context, correlationID, receipt string, occurredAt time.Time) {
	intent, rows, err := s.repo.MarkVerified(ctx, correlationID, receipt, occurredAt)
	if err != nil {
		s.logger.Error("Verified transition failed",
			zap.String("correlation_id", correlationID),
			zap.Error(err),
		)
		return
	}
	if rows == 0 {
		s.logger.Info("Callback matched no pending row, already reconciled or unknown",
			zap.String("correlation_id", correlationID),
		)
		return
	}

	s.logger.Info("Payment intent verified",
		zap.String("intent_id", intent.ID.String()),
		zap.String("receipt", receipt),
	)
	s.notify(ctx, intent, receipt)
	s.publish(intent, "payment_verified", receipt)
}

func (s *ReconcileService) decline(ctx context.Context, correlationID, resultDesc string) {
	intent, rows, err := s.repo.MarkDeclined(ctx, correlationID, resultDesc)
	if err != nil {
		s.logger.Error("Declined transition failed",
			zap.String("correlation_id", correlationID),
			zap.Error(err),
		)
		return
	}
	if rows == 0 {
		s.logger.Info("Callback matched no pending row, already reconciled or unknown",
			zap.String("correlation_id", correlationID),
		)
		return
	}

	s.logger.Info("Payment intent declined",
		zap.String("intent_id", intent.ID.String()),
		zap.String("result_desc", resultDesc),
	)
	s.notify(ctx, intent, "")
	s.publish(intent, "payment_declined", "")
}

func (s *ReconcileService) notify(ctx context.Context, intent *models.PaymentIntent, receipt string) {
	var notifType, message string
	switch {
	case intent.Direction == models.DirectionCredit && intent.Status == models.StatusVerified:
		notifType = models.TypeDepositVerified
		message = fmt.Sprintf("Your deposit of KES %d was received (receipt %s).", intent.Amount, receipt)
	case intent.Direction == models.DirectionCredit:
		notifType = models.TypeDepositDeclined
		message = fmt.Sprintf("Your deposit of KES %d was not completed.", intent.Amount)
	case intent.Status == models.StatusVerified:
		notifType = models.TypeWithdrawalVerified
		message = fmt.Sprintf("Your withdrawal of KES %d was sent (receipt %s).", intent.Amount, receipt)
	default:
		notifType = models.TypeWithdrawalDeclined
		message = fmt.Sprintf("Your withdrawal of KES %d was not completed.", intent.Amount)
	}

	if err := s.notifRepo.Save(ctx, &models.NotificationLog{
		MemberID: intent.MemberID,
		Type:     notifType,
		Message:  message,
	}); err != nil {
		s.logger.Error("Failed to save notification",
			zap.String("intent_id", intent.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *ReconcileService) publish(intent *models.PaymentIntent, eventType, receipt string) {
	if s.events == nil {
		return
	}
	event := models.PaymentEvent{
		Type:      eventType,
		IntentID:  intent.ID.String(),
		MemberID:  intent.MemberID.String(),
		Direction: intent.Direction,
		Amount:    intent.Amount,
		Receipt:   receipt,
		Timestamp: time.Now().UTC(),
	}
	if err := s.events.SendPaymentEvent(event); err != nil {
		s.logger.Error("Failed to publish payment event",
			zap.String("event_type", eventType),
			zap.String("intent_id", event.IntentID),
			zap.Error(err),
		)
	}
}
