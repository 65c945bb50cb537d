package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"chamapay/daraja"
	"chamapay/models"
	"chamapay/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type MockPublisher struct{ mock.Mock }

func (m *MockPublisher) SendPaymentEvent(event models.PaymentEvent) error {
	args := m.Called(event)
	return args.Error(0)
}

type reconcileFixture struct {
	db        *gorm.DB
	repo      repository.PaymentIntentRepository
	notifRepo repository.NotificationRepository
	publisher *MockPublisher
	svc       *ReconcileService
}

func newReconcileFixture(t *testing.T) *reconcileFixture {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	db.AutoMigrate(&models.PaymentIntent{}, &models.NotificationLog{})

	repo := repository.NewPaymentIntentRepository(db)
	notifRepo := repository.NewNotificationRepository(db)
	publisher := new(MockPublisher)
	return &reconcileFixture{
		db:        db,
		repo:      repo,
		notifRepo: notifRepo,
		publisher: publisher,
		svc:       NewReconcileService(repo, notifRepo, publisher, zap.NewNop()),
	}
}

func (f *reconcileFixture) seedPending(t *testing.T, checkoutRequestID string) *models.PaymentIntent {
	intent := &models.PaymentIntent{
		ID:         uuid.New(),
		MemberID:   uuid.New(),
		Direction:  models.DirectionCredit,
		Amount:     500,
		Status:     models.StatusPending,
		OccurredAt: time.Now(),
	}
	assert.NoError(t, f.repo.Create(context.Background(), intent))
	assert.NoError(t, f.repo.SetCheckoutRequestID(context.Background(), intent.ID, checkoutRequestID))
	return intent
}

func (f *reconcileFixture) intentCount(t *testing.T, status string) int64 {
	var count int64
	assert.NoError(t, f.db.Model(&models.PaymentIntent{}).Where("status = ?", status).Count(&count).Error)
	return count
}

func successCallback(checkoutRequestID string) *daraja.CallbackEnvelope {
	return &daraja.CallbackEnvelope{Body: &daraja.CallbackBody{STKCallback: &daraja.STKCallback{
		MerchantRequestID: "merchant-1",
		CheckoutRequestID: checkoutRequestID,
		ResultCode:        0,
		ResultDesc:        "The service request is processed successfully.",
		CallbackMetadata: &daraja.CallbackMetadata{Item: []daraja.MetadataItem{
			{Name: "Amount", Value: float64(500)},
			{Name: "MpesaReceiptNumber", Value: "QGH123XYZ"},
			{Name: "TransactionDate", Value: float64(20250101120000)},
			{Name: "PhoneNumber", Value: float64(254711000111)},
		}},
	}}}
}

func failureCallback(checkoutRequestID string) *daraja.CallbackEnvelope {
	return &daraja.CallbackEnvelope{Body: &daraja.CallbackBody{STKCallback: &daraja.STKCallback{
		CheckoutRequestID: checkoutRequestID,
		ResultCode:        1,
		ResultDesc:        "The balance is insufficient for the transaction.",
	}}}
}

func TestProcessSTKCallback(t *testing.T) {
	ctx := context.Background()

	t.Run("success callback verifies pending intent", func(t *testing.T) {
		f := newReconcileFixture(t)
		intent := f.seedPending(t, "ws_CO_100")
		f.publisher.On("SendPaymentEvent", mock.AnythingOfType("models.PaymentEvent")).Return(nil).Once()

		f.svc.ProcessSTKCallback(ctx, successCallback("ws_CO_100"))

		got, err := f.repo.GetByID(ctx, intent.ID)
		assert.NoError(t, err)
		assert.Equal(t, models.StatusVerified, got.Status)
		assert.Equal(t, "QGH123XYZ", *got.MpesaReceipt)
		assert.WithinDuration(t, time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC), got.OccurredAt, time.Second)
		assert.Equal(t, 500, got.Amount)

		logs, total, err := f.notifRepo.List(ctx, models.NotificationFilter{MemberID: intent.MemberID})
		assert.NoError(t, err)
		assert.EqualValues(t, 1, total)
		assert.Equal(t, models.TypeDepositVerified, logs[0].Type)
		f.publisher.AssertExpectations(t)
	})

	t.Run("failure callback declines pending intent", func(t *testing.T) {
		f := newReconcileFixture(t)
		intent := f.seedPending(t, "ws_CO_101")
		f.publisher.On("SendPaymentEvent", mock.AnythingOfType("models.PaymentEvent")).Return(nil).Once()

		f.svc.ProcessSTKCallback(ctx, failureCallback("ws_CO_101"))

		got, err := f.repo.GetByID(ctx, intent.ID)
		assert.NoError(t, err)
		assert.Equal(t, models.StatusDeclined, got.Status)
		assert.Nil(t, got.MpesaReceipt)
	})

	t.Run("duplicate success callback is a no-op", func(t *testing.T) {
		f := newReconcileFixture(t)
		intent := f.seedPending(t, "ws_CO_102")
		f.publisher.On("SendPaymentEvent", mock.AnythingOfType("models.PaymentEvent")).Return(nil).Once()

		f.svc.ProcessSTKCallback(ctx, successCallback("ws_CO_102"))
		f.svc.ProcessSTKCallback(ctx, successCallback("ws_CO_102"))

		got, err := f.repo.GetByID(ctx, intent.ID)
		assert.NoError(t, err)
		assert.Equal(t, models.StatusVerified, got.Status)

		// One notification and one event despite two deliveries.
		_, total, err := f.notifRepo.List(ctx, models.NotificationFilter{MemberID: intent.MemberID})
		assert.NoError(t, err)
		assert.EqualValues(t, 1, total)
		f.publisher.AssertNumberOfCalls(t, "SendPaymentEvent", 1)
	})

	t.Run("success cannot overturn a decline", func(t *testing.T) {
		f := newReconcileFixture(t)
		intent := f.seedPending(t, "ws_CO_103")
		f.publisher.On("SendPaymentEvent", mock.AnythingOfType("models.PaymentEvent")).Return(nil).Once()

		f.svc.ProcessSTKCallback(ctx, failureCallback("ws_CO_103"))
		f.svc.ProcessSTKCallback(ctx, successCallback("ws_CO_103"))

		got, err := f.repo.GetByID(ctx, intent.ID)
		assert.NoError(t, err)
		assert.Equal(t, models.StatusDeclined, got.Status)
		assert.Nil(t, got.MpesaReceipt)
	})

	t.Run("unknown correlation id is acknowledged silently", func(t *testing.T) {
		f := newReconcileFixture(t)
		f.seedPending(t, "ws_CO_104")

		f.svc.ProcessSTKCallback(ctx, successCallback("ws_CO_unknown"))

		assert.EqualValues(t, 1, f.intentCount(t, models.StatusPending))
		assert.EqualValues(t, 0, f.intentCount(t, models.StatusVerified))
		f.publisher.AssertNotCalled(t, "SendPaymentEvent")
	})

	t.Run("structural anomalies produce zero writes", func(t *testing.T) {
		f := newReconcileFixture(t)
		f.seedPending(t, "ws_CO_105")

		f.svc.ProcessSTKCallback(ctx, nil)
		f.svc.ProcessSTKCallback(ctx, &daraja.CallbackEnvelope{})
		f.svc.ProcessSTKCallback(ctx, &daraja.CallbackEnvelope{Body: &daraja.CallbackBody{}})

		assert.EqualValues(t, 1, f.intentCount(t, models.StatusPending))
		f.publisher.AssertNotCalled(t, "SendPaymentEvent")
	})

	t.Run("success callback without receipt or date is dropped", func(t *testing.T) {
		f := newReconcileFixture(t)
		f.seedPending(t, "ws_CO_106")

		env := successCallback("ws_CO_106")
		env.Body.STKCallback.CallbackMetadata = &daraja.CallbackMetadata{Item: []daraja.MetadataItem{
			{Name: "Amount", Value: float64(500)},
		}}
		f.svc.ProcessSTKCallback(ctx, env)

		assert.EqualValues(t, 1, f.intentCount(t, models.StatusPending))
	})

	t.Run("callback amount never overwrites the recorded amount", func(t *testing.T) {
		f := newReconcileFixture(t)
		intent := f.seedPending(t, "ws_CO_107")
		f.publisher.On("SendPaymentEvent", mock.AnythingOfType("models.PaymentEvent")).Return(nil).Once()

		env := successCallback("ws_CO_107")
		env.Body.STKCallback.CallbackMetadata.Item[0].Value = float64(999999)
		f.svc.ProcessSTKCallback(ctx, env)

		got, err := f.repo.GetByID(ctx, intent.ID)
		assert.NoError(t, err)
		assert.Equal(t, 500, got.Amount)
	})
}

func TestProcessB2CResult(t *testing.T) {
	ctx := context.Background()

	b2cSuccess := func(conversationID string) *daraja.B2CResultEnvelope {
		return &daraja.B2CResultEnvelope{Result: &daraja.B2CResult{
			ResultCode:     0,
			ConversationID: conversationID,
			TransactionID:  "QBC456DEF",
			ResultParameters: &daraja.B2CResultParameters{ResultParameter: []daraja.B2CResultParameter{
				{Key: "TransactionCompletedDateTime", Value: "01.01.2025 12:00:00"},
			}},
		}}
	}

	t.Run("success result verifies withdrawal", func(t *testing.T) {
		f := newReconcileFixture(t)
		intent := f.seedPending(t, "AG_100")
		f.publisher.On("SendPaymentEvent", mock.AnythingOfType("models.PaymentEvent")).Return(nil).Once()

		f.svc.ProcessB2CResult(ctx, b2cSuccess("AG_100"))

		got, err := f.repo.GetByID(ctx, intent.ID)
		assert.NoError(t, err)
		assert.Equal(t, models.StatusVerified, got.Status)
		assert.Equal(t, "QBC456DEF", *got.MpesaReceipt)
	})

	t.Run("failure result declines withdrawal", func(t *testing.T) {
		f := newReconcileFixture(t)
		intent := f.seedPending(t, "AG_101")
		f.publisher.On("SendPaymentEvent", mock.AnythingOfType("models.PaymentEvent")).Return(nil).Once()

		f.svc.ProcessB2CResult(ctx, &daraja.B2CResultEnvelope{Result: &daraja.B2CResult{
			ResultCode:     2001,
			ResultDesc:     "The initiator information is invalid.",
			ConversationID: "AG_101",
		}})

		got, err := f.repo.GetByID(ctx, intent.ID)
		assert.NoError(t, err)
		assert.Equal(t, models.StatusDeclined, got.Status)
	})

	t.Run("missing result object is dropped", func(t *testing.T) {
		f := newReconcileFixture(t)
		f.seedPending(t, "AG_102")

		f.svc.ProcessB2CResult(ctx, nil)
		f.svc.ProcessB2CResult(ctx, &daraja.B2CResultEnvelope{})

		assert.EqualValues(t, 1, f.intentCount(t, models.StatusPending))
	})
}
