package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"chamapay/daraja"
	"chamapay/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// --- Mocks ---

type MockGateway struct{ mock.Mock }

func (m *MockGateway) InitiateSTKPush(ctx context.Context, phone string, amount int, accountRef string) (*daraja.STKPushResponse, error) {
	args := m.Called(ctx, phone, amount, accountRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*daraja.STKPushResponse), args.Error(1)
}
func (m *MockGateway) InitiateB2C(ctx context.Context, phone string, amount int, remarks string) (*daraja.B2CResponse, error) {
	args := m.Called(ctx, phone, amount, remarks)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*daraja.B2CResponse), args.Error(1)
}

type MockIntentRepo struct{ mock.Mock }

func (m *MockIntentRepo) Create(ctx context.Context, intent *models.PaymentIntent) error {
	args := m.Called(ctx, intent)
	return args.Error(0)
}
func (m *MockIntentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PaymentIntent), args.Error(1)
}
func (m *MockIntentRepo) ListByMember(ctx context.Context, memberID uuid.UUID, status string) ([]models.PaymentIntent, error) {
	args := m.Called(ctx, memberID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PaymentIntent), args.Error(1)
}
func (m *MockIntentRepo) SetCheckoutRequestID(ctx context.Context, id uuid.UUID, checkoutRequestID string) error {
	args := m.Called(ctx, id, checkoutRequestID)
	return args.Error(0)
}
func (m *MockIntentRepo) MarkVerified(ctx context.Context, checkoutRequestID, receipt string, occurredAt time.Time) (*models.PaymentIntent, int64, error) {
	args := m.Called(ctx, checkoutRequestID, receipt, occurredAt)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).(*models.PaymentIntent), args.Get(1).(int64), args.Error(2)
}
func (m *MockIntentRepo) MarkDeclined(ctx context.Context, checkoutRequestID, resultDesc string) (*models.PaymentIntent, int64, error) {
	args := m.Called(ctx, checkoutRequestID, resultDesc)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).(*models.PaymentIntent), args.Get(1).(int64), args.Error(2)
}

// --- Tests ---

func testMember(phone string) *models.Member {
	return &models.Member{ID: uuid.New(), Name: "Jane", Email: "jane@example.com", Phone: phone}
}

func TestInitiateDeposit(t *testing.T) {
	ctx := context.Background()

	t.Run("pending row written before gateway is called", func(t *testing.T) {
		mockRepo := new(MockIntentRepo)
		mockGateway := new(MockGateway)
		svc := NewPaymentService(mockGateway, mockRepo, nil, zap.NewNop())
		member := testMember("0711000111")

		var order []string
		mockRepo.On("Create", ctx, mock.AnythingOfType("*models.PaymentIntent")).
			Run(func(args mock.Arguments) {
				order = append(order, "create")
				intent := args.Get(1).(*models.PaymentIntent)
				assert.Equal(t, models.StatusPending, intent.Status)
				assert.Equal(t, models.DirectionCredit, intent.Direction)
				assert.Equal(t, 500, intent.Amount)
				assert.Equal(t, member.ID, intent.MemberID)
			}).Return(nil).Once()
		mockGateway.On("InitiateSTKPush", ctx, "0711000111", 500, mock.AnythingOfType("string")).
			Run(func(mock.Arguments) { order = append(order, "push") }).
			Return(&daraja.STKPushResponse{CheckoutRequestID: "ws_CO_9"}, nil).Once()
		mockRepo.On("SetCheckoutRequestID", ctx, mock.AnythingOfType("uuid.UUID"), "ws_CO_9").
			Return(nil).Once()

		intent, err := svc.InitiateDeposit(ctx, member, 500.75)

		assert.NoError(t, err)
		assert.Equal(t, []string{"create", "push"}, order)
		assert.Equal(t, 500, intent.Amount) // fractional amount floored
		assert.Equal(t, "ws_CO_9", *intent.CheckoutRequestID)
		mockRepo.AssertExpectations(t)
		mockGateway.AssertExpectations(t)
	})

	t.Run("intent id is the account reference", func(t *testing.T) {
		mockRepo := new(MockIntentRepo)
		mockGateway := new(MockGateway)
		svc := NewPaymentService(mockGateway, mockRepo, nil, zap.NewNop())

		var createdID uuid.UUID
		mockRepo.On("Create", ctx, mock.AnythingOfType("*models.PaymentIntent")).
			Run(func(args mock.Arguments) { createdID = args.Get(1).(*models.PaymentIntent).ID }).
			Return(nil).Once()
		mockGateway.On("InitiateSTKPush", ctx, mock.Anything, 100, mock.AnythingOfType("string")).
			Run(func(args mock.Arguments) { assert.Equal(t, createdID.String(), args.String(3)) }).
			Return(&daraja.STKPushResponse{CheckoutRequestID: "ws_CO_10"}, nil).Once()
		mockRepo.On("SetCheckoutRequestID", ctx, mock.Anything, "ws_CO_10").Return(nil).Once()

		_, err := svc.InitiateDeposit(ctx, testMember("0711000111"), 100)
		assert.NoError(t, err)
	})

	t.Run("push failure leaves orphaned pending intent", func(t *testing.T) {
		mockRepo := new(MockIntentRepo)
		mockGateway := new(MockGateway)
		svc := NewPaymentService(mockGateway, mockRepo, nil, zap.NewNop())

		mockRepo.On("Create", ctx, mock.Anything).Return(nil).Once()
		mockGateway.On("InitiateSTKPush", ctx, mock.Anything, 500, mock.Anything).
			Return(nil, daraja.ErrPushFailed).Once()

		_, err := svc.InitiateDeposit(ctx, testMember("0711000111"), 500)

		assert.ErrorIs(t, err, daraja.ErrPushFailed)
		// No rollback: the pending row is the audit record.
		mockRepo.AssertNotCalled(t, "SetCheckoutRequestID")
		mockRepo.AssertExpectations(t)
	})

	t.Run("no phone on file rejected before any side effect", func(t *testing.T) {
		mockRepo := new(MockIntentRepo)
		mockGateway := new(MockGateway)
		svc := NewPaymentService(mockGateway, mockRepo, nil, zap.NewNop())

		_, err := svc.InitiateDeposit(ctx, testMember(""), 500)

		assert.ErrorIs(t, err, ErrNoPhoneOnFile)
		mockRepo.AssertNotCalled(t, "Create")
		mockGateway.AssertNotCalled(t, "InitiateSTKPush")
	})

	t.Run("initiated event follows the pending insert", func(t *testing.T) {
		mockRepo := new(MockIntentRepo)
		mockGateway := new(MockGateway)
		publisher := new(MockPublisher)
		svc := NewPaymentService(mockGateway, mockRepo, publisher, zap.NewNop())

		mockRepo.On("Create", ctx, mock.Anything).Return(nil).Once()
		publisher.On("SendPaymentEvent", mock.MatchedBy(func(e models.PaymentEvent) bool {
			return e.Type == "payment_initiated" && e.Amount == 500
		})).Return(nil).Once()
		mockGateway.On("InitiateSTKPush", ctx, mock.Anything, 500, mock.Anything).
			Return(&daraja.STKPushResponse{CheckoutRequestID: "ws_CO_11"}, nil).Once()
		mockRepo.On("SetCheckoutRequestID", ctx, mock.Anything, "ws_CO_11").Return(nil).Once()

		_, err := svc.InitiateDeposit(ctx, testMember("0711000111"), 500)

		assert.NoError(t, err)
		publisher.AssertExpectations(t)
	})

	t.Run("initiated event still emitted when the push fails", func(t *testing.T) {
		mockRepo := new(MockIntentRepo)
		mockGateway := new(MockGateway)
		publisher := new(MockPublisher)
		svc := NewPaymentService(mockGateway, mockRepo, publisher, zap.NewNop())

		mockRepo.On("Create", ctx, mock.Anything).Return(nil).Once()
		publisher.On("SendPaymentEvent", mock.AnythingOfType("models.PaymentEvent")).Return(nil).Once()
		mockGateway.On("InitiateSTKPush", ctx, mock.Anything, 500, mock.Anything).
			Return(nil, daraja.ErrPushFailed).Once()

		_, err := svc.InitiateDeposit(ctx, testMember("0711000111"), 500)

		assert.ErrorIs(t, err, daraja.ErrPushFailed)
		publisher.AssertNumberOfCalls(t, "SendPaymentEvent", 1)
	})

	t.Run("no event when the insert fails", func(t *testing.T) {
		mockRepo := new(MockIntentRepo)
		mockGateway := new(MockGateway)
		publisher := new(MockPublisher)
		svc := NewPaymentService(mockGateway, mockRepo, publisher, zap.NewNop())

		mockRepo.On("Create", ctx, mock.Anything).Return(errors.New("insert failed")).Once()

		_, err := svc.InitiateDeposit(ctx, testMember("0711000111"), 500)

		assert.Error(t, err)
		publisher.AssertNotCalled(t, "SendPaymentEvent")
	})

	t.Run("non positive amount rejected", func(t *testing.T) {
		mockRepo := new(MockIntentRepo)
		mockGateway := new(MockGateway)
		svc := NewPaymentService(mockGateway, mockRepo, nil, zap.NewNop())

		_, err := svc.InitiateDeposit(ctx, testMember("0711000111"), 0.5)

		assert.ErrorIs(t, err, daraja.ErrInvalidAmount)
		mockRepo.AssertNotCalled(t, "Create")
	})
}

func TestInitiateWithdrawal(t *testing.T) {
	ctx := context.Background()

	t.Run("debit intent goes through B2C", func(t *testing.T) {
		mockRepo := new(MockIntentRepo)
		mockGateway := new(MockGateway)
		svc := NewPaymentService(mockGateway, mockRepo, nil, zap.NewNop())

		mockRepo.On("Create", ctx, mock.AnythingOfType("*models.PaymentIntent")).
			Run(func(args mock.Arguments) {
				assert.Equal(t, models.DirectionDebit, args.Get(1).(*models.PaymentIntent).Direction)
			}).Return(nil).Once()
		mockGateway.On("InitiateB2C", ctx, "0711000111", 1000, mock.AnythingOfType("string")).
			Return(&daraja.B2CResponse{ConversationID: "AG_1"}, nil).Once()
		mockRepo.On("SetCheckoutRequestID", ctx, mock.Anything, "AG_1").Return(nil).Once()

		intent, err := svc.InitiateWithdrawal(ctx, testMember("0711000111"), 1000)

		assert.NoError(t, err)
		assert.Equal(t, "AG_1", *intent.CheckoutRequestID)
		mockRepo.AssertExpectations(t)
		mockGateway.AssertExpectations(t)
	})

	t.Run("gateway error propagates as generic failure", func(t *testing.T) {
		mockRepo := new(MockIntentRepo)
		mockGateway := new(MockGateway)
		svc := NewPaymentService(mockGateway, mockRepo, nil, zap.NewNop())

		mockRepo.On("Create", ctx, mock.Anything).Return(nil).Once()
		mockGateway.On("InitiateB2C", ctx, mock.Anything, 1000, mock.Anything).
			Return(nil, errors.New("certificate parse error")).Once()

		_, err := svc.InitiateWithdrawal(ctx, testMember("0711000111"), 1000)
		assert.Error(t, err)
	})
}
