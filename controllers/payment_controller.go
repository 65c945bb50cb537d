package controllers

import (
	"context"
	"errors"
	"net/http"

	"chamapay/daraja"
	"chamapay/middleware"
	"chamapay/models"
	"chamapay/repository"
	"chamapay/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type IPaymentService interface {
	InitiateDeposit(ctx context.Context, member *models.Member, amount float64) (*models.PaymentIntent, error)
	InitiateWithdrawal(ctx context.Context, member *models.Member, amount float64) (*models.PaymentIntent, error)
}

type PaymentController struct {
	Payments IPaymentService
	Members  repository.MemberRepository
	Intents  repository.PaymentIntentRepository
	Logger   *zap.Logger
}

func NewPaymentController(payments IPaymentService, members repository.MemberRepository, intents repository.PaymentIntentRepository, logger *zap.Logger) *PaymentController {
	return &PaymentController{Payments: payments, Members: members, Intents: intents, Logger: logger}
}

type initiateRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

// InitiateDeposit starts an STK push deposit for the authenticated member.
func (pc *PaymentController) InitiateDeposit(c *gin.Context) {
	pc.initiate(c, pc.Payments.InitiateDeposit)
}

// InitiateWithdrawal starts a B2C payout to the authenticated member.
func (pc *PaymentController) InitiateWithdrawal(c *gin.Context) {
	pc.initiate(c, pc.Payments.InitiateWithdrawal)
}

func (pc *PaymentController) initiate(c *gin.Context, call func(context.Context, *models.Member, float64) (*models.PaymentIntent, error)) {
	var req initiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	member, ok := pc.currentMember(c)
	if !ok {
		return
	}

	intent, err := call(c.Request.Context(), member, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNoPhoneOnFile):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "No phone number on file"})
		case errors.Is(err, daraja.ErrInvalidAmount):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Amount must be at least 1"})
		case errors.Is(err, daraja.ErrInvalidPhoneFormat):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Phone number on file is invalid"})
		case errors.Is(err, daraja.ErrCredentialsMissing), errors.Is(err, daraja.ErrCertificateMissing):
			pc.Logger.Error("Gateway misconfigured", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Payment gateway misconfigured"})
		default:
			pc.Logger.Warn("Payment initiation failed", zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "Payment request failed, please try again"})
		}
		return
	}

	c.JSON(http.StatusCreated, intent)
}

// ListTransactions returns the authenticated member's ledger, newest first.
func (pc *PaymentController) ListTransactions(c *gin.Context) {
	memberID, ok := middleware.CurrentMemberID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	intents, err := pc.Intents.ListByMember(c.Request.Context(), memberID, c.Query("status"))
	if err != nil {
		pc.Logger.Error("Failed to list transactions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list transactions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": intents})
}

// GetTransaction returns a single intent, owner only.
func (pc *PaymentController) GetTransaction(c *gin.Context) {
	memberID, ok := middleware.CurrentMemberID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction id"})
		return
	}

	intent, err := pc.Intents.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
			return
		}
		pc.Logger.Error("Failed to load transaction", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load transaction"})
		return
	}
	if intent.MemberID != memberID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
		return
	}
	c.JSON(http.StatusOK, intent)
}

func (pc *PaymentController) currentMember(c *gin.Context) (*models.Member, bool) {
	memberID, ok := middleware.CurrentMemberID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return nil, false
	}

	member, err := pc.Members.FindByID(c.Request.Context(), memberID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return nil, false
		}
		pc.Logger.Error("Failed to load member", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return nil, false
	}
	return member, true
}
