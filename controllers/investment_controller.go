package controllers

import (
	"net/http"

	"chamapay/middleware"
	"chamapay/models"
	"chamapay/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type InvestmentController struct {
	Investments repository.InvestmentRepository
	Logger      *zap.Logger
}

func NewInvestmentController(investments repository.InvestmentRepository, logger *zap.Logger) *InvestmentController {
	return &InvestmentController{Investments: investments, Logger: logger}
}

type proposeRequest struct {
	Title       string `json:"title" binding:"required,max=150"`
	Description string `json:"description"`
	Amount      int    `json:"amount" binding:"required,gt=0"`
}

// Propose creates an investment proposal on behalf of the authenticated member.
func (ic *InvestmentController) Propose(c *gin.Context) {
	memberID, ok := middleware.CurrentMemberID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req proposeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	investment := &models.Investment{
		ID:          uuid.New(),
		ProposerID:  memberID,
		Title:       req.Title,
		Description: req.Description,
		Amount:      req.Amount,
	}
	if err := ic.Investments.Create(c.Request.Context(), investment); err != nil {
		ic.Logger.Error("Failed to create investment proposal", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create proposal"})
		return
	}
	c.JSON(http.StatusCreated, investment)
}

func (ic *InvestmentController) List(c *gin.Context) {
	investments, err := ic.Investments.List(c.Request.Context())
	if err != nil {
		ic.Logger.Error("Failed to list investments", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list investments"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"investments": investments})
}

func (ic *InvestmentController) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid investment id"})
		return
	}

	investment, err := ic.Investments.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Investment not found"})
		return
	}
	c.JSON(http.StatusOK, investment)
}

type voteRequest struct {
	InFavor *bool `json:"in_favor" binding:"required"`
}

// Vote records or revises the member's vote on a proposal.
func (ic *InvestmentController) Vote(c *gin.Context) {
	memberID, ok := middleware.CurrentMemberID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid investment id"})
		return
	}

	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := ic.Investments.GetByID(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Investment not found"})
		return
	}

	if err := ic.Investments.CastVote(c.Request.Context(), id, memberID, *req.InFavor); err != nil {
		ic.Logger.Error("Failed to record vote", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record vote"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Vote recorded"})
}
