package controllers

import (
	"net/http"

	"chamapay/daraja"
	"chamapay/middleware"
	"chamapay/repository"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type MemberController struct {
	Members repository.MemberRepository
	Logger  *zap.Logger
}

func NewMemberController(members repository.MemberRepository, logger *zap.Logger) *MemberController {
	return &MemberController{Members: members, Logger: logger}
}

// GetProfile returns the authenticated member's own record.
func (mc *MemberController) GetProfile(c *gin.Context) {
	memberID, ok := middleware.CurrentMemberID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	member, err := mc.Members.FindByID(c.Request.Context(), memberID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
		return
	}
	c.JSON(http.StatusOK, member)
}

type updateProfileRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// UpdateProfile lets a member change their display name and phone number.
// The phone is normalized before it is stored.
func (mc *MemberController) UpdateProfile(c *gin.Context) {
	memberID, ok := middleware.CurrentMemberID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	member, err := mc.Members.FindByID(c.Request.Context(), memberID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
		return
	}

	if req.Name != "" {
		member.Name = req.Name
	}
	if req.Phone != "" {
		normalized, err := daraja.NormalizePhone(req.Phone)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid phone number"})
			return
		}
		member.Phone = normalized
	}

	if err := mc.Members.Update(c.Request.Context(), member); err != nil {
		mc.Logger.Error("Failed to update profile", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}
	c.JSON(http.StatusOK, member)
}

// ListMembers returns the club directory.
func (mc *MemberController) ListMembers(c *gin.Context) {
	members, err := mc.Members.List(c.Request.Context())
	if err != nil {
		mc.Logger.Error("Failed to list members", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list members"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}
