package services

import (
	"context"
	"fmt"

	"chamapay/daraja"
	"chamapay/models"
	"chamapay/repository"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type ITokenService interface {
	GenerateTokenPair(memberID, email string) (*TokenPair, error)
	ValidateToken(tokenStr, expectedType string) (jwt.MapClaims, error)
}

type AuthService struct {
	members repository.MemberRepository
	tokens  ITokenService
}

func NewAuthService(members repository.MemberRepository, tokens ITokenService) *AuthService {
	return &AuthService{members: members, tokens: tokens}
}

// Register creates a member account. The phone number is normalized to the
// international format up front so the payment flow never has to guess.
func (s *AuthService) Register(ctx context.Context, name, email, password, phone string) (*models.Member, error) {
	_, err := s.members.FindByEmail(ctx, email)
	if err == nil {
		return nil, fmt.Errorf("email already registered")
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	normalized := ""
	if phone != "" {
		normalized, err = daraja.NormalizePhone(phone)
		if err != nil {
			return nil, err
		}
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password")
	}

	member := &models.Member{
		ID:       uuid.New(),
		Name:     name,
		Email:    email,
		Password: string(hashed),
		Phone:    normalized,
		Role:     "member",
	}
	if err := s.members.Create(ctx, member); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return member, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	member, err := s.members.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(member.Password), []byte(password)); err != nil {
		return nil, fmt.Errorf("invalid email or password")
	}

	return s.tokens.GenerateTokenPair(member.ID.String(), member.Email)
}

func (s *AuthService) RefreshTokens(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.ValidateToken(refreshToken, "refresh")
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token: %w", err)
	}

	memberIDStr, ok := claims["sub"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid token: sub claim missing")
	}
	memberID, err := uuid.Parse(memberIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid token: sub claim malformed")
	}

	member, err := s.members.FindByID(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("member no longer exists")
	}

	return s.tokens.GenerateTokenPair(member.ID.String(), member.Email)
}
