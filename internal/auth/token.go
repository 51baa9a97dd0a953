package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"kakdoma/internal/config"
	"kakdoma/internal/domain"
)

// Claims carries the operator identity for API access tokens.
type Claims struct {
	jwt.RegisteredClaims
	OperatorID string `json:"operator_id"`
	Role       string `json:"role"`
}

// TokenService signs and verifies HS256 access tokens for operators.
type TokenService interface {
	Issue(operatorID, role string, ttl time.Duration) (string, error)
	Verify(tokenString string) (*Claims, error)
}

type tokenService struct {
	cfg config.JWTConfig
}

// NewTokenService creates a TokenService backed by the shared HMAC secret.
func NewTokenService(cfg config.JWTConfig) TokenService {
	return &tokenService{cfg: cfg}
}

func (s *tokenService) Issue(operatorID, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   operatorID,
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.New().String(),
		},
		OperatorID: operatorID,
		Role:       role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

func (s *tokenService) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}
	if !token.Valid {
		return nil, domain.ErrUnauthorized
	}

	if s.cfg.Issuer != "" {
		iss, _ := claims.GetIssuer()
		if iss != s.cfg.Issuer {
			return nil, domain.ErrUnauthorized
		}
	}

	return claims, nil
}
