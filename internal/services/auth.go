package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/openraise/escrow-backend/internal/apperr"
	"github.com/openraise/escrow-backend/internal/logger"
)

const operatorRole = "operator"

// AuthService gates the operator-only surface: create, freeze, finalize,
// fee-rate changes, refund administration. A single shared operator
// credential (bcrypt hash from config) is exchanged for a short-lived
// role-claimed JWT.
type AuthService interface {
	Login(password string) (string, error)
	VerifyOperator(tokenString string) error
}

type authService struct {
	secretKey    []byte
	passwordHash []byte
	tokenTTL     time.Duration
	clock        Clock
	log          *logger.Logger
}

func NewAuthService(secretKey, passwordHash string, tokenTTL time.Duration, clock Clock, baseLog *logger.Logger) AuthService {
	serviceLog := baseLog.With("service", "AuthService")
	return &authService{
		secretKey:    []byte(secretKey),
		passwordHash: []byte(passwordHash),
		tokenTTL:     tokenTTL,
		clock:        clock,
		log:          serviceLog,
	}
}

func (as *authService) Login(password string) (string, error) {
	if len(as.passwordHash) == 0 {
		return "", apperr.Authorization("operator login is not configured")
	}
	if err := bcrypt.CompareHashAndPassword(as.passwordHash, []byte(password)); err != nil {
		as.log.Warn("Operator login rejected")
		return "", apperr.Authorization("invalid operator credentials")
	}

	now := as.clock.Now()
	claims := jwt.MapClaims{
		"role": operatorRole,
		"iat":  now.Unix(),
		"exp":  now.Add(as.tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(as.secretKey)
	if err != nil {
		return "", apperr.Internal(fmt.Errorf("sign operator token: %w", err))
	}
	as.log.Info("Operator logged in")
	return signed, nil
}

func (as *authService) VerifyOperator(tokenString string) error {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return as.secretKey, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return apperr.Authorization("invalid operator token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["role"] != operatorRole {
		return apperr.Authorization("token lacks the operator role")
	}
	return nil
}
