package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// OTP errors
var (
	ErrInvalidChallenge = errors.New("invalid verification challenge")
	ErrExpiredChallenge = errors.New("verification challenge expired")
	ErrWrongCode        = errors.New("wrong verification code")
)

// Purpose says what a verified challenge unlocks.
type Purpose string

const (
	PurposeLogin  Purpose = "login"
	PurposeSignup Purpose = "signup"
)

// OTPConfig defines challenge signing settings
type OTPConfig struct {
	SecretKey string
	TTL       time.Duration
	Issuer    string
}

// ChallengeClaims is the content of a signed challenge. The code itself never
// leaves the server; only its bcrypt hash is embedded.
type ChallengeClaims struct {
	Mobile   string  `json:"mobile"`
	Purpose  Purpose `json:"purpose"`
	CodeHash string  `json:"codeHash"`
	jwt.RegisteredClaims
}

// OTPService issues and verifies one-time code challenges
type OTPService struct {
	config OTPConfig
	now    func() time.Time
}

// NewOTPService creates a new OTP service
func NewOTPService(config OTPConfig) *OTPService {
	return &OTPService{config: config, now: time.Now}
}

// Issue creates a fresh code for mobile and returns the signed challenge that
// must be presented with it.
func (s *OTPService) Issue(mobile string, purpose Purpose) (challenge, code string, err error) {
	code, err = GenerateCode()
	if err != nil {
		return "", "", err
	}
	hash, err := HashCode(code)
	if err != nil {
		return "", "", fmt.Errorf("failed to hash code: %w", err)
	}

	now := s.now()
	claims := &ChallengeClaims{
		Mobile:   mobile,
		Purpose:  purpose,
		CodeHash: hash,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.config.Issuer,
			Subject:   mobile,
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	challenge, err = token.SignedString([]byte(s.config.SecretKey))
	if err != nil {
		return "", "", fmt.Errorf("failed to sign challenge: %w", err)
	}
	return challenge, code, nil
}

// Verify checks code against challenge and returns the challenge claims.
func (s *OTPService) Verify(challenge, code string) (*ChallengeClaims, error) {
	if challenge == "" {
		return nil, ErrInvalidChallenge
	}

	token, err := jwt.ParseWithClaims(challenge, &ChallengeClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.SecretKey), nil
	}, jwt.WithTimeFunc(s.now), jwt.WithIssuer(s.config.Issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredChallenge
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidChallenge, err)
	}

	claims, ok := token.Claims.(*ChallengeClaims)
	if !ok || !token.Valid || claims.Mobile == "" {
		return nil, ErrInvalidChallenge
	}
	if !CheckCode(claims.CodeHash, code) {
		return nil, ErrWrongCode
	}
	return claims, nil
}
