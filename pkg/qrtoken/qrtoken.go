// Package qrtoken signs and verifies the payload embedded in coupon QR codes.
// Stations print the token; the redemption API refuses scans whose signature
// or expiry does not check out before touching the coupon row.
package qrtoken

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("qrtoken: invalid token")
	ErrExpiredToken = errors.New("qrtoken: token expired")
)

// Claims is the signed QR payload carried by a physical coupon.
type Claims struct {
	StationID   uuid.UUID `json:"stationId"`
	DispenserID string    `json:"dispenserId"`
	Nonce       string    `json:"nonce"`
	jwt.RegisteredClaims
}

// Manager issues and verifies HS256 QR tokens.
type Manager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewManager(secret, issuer string, ttl time.Duration) (*Manager, error) {
	if secret == "" {
		return nil, errors.New("qrtoken: secret is required")
	}
	if ttl <= 0 {
		return nil, errors.New("qrtoken: ttl must be positive")
	}
	return &Manager{secret: []byte(secret), issuer: issuer, ttl: ttl}, nil
}

// Issue signs a QR payload for the given station/dispenser pair.
func (m *Manager) Issue(stationID uuid.UUID, dispenserID string, now time.Time) (string, error) {
	claims := Claims{
		StationID:   stationID,
		DispenserID: dispenserID,
		Nonce:       uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("qrtoken: signing: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a signed QR payload.
func (m *Manager) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
