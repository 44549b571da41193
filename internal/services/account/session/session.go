// Package session issues and verifies signed session tokens.
package session

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/swoplabs/swopcredit/internal/platform/errors"
)

// DefaultTTL is how long a session token stays valid.
const DefaultTTL = 24 * time.Hour

const issuer = "swopcredit"
const audience = "swopcredit-app"

// Manager signs and verifies session tokens with an Ed25519 key pair.
type Manager struct {
	private ed25519.PrivateKey
	public  ed25519.PublicKey
	ttl     time.Duration
	now     func() time.Time
}

// claims is the internal claims type used for JWT parsing.
type claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

// NewManager builds a session manager from a base64 encoded Ed25519 seed.
// An empty seed generates an ephemeral key pair, which invalidates all
// sessions on restart.
func NewManager(seedBase64 string, ttl time.Duration, now func() time.Time) (*Manager, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}

	var private ed25519.PrivateKey
	seedBase64 = strings.TrimSpace(seedBase64)
	if seedBase64 == "" {
		_, generated, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("generate session key: %w", err)
		}
		private = generated
	} else {
		seed, err := base64.StdEncoding.DecodeString(seedBase64)
		if err != nil {
			return nil, fmt.Errorf("decode session key seed: %w", err)
		}
		if len(seed) != ed25519.SeedSize {
			return nil, fmt.Errorf("session key seed must be %d bytes", ed25519.SeedSize)
		}
		private = ed25519.NewKeyFromSeed(seed)
	}

	return &Manager{
		private: private,
		public:  private.Public().(ed25519.PublicKey),
		ttl:     ttl,
		now:     now,
	}, nil
}

// Issue mints a signed session token for a user.
func (m *Manager) Issue(userID string) (string, error) {
	if m == nil {
		return "", fmt.Errorf("session manager is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", fmt.Errorf("user id is required")
	}

	now := m.now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{audience},
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		UserID: userID,
	})
	signed, err := token.SignedString(m.private)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Verify checks a session token and returns the authenticated user id.
func (m *Manager) Verify(token string) (string, error) {
	if m == nil {
		return "", apperrors.New(apperrors.CodeSessionInvalid, "session verifier is not configured")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", apperrors.New(apperrors.CodeSessionInvalid, "session token is required")
	}

	var parsed claims
	_, err := jwt.ParseWithClaims(token, &parsed, func(t *jwt.Token) (any, error) {
		return m.public, nil
	},
		jwt.WithValidMethods([]string{"EdDSA"}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithTimeFunc(func() time.Time { return m.now().UTC() }),
	)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeSessionInvalid, "session token is invalid", err)
	}

	userID := strings.TrimSpace(parsed.UserID)
	if userID == "" {
		userID = strings.TrimSpace(parsed.Subject)
	}
	if userID == "" {
		return "", apperrors.New(apperrors.CodeSessionInvalid, "session token has no subject")
	}
	return userID, nil
}
