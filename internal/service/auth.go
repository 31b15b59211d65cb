package service

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/boddenberg/agent-hub-bfa-go/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

var errIdentityDisabled = errors.New("identity admin API is not configured")

// SessionClaims are the claims read from a Clerk session token. Clerk puts
// the application role in the token through a session claim template; both
// a top-level role and metadata.role are accepted.
type SessionClaims struct {
	Email    string         `json:"email,omitempty"`
	Role     string         `json:"role,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
	jwt.RegisteredClaims
}

func (c *SessionClaims) role() string {
	if c.Role != "" {
		return c.Role
	}
	if r, ok := c.Metadata["role"].(string); ok && r != "" {
		return r
	}
	return domain.RoleAgent
}

// AuthService verifies session tokens and turns them into principals.
type AuthService struct {
	publicKey   *rsa.PublicKey
	issuer      string
	secret      []byte
	adminEmails map[string]bool
	logger      *zap.Logger
}

// NewAuthService creates an auth service. publicKeyPEM verifies RS256 Clerk
// tokens; secret verifies HS256 tokens and is meant for local development.
// At least one of them must be set.
func NewAuthService(publicKeyPEM, issuer, secret string, adminEmails []string, logger *zap.Logger) (*AuthService, error) {
	s := &AuthService{
		issuer:      issuer,
		secret:      []byte(secret),
		adminEmails: emailSet(adminEmails),
		logger:      logger,
	}
	if publicKeyPEM != "" {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(normalizePEM(publicKeyPEM)))
		if err != nil {
			return nil, fmt.Errorf("parse clerk public key: %w", err)
		}
		s.publicKey = key
	}
	if s.publicKey == nil && len(s.secret) == 0 {
		return nil, errors.New("auth: neither CLERK_JWT_PUBLIC_KEY nor JWT_SECRET is set")
	}
	return s, nil
}

// Verify validates a session token and returns its principal. Emails listed
// in ADMIN_EMAILS are always admins.
func (s *AuthService) Verify(tokenString string) (*domain.Principal, error) {
	opts := []jwt.ParserOption{jwt.WithExpirationRequired(), jwt.WithLeeway(5 * time.Second)}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, s.keyFunc, opts...)
	if err != nil {
		s.logger.Debug("session token rejected", zap.Error(err))
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, &domain.ErrUnauthorized{Message: "session expired"}
		}
		return nil, &domain.ErrUnauthorized{Message: "invalid session token"}
	}
	if claims.Subject == "" {
		return nil, &domain.ErrUnauthorized{Message: "session token has no subject"}
	}

	p := &domain.Principal{
		UserID: claims.Subject,
		Email:  claims.Email,
		Role:   strings.ToLower(claims.role()),
	}
	if s.adminEmails[strings.ToLower(p.Email)] {
		p.Role = domain.RoleAdmin
	}
	if p.Role != domain.RoleAdmin {
		p.Role = domain.RoleAgent
	}
	return p, nil
}

func (s *AuthService) keyFunc(t *jwt.Token) (any, error) {
	switch t.Method.(type) {
	case *jwt.SigningMethodRSA:
		if s.publicKey == nil {
			return nil, fmt.Errorf("RS256 tokens are not accepted")
		}
		return s.publicKey, nil
	case *jwt.SigningMethodHMAC:
		// JWT_SECRET is a local fallback; once a Clerk key is set only RS256 verifies.
		if s.publicKey != nil || len(s.secret) == 0 {
			return nil, fmt.Errorf("HS256 tokens are not accepted")
		}
		return s.secret, nil
	}
	return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
}

// IssueDevToken signs an HS256 session token with JWT_SECRET.
func (s *AuthService) IssueDevToken(userID, email, role string, ttl time.Duration) (string, error) {
	if len(s.secret) == 0 {
		return "", errors.New("JWT_SECRET is not set")
	}
	now := time.Now()
	claims := SessionClaims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// normalizePEM restores newlines in keys stored as a single env line.
func normalizePEM(key string) string {
	return strings.ReplaceAll(strings.TrimSpace(key), `\n`, "\n")
}

func emailSet(emails []string) map[string]bool {
	set := make(map[string]bool, len(emails))
	for _, e := range emails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			set[e] = true
		}
	}
	return set
}
