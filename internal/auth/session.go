package auth

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/id"
)

// CookieName is the session cookie issued on login.
const CookieName = "helpdesk_session"

// CookieManager handles issuing and validating signed session cookies.
type CookieManager struct {
	secret []byte
	ttl    time.Duration
}

// NewCookieManager builds a manager from auth configuration.
func NewCookieManager(cfg config.AuthConfig) *CookieManager {
	return &CookieManager{secret: []byte(cfg.CookieSecret), ttl: cfg.CookieTTL()}
}

// Claims describes the session JWT payload.
type Claims struct {
	UserID id.ID  `json:"user_id"`
	Name   string `json:"name"`
	jwt.RegisteredClaims
}

// IssueCookie signs a session token for the user and wraps it in a cookie.
func (m *CookieManager) IssueCookie(profile domain.UserProfile) (*fiber.Cookie, error) {
	expiresAt := time.Now().Add(m.ttl)
	claims := &Claims{
		UserID: profile.ID,
		Name:   profile.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   profile.ID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return nil, err
	}

	return &fiber.Cookie{
		Name:     CookieName,
		Value:    signed,
		Expires:  expiresAt,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
	}, nil
}

// ParseToken validates a session token and returns its claims.
func (m *CookieManager) ParseToken(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
