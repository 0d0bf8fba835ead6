package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/contractlens/contractlens/config"
	"github.com/contractlens/contractlens/pkg/logger"
	"github.com/contractlens/contractlens/service"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const sessionContextKey = "session"

// SessionClaims is the signed content of the session cookie. It names a
// browser session, not a user.
type SessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// SessionSigner issues and verifies session cookies
type SessionSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewSessionSigner uses cfg.Secret, or a random per-process secret when it is
// empty. Cookies signed with a random secret do not survive a restart.
func NewSessionSigner(cfg *config.SessionConfig) *SessionSigner {
	secret := []byte(cfg.Secret)
	if len(secret) == 0 {
		slog.Warn("session.secret not set, using a random secret")
		secret = []byte(uuid.New().String() + uuid.New().String())
	}
	return &SessionSigner{secret: secret, ttl: cfg.TTL()}
}

// Sign generates a new cookie value for a session
func (s *SessionSigner) Sign(sessionID string) (string, time.Time, error) {
	expiresAt := time.Now().Add(s.ttl)

	claims := SessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt, nil
}

// Parse returns the session id carried by a cookie value
func (s *SessionSigner) Parse(tokenString string) (string, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.SessionID == "" {
		return "", errors.New("invalid session token")
	}
	return claims.SessionID, nil
}

// Session attaches the browser's session, creating one (and its cookie) when
// the cookie is missing, invalid, expired or names a session that was evicted.
func Session(store *service.SessionStore, signer *SessionSigner, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var sess *service.Session

		if value, err := c.Cookie(cookieName); err == nil && value != "" {
			if id, err := signer.Parse(value); err == nil {
				sess = store.Get(id)
			} else {
				slog.Debug("rejected session cookie", "error", err, "request_id", GetRequestID(c))
			}
		}

		if sess == nil {
			created, err := store.Create()
			if err != nil {
				slog.Error("failed to create session", "error", err, "request_id", GetRequestID(c))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":      "Failed to create session",
					"request_id": GetRequestID(c),
				})
				return
			}
			token, expiresAt, err := signer.Sign(created.ID)
			if err != nil {
				slog.Error("failed to sign session", "error", err, "request_id", GetRequestID(c))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":      "Failed to create session",
					"request_id": GetRequestID(c),
				})
				return
			}
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(cookieName, token, int(time.Until(expiresAt).Seconds()), "/", "", c.Request.TLS != nil, true)
			sess = created
		}

		c.Set(sessionContextKey, sess)
		c.Set("session_id", sess.ID)
		c.Request = c.Request.WithContext(logger.WithSession(c.Request.Context(), sess.ID))

		c.Next()
	}
}

// GetSession gets the browser session from context
func GetSession(c *gin.Context) *service.Session {
	if sess, exists := c.Get(sessionContextKey); exists {
		return sess.(*service.Session)
	}
	return nil
}

// GetSessionID gets the session id from context
func GetSessionID(c *gin.Context) string {
	if id, exists := c.Get("session_id"); exists {
		return id.(string)
	}
	return ""
}
