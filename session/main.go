package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"drivendev/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

const (
	CookieName = "driven_session"
	issuer     = "drivend"
	defaultTTL = 30 * 24 * time.Hour
)

var ErrNoSession = errors.New("no session found")

type ManagerConnectProps struct {
	Logger *logger.LogMiddleware
	Secret string
	// TTL defaults to 30 days.
	TTL    time.Duration
	Secure bool
}

// Manager issues and reads the signed session cookie. The token subject is
// the session id every store is keyed by.
type Manager struct {
	logger *logger.LogMiddleware
	secret []byte
	ttl    time.Duration
	secure bool
}

type sessionKey struct{}

func Connect(ctx context.Context, args ManagerConnectProps) *Manager {
	tracer := otel.Tracer("session/Connect")
	ctx, span := tracer.Start(ctx, "Connect")
	defer span.End()

	ttl := args.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if args.Secret == "" {
		args.Logger.Logger(ctx).Fatal("[Session] SESSION_SECRET is empty")
	}

	args.Logger.Logger(ctx).Info("[Session] Session manager started")
	return &Manager{logger: args.Logger, secret: []byte(args.Secret), ttl: ttl, secure: args.Secure}
}

func (m *Manager) Issue(sessionID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   sessionID,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Parse returns the session id carried by tokenString.
func (m *Manager) Parse(tokenString string) (string, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil {
		return "", fmt.Errorf("failed to parse session token: %w", err)
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid {
		return "", fmt.Errorf("invalid or expired session token")
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", fmt.Errorf("invalid session id in token: %w", err)
	}
	return claims.Subject, nil
}

// Lookup reads the session id from the request cookie without issuing one.
func (m *Manager) Lookup(r *http.Request) (string, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", ErrNoSession
	}
	sessionID, err := m.Parse(cookie.Value)
	if err != nil {
		m.logger.Logger(r.Context()).Warn("[Session] Ignoring bad session cookie", zap.Error(err))
		return "", ErrNoSession
	}
	return sessionID, nil
}

// Ensure returns the request's session id, issuing a new cookie on w when the
// request carries none or an invalid one.
func (m *Manager) Ensure(w http.ResponseWriter, r *http.Request) (string, error) {
	if sessionID, err := m.Lookup(r); err == nil {
		return sessionID, nil
	}

	sessionID := uuid.NewString()
	token, err := m.Issue(sessionID)
	if err != nil {
		return "", fmt.Errorf("could not sign session token: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	m.logger.Logger(r.Context()).Info("[Session] Issued new session", zap.String("session_id", sessionID))
	return sessionID, nil
}

// Middleware resolves the session for every request and stores it on the
// context. Requests without a session get one issued.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := m.Ensure(w, r)
		if err != nil {
			m.logger.Logger(r.Context()).Error("[Session] Could not issue session", zap.Error(err))
			http.Error(w, "could not start session", http.StatusInternalServerError)
			return
		}
		ctx := WithID(r.Context(), sessionID)
		ctx = logger.WithSession(ctx, sessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func WithID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionKey{}, sessionID)
}

func FromContext(ctx context.Context) (string, bool) {
	sessionID, ok := ctx.Value(sessionKey{}).(string)
	return sessionID, ok && sessionID != ""
}
