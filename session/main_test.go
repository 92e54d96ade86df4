package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"drivendev/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, secret string) *Manager {
	t.Helper()
	return Connect(context.Background(), ManagerConnectProps{Logger: logger.Nop(), Secret: secret})
}

func TestIssueAndParse(t *testing.T) {
	m := newTestManager(t, "secret")
	id := uuid.NewString()

	token, err := m.Issue(id)
	require.NoError(t, err)

	got, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestParseRejectsForeignTokens(t *testing.T) {
	m := newTestManager(t, "secret")
	other := newTestManager(t, "another secret")

	token, err := other.Issue(uuid.NewString())
	require.NoError(t, err)
	_, err = m.Parse(token)
	assert.Error(t, err)

	notUUID, err := m.Issue("telegram-42")
	require.NoError(t, err)
	_, err = m.Parse(notUUID)
	assert.Error(t, err)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		Issuer:    issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	})
	signed, err := expired.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = m.Parse(signed)
	assert.Error(t, err)
}

func TestMiddlewareIssuesCookieOnce(t *testing.T) {
	m := newTestManager(t, "secret")

	var seen []string
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := FromContext(r.Context())
		require.True(t, ok)
		seen = append(seen, id)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Empty(t, rec.Result().Cookies())
	require.Len(t, seen, 2)
	assert.Equal(t, seen[0], seen[1])
}

func TestLookupWithoutCookie(t *testing.T) {
	m := newTestManager(t, "secret")

	_, err := m.Lookup(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.ErrorIs(t, err, ErrNoSession)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "garbage"})
	_, err = m.Lookup(req)
	assert.ErrorIs(t, err, ErrNoSession)
}
