package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthMiddleware_WithValidCookie(t *testing.T) {
	m := NewAuthMiddleware("test-secret")

	nextCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		login, ok := OperatorFromContext(r.Context())
		require.True(t, ok, "operator not in context")
		assert.Equal(t, "m.rojas", login)
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/protected", nil)

	m.SetAuthCookie(w, "m.rojas")
	resCookies := w.Result().Cookies()
	require.NotEmpty(t, resCookies, "no cookies set by SetAuthCookie")

	r.AddCookie(resCookies[0])

	m.Middleware(next).ServeHTTP(httptest.NewRecorder(), r)

	assert.True(t, nextCalled, "next handler was not called")
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	m := NewAuthMiddleware("test-secret")
	other := NewAuthMiddleware("other-secret")

	w := httptest.NewRecorder()
	other.SetAuthCookie(w, "m.rojas")
	foreign := w.Result().Cookies()[0]

	tests := []struct {
		name   string
		cookie *http.Cookie
	}{
		{name: "without cookie"},
		{name: "signed with another key", cookie: foreign},
		{name: "garbage", cookie: &http.Cookie{Name: authCookieName, Value: "garbage"}},
		{name: "tampered login", cookie: &http.Cookie{Name: authCookieName, Value: "YWRtaW4." + m.signature("bS5yb2phcw")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatalf("next handler should not be called")
			})

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.cookie != nil {
				r.AddCookie(tt.cookie)
			}

			m.Middleware(next).ServeHTTP(w, r)

			assert.Equal(t, http.StatusUnauthorized, w.Result().StatusCode)
		})
	}
}

func TestSignRoundTripWithDots(t *testing.T) {
	m := NewAuthMiddleware("")

	login, ok := m.parseCookie(m.sign("ana.torres"))
	require.True(t, ok)
	assert.Equal(t, "ana.torres", login)
}
