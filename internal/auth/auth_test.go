package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartscan/internal/model"
	"smartscan/internal/repository"
	"smartscan/internal/supabase"
)

func TestSignerIssueAndParse(t *testing.T) {
	s := NewSigner("secret", "smartscan", time.Hour, 24*time.Hour)
	pair, err := s.Issue("op-1", "desk@school.test")
	require.NoError(t, err)

	claims, err := s.Parse(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "op-1", claims.Subject)
	assert.Equal(t, "desk@school.test", claims.Email)

	_, err = s.Parse(pair.RefreshToken)
	assert.Error(t, err, "refresh tokens are not accepted as access tokens")

	other := NewSigner("other", "smartscan", time.Hour, time.Hour)
	_, err = other.Parse(pair.AccessToken)
	assert.Error(t, err)

	again, err := s.Issue("op-1", "desk@school.test")
	require.NoError(t, err)
	assert.NotEqual(t, pair.AccessToken, again.AccessToken, "tokens issued in the same second differ")

	wrongIssuer := NewSigner("secret", "someone-else", time.Hour, time.Hour)
	_, err = wrongIssuer.Parse(pair.AccessToken)
	assert.Error(t, err)
}

func TestSignerRejectsExpired(t *testing.T) {
	s := NewSigner("secret", "smartscan", time.Minute, time.Hour)
	start := time.Now()
	s.now = func() time.Time { return start }
	pair, err := s.Issue("op-1", "desk@school.test")
	require.NoError(t, err)

	s.now = func() time.Time { return start.Add(2 * time.Minute) }
	_, err = s.Parse(pair.AccessToken)
	assert.Error(t, err)
}

type memOperators struct {
	mu  sync.Mutex
	ops map[string]repository.Operator
}

func (m *memOperators) FindByEmail(_ context.Context, email string) (*repository.Operator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	op, ok := m.ops[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &op, nil
}

func (m *memOperators) Create(_ context.Context, op *repository.Operator) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if op.ID == "" {
		op.ID = "op-" + op.Email
	}
	m.ops[op.Email] = *op
	return nil
}

type memRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
}

func (m *memRevoker) Revoke(_ context.Context, token string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[token] = ttl
	return nil
}

func (m *memRevoker) Revoked(_ context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[token]
	return ok, nil
}

func TestLocalSignInAndOut(t *testing.T) {
	ctx := context.Background()
	ops := &memOperators{ops: map[string]repository.Operator{}}
	_, err := CreateOperator(ctx, ops, " Desk@School.test ", "hunter22")
	require.NoError(t, err)

	rev := &memRevoker{revoked: map[string]time.Duration{}}
	a := NewLocal(ops, NewSigner("secret", "smartscan", time.Hour, 24*time.Hour), rev)

	_, err = a.SignIn(ctx, "desk@school.test", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = a.SignIn(ctx, "nobody@school.test", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	sess, err := a.SignIn(ctx, "DESK@school.test", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "desk@school.test", sess.User.Email)

	user, err := a.CurrentUser(ctx, sess.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, sess.User, user)

	require.NoError(t, a.SignOut(ctx, sess.AccessToken))
	assert.Greater(t, rev.revoked[sess.AccessToken], time.Duration(0))
	_, err = a.CurrentUser(ctx, sess.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	// a second sign-in is not revoked with the first
	other, err := a.SignIn(ctx, "desk@school.test", "hunter22")
	require.NoError(t, err)
	_, err = a.CurrentUser(ctx, other.AccessToken)
	assert.NoError(t, err)

	_, err = a.CurrentUser(ctx, "garbage")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestSupabaseAuthenticator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/v1/token":
			_, _ = w.Write([]byte(`{"access_token":"tok","refresh_token":"ref","expires_in":3600,"user":{"id":"u-1","email":"desk@school.test"}}`))
		case "/auth/v1/user":
			if r.Header.Get("Authorization") != "Bearer tok" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(`{"id":"u-1","email":"desk@school.test"}`))
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer srv.Close()

	a := NewSupabase(supabase.New(srv.URL, "anon"))
	ctx := context.Background()

	sess, err := a.SignIn(ctx, "desk@school.test", "pw")
	require.NoError(t, err)
	assert.Equal(t, "tok", sess.AccessToken)
	assert.Equal(t, "u-1", sess.User.ID)

	user, err := a.CurrentUser(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, model.User{ID: "u-1", Email: "desk@school.test"}, user)

	_, err = a.CurrentUser(ctx, "stale")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	assert.NoError(t, a.SignOut(ctx, "tok"))
}

func TestRequireUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	signer := NewSigner("secret", "smartscan", time.Hour, time.Hour)
	a := NewLocal(&memOperators{ops: map[string]repository.Operator{}}, signer, nil)
	pair, err := signer.Issue("op-1", "desk@school.test")
	require.NoError(t, err)

	r := gin.New()
	r.GET("/me", RequireUser(a), func(c *gin.Context) {
		user, ok := UserFrom(c)
		require.True(t, ok)
		assert.Equal(t, pair.AccessToken, supabase.AccessToken(c.Request.Context()))
		assert.Equal(t, pair.AccessToken, TokenFrom(c))
		c.JSON(http.StatusOK, user)
	})

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + pair.AccessToken, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}
