package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func TestSelectOneBuildsPostgrestQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/students", r.URL.Path)
		assert.Equal(t, "id,name,email", r.URL.Query().Get("select"))
		assert.Equal(t, "eq.A12", r.URL.Query().Get("qr_code"))
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		assert.Equal(t, "anon", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[{"id":"s-1","name":"Ana"}]`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "anon")
	var got row
	err := c.SelectOne(context.Background(), "user-token", Query{
		Table:   "students",
		Select:  "id,name,email",
		Filters: []Filter{Eq("qr_code", "A12")},
	}, &got)
	require.NoError(t, err)
	assert.Equal(t, row{ID: "s-1", Name: "Ana"}, got)
}

func TestSelectOneNoRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	var got row
	err := New(srv.URL, "anon").SelectOne(context.Background(), "", Query{Table: "students"}, &got)
	assert.ErrorIs(t, err, ErrNoRows)
}

func TestSelectOneRejectsMultipleRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"a"},{"id":"b"}]`))
	}))
	defer srv.Close()

	var got row
	err := New(srv.URL, "anon").SelectOne(context.Background(), "", Query{Table: "students"}, &got)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoRows))
}

func TestSelectSurfacesBackendMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"column students.qr does not exist"}`))
	}))
	defer srv.Close()

	var rows []row
	err := New(srv.URL, "anon").Select(context.Background(), "", Query{Table: "students"}, &rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "column students.qr does not exist")
}

func TestInsertPostsJSONArray(t *testing.T) {
	var received []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/v1/attendance", r.URL.Path)
		assert.Equal(t, "return=minimal", r.Header.Get("Prefer"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &received))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	err := New(srv.URL, "anon").Insert(context.Background(), "tok", "attendance", []map[string]string{
		{"student_id": "s-1"}, {"student_id": "s-2"},
	})
	require.NoError(t, err)
	assert.Len(t, received, 2)
}

func TestUserAndSignOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"msg":"invalid JWT"}`))
			return
		}
		switch r.URL.Path {
		case "/auth/v1/user":
			_, _ = w.Write([]byte(`{"id":"u-1","email":"ops@school.test"}`))
		case "/auth/v1/logout":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()
	c := New(srv.URL, "anon")
	ctx := context.Background()

	id, email, err := c.User(ctx, "good")
	require.NoError(t, err)
	assert.Equal(t, "u-1", id)
	assert.Equal(t, "ops@school.test", email)

	_, _, err = c.User(ctx, "bad")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, _, err = c.User(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthorized)

	assert.NoError(t, c.SignOut(ctx, "good"))
	assert.ErrorIs(t, c.SignOut(ctx, "bad"), ErrUnauthorized)
}

func TestSignIn(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["password"] != "secret" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error_description":"Invalid login credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"at","refresh_token":"rt","expires_in":3600,"user":{"id":"u-1","email":"ops@school.test"}}`))
	}))
	defer srv.Close()
	c := New(srv.URL, "anon")

	sess, err := c.SignIn(context.Background(), "ops@school.test", "secret")
	require.NoError(t, err)
	assert.Equal(t, "at", sess.AccessToken)
	assert.Equal(t, "u-1", sess.User.ID)

	_, err = c.SignIn(context.Background(), "ops@school.test", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid login credentials")
}
