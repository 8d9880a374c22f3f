// Package auth signs operators in and guards the API with bearer tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"smartscan/internal/model"
	"smartscan/internal/repository"
	"smartscan/internal/supabase"
)

var (
	// ErrInvalidCredentials is returned for an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUnauthenticated is returned when a token is missing, expired or revoked.
	ErrUnauthenticated = errors.New("not signed in")
)

// Session is the result of a successful sign-in.
type Session struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time  `json:"expires_at"`
	User         model.User `json:"user"`
}

// Authenticator resolves operator identity.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (*Session, error)
	CurrentUser(ctx context.Context, token string) (model.User, error)
	SignOut(ctx context.Context, token string) error
}

// Supabase delegates identity to Supabase Auth.
type Supabase struct {
	client *supabase.Client
	now    func() time.Time
}

// NewSupabase wraps client.
func NewSupabase(client *supabase.Client) *Supabase {
	return &Supabase{client: client, now: time.Now}
}

// SignIn exchanges a password for a Supabase session.
func (a *Supabase) SignIn(ctx context.Context, email, password string) (*Session, error) {
	sess, err := a.client.SignIn(ctx, email, password)
	if err != nil {
		if errors.Is(err, supabase.ErrUnauthorized) || strings.Contains(err.Error(), "Invalid login") {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	return &Session{
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		ExpiresAt:    a.now().Add(time.Duration(sess.ExpiresIn) * time.Second),
		User:         model.User{ID: sess.User.ID, Email: sess.User.Email},
	}, nil
}

// CurrentUser asks Supabase Auth who owns token.
func (a *Supabase) CurrentUser(ctx context.Context, token string) (model.User, error) {
	id, email, err := a.client.User(ctx, token)
	if err != nil {
		if errors.Is(err, supabase.ErrUnauthorized) {
			return model.User{}, ErrUnauthenticated
		}
		return model.User{}, err
	}
	return model.User{ID: id, Email: email}, nil
}

// SignOut invalidates token on the Supabase side.
func (a *Supabase) SignOut(ctx context.Context, token string) error {
	if err := a.client.SignOut(ctx, token); err != nil {
		if errors.Is(err, supabase.ErrUnauthorized) {
			return ErrUnauthenticated
		}
		return err
	}
	return nil
}

// Revoker remembers signed-out tokens until they would have expired.
type Revoker interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	Revoked(ctx context.Context, token string) (bool, error)
}

// Local authenticates operators stored in the SQL backend with bcrypt hashes and
// issues its own tokens. Sign-out needs a Revoker; without one tokens live until expiry.
type Local struct {
	operators repository.OperatorRepository
	signer    *Signer
	revoker   Revoker
}

// NewLocal creates a local authenticator. revoker may be nil.
func NewLocal(operators repository.OperatorRepository, signer *Signer, revoker Revoker) *Local {
	return &Local{operators: operators, signer: signer, revoker: revoker}
}

// SignIn checks the bcrypt hash and issues a fresh token pair.
func (a *Local) SignIn(ctx context.Context, email, password string) (*Session, error) {
	op, err := a.operators.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	pair, err := a.signer.Issue(op.ID, op.Email)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &Session{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.AccessExp,
		User:         model.User{ID: op.ID, Email: op.Email},
	}, nil
}

// CurrentUser validates token and rejects revoked ones.
func (a *Local) CurrentUser(ctx context.Context, token string) (model.User, error) {
	claims, err := a.signer.Parse(token)
	if err != nil {
		return model.User{}, ErrUnauthenticated
	}
	if a.revoker != nil {
		revoked, err := a.revoker.Revoked(ctx, token)
		if err != nil {
			return model.User{}, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			return model.User{}, ErrUnauthenticated
		}
	}
	return model.User{ID: claims.Subject, Email: claims.Email}, nil
}

// SignOut revokes token for the rest of its lifetime.
func (a *Local) SignOut(ctx context.Context, token string) error {
	claims, err := a.signer.Parse(token)
	if err != nil {
		return ErrUnauthenticated
	}
	if a.revoker == nil {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	return a.revoker.Revoke(ctx, token, ttl)
}

// HashPassword returns the bcrypt hash stored for a local operator.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CreateOperator hashes password and stores a new local operator.
func CreateOperator(ctx context.Context, operators repository.OperatorRepository, email, password string) (*repository.Operator, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	op := &repository.Operator{Email: strings.ToLower(strings.TrimSpace(email)), PasswordHash: hash}
	if err := operators.Create(ctx, op); err != nil {
		return nil, err
	}
	return op, nil
}
