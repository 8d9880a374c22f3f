package supabase

import "context"

type tokenKey struct{}

// WithAccessToken attaches the signed-in user's access token to ctx so row level
// security applies to table calls made on their behalf.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// AccessToken returns the token stored by WithAccessToken, or "".
func AccessToken(ctx context.Context) string {
	tok, _ := ctx.Value(tokenKey{}).(string)
	return tok
}
