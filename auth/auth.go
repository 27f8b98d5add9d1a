// Package auth defines how the server authenticates calls and provides a
// static bearer-token implementation for the daemon.
package auth

import (
	"context"
	"crypto/subtle"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/komoralink/komora/contextx"
)

// AuthFunc authenticates a call to fullMethod from its incoming metadata.
// It returns the context the handler should run with, usually enriched with
// a contextx.Actor, or an error that rejects the call.
type AuthFunc func(ctx context.Context, fullMethod string, md metadata.MD) (context.Context, error)

// AuthorizationHeader is the metadata key bearer tokens travel in.
const AuthorizationHeader = "authorization"

const bearerPrefix = "Bearer "

// TokenFromMD extracts the bearer token from md, or "" when there is none.
func TokenFromMD(md metadata.MD) string {
	for _, v := range md.Get(AuthorizationHeader) {
		if len(v) > len(bearerPrefix) && strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
			return strings.TrimSpace(v[len(bearerPrefix):])
		}
	}
	return ""
}

// BearerToken returns an AuthFunc accepting exactly the tokens in actors and
// attaching the matching Actor to the context. Tokens are compared in
// constant time.
func BearerToken(actors map[string]contextx.Actor) AuthFunc {
	type credential struct {
		token []byte
		actor contextx.Actor
	}
	creds := make([]credential, 0, len(actors))
	for tok, a := range actors {
		if tok != "" {
			creds = append(creds, credential{token: []byte(tok), actor: a})
		}
	}

	return func(ctx context.Context, _ string, md metadata.MD) (context.Context, error) {
		tok := TokenFromMD(md)
		if tok == "" {
			return ctx, status.Error(codes.Unauthenticated, "missing bearer token")
		}
		for _, c := range creds {
			if subtle.ConstantTimeCompare(c.token, []byte(tok)) == 1 {
				return contextx.WithActor(ctx, c.actor), nil
			}
		}
		return ctx, status.Error(codes.Unauthenticated, "invalid bearer token")
	}
}
