package auth_test

import (
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/komoralink/komora/auth"
	"github.com/komoralink/komora/contextx"
)

func TestTokenFromMD(t *testing.T) {
	tests := []struct {
		name string
		md   metadata.MD
		want string
	}{
		{"missing", metadata.MD{}, ""},
		{"bearer", metadata.Pairs("authorization", "Bearer s3cret"), "s3cret"},
		{"lowercase scheme", metadata.Pairs("authorization", "bearer s3cret"), "s3cret"},
		{"other scheme", metadata.Pairs("authorization", "Basic abc"), ""},
		{"empty token", metadata.Pairs("authorization", "Bearer "), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := auth.TokenFromMD(tt.md); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	fn := auth.BearerToken(map[string]contextx.Actor{
		"s3cret": {Subject: "ops"},
		"":       {Subject: "nobody"},
	})

	ctx, err := fn(t.Context(), "/komora.cache.v1.Cache/Set", metadata.Pairs("authorization", "Bearer s3cret"))
	if err != nil {
		t.Fatalf("valid token rejected: %v", err)
	}
	a, ok := contextx.ActorFromContext(ctx)
	if !ok || a.Subject != "ops" {
		t.Fatalf("actor = %+v, ok=%v", a, ok)
	}

	for _, md := range []metadata.MD{
		{},
		metadata.Pairs("authorization", "Bearer wrong"),
		metadata.Pairs("authorization", "Bearer "),
	} {
		_, err := fn(t.Context(), "/komora.cache.v1.Cache/Set", md)
		if status.Code(err) != codes.Unauthenticated {
			t.Fatalf("md %v: expected Unauthenticated, got %v", md, err)
		}
	}
}
