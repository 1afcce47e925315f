package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken("s3cret", 42, "driver", 15)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := ParseAccessToken("s3cret", tok.Token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if id, _ := claims.UserID(); id != 42 || claims.Role != "driver" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestParseAccessTokenRejects(t *testing.T) {
	good, _ := NewAccessToken("s3cret", 1, "user", 5)
	expired, _ := NewAccessToken("s3cret", 1, "user", -5)
	noRole, _ := NewAccessToken("s3cret", 1, "", 5)
	hs512, _ := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"sub": "1", "role": "user", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("s3cret"))
	noExp, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "1", "role": "user",
	}).SignedString([]byte("s3cret"))

	tests := []struct {
		name, secret, raw string
	}{
		{"wrong secret", "other", good.Token},
		{"expired", "s3cret", expired.Token},
		{"missing role", "s3cret", noRole.Token},
		{"other algorithm", "s3cret", hs512},
		{"no expiry", "s3cret", noExp},
		{"garbage", "s3cret", "not.a.jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseAccessToken(tt.secret, tt.raw); !errors.Is(err, ErrInvalidAccessToken) {
				t.Fatalf("err = %v", err)
			}
		})
	}
}

func TestRefreshTokens(t *testing.T) {
	a, err := NewRefreshToken(1)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := NewRefreshToken(1)
	if len(a.Raw) != 96 || a.Raw == b.Raw {
		t.Fatalf("raw tokens %q %q", a.Raw, b.Raw)
	}
	if HashRefreshRaw(a.Raw) != HashRefreshRaw(a.Raw) || len(HashRefreshRaw(a.Raw)) != 64 {
		t.Fatal("hash not stable")
	}
}

func TestPasswordClampsCost(t *testing.T) {
	h, err := HashPassword("hunter22", 1)
	if err != nil {
		t.Fatal(err)
	}
	if !VerifyPassword(h, "hunter22") || VerifyPassword(h, "hunter23") {
		t.Fatal("verify mismatch")
	}
}
