package security

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestGenerateTokenRoundTrip(t *testing.T) {
	Init([]byte("test-secret"), time.Hour)

	tokenString, err := GenerateToken("user-1", "admin")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	token, err := TokenAuth.Decode(tokenString)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	claims, err := token.AsMap(context.Background())
	if err != nil {
		t.Fatalf("AsMap failed: %v", err)
	}

	if id, err := GetUserIDFromClaims(claims); err != nil || id != "user-1" {
		t.Fatalf("user id = %q, %v", id, err)
	}
	if role, err := GetUserRoleFromClaims(claims); err != nil || role != "admin" {
		t.Fatalf("role = %q, %v", role, err)
	}
	exp, err := GetExpiryFromClaims(claims)
	if err != nil {
		t.Fatalf("expiry: %v", err)
	}
	if d := time.Until(exp); d < 59*time.Minute || d > time.Hour+time.Second {
		t.Fatalf("unexpected expiry distance %v", d)
	}
	if jti, _ := claims["jti"].(string); jti == "" {
		t.Fatalf("expected jti claim")
	}
}

func TestTokensAreUnique(t *testing.T) {
	Init([]byte("test-secret"), time.Hour)
	a, _ := GenerateToken("user-1", "user")
	b, _ := GenerateToken("user-1", "user")
	if a == b {
		t.Fatalf("expected distinct tokens for the same user")
	}
}

func TestMissingClaims(t *testing.T) {
	if _, err := GetUserIDFromClaims(map[string]interface{}{}); err == nil {
		t.Fatalf("expected error for missing user_id")
	}
	if _, err := GetUserRoleFromClaims(map[string]interface{}{"role": 3}); err == nil {
		t.Fatalf("expected error for non-string role")
	}
	if _, err := GetExpiryFromClaims(map[string]interface{}{"exp": "soon"}); err == nil {
		t.Fatalf("expected error for malformed exp")
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("hunter22")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if !CheckPasswordHash("hunter22", hash) {
		t.Fatalf("expected password to match")
	}
	if CheckPasswordHash("hunter23", hash) {
		t.Fatalf("expected mismatch")
	}
}

func TestTokenBlacklist(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	bl := NewTokenBlacklist(rdb)
	ctx := context.Background()

	revoked, err := bl.IsRevoked(ctx, "tok")
	if err != nil || revoked {
		t.Fatalf("fresh token revoked=%v err=%v", revoked, err)
	}

	if err := bl.Revoke(ctx, "tok", time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	revoked, err = bl.IsRevoked(ctx, "tok")
	if err != nil || !revoked {
		t.Fatalf("revoked token revoked=%v err=%v", revoked, err)
	}

	mr.FastForward(2 * time.Minute)
	revoked, err = bl.IsRevoked(ctx, "tok")
	if err != nil || revoked {
		t.Fatalf("entry should expire with the token, revoked=%v err=%v", revoked, err)
	}
}

func TestTokenBlacklistSkipsExpiredTokens(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	bl := NewTokenBlacklist(rdb)
	if err := bl.Revoke(context.Background(), "old", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if keys := mr.Keys(); len(keys) != 0 {
		t.Fatalf("expected no keys, got %v", keys)
	}
}
