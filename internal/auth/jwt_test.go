package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/example/ride-booking/internal/models"
)

func TestIssueVerifyRoundTrip(t *testing.T) {
	tk := NewTokens("secret", time.Hour)
	raw, err := tk.Issue("user-1", models.RoleDriver)
	if err != nil {
		t.Fatal(err)
	}
	c, err := tk.Verify(raw)
	if err != nil {
		t.Fatal(err)
	}
	if c.UserID != "user-1" || c.Role != models.RoleDriver {
		t.Fatalf("claims = %+v", c)
	}
}

func TestVerifyRejects(t *testing.T) {
	tk := NewTokens("secret", time.Minute)
	raw, _ := tk.Issue("user-1", models.RoleRider)

	if _, err := NewTokens("other", time.Minute).Verify(raw); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("wrong secret err = %v", err)
	}

	later := *tk
	later.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, err := later.Verify(raw); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired err = %v", err)
	}

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "x"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, err := tk.Verify(none); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("alg none err = %v", err)
	}
	if _, err := tk.Verify("garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("garbage err = %v", err)
	}
}
