package token

import (
	"errors"
	"strings"
	"testing"
	"time"
)

const testSecret = "test-secret-that-is-32-bytes-long!"

func TestIssuer_RoundTrip(t *testing.T) {
	iss := NewIssuer(testSecret, time.Hour)

	tok, err := iss.Issue("account-1")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	accountID, err := iss.Verify(tok)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if accountID != "account-1" {
		t.Errorf("accountID = %q, want %q", accountID, "account-1")
	}
}

func TestIssuer_Verify_Expired(t *testing.T) {
	iss := NewIssuer(testSecret, time.Hour)
	issuedAt := time.Now().Add(-2 * time.Hour)
	iss.now = func() time.Time { return issuedAt }

	tok, err := iss.Issue("account-1")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	iss.now = time.Now
	if _, err := iss.Verify(tok); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Verify() error = %v, want ErrTokenInvalid", err)
	}
}

func TestIssuer_Verify_WrongSecret(t *testing.T) {
	tok, err := NewIssuer(testSecret, time.Hour).Issue("account-1")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	other := NewIssuer("another-secret-that-is-32-bytes!!", time.Hour)
	if _, err := other.Verify(tok); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Verify() error = %v, want ErrTokenInvalid", err)
	}
}

// 失敗理由にかかわらず同一のエラーが返ることを検証する。
func TestIssuer_Verify_FailuresCollapse(t *testing.T) {
	iss := NewIssuer(testSecret, time.Hour)
	tok, err := iss.Issue("account-1")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	parts := strings.Split(tok, ".")
	tampered := parts[0] + "." + parts[1] + ".AAAA"

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.token"},
		{"tampered signature", tampered},
		{"unsigned", parts[0] + "." + parts[1] + "."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := iss.Verify(tt.token)
			if err != ErrTokenInvalid {
				t.Errorf("Verify() error = %v, want exactly ErrTokenInvalid", err)
			}
		})
	}
}
