package validation

import (
	"strings"
	"testing"
)

func TestIsValidID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"req_0123456789abcdef01234567", true},
		{"prof_abcdefabcdefabcdefabcdef", true},
		{"req_short", false},
		{"REQ_0123456789abcdef01234567", false},
		{"0123456789abcdef01234567", false},
		{"req_0123456789ABCDEF01234567", false},
		{"", false},
		{"req_0123456789abcdef01234567; DROP TABLE requests", false},
	}

	for _, tt := range tests {
		if got := IsValidID(tt.id); got != tt.want {
			t.Errorf("IsValidID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestIsValidPayoutAccount(t *testing.T) {
	if !IsValidPayoutAccount("acct_1NXaBcDeFgHiJkLm") {
		t.Error("expected valid connected account ID to pass")
	}
	for _, bad := range []string{"", "acct_", "cus_123", "acct 123"} {
		if IsValidPayoutAccount(bad) {
			t.Errorf("expected %q to fail", bad)
		}
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  hello  ", 100); got != "hello" {
		t.Errorf("expected trimmed string, got %q", got)
	}
	if got := SanitizeString("a\x00b", 100); got != "ab" {
		t.Errorf("expected null bytes removed, got %q", got)
	}
	long := strings.Repeat("x", 50)
	if got := SanitizeString(long, 10); len(got) != 10 {
		t.Errorf("expected truncation to 10, got %d", len(got))
	}
}

func TestValidate_CollectsErrors(t *testing.T) {
	errs := Validate(
		Required("title", ""),
		PositiveAmount("budget_amount", 0),
		ValidID("request_id", "nope"),
	)
	if len(errs) != 3 {
		t.Fatalf("expected 3 errors, got %d: %v", len(errs), errs)
	}
	if !strings.Contains(errs.Error(), "title") {
		t.Errorf("expected first error to mention title, got %q", errs.Error())
	}
}

func TestValidate_AllPass(t *testing.T) {
	errs := Validate(
		Required("title", "Algebra tutoring"),
		PositiveAmount("budget_amount", 15000),
		ValidID("request_id", "req_0123456789abcdef01234567"),
		MaxLength("title", "Algebra tutoring", MaxTitleLength),
	)
	if len(errs) != 0 {
		t.Errorf("expected no errors, got %v", errs)
	}
}
