// Unit tests for the premium-code registry and redemption.
package store

import (
	"strings"
	"testing"
)

func TestGenerate(t *testing.T) {
	s, _ := newTestStores()

	code := s.Codes.Generate(AdminOrigin)
	if !strings.HasPrefix(code.Code, "PDF_") {
		t.Errorf("code %q missing PDF_ prefix", code.Code)
	}
	if code.Used {
		t.Error("freshly generated code should not be marked used")
	}
	if code.OriginUserID != AdminOrigin {
		t.Errorf("origin = %q, want %q", code.OriginUserID, AdminOrigin)
	}

	// Uniqueness over a small batch.
	seen := map[string]bool{code.Code: true}
	for i := 0; i < 100; i++ {
		c := s.Codes.Generate(AdminOrigin)
		if seen[c.Code] {
			t.Fatalf("duplicate code generated: %s", c.Code)
		}
		seen[c.Code] = true
	}
}

func TestIsRecognized(t *testing.T) {
	s, _ := newTestStores()
	generated := s.Codes.Generate("user_abc").Code

	tests := []struct {
		name string
		code string
		want bool
	}{
		{"predefined demo code", "PDFPRO2024", true},
		{"demo code lower case", "pdfpro2024", true},
		{"demo code padded", "  FreePDF24  ", true},
		{"generated code", generated, true},
		{"generated code lower case", strings.ToLower(generated), true},
		{"unknown code", "TOTALLY-BOGUS", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Codes.IsRecognized(tt.code); got != tt.want {
				t.Errorf("IsRecognized(%q) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestRedeemCode(t *testing.T) {
	s, c := newTestStores()

	t.Run("unrecognized code grants nothing", func(t *testing.T) {
		id, _ := s.Sessions.Resolve("")
		if _, err := s.RedeemCode("NOPE", id); err != ErrInvalidCode {
			t.Fatalf("err = %v, want ErrInvalidCode", err)
		}
		session, _ := s.Sessions.Get(id)
		if session.IsPremium(c.t) {
			t.Error("invalid code must not grant premium")
		}
	})

	t.Run("generated code records redemption metadata", func(t *testing.T) {
		id, _ := s.Sessions.Resolve("")
		code := s.Codes.Generate(AdminOrigin).Code

		until, err := s.RedeemCode(code, id)
		if err != nil {
			t.Fatalf("RedeemCode: %v", err)
		}
		if want := c.t.Add(PremiumDuration); !until.Equal(want) {
			t.Errorf("premium until = %v, want %v", until, want)
		}

		pc, ok := s.Codes.Get(code)
		if !ok {
			t.Fatal("generated code vanished from registry")
		}
		if !pc.Used || pc.ActivatedBy != id || pc.ActivatedAt == nil {
			t.Errorf("redemption metadata not recorded: %+v", pc)
		}
	})

	t.Run("codes stay redeemable after use", func(t *testing.T) {
		code := s.Codes.Generate(AdminOrigin).Code
		id1, _ := s.Sessions.Resolve("")
		id2, _ := s.Sessions.Resolve("")

		if _, err := s.RedeemCode(code, id1); err != nil {
			t.Fatalf("first redemption: %v", err)
		}
		if _, err := s.RedeemCode(code, id2); err != nil {
			t.Fatalf("second redemption by another session: %v", err)
		}
		s1, _ := s.Sessions.Get(id1)
		s2, _ := s.Sessions.Get(id2)
		if !s1.IsPremium(c.t) || !s2.IsPremium(c.t) {
			t.Error("both sessions should hold premium after redeeming the same code")
		}
	})

	t.Run("demo code works without a registry entry", func(t *testing.T) {
		id, _ := s.Sessions.Resolve("")
		if _, err := s.RedeemCode("unlock-premium", id); err != nil {
			t.Fatalf("demo code redemption: %v", err)
		}
		if _, ok := s.Codes.Get("UNLOCK-PREMIUM"); ok {
			t.Error("demo codes must not appear in the generated-code table")
		}
	})
}
