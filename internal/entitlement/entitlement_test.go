// Unit tests for the allow/deny gate and quota math.
//
// The evaluator is pure, so these tests build session values by hand and
// never need a store.
package entitlement

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/pdfden/pdf-tools-api/internal/models"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func freeSession(usage map[models.Tool]int) models.Session {
	if usage == nil {
		usage = map[models.Tool]int{}
	}
	return models.Session{UserID: "user_test", UsageByTool: usage, CreatedAt: testNow}
}

func premiumSession(usage map[models.Tool]int) models.Session {
	s := freeSession(usage)
	until := testNow.Add(12 * time.Hour)
	s.PremiumUntil = &until
	return s
}

func lapsedSession(usage map[models.Tool]int) models.Session {
	s := freeSession(usage)
	until := testNow.Add(-time.Minute)
	s.PremiumUntil = &until
	return s
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name      string
		session   models.Session
		tool      models.Tool
		convertTo string
		wantErr   any // nil, ErrInvalidTool, or a pointer to the expected typed error
	}{
		{
			name:    "unknown tool",
			session: freeSession(nil),
			tool:    models.Tool("rotate"),
			wantErr: ErrInvalidTool,
		},
		{
			name:    "free user within quota",
			session: freeSession(map[models.Tool]int{models.ToolMerge: 4}),
			tool:    models.ToolMerge,
		},
		{
			name:    "free user at ceiling",
			session: freeSession(map[models.Tool]int{models.ToolMerge: 5}),
			tool:    models.ToolMerge,
			wantErr: &QuotaExhaustedError{Tool: models.ToolMerge, Used: 5, Limit: 5},
		},
		{
			name:    "free user past ceiling",
			session: freeSession(map[models.Tool]int{models.ToolRepair: 7}),
			tool:    models.ToolRepair,
			wantErr: &QuotaExhaustedError{Tool: models.ToolRepair, Used: 7, Limit: 3},
		},
		{
			name:    "premium bypasses quota",
			session: premiumSession(map[models.Tool]int{models.ToolMerge: 50}),
			tool:    models.ToolMerge,
		},
		{
			name:    "lapsed premium reverts to free ceilings with existing counters",
			session: lapsedSession(map[models.Tool]int{models.ToolMerge: 5}),
			tool:    models.ToolMerge,
			wantErr: &QuotaExhaustedError{Tool: models.ToolMerge, Used: 5, Limit: 5},
		},
		{
			name:    "edit requires premium",
			session: freeSession(nil),
			tool:    models.ToolEdit,
			wantErr: &PremiumRequiredError{Tool: models.ToolEdit},
		},
		{
			name:    "edit allowed for premium",
			session: premiumSession(nil),
			tool:    models.ToolEdit,
		},
		{
			name:      "free convert format",
			session:   freeSession(nil),
			tool:      models.ToolConvert,
			convertTo: "md",
		},
		{
			name:      "premium convert format gated for free user",
			session:   freeSession(nil),
			tool:      models.ToolConvert,
			convertTo: "pptx-outline",
			wantErr:   &PremiumRequiredError{Tool: models.ToolConvert, Format: "pptx-outline"},
		},
		{
			name:      "premium convert format gated even with quota left",
			session:   freeSession(map[models.Tool]int{models.ToolConvert: 0}),
			tool:      models.ToolConvert,
			convertTo: "images-report",
			wantErr:   &PremiumRequiredError{Tool: models.ToolConvert, Format: "images-report"},
		},
		{
			name:      "premium convert format allowed for premium",
			session:   premiumSession(nil),
			tool:      models.ToolConvert,
			convertTo: "pptx-outline",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.session, tt.tool, tt.convertTo, testNow)

			switch want := tt.wantErr.(type) {
			case nil:
				if err != nil {
					t.Fatalf("Check() = %v, want nil", err)
				}
			case error:
				if want == ErrInvalidTool {
					if !errors.Is(err, ErrInvalidTool) {
						t.Fatalf("Check() = %v, want ErrInvalidTool", err)
					}
					return
				}
				switch w := want.(type) {
				case *QuotaExhaustedError:
					var got *QuotaExhaustedError
					if !errors.As(err, &got) {
						t.Fatalf("Check() = %v, want QuotaExhaustedError", err)
					}
					if *got != *w {
						t.Errorf("QuotaExhaustedError = %+v, want %+v", got, w)
					}
				case *PremiumRequiredError:
					var got *PremiumRequiredError
					if !errors.As(err, &got) {
						t.Fatalf("Check() = %v, want PremiumRequiredError", err)
					}
					if *got != *w {
						t.Errorf("PremiumRequiredError = %+v, want %+v", got, w)
					}
				}
			}
		})
	}
}

// TestCheckIsPure confirms the evaluator never mutates the session;
// usage recording is the caller's explicit, post-success step.
func TestCheckIsPure(t *testing.T) {
	usage := map[models.Tool]int{models.ToolMerge: 2, models.ToolRepair: 1}
	s := freeSession(usage)
	before := map[models.Tool]int{models.ToolMerge: 2, models.ToolRepair: 1}

	for _, tool := range models.AllTools {
		Check(s, tool, "txt", testNow)
	}
	Check(s, models.Tool("bogus"), "", testNow)

	if !reflect.DeepEqual(s.UsageByTool, before) {
		t.Errorf("Check mutated usage: %v, want %v", s.UsageByTool, before)
	}
	if s.PremiumUntil != nil {
		t.Error("Check mutated premium state")
	}
}

func TestQuotaSequence(t *testing.T) {
	// After C allowed uses, the (C+1)-th is rejected; a premium grant
	// re-permits it.
	usage := map[models.Tool]int{}
	s := freeSession(usage)
	limit := 3 // repair's free ceiling

	for i := 0; i < limit; i++ {
		if err := Check(s, models.ToolRepair, "", testNow); err != nil {
			t.Fatalf("use %d rejected: %v", i+1, err)
		}
		usage[models.ToolRepair]++ // the caller's post-success increment
	}

	err := Check(s, models.ToolRepair, "", testNow)
	var qe *QuotaExhaustedError
	if !errors.As(err, &qe) {
		t.Fatalf("use %d: err = %v, want QuotaExhaustedError", limit+1, err)
	}

	until := testNow.Add(24 * time.Hour)
	s.PremiumUntil = &until
	if err := Check(s, models.ToolRepair, "", testNow); err != nil {
		t.Fatalf("premium grant should re-permit: %v", err)
	}
}

func TestRemaining(t *testing.T) {
	tests := []struct {
		name    string
		session models.Session
		tool    models.Tool
		after   any
		now     any
	}{
		{
			name:    "fresh free user",
			session: freeSession(nil),
			tool:    models.ToolMerge,
			after:   4,
			now:     5,
		},
		{
			name:    "one use left",
			session: freeSession(map[models.Tool]int{models.ToolConvert: 2}),
			tool:    models.ToolConvert,
			after:   0,
			now:     1,
		},
		{
			name:    "clamped at zero past the ceiling",
			session: freeSession(map[models.Tool]int{models.ToolConvert: 9}),
			tool:    models.ToolConvert,
			after:   0,
			now:     0,
		},
		{
			name:    "premium is uncapped",
			session: premiumSession(map[models.Tool]int{models.ToolMerge: 9}),
			tool:    models.ToolMerge,
			after:   Unlimited,
			now:     Unlimited,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RemainingAfter(tt.session, tt.tool, testNow); got != tt.after {
				t.Errorf("RemainingAfter = %v, want %v", got, tt.after)
			}
			if got := Remaining(tt.session, tt.tool, testNow); got != tt.now {
				t.Errorf("Remaining = %v, want %v", got, tt.now)
			}
		})
	}
}
