// Package entitlement decides whether a session may run a tool, and what
// free-tier quota remains. It is the single gate every processing request
// passes through.
//
// The evaluator is pure: it reads a session snapshot and never mutates
// anything. Recording usage is a separate explicit step the handler performs
// only after the operation succeeds, so a failed operation never consumes
// quota. Note the accepted narrow race this creates: two concurrent requests
// near a quota boundary can both pass the check before either increments.
// Known limitation, see DESIGN.md.
package entitlement

import (
	"errors"
	"fmt"
	"time"

	"github.com/pdfden/pdf-tools-api/internal/models"
)

// ErrInvalidTool is returned for unknown tool names.
var ErrInvalidTool = errors.New("invalid tool")

// PremiumRequiredError rejects a premium-gated tool or convert sub-format.
type PremiumRequiredError struct {
	Tool   models.Tool
	Format string // non-empty when a convert sub-format triggered the gate
}

func (e *PremiumRequiredError) Error() string {
	if e.Format != "" {
		return fmt.Sprintf("converting to %q requires premium", e.Format)
	}
	return fmt.Sprintf("the %s tool requires premium", e.Tool)
}

// QuotaExhaustedError rejects a request whose free-tier ceiling is reached.
type QuotaExhaustedError struct {
	Tool  models.Tool
	Used  int
	Limit int
}

func (e *QuotaExhaustedError) Error() string {
	return fmt.Sprintf("free limit reached for %s (%d/%d)", e.Tool, e.Used, e.Limit)
}

// ToolConfig is the static, read-only per-tool gating configuration.
type ToolConfig struct {
	PremiumOnly bool
	FreeLimit   *int // nil = unlimited free use
}

func limit(n int) *int { return &n }

// toolConfigs is fixed at startup. Edit is premium-only; everything else has
// a finite free ceiling.
var toolConfigs = map[models.Tool]ToolConfig{
	models.ToolMerge:    {FreeLimit: limit(5)},
	models.ToolSplit:    {FreeLimit: limit(5)},
	models.ToolCompress: {FreeLimit: limit(5)},
	models.ToolRepair:   {FreeLimit: limit(3)},
	models.ToolConvert:  {FreeLimit: limit(3)},
	models.ToolEdit:     {PremiumOnly: true},
}

// ConvertFormats lists every supported convert sub-format and whether it is
// premium-only. The outline and image-report renderers are the premium tier.
var ConvertFormats = map[string]bool{
	"txt":           false,
	"md":            false,
	"html":          false,
	"json":          false,
	"pptx-outline":  true,
	"images-report": true,
}

// ConfigFor returns the static configuration for a tool.
func ConfigFor(tool models.Tool) (ToolConfig, bool) {
	cfg, ok := toolConfigs[tool]
	return cfg, ok
}

// Check evaluates whether the session may run the tool right now.
// convertTo is only consulted for the convert tool. A nil return permits the
// operation.
func Check(s models.Session, tool models.Tool, convertTo string, now time.Time) error {
	cfg, ok := toolConfigs[tool]
	if !ok {
		return ErrInvalidTool
	}

	premium := s.IsPremium(now)

	if cfg.PremiumOnly && !premium {
		return &PremiumRequiredError{Tool: tool}
	}

	if cfg.FreeLimit != nil && !premium {
		if used := s.UsageByTool[tool]; used >= *cfg.FreeLimit {
			return &QuotaExhaustedError{Tool: tool, Used: used, Limit: *cfg.FreeLimit}
		}
	}

	// Premium convert sub-formats are gated independently of the quota check.
	if tool == models.ToolConvert && !premium {
		if premiumOnly, known := ConvertFormats[convertTo]; known && premiumOnly {
			return &PremiumRequiredError{Tool: tool, Format: convertTo}
		}
	}

	return nil
}

// Unlimited is the value reported where no ceiling applies.
const Unlimited = "no limit"

// RemainingAfter reports the quota left after one more successful use:
// max(0, limit-(used+1)), or "no limit" for uncapped/premium access.
func RemainingAfter(s models.Session, tool models.Tool, now time.Time) any {
	cfg, ok := toolConfigs[tool]
	if !ok || cfg.FreeLimit == nil || s.IsPremium(now) {
		return Unlimited
	}
	r := *cfg.FreeLimit - (s.UsageByTool[tool] + 1)
	if r < 0 {
		r = 0
	}
	return r
}

// Remaining reports the quota left right now, without consuming anything.
func Remaining(s models.Session, tool models.Tool, now time.Time) any {
	cfg, ok := toolConfigs[tool]
	if !ok || cfg.FreeLimit == nil || s.IsPremium(now) {
		return Unlimited
	}
	r := *cfg.FreeLimit - s.UsageByTool[tool]
	if r < 0 {
		r = 0
	}
	return r
}

// LimitFor reports a tool's free ceiling, or "no limit".
func LimitFor(tool models.Tool) any {
	cfg, ok := toolConfigs[tool]
	if !ok || cfg.FreeLimit == nil {
		return Unlimited
	}
	return *cfg.FreeLimit
}
