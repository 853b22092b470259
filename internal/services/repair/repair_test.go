// Unit tests for the repair diagnostic engine.
//
// The documents come from internal/testutil, which assembles real PDF bytes
// with controlled defects. Anything needing a page count on the output goes
// through pdfcpu's file API, same as the engine itself.
package repair

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/pdfden/pdf-tools-api/internal/testutil"
)

func TestNormalizeRotation(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{0, 0},
		{90, 90},
		{180, 180},
		{270, 270},
		{45, 90},   // math.Round: 0.5 rounds away from zero
		{44, 0},
		{100, 90},
		{135, 180},
		{359, 0},
		{-45, 270}, // -90 wrapped into [0, 360)
		{-90, 270},
		{450, 90},
	}
	for _, tt := range tests {
		if got := normalizeRotation(tt.in); got != tt.want {
			t.Errorf("normalizeRotation(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestRepairGarbageInput(t *testing.T) {
	e := New(t.TempDir())
	_, err := e.Repair([]byte("this is not a pdf at all"), false)
	if !errors.Is(err, ErrSeverelyCorrupted) {
		t.Fatalf("err = %v, want ErrSeverelyCorrupted", err)
	}
}

func TestRepairCleanDocument(t *testing.T) {
	e := New(t.TempDir())

	res, err := e.Repair(testutil.MinimalPDF(), false)
	if err != nil {
		t.Fatalf("Repair: %v", err)
	}
	if res.Stats.IssuesFound != 0 || res.Stats.IssuesFixed != 0 {
		t.Errorf("clean doc: found=%d fixed=%d, want 0/0 (log: %v)",
			res.Stats.IssuesFound, res.Stats.IssuesFixed, res.Stats.RepairLog)
	}
	if res.Stats.TotalPages != 1 {
		t.Errorf("totalPages = %d, want 1", res.Stats.TotalPages)
	}
	if res.Stats.LoadMethod != "standard" {
		t.Errorf("loadMethod = %q, want standard", res.Stats.LoadMethod)
	}
	if ok, _ := regexp.MatchString(`^-?\d+\.\d$`, res.Stats.SizeChangePercent); !ok {
		t.Errorf("sizeChangePercent %q not one-decimal", res.Stats.SizeChangePercent)
	}

	// Idempotence: repairing the repaired output reports nothing to fix.
	res2, err := e.Repair(res.Bytes, false)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if res2.Stats.IssuesFound != 0 || res2.Stats.IssuesFixed != 0 {
		t.Errorf("second pass: found=%d fixed=%d, want 0/0",
			res2.Stats.IssuesFound, res2.Stats.IssuesFixed)
	}
}

func TestRepairRotation(t *testing.T) {
	e := New(t.TempDir())
	doc := testutil.BuildPDF(testutil.PDFSpec{
		Pages: []testutil.PageSpec{{Rotate: 45}},
	})

	res, err := e.Repair(doc, false)
	if err != nil {
		t.Fatalf("Repair: %v", err)
	}
	if res.Stats.IssuesFound != 1 || res.Stats.IssuesFixed != 1 {
		t.Fatalf("found=%d fixed=%d, want 1/1 (log: %v)",
			res.Stats.IssuesFound, res.Stats.IssuesFixed, res.Stats.RepairLog)
	}
	if len(res.Stats.RepairLog) == 0 || !strings.Contains(strings.Join(res.Stats.RepairLog, "\n"), "rotation") {
		t.Errorf("repair log missing rotation entry: %v", res.Stats.RepairLog)
	}

	// The fix sticks: a second pass finds nothing.
	res2, err := e.Repair(res.Bytes, false)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if res2.Stats.IssuesFound != 0 {
		t.Errorf("second pass found %d issues, want 0 (log: %v)",
			res2.Stats.IssuesFound, res2.Stats.RepairLog)
	}
}

func TestRepairOversizedPage(t *testing.T) {
	e := New(t.TempDir())
	doc := testutil.BuildPDF(testutil.PDFSpec{
		Pages: []testutil.PageSpec{{Width: 20000, Height: 792}},
	})

	res, err := e.Repair(doc, false)
	if err != nil {
		t.Fatalf("Repair: %v", err)
	}
	if res.Stats.IssuesFound != 1 || res.Stats.IssuesFixed != 1 {
		t.Fatalf("found=%d fixed=%d, want 1/1 (log: %v)",
			res.Stats.IssuesFound, res.Stats.IssuesFixed, res.Stats.RepairLog)
	}
	if !strings.Contains(strings.Join(res.Stats.RepairLog, "\n"), "letter size") {
		t.Errorf("repair log missing clamp entry: %v", res.Stats.RepairLog)
	}
}

func TestRepairDirtyMetadata(t *testing.T) {
	e := New(t.TempDir())
	doc := testutil.BuildPDF(testutil.PDFSpec{
		Pages: []testutil.PageSpec{{}},
		Title: "clean\x00title",
	})

	res, err := e.Repair(doc, false)
	if err != nil {
		t.Fatalf("Repair: %v", err)
	}
	if res.Stats.IssuesFound != 1 || res.Stats.IssuesFixed != 1 {
		t.Fatalf("found=%d fixed=%d, want 1/1 (log: %v)",
			res.Stats.IssuesFound, res.Stats.IssuesFixed, res.Stats.RepairLog)
	}
	if !strings.Contains(strings.Join(res.Stats.RepairLog, "\n"), "null") {
		t.Errorf("repair log missing metadata entry: %v", res.Stats.RepairLog)
	}
}

func TestRepairAllPagesBroken(t *testing.T) {
	e := New(t.TempDir())
	_, err := e.Repair(testutil.BrokenPagePDF(), false)
	if err == nil {
		t.Fatal("repair of a document with no usable pages must fail under the free tier")
	}
	if !errors.Is(err, ErrNoValidPages) {
		t.Fatalf("err = %v, want ErrNoValidPages", err)
	}
}

func TestRepairPremiumRecreatesBrokenPages(t *testing.T) {
	e := New(t.TempDir())

	res, err := e.Repair(testutil.BrokenPagePDF(), true)
	if err != nil {
		t.Fatalf("Repair: %v", err)
	}
	if res.Stats.TotalPages != 1 {
		t.Fatalf("totalPages = %d, want 1", res.Stats.TotalPages)
	}
	if res.Stats.PagesRepaired != res.Stats.TotalPages {
		t.Errorf("pagesRepaired = %d, want %d (every page recreated)",
			res.Stats.PagesRepaired, res.Stats.TotalPages)
	}
	if !strings.Contains(strings.Join(res.Stats.RepairLog, "\n"), "placeholder") {
		t.Errorf("repair log missing placeholder entry: %v", res.Stats.RepairLog)
	}

	// The placeholder page plus the trailing report page.
	out := filepath.Join(t.TempDir(), "out.pdf")
	if err := os.WriteFile(out, res.Bytes, 0o644); err != nil {
		t.Fatal(err)
	}
	n, err := api.PageCountFile(out)
	if err != nil {
		t.Fatalf("PageCountFile: %v", err)
	}
	if n != 2 {
		t.Errorf("page count = %d, want 2 (placeholder + report)", n)
	}
}

func TestRepairPremiumReportPage(t *testing.T) {
	e := New(t.TempDir())
	doc := testutil.BuildPDF(testutil.PDFSpec{
		Pages: []testutil.PageSpec{{Rotate: 45}},
	})

	res, err := e.Repair(doc, true)
	if err != nil {
		t.Fatalf("Repair: %v", err)
	}
	if !strings.Contains(strings.Join(res.Stats.RepairLog, "\n"), "report page") {
		t.Errorf("premium run with issues should append a report page: %v", res.Stats.RepairLog)
	}

	// One content page plus the trailing report page.
	out := filepath.Join(t.TempDir(), "out.pdf")
	if err := os.WriteFile(out, res.Bytes, 0o644); err != nil {
		t.Fatal(err)
	}
	n, err := api.PageCountFile(out)
	if err != nil {
		t.Fatalf("PageCountFile: %v", err)
	}
	if n != 2 {
		t.Errorf("page count = %d, want 2 (content + report)", n)
	}
}

func TestRepairPremiumCleanNoReport(t *testing.T) {
	e := New(t.TempDir())

	res, err := e.Repair(testutil.MinimalPDF(), true)
	if err != nil {
		t.Fatalf("Repair: %v", err)
	}
	out := filepath.Join(t.TempDir(), "out.pdf")
	if err := os.WriteFile(out, res.Bytes, 0o644); err != nil {
		t.Fatal(err)
	}
	n, err := api.PageCountFile(out)
	if err != nil {
		t.Fatalf("PageCountFile: %v", err)
	}
	if n != 1 {
		t.Errorf("clean premium repair changed the page count to %d", n)
	}
}

func TestLoadStrategyOrder(t *testing.T) {
	// The state machine tries standard first; a clean document never reaches
	// the degraded strategies.
	ctx, strategy, err := loadWithStrategies(testutil.MinimalPDF())
	if err != nil {
		t.Fatalf("loadWithStrategies: %v", err)
	}
	if strategy != LoadStandard {
		t.Errorf("strategy = %v, want LoadStandard", strategy)
	}
	if ctx.PageCount != 1 {
		t.Errorf("PageCount = %d, want 1", ctx.PageCount)
	}

	// A document both validation modes reject still loads via the careful
	// parse-only strategy, with the page count derived from the page tree.
	ctx, strategy, err = loadWithStrategies(testutil.BrokenPagePDF())
	if err != nil {
		t.Fatalf("loadWithStrategies(broken page): %v", err)
	}
	if strategy != LoadCarefulSlowParse {
		t.Errorf("strategy = %v, want LoadCarefulSlowParse", strategy)
	}
	if ctx.PageCount != 1 {
		t.Errorf("careful parse PageCount = %d, want 1", ctx.PageCount)
	}

	if _, strategy, err := loadWithStrategies([]byte("junk")); err == nil || strategy != LoadFailed {
		t.Errorf("junk input: strategy = %v err = %v, want LoadFailed + error", strategy, err)
	}
}

func TestLoadStrategyNames(t *testing.T) {
	want := map[LoadStrategy]string{
		LoadStandard:                 "standard",
		LoadRecoveryIgnoreEncryption: "recovery-ignore-encryption",
		LoadCarefulSlowParse:         "careful-slow-parse",
		LoadFailed:                   "failed",
	}
	for s, name := range want {
		if s.String() != name {
			t.Errorf("%d.String() = %q, want %q", s, s.String(), name)
		}
	}
}
