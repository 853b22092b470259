// Package repair implements the PDF repair diagnostic engine.
//
// The engine is a small state machine: an ordered list of load strategies is
// tried until one produces a usable document context, then a single
// validation pass walks the page tree fixing what it can and logging
// everything it touches. The structured report (found/fixed counters plus the
// ordered log) is the component's defining contract; responses surface it
// verbatim.
//
// All structural work is delegated to pdfcpu; this package owns the control
// flow, the issue classification, and the report.
package repair

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/pdfden/pdf-tools-api/internal/models"
)

// Page geometry bounds. PDF user space units: 14400 is the format's maximum
// page dimension; letter size is the clamp fallback.
const (
	maxPageDimension = 14400.0
	defaultWidth     = 612.0
	defaultHeight    = 792.0
)

// maxReportLogLines caps how many log lines the appended report page shows.
const maxReportLogLines = 25

var (
	// ErrSeverelyCorrupted is the terminal failure when every load strategy fails.
	ErrSeverelyCorrupted = errors.New("document is severely corrupted: all load strategies failed")
	// ErrNoValidPages is the terminal failure when zero pages survive validation.
	ErrNoValidPages = errors.New("no valid pages survived validation")
)

// LoadStrategy enumerates the progressively degraded parse attempts.
// Go Pattern: an explicit enumerated state instead of nested error handling;
// the strategies are tried by iterating a small ordered list.
type LoadStrategy int

const (
	LoadStandard LoadStrategy = iota
	LoadRecoveryIgnoreEncryption
	LoadCarefulSlowParse
	LoadFailed
)

func (ls LoadStrategy) String() string {
	switch ls {
	case LoadStandard:
		return "standard"
	case LoadRecoveryIgnoreEncryption:
		return "recovery-ignore-encryption"
	case LoadCarefulSlowParse:
		return "careful-slow-parse"
	default:
		return "failed"
	}
}

// Result is the output of a successful repair run.
type Result struct {
	Bytes []byte
	Stats models.RepairStats
}

// Engine runs repair passes. It needs a scratch directory because some of the
// premium recovery steps work through pdfcpu's file-based API.
type Engine struct {
	workDir string
	now     func() time.Time
}

// New creates a repair engine using the given scratch directory
// (os.TempDir() when empty).
func New(workDir string) *Engine {
	if workDir == "" {
		workDir = os.TempDir()
	}
	return &Engine{workDir: workDir, now: time.Now}
}

// run accumulates the diagnostic trail for one repair pass.
type run struct {
	issuesFound   int
	issuesFixed   int
	pagesRepaired int
	log           []string
}

func (r *run) logf(format string, args ...any) {
	r.log = append(r.log, fmt.Sprintf(format, args...))
}

// Repair attempts to load a possibly-malformed document, fix recoverable
// structural defects, and report what was found and fixed.
//
// The operation is atomic from the caller's viewpoint: any hard failure after
// partial fixes aborts the whole run with an error and no output bytes.
func (e *Engine) Repair(data []byte, premium bool) (*Result, error) {
	ctx, strategy, err := loadWithStrategies(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSeverelyCorrupted, err)
	}

	r := &run{}
	if strategy != LoadStandard {
		r.logf("Document loaded via %s strategy", strategy)
	}

	totalPages := ctx.PageCount
	if totalPages == 0 {
		return nil, fmt.Errorf("%w (issuesFound=%d, issuesFixed=%d)", ErrNoValidPages, r.issuesFound, r.issuesFixed)
	}

	badPages := e.validatePages(ctx, r)
	e.sanitizeInfo(ctx, r)

	if len(badPages) == totalPages && !premium {
		return nil, fmt.Errorf("%w (issuesFound=%d, issuesFixed=%d)", ErrNoValidPages, r.issuesFound, r.issuesFixed)
	}

	// Broken page nodes cannot be serialized; swap each one for a blank
	// placeholder page before writing. The premium pass stamps them later.
	if len(badPages) > 0 {
		if err := e.replaceBrokenPages(ctx, badPages, r); err != nil {
			return nil, err
		}
	}

	// Serialize the context with the in-place fixes applied.
	var buf bytes.Buffer
	if err := api.WriteContext(ctx, &buf); err != nil {
		return nil, fmt.Errorf("failed to write repaired document: %w", err)
	}
	repaired := buf.Bytes()

	// The premium tier continues with file-based recovery passes.
	if premium {
		repaired, err = e.premiumPasses(repaired, badPages, strategy, r)
		if err != nil {
			return nil, err
		}
	}

	pct := 0.0
	if len(data) > 0 {
		pct = float64(len(repaired)-len(data)) / float64(len(data)) * 100
	}

	return &Result{
		Bytes: repaired,
		Stats: models.RepairStats{
			IssuesFound:       r.issuesFound,
			IssuesFixed:       r.issuesFixed,
			PagesRepaired:     r.pagesRepaired,
			TotalPages:        totalPages,
			LoadMethod:        strategy.String(),
			SizeChangePercent: fmt.Sprintf("%.1f", pct),
			RepairLog:         r.log,
		},
	}, nil
}

// loadWithStrategies tries each load strategy in order; first success wins.
func loadWithStrategies(data []byte) (*model.Context, LoadStrategy, error) {
	strategies := []struct {
		strategy LoadStrategy
		load     func([]byte) (*model.Context, error)
	}{
		{LoadStandard, loadStandard},
		{LoadRecoveryIgnoreEncryption, loadRecovery},
		{LoadCarefulSlowParse, loadCareful},
	}

	var lastErr error
	for _, s := range strategies {
		ctx, err := s.load(data)
		if err == nil {
			return ctx, s.strategy, nil
		}
		lastErr = err
	}
	return nil, LoadFailed, lastErr
}

// loadStandard is a direct parse with strict validation.
func loadStandard(data []byte) (*model.Context, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationStrict
	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, err
	}
	if err := api.ValidateContext(ctx); err != nil {
		return nil, err
	}
	return ctx, nil
}

// loadRecovery tolerates encryption-related and other structural issues by
// validating in relaxed mode.
func loadRecovery(data []byte) (*model.Context, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, err
	}
	if err := api.ValidateContext(ctx); err != nil {
		return nil, err
	}
	return ctx, nil
}

// loadCareful is the maximally tolerant last resort: a relaxed parse with the
// whole-document validation pass skipped entirely.
func loadCareful(data []byte) (*model.Context, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, err
	}
	// Validation is what normally fills in the page count; a parse-only load
	// has to derive it from the page tree itself.
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, err
	}
	return ctx, nil
}

// validatePages inspects every page, clamping insane dimensions and
// normalizing rotation in place. Pages whose inspection itself fails are
// returned (1-based, ascending) for the premium recreation pass.
func (e *Engine) validatePages(ctx *model.Context, r *run) []int {
	var badPages []int

	for page := 1; page <= ctx.PageCount; page++ {
		pageDict, _, attrs, err := ctx.PageDict(page, false)
		if err != nil || pageDict == nil {
			r.issuesFound++
			r.logf("Page %d: structural damage, inspection failed", page)
			badPages = append(badPages, page)
			continue
		}

		// Dimension sanity: 0 < dim <= 14400 user-space units.
		w, h := pageSize(attrs)
		if w <= 0 || h <= 0 || w > maxPageDimension || h > maxPageDimension {
			r.issuesFound++
			pageDict.Update("MediaBox", types.RectForDim(defaultWidth, defaultHeight).Array())
			r.issuesFixed++
			r.logf("Page %d: invalid dimensions %.0fx%.0f, reset to letter size", page, w, h)
		}

		// Rotation must be a multiple of 90.
		if attrs != nil && attrs.Rotate%90 != 0 {
			r.issuesFound++
			norm := normalizeRotation(attrs.Rotate)
			pageDict.Update("Rotate", types.Integer(norm))
			r.issuesFixed++
			r.logf("Page %d: non-standard rotation %d°, normalized to %d°", page, attrs.Rotate, norm)
		}
	}

	return badPages
}

// pageSize extracts effective page dimensions from inherited attributes.
// A missing MediaBox reports as 0x0 and gets clamped by the caller.
func pageSize(attrs *model.InheritedPageAttrs) (float64, float64) {
	if attrs == nil || attrs.MediaBox == nil {
		return 0, 0
	}
	return attrs.MediaBox.Width(), attrs.MediaBox.Height()
}

// normalizeRotation snaps an angle to the nearest multiple of 90 in [0, 360).
func normalizeRotation(deg int) int {
	n := int(math.Round(float64(deg)/90.0)) * 90
	n %= 360
	if n < 0 {
		n += 360
	}
	return n
}

// sanitizeInfo strips embedded NUL characters from the document info
// dictionary's Title and Author entries.
func (e *Engine) sanitizeInfo(ctx *model.Context, r *run) {
	if ctx.Info == nil {
		return
	}
	d, err := ctx.DereferenceDict(*ctx.Info)
	if err != nil || d == nil {
		return
	}
	for _, key := range []string{"Title", "Author"} {
		obj, found := d.Find(key)
		if !found {
			continue
		}
		sl, ok := obj.(types.StringLiteral)
		if !ok {
			continue
		}
		raw := string(sl)
		if !strings.ContainsRune(raw, 0) {
			continue
		}
		r.issuesFound++
		d.Update(key, types.StringLiteral(strings.ReplaceAll(raw, "\x00", "")))
		r.issuesFixed++
		r.logf("Metadata: removed embedded null characters from %s", strings.ToLower(key))
	}
}

// premiumPasses runs the recovery steps reserved for premium: stamping the
// recreated placeholder pages, consolidating fonts/resources, and appending a
// repair report page when anything was found.
func (e *Engine) premiumPasses(data []byte, badPages []int, strategy LoadStrategy, r *run) ([]byte, error) {
	scratch := filepath.Join(e.workDir, "repair_"+uuid.New().String())
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	cur := filepath.Join(scratch, "work.pdf")
	if err := os.WriteFile(cur, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to stage working file: %w", err)
	}
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	if len(badPages) > 0 {
		if err := e.stampRecreatedPages(cur, badPages, conf, r); err != nil {
			return nil, err
		}
	}

	// Consolidate fonts and resources so downstream viewers don't trip over
	// dangling references the damaged original left behind.
	optimized := filepath.Join(scratch, "optimized.pdf")
	if err := api.OptimizeFile(cur, optimized, conf); err != nil {
		return nil, fmt.Errorf("font/resource consolidation failed: %w", err)
	}
	cur = optimized
	r.logf("Consolidated fonts and resources (premium)")

	if r.issuesFound > 0 || r.pagesRepaired > 0 {
		if err := e.appendReportPage(cur, strategy, conf, r); err != nil {
			return nil, err
		}
	}

	out, err := os.ReadFile(cur)
	if err != nil {
		return nil, fmt.Errorf("failed to read repaired document: %w", err)
	}
	return out, nil
}

// replaceBrokenPages swaps each unreadable page node for a blank letter-sized
// page dict, directly in the cross-reference table, so the document can be
// serialized with a placeholder at every original position. Collect first
// (validatePages), then apply: the replacements are in place, so no page
// numbers shift.
func (e *Engine) replaceBrokenPages(ctx *model.Context, badPages []int, r *run) error {
	rootDict, err := ctx.Catalog()
	if err != nil {
		return fmt.Errorf("page recreation failed (catalog): %w", err)
	}
	obj, found := rootDict.Find("Pages")
	if !found {
		return errors.New("page recreation failed: catalog has no page tree")
	}
	rootRef, ok := obj.(types.IndirectRef)
	if !ok {
		return errors.New("page recreation failed: page tree root is not an indirect reference")
	}

	bad := make(map[int]bool, len(badPages))
	for _, p := range badPages {
		bad[p] = true
	}

	// Walk the page tree in document order, numbering leaves as pages. A kid
	// that cannot be read as a dict is exactly the kind of leaf validatePages
	// flagged.
	pageNr := 0
	var walk func(ref, parent types.IndirectRef) error
	walk = func(ref, parent types.IndirectRef) error {
		d, derr := ctx.DereferenceDict(ref)
		if derr != nil || d == nil {
			pageNr++
			if bad[pageNr] {
				blankPage(ctx, ref, parent)
			}
			return nil
		}
		if typ := d.Type(); typ != nil && *typ == "Pages" {
			kids, kerr := ctx.DereferenceArray(d["Kids"])
			if kerr != nil {
				return fmt.Errorf("page recreation failed (kids): %w", kerr)
			}
			for _, kid := range kids {
				kidRef, isRef := kid.(types.IndirectRef)
				if !isRef {
					pageNr++
					continue
				}
				if err := walk(kidRef, ref); err != nil {
					return err
				}
			}
			return nil
		}
		pageNr++
		if bad[pageNr] {
			blankPage(ctx, ref, parent)
		}
		return nil
	}
	if err := walk(rootRef, rootRef); err != nil {
		return err
	}

	for _, p := range badPages {
		r.issuesFixed++
		r.pagesRepaired++
		r.logf("Page %d: recreated as blank placeholder", p)
	}
	return nil
}

// blankPage overwrites the object behind ref with a minimal empty page dict.
func blankPage(ctx *model.Context, ref, parent types.IndirectRef) {
	d := types.Dict(map[string]types.Object{
		"Type":      types.Name("Page"),
		"Parent":    parent,
		"MediaBox":  types.RectForDim(defaultWidth, defaultHeight).Array(),
		"Resources": types.NewDict(),
	})
	nr := ref.ObjectNumber.Value()
	if entry, ok := ctx.Table[nr]; ok && entry != nil {
		entry.Object = d
		return
	}
	ctx.Table[nr] = model.NewXRefTableEntryGen0(d)
}

// stampRecreatedPages marks each replaced page with a visible notice so the
// reader knows the original content was lost.
func (e *Engine) stampRecreatedPages(path string, badPages []int, conf *model.Configuration, r *run) error {
	wm, err := pdfcpu.ParseTextWatermarkDetails(
		"Recovered page: original content was unreadable",
		"font:Helvetica, points:14, scale:0.9 abs, pos:c, rot:0, op:1", true, types.POINTS)
	if err != nil {
		return fmt.Errorf("page recreation failed (stamp parse): %w", err)
	}
	stampSel := make([]string, len(badPages))
	for i, p := range badPages {
		stampSel[i] = strconv.Itoa(p)
	}
	if err := api.AddWatermarksFile(path, "", stampSel, wm, conf); err != nil {
		return fmt.Errorf("page recreation failed (stamp): %w", err)
	}
	r.logf("Stamped %d recreated page(s) (premium)", len(badPages))
	return nil
}

// appendReportPage adds a trailing summary page with the repair audit trail.
func (e *Engine) appendReportPage(path string, strategy LoadStrategy, conf *model.Configuration, r *run) error {
	pageCount, err := api.PageCountFile(path)
	if err != nil {
		return fmt.Errorf("report page failed (page count): %w", err)
	}

	// Blank page appended after the current last page.
	if err := api.InsertPagesFile(path, "", []string{strconv.Itoa(pageCount)}, false, conf); err != nil {
		return fmt.Errorf("report page failed (insert): %w", err)
	}

	lines := []string{
		"PDF Repair Report",
		"",
		"Repaired: " + e.now().Format(time.RFC1123),
		"Load strategy: " + strategy.String(),
		fmt.Sprintf("Issues found: %d", r.issuesFound),
		fmt.Sprintf("Issues fixed: %d", r.issuesFixed),
		fmt.Sprintf("Pages repaired: %d", r.pagesRepaired),
		"",
	}
	n := len(r.log)
	if n > maxReportLogLines {
		n = maxReportLogLines
	}
	lines = append(lines, r.log[:n]...)

	wm, err := pdfcpu.ParseTextWatermarkDetails(
		strings.Join(lines, "\n"),
		"font:Helvetica, points:9, scale:1 abs, pos:tl, rot:0, op:1", true, types.POINTS)
	if err != nil {
		return fmt.Errorf("report page failed (text parse): %w", err)
	}
	wm.Dx = 36
	wm.Dy = -36

	if err := api.AddWatermarksFile(path, "", []string{strconv.Itoa(pageCount + 1)}, wm, conf); err != nil {
		return fmt.Errorf("report page failed (stamp): %w", err)
	}
	r.logf("Appended repair report page (premium)")
	return nil
}
