// convert.go renders extracted PDF text into the supported output formats.
//
// Free tier: txt, md, html, json. Premium tier: pptx-outline (a slide-deck
// outline built from the per-page text) and images-report (an inventory of
// the embedded images, extracted via pdfcpu).
package pdfops

import (
	"encoding/json"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ConvertResult is the rendered output plus the file extension it should be
// served under.
type ConvertResult struct {
	Data []byte
	Ext  string
}

// Convert renders the document into the requested format. The caller has
// already checked the format against the entitlement rules.
func (s *Service) Convert(input []byte, originalName, format string) (*ConvertResult, error) {
	ex, err := ExtractText(input)
	if err != nil {
		return nil, fmt.Errorf("convert failed: %w", err)
	}

	switch format {
	case "txt":
		return &ConvertResult{Data: []byte(ex.Text()), Ext: ".txt"}, nil
	case "md":
		return &ConvertResult{Data: renderMarkdown(ex, originalName), Ext: ".md"}, nil
	case "html":
		return &ConvertResult{Data: renderHTML(ex, originalName), Ext: ".html"}, nil
	case "json":
		data, err := renderJSON(ex, originalName)
		if err != nil {
			return nil, fmt.Errorf("convert failed: %w", err)
		}
		return &ConvertResult{Data: data, Ext: ".json"}, nil
	case "pptx-outline":
		return &ConvertResult{Data: renderOutline(ex, originalName), Ext: ".txt"}, nil
	case "images-report":
		data, err := s.renderImagesReport(input, originalName, ex)
		if err != nil {
			return nil, fmt.Errorf("convert failed: %w", err)
		}
		return &ConvertResult{Data: data, Ext: ".txt"}, nil
	default:
		return nil, fmt.Errorf("unsupported convert format %q", format)
	}
}

// renderMarkdown produces a Markdown document with a metadata header.
func renderMarkdown(ex *Extraction, originalName string) []byte {
	var sb strings.Builder
	sb.WriteString("# " + strings.TrimSuffix(originalName, filepath.Ext(originalName)) + "\n\n")
	sb.WriteString(fmt.Sprintf("> Pages: %d · Words: %d\n\n", ex.PageCount, ex.WordCount))
	for i, p := range ex.Pages {
		sb.WriteString(fmt.Sprintf("## Page %d\n\n", i+1))
		sb.WriteString(strings.TrimSpace(p))
		sb.WriteString("\n\n")
	}
	return []byte(sb.String())
}

// renderHTML produces a minimal standalone HTML document.
func renderHTML(ex *Extraction, originalName string) []byte {
	title := html.EscapeString(originalName)
	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	sb.WriteString("<title>" + title + "</title>\n</head>\n<body>\n")
	sb.WriteString("<h1>" + title + "</h1>\n")
	for i, p := range ex.Pages {
		sb.WriteString(fmt.Sprintf("<h2>Page %d</h2>\n", i+1))
		for _, para := range strings.Split(strings.TrimSpace(p), "\n") {
			if para = strings.TrimSpace(para); para != "" {
				sb.WriteString("<p>" + html.EscapeString(para) + "</p>\n")
			}
		}
	}
	sb.WriteString("</body>\n</html>\n")
	return []byte(sb.String())
}

// renderJSON produces the extraction as structured JSON.
func renderJSON(ex *Extraction, originalName string) ([]byte, error) {
	doc := struct {
		Filename  string   `json:"filename"`
		PageCount int      `json:"pageCount"`
		WordCount int      `json:"wordCount"`
		Pages     []string `json:"pages"`
	}{originalName, ex.PageCount, ex.WordCount, ex.Pages}
	return json.MarshalIndent(doc, "", "  ")
}

// renderOutline produces a presentation outline: one slide per page, with the
// page's first line promoted to the slide title.
func renderOutline(ex *Extraction, originalName string) []byte {
	var sb strings.Builder
	sb.WriteString("Presentation outline: " + originalName + "\n")
	sb.WriteString(strings.Repeat("=", 60) + "\n\n")
	for i, p := range ex.Pages {
		lines := nonEmptyLines(p)
		title := fmt.Sprintf("Slide %d", i+1)
		if len(lines) > 0 {
			title = fmt.Sprintf("Slide %d: %s", i+1, truncate(lines[0], 80))
			lines = lines[1:]
		}
		sb.WriteString(title + "\n")
		for _, l := range lines {
			sb.WriteString("  - " + truncate(l, 120) + "\n")
		}
		sb.WriteString("\n")
	}
	return []byte(sb.String())
}

// renderImagesReport extracts embedded images with pdfcpu and reports an
// inventory. The images themselves are not delivered, only the audit.
func (s *Service) renderImagesReport(input []byte, originalName string, ex *Extraction) ([]byte, error) {
	dir, cleanup, err := s.scratch()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	in := filepath.Join(dir, "in.pdf")
	if err := os.WriteFile(in, input, 0o644); err != nil {
		return nil, fmt.Errorf("failed to stage input: %w", err)
	}
	imgDir := filepath.Join(dir, "images")
	if err := os.MkdirAll(imgDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image dir: %w", err)
	}

	conf := model.NewDefaultConfiguration()
	// Extraction failures on odd encodings shouldn't kill the report; the
	// inventory just ends up empty.
	extractErr := api.ExtractImagesFile(in, imgDir, nil, conf)

	entries, err := os.ReadDir(imgDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list extracted images: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("Image extraction report: " + originalName + "\n")
	sb.WriteString(strings.Repeat("=", 60) + "\n\n")
	sb.WriteString(fmt.Sprintf("Pages: %d\nImages found: %d\n\n", ex.PageCount, len(names)))
	for _, name := range names {
		info, err := os.Stat(filepath.Join(imgDir, name))
		if err != nil {
			continue
		}
		sb.WriteString(fmt.Sprintf("  %s (%d bytes)\n", name, info.Size()))
	}
	if extractErr != nil {
		sb.WriteString("\nNote: some images could not be decoded: " + extractErr.Error() + "\n")
	}
	return []byte(sb.String()), nil
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
