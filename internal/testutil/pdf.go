// Package testutil builds tiny but structurally valid PDF files for tests.
//
// The builder assembles real PDF objects and computes the cross-reference
// offsets while writing, so the output parses under strict validation. It
// exists because tests need documents with controlled defects (odd rotation,
// insane page boxes, dirty metadata) that no fixture library produces.
package testutil

import (
	"bytes"
	"fmt"
	"strings"
)

// PDFSpec describes the document to build.
type PDFSpec struct {
	Pages  []PageSpec
	Title  string // Optional Info dict /Title (may contain NULs)
	Author string // Optional Info dict /Author
}

// PageSpec describes one page.
type PageSpec struct {
	Width  float64 // 0 means letter width (612)
	Height float64 // 0 means letter height (792)
	Rotate int     // Written verbatim, multiples of 90 not enforced
}

// MinimalPDF builds a one-page letter-sized document.
func MinimalPDF() []byte {
	return BuildPDF(PDFSpec{Pages: []PageSpec{{}}})
}

// writeHeader emits the version marker plus a comment pad. pdfcpu locates the
// trailer by scanning a fixed 512-byte tail window, so a file shorter than
// that is unreadable no matter how well-formed it is; the pad keeps even
// one-object documents above that floor. Offsets are unaffected because the
// builders record them while writing.
func writeHeader(buf *bytes.Buffer) {
	buf.WriteString("%PDF-1.4\n")
	buf.WriteString("%" + strings.Repeat("pad-", 160) + "\n")
}

// BrokenPagePDF builds a document whose single page object is garbage (an
// integer where a page dict belongs). The file is syntactically well-formed,
// so tolerant parsers load it, but every page inspection fails.
func BrokenPagePDF() []byte {
	var buf bytes.Buffer
	writeHeader(&buf)

	offsets := make(map[int]int)
	write := func(num int, body string) {
		offsets[num] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", num, body)
	}
	write(1, "<< /Type /Catalog /Pages 2 0 R >>")
	write(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	write(3, "42")

	xrefOffset := buf.Len()
	buf.WriteString("xref\n0 4\n")
	buf.WriteString("0000000000 65535 f \n")
	for num := 1; num <= 3; num++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[num])
	}
	buf.WriteString("trailer\n<< /Size 4 /Root 1 0 R >>\n")
	fmt.Fprintf(&buf, "startxref\n%d\n%%%%EOF\n", xrefOffset)
	return buf.Bytes()
}

// BuildPDF assembles the document described by spec.
func BuildPDF(spec PDFSpec) []byte {
	if len(spec.Pages) == 0 {
		spec.Pages = []PageSpec{{}}
	}

	type object struct {
		num  int
		body string
	}
	var objs []object

	// 1: catalog, 2: pages, 3..: page objects, then optional info.
	objs = append(objs, object{1, "<< /Type /Catalog /Pages 2 0 R >>"})

	kids := ""
	for i := range spec.Pages {
		if i > 0 {
			kids += " "
		}
		kids += fmt.Sprintf("%d 0 R", 3+i)
	}
	objs = append(objs, object{2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, len(spec.Pages))})

	for i, p := range spec.Pages {
		w, h := p.Width, p.Height
		if w == 0 {
			w = 612
		}
		if h == 0 {
			h = 792
		}
		body := fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %g %g] /Resources << >>", w, h)
		if p.Rotate != 0 {
			body += fmt.Sprintf(" /Rotate %d", p.Rotate)
		}
		body += " >>"
		objs = append(objs, object{3 + i, body})
	}

	infoNum := 0
	if spec.Title != "" || spec.Author != "" {
		infoNum = 3 + len(spec.Pages)
		body := "<<"
		if spec.Title != "" {
			body += " /Title (" + spec.Title + ")"
		}
		if spec.Author != "" {
			body += " /Author (" + spec.Author + ")"
		}
		body += " >>"
		objs = append(objs, object{infoNum, body})
	}

	var buf bytes.Buffer
	writeHeader(&buf)

	offsets := make(map[int]int)
	for _, o := range objs {
		offsets[o.num] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", o.num, o.body)
	}

	xrefOffset := buf.Len()
	size := len(objs) + 1
	fmt.Fprintf(&buf, "xref\n0 %d\n", size)
	buf.WriteString("0000000000 65535 f \n")
	for num := 1; num < size; num++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[num])
	}

	buf.WriteString("trailer\n")
	fmt.Fprintf(&buf, "<< /Size %d /Root 1 0 R", size)
	if infoNum != 0 {
		fmt.Fprintf(&buf, " /Info %d 0 R", infoNum)
	}
	buf.WriteString(" >>\n")
	fmt.Fprintf(&buf, "startxref\n%d\n%%%%EOF\n", xrefOffset)

	return buf.Bytes()
}
