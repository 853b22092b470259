// process.go handles the main tool-execution endpoint.
//
// POST /api/process-pdf handles a multipart form:
//
//	files[]   - one or more PDF uploads (merge needs at least two)
//	tool      - merge | split | compress | edit | repair | convert
//	convertTo - required for convert (txt, md, html, json, pptx-outline, images-report)
//	editText  - required for edit; editPages optionally selects pages ("1,3")
//
// Flow: resolve session → entitlement check → run the tool → save result →
// record usage. Usage is recorded only after the operation succeeds, so a
// failed run never consumes quota.
package handlers

import (
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pdfden/pdf-tools-api/internal/entitlement"
	"github.com/pdfden/pdf-tools-api/internal/models"
	"github.com/pdfden/pdf-tools-api/internal/services/pdfops"
)

// maxUploadSize bounds the whole multipart request body (100MB).
const maxUploadSize = 100 << 20

// ProcessPDF executes a tool against the uploaded file(s).
// POST /api/process-pdf
func (h *Handler) ProcessPDF(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	userID, session := h.resolveSession(c)
	now := time.Now()

	tool := models.Tool(strings.TrimSpace(c.PostForm("tool")))
	if tool == "" {
		fail(c, http.StatusBadRequest, "invalid_input", "No tool selected. Provide a 'tool' form field.")
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid_input", "Invalid multipart form: "+err.Error())
		return
	}
	uploads := form.File["files"]
	if len(uploads) == 0 {
		fail(c, http.StatusBadRequest, "invalid_input", "No files uploaded. Attach PDF file(s) under the 'files' field.")
		return
	}

	inputs, err := readUploads(uploads)
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}

	if tool == models.ToolEdit && strings.TrimSpace(c.PostForm("editText")) == "" {
		fail(c, http.StatusBadRequest, "invalid_input", "The edit tool needs a non-empty 'editText' form field.")
		return
	}

	convertTo := strings.TrimSpace(c.PostForm("convertTo"))
	if tool == models.ToolConvert {
		if convertTo == "" {
			fail(c, http.StatusBadRequest, "invalid_input", "The convert tool needs a 'convertTo' form field.")
			return
		}
		if _, known := entitlement.ConvertFormats[convertTo]; !known {
			fail(c, http.StatusBadRequest, "invalid_input", fmt.Sprintf("Unknown convert format %q.", convertTo))
			return
		}
	}

	// The entitlement gate. Pure check; the session is not touched here.
	if err := entitlement.Check(session, tool, convertTo, now); err != nil {
		h.rejectEntitlement(c, err)
		return
	}

	result, ext, repairStats, err := h.runTool(tool, inputs, uploads, convertTo, c, session.IsPremium(now))
	if err != nil {
		log.Printf("Processing failed (tool=%s, user=%s): %v", tool, userID, err)
		if errors.Is(err, pdfops.ErrNotEnoughFiles) {
			fail(c, http.StatusBadRequest, "invalid_input", err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, "processing_failed", "PDF processing failed: "+err.Error())
		return
	}

	name, err := h.Files.Save(string(tool), ext, result)
	if err != nil {
		log.Printf("Failed to save result (tool=%s): %v", tool, err)
		fail(c, http.StatusInternalServerError, "processing_failed", "Failed to save result file")
		return
	}

	// Success: only now does the operation consume quota.
	h.Stores.Sessions.RecordUsage(userID, tool)

	c.JSON(http.StatusOK, models.ProcessResponse{
		Success:     true,
		Tool:        tool,
		Filename:    name,
		DownloadURL: "/api/download/" + name,
		Size:        int64(len(result)),
		Remaining:   entitlement.RemainingAfter(session, tool, now),
		Repair:      repairStats,
	})
}

// runTool dispatches to the selected tool implementation.
func (h *Handler) runTool(tool models.Tool, inputs [][]byte, uploads []*multipart.FileHeader,
	convertTo string, c *gin.Context, premium bool) ([]byte, string, *models.RepairStats, error) {

	switch tool {
	case models.ToolMerge:
		out, err := h.PDF.Merge(inputs)
		return out, ".pdf", nil, err

	case models.ToolSplit:
		out, err := h.PDF.Split(inputs[0])
		return out, ".zip", nil, err

	case models.ToolCompress:
		out, err := h.PDF.Compress(inputs[0])
		return out, ".pdf", nil, err

	case models.ToolEdit:
		out, err := h.PDF.Edit(inputs[0], strings.TrimSpace(c.PostForm("editText")), splitPages(c.PostForm("editPages")))
		return out, ".pdf", nil, err

	case models.ToolRepair:
		res, err := h.Repair.Repair(inputs[0], premium)
		if err != nil {
			return nil, "", nil, err
		}
		return res.Bytes, ".pdf", &res.Stats, nil

	case models.ToolConvert:
		res, err := h.PDF.Convert(inputs[0], uploads[0].Filename, convertTo)
		if err != nil {
			return nil, "", nil, err
		}
		return res.Data, res.Ext, nil, nil

	default:
		// Unreachable: entitlement.Check already rejected unknown tools.
		return nil, "", nil, entitlement.ErrInvalidTool
	}
}

// rejectEntitlement maps evaluator errors onto the HTTP error taxonomy.
func (h *Handler) rejectEntitlement(c *gin.Context, err error) {
	var pr *entitlement.PremiumRequiredError
	var qe *entitlement.QuotaExhaustedError
	switch {
	case errors.Is(err, entitlement.ErrInvalidTool):
		fail(c, http.StatusBadRequest, "invalid_tool", "Unknown tool. Valid tools: merge, split, compress, edit, repair, convert.")
	case errors.As(err, &pr):
		fail(c, http.StatusForbidden, "premium_required", pr.Error())
	case errors.As(err, &qe):
		used, limit := qe.Used, qe.Limit
		c.JSON(http.StatusForbidden, models.ErrorResponse{
			Error:   "quota_exhausted",
			Message: qe.Error(),
			Code:    http.StatusForbidden,
			Used:    &used,
			Limit:   &limit,
		})
	default:
		fail(c, http.StatusForbidden, "forbidden", err.Error())
	}
}

// readUploads validates and buffers the uploaded files.
func readUploads(uploads []*multipart.FileHeader) ([][]byte, error) {
	inputs := make([][]byte, 0, len(uploads))
	for _, fh := range uploads {
		if ext := strings.ToLower(filepath.Ext(fh.Filename)); ext != ".pdf" {
			return nil, fmt.Errorf("unsupported file format %q: only .pdf files are accepted", ext)
		}
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open upload %s", fh.Filename)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read upload %s", fh.Filename)
		}
		if !pdfops.ValidatePDF(data) {
			return nil, fmt.Errorf("%s does not appear to be a valid PDF", fh.Filename)
		}
		inputs = append(inputs, data)
	}
	return inputs, nil
}

// splitPages turns "1,3,5" into a pdfcpu page selection; empty means all pages.
func splitPages(s string) []string {
	var pages []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			pages = append(pages, p)
		}
	}
	return pages
}
