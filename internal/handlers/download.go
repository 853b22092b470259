// download.go streams previously produced result files.
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Download streams a result file produced by /api/process-pdf.
// GET /api/download/:filename
//
// Result files expire an hour after creation, so a 404 here usually means
// the artifact aged out, not that the request was wrong.
func (h *Handler) Download(c *gin.Context) {
	name := c.Param("filename")
	path, err := h.Files.Path(name)
	if err != nil {
		fail(c, http.StatusNotFound, "not_found", "Result file not found or expired. Re-run the operation.")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.File(path)
}
