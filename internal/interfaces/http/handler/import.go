package handler

import (
	"context"
	"fmt"
	"strings"

	importapp "github.com/erp/lotledger/internal/application/import"
	"github.com/erp/lotledger/internal/domain/bulk"
	csvimport "github.com/erp/lotledger/internal/infrastructure/import"
	"github.com/erp/lotledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// Importer reconciles a batch of import rows against the ledger
type Importer interface {
	Run(ctx context.Context, batch importapp.Batch) (*importapp.Summary, error)
}

// ImportHandler accepts bulk import batches as JSON rows or a CSV/XLSX upload
type ImportHandler struct {
	BaseHandler
	importer Importer
	runs     bulk.ImportRunRepository
	maxRows  int
}

// NewImportHandler creates a new ImportHandler. maxRows bounds uploaded files.
func NewImportHandler(importer Importer, runs bulk.ImportRunRepository, maxRows int) *ImportHandler {
	return &ImportHandler{importer: importer, runs: runs, maxRows: maxRows}
}

// Import handles POST /imports. A multipart request must carry the file in
// the "file" field; anything else is read as a JSON batch.
func (h *ImportHandler) Import(c *gin.Context) {
	var (
		batch importapp.Batch
		ok    bool
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		batch, ok = h.batchFromUpload(c)
	} else {
		batch, ok = h.batchFromJSON(c)
	}
	if !ok {
		return
	}
	batch.StartedBy = actorOr(c, "")

	summary, err := h.importer.Run(c.Request.Context(), batch)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

func (h *ImportHandler) batchFromJSON(c *gin.Context) (importapp.Batch, bool) {
	var req dto.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return importapp.Batch{}, false
	}
	rows := req.Rows
	for i := range rows {
		if rows[i].Line == 0 {
			rows[i].Line = i + 1
		}
	}
	return importapp.Batch{ID: req.BatchID, Source: bulk.ImportSourceJSON, Rows: rows}, true
}

func (h *ImportHandler) batchFromUpload(c *gin.Context) (importapp.Batch, bool) {
	var form dto.ImportUploadForm
	if err := c.ShouldBind(&form); err != nil {
		h.BindError(c, err)
		return importapp.Batch{}, false
	}
	fh, err := c.FormFile("file")
	if err != nil {
		h.BadRequest(c, "file is required")
		return importapp.Batch{}, false
	}
	format, err := csvimport.DetectFormat(fh.Filename)
	if err != nil {
		h.BadRequest(c, fmt.Sprintf("%s: %v", fh.Filename, err))
		return importapp.Batch{}, false
	}

	f, err := fh.Open()
	if err != nil {
		h.HandleError(c, fmt.Errorf("opening upload: %w", err))
		return importapp.Batch{}, false
	}
	defer f.Close()

	rows, err := importapp.ReadRows(format, f, h.maxRows)
	if err != nil {
		h.BadRequest(c, fmt.Sprintf("%s: %v", fh.Filename, err))
		return importapp.Batch{}, false
	}

	source := bulk.ImportSourceCSV
	if format == csvimport.FormatXLSX {
		source = bulk.ImportSourceXLSX
	}
	return importapp.Batch{ID: form.BatchID, Source: source, FileName: fh.Filename, Rows: rows}, true
}

// ListRuns handles GET /imports/:batch_id/runs, newest first
func (h *ImportHandler) ListRuns(c *gin.Context) {
	runs, err := h.runs.FindByBatch(c.Request.Context(), c.Param("batch_id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, runs)
}
