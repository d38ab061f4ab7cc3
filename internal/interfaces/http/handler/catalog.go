package handler

import (
	"context"

	appcatalog "github.com/erp/lotledger/internal/application/catalog"
	"github.com/erp/lotledger/internal/domain/catalog"
	"github.com/gin-gonic/gin"
)

// Catalog manages SKUs, their variances and notes
type Catalog interface {
	RegisterSku(ctx context.Context, req appcatalog.RegisterSkuRequest) (*appcatalog.SkuResponse, bool, error)
	GetSku(ctx context.Context, code string) (*appcatalog.SkuResponse, error)
	ListSkus(ctx context.Context) ([]appcatalog.SkuResponse, error)
	DeleteSku(ctx context.Context, code string) error
	AddVariance(ctx context.Context, skuCode string, req appcatalog.AddVarianceRequest) (*appcatalog.VarianceResponse, bool, error)
	AppendNote(ctx context.Context, req appcatalog.AppendNoteRequest) (*catalog.Note, bool, error)
	ListNotes(ctx context.Context, subjectID string) ([]catalog.Note, error)
}

// CatalogHandler handles SKU and note endpoints
type CatalogHandler struct {
	BaseHandler
	catalog Catalog
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(c Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: c}
}

// RegisterSku handles POST /skus. Registering an existing code returns it unchanged.
func (h *CatalogHandler) RegisterSku(c *gin.Context) {
	var req appcatalog.RegisterSkuRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	sku, created, err := h.catalog.RegisterSku(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Recorded(c, !created, sku)
}

// GetSku handles GET /skus/:sku
func (h *CatalogHandler) GetSku(c *gin.Context) {
	sku, err := h.catalog.GetSku(c.Request.Context(), c.Param("sku"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sku)
}

// ListSkus handles GET /skus
func (h *CatalogHandler) ListSkus(c *gin.Context) {
	skus, err := h.catalog.ListSkus(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, skus)
}

// DeleteSku handles DELETE /skus/:sku
func (h *CatalogHandler) DeleteSku(c *gin.Context) {
	if err := h.catalog.DeleteSku(c.Request.Context(), c.Param("sku")); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// AddVariance handles POST /skus/:sku/variances
func (h *CatalogHandler) AddVariance(c *gin.Context) {
	var req appcatalog.AddVarianceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	variance, added, err := h.catalog.AddVariance(c.Request.Context(), c.Param("sku"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Recorded(c, !added, variance)
}

// AppendNote handles POST /notes
func (h *CatalogHandler) AppendNote(c *gin.Context) {
	var req appcatalog.AppendNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	req.Author = actorOr(c, req.Author)

	note, inserted, err := h.catalog.AppendNote(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Recorded(c, !inserted, note)
}

// ListNotes handles GET /notes/:subject
func (h *CatalogHandler) ListNotes(c *gin.Context) {
	notes, err := h.catalog.ListNotes(c.Request.Context(), c.Param("subject"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, notes)
}
