package dto

import (
	importapp "github.com/erp/lotledger/internal/application/import"
)

// ImportRequest is a JSON batch of import rows
type ImportRequest struct {
	BatchID string          `json:"batch_id" binding:"required,max=128"`
	Rows    []importapp.Row `json:"rows" binding:"required,min=1"`
}

// ImportUploadForm carries the fields of a multipart CSV or XLSX upload
type ImportUploadForm struct {
	BatchID string `form:"batch_id" binding:"required,max=128"`
}
