package bulk

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/erp/lotledger/internal/domain/shared"
)

// ImportSource represents where a batch came from
type ImportSource string

const (
	ImportSourceJSON ImportSource = "json"
	ImportSourceCSV  ImportSource = "csv"
	ImportSourceXLSX ImportSource = "xlsx"
)

// IsValid checks if the source is valid
func (s ImportSource) IsValid() bool {
	switch s {
	case ImportSourceJSON, ImportSourceCSV, ImportSourceXLSX:
		return true
	}
	return false
}

// ImportStatus represents the status of an import run
type ImportStatus string

const (
	ImportStatusPending    ImportStatus = "pending"
	ImportStatusProcessing ImportStatus = "processing"
	ImportStatusCompleted  ImportStatus = "completed"
	ImportStatusFailed     ImportStatus = "failed"
	ImportStatusCancelled  ImportStatus = "cancelled"
)

// IsValid checks if the status is valid
func (s ImportStatus) IsValid() bool {
	switch s {
	case ImportStatusPending, ImportStatusProcessing, ImportStatusCompleted,
		ImportStatusFailed, ImportStatusCancelled:
		return true
	}
	return false
}

// IsTerminal returns true if this is a terminal state
func (s ImportStatus) IsTerminal() bool {
	return s == ImportStatusCompleted || s == ImportStatusFailed || s == ImportStatusCancelled
}

// ImportErrorDetail represents a rejected row
type ImportErrorDetail struct {
	Row     int    `json:"row"`
	Kind    string `json:"kind,omitempty"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ImportRun records the outcome of one reconciled batch
type ImportRun struct {
	shared.BaseAggregateRoot
	BatchID         string              `gorm:"type:varchar(128);not null;index"`
	Source          ImportSource        `gorm:"type:varchar(10);not null"`
	FileName        string              `gorm:"type:varchar(255)"`
	TotalRows       int                 `gorm:"not null;default:0"`
	ProcessedRows   int                 `gorm:"not null;default:0"`
	DuplicateRows   int                 `gorm:"not null;default:0"`
	SkippedRows     int                 `gorm:"not null;default:0"`
	Status          ImportStatus        `gorm:"type:varchar(20);not null"`
	ErrorDetails    []ImportErrorDetail `gorm:"-"`
	ErrorDetailsRaw string              `gorm:"column:error_details;type:text"`
	StartedBy       string              `gorm:"type:varchar(128)"`
	StartedAt       *time.Time
	CompletedAt     *time.Time
}

// TableName returns the table name for GORM
func (ImportRun) TableName() string {
	return "import_runs"
}

// NewImportRun creates a pending import run
func NewImportRun(batchID string, source ImportSource, fileName, startedBy string) (*ImportRun, error) {
	if batchID == "" {
		return nil, shared.NewValidationError("batch id is required")
	}
	if !source.IsValid() {
		return nil, shared.NewValidationError("invalid import source: %s", source)
	}
	return &ImportRun{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		BatchID:           batchID,
		Source:            source,
		FileName:          fileName,
		Status:            ImportStatusPending,
		ErrorDetails:      make([]ImportErrorDetail, 0),
		StartedBy:         startedBy,
	}, nil
}

// StartProcessing marks the run as started
func (r *ImportRun) StartProcessing(totalRows int) error {
	if r.Status != ImportStatusPending {
		return shared.NewDomainError(shared.CodeInvalidState, fmt.Sprintf("Cannot start processing from state: %s", r.Status))
	}
	if totalRows < 0 {
		return shared.NewValidationError("total rows cannot be negative")
	}

	r.Status = ImportStatusProcessing
	r.TotalRows = totalRows
	now := time.Now().UTC()
	r.StartedAt = &now
	r.UpdatedAt = now
	r.IncrementVersion()
	return nil
}

// Complete records the final counts. A run where every row was rejected is failed.
func (r *ImportRun) Complete(processed, duplicates, skipped int, errors []ImportErrorDetail) error {
	if r.Status != ImportStatusProcessing {
		return shared.NewDomainError(shared.CodeInvalidState, fmt.Sprintf("Cannot complete from state: %s", r.Status))
	}

	status := ImportStatusCompleted
	if skipped > 0 && processed == 0 && duplicates == 0 {
		status = ImportStatusFailed
	}

	r.Status = status
	r.ProcessedRows = processed
	r.DuplicateRows = duplicates
	r.SkippedRows = skipped
	r.ErrorDetails = errors
	now := time.Now().UTC()
	r.CompletedAt = &now
	r.UpdatedAt = now
	r.IncrementVersion()
	return nil
}

// Cancel marks the run as cancelled, keeping the counts reached so far
func (r *ImportRun) Cancel(processed, duplicates, skipped int) error {
	if r.Status.IsTerminal() {
		return shared.NewDomainError(shared.CodeInvalidState, fmt.Sprintf("Cannot cancel from terminal state: %s", r.Status))
	}

	r.Status = ImportStatusCancelled
	r.ProcessedRows = processed
	r.DuplicateRows = duplicates
	r.SkippedRows = skipped
	now := time.Now().UTC()
	r.CompletedAt = &now
	r.UpdatedAt = now
	r.IncrementVersion()
	return nil
}

// ErrorDetailsJSON returns the error details as a JSON string
func (r *ImportRun) ErrorDetailsJSON() (string, error) {
	if len(r.ErrorDetails) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(r.ErrorDetails)
	if err != nil {
		return "", fmt.Errorf("failed to marshal error details: %w", err)
	}
	return string(data), nil
}

// SetErrorDetailsFromJSON parses error details from a JSON string
func (r *ImportRun) SetErrorDetailsFromJSON(jsonStr string) error {
	if jsonStr == "" || jsonStr == "[]" {
		r.ErrorDetails = make([]ImportErrorDetail, 0)
		return nil
	}
	var details []ImportErrorDetail
	if err := json.Unmarshal([]byte(jsonStr), &details); err != nil {
		return fmt.Errorf("failed to unmarshal error details: %w", err)
	}
	r.ErrorDetails = details
	return nil
}

// Duration returns how long the run took, or has taken so far
func (r *ImportRun) Duration() time.Duration {
	if r.StartedAt == nil {
		return 0
	}
	end := time.Now().UTC()
	if r.CompletedAt != nil {
		end = *r.CompletedAt
	}
	return end.Sub(*r.StartedAt)
}
