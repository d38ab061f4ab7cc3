package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erp/lotledger/internal/domain/catalog"
	"github.com/erp/lotledger/internal/domain/ledger"
	"github.com/erp/lotledger/internal/domain/shared"
	"go.uber.org/zap"
)

// saveAttempts bounds the reload-and-retry loop on sku version conflicts
const saveAttempts = 3

// LotReader lists the lots of a sku. GuardSku runs fn while no lot of the
// sku can be created.
type LotReader interface {
	ListLots(ctx context.Context, sku string) ([]ledger.LotState, error)
	GuardSku(ctx context.Context, sku string, fn func(ctx context.Context) error) error
}

// Service manages SKUs, their variances and notes
type Service struct {
	skus   catalog.SkuRepository
	notes  catalog.NoteRepository
	lots   LotReader
	logger *zap.Logger
}

// NewService creates a new catalog service
func NewService(skus catalog.SkuRepository, notes catalog.NoteRepository, lots LotReader, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{skus: skus, notes: notes, lots: lots, logger: logger}
}

// RegisterSku creates a SKU, or returns the existing one with created=false
func (s *Service) RegisterSku(ctx context.Context, req RegisterSkuRequest) (*SkuResponse, bool, error) {
	sku, err := catalog.NewSku(req.Code, req.Name, req.UnitOfMeasure)
	if err != nil {
		return nil, false, err
	}

	existing, err := s.skus.FindByCode(ctx, sku.Code)
	if err == nil {
		return ToSkuResponse(existing), false, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, false, fmt.Errorf("loading sku %s: %w", sku.Code, err)
	}

	if err := s.skus.Create(ctx, sku); err != nil {
		if !errors.Is(err, shared.ErrAlreadyExists) {
			return nil, false, err
		}
		// lost a race with another registration of the same code
		existing, ferr := s.skus.FindByCode(ctx, sku.Code)
		if ferr != nil {
			return nil, false, ferr
		}
		return ToSkuResponse(existing), false, nil
	}

	s.logger.Info("sku registered", zap.String("sku", sku.Code))
	return ToSkuResponse(sku), true, nil
}

// GetSku returns a SKU by code
func (s *Service) GetSku(ctx context.Context, code string) (*SkuResponse, error) {
	sku, err := s.skus.FindByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewNotFoundError("sku", code)
		}
		return nil, err
	}
	return ToSkuResponse(sku), nil
}

// ListSkus returns every SKU ordered by code
func (s *Service) ListSkus(ctx context.Context) ([]SkuResponse, error) {
	skus, err := s.skus.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]SkuResponse, 0, len(skus))
	for i := range skus {
		out = append(out, *ToSkuResponse(&skus[i]))
	}
	return out, nil
}

// AddVariance appends a variance to a SKU. A variance with the same key,
// or the same name and channel, is returned with added=false. When no key
// is given one is derived from sku, name and channel.
func (s *Service) AddVariance(ctx context.Context, skuCode string, req AddVarianceRequest) (*VarianceResponse, bool, error) {
	key := strings.TrimSpace(req.IdempotencyKey)
	if key == "" {
		key = catalog.VarianceKey(skuCode, req.Name, req.Channel)
	}

	var lastErr error
	for attempt := 0; attempt < saveAttempts; attempt++ {
		sku, err := s.skus.FindByCode(ctx, strings.TrimSpace(skuCode))
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, false, shared.NewNotFoundError("sku", skuCode)
			}
			return nil, false, err
		}

		v, added, err := sku.AddVariance(req.Name, req.Channel, key)
		if err != nil {
			return nil, false, err
		}
		if !added {
			return toVarianceResponse(v), false, nil
		}

		err = s.skus.Save(ctx, sku)
		if err == nil {
			s.logger.Info("variance added",
				zap.String("sku", sku.Code),
				zap.String("variance", v.Name),
				zap.String("channel", v.Channel),
				zap.String("idempotency_key", key),
			)
			return toVarianceResponse(v), true, nil
		}
		if !errors.Is(err, shared.ErrConcurrencyConflict) {
			return nil, false, err
		}
		lastErr = err
		s.logger.Warn("sku changed while adding variance, reloading",
			zap.String("sku", sku.Code),
			zap.Int("attempt", attempt+1),
		)
	}
	return nil, false, shared.NewContentionError("sku "+skuCode, lastErr)
}

// AppendNote stores a note once per idempotency key. The key defaults to
// one derived from subject, text and creation time.
func (s *Service) AppendNote(ctx context.Context, req AppendNoteRequest) (*catalog.Note, bool, error) {
	key := strings.TrimSpace(req.IdempotencyKey)
	if key == "" {
		key = catalog.NoteKey(req.SubjectID, req.Text, req.CreatedAt)
	}
	createdAt := req.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	note, err := catalog.NewNote(req.SubjectID, req.Text, req.Author, createdAt, key)
	if err != nil {
		return nil, false, err
	}
	inserted, err := s.notes.Append(ctx, note)
	if err != nil {
		return nil, false, fmt.Errorf("appending note: %w", err)
	}
	if inserted {
		s.logger.Debug("note appended", zap.String("subject", note.SubjectID), zap.String("idempotency_key", key))
	}
	return note, inserted, nil
}

// ListNotes returns a subject's notes, oldest first
func (s *Service) ListNotes(ctx context.Context, subjectID string) ([]catalog.Note, error) {
	return s.notes.ListBySubject(ctx, strings.TrimSpace(subjectID))
}

// DeleteSku removes a SKU that no lot refers to. The check and the delete
// run under the sku's guard, so a concurrent receipt either lands first and
// blocks the delete or fails with NOT_FOUND.
func (s *Service) DeleteSku(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	return s.lots.GuardSku(ctx, code, func(ctx context.Context) error {
		lots, err := s.lots.ListLots(ctx, code)
		if err != nil {
			return fmt.Errorf("listing lots of %s: %w", code, err)
		}
		if len(lots) > 0 {
			return shared.NewDomainError(shared.CodeInvalidState,
				fmt.Sprintf("sku %s is referenced by %d lots", code, len(lots))).
				WithDetail("sku", code)
		}
		if err := s.skus.Delete(ctx, code); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewNotFoundError("sku", code)
			}
			return err
		}
		s.logger.Info("sku deleted", zap.String("sku", code))
		return nil
	})
}
