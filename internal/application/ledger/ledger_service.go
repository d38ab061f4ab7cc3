package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/erp/lotledger/internal/domain/catalog"
	"github.com/erp/lotledger/internal/domain/ledger"
	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Config tunes how the ledger retries optimistic commits
type Config struct {
	// MaxRetries is how many times a commit is repeated after a version conflict
	MaxRetries int
	// RetryBackoff is multiplied by the attempt number between retries
	RetryBackoff time.Duration
}

// DefaultConfig returns the default ledger configuration
func DefaultConfig() Config {
	return Config{
		MaxRetries:   3,
		RetryBackoff: 10 * time.Millisecond,
	}
}

// errScopeChanged means a sku gained a stocked lot after its scope was
// resolved. It is retried like any version conflict.
var errScopeChanged = fmt.Errorf("lot scope changed while locking: %w", shared.ErrConcurrencyConflict)

// guardPrefix names the lock scope that serializes lot creation for a sku
// with the sku's removal from the catalog
const guardPrefix = "catalog:"

// SkuCatalog resolves the skus lots may be recorded against
type SkuCatalog interface {
	FindByCode(ctx context.Context, code string) (*catalog.Sku, error)
}

// PlanFunc computes the events of an operation from the locked lots.
// It runs inside the commit and may be called again on retry.
type PlanFunc func(ctx context.Context, view *View) ([]ledger.NewEvent, error)

// CommitRequest describes one all-or-nothing ledger operation
type CommitRequest struct {
	// OperationKey is the idempotency key of the operation; every event key
	// must equal it or extend it with ledger.KeySeparator. Replays match the
	// whole key.
	OperationKey string
	// Lots are locked whether or not they exist yet
	Lots []ledger.LotKey
	// Skus lock every lot of the sku that holds stock once the locks are held
	Skus []string
	Plan PlanFunc
}

// CommitResult is the outcome of a commit or of a recognised replay
type CommitResult struct {
	Events    []ledger.LedgerEvent
	Lots      []ledger.LotState
	Duplicate bool
}

// Lot returns the resulting state of key, if the operation touched it
func (r *CommitResult) Lot(key ledger.LotKey) (ledger.LotState, bool) {
	for _, s := range r.Lots {
		if s.Key() == key {
			return s, true
		}
	}
	return ledger.LotState{}, false
}

// AppendResult is the outcome of a single-event append
type AppendResult struct {
	Event     ledger.LedgerEvent `json:"event"`
	Lot       ledger.LotState    `json:"lot"`
	Duplicate bool               `json:"duplicate"`
}

// SkuTotals aggregates the lots of one sku
type SkuTotals struct {
	SkuCode    string          `json:"sku"`
	Quantity   decimal.Decimal `json:"quantity"`
	Value      decimal.Decimal `json:"value"`
	LotCount   int             `json:"lot_count"`
	ActiveLots int             `json:"active_lots"`
}

// Ledger is the single writer of lot state. Every mutation goes through
// Commit, which locks the lots involved, plans against their committed
// state, checks every event and only then writes events and caches
// together.
type Ledger struct {
	store   ledger.Store
	locks   shared.LockManager
	cfg     Config
	metrics Metrics
	catalog SkuCatalog
	logger  *zap.Logger
	now     func() time.Time
}

// Option configures a Ledger
type Option func(*Ledger)

// WithConfig overrides the retry configuration
func WithConfig(cfg Config) Option {
	return func(l *Ledger) {
		if cfg.MaxRetries >= 0 {
			l.cfg.MaxRetries = cfg.MaxRetries
		}
		if cfg.RetryBackoff > 0 {
			l.cfg.RetryBackoff = cfg.RetryBackoff
		}
	}
}

// WithMetrics sets the metrics sink
func WithMetrics(m Metrics) Option {
	return func(l *Ledger) {
		if m != nil {
			l.metrics = m
		}
	}
}

// WithCatalog rejects operations on skus the catalog does not know
func WithCatalog(c SkuCatalog) Option {
	return func(l *Ledger) {
		if c != nil {
			l.catalog = c
		}
	}
}

// WithClock sets the time source used for recorded timestamps
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// NewLedger creates a Ledger over store, serialized by locks
func NewLedger(store ledger.Store, locks shared.LockManager, logger *zap.Logger, opts ...Option) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Ledger{
		store:   store,
		locks:   locks,
		cfg:     DefaultConfig(),
		metrics: noopMetrics{},
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// AppendEvent commits one event. Replaying a recorded idempotency key is not
// an error: the current lot state is returned with Duplicate set.
func (l *Ledger) AppendEvent(ctx context.Context, ev ledger.NewEvent) (*AppendResult, error) {
	ev.Lot = ledger.NewLotKey(ev.Lot.SkuCode, ev.Lot.LotNumber)
	if err := ev.Validate(); err != nil {
		return nil, err
	}

	res, err := l.Commit(ctx, CommitRequest{
		OperationKey: ev.IdempotencyKey,
		Lots:         []ledger.LotKey{ev.Lot},
		Plan: func(context.Context, *View) ([]ledger.NewEvent, error) {
			return []ledger.NewEvent{ev}, nil
		},
	})
	if err != nil {
		return nil, err
	}

	out := &AppendResult{Duplicate: res.Duplicate}
	if len(res.Events) > 0 {
		out.Event = res.Events[0]
		for _, e := range res.Events {
			if e.IdempotencyKey == ev.IdempotencyKey {
				out.Event = e
				break
			}
		}
	}
	if state, ok := res.Lot(out.Event.Key()); ok {
		out.Lot = state
	}
	return out, nil
}

// Commit runs an all-or-nothing operation. Version conflicts are retried up
// to MaxRetries times before CONTENTION is returned.
func (l *Ledger) Commit(ctx context.Context, req CommitRequest) (*CommitResult, error) {
	ctx, span := tracer.Start(ctx, "ledger.Commit",
		trace.WithAttributes(attribute.String("ledger.operation_key", req.OperationKey)))
	defer span.End()

	res, err := l.commit(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, shared.ErrorCode(err))
		return nil, err
	}
	span.SetAttributes(
		attribute.Bool("ledger.duplicate", res.Duplicate),
		attribute.Int("ledger.events", len(res.Events)),
	)
	return res, nil
}

func (l *Ledger) commit(ctx context.Context, req CommitRequest) (*CommitResult, error) {
	if req.OperationKey == "" {
		return nil, shared.NewValidationError("operation key is required")
	}
	if req.Plan == nil {
		return nil, shared.NewValidationError("operation plan is required")
	}

	dup, err := l.committed(ctx, l.store, req.OperationKey)
	if err != nil {
		return nil, err
	}
	if dup != nil {
		l.recordDuplicate(ctx, req.OperationKey)
		return dup, nil
	}
	if err := l.requireSkus(ctx, requestSkus(req)); err != nil {
		l.metrics.CommitRejected(ctx, shared.ErrorCode(err))
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= l.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			l.metrics.CommitRetried(ctx)
			l.logger.Warn("retrying ledger commit after version conflict",
				zap.String("operation_key", req.OperationKey),
				zap.Int("attempt", attempt),
				zap.Error(lastErr),
			)
			if err := sleepContext(ctx, l.cfg.RetryBackoff*time.Duration(attempt)); err != nil {
				return nil, err
			}
		}

		result, err := l.attempt(ctx, req)
		if err == nil {
			if result.Duplicate {
				l.recordDuplicate(ctx, req.OperationKey)
			} else {
				l.recordCommit(ctx, req.OperationKey, result)
			}
			return result, nil
		}
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			lastErr = err
			continue
		}

		l.metrics.CommitRejected(ctx, shared.ErrorCode(err))
		l.logger.Debug("ledger commit rejected",
			zap.String("operation_key", req.OperationKey),
			zap.Error(err),
		)
		return nil, err
	}

	contention := shared.NewContentionError(req.OperationKey, lastErr)
	l.metrics.CommitRejected(ctx, contention.Code)
	l.logger.Error("ledger commit gave up after retries",
		zap.String("operation_key", req.OperationKey),
		zap.Int("max_retries", l.cfg.MaxRetries),
		zap.Error(lastErr),
	)
	return nil, contention
}

func (l *Ledger) attempt(ctx context.Context, req CommitRequest) (*CommitResult, error) {
	sc, err := l.scope(ctx, req)
	if err != nil {
		return nil, err
	}

	release, err := l.locks.AcquireAll(ctx, sc.names())
	if err != nil {
		return nil, err
	}
	defer release()

	// a guarded sku may have been removed while we waited
	if err := l.requireSkus(ctx, sc.guards); err != nil {
		return nil, err
	}

	var result *CommitResult
	err = l.store.Execute(ctx, func(tx ledger.Tx) error {
		dup, err := l.committed(ctx, tx, req.OperationKey)
		if err != nil {
			return err
		}
		if dup != nil {
			result = dup
			return nil
		}

		view, err := loadView(ctx, tx, sc)
		if err != nil {
			return err
		}
		if err := checkScope(ctx, tx, req.Skus, view); err != nil {
			return err
		}
		planned, err := req.Plan(ctx, view)
		if err != nil {
			return err
		}

		staged, err := l.stage(req.OperationKey, view, planned)
		if err != nil {
			return err
		}
		if err := staged.write(ctx, tx); err != nil {
			return err
		}
		result = staged.result()
		return nil
	})

	if errors.Is(err, shared.ErrDuplicateEvent) {
		// Another writer recorded the same key between our check and insert
		dup, derr := l.committed(ctx, l.store, req.OperationKey)
		if derr != nil {
			return nil, derr
		}
		if dup != nil {
			return dup, nil
		}
		return nil, shared.NewDomainError(shared.CodeAlreadyExists,
			fmt.Sprintf("an event key of operation %s is recorded by another operation", req.OperationKey)).
			WithDetail("operation_key", req.OperationKey)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// lockScope is the set of lots and sku guards one attempt holds
type lockScope struct {
	lots   []ledger.LotKey
	guards []string
}

func (sc lockScope) names() []string {
	names := make([]string, 0, len(sc.lots)+len(sc.guards))
	names = append(names, scopeNames(sc.lots)...)
	for _, sku := range sc.guards {
		names = append(names, guardName(sku))
	}
	return names
}

func guardName(sku string) string {
	return guardPrefix + sku
}

// scope resolves the sorted, de-duplicated set of lot keys to lock. Skus
// that may gain a lot are guarded when a catalog is configured.
func (l *Ledger) scope(ctx context.Context, req CommitRequest) (lockScope, error) {
	set := make(map[ledger.LotKey]struct{}, len(req.Lots))
	guards := make(map[string]struct{})
	for _, k := range req.Lots {
		k = ledger.NewLotKey(k.SkuCode, k.LotNumber)
		if k.IsZero() {
			return lockScope{}, shared.NewValidationError("lot key must name a sku and lot")
		}
		set[k] = struct{}{}
		if l.catalog == nil {
			continue
		}
		if _, err := l.store.FindLot(ctx, k); err != nil {
			if !errors.Is(err, shared.ErrNotFound) {
				return lockScope{}, fmt.Errorf("loading lot %s: %w", k, err)
			}
			guards[k.SkuCode] = struct{}{}
		}
	}
	for _, sku := range req.Skus {
		lots, err := l.store.ListLots(ctx, sku)
		if err != nil {
			return lockScope{}, fmt.Errorf("listing lots of %s: %w", sku, err)
		}
		for _, lot := range lots {
			if lot.Quantity.IsPositive() {
				set[lot.Key()] = struct{}{}
			}
		}
	}

	sc := lockScope{lots: make([]ledger.LotKey, 0, len(set)), guards: make([]string, 0, len(guards))}
	for k := range set {
		sc.lots = append(sc.lots, k)
	}
	for sku := range guards {
		sc.guards = append(sc.guards, sku)
	}
	sort.Slice(sc.lots, func(i, j int) bool { return sc.lots[i].String() < sc.lots[j].String() })
	sort.Strings(sc.guards)
	return sc, nil
}

func scopeNames(keys []ledger.LotKey) []string {
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
	}
	return names
}

func loadView(ctx context.Context, tx ledger.Tx, sc lockScope) (*View, error) {
	view := newView()
	for _, sku := range sc.guards {
		view.guarded[sku] = true
	}
	for _, key := range sc.lots {
		view.locked[key] = true
		lot, err := tx.LockLot(ctx, key)
		if errors.Is(err, shared.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("locking lot %s: %w", key, err)
		}
		view.lots[key] = lot
	}
	return view, nil
}

// checkScope fails with errScopeChanged when one of skus has a stocked lot
// that is not locked, so the attempt is retried with a fresh scope
func checkScope(ctx context.Context, tx ledger.Tx, skus []string, view *View) error {
	for _, sku := range skus {
		lots, err := tx.ListLots(ctx, sku)
		if err != nil {
			return fmt.Errorf("listing lots of %s: %w", sku, err)
		}
		for _, lot := range lots {
			if lot.Quantity.IsPositive() && !view.Locked(lot.Key()) {
				return errScopeChanged
			}
		}
	}
	return nil
}

// requestSkus returns the distinct skus a request names
func requestSkus(req CommitRequest) []string {
	seen := make(map[string]bool)
	skus := make([]string, 0, len(req.Skus)+len(req.Lots))
	add := func(sku string) {
		if sku != "" && !seen[sku] {
			seen[sku] = true
			skus = append(skus, sku)
		}
	}
	for _, k := range req.Lots {
		add(ledger.NewLotKey(k.SkuCode, k.LotNumber).SkuCode)
	}
	for _, sku := range req.Skus {
		add(sku)
	}
	return skus
}

// requireSkus returns NOT_FOUND for the first sku the catalog does not know
func (l *Ledger) requireSkus(ctx context.Context, skus []string) error {
	if l.catalog == nil {
		return nil
	}
	for _, sku := range skus {
		if _, err := l.catalog.FindByCode(ctx, sku); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewNotFoundError("sku", sku)
			}
			return fmt.Errorf("loading sku %s: %w", sku, err)
		}
	}
	return nil
}

// GuardSku runs fn while no commit can create a lot of sku
func (l *Ledger) GuardSku(ctx context.Context, sku string, fn func(ctx context.Context) error) error {
	release, err := l.locks.AcquireAll(ctx, []string{guardName(sku)})
	if err != nil {
		return err
	}
	defer release()
	return fn(ctx)
}

// committed returns the recorded result of an operation, or nil if it has not run
func (l *Ledger) committed(ctx context.Context, r ledger.Reader, operationKey string) (*CommitResult, error) {
	events, err := r.FindEventsByOperation(ctx, operationKey)
	if err != nil {
		return nil, fmt.Errorf("looking up operation %s: %w", operationKey, err)
	}
	if len(events) == 0 {
		return nil, nil
	}

	result := &CommitResult{Events: events, Duplicate: true}
	seen := make(map[ledger.LotKey]bool)
	for _, ev := range events {
		key := ev.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		lot, err := r.FindLot(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("loading lot %s: %w", key, err)
		}
		result.Lots = append(result.Lots, lot.State())
	}
	return result, nil
}

type stagedCommit struct {
	lots    map[ledger.LotKey]*ledger.Lot
	created map[ledger.LotKey]bool
	order   []ledger.LotKey
	events  []ledger.LedgerEvent
	now     time.Time
}

// stage applies every planned event to working copies of the locked lots.
// Nothing is written unless all of them apply.
func (l *Ledger) stage(operationKey string, view *View, planned []ledger.NewEvent) (*stagedCommit, error) {
	if len(planned) == 0 {
		return nil, shared.NewValidationError("operation %s produced no events", operationKey)
	}

	s := &stagedCommit{
		lots:    make(map[ledger.LotKey]*ledger.Lot),
		created: make(map[ledger.LotKey]bool),
		now:     l.now(),
	}
	keys := make(map[string]bool, len(planned))

	for _, ev := range planned {
		ev.Lot = ledger.NewLotKey(ev.Lot.SkuCode, ev.Lot.LotNumber)
		if err := ev.Validate(); err != nil {
			return nil, err
		}
		if !ledger.BelongsToOperation(ev.IdempotencyKey, operationKey) {
			return nil, shared.NewValidationError("event key %q is not part of operation %q", ev.IdempotencyKey, operationKey)
		}
		if keys[ev.IdempotencyKey] {
			return nil, shared.NewValidationError("event key %q appears twice in operation", ev.IdempotencyKey)
		}
		keys[ev.IdempotencyKey] = true
		if !view.Locked(ev.Lot) {
			return nil, shared.NewDomainError(shared.CodeInvalidState, fmt.Sprintf("lot %s is outside the locked scope", ev.Lot))
		}

		occurredAt := ev.OccurredAt
		if occurredAt.IsZero() {
			occurredAt = s.now
		}

		lot, ok := s.lots[ev.Lot]
		if !ok {
			if existing, found := view.lots[ev.Lot]; found {
				lot = existing.Clone()
			} else {
				if !ev.SourceType.CreatesLot() {
					return nil, shared.NewNotFoundError("lot", ev.Lot.String())
				}
				if l.catalog != nil && !view.guarded[ev.Lot.SkuCode] {
					// the lot existed when the scope was resolved
					return nil, errScopeChanged
				}
				created, err := ledger.NewLot(ev.Lot, occurredAt, ev.ExpiresAt)
				if err != nil {
					return nil, err
				}
				created.CreatedAt, created.UpdatedAt = s.now, s.now
				lot = created
				s.created[ev.Lot] = true
			}
			s.lots[ev.Lot] = lot
			s.order = append(s.order, ev.Lot)
		}

		cost, err := lot.Apply(ev.Delta, ev.UnitCost)
		if err != nil {
			return nil, err
		}

		s.events = append(s.events, ledger.LedgerEvent{
			ID:             uuid.New(),
			LotID:          lot.ID,
			Sequence:       lot.EventCount,
			SkuCode:        lot.SkuCode,
			LotNumber:      lot.LotNumber,
			Delta:          ev.Delta,
			UnitCost:       cost,
			QuantityAfter:  lot.Quantity,
			CostAfter:      lot.UnitCost,
			SourceType:     ev.SourceType,
			SourceID:       ev.SourceID,
			Actor:          ev.Actor,
			IdempotencyKey: ev.IdempotencyKey,
			OperationKey:   operationKey,
			OccurredAt:     occurredAt,
			RecordedAt:     s.now,
		})
	}
	return s, nil
}

func (s *stagedCommit) write(ctx context.Context, tx ledger.Tx) error {
	for _, key := range s.order {
		lot := s.lots[key]
		if s.created[key] {
			if err := tx.InsertLot(ctx, lot); err != nil {
				return err
			}
			continue
		}
		lot.UpdatedAt = s.now
		lot.IncrementVersion()
		if err := tx.SaveLot(ctx, lot); err != nil {
			return err
		}
	}
	return tx.AppendEvents(ctx, s.events)
}

func (s *stagedCommit) result() *CommitResult {
	states := make([]ledger.LotState, 0, len(s.order))
	for _, key := range s.order {
		states = append(states, s.lots[key].State())
	}
	return &CommitResult{Events: s.events, Lots: states}
}

func (l *Ledger) recordDuplicate(ctx context.Context, operationKey string) {
	l.metrics.DuplicateSuppressed(ctx)
	l.logger.Info("duplicate ledger operation suppressed",
		zap.String("operation_key", operationKey),
	)
}

func (l *Ledger) recordCommit(ctx context.Context, operationKey string, result *CommitResult) {
	counts := make(map[ledger.SourceType]int)
	for _, ev := range result.Events {
		counts[ev.SourceType]++
	}
	for st, n := range counts {
		l.metrics.EventsCommitted(ctx, st.String(), n)
	}
	l.logger.Debug("ledger operation committed",
		zap.String("operation_key", operationKey),
		zap.Int("events", len(result.Events)),
		zap.Int("lots", len(result.Lots)),
	)
}

// GetLotState returns the committed state of a lot
func (l *Ledger) GetLotState(ctx context.Context, sku, lotNumber string) (*ledger.LotState, error) {
	key := ledger.NewLotKey(sku, lotNumber)
	lot, err := l.store.FindLot(ctx, key)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewNotFoundError("lot", key.String())
		}
		return nil, err
	}
	state := lot.State()
	return &state, nil
}

// ListLots returns every lot of a sku, oldest received first
func (l *Ledger) ListLots(ctx context.Context, sku string) ([]ledger.LotState, error) {
	lots, err := l.store.ListLots(ctx, sku)
	if err != nil {
		return nil, err
	}
	states := make([]ledger.LotState, 0, len(lots))
	for i := range lots {
		states = append(states, lots[i].State())
	}
	SortStates(states)
	return states, nil
}

// Replay returns a lot's events in the order they were committed
func (l *Ledger) Replay(ctx context.Context, sku, lotNumber string) ([]ledger.LedgerEvent, error) {
	key := ledger.NewLotKey(sku, lotNumber)
	if _, err := l.GetLotState(ctx, key.SkuCode, key.LotNumber); err != nil {
		return nil, err
	}
	return l.store.ListEvents(ctx, key)
}

// Verify folds a lot's log and compares it with the cached state
func (l *Ledger) Verify(ctx context.Context, sku, lotNumber string) (*ledger.FoldReport, error) {
	key := ledger.NewLotKey(sku, lotNumber)
	lot, err := l.store.FindLot(ctx, key)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewNotFoundError("lot", key.String())
		}
		return nil, err
	}
	events, err := l.store.ListEvents(ctx, key)
	if err != nil {
		return nil, err
	}
	report, err := ledger.Verify(lot, events)
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// Reconcile recomputes every lot of a sku from its log under the lot locks
// and rewrites any cache that diverged.
func (l *Ledger) Reconcile(ctx context.Context, sku string) ([]ledger.FoldReport, error) {
	lots, err := l.store.ListLots(ctx, sku)
	if err != nil {
		return nil, err
	}
	keys := make([]ledger.LotKey, 0, len(lots))
	for _, lot := range lots {
		keys = append(keys, lot.Key())
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	release, err := l.locks.AcquireAll(ctx, scopeNames(keys))
	if err != nil {
		return nil, err
	}
	defer release()

	reports := make([]ledger.FoldReport, 0, len(keys))
	err = l.store.Execute(ctx, func(tx ledger.Tx) error {
		for _, key := range keys {
			lot, err := tx.LockLot(ctx, key)
			if err != nil {
				return fmt.Errorf("locking lot %s: %w", key, err)
			}
			events, err := tx.ListEvents(ctx, key)
			if err != nil {
				return err
			}
			report, err := ledger.Verify(lot, events)
			if err != nil {
				return err
			}
			if !report.Consistent {
				l.logger.Warn("lot cache diverged from its log",
					zap.String("lot", key.String()),
					zap.String("cached_quantity", lot.Quantity.String()),
					zap.String("folded_quantity", report.Folded.Quantity.String()),
				)
				report.Repair(lot)
				lot.UpdatedAt = l.now()
				lot.IncrementVersion()
				if err := tx.SaveLot(ctx, lot); err != nil {
					return err
				}
			}
			reports = append(reports, report)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reports, nil
}

// SkuTotals aggregates quantity and value across a sku's lots
func (l *Ledger) SkuTotals(ctx context.Context, sku string) (*SkuTotals, error) {
	states, err := l.ListLots(ctx, sku)
	if err != nil {
		return nil, err
	}
	totals := &SkuTotals{SkuCode: sku, Quantity: decimal.Zero, Value: decimal.Zero, LotCount: len(states)}
	for _, s := range states {
		totals.Quantity = totals.Quantity.Add(s.Quantity)
		totals.Value = totals.Value.Add(s.Value())
		if s.Quantity.IsPositive() {
			totals.ActiveLots++
		}
	}
	return totals, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
