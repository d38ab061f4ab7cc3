package ledger

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// FoldedState is a lot state recomputed purely from its events
type FoldedState struct {
	Quantity   decimal.Decimal `json:"quantity"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
	EventCount int64           `json:"event_count"`
}

// Fold replays events in sequence order over an empty lot. It fails if the
// history itself would ever take the lot below zero.
func Fold(events []LedgerEvent) (FoldedState, error) {
	ordered := make([]LedgerEvent, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Sequence < ordered[j].Sequence
	})

	scratch := &Lot{Quantity: decimal.Zero, UnitCost: decimal.Zero}
	for _, ev := range ordered {
		scratch.SkuCode, scratch.LotNumber = ev.SkuCode, ev.LotNumber
		if _, err := scratch.Apply(ev.Delta, ev.UnitCost); err != nil {
			return FoldedState{}, fmt.Errorf("folding event %d: %w", ev.Sequence, err)
		}
	}
	return FoldedState{
		Quantity:   scratch.Quantity,
		UnitCost:   scratch.UnitCost,
		EventCount: scratch.EventCount,
	}, nil
}

// FoldReport compares a lot's cached state with the fold of its log
type FoldReport struct {
	Lot        LotKey      `json:"lot"`
	Cached     LotState    `json:"cached"`
	Folded     FoldedState `json:"folded"`
	Consistent bool        `json:"consistent"`
	Repaired   bool        `json:"repaired"`
}

// Verify folds events and compares the result with the lot's cache
func Verify(lot *Lot, events []LedgerEvent) (FoldReport, error) {
	folded, err := Fold(events)
	if err != nil {
		return FoldReport{}, err
	}
	return FoldReport{
		Lot:    lot.Key(),
		Cached: lot.State(),
		Folded: folded,
		Consistent: lot.Quantity.Equal(folded.Quantity) &&
			lot.UnitCost.Equal(folded.UnitCost) &&
			lot.EventCount == folded.EventCount,
	}, nil
}

// Repair overwrites the lot's cache with the folded state
func (r *FoldReport) Repair(lot *Lot) {
	lot.Quantity = r.Folded.Quantity
	lot.UnitCost = r.Folded.UnitCost
	lot.EventCount = r.Folded.EventCount
	r.Repaired = true
}
