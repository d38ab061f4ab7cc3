package ledger

import (
	"sort"

	"github.com/erp/lotledger/internal/domain/ledger"
	"github.com/erp/lotledger/internal/domain/shared/strategy"
)

// View is the locked snapshot of lots a plan is computed against
type View struct {
	lots    map[ledger.LotKey]*ledger.Lot
	locked  map[ledger.LotKey]bool
	guarded map[string]bool // skus whose lot creation is serialized by this commit
}

func newView() *View {
	return &View{
		lots:    make(map[ledger.LotKey]*ledger.Lot),
		locked:  make(map[ledger.LotKey]bool),
		guarded: make(map[string]bool),
	}
}

// Lot returns the committed state of a locked lot
func (v *View) Lot(key ledger.LotKey) (ledger.LotState, bool) {
	lot, ok := v.lots[key]
	if !ok {
		return ledger.LotState{}, false
	}
	return lot.State(), true
}

// Locked reports whether key is held by the current commit
func (v *View) Locked(key ledger.LotKey) bool {
	return v.locked[key]
}

// LotsOf returns the locked lots of a sku, oldest received first
func (v *View) LotsOf(sku string) []ledger.LotState {
	states := make([]ledger.LotState, 0)
	for key, lot := range v.lots {
		if key.SkuCode == sku {
			states = append(states, lot.State())
		}
	}
	SortStates(states)
	return states
}

// Candidates converts the locked lots of a sku for a selection strategy
func (v *View) Candidates(sku string) []strategy.LotCandidate {
	states := v.LotsOf(sku)
	candidates := make([]strategy.LotCandidate, 0, len(states))
	for _, s := range states {
		candidates = append(candidates, strategy.LotCandidate{
			LotID:      s.LotID.String(),
			LotNumber:  s.LotNumber,
			Available:  s.Quantity,
			UnitCost:   s.UnitCost,
			ExpiresAt:  s.ExpiresAt,
			ReceivedAt: s.ReceivedAt,
			CreatedAt:  s.CreatedAt,
		})
	}
	return candidates
}

// SortStates orders lot states by received time, creation time, then lot number
func SortStates(states []ledger.LotState) {
	sort.SliceStable(states, func(i, j int) bool {
		if !states[i].ReceivedAt.Equal(states[j].ReceivedAt) {
			return states[i].ReceivedAt.Before(states[j].ReceivedAt)
		}
		if !states[i].CreatedAt.Equal(states[j].CreatedAt) {
			return states[i].CreatedAt.Before(states[j].CreatedAt)
		}
		return states[i].LotNumber < states[j].LotNumber
	})
}
