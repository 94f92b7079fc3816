// Package selection implements the box-picking heuristics used by the
// "target weight" and "search by weight" selection modes.
package selection

import (
	"errors"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrNoFeasibleSelection means no pool item fits under the target weight.
var ErrNoFeasibleSelection = errors.New("selection: no item fits under the target weight")

// Item is one weighable candidate (a stock box in practice).
type Item struct {
	ID       uuid.UUID
	WeightKg decimal.Decimal
}

// SelectByTarget picks a subset of items whose total weight is as close to
// target as possible without exceeding it.
//
// This is a deterministic greedy pass over the pool sorted by weight
// descending (ties by ascending id), not an exact subset-sum solver: the
// trade-off keeps selection O(n log n) on pallets of hundreds of boxes and
// the result reproducible for the same pool. If the greedy pass selects
// nothing but some single item fits, that largest fitting item is returned
// on its own. If even the smallest item exceeds the target, there is no
// feasible selection.
func SelectByTarget(pool []Item, target decimal.Decimal) ([]Item, error) {
	if target.LessThanOrEqual(decimal.Zero) {
		return nil, ErrNoFeasibleSelection
	}

	sorted := make([]Item, len(pool))
	copy(sorted, pool)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].WeightKg.Equal(sorted[j].WeightKg) {
			return sorted[i].WeightKg.GreaterThan(sorted[j].WeightKg)
		}
		return sorted[i].ID.String() < sorted[j].ID.String()
	})

	var selected []Item
	total := decimal.Zero
	for _, it := range sorted {
		if total.Add(it.WeightKg).LessThanOrEqual(target) {
			selected = append(selected, it)
			total = total.Add(it.WeightKg)
		}
	}
	if len(selected) > 0 {
		return selected, nil
	}

	// Fallback: single largest item that fits on its own. The pool is
	// sorted descending, so the first fitting item is the largest.
	for _, it := range sorted {
		if it.WeightKg.LessThanOrEqual(target) {
			return []Item{it}, nil
		}
	}
	return nil, ErrNoFeasibleSelection
}

// SearchByWeight returns every item whose weight lies within tolerance of
// the query weight, closest first (ties by ascending id).
func SearchByWeight(pool []Item, query, tolerance decimal.Decimal) []Item {
	if tolerance.IsNegative() {
		tolerance = decimal.Zero
	}

	var hits []Item
	for _, it := range pool {
		if it.WeightKg.Sub(query).Abs().LessThanOrEqual(tolerance) {
			hits = append(hits, it)
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		di := hits[i].WeightKg.Sub(query).Abs()
		dj := hits[j].WeightKg.Sub(query).Abs()
		if !di.Equal(dj) {
			return di.LessThan(dj)
		}
		return hits[i].ID.String() < hits[j].ID.String()
	})
	return hits
}
