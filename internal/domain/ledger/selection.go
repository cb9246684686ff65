package ledger

import "sort"

// Selection orderings for stores that cannot push them into a query.
// Ties are broken by ascending id so the choice is deterministic.

// SelectBySubReserve picks the smallest pile that still has spare capacity.
func SelectBySubReserve(rows []Row) (*Row, bool) {
	return pick(rows, func(r *Row) bool { return r.Total > r.Reserve }, func(a, b *Row) bool {
		if a.Total != b.Total {
			return a.Total < b.Total
		}
		return a.ID < b.ID
	})
}

// SelectByReserveMax picks the most heavily reserved row.
func SelectByReserveMax(rows []Row) (*Row, bool) {
	return pick(rows, func(r *Row) bool { return r.Reserve > 0 }, func(a, b *Row) bool {
		if a.Reserve != b.Reserve {
			return a.Reserve > b.Reserve
		}
		return a.ID < b.ID
	})
}

// SelectByTotalMax picks the row holding the most stock.
func SelectByTotalMax(rows []Row) (*Row, bool) {
	return pick(rows, func(*Row) bool { return true }, func(a, b *Row) bool {
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		return a.ID < b.ID
	})
}

func pick(rows []Row, keep func(*Row) bool, less func(a, b *Row) bool) (*Row, bool) {
	candidates := make([]Row, 0, len(rows))
	for i := range rows {
		if keep(&rows[i]) {
			candidates = append(candidates, rows[i])
		}
	}
	if len(candidates) == 0 {
		return nil, false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return less(&candidates[i], &candidates[j])
	})
	selected := candidates[0]
	return &selected, true
}
