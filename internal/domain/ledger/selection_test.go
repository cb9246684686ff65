package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *string { return &s }

// ============================================
// Selection Ordering Tests
// ============================================

func TestSelectBySubReserve_PrefersSmallestPile(t *testing.T) {
	rows := []Row{
		{ID: "a", Total: 10},
		{ID: "b", Total: 5},
	}

	row, ok := SelectBySubReserve(rows)

	require.True(t, ok)
	assert.Equal(t, "b", row.ID)
}

func TestSelectBySubReserve_SkipsRowsWithoutSpareCapacity(t *testing.T) {
	rows := []Row{
		{ID: "full", Total: 3, Reserve: 3},
		{ID: "spare", Total: 9, Reserve: 1},
	}

	row, ok := SelectBySubReserve(rows)

	require.True(t, ok)
	assert.Equal(t, "spare", row.ID)

	_, ok = SelectBySubReserve(rows[:1])
	assert.False(t, ok)
}

func TestSelectByReserveMax_PrefersMostReserved(t *testing.T) {
	rows := []Row{
		{ID: "a", Total: 10, Reserve: 2},
		{ID: "b", Total: 10, Reserve: 7},
		{ID: "c", Total: 10, Reserve: 0},
	}

	row, ok := SelectByReserveMax(rows)

	require.True(t, ok)
	assert.Equal(t, "b", row.ID)
}

func TestSelectByReserveMax_NothingReserved(t *testing.T) {
	_, ok := SelectByReserveMax([]Row{{ID: "a", Total: 4}})
	assert.False(t, ok)
}

func TestSelectByTotalMax(t *testing.T) {
	rows := []Row{
		{ID: "a", Total: 5},
		{ID: "b", Total: 10},
	}

	row, ok := SelectByTotalMax(rows)

	require.True(t, ok)
	assert.Equal(t, "b", row.ID)
}

func TestSelection_TiesBrokenByID(t *testing.T) {
	rows := []Row{
		{ID: "z", Total: 5, Reserve: 1},
		{ID: "m", Total: 5, Reserve: 1},
		{ID: "q", Total: 5, Reserve: 1},
	}

	for name, sel := range map[string]func([]Row) (*Row, bool){
		"sub_reserve": SelectBySubReserve,
		"reserve_max": SelectByReserveMax,
		"total_max":   SelectByTotalMax,
	} {
		t.Run(name, func(t *testing.T) {
			row, ok := sel(rows)
			require.True(t, ok)
			assert.Equal(t, "m", row.ID)
		})
	}
}

func TestSelection_DoesNotReorderInput(t *testing.T) {
	rows := []Row{{ID: "b", Total: 1}, {ID: "a", Total: 2}}

	_, _ = SelectByTotalMax(rows)

	assert.Equal(t, "b", rows[0].ID)
}

// ============================================
// Key Matching Tests
// ============================================

func TestRow_MatchesKey_NullAware(t *testing.T) {
	nullOffer := Row{Material: "M", Profile: "P"}
	withOffer := Row{Material: "M", Offer: ptr("O1"), Profile: "P"}

	tests := []struct {
		name  string
		row   Row
		key   Key
		match bool
	}{
		{"null offer matches null query", nullOffer, NewKey("P", SKU{Material: "M"}), true},
		{"null offer never matches concrete offer", nullOffer, NewKey("P", SKU{Material: "M", Offer: ptr("O1")}), false},
		{"concrete offer never matches null query", withOffer, NewKey("P", SKU{Material: "M"}), false},
		{"concrete offer matches same offer", withOffer, NewKey("P", SKU{Material: "M", Offer: ptr("O1")}), true},
		{"different offer", withOffer, NewKey("P", SKU{Material: "M", Offer: ptr("O2")}), false},
		{"other profile", nullOffer, NewKey("Q", SKU{Material: "M"}), false},
		{"other material", nullOffer, NewKey("P", SKU{Material: "X"}), false},
		{"null variation vs concrete", Row{Material: "M", Profile: "P", Variation: ptr("V")}, NewKey("P", SKU{Material: "M"}), false},
		{"null modification vs concrete", Row{Material: "M", Profile: "P"}, NewKey("P", SKU{Material: "M", Modification: ptr("X")}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.match, tt.row.MatchesKey(tt.key))
		})
	}
}

func TestRow_MatchesLocation(t *testing.T) {
	row := Row{Material: "M", Profile: "P", StorageLocation: ptr("A-1")}
	key := NewKey("P", SKU{Material: "M"})

	assert.True(t, row.MatchesLocation(key, ptr("A-1")))
	assert.False(t, row.MatchesLocation(key, ptr("A-2")))
	assert.False(t, row.MatchesLocation(key, nil))
}

func TestRow_Counters(t *testing.T) {
	row := Row{Total: 10, Reserve: 4}
	assert.Equal(t, 6, row.Available())
	assert.False(t, row.Empty())
	assert.True(t, (&Row{}).Empty())
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("total", "must be positive")

	assert.True(t, IsValidation(err))
	assert.EqualError(t, err, "validation error: total must be positive")
	assert.False(t, IsValidation(ErrStaleRow))
}
