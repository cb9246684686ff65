package ledger

import "time"

// SKU is the compound key identifying a purchasable variant. Optional parts
// are matched exactly: a nil part only matches NULL, never a wildcard.
type SKU struct {
	Material     string  `json:"material"`
	Offer        *string `json:"offer,omitempty"`
	Variation    *string `json:"variation,omitempty"`
	Modification *string `json:"modification,omitempty"`
}

func (s SKU) Matches(other SKU) bool {
	return s.Material == other.Material &&
		equalOptional(s.Offer, other.Offer) &&
		equalOptional(s.Variation, other.Variation) &&
		equalOptional(s.Modification, other.Modification)
}

func (s SKU) String() string {
	return s.Material + "/" + deref(s.Offer) + "/" + deref(s.Variation) + "/" + deref(s.Modification)
}

// Key scopes a SKU to one warehouse profile.
type Key struct {
	SKU
	Profile string `json:"profile"`
}

func NewKey(profile string, sku SKU) Key {
	return Key{SKU: sku, Profile: profile}
}

// Row is one StockTotal ledger entry: on-hand and reserved quantity for a
// SKU at a profile and optional storage location.
type Row struct {
	ID              string    `db:"id" json:"id"`
	Material        string    `db:"material" json:"material"`
	Offer           *string   `db:"offer" json:"offer,omitempty"`
	Variation       *string   `db:"variation" json:"variation,omitempty"`
	Modification    *string   `db:"modification" json:"modification,omitempty"`
	User            *string   `db:"usr" json:"user,omitempty"`
	Profile         string    `db:"profile" json:"profile"`
	StorageLocation *string   `db:"storage" json:"storage,omitempty"`
	Total           int       `db:"total" json:"total"`
	Reserve         int       `db:"reserve" json:"reserve"`
	Price           int       `db:"price" json:"price"`
	Comment         *string   `db:"comment" json:"comment,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

func (r *Row) SKU() SKU {
	return SKU{
		Material:     r.Material,
		Offer:        r.Offer,
		Variation:    r.Variation,
		Modification: r.Modification,
	}
}

func (r *Row) Key() Key {
	return NewKey(r.Profile, r.SKU())
}

// Available is the unreserved on-hand quantity.
func (r *Row) Available() int {
	return r.Total - r.Reserve
}

// Empty reports whether the row must be garbage-collected.
func (r *Row) Empty() bool {
	return r.Total == 0 && r.Reserve == 0
}

// MatchesKey reports whether the row belongs to key, profile included.
func (r *Row) MatchesKey(key Key) bool {
	return r.Profile == key.Profile && r.SKU().Matches(key.SKU)
}

// MatchesLocation is MatchesKey plus an exact storage location match.
func (r *Row) MatchesLocation(key Key, storage *string) bool {
	return r.MatchesKey(key) && equalOptional(r.StorageLocation, storage)
}

func equalOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
