package catalog

import (
	"context"
	"errors"

	"github.com/example/material-stock/internal/domain/ledger"
)

// Level is the granularity of a catalog record carrying a quantity.
type Level string

const (
	LevelModification Level = "modification"
	LevelVariation    Level = "variation"
	LevelOffer        Level = "offer"
	LevelProduct      Level = "product"
)

var ErrHolderNotFound = errors.New("catalog quantity holder not found")

// Holder is the catalog record whose quantity field reflects availability.
type Holder struct {
	Level    Level  `db:"level" json:"level"`
	Ref      string `db:"ref" json:"ref"`
	Quantity int    `db:"quantity" json:"quantity"`
}

type Store interface {
	// FindHolder reads the holder afresh on every call.
	FindHolder(ctx context.Context, level Level, ref string) (*Holder, error)
	SetQuantity(ctx context.Context, holder *Holder, quantity int) error
}

type Candidate struct {
	Level Level
	Ref   string
}

// Candidates lists the catalog records that may hold the SKU's quantity,
// most specific first. Missing SKU parts are skipped.
func Candidates(sku ledger.SKU) []Candidate {
	var out []Candidate
	for _, c := range []struct {
		level Level
		ref   *string
	}{
		{LevelModification, sku.Modification},
		{LevelVariation, sku.Variation},
		{LevelOffer, sku.Offer},
		{LevelProduct, &sku.Material},
	} {
		if c.ref != nil && *c.ref != "" {
			out = append(out, Candidate{Level: c.level, Ref: *c.ref})
		}
	}
	return out
}

// Resolve returns the most specific holder that exists for sku.
func Resolve(ctx context.Context, store Store, sku ledger.SKU) (*Holder, error) {
	for _, c := range Candidates(sku) {
		holder, err := store.FindHolder(ctx, c.Level, c.Ref)
		if errors.Is(err, ErrHolderNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return holder, nil
	}
	return nil, ErrHolderNotFound
}
