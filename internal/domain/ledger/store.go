package ledger

import "context"

// Store is the persistence contract for ledger rows.
//
// The four mutators are single guarded updates. They return the number of
// affected rows; zero means the guard rejected the change. SubTotal and
// SubReserve also delete the row in the same transaction when it ends up
// with total == 0 and reserve == 0.
type Store interface {
	Create(ctx context.Context, row *Row) error
	Get(ctx context.Context, id string) (*Row, error)

	AddTotal(ctx context.Context, id string, n int) (int64, error)
	SubTotal(ctx context.Context, id string, n int) (int64, error)
	AddReserve(ctx context.Context, id string, n int) (int64, error)
	SubReserve(ctx context.Context, id string, n int) (int64, error)

	FindOneBySubReserve(ctx context.Context, key Key) (*Row, error)
	FindOneByReserveMax(ctx context.Context, key Key) (*Row, error)
	FindOneByTotalMax(ctx context.Context, key Key) (*Row, error)
	FindOneByLocation(ctx context.Context, key Key, storage *string) (*Row, error)

	ListByKey(ctx context.Context, key Key) ([]Row, error)
	// SumAvailable is SUM(total) - SUM(reserve) for the SKU over all profiles.
	SumAvailable(ctx context.Context, sku SKU) (int, error)
}
