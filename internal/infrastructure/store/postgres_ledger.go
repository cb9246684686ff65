package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/example/material-stock/internal/domain/ledger"
)

const ledgerColumns = `id, material, offer, variation, modification, usr, profile, storage,
	total, reserve, price, comment, created_at, updated_at`

const (
	insertLedgerRow = `INSERT INTO material_stock_total (` + ledgerColumns + `)
	VALUES (:id, :material, :offer, :variation, :modification, :usr, :profile, :storage,
	        :total, :reserve, :price, :comment, :created_at, :updated_at)`

	addTotalQuery   = `UPDATE material_stock_total SET total = total + $2, updated_at = NOW() WHERE id = $1`
	subTotalQuery   = `UPDATE material_stock_total SET total = total - $2, updated_at = NOW() WHERE id = $1 AND total <> 0 AND total >= $2`
	addReserveQuery = `UPDATE material_stock_total SET reserve = reserve + $2, updated_at = NOW() WHERE id = $1 AND reserve + $2 <= total`
	subReserveQuery = `UPDATE material_stock_total SET reserve = GREATEST(reserve - $2, 0), updated_at = NOW() WHERE id = $1 AND reserve <> 0`
	deleteEmptyRow  = `DELETE FROM material_stock_total WHERE id = $1 AND total = 0 AND reserve = 0`
)

// PostgresLedger implements ledger.Store on top of sqlx. Bound to a
// transaction via WithTx it joins that transaction; otherwise decrements
// open their own short transaction for the update and zero-row cleanup.
type PostgresLedger struct {
	db *sqlx.DB
	tx *sqlx.Tx
}

func NewPostgresLedger(db *sqlx.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

func (s *PostgresLedger) WithTx(tx *sqlx.Tx) *PostgresLedger {
	return &PostgresLedger{db: s.db, tx: tx}
}

func (s *PostgresLedger) ext() sqlx.ExtContext {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

func (s *PostgresLedger) inTx(ctx context.Context, fn func(sqlx.ExtContext) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PostgresLedger) Create(ctx context.Context, row *ledger.Row) error {
	_, err := sqlx.NamedExecContext(ctx, s.ext(), insertLedgerRow, row)
	return err
}

func (s *PostgresLedger) Get(ctx context.Context, id string) (*ledger.Row, error) {
	var row ledger.Row
	err := sqlx.GetContext(ctx, s.ext(), &row, `SELECT `+ledgerColumns+` FROM material_stock_total WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.ErrRowNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *PostgresLedger) AddTotal(ctx context.Context, id string, n int) (int64, error) {
	return exec(ctx, s.ext(), addTotalQuery, id, n)
}

func (s *PostgresLedger) SubTotal(ctx context.Context, id string, n int) (int64, error) {
	return s.decrement(ctx, subTotalQuery, id, n)
}

func (s *PostgresLedger) AddReserve(ctx context.Context, id string, n int) (int64, error) {
	return exec(ctx, s.ext(), addReserveQuery, id, n)
}

func (s *PostgresLedger) SubReserve(ctx context.Context, id string, n int) (int64, error) {
	return s.decrement(ctx, subReserveQuery, id, n)
}

func (s *PostgresLedger) decrement(ctx context.Context, query, id string, n int) (int64, error) {
	var affected int64
	err := s.inTx(ctx, func(e sqlx.ExtContext) error {
		var err error
		affected, err = exec(ctx, e, query, id, n)
		if err != nil || affected == 0 {
			return err
		}
		_, err = e.ExecContext(ctx, deleteEmptyRow, id)
		return err
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

func (s *PostgresLedger) FindOneBySubReserve(ctx context.Context, key ledger.Key) (*ledger.Row, error) {
	return s.findOne(ctx, key, "total > reserve", "total ASC, id ASC")
}

func (s *PostgresLedger) FindOneByReserveMax(ctx context.Context, key ledger.Key) (*ledger.Row, error) {
	return s.findOne(ctx, key, "reserve > 0", "reserve DESC, id ASC")
}

func (s *PostgresLedger) FindOneByTotalMax(ctx context.Context, key ledger.Key) (*ledger.Row, error) {
	return s.findOne(ctx, key, "", "total DESC, id ASC")
}

func (s *PostgresLedger) FindOneByLocation(ctx context.Context, key ledger.Key, storage *string) (*ledger.Row, error) {
	where, args := keyFilter(key)
	if storage != nil {
		where += " AND storage = ?"
		args = append(args, *storage)
	} else {
		where += " AND storage IS NULL"
	}
	query := sqlx.Rebind(sqlx.DOLLAR, `SELECT `+ledgerColumns+` FROM material_stock_total WHERE `+where+` ORDER BY total DESC, id ASC LIMIT 1`)
	return s.getRow(ctx, query, args)
}

func (s *PostgresLedger) ListByKey(ctx context.Context, key ledger.Key) ([]ledger.Row, error) {
	where, args := keyFilter(key)
	query := sqlx.Rebind(sqlx.DOLLAR, `SELECT `+ledgerColumns+` FROM material_stock_total WHERE `+where+` ORDER BY storage NULLS FIRST, id`)
	var rows []ledger.Row
	if err := sqlx.SelectContext(ctx, s.ext(), &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *PostgresLedger) SumAvailable(ctx context.Context, sku ledger.SKU) (int, error) {
	where, args := skuFilter(sku)
	query := sqlx.Rebind(sqlx.DOLLAR, `SELECT COALESCE(SUM(total), 0) - COALESCE(SUM(reserve), 0) FROM material_stock_total WHERE `+where)
	var sum int
	if err := sqlx.GetContext(ctx, s.ext(), &sum, query, args...); err != nil {
		return 0, err
	}
	return sum, nil
}

func (s *PostgresLedger) findOne(ctx context.Context, key ledger.Key, guard, orderBy string) (*ledger.Row, error) {
	where, args := keyFilter(key)
	if guard != "" {
		where += " AND " + guard
	}
	query := sqlx.Rebind(sqlx.DOLLAR, `SELECT `+ledgerColumns+` FROM material_stock_total WHERE `+where+` ORDER BY `+orderBy+` LIMIT 1`)
	return s.getRow(ctx, query, args)
}

func (s *PostgresLedger) getRow(ctx context.Context, query string, args []any) (*ledger.Row, error) {
	var row ledger.Row
	err := sqlx.GetContext(ctx, s.ext(), &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.ErrRowNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// skuFilter builds an exact-or-IS-NULL predicate for every SKU part.
func skuFilter(sku ledger.SKU) (string, []any) {
	conditions := []string{"material = ?"}
	args := []any{sku.Material}
	for _, part := range []struct {
		column string
		value  *string
	}{
		{"offer", sku.Offer},
		{"variation", sku.Variation},
		{"modification", sku.Modification},
	} {
		if part.value == nil {
			conditions = append(conditions, part.column+" IS NULL")
			continue
		}
		conditions = append(conditions, part.column+" = ?")
		args = append(args, *part.value)
	}
	return strings.Join(conditions, " AND "), args
}

func keyFilter(key ledger.Key) (string, []any) {
	where, args := skuFilter(key.SKU)
	return where + " AND profile = ?", append(args, key.Profile)
}

func exec(ctx context.Context, e sqlx.ExecerContext, query string, args ...any) (int64, error) {
	res, err := e.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
