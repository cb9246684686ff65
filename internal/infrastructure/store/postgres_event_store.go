package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/material-stock/internal/domain/ledger"
	"github.com/example/material-stock/internal/domain/stock"
)

const eventColumns = `e.id, e.stock_id, e.previous_id, e.status, e.number, e.profile,
	e.destination, e.usr, e.comment, e.created_at, o.ord`

const eventFrom = ` FROM material_stock_event e
	LEFT JOIN material_stock_order o ON o.event_id = e.id`

// PostgresEventStore implements stock.EventRepository.
type PostgresEventStore struct {
	db *sqlx.DB
	tx *sqlx.Tx
}

func NewPostgresEventStore(db *sqlx.DB) *PostgresEventStore {
	return &PostgresEventStore{db: db}
}

func (s *PostgresEventStore) WithTx(tx *sqlx.Tx) *PostgresEventStore {
	return &PostgresEventStore{db: s.db, tx: tx}
}

func (s *PostgresEventStore) ext() sqlx.ExtContext {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

func (s *PostgresEventStore) Append(ctx context.Context, e *stock.Event) error {
	ext := s.ext()

	_, err := sqlx.NamedExecContext(ctx, ext,
		`INSERT INTO material_stock_event
			(id, stock_id, previous_id, status, number, profile, destination, usr, comment, created_at)
		 VALUES
			(:id, :stock_id, :previous_id, :status, :number, :profile, :destination, :usr, :comment, :created_at)`, e)
	if err != nil {
		return fmt.Errorf("failed to insert stock event: %w", err)
	}

	for i := range e.Lines {
		_, err := sqlx.NamedExecContext(ctx, ext,
			`INSERT INTO material_stock_material
				(id, event_id, material, offer, variation, modification, total, storage)
			 VALUES
				(:id, :event_id, :material, :offer, :variation, :modification, :total, :storage)`, &e.Lines[i])
		if err != nil {
			return fmt.Errorf("failed to insert stock line: %w", err)
		}
	}

	if e.Order != nil {
		if _, err := ext.ExecContext(ctx,
			`INSERT INTO material_stock_order (event_id, ord) VALUES ($1, $2)`, e.ID, *e.Order); err != nil {
			return fmt.Errorf("failed to link stock event to order: %w", err)
		}
	}

	var affected int64
	if e.PreviousID == nil {
		affected, err = exec(ctx, ext,
			`INSERT INTO material_stock (id, current_event, created_at) VALUES ($1, $2, $3)
			 ON CONFLICT (id) DO NOTHING`, e.StockID, e.ID, e.CreatedAt)
	} else {
		affected, err = exec(ctx, ext,
			`UPDATE material_stock SET current_event = $2 WHERE id = $1 AND current_event = $3`,
			e.StockID, e.ID, *e.PreviousID)
	}
	if err != nil {
		return fmt.Errorf("failed to move current event: %w", err)
	}
	if affected == 0 {
		return stock.ErrConcurrentEdit
	}
	return nil
}

func (s *PostgresEventStore) Current(ctx context.Context, stockID string) (*stock.Event, error) {
	return s.getEvent(ctx, `SELECT `+eventColumns+eventFrom+`
		JOIN material_stock st ON st.current_event = e.id
		WHERE st.id = $1`, stockID)
}

func (s *PostgresEventStore) Get(ctx context.Context, eventID string) (*stock.Event, error) {
	return s.getEvent(ctx, `SELECT `+eventColumns+eventFrom+` WHERE e.id = $1`, eventID)
}

func (s *PostgresEventStore) History(ctx context.Context, stockID string) ([]stock.Event, error) {
	var events []stock.Event
	err := sqlx.SelectContext(ctx, s.ext(), &events,
		`SELECT `+eventColumns+eventFrom+` WHERE e.stock_id = $1 ORDER BY e.created_at, e.id`, stockID)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, stock.ErrStockNotFound
	}

	ids := make([]string, len(events))
	for i := range events {
		ids[i] = events[i].ID
	}
	lines, err := s.linesFor(ctx, ids...)
	if err != nil {
		return nil, err
	}
	for i := range events {
		events[i].Lines = lines[events[i].ID]
	}
	return events, nil
}

func (s *PostgresEventStore) ExistsStatus(ctx context.Context, stockID string, status stock.Status) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, s.ext(), &exists,
		`SELECT EXISTS (SELECT 1 FROM material_stock_event WHERE stock_id = $1 AND status = $2)`,
		stockID, string(status))
	return exists, err
}

// FindPackage returns nil when the order has no current package event at profile.
func (s *PostgresEventStore) FindPackage(ctx context.Context, order, profile string) (*stock.Event, error) {
	e, err := s.getEvent(ctx, `SELECT `+eventColumns+eventFrom+`
		JOIN material_stock st ON st.current_event = e.id
		WHERE o.ord = $1 AND e.profile = $2 AND e.status = $3
		ORDER BY e.created_at LIMIT 1`, order, profile, string(stock.StatusPackage))
	if errors.Is(err, stock.ErrStockNotFound) {
		return nil, nil
	}
	return e, err
}

func (s *PostgresEventStore) getEvent(ctx context.Context, query string, args ...any) (*stock.Event, error) {
	var e stock.Event
	err := sqlx.GetContext(ctx, s.ext(), &e, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, stock.ErrStockNotFound
	}
	if err != nil {
		return nil, err
	}
	lines, err := s.linesFor(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	e.Lines = lines[e.ID]
	return &e, nil
}

func (s *PostgresEventStore) linesFor(ctx context.Context, eventIDs ...string) (map[string][]stock.MaterialLine, error) {
	query, args, err := sqlx.In(`SELECT id, event_id, material, offer, variation, modification, total, storage
		FROM material_stock_material WHERE event_id IN (?) ORDER BY event_id, id`, eventIDs)
	if err != nil {
		return nil, err
	}

	var lines []stock.MaterialLine
	if err := sqlx.SelectContext(ctx, s.ext(), &lines, sqlx.Rebind(sqlx.DOLLAR, query), args...); err != nil {
		return nil, err
	}
	byEvent := make(map[string][]stock.MaterialLine, len(eventIDs))
	for _, line := range lines {
		byEvent[line.EventID] = append(byEvent[line.EventID], line)
	}
	return byEvent, nil
}

// PostgresUnitOfWork runs stock transitions in one database transaction.
type PostgresUnitOfWork struct {
	db     *sqlx.DB
	events *PostgresEventStore
	ledger *PostgresLedger
}

func NewPostgresUnitOfWork(db *sqlx.DB) *PostgresUnitOfWork {
	return &PostgresUnitOfWork{
		db:     db,
		events: NewPostgresEventStore(db),
		ledger: NewPostgresLedger(db),
	}
}

func (u *PostgresUnitOfWork) Execute(ctx context.Context, fn func(repos stock.Repositories) error) error {
	tx, err := u.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(pgRepos{events: u.events.WithTx(tx), ledger: u.ledger.WithTx(tx)}); err != nil {
		return err
	}
	return tx.Commit()
}

type pgRepos struct {
	events *PostgresEventStore
	ledger *PostgresLedger
}

func (r pgRepos) Events() stock.EventRepository { return r.events }
func (r pgRepos) Ledger() ledger.Store          { return r.ledger }

var (
	_ stock.UnitOfWork      = (*PostgresUnitOfWork)(nil)
	_ stock.UnitOfWork      = (*MemoryUnitOfWork)(nil)
	_ stock.EventRepository = (*PostgresEventStore)(nil)
	_ stock.EventRepository = (*MemoryEventStore)(nil)
	_ ledger.Store          = (*PostgresLedger)(nil)
	_ ledger.Store          = (*MemoryLedger)(nil)
)
