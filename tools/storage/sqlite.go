package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"pantrycook/pantry"
)

// SQLiteLotStore keeps lots in a SQLite table. Decrement is a single conditional UPDATE, so
// the check and the write cannot interleave with another consumer's.
type SQLiteLotStore struct {
	db *sql.DB
}

func NewSQLiteLotStore(dbPath string) (*SQLiteLotStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// An in-memory database exists per connection.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &SQLiteLotStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteLotStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteLotStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS lots (
        seq INTEGER PRIMARY KEY AUTOINCREMENT,
        id TEXT NOT NULL UNIQUE,
        name TEXT NOT NULL,
        quantity REAL NOT NULL CHECK (quantity >= 0),
        unit TEXT NOT NULL DEFAULT '',
        category TEXT NOT NULL DEFAULT '',
        days_left INTEGER NOT NULL DEFAULT 0,
        perishable_days INTEGER NOT NULL DEFAULT 0,
        added_day INTEGER NOT NULL DEFAULT 0
    );

    CREATE INDEX IF NOT EXISTS idx_lots_name ON lots(name);
    `

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

const lotColumns = `id, name, quantity, unit, category, days_left, perishable_days, added_day`

type scanner interface {
	Scan(dest ...any) error
}

func scanLot(row scanner) (pantry.Lot, error) {
	var l pantry.Lot
	err := row.Scan(&l.ID, &l.ProductName, &l.Quantity, &l.Unit, &l.Category, &l.DaysLeft, &l.PerishableDays, &l.AddedDay)
	return l, err
}

func (s *SQLiteLotStore) List(ctx context.Context) ([]pantry.Lot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+lotColumns+` FROM lots ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to query lots: %w", err)
	}
	defer rows.Close()

	var lots []pantry.Lot
	for rows.Next() {
		l, err := scanLot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lot: %w", err)
		}
		lots = append(lots, l)
	}
	return lots, rows.Err()
}

func (s *SQLiteLotStore) Get(ctx context.Context, id string) (pantry.Lot, error) {
	l, err := scanLot(s.db.QueryRowContext(ctx, `SELECT `+lotColumns+` FROM lots WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return pantry.Lot{}, fmt.Errorf("%w: %s", ErrLotNotFound, id)
	}
	if err != nil {
		return pantry.Lot{}, fmt.Errorf("failed to get lot: %w", err)
	}
	return l, nil
}

func (s *SQLiteLotStore) Decrement(ctx context.Context, id string, amount float64) (float64, error) {
	if err := validateAmount(amount); err != nil {
		return 0, err
	}

	var left float64
	err := s.db.QueryRowContext(ctx, `
        UPDATE lots
        SET quantity = CASE WHEN quantity - ? < ? THEN 0 ELSE quantity - ? END
        WHERE id = ? AND quantity + ? >= ?
        RETURNING quantity
    `, amount, stockTolerance, amount, id, stockTolerance, amount).Scan(&left)
	if err == nil {
		return left, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to decrement lot: %w", err)
	}

	lot, err := s.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	return 0, &pantry.StockError{LotID: id, Requested: amount, Available: lot.Quantity}
}

func (s *SQLiteLotStore) Add(ctx context.Context, lot pantry.Lot) (pantry.Lot, error) {
	if err := validateLot(lot); err != nil {
		return pantry.Lot{}, err
	}
	if lot.ID == "" {
		lot.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO lots (`+lotColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		lot.ID, lot.ProductName, lot.Quantity, lot.Unit, lot.Category, lot.DaysLeft, lot.PerishableDays, lot.AddedDay)
	if err != nil {
		return pantry.Lot{}, fmt.Errorf("failed to insert lot: %w", err)
	}
	return lot, nil
}
