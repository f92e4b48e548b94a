/*
Package sqlite provides a SQLite-backed implementation of the ledger storage
interfaces.

PURPOSE:
  Persists Budget aggregates and the audit log. Implements:

    ledger.Store:    budgets with version-checked saves
    ledger.AuditLog: append-only audit trail

KEY TABLES:
  budgets:    one row per budget, version column is the optimistic lock
  categories: child rows, ordered by position
  expenses:   child rows, ordered by position
  audit_log:  append-only, survives budget deletion

SAVE:
  A save is one SQL transaction:

    UPDATE budgets ... WHERE id = ? AND version = ?
    0 rows  -> ErrBudgetNotFound or ErrConcurrentModification
    DELETE + re-INSERT categories and expenses in slice order

  Money is stored as decimal strings so no precision is lost.

MIGRATIONS:
  Schema lives in migrations/*.sql, embedded into the binary and applied
  with golang-migrate on New().

CONCURRENCY:
  Uses sync.RWMutex around the handle and a single pooled connection, which
  also keeps ":memory:" databases alive for the life of the Store.

USAGE:
  store, err := sqlite.New("./data/budgets.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := ledger.NewService(store, store, logger)

SEE ALSO:
  - ledger/store.go: Interface definitions
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/warp/budget-ledger/ledger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const timeLayout = time.RFC3339Nano

// Store implements ledger.Store and ledger.AuditLog using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ ledger.Store    = (*Store)(nil)
	_ ledger.AuditLog = (*Store)(nil)
)

// New opens the database at dbPath and applies pending migrations.
// Use ":memory:" for an in-memory database.
// Missing parent directories of a file path are created.
func New(dbPath string) (*Store, error) {
	if dbPath != ":memory:" && !strings.HasPrefix(dbPath, "file:") {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("migration setup: %w", err)
	}
	// m.Close would also close s.db.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// =============================================================================
// BUDGET STORE (ledger.Store interface)
// =============================================================================

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Create inserts a new budget at version 1.
func (s *Store) Create(ctx context.Context, b ledger.Budget) (ledger.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ledger.Budget{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	b = b.Clone()
	b.Version = 1
	_, err = tx.ExecContext(ctx, `
		INSERT INTO budgets
		(id, name, total, allocated, remaining, currency, last_updated, version, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Name,
		b.TotalBudget.Value.String(),
		b.AllocatedBudget.Value.String(),
		b.RemainingBudget.Value.String(),
		b.Currency,
		b.LastUpdated.UTC().Format(timeLayout),
		b.Version,
		time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ledger.Budget{}, ledger.ErrBudgetExists
		}
		return ledger.Budget{}, fmt.Errorf("failed to insert budget: %w", err)
	}
	if err := writeChildren(ctx, tx, b); err != nil {
		return ledger.Budget{}, err
	}
	if err := tx.Commit(); err != nil {
		return ledger.Budget{}, fmt.Errorf("failed to commit: %w", err)
	}
	return b, nil
}

// Get loads one budget with its categories and expenses.
func (s *Store) Get(ctx context.Context, id ledger.BudgetID) (ledger.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return loadBudget(ctx, s.db, id)
}

// List returns all budgets ordered by name.
func (s *Store) List(ctx context.Context) ([]ledger.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id FROM budgets ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list budgets: %w", err)
	}
	var ids []ledger.BudgetID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, ledger.BudgetID(id))
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	result := make([]ledger.Budget, 0, len(ids))
	for _, id := range ids {
		b, err := loadBudget(ctx, s.db, id)
		if err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	return result, nil
}

// Save replaces the stored budget if its version still equals
// expectedVersion.
func (s *Store) Save(ctx context.Context, b ledger.Budget, expectedVersion int64) (ledger.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ledger.Budget{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE budgets
		SET name = ?, total = ?, allocated = ?, remaining = ?, currency = ?,
		    last_updated = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		b.Name,
		b.TotalBudget.Value.String(),
		b.AllocatedBudget.Value.String(),
		b.RemainingBudget.Value.String(),
		b.Currency,
		b.LastUpdated.UTC().Format(timeLayout),
		b.ID, expectedVersion,
	)
	if err != nil {
		return ledger.Budget{}, fmt.Errorf("failed to update budget: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return ledger.Budget{}, err
	}
	if n == 0 {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM budgets WHERE id = ?`, b.ID).Scan(&exists); err != nil {
			return ledger.Budget{}, err
		}
		if exists == 0 {
			return ledger.Budget{}, ledger.ErrBudgetNotFound
		}
		return ledger.Budget{}, ledger.ErrConcurrentModification
	}

	for _, stmt := range []string{
		`DELETE FROM expenses WHERE budget_id = ?`,
		`DELETE FROM categories WHERE budget_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, b.ID); err != nil {
			return ledger.Budget{}, fmt.Errorf("failed to clear children: %w", err)
		}
	}
	if err := writeChildren(ctx, tx, b); err != nil {
		return ledger.Budget{}, err
	}
	if err := tx.Commit(); err != nil {
		return ledger.Budget{}, fmt.Errorf("failed to commit: %w", err)
	}

	saved := b.Clone()
	saved.Version = expectedVersion + 1
	return saved, nil
}

// Delete removes a budget. Categories and expenses cascade.
func (s *Store) Delete(ctx context.Context, id ledger.BudgetID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete budget: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ledger.ErrBudgetNotFound
	}
	return nil
}

func writeChildren(ctx context.Context, db execer, b ledger.Budget) error {
	for i, c := range b.Categories {
		_, err := db.ExecContext(ctx, `
			INSERT INTO categories
			(budget_id, id, position, name, allocation, spent, remaining, notes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			b.ID, c.ID, i, c.Name,
			c.Allocation.Value.String(),
			c.Spent.Value.String(),
			c.Remaining.Value.String(),
			c.Notes,
		)
		if err != nil {
			return fmt.Errorf("failed to insert category %s: %w", c.ID, err)
		}
	}
	for i, e := range b.Expenses {
		var approvedBy sql.NullString
		if e.ApprovedBy != nil {
			approvedBy = sql.NullString{String: *e.ApprovedBy, Valid: true}
		}
		_, err := db.ExecContext(ctx, `
			INSERT INTO expenses
			(budget_id, id, position, category_id, description, amount, date,
			 status, submitted_by, approved_by, notes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			b.ID, e.ID, i, e.CategoryID, e.Description,
			e.Amount.Value.String(),
			e.Date.UTC().Format(timeLayout),
			e.Status, e.SubmittedBy, approvedBy, e.Notes,
		)
		if err != nil {
			return fmt.Errorf("failed to insert expense %s: %w", e.ID, err)
		}
	}
	return nil
}

func loadBudget(ctx context.Context, db queryer, id ledger.BudgetID) (ledger.Budget, error) {
	var (
		b                           ledger.Budget
		total, allocated, remaining string
		lastUpdated                 string
	)
	err := db.QueryRowContext(ctx, `
		SELECT id, name, total, allocated, remaining, currency, last_updated, version
		FROM budgets WHERE id = ?`, id).
		Scan(&b.ID, &b.Name, &total, &allocated, &remaining, &b.Currency, &lastUpdated, &b.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Budget{}, ledger.ErrBudgetNotFound
	}
	if err != nil {
		return ledger.Budget{}, fmt.Errorf("failed to get budget: %w", err)
	}

	var p parser
	b.TotalBudget = p.money(total)
	b.AllocatedBudget = p.money(allocated)
	b.RemainingBudget = p.money(remaining)
	b.LastUpdated = p.time(lastUpdated)
	if p.err != nil {
		return ledger.Budget{}, fmt.Errorf("budget %s: %w", id, p.err)
	}

	if b.Categories, err = loadCategories(ctx, db, id); err != nil {
		return ledger.Budget{}, err
	}
	if b.Expenses, err = loadExpenses(ctx, db, id); err != nil {
		return ledger.Budget{}, err
	}
	return b, nil
}

func loadCategories(ctx context.Context, db queryer, id ledger.BudgetID) ([]ledger.BudgetCategory, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, allocation, spent, remaining, notes
		FROM categories WHERE budget_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	result := []ledger.BudgetCategory{}
	for rows.Next() {
		var (
			c                           ledger.BudgetCategory
			allocation, spent, remaining string
			p                           parser
		)
		if err := rows.Scan(&c.ID, &c.Name, &allocation, &spent, &remaining, &c.Notes); err != nil {
			return nil, err
		}
		c.Allocation = p.money(allocation)
		c.Spent = p.money(spent)
		c.Remaining = p.money(remaining)
		if p.err != nil {
			return nil, fmt.Errorf("category %s: %w", c.ID, p.err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func loadExpenses(ctx context.Context, db queryer, id ledger.BudgetID) ([]ledger.Expense, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, category_id, description, amount, date, status,
		       submitted_by, approved_by, notes
		FROM expenses WHERE budget_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer rows.Close()

	result := []ledger.Expense{}
	for rows.Next() {
		var (
			e            ledger.Expense
			amount, date string
			approvedBy   sql.NullString
			p            parser
		)
		if err := rows.Scan(&e.ID, &e.CategoryID, &e.Description, &amount, &date,
			&e.Status, &e.SubmittedBy, &approvedBy, &e.Notes); err != nil {
			return nil, err
		}
		e.Amount = p.money(amount)
		e.Date = p.time(date)
		if p.err != nil {
			return nil, fmt.Errorf("expense %s: %w", e.ID, p.err)
		}
		if approvedBy.Valid {
			v := approvedBy.String
			e.ApprovedBy = &v
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// =============================================================================
// AUDIT LOG (ledger.AuditLog interface)
// =============================================================================

// AppendAudit adds an entry. Append-only: there is no update or delete.
func (s *Store) AppendAudit(ctx context.Context, entry ledger.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	detailJSON, err := json.Marshal(entry.Detail)
	if err != nil {
		return fmt.Errorf("failed to encode audit detail: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, budget_id, actor_id, action, target_id, at, detail_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.BudgetID, entry.ActorID, entry.Action,
		nullString(entry.TargetID),
		entry.At.UTC().Format(timeLayout),
		string(detailJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// QueryAudit returns matching entries, newest first.
func (s *Store) QueryAudit(ctx context.Context, filter ledger.AuditFilter) ([]ledger.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		where []string
		args  []any
	)
	if filter.BudgetID != nil {
		where = append(where, "budget_id = ?")
		args = append(args, *filter.BudgetID)
	}
	if filter.ActorID != nil {
		where = append(where, "actor_id = ?")
		args = append(args, *filter.ActorID)
	}
	if len(filter.Actions) > 0 {
		placeholders := make([]string, len(filter.Actions))
		for i, a := range filter.Actions {
			placeholders[i] = "?"
			args = append(args, a)
		}
		where = append(where, "action IN ("+strings.Join(placeholders, ", ")+")")
	}

	query := `SELECT id, budget_id, actor_id, action, target_id, at, detail_json FROM audit_log`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	// Time bounds go through Matches so both stores agree on inclusivity.
	result := []ledger.AuditEntry{}
	for rows.Next() {
		var (
			e          ledger.AuditEntry
			target     sql.NullString
			at         string
			detailJSON sql.NullString
			p          parser
		)
		if err := rows.Scan(&e.ID, &e.BudgetID, &e.ActorID, &e.Action, &target, &at, &detailJSON); err != nil {
			return nil, err
		}
		e.TargetID = target.String
		e.At = p.time(at)
		if p.err != nil {
			return nil, fmt.Errorf("audit entry %s: %w", e.ID, p.err)
		}
		if detailJSON.Valid && detailJSON.String != "" && detailJSON.String != "null" {
			if err := json.Unmarshal([]byte(detailJSON.String), &e.Detail); err != nil {
				return nil, fmt.Errorf("audit entry %s: %w", e.ID, err)
			}
		}
		if !filter.Matches(e) {
			continue
		}
		result = append(result, e)
		if filter.Limit > 0 && len(result) == filter.Limit {
			break
		}
	}
	return result, rows.Err()
}

// Helper functions

// parser keeps the first decode error so row mapping stays flat.
type parser struct{ err error }

func (p *parser) money(s string) ledger.Money {
	m, err := ledger.ParseMoney(s)
	if err != nil && p.err == nil {
		p.err = err
	}
	return m
}

func (p *parser) time(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil && p.err == nil {
		p.err = err
	}
	return t
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
