package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"conti/internal/core"
	"conti/internal/log"
	"conti/internal/store"

	_ "modernc.org/sqlite"
)

var _ store.Repository = (*SQLiteRepository)(nil)

// SQLiteRepository stores one room's members, groups and transactions.
type SQLiteRepository struct {
	db     *sql.DB
	roomID string
	logger *log.Logger
}

func NewSQLiteRepository(dbPath, roomID string) (*SQLiteRepository, error) {
	if strings.TrimSpace(roomID) == "" {
		return nil, errors.New("room id is required")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, roomID: roomID, logger: log.ForComponent(log.ComponentStorage)}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) AddMember(ctx context.Context, m core.Member) (core.Member, error) {
	if err := core.ValidateName(m.Name); err != nil {
		return core.Member{}, err
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO members (id, room_id, name, created_at) VALUES (?, ?, ?, ?)`,
		m.ID, r.roomID, m.Name, time.Now().UnixMilli())
	if err != nil {
		return core.Member{}, fmt.Errorf("insert member: %w", err)
	}
	return m, nil
}

func (r *SQLiteRepository) ListMembers(ctx context.Context) ([]core.Member, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name FROM members WHERE room_id = ? ORDER BY created_at, rowid`, r.roomID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var out []core.Member
	for rows.Next() {
		var m core.Member
		if err := rows.Scan(&m.ID, &m.Name); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) DeleteMember(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM members WHERE room_id = ? AND id = ?`, r.roomID, id)
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	return expectAffected(res)
}

func (r *SQLiteRepository) MemberReferenced(ctx context.Context, id string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM transactions t
		WHERE t.room_id = ? AND (
			t.payer_id = ?
			OR EXISTS (SELECT 1 FROM transaction_sharers s WHERE s.transaction_id = t.id AND s.member_id = ?)
		)`, r.roomID, id, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("count member references: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) AddGroup(ctx context.Context, g core.Group) (core.Group, error) {
	if err := core.ValidateName(g.Name); err != nil {
		return core.Group{}, err
	}
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO expense_groups (id, room_id, name, created_at) VALUES (?, ?, ?, ?)`,
		g.ID, r.roomID, g.Name, time.Now().UnixMilli())
	if err != nil {
		return core.Group{}, fmt.Errorf("insert group: %w", err)
	}
	return g, nil
}

func (r *SQLiteRepository) ListGroups(ctx context.Context) ([]core.Group, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name FROM expense_groups WHERE room_id = ? ORDER BY created_at, rowid`, r.roomID)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var out []core.Group
	for rows.Next() {
		var g core.Group
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) DeleteGroup(ctx context.Context, id string) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM expense_groups WHERE room_id = ? AND id = ?`, r.roomID, id)
		if err != nil {
			return fmt.Errorf("delete group: %w", err)
		}
		if err := expectAffected(res); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM transaction_sharers WHERE transaction_id IN (
				SELECT id FROM transactions WHERE room_id = ? AND group_id = ?
			)`, r.roomID, id); err != nil {
			return fmt.Errorf("delete group sharers: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM transactions WHERE room_id = ? AND group_id = ?`, r.roomID, id); err != nil {
			return fmt.Errorf("delete group transactions: %w", err)
		}
		return nil
	})
}

func (r *SQLiteRepository) AddTransactions(ctx context.Context, txs ...core.Transaction) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0, len(txs))
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		for _, t := range txs {
			if err := t.Validate(); err != nil {
				return err
			}
			if t.ID == "" {
				t.ID = uuid.NewString()
			}
			if t.GroupID == "" {
				t.GroupID = core.GeneralGroupID
			}
			t.Kind = t.EffectiveKind()

			if _, err := tx.ExecContext(ctx, `
				INSERT INTO transactions (id, room_id, group_id, kind, title, amount, payer_id, occurred_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				t.ID, r.roomID, t.GroupID, string(t.Kind), t.Title, t.Amount, t.PayerID, t.Date.UnixMilli()); err != nil {
				return fmt.Errorf("insert transaction: %w", err)
			}
			for pos, memberID := range t.SharedBy {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO transaction_sharers (transaction_id, position, member_id) VALUES (?, ?, ?)`,
					t.ID, pos, memberID); err != nil {
					return fmt.Errorf("insert sharer: %w", err)
				}
			}
			out = append(out, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.DebugContext(ctx, "Transactions saved to SQLite", "count", len(out), log.FieldRoomID, r.roomID)
	return out, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	txs, err := r.queryTransactions(ctx, `t.room_id = ? AND t.id = ?`, r.roomID, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if len(txs) == 0 {
		return core.Transaction{}, core.ErrNotFound
	}
	return txs[0], nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, scope string) ([]core.Transaction, error) {
	if scope == "" || scope == core.ScopeAll {
		return r.queryTransactions(ctx, `t.room_id = ?`, r.roomID)
	}
	return r.queryTransactions(ctx, `t.room_id = ? AND t.group_id = ?`, r.roomID, scope)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE room_id = ? AND id = ?`, r.roomID, id)
		if err != nil {
			return fmt.Errorf("delete transaction: %w", err)
		}
		if err := expectAffected(res); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM transaction_sharers WHERE transaction_id = ?`, id); err != nil {
			return fmt.Errorf("delete sharers: %w", err)
		}
		return nil
	})
}

// queryTransactions loads transactions matching where, in recording order,
// along with their sharers in position order.
func (r *SQLiteRepository) queryTransactions(ctx context.Context, where string, args ...any) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT t.id, t.group_id, t.kind, t.title, t.amount, t.payer_id, t.occurred_at
		FROM transactions t
		WHERE `+where+`
		ORDER BY t.seq`, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	var out []core.Transaction
	index := map[string]int{}
	for rows.Next() {
		var (
			t    core.Transaction
			kind string
			ms   int64
		)
		if err := rows.Scan(&t.ID, &t.GroupID, &kind, &t.Title, &t.Amount, &t.PayerID, &ms); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Kind = core.Kind(kind)
		t.Date = time.UnixMilli(ms).UTC()
		index[t.ID] = len(out)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	rows.Close()

	if len(out) == 0 {
		return out, nil
	}

	sharers, err := r.db.QueryContext(ctx, `
		SELECT s.transaction_id, s.member_id
		FROM transaction_sharers s
		JOIN transactions t ON t.id = s.transaction_id
		WHERE `+where+`
		ORDER BY t.seq, s.position`, args...)
	if err != nil {
		return nil, fmt.Errorf("list sharers: %w", err)
	}
	defer sharers.Close()
	for sharers.Next() {
		var txID, memberID string
		if err := sharers.Scan(&txID, &memberID); err != nil {
			return nil, fmt.Errorf("scan sharer: %w", err)
		}
		if i, ok := index[txID]; ok {
			out[i].SharedBy = append(out[i].SharedBy, memberID)
		}
	}
	return out, sharers.Err()
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}
