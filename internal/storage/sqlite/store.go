// Package sqlite provides a SQLite-backed team and config store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xtding233/carbon-crafts/internal/market"
	"github.com/xtding233/carbon-crafts/internal/platform/sqlitemigrate"
	"github.com/xtding233/carbon-crafts/internal/storage"
	"github.com/xtding233/carbon-crafts/internal/storage/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const teamColumns = `code, cash, carbon_debt, inventory_choice, last_action_round, settled_round, locked`

// Store persists teams and config in SQLite. Transactions begin IMMEDIATE so
// a read-modify-write holds the write lock from its first read.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

// Open opens the database at path, applies migrations and seeds any missing
// config rows, using welcome as the initial system message.
func Open(path, welcome string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_txlock=immediate"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	ctx := context.Background()
	if err := sqlitemigrate.Apply(ctx, sqlDB, migrations.FS, "."); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	s := &Store{sqlDB: sqlDB, now: time.Now}
	if err := s.seedConfig(ctx, welcome); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) seedConfig(ctx context.Context, welcome string) error {
	for key, value := range storage.DefaultConfig(welcome) {
		if _, err := s.sqlDB.ExecContext(ctx,
			`INSERT OR IGNORE INTO config (key, value) VALUES (?, ?)`, string(key), value,
		); err != nil {
			return fmt.Errorf("seed config %s: %w", key, err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanTeam reads loosely typed columns and hands them to the normalization
// boundary, so a hand-edited cell never aborts a read.
func scanTeam(row rowScanner) (market.TeamState, error) {
	var raw storage.RawTeam
	if err := row.Scan(
		&raw.ID,
		&raw.Cash,
		&raw.CarbonDebt,
		&raw.PendingChoice,
		&raw.LastActionRound,
		&raw.SettledRound,
		&raw.Locked,
	); err != nil {
		return market.TeamState{}, err
	}
	return storage.NormalizeTeam(raw), nil
}

func (s *Store) GetTeam(ctx context.Context, id string) (market.TeamState, error) {
	if err := s.ready(ctx); err != nil {
		return market.TeamState{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+teamColumns+` FROM teams WHERE code = ?`, strings.TrimSpace(id))
	t, err := scanTeam(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return market.TeamState{}, storage.ErrNotFound
		}
		return market.TeamState{}, fmt.Errorf("get team: %w", err)
	}
	return t, nil
}

// ListTeams returns every team ordered by code.
func (s *Store) ListTeams(ctx context.Context) ([]market.TeamState, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	return listTeams(ctx, s.sqlDB)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func listTeams(ctx context.Context, q querier) ([]market.TeamState, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+teamColumns+` FROM teams ORDER BY code ASC`)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	defer rows.Close()

	var out []market.TeamState
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("list teams: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	return out, nil
}

func (s *Store) CreateTeam(ctx context.Context, team market.TeamState) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	team.ID = strings.TrimSpace(team.ID)
	if team.ID == "" {
		return fmt.Errorf("team id is required")
	}
	now := s.now().UTC().UnixMilli()
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO teams (`+teamColumns+`, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		team.ID,
		team.Cash,
		team.CarbonDebt,
		storage.FormatChoice(team.PendingChoice),
		team.LastActionRound,
		team.SettledRound,
		boolInt(team.Locked),
		now,
		now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create team: %w", err)
	}
	return nil
}

func (s *Store) DeleteTeam(ctx context.Context, id string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM teams WHERE code = ?`, strings.TrimSpace(id))
	if err != nil {
		return fmt.Errorf("delete team: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// UpdateTeam runs fn inside one IMMEDIATE transaction on the team's row.
func (s *Store) UpdateTeam(ctx context.Context, id string, fn func(*market.TeamState) error) (market.TeamState, error) {
	if err := s.ready(ctx); err != nil {
		return market.TeamState{}, err
	}
	id = strings.TrimSpace(id)
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return market.TeamState{}, fmt.Errorf("begin update team: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	t, err := scanTeam(tx.QueryRowContext(ctx, `SELECT `+teamColumns+` FROM teams WHERE code = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return market.TeamState{}, storage.ErrNotFound
		}
		return market.TeamState{}, fmt.Errorf("read team: %w", err)
	}
	if err := fn(&t); err != nil {
		return market.TeamState{}, err
	}
	t.ID = id
	if err := s.writeTeam(ctx, tx, t); err != nil {
		return market.TeamState{}, err
	}
	if err := tx.Commit(); err != nil {
		return market.TeamState{}, fmt.Errorf("commit update team: %w", err)
	}
	return t, nil
}

func (s *Store) UpdateAllTeams(ctx context.Context, fn func(*market.TeamState)) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin update teams: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	teams, err := listTeams(ctx, tx)
	if err != nil {
		return 0, err
	}
	for _, t := range teams {
		id := t.ID
		fn(&t)
		t.ID = id
		if err := s.writeTeam(ctx, tx, t); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit update teams: %w", err)
	}
	return len(teams), nil
}

func (s *Store) writeTeam(ctx context.Context, tx *sql.Tx, t market.TeamState) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE teams
		    SET cash = ?, carbon_debt = ?, inventory_choice = ?,
		        last_action_round = ?, settled_round = ?, locked = ?, updated_at = ?
		  WHERE code = ?`,
		t.Cash,
		t.CarbonDebt,
		storage.FormatChoice(t.PendingChoice),
		t.LastActionRound,
		t.SettledRound,
		boolInt(t.Locked),
		s.now().UTC().UnixMilli(),
		t.ID,
	)
	if err != nil {
		return fmt.Errorf("write team %s: %w", t.ID, err)
	}
	return nil
}

// WriteTeamStats overwrites cash and debt directly, bypassing settlement.
func (s *Store) WriteTeamStats(ctx context.Context, id string, cash, debt int) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE teams SET cash = ?, carbon_debt = ?, updated_at = ? WHERE code = ?`,
		cash, debt, s.now().UTC().UnixMilli(), strings.TrimSpace(id),
	)
	if err != nil {
		return fmt.Errorf("write team stats: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) ClearPendingChoices(ctx context.Context) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if _, err := s.sqlDB.ExecContext(ctx,
		`UPDATE teams SET inventory_choice = ?, updated_at = ?`,
		market.TierNoneID, s.now().UTC().UnixMilli(),
	); err != nil {
		return fmt.Errorf("clear pending choices: %w", err)
	}
	return nil
}

func (s *Store) GetConfig(ctx context.Context) (market.GlobalConfig, error) {
	if err := s.ready(ctx); err != nil {
		return market.GlobalConfig{}, err
	}
	return readConfig(ctx, s.sqlDB)
}

func readConfig(ctx context.Context, q querier) (market.GlobalConfig, error) {
	rows, err := q.QueryContext(ctx, `SELECT key, value FROM config`)
	if err != nil {
		return market.GlobalConfig{}, fmt.Errorf("get config: %w", err)
	}
	defer rows.Close()

	values := map[storage.ConfigKey]string{}
	for rows.Next() {
		var key string
		var value sql.NullString
		if err := rows.Scan(&key, &value); err != nil {
			return market.GlobalConfig{}, fmt.Errorf("get config: %w", err)
		}
		values[storage.ConfigKey(key)] = value.String
	}
	if err := rows.Err(); err != nil {
		return market.GlobalConfig{}, fmt.Errorf("get config: %w", err)
	}
	return storage.NormalizeConfig(values), nil
}

// AdvanceRound runs in one IMMEDIATE transaction so a failure leaves the
// round, the event and every choice as they were.
func (s *Store) AdvanceRound(ctx context.Context) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin advance round: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	cfg, err := readConfig(ctx, tx)
	if err != nil {
		return 0, err
	}
	next := market.SaturatingAdd(cfg.CurrentRound, 1)
	if _, err := tx.ExecContext(ctx,
		`UPDATE teams SET inventory_choice = ?, updated_at = ?`,
		market.TierNoneID, s.now().UTC().UnixMilli(),
	); err != nil {
		return 0, fmt.Errorf("clear pending choices: %w", err)
	}
	for key, value := range map[storage.ConfigKey]string{
		storage.KeyActiveEvent:  market.EventNoneID,
		storage.KeyCurrentRound: strconv.Itoa(next),
	} {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO config (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			string(key), value,
		); err != nil {
			return 0, fmt.Errorf("set config %s: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit advance round: %w", err)
	}
	return next, nil
}

func (s *Store) SetConfigValue(ctx context.Context, key storage.ConfigKey, value string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if !key.Valid() {
		return fmt.Errorf("%w: %q", storage.ErrUnknownConfigKey, key)
	}
	if key == storage.KeyCurrentRound {
		if _, err := strconv.Atoi(strings.TrimSpace(value)); err != nil {
			return fmt.Errorf("current round must be an integer: %q", value)
		}
	}
	if _, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO config (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		string(key), value,
	); err != nil {
		return fmt.Errorf("set config %s: %w", key, err)
	}
	return nil
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

var _ storage.Store = (*Store)(nil)
