package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/AlouiLouai/takwira/internal/logging"
	"github.com/AlouiLouai/takwira/internal/model"
	"github.com/AlouiLouai/takwira/migrations"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const sqliteColumns = `id, name, avatar_seed, team_id, slot_index, position_x, position_y, created_at, updated_at`

type SQLiteGateway struct {
	db            *sql.DB
	feed          Feed
	logger        *slog.Logger
	migrationsDir string
	now           func() time.Time
}

type SQLiteOptions struct {
	// MigrationsDir overrides the embedded migrations with files on disk.
	MigrationsDir string
	AutoMigrate   bool
	// Feed defaults to an in-process Broadcaster.
	Feed   Feed
	Logger *slog.Logger
}

func NewSQLiteGateway(path string, opts SQLiteOptions) (*SQLiteGateway, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps writers from tripping over SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	feed := opts.Feed
	if feed == nil {
		feed = NewBroadcaster()
	}
	g := &SQLiteGateway{
		db:            db,
		feed:          feed,
		logger:        opts.Logger,
		migrationsDir: opts.MigrationsDir,
		now:           time.Now,
	}
	if opts.AutoMigrate {
		if _, err := g.Migrate(context.Background()); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return g, nil
}

// Migrate applies pending migrations and reports how many ran.
func (g *SQLiteGateway) Migrate(ctx context.Context) (int, error) {
	fsys, dir := migrationSource(g.migrationsDir, migrations.SQLiteDir)
	return applyMigrations(g.db, fsys, dir, sqliteRecordMigration)
}

func (g *SQLiteGateway) FetchAll(ctx context.Context) ([]Row, error) {
	rows, err := g.db.QueryContext(ctx, `SELECT `+sqliteColumns+` FROM players ORDER BY team_id, slot_index`)
	if err != nil {
		return nil, fmt.Errorf("fetch players: %w", err)
	}
	defer rows.Close()

	out := []Row{}
	for rows.Next() {
		r, err := scanSQLiteRow(rows)
		if err != nil {
			logging.Debug(g.logger, "skipping unreadable player row", "error", err)
			continue
		}
		if err := r.Validate(); err != nil {
			logging.Debug(g.logger, "skipping invalid player row", "id", r.ID, "error", err)
			continue
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch players: %w", err)
	}
	return out, nil
}

func (g *SQLiteGateway) Upsert(ctx context.Context, row Row) (Row, error) {
	if err := row.Validate(); err != nil {
		return Row{}, err
	}
	row = row.normalized()
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	now := formatSQLiteTime(g.now())

	stored, err := scanSQLiteRow(g.db.QueryRowContext(ctx, `
INSERT INTO players (`+sqliteColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (team_id, slot_index) DO UPDATE SET
  name = excluded.name,
  avatar_seed = excluded.avatar_seed,
  position_x = excluded.position_x,
  position_y = excluded.position_y,
  updated_at = excluded.updated_at
RETURNING `+sqliteColumns,
		row.ID, row.Name, row.AvatarSeed, string(row.TeamID), row.SlotIndex, row.PositionX, row.PositionY, now, now))
	if err != nil {
		return Row{}, fmt.Errorf("upsert player %s: %w", row.Key(), err)
	}
	g.notify(ctx)
	return stored, nil
}

func (g *SQLiteGateway) Delete(ctx context.Context, team model.Team, slot int) error {
	if err := validateKey(team, slot); err != nil {
		return err
	}
	res, err := g.db.ExecContext(ctx, `DELETE FROM players WHERE team_id = ? AND slot_index = ?`, string(team), slot)
	if err != nil {
		return fmt.Errorf("delete player %s/%d: %w", team, slot, err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		g.notify(ctx)
	}
	return nil
}

func (g *SQLiteGateway) UpdatePosition(ctx context.Context, team model.Team, slot int, x, y float64) error {
	if err := validateKey(team, slot); err != nil {
		return err
	}
	pos := model.Position{X: x, Y: y}.Clamped()
	res, err := g.db.ExecContext(ctx, `UPDATE players SET position_x = ?, position_y = ?, updated_at = ? WHERE team_id = ? AND slot_index = ?`,
		pos.X, pos.Y, formatSQLiteTime(g.now()), string(team), slot)
	if err != nil {
		return fmt.Errorf("update position %s/%d: %w", team, slot, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update position %s/%d: %w", team, slot, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s/%d", ErrNotFound, team, slot)
	}
	g.notify(ctx)
	return nil
}

func (g *SQLiteGateway) Subscribe(ctx context.Context, onChange func()) (Subscription, error) {
	return g.feed.Subscribe(ctx, onChange)
}

func (g *SQLiteGateway) CheckReadiness(ctx context.Context) Readiness {
	if err := g.db.PingContext(ctx); err != nil {
		return connectionError()
	}
	var id string
	err := g.db.QueryRowContext(ctx, `SELECT id FROM players LIMIT 1`).Scan(&id)
	switch {
	case err == nil, errors.Is(err, sql.ErrNoRows):
		return ready()
	case strings.Contains(err.Error(), "no such table"):
		return notSetup()
	default:
		return databaseError(err)
	}
}

func (g *SQLiteGateway) Close() error {
	return g.db.Close()
}

func (g *SQLiteGateway) notify(ctx context.Context) {
	if err := g.feed.Notify(ctx); err != nil {
		logging.Debug(g.logger, "change feed notify failed", "error", err)
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteRow(s rowScanner) (Row, error) {
	var (
		r                Row
		team             string
		created, updated string
	)
	if err := s.Scan(&r.ID, &r.Name, &r.AvatarSeed, &team, &r.SlotIndex, &r.PositionX, &r.PositionY, &created, &updated); err != nil {
		return Row{}, err
	}
	r.TeamID = model.Team(team)
	r.CreatedAt = parseSQLiteTime(created)
	r.UpdatedAt = parseSQLiteTime(updated)
	return r, nil
}

func formatSQLiteTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseSQLiteTime(value string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02 15:04:05", value); err == nil {
		return t
	}
	return time.Time{}
}
