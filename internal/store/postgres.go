package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AlouiLouai/takwira/internal/logging"
	"github.com/AlouiLouai/takwira/internal/model"
	"github.com/AlouiLouai/takwira/migrations"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	postgresColumns = `id::text, name, avatar_seed, team_id, slot_index, position_x, position_y, created_at, updated_at`
	// ChangeChannel is the NOTIFY channel raised by the players trigger.
	ChangeChannel = "players_changed"

	pgUndefinedTable = "42P01"
)

type PostgresGateway struct {
	db            *sql.DB
	dsn           string
	logger        *slog.Logger
	migrationsDir string
	listener      *pgListener
}

type PostgresOptions struct {
	// MigrationsDir overrides the embedded migrations with files on disk.
	MigrationsDir string
	AutoMigrate   bool
	Logger        *slog.Logger
}

// NewPostgresGateway opens a pool without dialing so an unreachable database
// is reported through CheckReadiness instead of failing startup.
func NewPostgresGateway(dsn string, opts PostgresOptions) (*PostgresGateway, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres dsn is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	g := &PostgresGateway{
		db:            db,
		dsn:           dsn,
		logger:        opts.Logger,
		migrationsDir: opts.MigrationsDir,
		listener:      newPGListener(dialListen(dsn), opts.Logger),
	}
	if opts.AutoMigrate {
		if err := db.Ping(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		if _, err := g.Migrate(context.Background()); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return g, nil
}

func (g *PostgresGateway) Migrate(ctx context.Context) (int, error) {
	fsys, dir := migrationSource(g.migrationsDir, migrations.PostgresDir)
	return applyMigrations(g.db, fsys, dir, postgresRecordMigration)
}

func (g *PostgresGateway) FetchAll(ctx context.Context) ([]Row, error) {
	rows, err := g.db.QueryContext(ctx, `SELECT `+postgresColumns+` FROM players ORDER BY team_id, slot_index`)
	if err != nil {
		return nil, fmt.Errorf("fetch players: %w", err)
	}
	defer rows.Close()

	out := []Row{}
	for rows.Next() {
		r, err := scanPostgresRow(rows)
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

func (g *PostgresGateway) Upsert(ctx context.Context, row Row) (Row, error) {
	if err := row.Validate(); err != nil {
		return Row{}, err
	}
	row = row.normalized()
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	stored, err := scanPostgresRow(g.db.QueryRowContext(ctx, `
INSERT INTO players (id, name, avatar_seed, team_id, slot_index, position_x, position_y)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (team_id, slot_index) DO UPDATE SET
  name = EXCLUDED.name,
  avatar_seed = EXCLUDED.avatar_seed,
  position_x = EXCLUDED.position_x,
  position_y = EXCLUDED.position_y,
  updated_at = now()
RETURNING `+postgresColumns,
		row.ID, row.Name, row.AvatarSeed, string(row.TeamID), row.SlotIndex, row.PositionX, row.PositionY))
	if err != nil {
		return Row{}, fmt.Errorf("upsert player %s: %w", row.Key(), err)
	}
	return stored, nil
}

func (g *PostgresGateway) Delete(ctx context.Context, team model.Team, slot int) error {
	if err := validateKey(team, slot); err != nil {
		return err
	}
	if _, err := g.db.ExecContext(ctx, `DELETE FROM players WHERE team_id = $1 AND slot_index = $2`, string(team), slot); err != nil {
		return fmt.Errorf("delete player %s/%d: %w", team, slot, err)
	}
	return nil
}

func (g *PostgresGateway) UpdatePosition(ctx context.Context, team model.Team, slot int, x, y float64) error {
	if err := validateKey(team, slot); err != nil {
		return err
	}
	pos := model.Position{X: x, Y: y}.Clamped()
	res, err := g.db.ExecContext(ctx, `UPDATE players SET position_x = $1, position_y = $2, updated_at = now() WHERE team_id = $3 AND slot_index = $4`,
		pos.X, pos.Y, string(team), slot)
	if err != nil {
		return fmt.Errorf("update position %s/%d: %w", team, slot, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s/%d", ErrNotFound, team, slot)
	}
	return nil
}

// Subscribe attaches to the gateway's single LISTEN connection on
// ChangeChannel, opening it on first use. The pooled connections cannot carry
// it because a LISTEN is bound to its session.
func (g *PostgresGateway) Subscribe(ctx context.Context, onChange func()) (Subscription, error) {
	return g.listener.Subscribe(ctx, onChange)
}

func (g *PostgresGateway) CheckReadiness(ctx context.Context) Readiness {
	if err := g.db.PingContext(ctx); err != nil {
		return connectionError()
	}
	var id string
	err := g.db.QueryRowContext(ctx, `SELECT id::text FROM players LIMIT 1`).Scan(&id)
	if err == nil || errors.Is(err, sql.ErrNoRows) {
		return ready()
	}
	return classifyPostgresError(err)
}

func (g *PostgresGateway) Close() error {
	g.listener.Close()
	return g.db.Close()
}

func classifyPostgresError(err error) Readiness {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == pgUndefinedTable {
			return notSetup()
		}
		return databaseError(err)
	}
	return connectionError()
}

func scanPostgresRow(s rowScanner) (Row, error) {
	var (
		r    Row
		team string
	)
	if err := s.Scan(&r.ID, &r.Name, &r.AvatarSeed, &team, &r.SlotIndex, &r.PositionX, &r.PositionY, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return Row{}, err
	}
	r.TeamID = model.Team(team)
	return r, nil
}
