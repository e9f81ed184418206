package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AlouiLouai/takwira/internal/model"
)

//go:generate mockgen -package=mocks -destination=mocks/mock_gateway.go github.com/AlouiLouai/takwira/internal/store Gateway

// Gateway is the remote players table plus its change feed.
type Gateway interface {
	// FetchAll returns every row ordered by team then slot.
	FetchAll(ctx context.Context) ([]Row, error)
	// Upsert writes a row keyed by (team_id, slot_index) and returns the stored row.
	Upsert(ctx context.Context, row Row) (Row, error)
	Delete(ctx context.Context, team model.Team, slot int) error
	UpdatePosition(ctx context.Context, team model.Team, slot int, x, y float64) error
	// Subscribe calls onChange after any insert, update or delete. The callback
	// carries no payload; consumers reload.
	Subscribe(ctx context.Context, onChange func()) (Subscription, error)
	CheckReadiness(ctx context.Context) Readiness
	Close() error
}

type Subscription interface {
	Unsubscribe() error
}

var (
	ErrInvalidTeam = errors.New("invalid team")
	ErrInvalidSlot = errors.New("invalid slot")
	ErrBlankName   = errors.New("name is required")
	ErrMissingSeed = errors.New("avatar seed is required")
	ErrNotFound    = errors.New("player not found")
)

// Row is one persisted player, shaped like the players table.
type Row struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	AvatarSeed string     `json:"avatar_seed"`
	TeamID     model.Team `json:"team_id"`
	SlotIndex  int        `json:"slot_index"`
	PositionX  float64    `json:"position_x"`
	PositionY  float64    `json:"position_y"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (r Row) Key() model.SlotKey {
	return model.SlotKey{Team: r.TeamID, Index: r.SlotIndex}
}

// Validate checks the row before it crosses the store boundary in either
// direction.
func (r Row) Validate() error {
	if !r.TeamID.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTeam, r.TeamID)
	}
	if err := validateSlot(r.SlotIndex); err != nil {
		return err
	}
	if strings.TrimSpace(r.Name) == "" {
		return ErrBlankName
	}
	if strings.TrimSpace(r.AvatarSeed) == "" {
		return ErrMissingSeed
	}
	return nil
}

// normalized trims the name and clamps the position into the pitch.
func (r Row) normalized() Row {
	r.Name = strings.TrimSpace(r.Name)
	pos := model.Position{X: r.PositionX, Y: r.PositionY}.Clamped()
	r.PositionX, r.PositionY = pos.X, pos.Y
	return r
}

func (r Row) Player() model.Player {
	return model.Player{
		ID:         r.ID,
		Name:       r.Name,
		AvatarSeed: r.AvatarSeed,
		Team:       r.TeamID,
		Slot:       r.SlotIndex,
		Position:   model.Position{X: r.PositionX, Y: r.PositionY}.Clamped(),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func RowFromPlayer(p model.Player) Row {
	return Row{
		ID:         p.ID,
		Name:       p.Name,
		AvatarSeed: p.AvatarSeed,
		TeamID:     p.Team,
		SlotIndex:  p.Slot,
		PositionX:  p.Position.X,
		PositionY:  p.Position.Y,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

func validateKey(team model.Team, slot int) error {
	if !team.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTeam, team)
	}
	return validateSlot(slot)
}

func validateSlot(slot int) error {
	if slot < 0 || slot >= model.RosterSize {
		return fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}
	return nil
}

func teamOrder(t model.Team) int {
	if t == model.TeamA {
		return 0
	}
	return 1
}

func lessRow(a, b Row) bool {
	if a.TeamID != b.TeamID {
		return teamOrder(a.TeamID) < teamOrder(b.TeamID)
	}
	return a.SlotIndex < b.SlotIndex
}

var (
	_ Gateway = (*MemoryGateway)(nil)
	_ Gateway = (*SQLiteGateway)(nil)
	_ Gateway = (*PostgresGateway)(nil)
	_ Feed    = (*Broadcaster)(nil)
	_ Feed    = (*RedisFeed)(nil)
)
