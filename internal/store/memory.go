package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/AlouiLouai/takwira/internal/model"

	"github.com/google/uuid"
)

type MemoryOptions struct {
	// Feed receives a notification after every write. Defaults to a new
	// Broadcaster.
	Feed Feed
	// Seed fills a handful of slots so a dev server has something to show.
	Seed bool
}

// MemoryGateway keeps the players table in a map. It backs the dev server and
// the HTTP tests.
type MemoryGateway struct {
	mu   sync.RWMutex
	rows map[model.SlotKey]Row
	feed Feed
	now  func() time.Time
}

func NewMemoryGateway(opts MemoryOptions) *MemoryGateway {
	feed := opts.Feed
	if feed == nil {
		feed = NewBroadcaster()
	}
	g := &MemoryGateway{
		rows: make(map[model.SlotKey]Row),
		feed: feed,
		now:  time.Now,
	}
	if opts.Seed {
		seedData(g)
	}
	return g
}

func (g *MemoryGateway) FetchAll(ctx context.Context) ([]Row, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	rows := make([]Row, 0, len(g.rows))
	for _, r := range g.rows {
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool { return lessRow(rows[i], rows[j]) })
	return rows, nil
}

func (g *MemoryGateway) Upsert(ctx context.Context, row Row) (Row, error) {
	if err := row.Validate(); err != nil {
		return Row{}, err
	}
	row = row.normalized()

	g.mu.Lock()
	now := g.now().UTC()
	if existing, ok := g.rows[row.Key()]; ok {
		row.ID = existing.ID
		row.CreatedAt = existing.CreatedAt
	} else {
		if row.ID == "" {
			row.ID = uuid.NewString()
		}
		row.CreatedAt = now
	}
	row.UpdatedAt = now
	g.rows[row.Key()] = row
	g.mu.Unlock()

	g.notify(ctx)
	return row, nil
}

func (g *MemoryGateway) Delete(ctx context.Context, team model.Team, slot int) error {
	if err := validateKey(team, slot); err != nil {
		return err
	}
	key := model.SlotKey{Team: team, Index: slot}

	g.mu.Lock()
	_, ok := g.rows[key]
	delete(g.rows, key)
	g.mu.Unlock()

	if ok {
		g.notify(ctx)
	}
	return nil
}

func (g *MemoryGateway) UpdatePosition(ctx context.Context, team model.Team, slot int, x, y float64) error {
	if err := validateKey(team, slot); err != nil {
		return err
	}
	key := model.SlotKey{Team: team, Index: slot}
	pos := model.Position{X: x, Y: y}.Clamped()

	g.mu.Lock()
	row, ok := g.rows[key]
	if !ok {
		g.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	row.PositionX, row.PositionY = pos.X, pos.Y
	row.UpdatedAt = g.now().UTC()
	g.rows[key] = row
	g.mu.Unlock()

	g.notify(ctx)
	return nil
}

func (g *MemoryGateway) Subscribe(ctx context.Context, onChange func()) (Subscription, error) {
	return g.feed.Subscribe(ctx, onChange)
}

func (g *MemoryGateway) CheckReadiness(ctx context.Context) Readiness {
	return ready()
}

func (g *MemoryGateway) Close() error {
	return nil
}

// notify is best effort; a failed feed never fails the write.
func (g *MemoryGateway) notify(ctx context.Context) {
	_ = g.feed.Notify(ctx)
}

func seedData(g *MemoryGateway) {
	now := g.now().UTC()
	seed := []struct {
		team model.Team
		slot int
		name string
	}{
		{model.TeamA, 0, "Yassine"},
		{model.TeamA, 2, "Wahbi"},
		{model.TeamA, 4, "Ellyes"},
		{model.TeamB, 0, "Aymen"},
		{model.TeamB, 3, "Hannibal"},
	}
	for _, s := range seed {
		key := model.SlotKey{Team: s.team, Index: s.slot}
		pos := model.FormationPoint(key)
		g.rows[key] = Row{
			ID:         uuid.NewString(),
			Name:       s.name,
			AvatarSeed: uuid.NewString(),
			TeamID:     s.team,
			SlotIndex:  s.slot,
			PositionX:  pos.X,
			PositionY:  pos.Y,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
	}
}
