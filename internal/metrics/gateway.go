package metrics

import (
	"context"
	"time"

	"github.com/AlouiLouai/takwira/internal/model"
	"github.com/AlouiLouai/takwira/internal/store"
)

// Store operation names.
const (
	OpFetchAll       = "fetch_all"
	OpUpsert         = "upsert"
	OpDelete         = "delete"
	OpUpdatePosition = "update_position"
	OpSubscribe      = "subscribe"
	OpReadiness      = "readiness"
)

type instrumentedGateway struct {
	next store.Gateway
	rec  *Recorder
}

// InstrumentGateway times every call on next. With a nil recorder it returns
// next unchanged.
func InstrumentGateway(next store.Gateway, rec *Recorder) store.Gateway {
	if rec == nil {
		return next
	}
	return &instrumentedGateway{next: next, rec: rec}
}

func (g *instrumentedGateway) FetchAll(ctx context.Context) ([]store.Row, error) {
	start := time.Now()
	rows, err := g.next.FetchAll(ctx)
	g.rec.RecordStoreOp(OpFetchAll, time.Since(start), err)
	return rows, err
}

func (g *instrumentedGateway) Upsert(ctx context.Context, row store.Row) (store.Row, error) {
	start := time.Now()
	saved, err := g.next.Upsert(ctx, row)
	g.rec.RecordStoreOp(OpUpsert, time.Since(start), err)
	return saved, err
}

func (g *instrumentedGateway) Delete(ctx context.Context, team model.Team, slot int) error {
	start := time.Now()
	err := g.next.Delete(ctx, team, slot)
	g.rec.RecordStoreOp(OpDelete, time.Since(start), err)
	return err
}

func (g *instrumentedGateway) UpdatePosition(ctx context.Context, team model.Team, slot int, x, y float64) error {
	start := time.Now()
	err := g.next.UpdatePosition(ctx, team, slot, x, y)
	g.rec.RecordStoreOp(OpUpdatePosition, time.Since(start), err)
	return err
}

func (g *instrumentedGateway) Subscribe(ctx context.Context, onChange func()) (store.Subscription, error) {
	start := time.Now()
	sub, err := g.next.Subscribe(ctx, func() {
		g.rec.RecordChange()
		onChange()
	})
	g.rec.RecordStoreOp(OpSubscribe, time.Since(start), err)
	return sub, err
}

func (g *instrumentedGateway) CheckReadiness(ctx context.Context) store.Readiness {
	start := time.Now()
	r := g.next.CheckReadiness(ctx)
	var err error
	if !r.IsReady {
		err = store.ErrNotReady
	}
	g.rec.RecordStoreOp(OpReadiness, time.Since(start), err)
	return r
}

func (g *instrumentedGateway) Close() error {
	return g.next.Close()
}
