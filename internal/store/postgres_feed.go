package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/AlouiLouai/takwira/internal/logging"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	listenMinBackoff = 250 * time.Millisecond
	listenMaxBackoff = 30 * time.Second
)

// notificationConn is the part of *pgx.Conn the listener uses.
type notificationConn interface {
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Close(ctx context.Context) error
}

type notificationDialer func(ctx context.Context) (notificationConn, error)

// pgListener holds the single LISTEN connection of a gateway and fans every
// notification out through a Broadcaster. A lost connection is redialled with
// backoff; subscribers get one notification after each reconnect so they
// reload whatever changed while the feed was down.
type pgListener struct {
	dial       notificationDialer
	feed       *Broadcaster
	logger     *slog.Logger
	minBackoff time.Duration
	maxBackoff time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	stopped chan struct{}
}

func newPGListener(dial notificationDialer, logger *slog.Logger) *pgListener {
	return &pgListener{
		dial:       dial,
		feed:       NewBroadcaster(),
		logger:     logger,
		minBackoff: listenMinBackoff,
		maxBackoff: listenMaxBackoff,
	}
}

func dialListen(dsn string) notificationDialer {
	return func(ctx context.Context) (notificationConn, error) {
		conn, err := pgx.Connect(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("connect change feed: %w", err)
		}
		if _, err := conn.Exec(ctx, "LISTEN "+ChangeChannel); err != nil {
			_ = conn.Close(context.Background())
			return nil, fmt.Errorf("listen %s: %w", ChangeChannel, err)
		}
		return conn, nil
	}
}

// Subscribe starts the shared connection on first use. Only that first dial
// can fail; later subscribers attach to the running listener.
func (l *pgListener) Subscribe(ctx context.Context, onChange func()) (Subscription, error) {
	if err := l.start(ctx); err != nil {
		return nil, err
	}
	return l.feed.Subscribe(ctx, onChange)
}

func (l *pgListener) start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return nil
	}
	conn, err := l.dial(ctx)
	if err != nil {
		return err
	}
	runCtx, cancel := context.WithCancel(context.Background())
	l.running = true
	l.cancel = cancel
	l.stopped = make(chan struct{})
	go l.run(runCtx, conn, l.stopped)
	return nil
}

func (l *pgListener) run(ctx context.Context, conn notificationConn, stopped chan struct{}) {
	defer close(stopped)
	for {
		err := l.listen(ctx, conn)
		_ = conn.Close(context.Background())
		if ctx.Err() != nil {
			return
		}
		logging.Warn(l.logger, "change feed lost, reconnecting", "error", err)

		conn = l.redial(ctx)
		if conn == nil {
			return
		}
		logging.Info(l.logger, "change feed reconnected")
		_ = l.feed.Notify(ctx)
	}
}

func (l *pgListener) listen(ctx context.Context, conn notificationConn) error {
	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		if n.Channel == ChangeChannel {
			_ = l.feed.Notify(ctx)
		}
	}
}

// redial returns nil once ctx is cancelled.
func (l *pgListener) redial(ctx context.Context) notificationConn {
	backoff := l.minBackoff
	for {
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
		conn, err := l.dial(ctx)
		if err == nil {
			return conn
		}
		logging.Warn(l.logger, "change feed redial failed", "error", err, "backoff", backoff.String())
		backoff *= 2
		if backoff > l.maxBackoff {
			backoff = l.maxBackoff
		}
	}
}

// Close stops the listener. Subscriptions stay valid but receive nothing.
func (l *pgListener) Close() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	cancel, stopped := l.cancel, l.stopped
	l.mu.Unlock()

	cancel()
	<-stopped
}
