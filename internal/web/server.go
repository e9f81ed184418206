// Package web serves the players API, the websocket change feed and the
// per-session board API.
package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/AlouiLouai/takwira/internal/common/uuid"
	"github.com/AlouiLouai/takwira/internal/metrics"
	"github.com/AlouiLouai/takwira/internal/onboarding"
	"github.com/AlouiLouai/takwira/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
)

type Options struct {
	Gateway store.Gateway
	// KV persists the tutorial flag per session. Defaults to an in-memory KV.
	KV       onboarding.KV
	Recorder *metrics.Recorder
	Logger   *slog.Logger
	UUID     uuid.UUID
	// DragThreshold is forwarded to every board.
	DragThreshold float64
	// SessionTTL evicts boards idle for longer. Defaults to 30 minutes.
	SessionTTL time.Duration
	// MaxSessions caps live boards. Defaults to 500.
	MaxSessions   int
	SecureCookies bool
}

type Server struct {
	gateway  store.Gateway
	kv       onboarding.KV
	rec      *metrics.Recorder
	logger   *slog.Logger
	uuid     uuid.UUID
	sessions *Sessions
	upgrader websocket.Upgrader

	threshold     float64
	secureCookies bool
}

func NewServer(opts Options) *Server {
	kv := opts.KV
	if kv == nil {
		kv = onboarding.NewMemoryKV()
	}
	id := opts.UUID
	if id == nil {
		id = uuid.New()
	}
	s := &Server{
		gateway:       opts.Gateway,
		kv:            kv,
		rec:           opts.Recorder,
		logger:        opts.Logger,
		uuid:          id,
		threshold:     opts.DragThreshold,
		secureCookies: opts.SecureCookies,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	s.sessions = NewSessions(s.newBoard, SessionsOptions{
		TTL:         opts.SessionTTL,
		MaxSessions: opts.MaxSessions,
		Logger:      opts.Logger,
		Recorder:    opts.Recorder,
	})
	return s
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.instrument)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	if s.rec != nil {
		r.Method(http.MethodGet, "/metrics", s.rec.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/setup", s.handleSetup)
		r.Get("/players", s.handlePlayersList)
		r.Get("/players/feed", s.handlePlayersFeed)
		r.Put("/players/{team}/{slot}", s.handlePlayerUpsert)
		r.Delete("/players/{team}/{slot}", s.handlePlayerDelete)
		r.Patch("/players/{team}/{slot}/position", s.handlePlayerPosition)
	})

	r.Route("/board", func(r chi.Router) {
		r.Use(s.withSession)
		r.Get("/", s.handleBoard)
		r.Post("/setup/check", s.handleBoardRecheck)
		r.Post("/pitch", s.handleBoardPitch)
		r.Post("/select", s.handleBoardSelect)
		r.Post("/close", s.handleBoardClose)
		r.Post("/name", s.handleBoardName)
		r.Post("/commit", s.handleBoardCommit)
		r.Post("/remove", s.handleBoardRemove)
		r.Post("/pointer/{phase}", s.handleBoardPointer)
		r.Post("/tutorial/{action}", s.handleBoardTutorial)
	})

	return r
}

// Close shuts down every live board session.
func (s *Server) Close() error {
	return s.sessions.Close()
}
