package store

import "errors"

type ErrorKind string

const (
	ErrorNotSetup    ErrorKind = "DATABASE_NOT_SETUP"
	ErrorDatabase    ErrorKind = "DATABASE_ERROR"
	ErrorConnection  ErrorKind = "CONNECTION_ERROR"
	readyMessage               = "Database is ready!"
	notSetupMessage            = "Database table not created yet. Please run the migrations (takwira migrate)."
	connectionMessage          = "Failed to connect to database. Check your environment variables."
)

// ErrNotReady is returned by components that refuse to touch the players
// table before readiness is confirmed.
var ErrNotReady = errors.New("store is not ready")

// Readiness is the result of probing the players table.
type Readiness struct {
	IsReady   bool      `json:"is_ready"`
	ErrorKind ErrorKind `json:"error,omitempty"`
	Message   string    `json:"message,omitempty"`
}

func ready() Readiness {
	return Readiness{IsReady: true, Message: readyMessage}
}

func notSetup() Readiness {
	return Readiness{ErrorKind: ErrorNotSetup, Message: notSetupMessage}
}

func databaseError(err error) Readiness {
	return Readiness{ErrorKind: ErrorDatabase, Message: err.Error()}
}

func connectionError() Readiness {
	return Readiness{ErrorKind: ErrorConnection, Message: connectionMessage}
}
