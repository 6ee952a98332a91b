package http

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/geoanchor/internal/core/usecases"
)

// Pinger is a backend that can report its own health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Session     *usecases.SessionController
	Storage     Pinger
	StorageName string
	NATS        *nats.Conn
	Version     string
}
