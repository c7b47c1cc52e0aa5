// Package transport carries extension requests to the blocker service over
// native messaging (stdio), a unix socket, or a loopback HTTP API.
package transport

import (
	"context"

	"github.com/haukened/focusd/internal/focus/domain"
	"github.com/haukened/focusd/internal/focus/gateways/wire"
)

// ServerTransport is implemented by every transport.
type ServerTransport interface {
	// Start begins serving requests through handler. It returns once the
	// transport is ready; serving continues in the background.
	Start(ctx context.Context, handler RequestHandler) error

	// Stop shuts the transport down and releases its resources.
	Stop() error

	// Address returns where the transport is reachable.
	Address() string

	// Done is closed when the transport stops serving on its own or after Stop.
	Done() <-chan struct{}
}

// RequestHandler processes one decoded request.
type RequestHandler interface {
	HandleRequest(ctx context.Context, req wire.Request) wire.Response
}

// FocusService is the service surface the dispatcher exposes.
type FocusService interface {
	StartTimer(ctx context.Context, hours float64) error
	StopTimer(ctx context.Context) error
	Status(ctx context.Context) (domain.Status, error)
	AddAllowedSite(ctx context.Context, site string) (domain.AllowList, error)
	RemoveAllowedSite(ctx context.Context, site string) (domain.AllowList, error)
	UpdateAllowedSites(ctx context.Context, sites domain.AllowList) error
	BlockMessage(ctx context.Context) (string, error)
	SetBlockMessage(ctx context.Context, msg string) error
	ExportSites(ctx context.Context) ([]byte, error)
	ImportSites(ctx context.Context, data []byte) (domain.AllowList, error)
	Rules(ctx context.Context) ([]domain.BlockRule, error)
	CheckNavigation(ctx context.Context, req domain.NavigationRequest) (domain.BlockDecision, error)
	BlockedPage(ctx context.Context, rawURL string) (domain.BlockedPage, error)
}

// TransportType names a transport implementation.
type TransportType string

const (
	// TransportStdio is browser native messaging on stdin/stdout.
	TransportStdio TransportType = "stdio"
	// TransportUnix is native messaging framing on a unix domain socket.
	TransportUnix TransportType = "unix"
	// TransportHTTP is a JSON API on a loopback TCP address.
	TransportHTTP TransportType = "http"
)
