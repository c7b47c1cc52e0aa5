package transport

import (
	"fmt"
	"os"
	"slices"

	"github.com/haukened/focusd/internal/focus/common/log"
	"github.com/haukened/focusd/internal/focus/gateways/wire"
)

// NewTransport creates a transport of the given type. addr is ignored for
// stdio, a socket path for unix and host:port for http.
func NewTransport(transportType TransportType, addr string, codec wire.MessageCodec, logger log.Logger) (ServerTransport, error) {
	switch transportType {
	case TransportStdio:
		return NewStdioTransport(os.Stdin, os.Stdout, codec, logger), nil

	case TransportUnix:
		if addr == "" {
			return nil, fmt.Errorf("unix transport requires a socket path")
		}
		return NewUnixTransport(addr, codec, logger), nil

	case TransportHTTP:
		if addr == "" {
			return nil, fmt.Errorf("http transport requires a listen address")
		}
		return NewHTTPTransport(addr, codec, logger), nil

	default:
		return nil, fmt.Errorf("unsupported transport type: %s", transportType)
	}
}

// GetSupportedTransports returns the implemented transport types.
func GetSupportedTransports() []TransportType {
	return []TransportType{TransportStdio, TransportUnix, TransportHTTP}
}

// IsTransportSupported reports whether transportType is implemented.
func IsTransportSupported(transportType TransportType) bool {
	return slices.Contains(GetSupportedTransports(), transportType)
}
