package transport

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/haukened/focusd/internal/focus/common/log"
	"github.com/haukened/focusd/internal/focus/gateways/wire"
)

// StdioTransport is a native messaging host: the browser writes framed
// requests to stdin and reads framed responses from stdout.
type StdioTransport struct {
	in     io.Reader
	out    io.Writer
	codec  wire.MessageCodec
	logger log.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	done    chan struct{}
	err     error
}

// NewStdioTransport creates a transport reading from in and writing to out.
func NewStdioTransport(in io.Reader, out io.Writer, codec wire.MessageCodec, logger log.Logger) *StdioTransport {
	return &StdioTransport{
		in:     in,
		out:    out,
		codec:  codec,
		logger: logger,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start runs the message loop in the background.
func (t *StdioTransport) Start(ctx context.Context, handler RequestHandler) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return errors.New("stdio transport already running")
	}
	select {
	case <-t.done:
		return errors.New("stdio transport already finished")
	default:
	}
	t.running = true

	t.logger.Info(map[string]any{"transport": "stdio"}, "Focus transport started")
	go t.loop(ctx, handler)
	return nil
}

func (t *StdioTransport) loop(ctx context.Context, handler RequestHandler) {
	err := serveStream(ctx, t.in, t.out, t.codec, handler, t.logger, t.stopCh)
	select {
	case <-t.stopCh:
		// Stop closes the reader; the read error that follows is expected.
		err = nil
	default:
	}

	t.mu.Lock()
	t.err = err
	t.running = false
	t.mu.Unlock()

	if err != nil && !errors.Is(err, context.Canceled) {
		t.logger.Error(map[string]any{"error": err.Error()}, "Native messaging stream failed")
	} else {
		t.logger.Info(nil, "Native messaging stream closed")
	}
	close(t.done)
}

// Stop asks the loop to exit after the request in flight. A loop blocked
// reading stdin exits when the browser closes the pipe.
func (t *StdioTransport) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	select {
	case <-t.stopCh:
	default:
		close(t.stopCh)
	}
	if c, ok := t.in.(io.Closer); ok && t.running {
		return c.Close()
	}
	return nil
}

// Address returns "stdio".
func (t *StdioTransport) Address() string {
	return string(TransportStdio)
}

// Done is closed when the message loop exits.
func (t *StdioTransport) Done() <-chan struct{} {
	return t.done
}

// Err returns the error that ended the loop, if any.
func (t *StdioTransport) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}
