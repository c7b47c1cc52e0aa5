package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"

	"github.com/haukened/focusd/internal/focus/common/log"
	"github.com/haukened/focusd/internal/focus/gateways/wire"
)

// UnixTransport serves native messaging frames on a unix domain socket.
// Each connection is a sequential request stream of its own.
type UnixTransport struct {
	path   string
	ln     net.Listener
	codec  wire.MessageCodec
	logger log.Logger

	mu      sync.Mutex
	running bool
	conns   map[net.Conn]struct{}
	wg      sync.WaitGroup
	stopCh  chan struct{}
	done    chan struct{}
}

// NewUnixTransport creates a transport listening on the socket at path.
func NewUnixTransport(path string, codec wire.MessageCodec, logger log.Logger) *UnixTransport {
	return &UnixTransport{
		path:   path,
		codec:  codec,
		logger: logger,
		conns:  make(map[net.Conn]struct{}),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start binds the socket and accepts connections in the background. A
// stale socket file left by a previous run is removed first.
func (t *UnixTransport) Start(ctx context.Context, handler RequestHandler) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return errors.New("unix transport already running")
	}
	if err := removeStaleSocket(t.path); err != nil {
		return err
	}

	ln, err := net.Listen("unix", t.path)
	if err != nil {
		return fmt.Errorf("failed to listen on unix socket %s: %w", t.path, err)
	}
	if err := os.Chmod(t.path, 0o600); err != nil {
		_ = ln.Close()
		return fmt.Errorf("failed to restrict unix socket %s: %w", t.path, err)
	}

	t.ln = ln
	t.running = true

	t.logger.Info(map[string]any{
		"transport": "unix",
		"address":   t.path,
	}, "Focus transport started")

	go t.acceptLoop(ctx, handler)
	return nil
}

func removeStaleSocket(path string) error {
	fi, err := os.Lstat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat unix socket %s: %w", path, err)
	}
	if fi.Mode()&os.ModeSocket == 0 {
		return fmt.Errorf("refusing to replace non-socket file %s", path)
	}
	return os.Remove(path)
}

func (t *UnixTransport) acceptLoop(ctx context.Context, handler RequestHandler) {
	defer close(t.done)
	for {
		conn, err := t.ln.Accept()
		if err != nil {
			select {
			case <-t.stopCh:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			t.logger.Warn(map[string]any{"error": err.Error()}, "Failed to accept connection")
			continue
		}

		t.mu.Lock()
		if !t.running {
			t.mu.Unlock()
			_ = conn.Close()
			return
		}
		t.conns[conn] = struct{}{}
		t.wg.Add(1)
		t.mu.Unlock()

		go t.serveConn(ctx, conn, handler)
	}
}

func (t *UnixTransport) serveConn(ctx context.Context, conn net.Conn, handler RequestHandler) {
	defer t.wg.Done()
	defer func() {
		t.mu.Lock()
		delete(t.conns, conn)
		t.mu.Unlock()
		_ = conn.Close()
	}()

	t.logger.Debug(nil, "Client connected")
	if err := serveStream(ctx, conn, conn, t.codec, handler, t.logger, t.stopCh); err != nil && !errors.Is(err, net.ErrClosed) {
		t.logger.Warn(map[string]any{"error": err.Error()}, "Client stream failed")
		return
	}
	t.logger.Debug(nil, "Client disconnected")
}

// Stop closes the listener and every open connection, waits for their
// handlers and removes the socket file.
func (t *UnixTransport) Stop() error {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return nil
	}
	t.running = false
	close(t.stopCh)

	closeErr := t.ln.Close()
	for c := range t.conns {
		_ = c.Close()
	}
	t.mu.Unlock()

	t.wg.Wait()
	<-t.done

	if err := os.Remove(t.path); err != nil && !errors.Is(err, os.ErrNotExist) && closeErr == nil {
		closeErr = err
	}
	if closeErr != nil {
		t.logger.Warn(map[string]any{"error": closeErr.Error()}, "Error closing unix socket")
	}

	t.logger.Info(map[string]any{
		"transport": "unix",
		"address":   t.path,
	}, "Focus transport stopped")
	return closeErr
}

// Address returns the socket path.
func (t *UnixTransport) Address() string {
	return t.path
}

// Done is closed when the accept loop exits.
func (t *UnixTransport) Done() <-chan struct{} {
	return t.done
}
