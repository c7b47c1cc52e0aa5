package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/haukened/focusd/internal/focus/common/log"
	"github.com/haukened/focusd/internal/focus/gateways/wire"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

var (
	// ErrNotLoopback is returned when the http transport is asked to listen
	// beyond the local machine. The API is unauthenticated.
	ErrNotLoopback = errors.New("http transport must listen on a loopback address")
	// ErrRouteNotFound answers requests for unknown endpoints.
	ErrRouteNotFound = errors.New("no such endpoint")
	// ErrMethodNotAllowed answers known endpoints called with the wrong method.
	ErrMethodNotAllowed = errors.New("method not allowed")
)

// IsLoopbackAddr reports whether addr is host:port with host localhost or a
// loopback IP. An empty host means every interface and is rejected.
func IsLoopbackAddr(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// HTTPTransport serves a loopback JSON API. Every route maps to one wire
// request, so responses have the same shape as native messaging replies.
type HTTPTransport struct {
	addr   string
	codec  wire.MessageCodec
	logger log.Logger

	mu      sync.Mutex
	running bool
	ln      net.Listener
	srv     *http.Server
	done    chan struct{}
}

// NewHTTPTransport creates a transport listening on addr, a loopback host:port.
func NewHTTPTransport(addr string, codec wire.MessageCodec, logger log.Logger) *HTTPTransport {
	return &HTTPTransport{
		addr:   addr,
		codec:  codec,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Start binds addr and serves in the background.
func (t *HTTPTransport) Start(ctx context.Context, handler RequestHandler) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return errors.New("http transport already running")
	}
	if !IsLoopbackAddr(t.addr) {
		return fmt.Errorf("%w: %s", ErrNotLoopback, t.addr)
	}

	ln, err := net.Listen("tcp", t.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", t.addr, err)
	}

	t.ln = ln
	t.srv = &http.Server{
		Handler:           t.Router(handler),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	t.running = true

	t.logger.Info(map[string]any{
		"transport": "http",
		"address":   ln.Addr().String(),
	}, "Focus transport started")

	go t.serve(t.srv, ln)
	return nil
}

func (t *HTTPTransport) serve(srv *http.Server, ln net.Listener) {
	defer close(t.done)
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		t.logger.Error(map[string]any{"error": err.Error()}, "HTTP server failed")
	}
}

// Router returns the route table bound to handler.
func (t *HTTPTransport) Router(handler RequestHandler) *httprouter.Router {
	router := httprouter.New()
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.respondStatus(w, http.StatusNotFound, wire.Fail(fmt.Errorf("%w: %s %s", ErrRouteNotFound, r.Method, r.URL.Path)))
	})
	router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.respondStatus(w, http.StatusMethodNotAllowed, wire.Fail(fmt.Errorf("%w: %s %s", ErrMethodNotAllowed, r.Method, r.URL.Path)))
	})

	router.POST("/v1/message", t.messageHandler(handler))
	router.GET("/v1/status", t.actionHandler(handler, func(r *http.Request, _ httprouter.Params) (wire.Request, error) {
		return wire.Request{Action: wire.ActionGetStatus}, nil
	}))
	router.GET("/v1/rules", t.actionHandler(handler, func(r *http.Request, _ httprouter.Params) (wire.Request, error) {
		return wire.Request{Action: wire.ActionGetRules}, nil
	}))
	router.GET("/v1/export", t.actionHandler(handler, func(r *http.Request, _ httprouter.Params) (wire.Request, error) {
		return wire.Request{Action: wire.ActionExportSites}, nil
	}))
	router.POST("/v1/import", t.actionHandler(handler, func(r *http.Request, _ httprouter.Params) (wire.Request, error) {
		body, err := readBody(r)
		if err != nil {
			return wire.Request{}, err
		}
		return wire.Request{Action: wire.ActionImportSites, Data: string(body)}, nil
	}))
	router.GET("/v1/blocked", t.actionHandler(handler, func(r *http.Request, _ httprouter.Params) (wire.Request, error) {
		return wire.Request{Action: wire.ActionBlockedPage, URL: r.URL.Query().Get("url")}, nil
	}))
	router.POST("/v1/timer/start", t.actionHandler(handler, func(r *http.Request, _ httprouter.Params) (wire.Request, error) {
		hours, err := strconv.ParseFloat(r.URL.Query().Get("hours"), 64)
		if err != nil {
			return wire.Request{}, fmt.Errorf("invalid hours: %w", err)
		}
		return wire.Request{Action: wire.ActionStartTimer, Hours: hours}, nil
	}))
	router.POST("/v1/timer/stop", t.actionHandler(handler, func(r *http.Request, _ httprouter.Params) (wire.Request, error) {
		return wire.Request{Action: wire.ActionStopTimer}, nil
	}))
	// Sites may be full URLs such as https://example.com/, so the rest of
	// the path is the site.
	router.PUT("/v1/sites/*site", t.actionHandler(handler, func(r *http.Request, ps httprouter.Params) (wire.Request, error) {
		return wire.Request{Action: wire.ActionAddAllowedSite, Site: siteParam(ps)}, nil
	}))
	router.DELETE("/v1/sites/*site", t.actionHandler(handler, func(r *http.Request, ps httprouter.Params) (wire.Request, error) {
		return wire.Request{Action: wire.ActionRemoveAllowedSite, Site: siteParam(ps)}, nil
	}))

	return router
}

func siteParam(ps httprouter.Params) string {
	return strings.TrimPrefix(ps.ByName("site"), "/")
}

type requestBuilder func(r *http.Request, ps httprouter.Params) (wire.Request, error)

// messageHandler accepts a raw JSON request body, the same document a
// native messaging frame carries.
func (t *HTTPTransport) messageHandler(handler RequestHandler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		body, err := readBody(r)
		if err != nil {
			t.respond(w, wire.Fail(err))
			return
		}
		t.respond(w, handleFrame(r.Context(), body, t.codec, handler, t.logger))
	}
}

func (t *HTTPTransport) actionHandler(handler RequestHandler, build requestBuilder) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		req, err := build(r, ps)
		if err != nil {
			t.respond(w, wire.Fail(err))
			return
		}
		t.respond(w, handler.HandleRequest(r.Context(), req))
	}
}

func (t *HTTPTransport) respond(w http.ResponseWriter, resp wire.Response) {
	status := http.StatusOK
	if !resp.Success {
		status = http.StatusBadRequest
	}
	t.respondStatus(w, status, resp)
}

func (t *HTTPTransport) respondStatus(w http.ResponseWriter, status int, resp wire.Response) {
	out, err := t.codec.EncodeResponse(resp)
	if err != nil {
		t.logger.Error(map[string]any{"error": err.Error()}, "Failed to encode response")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(out); err != nil {
		t.logger.Debug(map[string]any{"error": err.Error()}, "Failed to write response")
	}
}

func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, wire.MaxInboundMessage+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if len(body) > wire.MaxInboundMessage {
		return nil, wire.ErrFrameTooLarge
	}
	return body, nil
}

// Stop shuts the server down, waiting briefly for in-flight requests.
func (t *HTTPTransport) Stop() error {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return nil
	}
	t.running = false
	srv := t.srv
	t.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(ctx)
	<-t.done

	t.logger.Info(map[string]any{
		"transport": "http",
		"address":   t.Address(),
	}, "Focus transport stopped")
	return err
}

// Address returns the bound address once started, otherwise the configured one.
func (t *HTTPTransport) Address() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ln != nil {
		return t.ln.Addr().String()
	}
	return t.addr
}

// Done is closed when the server stops serving.
func (t *HTTPTransport) Done() <-chan struct{} {
	return t.done
}
