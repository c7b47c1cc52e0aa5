package transport

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/haukened/focusd/internal/focus/domain"
	"github.com/haukened/focusd/internal/focus/gateways/wire"
)

// testLogger provides a no-op logger for tests that don't need to verify logging
type testLogger struct{}

func (t *testLogger) Info(map[string]any, string)  {}
func (t *testLogger) Error(map[string]any, string) {}
func (t *testLogger) Debug(map[string]any, string) {}
func (t *testLogger) Warn(map[string]any, string)  {}
func (t *testLogger) Panic(map[string]any, string) {}
func (t *testLogger) Fatal(map[string]any, string) {}

// handlerFunc adapts a function to RequestHandler.
type handlerFunc func(ctx context.Context, req wire.Request) wire.Response

func (f handlerFunc) HandleRequest(ctx context.Context, req wire.Request) wire.Response {
	return f(ctx, req)
}

// echoHandler answers every request with its action.
var echoHandler = handlerFunc(func(_ context.Context, req wire.Request) wire.Response {
	return wire.OK(map[string]string{"action": req.Action})
})

// frame builds a native messaging frame around payload.
func frame(payload string) []byte {
	out := make([]byte, 4+len(payload))
	binary.LittleEndian.PutUint32(out, uint32(len(payload)))
	copy(out[4:], payload)
	return out
}

// readFrames splits a stream of frames into payload strings.
func readFrames(t *testing.T, data []byte) []string {
	t.Helper()
	var out []string
	r := bytes.NewReader(data)
	codec := wire.NewNativeCodec()
	for r.Len() > 0 {
		msg, err := codec.ReadMessage(r)
		require.NoError(t, err)
		out = append(out, string(msg))
	}
	return out
}

// MockFocusService implements FocusService for testing
type MockFocusService struct {
	mock.Mock
}

func (m *MockFocusService) StartTimer(ctx context.Context, hours float64) error {
	return m.Called(ctx, hours).Error(0)
}

func (m *MockFocusService) StopTimer(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockFocusService) Status(ctx context.Context) (domain.Status, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.Status), args.Error(1)
}

func (m *MockFocusService) AddAllowedSite(ctx context.Context, site string) (domain.AllowList, error) {
	args := m.Called(ctx, site)
	return args.Get(0).(domain.AllowList), args.Error(1)
}

func (m *MockFocusService) RemoveAllowedSite(ctx context.Context, site string) (domain.AllowList, error) {
	args := m.Called(ctx, site)
	return args.Get(0).(domain.AllowList), args.Error(1)
}

func (m *MockFocusService) UpdateAllowedSites(ctx context.Context, sites domain.AllowList) error {
	return m.Called(ctx, sites).Error(0)
}

func (m *MockFocusService) BlockMessage(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockFocusService) SetBlockMessage(ctx context.Context, msg string) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *MockFocusService) ExportSites(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockFocusService) ImportSites(ctx context.Context, data []byte) (domain.AllowList, error) {
	args := m.Called(ctx, data)
	return args.Get(0).(domain.AllowList), args.Error(1)
}

func (m *MockFocusService) Rules(ctx context.Context) ([]domain.BlockRule, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.BlockRule), args.Error(1)
}

func (m *MockFocusService) CheckNavigation(ctx context.Context, req domain.NavigationRequest) (domain.BlockDecision, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.BlockDecision), args.Error(1)
}

func (m *MockFocusService) BlockedPage(ctx context.Context, rawURL string) (domain.BlockedPage, error) {
	args := m.Called(ctx, rawURL)
	return args.Get(0).(domain.BlockedPage), args.Error(1)
}
