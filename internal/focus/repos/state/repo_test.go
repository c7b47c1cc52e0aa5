package state

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/focusd/internal/focus/domain"
)

// memStore is an in-memory Store with optional injected failures.
type memStore struct {
	data   map[string][]byte
	getErr error
	setErr error
	sets   int
}

func newMemStore() *memStore { return &memStore{data: map[string][]byte{}} }

func (m *memStore) Get(keys ...string) (map[string][]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	out := map[string][]byte{}
	for _, k := range keys {
		if v, ok := m.data[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (m *memStore) Set(values map[string][]byte) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.sets++
	for k, v := range values {
		m.data[k] = v
	}
	return nil
}

func (m *memStore) Close() error { return nil }

func TestRepository_Initialize_FirstRun(t *testing.T) {
	ms := newMemStore()
	repo := NewRepository(ms)

	wrote, err := repo.Initialize(DefaultBlockMessage, nil)
	require.NoError(t, err)
	assert.True(t, wrote)

	assert.JSONEq(t, `[]`, string(ms.data[KeyAllowedSites]))
	assert.JSONEq(t, `false`, string(ms.data[KeyIsActive]))
	assert.JSONEq(t, `"This site is blocked during your focus time."`, string(ms.data[KeyBlockMessage]))

	wrote, err = repo.Initialize(DefaultBlockMessage, nil)
	require.NoError(t, err)
	assert.False(t, wrote, "second run should not rewrite defaults")
	assert.Equal(t, 1, ms.sets)
}

func TestRepository_Initialize_KeepsExisting(t *testing.T) {
	ms := newMemStore()
	ms.data[KeyAllowedSites] = []byte(`["example.com"]`)
	ms.data[KeyIsActive] = []byte(`true`)
	ms.data[KeyBlockMessage] = []byte(`""`)
	repo := NewRepository(ms)

	wrote, err := repo.Initialize("stay focused", domain.AllowList{"ignored.com"})
	require.NoError(t, err)
	assert.True(t, wrote)

	l, err := repo.AllowList()
	require.NoError(t, err)
	assert.Equal(t, domain.AllowList{"example.com"}, l)
	assert.JSONEq(t, `true`, string(ms.data[KeyIsActive]))

	msg, err := repo.BlockMessage()
	require.NoError(t, err)
	assert.Equal(t, "stay focused", msg)
}

func TestRepository_Initialize_SeedsSites(t *testing.T) {
	ms := newMemStore()
	repo := NewRepository(ms)

	installed, err := repo.Installed()
	require.NoError(t, err)
	assert.False(t, installed)

	wrote, err := repo.Initialize(DefaultBlockMessage, domain.AllowList{"docs.example.com", "github.com"})
	require.NoError(t, err)
	assert.True(t, wrote)
	assert.Equal(t, 1, ms.sets, "defaults and seed are one write")

	l, err := repo.AllowList()
	require.NoError(t, err)
	assert.Equal(t, domain.AllowList{"docs.example.com", "github.com"}, l)

	installed, err = repo.Installed()
	require.NoError(t, err)
	assert.True(t, installed)
}

func TestRepository_Initialize_CorruptMessage(t *testing.T) {
	ms := newMemStore()
	ms.data[KeyBlockMessage] = []byte(`{not json`)
	repo := NewRepository(ms)

	_, err := repo.Initialize(DefaultBlockMessage, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt value for "+KeyBlockMessage)
	assert.Equal(t, 0, ms.sets, "nothing is written over a corrupt value")

	_, err = repo.BlockMessage()
	assert.Error(t, err)
}

func TestRepository_TimerRoundTrip(t *testing.T) {
	repo := NewRepository(newMemStore())

	st, err := repo.Timer()
	require.NoError(t, err)
	assert.False(t, st.IsActive)
	assert.Nil(t, st.EndTime)

	now := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	active, err := domain.StartTimer(now, 2)
	require.NoError(t, err)
	require.NoError(t, repo.SaveTimer(active))

	got, err := repo.Timer()
	require.NoError(t, err)
	assert.True(t, got.IsActive)
	require.NotNil(t, got.EndTime)
	assert.True(t, now.Add(2*time.Hour).Equal(*got.EndTime))
	require.NotNil(t, got.Duration)
	assert.Equal(t, 2*time.Hour, *got.Duration)

	require.NoError(t, repo.SaveTimer(domain.StoppedTimer()))
	got, err = repo.Timer()
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Nil(t, got.EndTime)
	assert.Nil(t, got.Duration)
}

func TestRepository_StoppedTimerStoresNull(t *testing.T) {
	ms := newMemStore()
	repo := NewRepository(ms)
	require.NoError(t, repo.SaveTimer(domain.StoppedTimer()))
	assert.Equal(t, "null", string(ms.data[KeyTimerEndTime]))
	assert.Equal(t, "null", string(ms.data[KeyTimerDuration]))
}

func TestRepository_AllowList(t *testing.T) {
	ms := newMemStore()
	repo := NewRepository(ms)

	l, err := repo.AllowList()
	require.NoError(t, err)
	assert.Equal(t, domain.AllowList{}, l)

	require.NoError(t, repo.SaveAllowList(domain.AllowList{"b.com", "a.com"}))
	l, err = repo.AllowList()
	require.NoError(t, err)
	assert.Equal(t, domain.AllowList{"b.com", "a.com"}, l)

	require.NoError(t, repo.SaveAllowList(nil))
	assert.Equal(t, "[]", string(ms.data[KeyAllowedSites]))
}

func TestRepository_BlockMessageTrimmed(t *testing.T) {
	repo := NewRepository(newMemStore())
	require.NoError(t, repo.SaveBlockMessage("  back to work  "))
	msg, err := repo.BlockMessage()
	require.NoError(t, err)
	assert.Equal(t, "back to work", msg)
}

func TestRepository_CorruptValue(t *testing.T) {
	ms := newMemStore()
	ms.data[KeyTimerEndTime] = []byte(`"tomorrow"`)
	repo := NewRepository(ms)

	_, err := repo.Timer()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt value for timerEndTime")
}

func TestRepository_StoreErrors(t *testing.T) {
	boom := errors.New("disk gone")

	ms := newMemStore()
	ms.getErr = boom
	repo := NewRepository(ms)
	_, err := repo.Timer()
	assert.ErrorIs(t, err, boom)
	_, err = repo.AllowList()
	assert.ErrorIs(t, err, boom)
	_, err = repo.BlockMessage()
	assert.ErrorIs(t, err, boom)
	_, err = repo.Initialize(DefaultBlockMessage, nil)
	assert.ErrorIs(t, err, boom)
	_, err = repo.Installed()
	assert.ErrorIs(t, err, boom)

	ms = newMemStore()
	ms.setErr = boom
	repo = NewRepository(ms)
	assert.ErrorIs(t, repo.SaveAllowList(domain.AllowList{"a.com"}), boom)
	assert.ErrorIs(t, repo.SaveTimer(domain.StoppedTimer()), boom)
	assert.ErrorIs(t, repo.SaveBlockMessage("x"), boom)
}
