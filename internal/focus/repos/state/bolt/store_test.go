package bolt

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bbolt "go.etcd.io/bbolt"

	"github.com/haukened/focusd/internal/focus/domain"
	"github.com/haukened/focusd/internal/focus/repos/state"
)

func tempDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "focusd.db")
}

func TestBoltStore_GetSet(t *testing.T) {
	st, err := New(tempDB(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	vals, err := st.Get("missing")
	require.NoError(t, err)
	assert.Empty(t, vals)

	require.NoError(t, st.Set(map[string][]byte{
		"isActive":     []byte("true"),
		"allowedSites": []byte(`["example.com"]`),
	}))

	vals, err = st.Get("isActive", "allowedSites", "missing")
	require.NoError(t, err)
	assert.Len(t, vals, 2)
	assert.Equal(t, "true", string(vals["isActive"]))
	assert.Equal(t, `["example.com"]`, string(vals["allowedSites"]))
}

func TestBoltStore_SurvivesReopen(t *testing.T) {
	path := tempDB(t)

	st, err := New(path)
	require.NoError(t, err)
	repo := state.NewRepository(st)
	_, err = repo.Initialize(state.DefaultBlockMessage, nil)
	require.NoError(t, err)
	require.NoError(t, repo.SaveAllowList(domain.AllowList{"example.com"}))
	require.NoError(t, repo.Close())

	st, err = New(path)
	require.NoError(t, err)
	repo = state.NewRepository(st)
	t.Cleanup(func() { _ = repo.Close() })

	wrote, err := repo.Initialize(state.DefaultBlockMessage, nil)
	require.NoError(t, err)
	assert.False(t, wrote)

	l, err := repo.AllowList()
	require.NoError(t, err)
	assert.Equal(t, domain.AllowList{"example.com"}, l)
}

func TestBoltStore_ClosedErrors(t *testing.T) {
	st, err := New(tempDB(t))
	require.NoError(t, err)
	require.NoError(t, st.Close())

	_, err = st.Get("isActive")
	assert.Error(t, err)
	assert.Error(t, st.Set(map[string][]byte{"isActive": []byte("true")}))
}

func TestNew_BadPath(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing", "dir", "focusd.db"))
	assert.Error(t, err)
}

type fakeBucketCreator struct{ err error }

func (f fakeBucketCreator) CreateBucketIfNotExists([]byte) (*bbolt.Bucket, error) {
	return nil, f.err
}

func TestNew_EnsureBucketsError(t *testing.T) {
	boom := errors.New("no space")
	old := ensureBucketsFn
	ensureBucketsFn = func(bucketCreator) error { return ensureBuckets(fakeBucketCreator{err: boom}) }
	defer func() { ensureBucketsFn = old }()

	st, err := New(tempDB(t))
	assert.Nil(t, st)
	assert.ErrorIs(t, err, boom)
}
