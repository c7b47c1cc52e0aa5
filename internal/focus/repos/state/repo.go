package state

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/haukened/focusd/internal/focus/domain"
)

// Repository reads and writes typed focusd state over a Store.
type Repository struct {
	store Store
}

// NewRepository wraps store.
func NewRepository(store Store) *Repository {
	return &Repository{store: store}
}

// Initialize writes defaults for keys that were never set: the allow list
// (sites, or empty when nil), an inactive timer and defaultMessage. All
// defaults go out in one write. It reports whether anything was written.
func (r *Repository) Initialize(defaultMessage string, sites domain.AllowList) (bool, error) {
	vals, err := r.store.Get(KeyAllowedSites, KeyIsActive, KeyBlockMessage)
	if err != nil {
		return false, fmt.Errorf("failed to read state: %w", err)
	}

	updates := make(map[string]any)
	if isNull(vals[KeyAllowedSites]) {
		if sites == nil {
			sites = domain.AllowList{}
		}
		updates[KeyAllowedSites] = sites
	}
	if _, ok := vals[KeyIsActive]; !ok {
		updates[KeyIsActive] = false
	}
	var msg string
	if err := decode(vals, KeyBlockMessage, &msg); err != nil {
		return false, err
	}
	if msg == "" {
		updates[KeyBlockMessage] = defaultMessage
	}
	if len(updates) == 0 {
		return false, nil
	}
	if err := r.set(updates); err != nil {
		return false, err
	}
	return true, nil
}

// Installed reports whether Initialize has run against the store.
func (r *Repository) Installed() (bool, error) {
	vals, err := r.store.Get(KeyAllowedSites)
	if err != nil {
		return false, fmt.Errorf("failed to read state: %w", err)
	}
	return !isNull(vals[KeyAllowedSites]), nil
}

// Timer loads the persisted timer state.
func (r *Repository) Timer() (domain.TimerState, error) {
	vals, err := r.store.Get(KeyIsActive, KeyTimerEndTime, KeyTimerDuration)
	if err != nil {
		return domain.TimerState{}, fmt.Errorf("failed to read timer: %w", err)
	}

	var st domain.TimerState
	if err := decode(vals, KeyIsActive, &st.IsActive); err != nil {
		return domain.TimerState{}, err
	}
	var endMs, durMs *int64
	if err := decode(vals, KeyTimerEndTime, &endMs); err != nil {
		return domain.TimerState{}, err
	}
	if err := decode(vals, KeyTimerDuration, &durMs); err != nil {
		return domain.TimerState{}, err
	}
	if endMs != nil {
		end := time.UnixMilli(*endMs)
		st.EndTime = &end
	}
	if durMs != nil {
		d := time.Duration(*durMs) * time.Millisecond
		st.Duration = &d
	}
	return st, nil
}

// SaveTimer persists the timer; unset end time and duration are stored as null.
func (r *Repository) SaveTimer(t domain.TimerState) error {
	var endMs, durMs *int64
	if t.EndTime != nil {
		v := t.EndTime.UnixMilli()
		endMs = &v
	}
	if t.Duration != nil {
		v := t.Duration.Milliseconds()
		durMs = &v
	}
	return r.set(map[string]any{
		KeyIsActive:      t.IsActive,
		KeyTimerEndTime:  endMs,
		KeyTimerDuration: durMs,
	})
}

// AllowList loads the allow list, empty when never set.
func (r *Repository) AllowList() (domain.AllowList, error) {
	vals, err := r.store.Get(KeyAllowedSites)
	if err != nil {
		return nil, fmt.Errorf("failed to read allow list: %w", err)
	}
	var l domain.AllowList
	if err := decode(vals, KeyAllowedSites, &l); err != nil {
		return nil, err
	}
	if l == nil {
		l = domain.AllowList{}
	}
	return l, nil
}

// SaveAllowList persists l as given.
func (r *Repository) SaveAllowList(l domain.AllowList) error {
	if l == nil {
		l = domain.AllowList{}
	}
	return r.set(map[string]any{KeyAllowedSites: l})
}

// BlockMessage loads the block page message.
func (r *Repository) BlockMessage() (string, error) {
	vals, err := r.store.Get(KeyBlockMessage)
	if err != nil {
		return "", fmt.Errorf("failed to read block message: %w", err)
	}
	var msg string
	if err := decode(vals, KeyBlockMessage, &msg); err != nil {
		return "", err
	}
	return msg, nil
}

// SaveBlockMessage persists msg with surrounding whitespace trimmed.
func (r *Repository) SaveBlockMessage(msg string) error {
	return r.set(map[string]any{KeyBlockMessage: strings.TrimSpace(msg)})
}

// Close closes the underlying store.
func (r *Repository) Close() error {
	return r.store.Close()
}

func (r *Repository) set(values map[string]any) error {
	enc := make(map[string][]byte, len(values))
	for k, v := range values {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", k, err)
		}
		enc[k] = b
	}
	if err := r.store.Set(enc); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	return nil
}

// decode unmarshals vals[key] into dst, leaving dst untouched when the key is missing.
func decode(vals map[string][]byte, key string, dst any) error {
	raw, ok := vals[key]
	if !ok {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("corrupt value for %s: %w", key, err)
	}
	return nil
}

func isNull(raw []byte) bool {
	return raw == nil || strings.TrimSpace(string(raw)) == "null"
}
