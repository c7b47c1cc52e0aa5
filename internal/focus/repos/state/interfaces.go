// Package state persists focusd state in a key-value store using the same
// keys and JSON value encoding the browser extension storage used.
package state

// Persisted keys.
const (
	KeyAllowedSites  = "allowedSites"
	KeyIsActive      = "isActive"
	KeyBlockMessage  = "blockMessage"
	KeyTimerEndTime  = "timerEndTime"
	KeyTimerDuration = "timerDuration"
)

// DefaultBlockMessage is written on first run when no message is stored.
const DefaultBlockMessage = "This site is blocked during your focus time."

// Store is a key-value store surviving process restarts.
// - Get returns the raw values of the keys that exist; missing keys are absent from the map
// - Set writes all values in one transaction
// - Close releases resources
type Store interface {
	Get(keys ...string) (map[string][]byte, error)
	Set(values map[string][]byte) error
	Close() error
}
