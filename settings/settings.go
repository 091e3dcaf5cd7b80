// Package settings provides namespaced string key-value persistence with
// NVS-style key limits. Backends share one contract so data written on a
// board image and data written by the host daemon stay interchangeable:
//
//	ns, _ := store.Open("ir_codes")
//	ns.SetString("code_tv_pwr", record)
//	v := ns.GetString("code_tv_pwr", "")
//
// Keys are capped at MaxKeyLen bytes in every backend, matching the
// strictest flash layout in the field, so callers must derive short keys
// regardless of how roomy the active backend is.
package settings

import "errors"

// MaxKeyLen is the longest key any backend accepts, in bytes.
const MaxKeyLen = 15

var (
	ErrEmptyKey   = errors.New("settings: empty key")
	ErrKeyTooLong = errors.New("settings: key exceeds MaxKeyLen")
)

// Store opens namespaces. Implementations are safe for concurrent use.
type Store interface {
	Open(namespace string) (Namespace, error)
	Close() error
}

// Namespace is one isolated key-value space.
type Namespace interface {
	// GetString returns the stored value, or def when the key is absent.
	GetString(key, def string) string
	SetString(key, value string) error
	// EraseKey removes key; removing an absent key is not an error.
	EraseKey(key string) error
	// EraseAll removes every key in this namespace.
	EraseAll() error
}

// CheckKey validates a key against the shared limits.
func CheckKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if len(key) > MaxKeyLen {
		return ErrKeyTooLong
	}
	return nil
}
