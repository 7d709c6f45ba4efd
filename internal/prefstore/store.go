package prefstore

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnavailable is wrapped by every backend failure: disabled storage,
// permissions, an unreachable server, a full disk.
var ErrUnavailable = errors.New("preference store unavailable")

// Store is a durable key-value store scoped to one origin.
type Store interface {
	// Get returns the stored value and whether the key exists.
	Get(key string) (value string, ok bool, err error)

	// Set stores value under key, creating or overwriting it.
	Set(key, value string) error
}

// Clearer is implemented by stores that can delete a key.
type Clearer interface {
	Clear(key string) error
}

// Entry is a stored value with its write time.
type Entry struct {
	Value     string    `json:"value" yaml:"value"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Describer is implemented by stores that track write times.
type Describer interface {
	Entry(key string) (Entry, bool, error)
}

// Backend names.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Options selects and configures a backend.
type Options struct {
	Backend string

	// Dir is the directory per-origin files live in (file backend).
	Dir string

	// Redis settings (redis backend).
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
	RedisTimeout  time.Duration
}

// Open returns the store for origin using the configured backend.
func Open(opts Options, origin Origin) (Store, error) {
	switch opts.Backend {
	case "", BackendFile:
		if opts.Dir == "" {
			return nil, errors.New("file preference store requires a directory")
		}
		return NewFileStore(opts.Dir, origin), nil
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendRedis:
		return NewRedisStore(opts, origin), nil
	default:
		return nil, fmt.Errorf("unknown preference store backend %q", opts.Backend)
	}
}

func unavailable(op, key string, err error) error {
	return fmt.Errorf("%w: %s %s: %v", ErrUnavailable, op, key, err)
}
