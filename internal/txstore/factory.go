package txstore

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

// Config selects and parameterizes a transaction store backend.
// Zero values fall back to the session-minutes TTL and the memory backend.
type Config struct {
	// SplitMode selects the filesystem backend for deployments where the
	// OAuth-initiating process differs from the callback-handling process.
	SplitMode bool

	// StateDir is the filesystem backend's base directory.
	StateDir string

	// TTLSeconds is the explicit transaction TTL. Takes precedence over
	// SessionMinutes when positive.
	TTLSeconds int

	// SessionMinutes derives the TTL from the session length when
	// TTLSeconds is unset.
	SessionMinutes int

	// HashVerifier stores an irreversible hash of each code verifier
	// instead of the raw secret. Incompatible with split mode, where the
	// callback process needs the raw verifier to complete the exchange.
	HashVerifier bool
}

// EffectiveTTL computes the store TTL: explicit seconds when positive,
// otherwise the session length.
func (c Config) EffectiveTTL() time.Duration {
	if c.TTLSeconds > 0 {
		return time.Duration(c.TTLSeconds) * time.Second
	}
	return time.Duration(c.SessionMinutes) * time.Minute
}

// New constructs the transaction store backend for cfg and runs its startup
// self-check before returning it.
//
// Split mode with verifier hashing enabled fails fast: it would produce a
// store that always fails at consumption time. Split mode on a backend
// without a startup check is likewise rejected, as defense against wiring a
// non-durable store into a multi-process deployment.
func New(cfg Config, logger *log.Logger) (Store, error) {
	if logger == nil {
		logger = log.Default()
	}

	ttl := cfg.EffectiveTTL()
	if ttl <= 0 {
		return nil, fmt.Errorf("%w: ttl must be positive, got %v", ErrConfig, ttl)
	}

	var store Store
	if cfg.SplitMode {
		if cfg.HashVerifier {
			return nil, fmt.Errorf("%w: hash_verifier cannot be enabled in split mode; the callback process needs the raw verifier to complete the token exchange", ErrConfig)
		}
		fs, err := NewFileStore(cfg.StateDir, ttl, cfg.HashVerifier)
		if err != nil {
			return nil, err
		}
		store = fs
	} else {
		ms, err := NewMemoryStore(ttl)
		if err != nil {
			return nil, err
		}
		store = ms
	}

	if checker, ok := store.(Checker); ok {
		status, err := checker.StartupCheck()
		if err != nil {
			return nil, err
		}
		logger.Info("transaction store ready", "status", status)
	} else if cfg.SplitMode {
		return nil, fmt.Errorf("%w: split mode requires a backend with a startup check", ErrConfig)
	} else {
		logger.Debug("transaction store ready", "backend", "memory", "ttl", ttl)
	}

	return store, nil
}
