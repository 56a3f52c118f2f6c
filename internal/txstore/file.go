package txstore

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
)

// recordVersion tags the on-disk format. Readers tolerate unknown fields but
// reject unknown versions outright.
const recordVersion = 1

const (
	dirMode  = 0o750 // records contain secrets, never world-accessible
	fileMode = 0o600
)

// fileRecord is the persisted JSON contract:
//
//	{ "ver": 1, "cv": "<verifier-or-hash>", "meta": {...}, "iat": <unix>, "exp": <unix> }
type fileRecord struct {
	Ver  int               `json:"ver"`
	CV   string            `json:"cv"`
	Meta map[string]string `json:"meta,omitempty"`
	Iat  int64             `json:"iat"`
	Exp  int64             `json:"exp"`
}

// FileStore is the durable Store backend for split deployments, where the
// process initiating an OAuth flow and the process handling its callback
// share a filesystem rather than memory.
//
// Each transaction lives at base/pending/<state>.json and moves to
// base/consumed/<state>.json with a single rename. The two disjoint
// namespaces make existence a plain stat and consumption one atomic step.
// FileStore holds no in-process lock: the filesystem's rename atomicity is
// the arbitration point between racing consumers.
type FileStore struct {
	baseDir      string
	pendingDir   string
	consumedDir  string
	ttl          time.Duration
	hashVerifier bool
}

// NewFileStore creates the pending/ and consumed/ directories under baseDir
// and returns a FileStore with the given default TTL.
//
// With hashVerifier enabled the store persists an irreversible SHA-256 of
// each code verifier instead of the raw secret; Consume then always fails
// with ErrStore, since a hash must never masquerade as the verifier. The
// factory rejects this combination in split mode up front.
func NewFileStore(baseDir string, ttl time.Duration, hashVerifier bool) (*FileStore, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("%w: ttl must be positive, got %v", ErrConfig, ttl)
	}
	if baseDir == "" {
		return nil, fmt.Errorf("%w: base directory must be provided", ErrConfig)
	}

	resolved, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot resolve base directory %s: %v", ErrConfig, baseDir, err)
	}

	s := &FileStore{
		baseDir:      resolved,
		pendingDir:   filepath.Join(resolved, "pending"),
		consumedDir:  filepath.Join(resolved, "consumed"),
		ttl:          ttl,
		hashVerifier: hashVerifier,
	}

	for _, dir := range []string{s.pendingDir, s.consumedDir} {
		if err := os.MkdirAll(dir, dirMode); err != nil {
			return nil, fmt.Errorf("%w: failed to create %s: %v", ErrStore, dir, err)
		}
	}

	return s, nil
}

// Create refuses states with an existing pending or consumed record, then
// writes the new record to a temp file in pending/, fsyncs it, and atomically
// renames it into place. A crash mid-write leaves only an orphaned temp file,
// never a partially-written record under the final name.
func (s *FileStore) Create(state, codeVerifier string, meta map[string]string, ttl time.Duration) error {
	if err := validateState(state); err != nil {
		return err
	}

	// Pre-check immediately before the atomic write: a racing creator's
	// record makes the loser fail observably.
	for _, path := range []string{s.pendingPath(state), s.consumedPath(state)} {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrUsed, state)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: failed to stat %s: %v", ErrStore, path, err)
		}
	}

	cv := codeVerifier
	if s.hashVerifier {
		cv = hashSecret(codeVerifier)
	}

	now := time.Now().UTC()
	rec := fileRecord{
		Ver:  recordVersion,
		CV:   cv,
		Meta: copyMeta(meta),
		Iat:  now.Unix(),
		Exp:  now.Add(ttl).Unix(),
	}

	return s.writeAtomic(s.pendingPath(state), rec)
}

// Consume renames pending/<state>.json to consumed/<state>.json in a single
// atomic step, then reads and validates the record.
//
// When two processes race, exactly one rename succeeds; the loser observes a
// missing source and maps it to ErrUsed (the consumed record's existence
// means someone already won) or ErrNotFound (nothing existed at all). A
// cross-filesystem rename fails with ErrConfig rather than degrading to a
// non-atomic copy and delete.
func (s *FileStore) Consume(state string) (Transaction, error) {
	if err := validateState(state); err != nil {
		return Transaction{}, err
	}

	pend := s.pendingPath(state)
	cons := s.consumedPath(state)

	if err := os.Rename(pend, cons); err != nil {
		if isCrossDevice(err) {
			return Transaction{}, fmt.Errorf("%w: pending and consumed directories are on different filesystems; atomic consumption is impossible", ErrConfig)
		}
		if errors.Is(err, fs.ErrNotExist) {
			if _, statErr := os.Stat(cons); statErr == nil {
				return Transaction{}, fmt.Errorf("%w: %s", ErrUsed, state)
			}
			return Transaction{}, fmt.Errorf("%w: %s", ErrNotFound, state)
		}
		return Transaction{}, fmt.Errorf("%w: failed to consume %s: %v", ErrStore, state, err)
	}

	rec, err := s.readRecord(cons)
	if err != nil {
		return Transaction{}, err
	}

	if s.hashVerifier {
		// Only the irreversible hash is on disk. Returning it as if it were
		// the verifier would break the token exchange silently, so surface
		// the misconfiguration instead.
		return Transaction{}, fmt.Errorf("%w: store is configured to hash code verifiers; raw verifier is not recoverable for %s", ErrStore, state)
	}

	tx := Transaction{
		State:        state,
		CodeVerifier: rec.CV,
		Meta:         rec.Meta,
		IssuedAt:     time.Unix(rec.Iat, 0).UTC(),
		ExpiresAt:    time.Unix(rec.Exp, 0).UTC(),
	}

	if tx.Expired(time.Now().UTC()) {
		// The record stays in consumed/, blocking replay: a retried Consume
		// reports ErrUsed.
		return Transaction{}, fmt.Errorf("%w: %s", ErrExpired, state)
	}

	return tx, nil
}

// Exists reports whether a pending or consumed record exists for state.
func (s *FileStore) Exists(state string) (bool, error) {
	for _, path := range []string{s.pendingPath(state), s.consumedPath(state)} {
		if _, err := os.Stat(path); err == nil {
			return true, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return false, fmt.Errorf("%w: failed to stat %s: %v", ErrStore, path, err)
		}
	}
	return false, nil
}

// PurgeExpired scans pending/ and deletes records whose expiry has passed at
// ref. Deletion, not a move: a later reference to a purged state degrades to
// ErrNotFound, which still forces a fresh auth flow.
func (s *FileStore) PurgeExpired(ref time.Time) (int, error) {
	entries, err := os.ReadDir(s.pendingDir)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to scan %s: %v", ErrStore, s.pendingDir, err)
	}

	purged := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		path := filepath.Join(s.pendingDir, entry.Name())
		rec, err := s.readRecord(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue // consumed by a racer mid-scan
			}
			return purged, err
		}

		if !ref.Before(time.Unix(rec.Exp, 0)) {
			if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return purged, fmt.Errorf("%w: failed to remove %s: %v", ErrStore, path, err)
			}
			purged++
		}
	}

	return purged, nil
}

// Count purges expired records then returns the number of pending ones.
func (s *FileStore) Count() (int, error) {
	if _, err := s.PurgeExpired(time.Now().UTC()); err != nil {
		return 0, err
	}
	return s.countPending()
}

// TTL returns the store-level default TTL.
func (s *FileStore) TTL() time.Duration {
	return s.ttl
}

// StartupCheck pushes a throwaway marker through the same write, rename and
// delete path used by real transactions, proving the filesystem supports
// atomic consumption under the configured permissions before the store is
// trusted. Returns a descriptive status map.
func (s *FileStore) StartupCheck() (map[string]any, error) {
	// Marker carries no .json suffix so scans never see it.
	name := "startup-check-" + uuid.New().String()
	pend := filepath.Join(s.pendingDir, name)
	cons := filepath.Join(s.consumedDir, name)

	rec := fileRecord{Ver: recordVersion, CV: "check", Iat: time.Now().Unix(), Exp: time.Now().Unix()}
	if err := s.writeAtomic(pend, rec); err != nil {
		return nil, fmt.Errorf("%w: startup check write failed: %v", ErrStore, err)
	}

	if err := os.Rename(pend, cons); err != nil {
		os.Remove(pend)
		if isCrossDevice(err) {
			return nil, fmt.Errorf("%w: pending and consumed directories are on different filesystems", ErrConfig)
		}
		return nil, fmt.Errorf("%w: startup check rename failed: %v", ErrStore, err)
	}

	if err := os.Remove(cons); err != nil {
		return nil, fmt.Errorf("%w: startup check cleanup failed: %v", ErrStore, err)
	}

	info, err := os.Stat(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to stat %s: %v", ErrStore, s.baseDir, err)
	}

	pending, err := s.countPending()
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"backend":       "file",
		"dir":           s.baseDir,
		"permissions":   fmt.Sprintf("%04o", info.Mode().Perm()),
		"pending":       pending,
		"ttl_seconds":   int(s.ttl.Seconds()),
		"hash_verifier": s.hashVerifier,
		"writable":      true,
	}, nil
}

func (s *FileStore) pendingPath(state string) string {
	return filepath.Join(s.pendingDir, state+".json")
}

func (s *FileStore) consumedPath(state string) string {
	return filepath.Join(s.consumedDir, state+".json")
}

// writeAtomic writes rec to a temp file in the destination's directory,
// flushes it to disk, and renames it into place. The temp file lives in the
// same directory so the rename never crosses a filesystem boundary.
func (s *FileStore) writeAtomic(dest string, rec fileRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: failed to encode record: %v", ErrStore, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".tx-*")
	if err != nil {
		return fmt.Errorf("%w: failed to create temp file: %v", ErrStore, err)
	}

	cleanup := func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("%w: failed to write record: %v", ErrStore, err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("%w: failed to sync record: %v", ErrStore, err)
	}
	if err := tmp.Chmod(fileMode); err != nil {
		cleanup()
		return fmt.Errorf("%w: failed to set record mode: %v", ErrStore, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: failed to close record: %v", ErrStore, err)
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: failed to publish record: %v", ErrStore, err)
	}

	return nil
}

// readRecord parses and validates one on-disk record. Unknown fields are
// tolerated; an unknown version is rejected, never silently misinterpreted.
func (s *FileStore) readRecord(path string) (fileRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fileRecord{}, err
		}
		return fileRecord{}, fmt.Errorf("%w: failed to read %s: %v", ErrStore, path, err)
	}

	var rec fileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return fileRecord{}, fmt.Errorf("%w: malformed record %s: %v", ErrStore, path, err)
	}
	if rec.Ver != recordVersion {
		return fileRecord{}, fmt.Errorf("%w: unsupported record version %d in %s", ErrStore, rec.Ver, path)
	}

	return rec, nil
}

// countPending counts pending records without purging.
func (s *FileStore) countPending() (int, error) {
	entries, err := os.ReadDir(s.pendingDir)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to scan %s: %v", ErrStore, s.pendingDir, err)
	}

	n := 0
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			n++
		}
	}
	return n, nil
}

// hashSecret returns the hex SHA-256 of a code verifier for at-rest storage.
func hashSecret(v string) string {
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:])
}

// isCrossDevice reports whether err is a cross-filesystem rename failure.
func isCrossDevice(err error) bool {
	return errors.Is(err, syscall.EXDEV)
}
