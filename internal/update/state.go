package update

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var pendingRestartBucket = []byte("pending_restart")

// pendingRestart is the persisted record of an update applied but not yet
// restarted into; at most one update is pending restart per install.
type pendingRestart struct {
	Version     string `json:"version"`
	IsDowngrade bool   `json:"isDowngrade"`
	AppliedAt   string `json:"appliedAt"`
}

// StateStore persists the single pending-restart slot for one install root
// in a bbolt file under packages/.
type StateStore struct {
	db *bolt.DB
}

// OpenStateStore opens (creating if necessary) the bbolt state file at
// root/packages/state.db.
func OpenStateStore(root string) (*StateStore, error) {
	path := filepath.Join(root, "packages", "state.db")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("update: creating state store dir: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("update: opening state store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(pendingRestartBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("update: initializing state store: %w", err)
	}

	return &StateStore{db: db}, nil
}

func (s *StateStore) Close() error {
	return s.db.Close()
}

// SetPendingRestart records that appID has an update applied awaiting
// restart.
func (s *StateStore) SetPendingRestart(appID, version string, isDowngrade bool) error {
	rec := pendingRestart{
		Version:     version,
		IsDowngrade: isDowngrade,
		AppliedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(pendingRestartBucket).Put([]byte(appID), data)
	})
}

// ClearPendingRestart removes the pending-restart record for appID, called
// once the app has actually been relaunched.
func (s *StateStore) ClearPendingRestart(appID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(pendingRestartBucket).Delete([]byte(appID))
	})
}

// PendingRestart reports whether appID has an update applied awaiting
// restart, and its version if so.
func (s *StateStore) PendingRestart(appID string) (version string, ok bool, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(pendingRestartBucket).Get([]byte(appID))
		if data == nil {
			return nil
		}
		var rec pendingRestart
		if jsonErr := json.Unmarshal(data, &rec); jsonErr != nil {
			return jsonErr
		}
		version = rec.Version
		ok = true
		return nil
	})
	return version, ok, err
}
