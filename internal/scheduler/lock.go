package scheduler

import (
	"fmt"
	"os"
	"path/filepath"

	"autotag/internal/models"

	"github.com/gofrs/flock"
	log "github.com/sirupsen/logrus"
)

// acquireRunLock takes an exclusive, non-blocking file lock at path. An
// empty path disables the guard.
func acquireRunLock(path string) (release func(), err error) {
	if path == "" {
		return func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to take run lock %s: %w", path, err)
	}
	if !locked {
		return nil, models.ErrRunInProgress
	}
	return func() {
		if err := fl.Unlock(); err != nil {
			log.Warnf("Failed to release run lock %s: %v", path, err)
		}
	}, nil
}
