package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
)

// LockFile is the name of the lock file inside an exchange directory.
const LockFile = ".rings.lock"

// Holder identifies the actor holding an exchange lock. It is written into the
// lock file for diagnostics only; the OS lock is what excludes other actors.
type Holder struct {
	User     string    `json:"user"`
	Host     string    `json:"host"`
	PID      int       `json:"pid"`
	Acquired time.Time `json:"acquired"`
}

// String renders the holder for error messages.
func (h Holder) String() string {
	return fmt.Sprintf("%s@%s (pid %d) since %s", h.User, h.Host, h.PID, h.Acquired.Format(time.RFC3339))
}

// ReadHolder returns the last holder recorded in root's lock file.
// A process that crashed while holding the lock leaves its record behind, but
// the OS releases the lock itself, so a recorded holder is not proof of a live one.
func ReadHolder(root string) (Holder, error) {
	data, err := os.ReadFile(filepath.Join(root, LockFile))
	if err != nil {
		return Holder{}, err
	}
	var h Holder
	if err := json.Unmarshal(data, &h); err != nil {
		return Holder{}, fmt.Errorf("parsing lock holder: %w", err)
	}
	return h, nil
}

// WithLock runs fn while holding root's exchange lock.
//
// The lock is polled with exponential backoff between InitialDelay and MaxDelay
// until Timeout elapses, after which ErrLockTimeout is returned. The lock is
// released on every exit path, including a panic in fn.
func (e *Exchange) WithLock(ctx context.Context, root string, fn func() error) (err error) {
	lockPath := filepath.Join(root, LockFile)
	lock := flock.New(lockPath)

	if err := e.acquire(ctx, lock); err != nil {
		return err
	}
	e.logger.Debug("exchange lock acquired", zap.String("path", lockPath))

	defer func() {
		if unlockErr := lock.Unlock(); unlockErr != nil {
			e.logger.Warn("releasing exchange lock", zap.String("path", lockPath), zap.Error(unlockErr))
			if err == nil {
				err = fmt.Errorf("releasing lock %s: %w", lockPath, unlockErr)
			}
			return
		}
		e.logger.Debug("exchange lock released", zap.String("path", lockPath))
	}()

	if recErr := e.recordHolder(lockPath); recErr != nil {
		e.logger.Warn("recording lock holder", zap.Error(recErr))
	}
	return fn()
}

func (e *Exchange) acquire(ctx context.Context, lock *flock.Flock) error {
	deadline := time.Now().Add(e.timeout)
	delay := e.initialDelay

	for attempt := 1; ; attempt++ {
		locked, err := lock.TryLock()
		if err != nil {
			return fmt.Errorf("acquiring lock %s: %w", lock.Path(), err)
		}
		if locked {
			return nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			msg := fmt.Sprintf("%s not released within %s", lock.Path(), e.timeout)
			if holder, readErr := ReadHolder(filepath.Dir(lock.Path())); readErr == nil {
				msg += ", held by " + holder.String()
			}
			return fmt.Errorf("%w: %s", ErrLockTimeout, msg)
		}

		wait := min(delay, remaining)
		e.logger.Debug("exchange lock busy",
			zap.String("path", lock.Path()), zap.Int("attempt", attempt), zap.Duration("wait", wait))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay = min(delay*2, e.maxDelay)
	}
}

func (e *Exchange) recordHolder(lockPath string) error {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	data, err := json.Marshal(Holder{
		User:     e.user,
		Host:     host,
		PID:      os.Getpid(),
		Acquired: e.now().UTC(),
	})
	if err != nil {
		return err
	}
	// The file is the lock itself; rewrite it in place rather than replacing it.
	file, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	_, writeErr := file.Write(data)
	return errors.Join(writeErr, file.Close())
}
