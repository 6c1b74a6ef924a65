// Package pid guards against two dashboards driving the same hypervisor:
// overlapping pollers and dispatchers would fight over command slots.
package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"syscall"

	"codeberg.org/mutker/vmctl/internal/errors"
)

const pidFile = "vmctl.pid"

func path() string {
	return filepath.Join(os.TempDir(), pidFile)
}

// Write records the current process ID. It fails with ErrAlreadyRunning
// when the file names a live process; a stale file from a crashed run is
// overwritten silently.
func Write() error {
	errFactory := errors.New()

	if owner, err := currentOwner(); err != nil {
		return err
	} else if owner != 0 {
		return errFactory.New(errors.ErrAlreadyRunning)
	}

	if err := os.WriteFile(path(), []byte(strconv.Itoa(os.Getpid())), 0o600); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

// Remove deletes the PID file. Missing files are not an error.
func Remove() error {
	if err := os.Remove(path()); err != nil && !os.IsNotExist(err) {
		return errors.New().Wrap(errors.ErrInternal, err)
	}

	return nil
}

// currentOwner returns the PID recorded in the file when that process is
// still alive, and 0 otherwise.
func currentOwner() (int, error) {
	errFactory := errors.New()

	bytes, err := os.ReadFile(path())
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, errFactory.Wrap(errors.ErrInternal, err)
	}

	pid, err := strconv.Atoi(string(bytes))
	if err != nil {
		// Unparseable leftovers are treated as stale.
		return 0, nil
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return 0, nil
	}

	if err := process.Signal(syscall.Signal(0)); err != nil {
		return 0, nil
	}

	return pid, nil
}
