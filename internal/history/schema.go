package history

import (
	"database/sql"

	"codeberg.org/mutker/vmctl/internal/errors"
)

func initSchema(db *sql.DB) error {
	errFactory := errors.New()

	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS events (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            timestamp INTEGER NOT NULL,
            vm_id TEXT NOT NULL,
            vm_name TEXT,
            kind TEXT NOT NULL,
            from_state TEXT,
            to_state TEXT,
            action TEXT,
            outcome TEXT,
            detail TEXT
        );
        CREATE INDEX IF NOT EXISTS idx_events_vm_id ON events(vm_id);
        CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp)
    `)
	if err != nil {
		return errFactory.Wrap(ErrStorageInit, err)
	}

	return nil
}
