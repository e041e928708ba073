package database

import (
	"context"
	"encoding/json"

	"github.com/anicoll/blink-integration/internal/pkg/model"
)

// CreateObject persists a declaration. Existing objects are left untouched.
func (db *Database) CreateObject(ctx context.Context, decl model.Declaration) error {
	_, err := db.pool.Exec(ctx, `
		INSERT INTO state_object (id, type, name, value_type, role, readable, writable, native_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT DO NOTHING;`,
		decl.ID, decl.Type, decl.Common.Name, decl.Common.Type.String(), decl.Common.Role,
		decl.Common.Read, decl.Common.Write, decl.Native.ID)
	return err
}

// WriteState stores the current value of a node and appends it to the history.
func (db *Database) WriteState(ctx context.Context, path string, st model.State) error {
	value, err := json.Marshal(st.Val)
	if err != nil {
		return err
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO state_value (id, value, ack, time_stamp, source)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET value = EXCLUDED.value, ack = EXCLUDED.ack, time_stamp = EXCLUDED.time_stamp, source = EXCLUDED.source;`,
		path, value, st.Ack, st.TS, st.From); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO state_history (path, value, ack, time_stamp, source)
		VALUES ($1, $2, $3, $4, $5)`,
		path, value, st.Ack, st.TS, st.From); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// DeleteObject drops a node and its current value. History is kept until
// the retention cleanup removes it.
func (db *Database) DeleteObject(ctx context.Context, path string) error {
	_, err := db.pool.Exec(ctx, `DELETE FROM state_object WHERE id = $1`, path)
	return err
}

// SetConfigValue stores a system configuration entry.
func (db *Database) SetConfigValue(ctx context.Context, key, value string) error {
	_, err := db.pool.Exec(ctx, `
		INSERT INTO system_config (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at;`,
		key, value)
	return err
}
