package database

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/anicoll/blink-integration/internal/pkg/model"
)

func (db *Database) GetObjects(ctx context.Context) ([]model.Declaration, error) {
	rows, err := db.pool.Query(ctx, `
	SELECT id, type, name, value_type, role, readable, writable, native_id
	FROM state_object
	ORDER BY id;
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var decls []model.Declaration
	for rows.Next() {
		var (
			decl      model.Declaration
			valueType string
		)
		if err := rows.Scan(&decl.ID, &decl.Type, &decl.Common.Name, &valueType, &decl.Common.Role,
			&decl.Common.Read, &decl.Common.Write, &decl.Native.ID); err != nil {
			return nil, err
		}
		if err := decl.Common.Type.UnmarshalText([]byte(valueType)); err != nil {
			return nil, err
		}
		decls = append(decls, decl)
	}
	return decls, rows.Err()
}

// GetStates returns the current value of every node keyed by path.
func (db *Database) GetStates(ctx context.Context) (map[string]model.State, error) {
	rows, err := db.pool.Query(ctx, `
	SELECT id, value, ack, time_stamp, source
	FROM state_value;
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	states := make(map[string]model.State)
	for rows.Next() {
		var (
			path  string
			value []byte
			st    model.State
		)
		if err := rows.Scan(&path, &value, &st.Ack, &st.TS, &st.From); err != nil {
			return nil, err
		}
		if st.Val, err = model.ParseValue(value); err != nil {
			return nil, err
		}
		states[path] = st
	}
	return states, rows.Err()
}

// GetHistory returns the writes of one node between from and to, newest
// first. Without a range the last two days are returned.
func (db *Database) GetHistory(ctx context.Context, path string, from, to *time.Time) (model.StateRecords, error) {
	if from == nil || to == nil {
		end := db.now()
		start := end.AddDate(0, 0, -2)
		from, to = &start, &end
	}

	rows, err := db.pool.Query(ctx, `
	SELECT id, time_stamp, path, value, ack, source
	FROM state_history
	WHERE path = $1 AND time_stamp BETWEEN $2 AND $3
	ORDER BY time_stamp DESC;
	`, path, *from, *to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRecords(rows)
}

func scanRecords(rows pgx.Rows) (model.StateRecords, error) {
	records := model.StateRecords{}
	for rows.Next() {
		var (
			record model.StateRecord
			value  []byte
		)
		if err := rows.Scan(&record.Id, &record.TimeStamp, &record.Path, &value, &record.Ack, &record.From); err != nil {
			return nil, err
		}
		v, err := model.ParseValue(value)
		if err != nil {
			return nil, err
		}
		record.Value = v
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return records, nil
		}
		return nil, err
	}
	return records, nil
}

// GetConfigValue reads a system configuration entry. ok is false when the
// key is not set.
func (db *Database) GetConfigValue(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := db.pool.QueryRow(ctx, `SELECT value FROM system_config WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}
