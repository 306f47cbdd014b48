package sqlkv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alecthomas/types/optional"

	"keyrelay/internal/domain"
	"keyrelay/internal/kv"
)

type queries struct {
	deletePartition string
	insert          string
	first           string
	firstKeyID      string
	deleteReturning string
	count           string
	devices         string
	deleteAccount   string
	deleteDevice    string
}

// Table is a kv.Table backed by one SQL table.
type Table struct {
	db   *DB
	name string
	q    queries
}

var _ kv.Table = (*Table)(nil)

func newTable(db *DB, name string) *Table {
	const partition = `account_id = $1 AND device_id = $2 AND bucket = $3`
	return &Table{
		db:   db,
		name: name,
		q: queries{
			deletePartition: fmt.Sprintf(`DELETE FROM %s WHERE %s`, name, partition),
			insert: fmt.Sprintf(`
				INSERT INTO %s (account_id, device_id, bucket, key_id, value)
				VALUES ($1, $2, $3, $4, $5)`, name),
			first: fmt.Sprintf(`
				SELECT key_id, value FROM %s
				WHERE %s
				ORDER BY key_id
				LIMIT 1`, name, partition),
			firstKeyID: fmt.Sprintf(`
				SELECT key_id FROM %s
				WHERE %s
				ORDER BY key_id
				LIMIT 1`, name, partition),
			deleteReturning: fmt.Sprintf(`
				DELETE FROM %s
				WHERE %s AND key_id = $4
				RETURNING value`, name, partition),
			count: fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s`, name, partition),
			devices: fmt.Sprintf(`
				SELECT DISTINCT device_id FROM %s
				WHERE account_id = $1 AND bucket = $2
				ORDER BY device_id`, name),
			deleteAccount: fmt.Sprintf(`DELETE FROM %s WHERE account_id = $1`, name),
			deleteDevice:  fmt.Sprintf(`DELETE FROM %s WHERE account_id = $1 AND device_id = $2`, name),
		},
	}
}

// Name of the table.
func (t *Table) Name() string { return t.name }

func partitionArgs(p kv.Partition) []any {
	return []any{p.Account.String(), int64(p.Device), int64(p.Bucket)}
}

// Replace deletes every row of p and inserts items in a single transaction,
// so readers observe either the old rows or the new ones.
func (t *Table) Replace(ctx context.Context, p kv.Partition, items []kv.Item) error {
	return t.db.do(ctx, t.op("replace"), func(ctx context.Context) (err error) {
		tx, err := t.db.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.CommitOrRollback(&err)

		if _, err = tx.ExecContext(ctx, t.q.deletePartition, partitionArgs(p)...); err != nil {
			return err
		}
		for _, item := range items {
			args := append(partitionArgs(p), int64(item.KeyID), item.Value)
			if _, err = tx.ExecContext(ctx, t.q.insert, args...); err != nil {
				return err
			}
		}
		return nil
	})
}

// First returns the row with the smallest key id without removing it.
func (t *Table) First(ctx context.Context, p kv.Partition) (optional.Option[kv.Item], error) {
	var out optional.Option[kv.Item]
	err := t.db.do(ctx, t.op("first"), func(ctx context.Context) error {
		var keyID int64
		var value []byte
		err := t.db.conn.QueryRowContext(ctx, t.q.first, partitionArgs(p)...).Scan(&keyID, &value)
		if errors.Is(err, sql.ErrNoRows) {
			out = optional.None[kv.Item]()
			return nil
		} else if err != nil {
			return err
		}
		out = optional.Some(kv.Item{KeyID: domain.KeyID(keyID), Value: value})
		return nil
	})
	return out, err
}

// TakeFirst removes and returns the row with the smallest key id.
//
// The candidate is removed with a delete conditioned on its key id that
// returns the deleted value. A delete that matches nothing lost the row to a
// concurrent caller, and the next smallest key id is tried instead.
func (t *Table) TakeFirst(ctx context.Context, p kv.Partition) (optional.Option[kv.Item], error) {
	var out optional.Option[kv.Item]
	err := t.db.do(ctx, t.op("take"), func(ctx context.Context) error {
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			var keyID int64
			err := t.db.conn.QueryRowContext(ctx, t.q.firstKeyID, partitionArgs(p)...).Scan(&keyID)
			if errors.Is(err, sql.ErrNoRows) {
				out = optional.None[kv.Item]()
				return nil
			} else if err != nil {
				return err
			}

			var value []byte
			args := append(partitionArgs(p), keyID)
			err = t.db.conn.QueryRowContext(ctx, t.q.deleteReturning, args...).Scan(&value)
			if errors.Is(err, sql.ErrNoRows) {
				continue
			} else if err != nil {
				return err
			}
			out = optional.Some(kv.Item{KeyID: domain.KeyID(keyID), Value: value})
			return nil
		}
	})
	return out, err
}

// Count returns the number of rows in p.
func (t *Table) Count(ctx context.Context, p kv.Partition) (int, error) {
	var count int
	err := t.db.do(ctx, t.op("count"), func(ctx context.Context) error {
		return t.db.conn.QueryRowContext(ctx, t.q.count, partitionArgs(p)...).Scan(&count)
	})
	return count, err
}

// Devices lists the devices of account that have rows in bucket.
func (t *Table) Devices(ctx context.Context, account domain.AccountID, bucket kv.Bucket) ([]domain.DeviceID, error) {
	var devices []domain.DeviceID
	err := t.db.do(ctx, t.op("devices"), func(ctx context.Context) error {
		devices = devices[:0]
		rows, err := t.db.conn.QueryContext(ctx, t.q.devices, account.String(), int64(bucket))
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var device int64
			if err := rows.Scan(&device); err != nil {
				return err
			}
			devices = append(devices, domain.DeviceID(device))
		}
		return rows.Err()
	})
	return devices, err
}

// DeleteAccount removes every row of account.
func (t *Table) DeleteAccount(ctx context.Context, account domain.AccountID) error {
	return t.db.do(ctx, t.op("delete account"), func(ctx context.Context) error {
		_, err := t.db.conn.ExecContext(ctx, t.q.deleteAccount, account.String())
		return err
	})
}

// DeleteDevice removes every row of one device.
func (t *Table) DeleteDevice(ctx context.Context, account domain.AccountID, device domain.DeviceID) error {
	return t.db.do(ctx, t.op("delete device"), func(ctx context.Context) error {
		_, err := t.db.conn.ExecContext(ctx, t.q.deleteDevice, account.String(), int64(device))
		return err
	})
}

func (t *Table) op(name string) string { return t.name + " " + name }
