// Package kv defines the key-value table contract the pre-key stores are
// built on.
//
// A table holds rows keyed by (account, device, bucket, key id). A partition
// is every row of one account, device and bucket; rows within a partition are
// ordered by key id. Implementations must make Replace a single transaction
// and must never let two TakeFirst calls return the same row.
package kv

import (
	"context"

	"github.com/alecthomas/types/optional"

	"keyrelay/internal/domain"
)

// Bucket separates logical partitions that share a table.
type Bucket uint8

// Buckets.
const (
	BucketOneTime Bucket = iota
	BucketLastResort
	BucketRepeatedUse
)

// String returns the bucket name used in logs.
func (b Bucket) String() string {
	switch b {
	case BucketOneTime:
		return "one_time"
	case BucketLastResort:
		return "last_resort"
	case BucketRepeatedUse:
		return "repeated_use"
	default:
		return "unknown"
	}
}

// Partition addresses the rows of one account, device and bucket.
type Partition struct {
	Account domain.AccountID
	Device  domain.DeviceID
	Bucket  Bucket
}

// Item is one row of a partition. Value is opaque to the table.
type Item struct {
	KeyID domain.KeyID
	Value []byte
}

// Table is the set of operations the stores require of a backend.
type Table interface {
	// Name of the table.
	Name() string
	// Replace deletes every row of p and inserts items in one transaction.
	Replace(ctx context.Context, p Partition, items []Item) error
	// First returns the row of p with the smallest key id without removing it.
	First(ctx context.Context, p Partition) (optional.Option[Item], error)
	// TakeFirst removes and returns the row of p with the smallest key id.
	TakeFirst(ctx context.Context, p Partition) (optional.Option[Item], error)
	// Count returns the number of rows in p.
	Count(ctx context.Context, p Partition) (int, error)
	// Devices lists the devices of account with at least one row in bucket.
	Devices(ctx context.Context, account domain.AccountID, bucket Bucket) ([]domain.DeviceID, error)
	// DeleteAccount removes every row of account in every bucket.
	DeleteAccount(ctx context.Context, account domain.AccountID) error
	// DeleteDevice removes every row of one device in every bucket.
	DeleteDevice(ctx context.Context, account domain.AccountID, device domain.DeviceID) error
}
