package types

import (
	"strconv"

	"github.com/google/uuid"
)

// AccountID is the stable handle of an account.
type AccountID uuid.UUID

// NewAccountID returns a random account identifier.
func NewAccountID() AccountID { return AccountID(uuid.New()) }

// ParseAccountID parses the canonical UUID form of an account identifier.
func ParseAccountID(s string) (AccountID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return AccountID{}, err
	}
	return AccountID(id), nil
}

// String returns the canonical UUID form of the identifier.
func (a AccountID) String() string { return uuid.UUID(a).String() }

// DeviceID identifies a device within an account.
type DeviceID uint32

// PrimaryDeviceID is the device an account is registered with.
const PrimaryDeviceID DeviceID = 1

// String returns the decimal form of the device id.
func (d DeviceID) String() string { return strconv.FormatUint(uint64(d), 10) }

// KeyID is chosen by the uploading device and is unique per account, device and table.
type KeyID uint32

// String returns the decimal form of the key id.
func (k KeyID) String() string { return strconv.FormatUint(uint64(k), 10) }
