package types

import "fmt"

// ValidatePreKeys checks a one-time batch before it is written: key ids must
// be unique, the batch must not exceed MaxPreKeyBatchSize and every key must
// carry public key bytes.
func ValidatePreKeys[K PreKeyRecord](keys []K) error {
	if len(keys) > MaxPreKeyBatchSize {
		return fmt.Errorf("%w: %d keys exceeds the limit of %d", ErrInvalidBatch, len(keys), MaxPreKeyBatchSize)
	}
	seen := make(map[KeyID]struct{}, len(keys))
	for _, k := range keys {
		if _, dup := seen[k.ID()]; dup {
			return fmt.Errorf("%w: duplicate key id %d", ErrInvalidBatch, k.ID())
		}
		seen[k.ID()] = struct{}{}
		if err := ValidatePreKey(k); err != nil {
			return err
		}
	}
	return nil
}

// ValidatePreKey checks a single key.
func ValidatePreKey(k PreKeyRecord) error {
	if len(k.PublicKeyBytes()) == 0 {
		return fmt.Errorf("%w: key %d has no public key", ErrInvalidBatch, k.ID())
	}
	return nil
}
