package store

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"keyrelay/internal/domain"
	"keyrelay/internal/kv"
)

func encodeItem[K domain.PreKeyRecord](key K) (kv.Item, error) {
	value, err := cbor.Marshal(key)
	if err != nil {
		return kv.Item{}, fmt.Errorf("encode key %d: %w", key.ID(), err)
	}
	return kv.Item{KeyID: key.ID(), Value: value}, nil
}

func encodeItems[K domain.PreKeyRecord](keys []K) ([]kv.Item, error) {
	items := make([]kv.Item, 0, len(keys))
	for _, key := range keys {
		item, err := encodeItem(key)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func decodeItem[K domain.PreKeyRecord](item kv.Item) (K, error) {
	var key K
	if err := cbor.Unmarshal(item.Value, &key); err != nil {
		return key, fmt.Errorf("decode key %d: %w", item.KeyID, err)
	}
	if key.ID() != item.KeyID {
		return key, fmt.Errorf("decode key %d: record carries key id %d", item.KeyID, key.ID())
	}
	return key, nil
}
