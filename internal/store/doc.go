// Package store implements the pre-key stores on top of kv tables.
//
// Records are encoded as CBOR item values. Nothing is cached in memory: every
// call goes to the table, so a one-time key can only be handed out by the
// table's atomic take.
//
// The package includes stores for:
//   - One-time pre-keys of any record type (SingleUsePreKeyStore)
//   - Post-quantum one-time and last-resort keys (SingleUseKEMPreKeyStore)
//   - Repeated-use signed elliptic-curve keys (RepeatedUseSignedPreKeyStore)
package store
