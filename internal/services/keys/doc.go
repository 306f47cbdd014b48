// Package keys is the façade collaborators use to manage pre-keys.
//
// Service composes the one-time elliptic-curve store, the post-quantum store
// and the repeated-use signed key store into one per-account, per-device
// view. It holds no state of its own; every call is a bounded set of store
// operations.
package keys
