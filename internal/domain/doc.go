// Package domain defines core data models and interfaces shared across keyrelay.
// It contains plain types, contracts (interfaces) and the validation every
// store applies to an incoming batch.
package domain
