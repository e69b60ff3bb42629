// Package model holds the record and event types shared by the batched
// data-access and notification layer.
//
// This package imports nothing internal. Every other internal package may
// import model; model must never import them back.
//
// Key design constraints:
//   - Money is int64 minor units (cents), never floats
//   - Ordering uses logical seq numbers, never wall-clock timestamps
//   - JSON tags use snake_case
//   - Event IDs are content-addressed over canonical JSON (see hash.go)
package model
