package types

import "time"

// PoolEventKind classifies a one-time pre-key pool event.
type PoolEventKind string

const (
	// PoolLow fires when a fetch leaves the pool at or below the watermark.
	PoolLow PoolEventKind = "low"
	// PoolExhausted fires when a bundle had to be served without a one-time pre-key.
	PoolExhausted PoolEventKind = "exhausted"
)

// PoolEvent tells the owning device that it should upload more pre-keys.
type PoolEvent struct {
	Kind      PoolEventKind `json:"kind"`
	Address   Address       `json:"address"`
	Remaining int           `json:"remaining"`
	At        time.Time     `json:"at"`
}
