// Package bundle is the relay's bundle service: it hands pre-key bundles to
// peers that want to open a session with a device.
//
// Every fetch consumes at most one one-time pre-key, chosen uniformly from the
// device's pool, inside a single atomic update of the device record. When the
// pool runs low or is already empty the service raises a pool event so the
// device can upload more; an empty pool is not an error, the bundle is simply
// served without a one-time pre-key.
package bundle
