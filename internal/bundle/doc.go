// Package bundle assembles pre-key bundles from device records.
package bundle
