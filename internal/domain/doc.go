// Package domain defines the core data models and interfaces shared across
// the relay and the keyctl client. It contains plain types and contracts only;
// the types and interfaces subpackages are re-exported here for compact imports.
package domain
