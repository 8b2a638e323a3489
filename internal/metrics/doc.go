// Package metrics holds the relay's prometheus collectors and the gin
// middleware that feeds the REST ones.
package metrics
