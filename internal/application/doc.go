// Package application wires the model inventory, HTTP handlers, router and
// server from a resolved configuration, keeping the main package focused on
// CLI parsing and orchestration.
package application
