// Package assets reports which of the configured model files exist.
package assets
