// Package config resolves the model settings and the runtime configuration of
// the HTTP surface. Model settings come from the process environment, merged
// with an optional .env file whose values win over pre-existing variables.
// Runtime settings follow the precedence: CLI flags > YAML config >
// Environment variables > Defaults.
package config
