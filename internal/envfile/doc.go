// Package envfile merges a dotenv-style environment-definition file into the
// process environment. Parsing is all-or-nothing: a malformed file applies no
// entries.
package envfile
