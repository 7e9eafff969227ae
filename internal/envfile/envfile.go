package envfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/joho/godotenv"
)

// DefaultPath is the environment file looked up relative to the working directory.
const DefaultPath = ".env"

// ErrMalformed indicates the file exists but could not be parsed.
var ErrMalformed = errors.New("malformed environment file")

// Result describes what a Load call applied to the process environment.
type Result struct {
	Path   string
	Loaded bool
	Keys   []string
}

// Load reads path and exports its entries. When override is false, variables
// already set to a non-empty value keep their current value.
// A missing file is not an error.
func Load(path string, override bool) (Result, error) {
	if path == "" {
		path = DefaultPath
	}
	res := Result{Path: path}

	entries, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return res, nil
		}
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return res, fmt.Errorf("read %s: %w", path, err)
		}
		return res, fmt.Errorf("%w %s: %v", ErrMalformed, path, err)
	}

	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	applied := make([]string, 0, len(keys))
	for _, key := range keys {
		if !override && os.Getenv(key) != "" {
			continue
		}
		if err := os.Setenv(key, entries[key]); err != nil {
			return res, fmt.Errorf("set %s: %w", key, err)
		}
		applied = append(applied, key)
	}

	res.Loaded = true
	res.Keys = applied
	return res, nil
}
