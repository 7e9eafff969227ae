package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/eugenenazirov/modelcfg/internal/config"
)

// Model roles.
const (
	RoleDetector = "det"
	RolePose     = "pose"
)

// Asset describes one model file named by the settings.
type Asset struct {
	Role    string     `json:"role"`
	Name    string     `json:"name"`
	Path    string     `json:"path"`
	Present bool       `json:"present"`
	Size    int64      `json:"size,omitempty"`
	ModTime *time.Time `json:"modTime,omitempty"`
}

// Inventory reports the state of the configured model files.
type Inventory interface {
	Assets() ([]Asset, error)
	Refresh() error
}

// FSInventory inspects model files on the local filesystem and keeps the
// latest snapshot guarded by a RWMutex.
type FSInventory struct {
	settings config.Settings
	stat     func(string) (fs.FileInfo, error)

	mu     sync.RWMutex
	assets []Asset
}

// NewFSInventory builds an inventory for settings. Call Refresh before the
// first Assets to observe the filesystem.
func NewFSInventory(settings config.Settings) *FSInventory {
	inv := &FSInventory{
		settings: settings,
		stat:     os.Stat,
	}
	inv.assets = inv.declared()
	return inv
}

// Assets returns a copy of the latest snapshot.
func (i *FSInventory) Assets() ([]Asset, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	out := make([]Asset, len(i.assets))
	copy(out, i.assets)
	return out, nil
}

// Refresh re-inspects every model file. A missing file is reported as not
// present; any other stat failure is returned and the snapshot is kept.
func (i *FSInventory) Refresh() error {
	next := i.declared()
	for idx := range next {
		info, err := i.stat(next[idx].Path)
		switch {
		case err == nil:
			if info.IsDir() {
				continue
			}
			next[idx].Present = true
			next[idx].Size = info.Size()
			modTime := info.ModTime().UTC()
			next[idx].ModTime = &modTime
		case errors.Is(err, fs.ErrNotExist):
		default:
			return fmt.Errorf("stat %s: %w", next[idx].Path, err)
		}
	}

	i.mu.Lock()
	i.assets = next
	i.mu.Unlock()
	return nil
}

func (i *FSInventory) declared() []Asset {
	return []Asset{
		{Role: RoleDetector, Name: i.settings.ModelDetName, Path: i.settings.DetModelFile()},
		{Role: RolePose, Name: i.settings.ModelPoseName, Path: i.settings.PoseModelFile()},
	}
}

// Missing filters assets that are not present.
func Missing(assets []Asset) []Asset {
	var out []Asset
	for _, a := range assets {
		if !a.Present {
			out = append(out, a)
		}
	}
	return out
}
