package projects

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	registryFile           = "projects.json"
	currentRegistryVersion = 1
)

type registryState struct {
	Version  int        `json:"version"`
	Projects []*Project `json:"projects"`
}

func (r *Registry) path() string {
	return filepath.Join(r.cfg.DataDir, registryFile)
}

func (r *Registry) load() ([]*Project, error) {
	data, err := os.ReadFile(r.path())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read project registry: %w", err)
	}

	var st registryState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to parse project registry: %w", err)
	}
	if st.Version > currentRegistryVersion {
		return nil, fmt.Errorf("project registry version %d not supported (max: %d)", st.Version, currentRegistryVersion)
	}
	return st.Projects, nil
}

// save writes the registry atomically. Failures are logged; the in-memory
// registry stays authoritative for this process.
func (r *Registry) save() {
	r.saveMu.Lock()
	defer r.saveMu.Unlock()

	st := registryState{Version: currentRegistryVersion, Projects: r.ListProjects()}
	if err := writeAtomic(r.path(), st); err != nil {
		r.logger.Error("Failed to save project registry", "path", r.path(), "error", err)
	}
}

func writeAtomic(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create registry directory: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write registry: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename registry: %w", err)
	}
	return nil
}

func removeAll(dir string) error {
	if dir == "" {
		return nil
	}
	return os.RemoveAll(dir)
}
