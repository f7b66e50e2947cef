// Package userconfig remembers which server the user picked, per project.
//
// The state lives in ~/.config/medlens/config.json next to the file-backed
// credentials. A project is identified by the absolute path of its
// medlens.json; picks made without a project go under "selected_server".
package userconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	dirName  = "medlens"
	fileName = "config.json"
)

// State is the on-disk user state
type State struct {
	// Global is the selection made outside any project
	Global string `json:"selected_server,omitempty"`
	// Projects maps a medlens.json path to the alias selected for it
	Projects map[string]string `json:"projects,omitempty"`
}

// Dir returns the directory holding user state and file-backed credentials
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".config", dirName), nil
}

// Path returns the location of the state file
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

// Load reads the state file; a missing file is an empty state
func Load() (*State, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &State{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read user config file: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to parse user config file %s: %w", path, err)
	}
	return &st, nil
}

// Save replaces the state file through a temp file and rename, so a crash
// never leaves a half-written file behind
func Save(st *State) error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal user config: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), fileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write user config file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write user config file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write user config file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace user config file: %w", err)
	}
	return nil
}

// Selected returns the alias picked for project, or "" when there is none.
// An empty project means no medlens.json was found.
func Selected(project string) (string, error) {
	st, err := Load()
	if err != nil {
		return "", err
	}
	if project == "" {
		return st.Global, nil
	}
	return st.Projects[projectKey(project)], nil
}

// Select records alias as the pick for project. An empty alias forgets it.
func Select(project, alias string) error {
	st, err := Load()
	if err != nil {
		return err
	}

	if project == "" {
		st.Global = alias
		return Save(st)
	}

	key := projectKey(project)
	if alias == "" {
		delete(st.Projects, key)
	} else {
		if st.Projects == nil {
			st.Projects = map[string]string{}
		}
		st.Projects[key] = alias
	}
	return Save(st)
}

func projectKey(project string) string {
	if abs, err := filepath.Abs(project); err == nil {
		return abs
	}
	return filepath.Clean(project)
}
