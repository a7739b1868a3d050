// Package config manages the device model registry: a models.json index plus
// a user_models directory holding imported library files.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rilla-project/rilla/internal/monitoring"
	"github.com/rilla-project/rilla/pkg/netlist"
)

const (
	registryFile  = "models.json"
	userModelsDir = "user_models"
)

// Model is one registered device: its model name and the library file that
// defines it.
type Model struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Registry is the persistent model index rooted at a config directory.
type Registry struct {
	dir    string
	Models []Model `json:"models"`
}

// Load reads the registry under dir, returning an empty registry when no
// index exists yet.
func Load(dir string) (*Registry, error) {
	r := &Registry{dir: dir}
	data, err := os.ReadFile(filepath.Join(dir, registryFile))
	if errors.Is(err, os.ErrNotExist) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading model registry: %w", err)
	}
	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", registryFile, err)
	}
	return r, nil
}

// Save writes the registry index back to disk.
func (r *Registry) Save() error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(r.dir, registryFile)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing model registry: %w", err)
	}
	return nil
}

// Find looks up a model by name, case-insensitively.
func (r *Registry) Find(name string) (Model, bool) {
	for _, m := range r.Models {
		if strings.EqualFold(m.Name, name) {
			return m, true
		}
	}
	return Model{}, false
}

// AddLibrary imports a library file: it is copied into the user_models
// directory, the model takes its name from the first .subckt definition (or
// the file stem when the library defines none), and the registry is saved.
// Re-importing an existing name updates its path instead of duplicating it.
func (r *Registry) AddLibrary(srcPath string) (Model, error) {
	dstDir := filepath.Join(r.dir, userModelsDir)
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return Model{}, fmt.Errorf("creating %s: %w", userModelsDir, err)
	}

	dstPath := filepath.Join(dstDir, filepath.Base(srcPath))
	if err := copyFile(srcPath, dstPath); err != nil {
		return Model{}, err
	}

	name, err := libraryModelName(dstPath)
	if err != nil {
		return Model{}, err
	}

	model := Model{Name: name, Path: dstPath}
	replaced := false
	for i, m := range r.Models {
		if strings.EqualFold(m.Name, name) {
			r.Models[i] = model
			replaced = true
			break
		}
	}
	if !replaced {
		r.Models = append(r.Models, model)
	}
	if err := r.Save(); err != nil {
		return Model{}, err
	}
	monitoring.Logf("config: registered model %s from %s", name, srcPath)
	return model, nil
}

// Remove drops a model from the index. The copied library file is kept so
// other registered models defined in the same file keep working.
func (r *Registry) Remove(name string) (bool, error) {
	for i, m := range r.Models {
		if strings.EqualFold(m.Name, name) {
			r.Models = append(r.Models[:i], r.Models[i+1:]...)
			return true, r.Save()
		}
	}
	return false, nil
}

// libraryModelName resolves the model name of a library file: the first
// .subckt definition, or the file stem for plain .model libraries.
func libraryModelName(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if name, err := netlist.SubcktName(f); err == nil {
		return name, nil
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base)), nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening library: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("copying library: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying library: %w", err)
	}
	return out.Close()
}
