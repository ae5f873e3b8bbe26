package config

import (
	"context"
	"fmt"
	"path/filepath"
)

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Load reads every configuration file found under paths, merges them in
	// lexical file order, applies defaults and validates the result.
	Load(ctx context.Context, paths ...string) (*Model, error)
}

var loaders = map[string]func() Loader{}

// RegisterLoader makes a loader available to LoaderFor for the given file
// extensions. It is called from the init function of each format package.
func RegisterLoader(newLoader func() Loader, exts ...string) {
	for _, ext := range exts {
		if _, exists := loaders[ext]; exists {
			panic(fmt.Sprintf("loader for extension '%s' already registered", ext))
		}
		loaders[ext] = newLoader
	}
}

// LoaderFor picks a loader by the extension of path. A directory, or a path
// without an extension, selects the HCL loader.
func LoaderFor(path string) (Loader, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		ext = ".hcl"
	}
	newLoader, ok := loaders[ext]
	if !ok {
		return nil, fmt.Errorf("no configuration loader for %q files", ext)
	}
	return newLoader(), nil
}
