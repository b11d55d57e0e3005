// Package workspace allocates the on-disk working tree for pipeline runs.
//
// Each process shares a base directory under the system temp root, named
// after the tool. The base holds two children:
//
//	{tmp}/{tool}/.nuget            shared package cache, reused across runs
//	{tmp}/{tool}/.output/{token}   per-run output, never reused
//
// The cache directory is append-mostly: concurrent runs targeting different
// packages may share it. Output directories carry a freshly generated unique
// token per run, so two runs never write their rules files to the same path
// even when generating the same package concurrently.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const (
	cacheDirName  = ".nuget"
	outputDirName = ".output"
)

// Roots holds the directory tree owned by a single process.
type Roots struct {
	Base  string // {tmp}/{tool}
	Cache string // {base}/.nuget, shared across runs
}

// New creates (or reuses) the base and cache directories for the given tool
// name. Directory creation failures are returned, never assumed away.
func New(tool string) (*Roots, error) {
	if tool == "" {
		return nil, fmt.Errorf("workspace: tool name cannot be empty")
	}

	base := filepath.Join(os.TempDir(), tool)
	cache := filepath.Join(base, cacheDirName)
	if err := os.MkdirAll(cache, 0755); err != nil {
		return nil, fmt.Errorf("create cache directory %s: %w", cache, err)
	}

	return &Roots{Base: base, Cache: cache}, nil
}

// NewAt is like New but roots the tree at dir instead of the system temp
// directory. Used by tests and by callers that need an isolated workspace.
func NewAt(dir, tool string) (*Roots, error) {
	if tool == "" {
		return nil, fmt.Errorf("workspace: tool name cannot be empty")
	}

	base := filepath.Join(dir, tool)
	cache := filepath.Join(base, cacheDirName)
	if err := os.MkdirAll(cache, 0755); err != nil {
		return nil, fmt.Errorf("create cache directory %s: %w", cache, err)
	}

	return &Roots{Base: base, Cache: cache}, nil
}

// NewOutputDir creates a fresh, uniquely named output directory for one run.
// The unique token guarantees no collision with any prior or concurrent run
// sharing the same base. The directory exists when NewOutputDir returns.
func (r *Roots) NewOutputDir() (string, error) {
	dir := filepath.Join(r.Base, outputDirName, uuid.NewString())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create output directory %s: %w", dir, err)
	}
	return dir, nil
}
