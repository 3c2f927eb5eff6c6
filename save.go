package dbscaffold

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tordrt/dbscaffold/internal/codegen"
)

// SavedModelFiles reports where Save wrote the artifacts, as absolute paths.
type SavedModelFiles struct {
	ContextFile     string
	AdditionalFiles []string
}

// SaveConflictError reports every target path that blocked a save. Nothing
// has been written when this error is returned.
type SaveConflictError struct {
	OutputDir string

	// Paths are the offending artifact paths, relative to OutputDir, in
	// artifact order.
	Paths []string

	// ReadOnly is true when the paths are write-protected, which blocks a
	// save even with overwriting enabled.
	ReadOnly bool
}

func (e *SaveConflictError) Error() string {
	if e.ReadOnly {
		return fmt.Sprintf("cannot scaffold into %s: read-only files would be overwritten (%s); clear the read-only flag and try again",
			e.OutputDir, strings.Join(e.Paths, ", "))
	}
	return fmt.Sprintf("cannot scaffold into %s: files already exist (%s); enable overwriting to replace them",
		e.OutputDir, strings.Join(e.Paths, ", "))
}

// Save writes a scaffolded model under outputDir, creating directories as
// needed. Artifact paths are relative to outputDir; parent-directory segments
// are honored, so a context file at "../Data/x.go" lands in a sibling of
// outputDir.
//
// Before anything is written every target is pre-flighted: existing files
// block the save unless overwrite is set, and read-only files always block
// it. All offending paths are reported together in one *SaveConflictError,
// and on a conflict the tree is left untouched.
func Save(m *codegen.ScaffoldedModel, outputDir string, overwrite bool) (*SavedModelFiles, error) {
	absDir, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, fmt.Errorf("resolving output directory: %w", err)
	}

	artifacts := append([]codegen.ScaffoldedFile{m.ContextFile}, m.AdditionalFiles...)
	targets := make([]string, len(artifacts))
	for i, a := range artifacts {
		targets[i] = filepath.Join(absDir, filepath.FromSlash(a.Path))
	}

	// A stat failure other than "does not exist" fails the pre-flight; an
	// unverifiable target must not slip past into the write loop.
	if !overwrite {
		var existing []string
		for i, t := range targets {
			_, err := os.Stat(t)
			switch {
			case err == nil:
				existing = append(existing, artifacts[i].Path)
			case os.IsNotExist(err):
			default:
				return nil, fmt.Errorf("checking %s: %w", artifacts[i].Path, err)
			}
		}
		if len(existing) > 0 {
			return nil, &SaveConflictError{OutputDir: absDir, Paths: existing}
		}
	}

	// Read-only protection blocks the save regardless of overwrite.
	var readonly []string
	for i, t := range targets {
		info, err := os.Stat(t)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("checking %s: %w", artifacts[i].Path, err)
		}
		if info.Mode().Perm()&0o222 == 0 {
			readonly = append(readonly, artifacts[i].Path)
		}
	}
	if len(readonly) > 0 {
		return nil, &SaveConflictError{OutputDir: absDir, Paths: readonly, ReadOnly: true}
	}

	for i, a := range artifacts {
		if err := os.MkdirAll(filepath.Dir(targets[i]), 0o755); err != nil {
			return nil, fmt.Errorf("creating directory for %s: %w", a.Path, err)
		}
		if err := os.WriteFile(targets[i], []byte(a.Content), 0o644); err != nil {
			return nil, fmt.Errorf("writing %s: %w", a.Path, err)
		}
	}

	return &SavedModelFiles{
		ContextFile:     targets[0],
		AdditionalFiles: targets[1:],
	}, nil
}
