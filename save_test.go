package dbscaffold

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/dbscaffold/internal/codegen"
)

func sampleScaffolded() *codegen.ScaffoldedModel {
	return &codegen.ScaffoldedModel{
		ContextFile: codegen.ScaffoldedFile{Path: "data_context.go", Content: "package models\n"},
		AdditionalFiles: []codegen.ScaffoldedFile{
			{Path: "user.go", Content: "package models\n\ntype User struct{}\n"},
		},
	}
}

func TestSaveWritesFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Models")

	saved, err := Save(sampleScaffolded(), dir, false)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "data_context.go"), saved.ContextFile)
	require.Len(t, saved.AdditionalFiles, 1)
	assert.Equal(t, filepath.Join(dir, "user.go"), saved.AdditionalFiles[0])

	content, err := os.ReadFile(saved.AdditionalFiles[0])
	require.NoError(t, err)
	assert.Equal(t, "package models\n\ntype User struct{}\n", string(content))
}

func TestSaveParentRelativeContextPath(t *testing.T) {
	root := t.TempDir()
	m := sampleScaffolded()
	m.ContextFile.Path = "../Data/data_context.go"

	saved, err := Save(m, filepath.Join(root, "Models"), false)
	require.NoError(t, err)

	// "../Data/..." relative to <root>/Models lands in <root>/Data.
	assert.Equal(t, filepath.Join(root, "Data", "data_context.go"), saved.ContextFile)
	assert.FileExists(t, saved.ContextFile)
	assert.FileExists(t, filepath.Join(root, "Models", "user.go"))
}

func TestSaveExistingFilesConflict(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data_context.go"), []byte("old context"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "user.go"), []byte("old user"), 0o644))

	_, err := Save(sampleScaffolded(), dir, false)
	var conflict *SaveConflictError
	require.ErrorAs(t, err, &conflict)
	assert.False(t, conflict.ReadOnly)
	// Every blocking path is reported at once.
	assert.Equal(t, []string{"data_context.go", "user.go"}, conflict.Paths)

	// Nothing was touched.
	content, err := os.ReadFile(filepath.Join(dir, "user.go"))
	require.NoError(t, err)
	assert.Equal(t, "old user", string(content))
}

func TestSaveOverwrite(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "user.go"), []byte("old user"), 0o644))

	saved, err := Save(sampleScaffolded(), dir, true)
	require.NoError(t, err)

	content, err := os.ReadFile(saved.AdditionalFiles[0])
	require.NoError(t, err)
	assert.Contains(t, string(content), "type User struct{}")
}

func TestSaveReadOnlyBlocksOverwrite(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "user.go")
	require.NoError(t, os.WriteFile(target, []byte("old user"), 0o644))
	require.NoError(t, os.Chmod(target, 0o444))
	t.Cleanup(func() { _ = os.Chmod(target, 0o644) })

	_, err := Save(sampleScaffolded(), dir, true)
	var conflict *SaveConflictError
	require.ErrorAs(t, err, &conflict)
	assert.True(t, conflict.ReadOnly)
	assert.Equal(t, []string{"user.go"}, conflict.Paths)
	assert.Contains(t, err.Error(), "read-only")

	content, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "old user", string(content))
}

func TestSaveUnverifiableTargetFailsPreflight(t *testing.T) {
	// The output directory is a regular file, so stat on every target fails
	// with something other than "does not exist". That must stop the save
	// before the write loop rather than surfacing mid-write.
	notADir := filepath.Join(t.TempDir(), "Models")
	require.NoError(t, os.WriteFile(notADir, []byte("in the way"), 0o644))

	_, err := Save(sampleScaffolded(), notADir, false)
	require.Error(t, err)
	var conflict *SaveConflictError
	assert.False(t, errors.As(err, &conflict))
	assert.Contains(t, err.Error(), "checking")

	content, err := os.ReadFile(notADir)
	require.NoError(t, err)
	assert.Equal(t, "in the way", string(content))
}

func TestSaveCreatesOutputDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "deeply", "nested", "Models")

	_, err := Save(sampleScaffolded(), dir, false)
	require.NoError(t, err)
	assert.DirExists(t, dir)
}
