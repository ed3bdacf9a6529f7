package testutil

import (
	"path/filepath"
	"runtime"
)

// RepoRoot returns the module root directory.
func RepoRoot() string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		panic("testutil: cannot locate source file")
	}
	return filepath.Join(filepath.Dir(file), "..", "..")
}

// SchemaDir returns the directory holding the CUE form of the fixture
// schema.
func SchemaDir() string {
	return filepath.Join(RepoRoot(), "testdata", "schema")
}
