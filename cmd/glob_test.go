// Copyright © 2024 The ELPS authors

package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterExcludes_ByName(t *testing.T) {
	paths := []string{
		"src/main.clj",
		"src/generated.clj",
		"lib/utils.clj",
	}
	result := filterExcludes(paths, []string{"generated.clj"})
	assert.Equal(t, []string{"src/main.clj", "lib/utils.clj"}, result)
}

func TestFilterExcludes_ByDirectory(t *testing.T) {
	paths := []string{
		"src/main.clj",
		"target/output.clj",
		"target/sub/deep.clj",
		"lib/utils.clj",
	}
	result := filterExcludes(paths, []string{"target"})
	assert.Equal(t, []string{"src/main.clj", "lib/utils.clj"}, result)
}

func TestFilterExcludes_GlobPattern(t *testing.T) {
	paths := []string{
		"src/main.clj",
		"src/gen_foo.clj",
		"src/gen_bar.clj",
		"lib/utils.clj",
	}
	result := filterExcludes(paths, []string{"gen_*"})
	assert.Equal(t, []string{"src/main.clj", "lib/utils.clj"}, result)
}

func TestFilterExcludes_NoMatches(t *testing.T) {
	paths := []string{"src/main.clj", "lib/utils.clj"}
	result := filterExcludes(paths, []string{"nonexistent"})
	assert.Equal(t, paths, result)
}

func TestFilterExcludes_EmptyExcludes(t *testing.T) {
	paths := []string{"src/main.clj"}
	assert.Equal(t, paths, filterExcludes(paths, nil))
}

func TestMatchesAny(t *testing.T) {
	assert.True(t, matchesAny("src/main.clj", []string{"src/*.clj"}))
	assert.False(t, matchesAny("lib/main.clj", []string{"src/*.clj"}))
	assert.True(t, matchesAny("deep/nested/core.clj", []string{"core.clj"}))
	assert.True(t, matchesAny("project/target/output.clj", []string{"target"}))
	assert.False(t, matchesAny("project/src/output.clj", []string{"target"}))
}

func TestSplitPath(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c.clj"}, splitPath("./a/b/c.clj"))
}

func TestExpandArgs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.clj", "sub/b.eclj", "sub/notes.txt", "skip/c.clj"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("nil"), 0o600))
	}
	files, err := expandArgs([]string{dir + "/...", "extra.clj"}, []string{"skip"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "a.clj"),
		filepath.Join(dir, "sub", "b.eclj"),
		"extra.clj",
	}, files)
}
