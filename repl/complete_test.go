// Copyright © 2018 The ELPS authors

package repl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luthersystems/eclj/compiler"
)

func TestSymbolCompleter(t *testing.T) {
	c := compiler.New()
	_, err := c.LoadString("setup", "(defn my-fn [x] x) (in-ns 'other) (def shared 1) (in-ns 'user)")
	require.NoError(t, err)

	sc := &symbolCompleter{rt: c.Runtime()}

	candidates, offset := sc.Do([]rune("(de"), 3)
	assert.Equal(t, 2, offset)
	assert.Contains(t, candidates, []rune("fn"))
	assert.Contains(t, candidates, []rune("fmacro"))

	candidates, offset = sc.Do([]rune("(my-"), 4)
	assert.Equal(t, 3, offset)
	assert.Equal(t, [][]rune{[]rune("fn")}, candidates)

	candidates, offset = sc.Do([]rune("(oth"), 4)
	assert.Equal(t, 3, offset)
	assert.Equal(t, [][]rune{[]rune("er/")}, candidates)

	candidates, offset = sc.Do([]rune("(other/sh"), 9)
	assert.Equal(t, 8, offset)
	assert.Equal(t, [][]rune{[]rune("ared")}, candidates)

	candidates, _ = sc.Do([]rune("(zzz-nonexistent"), 16)
	assert.Empty(t, candidates)

	candidates, _ = sc.Do([]rune("( "), 2)
	assert.Empty(t, candidates)
}
