// Copyright © 2018 The ELPS authors

package token

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeString(t *testing.T) {
	used := make(map[string]bool)
	for tok := Type(0); tok < numTokenTypes; tok++ {
		str := tok.String()
		if str == "" {
			t.Errorf("token type %x has empty string value", tok)
			continue
		}
		if used[str] {
			t.Errorf("token type string used twice: %v", tok)
		}
		used[str] = true
	}
}

func TestScannerLocations(t *testing.T) {
	s := NewScanner("test", strings.NewReader("ab\ncd"))
	require.True(t, s.AcceptRune('a'))
	require.True(t, s.AcceptRune('b'))
	tok := s.EmitToken(SYMBOL)
	assert.Equal(t, "ab", tok.Text)
	assert.Equal(t, "test:1:1", tok.Source.String())

	assert.Equal(t, 1, s.AcceptSeqSpace())
	s.Ignore()
	assert.Equal(t, 2, s.AcceptSeq(func(c rune) bool { return c != ' ' }))
	tok = s.EmitToken(SYMBOL)
	assert.Equal(t, "cd", tok.Text)
	assert.Equal(t, "test:2:1", tok.Source.String())

	assert.True(t, s.EOF())
	assert.Equal(t, io.EOF, s.ScanRune())
}

func TestScannerInvalidUTF8(t *testing.T) {
	s := NewScanner("test", strings.NewReader("ab\xffcd"))
	assert.Equal(t, 2, s.AcceptSeq(func(rune) bool { return true }))
	assert.Error(t, s.Err())
	assert.False(t, s.EOF())
}

func TestCommaIsSpace(t *testing.T) {
	assert.True(t, IsSpace(','))
	assert.True(t, IsSpace('\t'))
	assert.False(t, IsSpace('x'))
}
