// Copyright © 2024 The ELPS authors

package parser

import (
	"strings"
	"testing"

	"github.com/luthersystems/eclj/lang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReader(t *testing.T) {
	for _, kind := range []string{ReaderRD, ReaderParsec} {
		r := NewReader(WithKind(kind))
		forms, err := r.Read("test", strings.NewReader("(+ 1 2) [a]"))
		require.NoError(t, err, kind)
		require.Len(t, forms, 2, kind)
		assert.Equal(t, "(+ 1 2)", lang.PrStr(forms[0]), kind)
		assert.Equal(t, "[a]", lang.PrStr(forms[1]), kind)
	}
}

func TestNewReaderUnknown(t *testing.T) {
	_, err := NewReaderKind(WithKind("bogus"))
	assert.Error(t, err)
}
