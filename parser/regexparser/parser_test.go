package regexparser

import (
	"strings"
	"testing"

	"github.com/luthersystems/eclj/lang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseForms(t *testing.T) {
	tests := []struct {
		source string
		output string
	}{
		{`1 -2 0.5`, `1 -2 0.5`},
		{`"abc"`, `"abc"`},
		{`(+ x 1)`, `(+ x 1)`},
		{`[a, b] {:k nil}`, `[a b] {:k nil}`},
		{`#{1} 'q`, `#{1} (quote q)`},
		{`; comment` + "\n" + `(f)`, `(f)`},
		{`\a true`, `\a true`},
	}
	for _, test := range tests {
		forms, n, err := ParseForms([]byte(test.source))
		if !assert.NoError(t, err, test.source) {
			continue
		}
		assert.Equal(t, len(test.source), n)
		var printed []string
		for _, f := range forms {
			printed = append(printed, lang.PrStr(f))
		}
		assert.Equal(t, test.output, strings.Join(printed, " "), test.source)
	}
}

func TestReader(t *testing.T) {
	forms, err := NewReader().Read("test", strings.NewReader(`(def x 1) x`))
	require.NoError(t, err)
	assert.Len(t, forms, 2)

	_, err = NewReader().Read("test", strings.NewReader(`(def x`))
	assert.Error(t, err)
}
