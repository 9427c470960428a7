package protocol

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValid(t *testing.T) {
	tests := []struct {
		input  string
		prefix string
	}{
		{"get app", "app"},
		{"GET app", "app"},
		{"Get App", "App"},
		{"get a", "a"},
		{"get abcdefghijklmno", "abcdefghijklmno"},
		{"  get banan \r\n", "banan"},
		{"get XyZ\n", "XyZ"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			cmd, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, GetSuggestions{Prefix: tt.prefix}, cmd)
		})
	}
}

func TestParseInvalid(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"get",
		"get ",
		"get ab12",
		"get abcdefghijklmnop",
		"get  app",
		"get\tapp",
		"get app extra",
		"put app",
		"getapp",
		"gett app",
		"get ápp",
		"get app-le",
		"\x00\xff",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			cmd, err := Parse(input)
			assert.Nil(t, cmd)

			var perr *ParseError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, ParseErrorMessage, err.Error())
		})
	}
}

func TestParsePreservesSecondToken(t *testing.T) {
	letters := "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	for n := MinPrefixLen; n <= MaxPrefixLen; n++ {
		prefix := strings.Repeat(string(letters[(n*7)%len(letters)]), n)
		cmd, err := Parse("get " + prefix)
		require.NoError(t, err)
		assert.Equal(t, prefix, cmd.(GetSuggestions).Prefix)
	}
}

func TestFormatSuggestions(t *testing.T) {
	assert.Equal(t, "-> apply\n-> app\n-> apple", FormatSuggestions([]string{"apply", "app", "apple"}))
	assert.Equal(t, "", FormatSuggestions(nil))
}

func TestTerminate(t *testing.T) {
	assert.Equal(t, "x\n", Terminate("x"))
	assert.Equal(t, "x\n", Terminate("x\n"))
	assert.Equal(t, "\n", Terminate(""))
}
