package cli

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminalPrompterConfirm(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"yes", "y\n", true},
		{"yes_long_upper", "YES\n", true},
		{"no", "n\n", false},
		{"empty_is_no", "\n", false},
		{"no_trailing_newline", "y", true},
		{"retry_after_garbage", "maybe\ny\n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &bytes.Buffer{}
			p := NewTerminalPrompter(strings.NewReader(tt.input), out)
			got, err := p.Confirm("Overwrite?")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "Overwrite? [y/N] ")
		})
	}
}

func TestTerminalPrompterConfirmEOF(t *testing.T) {
	p := NewTerminalPrompter(strings.NewReader(""), io.Discard)
	_, err := p.Confirm("Overwrite?")
	require.ErrorIs(t, err, io.EOF)
}

func TestTerminalPrompterWaitForEnter(t *testing.T) {
	out := &bytes.Buffer{}
	p := NewTerminalPrompter(strings.NewReader("\nn\n"), out)
	require.NoError(t, p.WaitForEnter("Log in to the password manager"))
	assert.Contains(t, out.String(), "Log in to the password manager\nPress enter when done.")

	// The buffered reader is shared between prompts.
	ok, err := p.Confirm("Again?")
	require.NoError(t, err)
	assert.False(t, ok)
}
