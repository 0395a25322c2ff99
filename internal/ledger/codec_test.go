package ledger

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	machineA = "6f1c1f9e-3b0a-4b59-9a3e-0e3cbd1d8a11"
	machineB = "0a6b4c1d-2e3f-4a5b-8c7d-9e0f1a2b3c4d"
)

func sampleLedger(t *testing.T) *Ledger {
	t.Helper()
	a := mustMachine(t, machineA)
	b := mustMachine(t, machineB)

	l := New()
	l.AddMachine(a, NewMachineData("alpha"))
	l.AddMachine(b, NewMachineData("beta"))

	apt, err := NewApt("cowsay")
	require.NoError(t, err)
	r1, err := NewRecord(0x0000000a, apt, "fun")
	require.NoError(t, err)
	r1.MarkExecuted(a)
	r1.MarkExecuted(b)

	cmd, err := NewCommand("echo hi", "echo bye")
	require.NoError(t, err)
	r2, err := NewRecord(0x12345678, cmd, "")
	require.NoError(t, err)
	r2.MarkExecuted(a)
	require.NoError(t, r2.MarkForUndo())

	expected := "old"
	file, err := NewFile("/etc/motd", &expected)
	require.NoError(t, err)
	r3, err := NewRecord(0xdeadbeef, file, "")
	require.NoError(t, err)

	manual, err := NewManual("reboot")
	require.NoError(t, err)
	r4, err := NewRecord(0x00c0ffee, manual, "")
	require.NoError(t, err)
	r4.MarkExecuted(b)
	require.NoError(t, r4.MarkForUndo())
	require.NoError(t, r4.MarkUndone(b))

	for _, r := range []*Record{r1, r2, r3, r4} {
		require.NoError(t, l.Append(r))
	}
	return l
}

func TestCodecRoundTrip(t *testing.T) {
	l := sampleLedger(t)

	data, err := Encode(l)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)

	again, err := Encode(decoded)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again))

	recs := decoded.Records()
	require.Len(t, recs, 4)
	assert.Equal(t, "fun", recs[0].Comment())
	assert.Equal(t, "echo bye", recs[1].Piece().Command.Undo)
	require.NotNil(t, recs[2].Piece().File.ExpectedPreviousContent)
	assert.Equal(t, "old", *recs[2].Piece().File.ExpectedPreviousContent)

	// Marked for undo with nobody undone yet survives as an empty set.
	assert.True(t, recs[1].MarkedForUndo())
	assert.Empty(t, recs[1].UndoState().UndoneOn())
	assert.False(t, recs[2].MarkedForUndo())
	assert.True(t, recs[3].Unused())

	data2, ok := decoded.Machine(mustMachine(t, machineB))
	require.True(t, ok)
	assert.Equal(t, "beta", data2.Hostname)
}

func TestEncodeLayout(t *testing.T) {
	data, err := Encode(sampleLedger(t))
	require.NoError(t, err)
	text := string(data)

	assert.True(t, strings.HasPrefix(text, "version: 1\n"))
	assert.Contains(t, text, "id: \"12345678\"")
	assert.Contains(t, text, "undone_on: []")
	assert.Contains(t, text, "id: \"deadbeef\"")
	// Machines are sorted, so beta's id comes first.
	assert.Less(t, strings.Index(text, machineB+":"), strings.Index(text, machineA+":"))
}

func TestEncodeEmptyLedger(t *testing.T) {
	data, err := Encode(New())
	require.NoError(t, err)
	assert.Equal(t, "version: 1\nmachines: {}\npieces: []\n", string(data))

	l, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 0, l.Len())
}

func TestDecodeRejectsUndoneWithoutDone(t *testing.T) {
	data := `version: 1
machines: {}
pieces:
  - id: 0000000a
    apt:
      package: cowsay
    done_on: []
    undone_on:
      - ` + machineA + `
`
	_, err := Decode([]byte(data))
	require.ErrorIs(t, err, ErrInvariantViolation)
}

func TestDecodeRejectsSchemaViolations(t *testing.T) {
	tests := map[string]string{
		"unknown version": "version: 2\nmachines: {}\npieces: []\n",
		"bad id": `version: 1
machines: {}
pieces:
  - id: xyz
    apt: {package: cowsay}
    done_on: []
`,
		"bad machine key": `version: 1
machines:
  not-a-uuid: {hostname: x}
pieces: []
`,
		"relative file": `version: 1
machines: {}
pieces:
  - id: 0000000a
    file: {location: etc/motd}
    done_on: []
`,
		"unknown field": `version: 1
machines: {}
pieces:
  - id: 0000000a
    apt: {package: cowsay}
    done_on: []
    colour: red
`,
		"not yaml": "version: [1\n",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(data))
			require.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestDecodeRejectsTwoVariants(t *testing.T) {
	data := `version: 1
machines: {}
pieces:
  - id: 0000000a
    apt: {package: cowsay}
    manual: {message: hi}
    done_on: []
`
	_, err := Decode([]byte(data))
	require.ErrorIs(t, err, ErrInvalidPiece)
}

func TestDecodeKeepsStoredText(t *testing.T) {
	const nfc, nfd = "caf\u00e9", "cafe\u0301"

	cmd, err := NewCommand("echo "+nfd, "")
	require.NoError(t, err)
	assert.Equal(t, "echo "+nfc, cmd.Command.Run)
	r, err := NewRecord(0x0badf00d, cmd, nfd)
	require.NoError(t, err)
	assert.Equal(t, nfc, r.Comment())

	l := New()
	l.AddMachine(mustMachine(t, machineA), NewMachineData(nfc))
	require.NoError(t, l.Append(r))
	data, err := Encode(l)
	require.NoError(t, err)

	// A ledger written by another tool may hold decomposed text.
	stored := []byte(strings.ReplaceAll(string(data), nfc, nfd))
	require.NotEqual(t, data, stored)

	decoded, err := Decode(stored)
	require.NoError(t, err)
	got, err := decoded.Get(0x0badf00d)
	require.NoError(t, err)
	assert.Equal(t, nfd, got.Comment())

	again, err := Encode(decoded)
	require.NoError(t, err)
	assert.Equal(t, string(stored), string(again))

	got.SetComment(nfd)
	assert.Equal(t, nfc, got.Comment())
}
