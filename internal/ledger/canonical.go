package ledger

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// DomainPiece prefixes piece hashes. The version suffix allows the hashed
// form to change without colliding with old journal entries.
const DomainPiece = "falconf/piece/v1"

// PieceHash identifies the content of a piece: SHA-256 over the domain,
// a 0x00 separator and the canonical JSON of the piece.
func PieceHash(p Piece) (string, error) {
	data, err := MarshalCanonical(pieceObject(p))
	if err != nil {
		return "", fmt.Errorf("piece hash: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(DomainPiece))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// PieceObject is the map form of a piece used for hashing and JSON output.
func PieceObject(p Piece) map[string]any {
	return pieceObject(p)
}

func pieceObject(p Piece) map[string]any {
	obj := map[string]any{"kind": string(p.Kind)}
	switch p.Kind {
	case KindApt:
		obj["package"] = p.Apt.Package
	case KindCommand:
		obj["run"] = p.Command.Run
		if p.Command.Undo != "" {
			obj["undo"] = p.Command.Undo
		}
	case KindFile:
		obj["location"] = p.File.Location
		if p.File.ExpectedPreviousContent != nil {
			obj["expected_previous_content"] = *p.File.ExpectedPreviousContent
		}
	case KindManual:
		obj["message"] = p.Manual.Message
	}
	return obj
}

// MarshalCanonical renders v as RFC 8785 style canonical JSON: object keys
// sorted by UTF-16 code units, NFC strings, no HTML escaping. Only strings,
// integers, booleans, []any and map[string]any are accepted.
func MarshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		return fmt.Errorf("null is forbidden in canonical JSON")
	case string:
		return writeCanonicalString(buf, val)
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case int:
		fmt.Fprintf(buf, "%d", val)
	case int64:
		fmt.Fprintf(buf, "%d", val)
	case []string:
		arr := make([]any, len(val))
		for i, s := range val {
			arr[i] = s
		}
		return writeCanonical(buf, arr)
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return lessUTF16(keys[i], keys[j]) })
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonicalString(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return fmt.Errorf("object[%q]: %w", k, err)
			}
		}
		buf.WriteByte('}')
	case float32, float64:
		return fmt.Errorf("floats are forbidden in canonical JSON: %v", val)
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

func writeCanonicalString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	out := bytes.TrimSuffix(tmp.Bytes(), []byte("\n"))

	// encoding/json escapes U+2028 and U+2029; canonical JSON keeps them
	// literal. Escapes always come in pairs, so walk them as pairs.
	for i := 0; i < len(out); i++ {
		c := out[i]
		if c != '\\' || i+1 >= len(out) {
			buf.WriteByte(c)
			continue
		}
		if out[i+1] == 'u' && i+6 <= len(out) && string(out[i+2:i+5]) == "202" && (out[i+5] == '8' || out[i+5] == '9') {
			if out[i+5] == '8' {
				buf.WriteString("\u2028")
			} else {
				buf.WriteString("\u2029")
			}
			i += 5
			continue
		}
		buf.WriteByte(c)
		buf.WriteByte(out[i+1])
		i++
	}
	return nil
}

func lessUTF16(a, b string) bool {
	ua := utf16.Encode([]rune(a))
	ub := utf16.Encode([]rune(b))
	for i := 0; i < len(ua) && i < len(ub); i++ {
		if ua[i] != ub[i] {
			return ua[i] < ub[i]
		}
	}
	return len(ua) < len(ub)
}
