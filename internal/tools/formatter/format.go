// Package formatter rewrites resource instance files in canonical form:
// two-space indentation, ASCII-only strings, key order preserved and a
// trailing newline. Gzip-compressed files stay compressed.
package formatter

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf16"

	apperrors "github.com/louisbranch/rpg-systems/internal/platform/errors"
	"github.com/louisbranch/rpg-systems/internal/systems/jsonfile"
	"github.com/tidwall/gjson"
)

const indentUnit = "  "

// Format returns the canonical rendering of a JSON document. Numbers keep
// their source text.
func Format(text []byte) ([]byte, error) {
	if _, err := jsonfile.Decode(text); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	writeValue(&buf, gjson.ParseBytes(text), 0)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// FormatFile rewrites path in canonical form. The file is left untouched
// when its content is already canonical; for gzip files the decompressed
// text is compared, since compressed bytes vary between encoders.
func FormatFile(path string) (changed bool, err error) {
	file, err := jsonfile.Read(path)
	if err != nil {
		return false, err
	}
	formatted, err := Format(file.Text)
	if err != nil {
		return false, err
	}

	if file.Gzipped {
		if bytes.Equal(decompressed(file), formatted) {
			return false, nil
		}
		formatted, err = compress(formatted)
		if err != nil {
			return false, err
		}
	} else if bytes.Equal(file.Raw, formatted) {
		return false, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return false, apperrors.Wrap(apperrors.CodeIO, "stat file", err)
	}
	if err := replaceFile(path, formatted, info.Mode().Perm()); err != nil {
		return false, apperrors.Wrap(apperrors.CodeIO, "write file", err)
	}
	return true, nil
}

// replaceFile writes data to a temporary file next to path and renames it
// over path, so readers see either the old or the new content.
func replaceFile(path string, data []byte, perm os.FileMode) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()
	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), perm); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// decompressed returns the text a gzip file held before BOM removal, so a
// BOM inside the archive still counts as a change.
func decompressed(file jsonfile.File) []byte {
	zr, err := gzip.NewReader(bytes.NewReader(file.Raw))
	if err != nil {
		return nil
	}
	defer zr.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(zr); err != nil {
		return nil
	}
	return buf.Bytes()
}

// compress gzips data with a zero modification time so output is stable.
func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("gzip writer: %w", err)
	}
	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("gzip write: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("gzip close: %w", err)
	}
	return buf.Bytes(), nil
}

type member struct {
	key   string
	value gjson.Result
}

func writeValue(buf *bytes.Buffer, value gjson.Result, depth int) {
	switch {
	case value.IsObject():
		var members []member
		value.ForEach(func(key, val gjson.Result) bool {
			members = append(members, member{key: key.String(), value: val})
			return true
		})
		if len(members) == 0 {
			buf.WriteString("{}")
			return
		}
		buf.WriteString("{\n")
		for idx, m := range members {
			buf.WriteString(strings.Repeat(indentUnit, depth+1))
			writeString(buf, m.key)
			buf.WriteString(": ")
			writeValue(buf, m.value, depth+1)
			if idx < len(members)-1 {
				buf.WriteByte(',')
			}
			buf.WriteByte('\n')
		}
		buf.WriteString(strings.Repeat(indentUnit, depth))
		buf.WriteByte('}')
	case value.IsArray():
		items := value.Array()
		if len(items) == 0 {
			buf.WriteString("[]")
			return
		}
		buf.WriteString("[\n")
		for idx, item := range items {
			buf.WriteString(strings.Repeat(indentUnit, depth+1))
			writeValue(buf, item, depth+1)
			if idx < len(items)-1 {
				buf.WriteByte(',')
			}
			buf.WriteByte('\n')
		}
		buf.WriteString(strings.Repeat(indentUnit, depth))
		buf.WriteByte(']')
	case value.Type == gjson.String:
		writeString(buf, value.String())
	default:
		buf.WriteString(strings.TrimSpace(value.Raw))
	}
}

// writeString quotes s, escaping everything outside printable ASCII as
// \uXXXX with lowercase hex and surrogate pairs above the BMP.
func writeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		default:
			switch {
			case r >= 0x20 && r < 0x7f:
				buf.WriteRune(r)
			case r > 0xffff:
				hi, lo := utf16.EncodeRune(r)
				fmt.Fprintf(buf, `\u%04x\u%04x`, hi, lo)
			default:
				fmt.Fprintf(buf, `\u%04x`, r)
			}
		}
	}
	buf.WriteByte('"')
}
