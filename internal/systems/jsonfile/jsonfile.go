// Package jsonfile reads content JSON files the way contributors produce
// them: optionally gzip-compressed, UTF-8 with or without a byte order mark,
// or UTF-16 with a byte order mark.
package jsonfile

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"unicode/utf8"

	apperrors "github.com/louisbranch/rpg-systems/internal/platform/errors"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var gzipMagic = []byte{0x1f, 0x8b}

// File is a decoded content file.
type File struct {
	Path string
	// Raw holds the bytes as stored on disk.
	Raw []byte
	// Text holds the UTF-8 JSON text after decompression and BOM removal.
	Text []byte
	// Gzipped reports whether Raw was gzip-compressed.
	Gzipped bool
}

// Read loads and decodes path. Read failures carry CodeIO, decompression and
// encoding failures carry CodeParse.
func Read(path string) (File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return File{}, apperrors.Wrap(apperrors.CodeIO, "read file", err)
	}
	file := File{Path: path, Raw: raw}
	data := raw
	if bytes.HasPrefix(raw, gzipMagic) {
		file.Gzipped = true
		data, err = gunzip(raw)
		if err != nil {
			return File{}, apperrors.Wrap(apperrors.CodeParse, "decompress gzip", err)
		}
	}
	text, err := DecodeText(data)
	if err != nil {
		return File{}, err
	}
	file.Text = text
	return file, nil
}

// DecodeText converts data into UTF-8 text without a byte order mark.
func DecodeText(data []byte) ([]byte, error) {
	if !hasUTF16BOM(data) && !utf8.Valid(data) {
		return nil, apperrors.New(apperrors.CodeParse, "malformed encoding: not valid UTF-8")
	}
	text, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeParse, "malformed encoding", err)
	}
	if !utf8.Valid(text) {
		return nil, apperrors.New(apperrors.CodeParse, "malformed encoding: invalid UTF-16")
	}
	return text, nil
}

// Decode parses JSON text into generic values. Numbers are kept as
// json.Number so integer precision survives validation.
func Decode(text []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(text))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeParse, "malformed JSON", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, apperrors.New(apperrors.CodeParse, "malformed JSON: unexpected data after top-level value")
	}
	return value, nil
}

// Load reads and decodes path in one step.
func Load(path string) (File, any, error) {
	file, err := Read(path)
	if err != nil {
		return File{}, nil, err
	}
	value, err := Decode(file.Text)
	if err != nil {
		return file, nil, err
	}
	return file, value, nil
}

// TypeName returns the JSON type name of a decoded value.
func TypeName(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case json.Number:
		if IsInteger(v) {
			return "integer"
		}
		return "number"
	case float64, float32, int, int64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", value)
	}
}

// IsNumber reports whether value is a decoded JSON number.
func IsNumber(value any) bool {
	switch value.(type) {
	case json.Number, float64, float32, int, int64:
		return true
	default:
		return false
	}
}

// IsInteger reports whether a JSON number has no fractional part.
func IsInteger(value any) bool {
	switch v := value.(type) {
	case json.Number:
		if _, err := v.Int64(); err == nil {
			return true
		}
		f, err := v.Float64()
		return err == nil && isIntegral(f)
	case float64:
		return isIntegral(v)
	case int, int64:
		return true
	default:
		return false
	}
}

func isIntegral(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f) && math.Trunc(f) == f
}

// Float returns value as float64 when it is a number.
func Float(value any) (float64, bool) {
	switch v := value.(type) {
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func gunzip(raw []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

func hasUTF16BOM(data []byte) bool {
	return bytes.HasPrefix(data, []byte{0xfe, 0xff}) || bytes.HasPrefix(data, []byte{0xff, 0xfe})
}
