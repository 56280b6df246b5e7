package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
)

type JSONCodec struct{}

func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

func (JSONCodec) Encode(doc any) (string, error) {
	if doc == nil {
		return "{}", nil
	}
	if raw, ok := doc.(json.RawMessage); ok {
		return encodeRaw(raw)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode body: %w", err)
	}
	return string(data), nil
}

// Decode keeps numbers as json.Number, so integers beyond 2^53 come back unchanged.
func (JSONCodec) Decode(text string) any {
	if text == "" {
		return emptyDocument()
	}
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil || doc == nil {
		return emptyDocument()
	}
	var trailing any
	if err := dec.Decode(&trailing); !errors.Is(err, io.EOF) {
		return emptyDocument()
	}
	return doc
}

// encodeRaw compacts an already serialized document so its size is not inflated by whitespace.
func encodeRaw(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "{}", nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return "", fmt.Errorf("compact body: %w", err)
	}
	return buf.String(), nil
}

func emptyDocument() map[string]any {
	return map[string]any{}
}
