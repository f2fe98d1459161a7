package main

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/tidwall/pretty"
)

// printValue writes strings as they are and everything else as indented
// JSON, colored when w is a terminal.
func printValue(w io.Writer, v any) error {
	if s, ok := v.(string); ok {
		_, err := io.WriteString(w, s+"\n")
		return err
	}

	data, err := marshal(v)
	if err != nil {
		return err
	}
	data = pretty.Pretty(data)
	if isTerminal(w) {
		data = pretty.Color(data, nil)
	}
	_, err = w.Write(data)
	return err
}

// compact renders v as single-line JSON.
func compact(v any) string {
	data, err := marshal(v)
	if err != nil {
		return "?"
	}
	return string(pretty.Ugly(data))
}

// marshal encodes v as JSON without escaping the <, > and & of key names.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
