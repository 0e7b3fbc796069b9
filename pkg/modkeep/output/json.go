package output

import (
	"bytes"
	"encoding/json"
)

// summary is appended to json and yaml documents.
type summary struct {
	Total     int   `json:"total" yaml:"total"`
	Enabled   int   `json:"enabled" yaml:"enabled"`
	TotalSize int64 `json:"total_size" yaml:"total_size"`
}

type document struct {
	Root     string   `json:"root" yaml:"root"`
	Mods     []ModRow `json:"mods" yaml:"mods"`
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Summary  summary  `json:"summary" yaml:"summary"`
}

func newDocument(r *Result) document {
	mods := r.Mods
	if mods == nil {
		mods = []ModRow{}
	}
	return document{
		Root:     r.Root,
		Mods:     mods,
		Warnings: r.Warnings,
		Summary: summary{
			Total:     len(r.Mods),
			Enabled:   r.EnabledCount(),
			TotalSize: r.TotalSize(),
		},
	}
}

// JSONFormatter writes one indented JSON document.
type JSONFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(newDocument(r))
}

// JSONLFormatter writes one compact JSON object per mod.
type JSONLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONLFormatter) Format(w *bytes.Buffer, r *Result) error {
	encoder := json.NewEncoder(w)
	for _, m := range r.Mods {
		if err := encoder.Encode(m); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	Register("json", func() Formatter { return &JSONFormatter{} })
	Register("jsonl", func() Formatter { return &JSONLFormatter{} })
}

var (
	_ Formatter = (*JSONFormatter)(nil)
	_ Formatter = (*JSONLFormatter)(nil)
)
