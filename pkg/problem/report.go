package problem

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"
)

// Report logs every problem at its kind's level, followed by a per-kind
// summary at info level. A nil logger uses log.Default().
func Report(logger *log.Logger, ps []Problem) {
	if logger == nil {
		logger = log.Default()
	}
	for _, p := range ps {
		logger.Log(p.Kind.Level(), p.Message())
	}

	counts := CountKinds(ps)
	for _, k := range Kinds() {
		if n := counts[k]; n > 0 {
			logger.Info("summary", "kind", k.String(), "count", n)
		}
	}
}

// Document is the exported form of a problem list.
type Document struct {
	Problems []Problem `json:"problems" yaml:"problems"`
	Counts   Counts    `json:"counts" yaml:"counts"`
	Total    int       `json:"total" yaml:"total"`
}

// NewDocument builds an export document from ps.
func NewDocument(ps []Problem) Document {
	counts := CountKinds(ps)
	return Document{Problems: ps, Counts: counts, Total: counts.Total()}
}

// Export format names accepted by [Write].
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Write encodes ps to w in the given format.
func Write(w io.Writer, ps []Problem, format string) error {
	switch format {
	case FormatJSON, "":
		return WriteJSON(w, ps)
	case FormatYAML, "yml":
		return WriteYAML(w, ps)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

// WriteJSON encodes ps as an indented JSON document.
func WriteJSON(w io.Writer, ps []Problem) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewDocument(ps)); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// WriteYAML encodes ps as a YAML document.
func WriteYAML(w io.Writer, ps []Problem) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(NewDocument(ps)); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

// ReadJSON decodes a document written by [Write] in JSON format.
func ReadJSON(r io.Reader) ([]Problem, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return doc.Problems, nil
}
