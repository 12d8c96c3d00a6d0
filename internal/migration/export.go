package migration

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/danielolaszy/sfmigrate/pkg/models"
)

// YAMLExporter writes drafts as a stream of YAML documents.
type YAMLExporter struct {
	encoder *yaml.Encoder
	count   int
}

// NewYAMLExporter returns an exporter writing to w. Close flushes the stream.
func NewYAMLExporter(w io.Writer) *YAMLExporter {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	return &YAMLExporter{encoder: encoder}
}

// WriteDraft appends draft as one YAML document.
func (e *YAMLExporter) WriteDraft(draft models.IssueDraft) error {
	if err := e.encoder.Encode(draft); err != nil {
		return fmt.Errorf("failed to encode draft for ticket %d: %w", draft.SourceNumber, err)
	}
	e.count++
	return nil
}

// Count returns the number of drafts written.
func (e *YAMLExporter) Count() int {
	return e.count
}

// Close flushes the encoder.
func (e *YAMLExporter) Close() error {
	return e.encoder.Close()
}
