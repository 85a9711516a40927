package export

import (
	"encoding/json"
	"io"

	"github.com/iksnae/llm-inspector/internal"
)

// JSONExporter exports the normalized session as pretty-printed JSON. The output
// can be fed back through the normalizer unchanged.
type JSONExporter struct{}

// Export exports a session to JSON format
func (e *JSONExporter) Export(session *internal.NormalizedSession, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(session)
}

// Extension returns the file extension for this format
func (e *JSONExporter) Extension() string {
	return "json"
}
