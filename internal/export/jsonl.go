package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/iksnae/llm-inspector/internal"
)

// JSONLExporter exports sessions in JSONL format (one exchange per line)
type JSONLExporter struct{}

// Export exports a session to JSONL format
func (e *JSONLExporter) Export(session *internal.NormalizedSession, w io.Writer) error {
	enc := json.NewEncoder(w)

	for i, ex := range session.Exchanges {
		obj := map[string]interface{}{
			"session_id": session.ID,
			"index":      i,
			"id":         ex.ID,
			"model":      ex.Model,
			"latency_ms": ex.LatencyMs,
			"messages":   len(ex.Messages),
			"response":   internal.BlockContent(ex.ResponseContent...).PlainText(),
			"tool_calls": countCalls(ex),
		}

		if ex.Timestamp != "" {
			obj["timestamp"] = ex.Timestamp
		}
		if ex.Usage != nil {
			obj["input_tokens"] = ex.Usage.InputTokens
			obj["output_tokens"] = ex.Usage.OutputTokens
		}

		if err := enc.Encode(obj); err != nil {
			return fmt.Errorf("failed to encode exchange: %w", err)
		}
	}

	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}

func countCalls(ex internal.NormalizedExchange) int {
	n := 0
	for _, ev := range internal.Correlate(ex.Messages, ex.ResponseContent, internal.ScanResponse) {
		if ev.Kind == internal.ToolCall {
			n++
		}
	}
	return n
}
