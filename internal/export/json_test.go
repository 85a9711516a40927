package export

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/iksnae/llm-inspector/internal"
	"github.com/iksnae/llm-inspector/testutil"
)

func TestJSONExporter_Export(t *testing.T) {
	tests := []struct {
		name    string
		session *internal.NormalizedSession
		want    []string
	}{
		{
			name:    "basic session",
			session: internal.CreateTestSession("test1", 1),
			want: []string{
				`"id": "test1"`,
				`"exchanges": [`,
				`"model": "claude-test"`,
				`"latencyMs": 100`,
			},
		},
		{
			name: "tool exchange",
			session: &internal.NormalizedSession{
				ID:        "test2",
				Exchanges: []internal.NormalizedExchange{internal.CreateToolExchange("ex")},
			},
			want: []string{
				`"type": "tool_use"`,
				`"type": "tool_result"`,
				`"tool_use_id": "ex-t1"`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			exporter := &JSONExporter{}

			if err := exporter.Export(tt.session, &buf); err != nil {
				t.Fatalf("JSONExporter.Export() error = %v", err)
			}

			output := buf.String()
			for _, want := range tt.want {
				if !strings.Contains(output, want) {
					t.Errorf("JSONExporter.Export() output missing %q\nGot: %s", want, output)
				}
			}

			var obj map[string]interface{}
			testutil.JSONUnmarshal(t, buf.Bytes(), &obj)
		})
	}
}

func TestJSONExporter_RoundTrip(t *testing.T) {
	session := &internal.NormalizedSession{
		ID:   "roundtrip",
		Name: "Round trip",
		Exchanges: []internal.NormalizedExchange{
			internal.CreateTestExchange("a", 120, 10, 5),
			internal.CreateToolExchange("b"),
		},
	}

	var buf bytes.Buffer
	if err := (&JSONExporter{}).Export(session, &buf); err != nil {
		t.Fatalf("JSONExporter.Export() error = %v", err)
	}

	got := internal.NewNormalizer().NormalizeJSON(buf.Bytes())
	if !reflect.DeepEqual(got, normalizeAgain(t, got)) {
		t.Error("exported session does not re-normalize to itself")
	}
	if got.ID != "roundtrip" || len(got.Exchanges) != 2 {
		t.Errorf("got id %q with %d exchanges", got.ID, len(got.Exchanges))
	}
	if got.Exchanges[1].Messages[1].Content.Blocks[1].Name != "search" {
		t.Errorf("tool_use block lost in round trip: %+v", got.Exchanges[1].Messages[1])
	}
}

func normalizeAgain(t *testing.T, s *internal.NormalizedSession) *internal.NormalizedSession {
	t.Helper()
	return internal.NewNormalizer().NormalizeJSON(testutil.JSONMarshal(t, s))
}

func TestJSONExporter_Extension(t *testing.T) {
	exporter := &JSONExporter{}
	if got := exporter.Extension(); got != "json" {
		t.Errorf("JSONExporter.Extension() = %v, want json", got)
	}
}
