package export

import (
	"io"

	"github.com/iksnae/llm-inspector/internal"
	"gopkg.in/yaml.v3"
)

// yamlReport is the YAML document layout: the session plus its derived views
type yamlReport struct {
	Session  *internal.NormalizedSession `yaml:"session"`
	Metrics  internal.Metrics            `yaml:"metrics"`
	Timeline *internal.Timeline          `yaml:"timeline"`
}

// YAMLExporter exports sessions in YAML format
type YAMLExporter struct{}

// Export exports a session to YAML format
func (e *YAMLExporter) Export(session *internal.NormalizedSession, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer func() { _ = enc.Close() }()

	return enc.Encode(yamlReport{
		Session:  session,
		Metrics:  internal.Aggregate(session.Exchanges, nil),
		Timeline: internal.BuildTimeline(session.Exchanges, internal.ScanLatestTurn),
	})
}

// Extension returns the file extension for this format
func (e *YAMLExporter) Extension() string {
	return "yaml"
}
