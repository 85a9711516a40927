package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/iksnae/llm-inspector/internal"
)

func TestShowCommand(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantErr    string
		contains   []string
		notContain []string
	}{
		{
			name:    "without session ID",
			args:    []string{"show"},
			wantErr: "accepts 1 arg",
		},
		{
			name: "default window",
			args: []string{"show", "s-anthropic"},
			contains: []string{
				"Weather lookup", "Exchanges: 2", "Window: 0-1",
				"Requests:", "[0] ex-1", "▸ [1] ex-2", "It is sunny.", "Weather in Paris?",
				"Tool calls:   1 (1 unique)",
			},
			notContain: []string{"Tool timeline"},
		},
		{
			name:       "explicit window",
			args:       []string{"show", "s-anthropic", "--window", "0:0"},
			contains:   []string{"Window: 0-0", "[0] ex-1", "claude-3-5-sonnet"},
			notContain: []string{"ex-2"},
		},
		{
			name:     "open-ended window",
			args:     []string{"show", "s-anthropic", "--window", "1:"},
			contains: []string{"Window: 1-1", "ex-2"},
		},
		{
			name:     "limit",
			args:     []string{"show", "s-anthropic", "--limit", "1"},
			contains: []string{"[0] ex-1", "... (1 more exchange(s))"},
		},
		{
			name:     "highlight exchange",
			args:     []string{"show", "s-anthropic", "--exchange", "ex-1"},
			contains: []string{"▸ [0] ex-1", "[1] ex-2"},
		},
		{
			name:     "tool timeline",
			args:     []string{"show", "s-anthropic", "--tools"},
			contains: []string{"Tool timeline", "call", "result", "get_weather", `{"city":"Paris"}`, "sunny"},
		},
		{
			name:     "series",
			args:     []string{"show", "s-anthropic", "--series", "--window", "1:1"},
			contains: []string{"Per-exchange series", "Latency ms", "ex-2"},
		},
		{
			name:     "openai capture",
			args:     []string{"show", "s-openai", "--tools"},
			contains: []string{"s-openai", "r-1", "gpt-4o", "x is found", "lookup"},
		},
		{
			name:    "window outside the session",
			args:    []string{"show", "s-anthropic", "--window", "5:9"},
			wantErr: "selects no exchanges",
		},
		{
			name:    "malformed window",
			args:    []string{"show", "s-anthropic", "--window", "abc"},
			wantErr: "expected start:end",
		},
		{
			name:    "unknown exchange",
			args:    []string{"show", "s-anthropic", "--exchange", "nope"},
			wantErr: "exchange not found",
		},
		{
			name:    "unknown session",
			args:    []string{"show", "missing"},
			wantErr: "failed to load session",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			api := newTestAPI(t)

			out, err := executeCommand(t, append(tt.args, "--api", api.URL())...)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("show failed: %v", err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
			for _, unwanted := range tt.notContain {
				if strings.Contains(out, unwanted) {
					t.Errorf("output should not contain %q:\n%s", unwanted, out)
				}
			}
		})
	}
}

func TestDisplaySeries(t *testing.T) {
	var buf bytes.Buffer
	points := internal.Series([]internal.NormalizedExchange{
		internal.CreateTestExchange("a", 100, 10, 5),
		internal.CreateToolExchange("b"),
	})
	displaySeries(&buf, points, 3)

	want := map[string][]string{
		"a": {"3", "a", "100", "10", "5", "0"},
		"b": {"4", "b", "250", "100", "40", "1"},
	}
	for _, line := range strings.Split(buf.String(), "\n") {
		fields := strings.Fields(line)
		if len(fields) != 6 {
			continue
		}
		if expected, ok := want[fields[1]]; ok {
			if strings.Join(fields, " ") != strings.Join(expected, " ") {
				t.Errorf("row = %v, want %v", fields, expected)
			}
			delete(want, fields[1])
		}
	}
	if len(want) > 0 {
		t.Errorf("missing rows %v in:\n%s", want, buf.String())
	}
}

func TestShowCommand_EmptySession(t *testing.T) {
	isolate(t)
	api := newTestAPIWith(t, `[{"id": "s-empty"}]`, map[string]string{
		"s-empty": `{"id": "s-empty", "exchanges": []}`,
	})

	out, err := executeCommand(t, "show", "s-empty", "--api", api.URL())
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}
	if !strings.Contains(out, "(no exchanges)") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestParseWindow(t *testing.T) {
	tests := []struct {
		spec    string
		n       int
		want    internal.Window
		wantErr bool
	}{
		{"0:9", 100, internal.Window{Start: 0, End: 9}, false},
		{"40:", 100, internal.Window{Start: 40, End: 99}, false},
		{":5", 100, internal.Window{Start: 0, End: 5}, false},
		{":", 3, internal.Window{Start: 0, End: 2}, false},
		{"2:500", 10, internal.Window{Start: 2, End: 9}, false},
		{" 1 : 2 ", 10, internal.Window{Start: 1, End: 2}, false},
		{"5:2", 10, internal.Window{}, true},
		{"12:20", 10, internal.Window{}, true},
		{"-1:2", 10, internal.Window{}, true},
		{"a:b", 10, internal.Window{}, true},
		{"7", 10, internal.Window{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := parseWindow(tt.spec, tt.n)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseWindow(%q) error = %v, wantErr %v", tt.spec, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseWindow(%q) = %+v, want %+v", tt.spec, got, tt.want)
			}
		})
	}
}

func TestResolveWindow(t *testing.T) {
	w, ok, err := resolveWindow("", 100, 30)
	if err != nil || !ok {
		t.Fatalf("resolveWindow() = %v, %v", ok, err)
	}
	if w != (internal.Window{Start: 70, End: 99}) {
		t.Errorf("default window = %+v, want trailing 30", w)
	}

	w, ok, err = resolveWindow("", 10, 30)
	if err != nil || !ok || w != (internal.Window{Start: 0, End: 9}) {
		t.Errorf("short series window = %+v, %v, %v", w, ok, err)
	}

	if _, ok, err := resolveWindow("0:1", 0, 30); ok || err != nil {
		t.Errorf("empty series should yield no window, got ok=%v err=%v", ok, err)
	}
}

func TestWrapText(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  string
	}{
		{
			name:  "short line",
			text:  "hello world",
			width: 80,
			want:  "hello world",
		},
		{
			name:  "wraps at width",
			text:  "one two three four",
			width: 9,
			want:  "one two\nthree\nfour",
		},
		{
			name:  "keeps existing newlines",
			text:  "a\nb",
			width: 80,
			want:  "a\nb",
		},
		{
			name:  "overlong word",
			text:  "abcdefghijkl xy",
			width: 5,
			want:  "abcdefghijkl\nxy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := wrapText(tt.text, tt.width); got != tt.want {
				t.Errorf("wrapText() = %q, want %q", got, tt.want)
			}
		})
	}
}
