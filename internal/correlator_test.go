package internal

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorrelate_CallThenResult(t *testing.T) {
	messages := []Message{
		{Role: RoleAssistant, Content: BlockContent(ToolUseBlock("a", "search", nil))},
		{Role: RoleUser, Content: BlockContent(ToolResultBlock("a", "x"))},
	}

	events := Correlate(messages, nil, ScanAll)

	require.Len(t, events, 2)
	assert.Equal(t, ToolEvent{Kind: ToolCall, Name: "search", ID: "a", Source: SourceContext, SequenceIndex: 0}, events[0])
	assert.Equal(t, ToolEvent{Kind: ToolResult, Name: "search", ID: "a", Source: SourceContext, SequenceIndex: 1, Summary: "x"}, events[1])
}

func TestCorrelate_UnmatchedResult(t *testing.T) {
	messages := []Message{
		{Role: RoleUser, Content: BlockContent(ToolResultBlock("z", "orphan"))},
	}

	events := Correlate(messages, nil, ScanAll)

	require.Len(t, events, 1)
	assert.Equal(t, ToolResult, events[0].Kind)
	assert.Equal(t, "unknown", events[0].Name)
	assert.Equal(t, "z", events[0].ID)
}

func TestCorrelate_ResultBeforeCall(t *testing.T) {
	messages := []Message{
		{Role: RoleUser, Content: BlockContent(ToolResultBlock("later", "ok"))},
	}
	response := []ContentBlock{ToolUseBlock("later", "fetch", map[string]any{"u": 1})}

	events := Correlate(messages, response, ScanAll)

	require.Len(t, events, 2)
	assert.Equal(t, "fetch", events[0].Name, "result resolves against calls anywhere in the exchange")
	assert.Equal(t, SourceContext, events[0].Source)
	assert.Equal(t, SourceResponse, events[1].Source)
	assert.Equal(t, `{"u":1}`, events[1].Summary)
}

func TestCorrelate_DuplicateIDFirstWins(t *testing.T) {
	messages := []Message{
		{Role: RoleAssistant, Content: BlockContent(
			ToolUseBlock("dup", "first", nil),
			ToolUseBlock("dup", "second", nil),
		)},
		{Role: RoleUser, Content: BlockContent(ToolResultBlock("dup", "r"))},
	}

	events := Correlate(messages, nil, ScanAll)

	require.Len(t, events, 3)
	assert.Equal(t, "first", events[2].Name)
}

func TestCorrelate_ErrorFlag(t *testing.T) {
	failed := ToolResultBlock("a", "denied")
	failed.IsError = true

	events := Correlate([]Message{{Role: RoleUser, Content: BlockContent(failed)}}, nil, ScanAll)

	require.Len(t, events, 1)
	assert.True(t, events[0].IsError)
}

func TestCorrelate_Policies(t *testing.T) {
	ex := CreateToolExchange("ex")

	tests := []struct {
		name   string
		policy SourcePolicy
		want   []string
	}{
		{name: "all", policy: ScanAll, want: []string{"call search context", "result search context", "call fetch response"}},
		{name: "response", policy: ScanResponse, want: []string{"call fetch response"}},
		{name: "latest turn", policy: ScanLatestTurn, want: []string{"result search context", "call fetch response"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for i, ev := range Correlate(ex.Messages, ex.ResponseContent, tt.policy) {
				assert.Equal(t, i, ev.SequenceIndex)
				got = append(got, string(ev.Kind)+" "+ev.Name+" "+string(ev.Source))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCorrelate_NoToolBlocks(t *testing.T) {
	ex := CreateTestExchange("plain", 10, 1, 1)
	events := Correlate(ex.Messages, ex.ResponseContent, ScanAll)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestCorrelate_SummaryTruncationBoundary(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "exactly 160", content: strings.Repeat("a", 160), want: strings.Repeat("a", 160)},
		{name: "161", content: strings.Repeat("a", 161), want: strings.Repeat("a", 160) + "..."},
		{name: "multibyte 161", content: strings.Repeat("é", 161), want: strings.Repeat("é", 160) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs := []Message{{Role: RoleUser, Content: BlockContent(ToolResultBlock("a", tt.content))}}
			events := Correlate(msgs, nil, ScanAll)
			require.Len(t, events, 1)
			assert.Equal(t, tt.want, events[0].Summary)
		})
	}
}

func TestSerializeValue(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{name: "nil", input: nil, want: ""},
		{name: "string", input: "plain", want: "plain"},
		{
			name: "text blocks",
			input: []any{
				map[string]any{"type": "text", "text": "one"},
				map[string]any{"type": "text", "text": "two"},
			},
			want: "one\ntwo",
		},
		{
			name:  "mixed array",
			input: []any{map[string]any{"type": "image"}},
			want:  `[{"type":"image"}]`,
		},
		{name: "object", input: map[string]any{"b": 2, "a": "x"}, want: `{"a":"x","b":2}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, serializeValue(tt.input))
		})
	}
}

func TestBuildTimeline(t *testing.T) {
	exchanges := []NormalizedExchange{
		CreateToolExchange("a"),
		CreateTestExchange("plain", 10, 1, 1),
		CreateToolExchange("b"),
	}

	tl := BuildTimeline(exchanges, ScanAll)

	require.Len(t, tl.Events, 6)
	for i, ev := range tl.Events {
		assert.Equal(t, i, ev.SequenceIndex)
	}
	assert.Equal(t, 0, tl.Events[0].ExchangeIndex)
	assert.Equal(t, "a", tl.Events[0].ExchangeID)
	assert.Equal(t, 2, tl.Events[3].ExchangeIndex)
	assert.Equal(t, "b", tl.Events[3].ExchangeID)

	assert.Equal(t, []string{"search", "fetch"}, tl.ToolNames)
	idx, ok := tl.Category("fetch")
	assert.True(t, ok)
	assert.Equal(t, 1, idx)
	_, ok = tl.Category("missing")
	assert.False(t, ok)
}

func TestTimeline_WindowForExchanges(t *testing.T) {
	tl := BuildTimeline([]NormalizedExchange{
		CreateToolExchange("a"),
		CreateTestExchange("plain", 10, 1, 1),
		CreateToolExchange("b"),
	}, ScanAll)

	tests := []struct {
		name   string
		window Window
		want   Window
		wantOK bool
	}{
		{name: "first exchange", window: Window{Start: 0, End: 0}, want: Window{Start: 0, End: 2}, wantOK: true},
		{name: "last two", window: Window{Start: 1, End: 2}, want: Window{Start: 3, End: 5}, wantOK: true},
		{name: "no events", window: Window{Start: 1, End: 1}, wantOK: false},
		{name: "outside", window: Window{Start: 5, End: 9}, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tl.WindowForExchanges(tt.window)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
