package internal

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// SummaryPreviewLength is the number of characters kept in a tool event summary
const SummaryPreviewLength = 160

const summaryEllipsis = "..."

// ToolEventKind distinguishes calls from results
type ToolEventKind string

const (
	ToolCall   ToolEventKind = "call"
	ToolResult ToolEventKind = "result"
)

// ToolSource tells whether an event came from the request context or the response
type ToolSource string

const (
	SourceContext  ToolSource = "context"
	SourceResponse ToolSource = "response"
)

// SourcePolicy selects which parts of an exchange emit events
type SourcePolicy int

const (
	// ScanAll emits events for every context block, then every response block.
	ScanAll SourcePolicy = iota
	// ScanResponse emits events for the response only.
	ScanResponse
	// ScanLatestTurn emits events for the context messages after the last
	// assistant message, then the response.
	ScanLatestTurn
)

// ToolEvent is a derived tool call or tool result
type ToolEvent struct {
	Kind          ToolEventKind `json:"kind" yaml:"kind"`
	Name          string        `json:"name" yaml:"name"`
	ID            string        `json:"id,omitempty" yaml:"id,omitempty"`
	Source        ToolSource    `json:"source" yaml:"source"`
	SequenceIndex int           `json:"sequenceIndex" yaml:"sequence_index"`
	Summary       string        `json:"summary,omitempty" yaml:"summary,omitempty"`
	IsError       bool          `json:"isError,omitempty" yaml:"is_error,omitempty"`
	ExchangeIndex int           `json:"exchangeIndex" yaml:"exchange_index"`
	ExchangeID    string        `json:"exchangeId,omitempty" yaml:"exchange_id,omitempty"`
}

type taggedBlock struct {
	block  ContentBlock
	source ToolSource
}

// Correlate pairs tool_use and tool_result blocks into an ordered event sequence.
// Result names are resolved against every tool_use block of the exchange; the
// first name seen for an id wins, and unmatched results are named "unknown".
func Correlate(messages []Message, response []ContentBlock, policy SourcePolicy) []ToolEvent {
	names := make(map[string]string)
	index := func(b ContentBlock) {
		if b.Type != BlockToolUse {
			return
		}
		if _, seen := names[b.ID]; !seen {
			names[b.ID] = b.Name
		}
	}
	for _, msg := range messages {
		for _, b := range msg.Content.Blocks {
			index(b)
		}
	}
	for _, b := range response {
		index(b)
	}

	var scan []taggedBlock
	contextFrom := 0
	switch policy {
	case ScanResponse:
		contextFrom = len(messages)
	case ScanLatestTurn:
		contextFrom = latestTurnStart(messages)
	}
	for _, msg := range messages[contextFrom:] {
		for _, b := range msg.Content.Blocks {
			scan = append(scan, taggedBlock{block: b, source: SourceContext})
		}
	}
	for _, b := range response {
		scan = append(scan, taggedBlock{block: b, source: SourceResponse})
	}

	events := []ToolEvent{}
	for _, tb := range scan {
		b := tb.block
		switch b.Type {
		case BlockToolUse:
			events = append(events, ToolEvent{
				Kind:          ToolCall,
				Name:          b.Name,
				ID:            b.ID,
				Source:        tb.source,
				SequenceIndex: len(events),
				Summary:       Truncate(serializeValue(b.Input), SummaryPreviewLength),
			})
		case BlockToolResult:
			name, ok := names[b.ToolUseID]
			if !ok {
				name = unknownValue
			}
			events = append(events, ToolEvent{
				Kind:          ToolResult,
				Name:          name,
				ID:            b.ToolUseID,
				Source:        tb.source,
				SequenceIndex: len(events),
				Summary:       Truncate(serializeValue(b.Result), SummaryPreviewLength),
				IsError:       b.IsError,
			})
		}
	}
	return events
}

// latestTurnStart returns the index of the first message after the last assistant message
func latestTurnStart(messages []Message) int {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleAssistant {
			return i + 1
		}
	}
	return 0
}

// Truncate shortens s to limit characters followed by an ellipsis
func Truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + summaryEllipsis
}

// serializeValue renders a tool input or result as display text.
// Strings are used as-is and arrays of text blocks are joined.
func serializeValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []any:
		var parts []string
		for _, item := range val {
			b, ok := parseBlock(item)
			if !ok || b.Type != BlockText {
				return marshalCompact(v)
			}
			parts = append(parts, b.Text)
		}
		return strings.Join(parts, "\n")
	}
	return marshalCompact(v)
}

func marshalCompact(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

// Timeline is the session-wide tool event sequence
type Timeline struct {
	Events []ToolEvent `json:"events" yaml:"events"`
	// ToolNames lists tool names in first-seen order; the position is the category index
	ToolNames []string `json:"toolNames" yaml:"tool_names"`

	categories map[string]int
}

// BuildTimeline correlates each exchange separately and concatenates the results in exchange order
func BuildTimeline(exchanges []NormalizedExchange, policy SourcePolicy) *Timeline {
	tl := &Timeline{
		Events:     []ToolEvent{},
		ToolNames:  []string{},
		categories: make(map[string]int),
	}
	for i, ex := range exchanges {
		for _, ev := range Correlate(ex.Messages, ex.ResponseContent, policy) {
			ev.ExchangeIndex = i
			ev.ExchangeID = ex.ID
			ev.SequenceIndex = len(tl.Events)
			if _, ok := tl.categories[ev.Name]; !ok {
				tl.categories[ev.Name] = len(tl.ToolNames)
				tl.ToolNames = append(tl.ToolNames, ev.Name)
			}
			tl.Events = append(tl.Events, ev)
		}
	}
	return tl
}

// Category returns the first-seen index of a tool name
func (t *Timeline) Category(name string) (int, bool) {
	idx, ok := t.categories[name]
	return idx, ok
}

// WindowForExchanges maps an exchange-index window to the event-index window
// covering events of those exchanges. It reports false when no event falls inside.
func (t *Timeline) WindowForExchanges(w Window) (Window, bool) {
	start, end := -1, -1
	for i, ev := range t.Events {
		if ev.ExchangeIndex < w.Start || ev.ExchangeIndex > w.End {
			continue
		}
		if start < 0 {
			start = i
		}
		end = i
	}
	if start < 0 {
		return Window{}, false
	}
	return Window{Start: start, End: end}, true
}
