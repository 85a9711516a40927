package internal

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const unknownValue = "unknown"

// Normalizer converts raw session detail payloads into NormalizedSession.
// It never fails: absent or mistyped fields are coerced to safe defaults.
type Normalizer struct{}

// NewNormalizer creates a new Normalizer
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// NormalizeJSON decodes data and normalizes it. Undecodable input yields an empty session.
func (n *Normalizer) NormalizeJSON(data []byte) *NormalizedSession {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		LogDebug("session detail is not valid JSON: %v", err)
		raw = nil
	}
	return n.Normalize(raw)
}

// Normalize converts a decoded JSON value into a NormalizedSession
func (n *Normalizer) Normalize(raw any) *NormalizedSession {
	obj := asMap(raw)

	session := &NormalizedSession{
		ID:        stringOr(firstOf(obj, "id", "session_id", "sessionId"), unknownValue),
		Name:      asString(firstOf(obj, "name", "title")),
		Exchanges: []NormalizedExchange{},
	}

	items := asSlice(firstOf(obj, "exchanges", "records", "requests"))
	for i, item := range items {
		session.Exchanges = append(session.Exchanges, n.normalizeExchange(i, asMap(item)))
	}

	return session
}

// normalizeExchange reads one exchange. Fields are derived from the raw request and
// response objects when present, so the normalized form re-normalizes to itself.
func (n *Normalizer) normalizeExchange(index int, obj map[string]any) NormalizedExchange {
	rawReq := firstOf(obj, "request", "request_body", "rawRequest")
	rawResp := firstOf(obj, "response", "response_body", "rawResponse")
	req := asMap(rawReq)
	resp := asMap(rawResp)

	ex := NormalizedExchange{
		ID:          stringOr(firstOf(obj, "id", "request_id", "requestId"), fmt.Sprintf("exchange-%d", index)),
		Timestamp:   normalizeTimestamp(firstOf(obj, "timestamp", "created_at", "createdAt")),
		RawRequest:  rawReq,
		RawResponse: rawResp,
	}

	ex.Model = stringOr(firstOf(obj, "model"), stringOr(resp["model"], stringOr(req["model"], unknownValue)))

	if sys, ok := n.systemPrompt(req, obj); ok {
		ex.SystemPrompt = &sys
	}

	msgs, ok := req["messages"]
	if !ok {
		msgs = obj["messages"]
	}
	ex.Messages = n.normalizeMessages(asSlice(msgs))

	ex.ResponseContent = n.responseContent(rawResp, obj)

	if tools, ok := req["tools"]; ok {
		ex.Tools = n.normalizeTools(tools)
	} else if tools, ok := obj["tools"]; ok {
		ex.Tools = n.normalizeTools(tools)
	}

	if u, ok := resp["usage"]; ok {
		ex.Usage = normalizeUsage(u)
	} else if u, ok := obj["usage"]; ok {
		ex.Usage = normalizeUsage(u)
	}

	latency := asFloat(firstOf(obj, "latencyMs", "latency_ms", "total_latency_ms", "duration_ms"))
	if latency < 0 || math.IsNaN(latency) || math.IsInf(latency, 0) {
		latency = 0
	}
	ex.LatencyMs = latency

	return ex
}

func (n *Normalizer) systemPrompt(req, obj map[string]any) (string, bool) {
	v, ok := req["system"]
	if !ok {
		v, ok = firstPresent(obj, "systemPrompt", "system_prompt")
	}
	if !ok || v == nil {
		return "", false
	}
	switch s := v.(type) {
	case string:
		return s, true
	case []any:
		return parseContent(s).PlainText(), true
	}
	return "", false
}

func (n *Normalizer) normalizeMessages(items []any) []Message {
	messages := make([]Message, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		messages = append(messages, n.normalizeMessage(obj))
	}
	return messages
}

// normalizeMessage maps a request message; OpenAI tool messages and tool_calls
// become tool_result and tool_use blocks.
func (n *Normalizer) normalizeMessage(obj map[string]any) Message {
	rawRole := asString(obj["role"])
	role := n.normalizeRole(rawRole)

	if rawRole == "tool" {
		block := ToolResultBlock(asString(obj["tool_call_id"]), obj["content"])
		return Message{Role: role, Content: BlockContent(block)}
	}

	content := parseContent(obj["content"])
	if calls := asSlice(obj["tool_calls"]); len(calls) > 0 {
		var blocks []ContentBlock
		if content.IsBlocks() {
			blocks = append(blocks, content.Blocks...)
		} else if content.Text != "" {
			blocks = append(blocks, TextBlock(content.Text))
		}
		blocks = append(blocks, openAIToolCalls(calls)...)
		content = BlockContent(blocks...)
	}

	return Message{Role: role, Content: content}
}

// normalizeRole maps a raw role to one of system, user or assistant
func (n *Normalizer) normalizeRole(role string) Role {
	switch role {
	case "system", "developer":
		return RoleSystem
	case "assistant", "model":
		return RoleAssistant
	default:
		return RoleUser
	}
}

func (n *Normalizer) responseContent(rawResp any, obj map[string]any) []ContentBlock {
	switch resp := rawResp.(type) {
	case string:
		return []ContentBlock{TextBlock(resp)}
	case map[string]any:
		if choices := asSlice(resp["choices"]); len(choices) > 0 {
			return openAIChoices(choices)
		}
		if c, ok := resp["content"]; ok {
			content := parseContent(c)
			if content.IsBlocks() {
				return content.Blocks
			}
			return []ContentBlock{TextBlock(content.Text)}
		}
		return []ContentBlock{}
	}

	if rc, ok := obj["responseContent"]; ok {
		return parseBlocks(asSlice(rc))
	}

	// merged capture records
	var blocks []ContentBlock
	if text, ok := obj["response_text"].(string); ok && text != "" {
		blocks = append(blocks, TextBlock(text))
	}
	for _, call := range asSlice(obj["tool_calls"]) {
		c := asMap(call)
		id, idOK := c["id"].(string)
		name, nameOK := c["name"].(string)
		if !idOK || !nameOK || name == "" {
			continue
		}
		blocks = append(blocks, ToolUseBlock(id, name, c["input"]))
	}
	if blocks == nil {
		blocks = []ContentBlock{}
	}
	return blocks
}

func (n *Normalizer) normalizeTools(v any) []ToolDefinition {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	tools := make([]ToolDefinition, 0, len(items))
	for _, item := range items {
		obj := asMap(item)
		if fn, ok := obj["function"].(map[string]any); ok {
			obj = fn
		}
		name, ok := obj["name"].(string)
		if !ok || name == "" {
			continue
		}
		tools = append(tools, ToolDefinition{
			Name:        name,
			Description: asString(obj["description"]),
			InputSchema: firstOf(obj, "inputSchema", "input_schema", "parameters"),
		})
	}
	return tools
}

func normalizeUsage(v any) *Usage {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return &Usage{
		InputTokens:              asInt(firstOf(obj, "inputTokens", "input_tokens", "prompt_tokens")),
		OutputTokens:             asInt(firstOf(obj, "outputTokens", "output_tokens", "completion_tokens")),
		CacheReadInputTokens:     asInt(firstOf(obj, "cacheReadInputTokens", "cache_read_input_tokens")),
		CacheCreationInputTokens: asInt(firstOf(obj, "cacheCreationInputTokens", "cache_creation_input_tokens")),
	}
}

func openAIChoices(choices []any) []ContentBlock {
	blocks := []ContentBlock{}
	for _, choice := range choices {
		msg := asMap(asMap(choice)["message"])
		if text, ok := msg["content"].(string); ok && text != "" {
			blocks = append(blocks, TextBlock(text))
		}
		blocks = append(blocks, openAIToolCalls(asSlice(msg["tool_calls"]))...)
	}
	return blocks
}

func openAIToolCalls(calls []any) []ContentBlock {
	var blocks []ContentBlock
	for _, call := range calls {
		c := asMap(call)
		fn := asMap(c["function"])
		id, idOK := c["id"].(string)
		name, nameOK := fn["name"].(string)
		if !idOK || !nameOK || name == "" {
			continue
		}
		var input any = fn["arguments"]
		if s, ok := input.(string); ok {
			var decoded any
			if err := json.Unmarshal([]byte(s), &decoded); err == nil {
				input = decoded
			}
		}
		blocks = append(blocks, ToolUseBlock(id, name, input))
	}
	return blocks
}

// parseContent reads message content: a string, an array of blocks, or anything else as empty text
func parseContent(v any) Content {
	switch c := v.(type) {
	case string:
		return TextContent(c)
	case []any:
		return BlockContent(parseBlocks(c)...)
	}
	return TextContent("")
}

func parseBlocks(items []any) []ContentBlock {
	blocks := make([]ContentBlock, 0, len(items))
	for _, item := range items {
		if b, ok := parseBlock(item); ok {
			blocks = append(blocks, b)
		}
	}
	return blocks
}

// parseBlock validates the tagged-variant shape of a single block
func parseBlock(v any) (ContentBlock, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return ContentBlock{}, false
	}
	switch BlockType(asString(obj["type"])) {
	case BlockText:
		text, ok := obj["text"].(string)
		if !ok {
			return ContentBlock{}, false
		}
		return TextBlock(text), true
	case BlockToolUse:
		id, idOK := obj["id"].(string)
		name, nameOK := obj["name"].(string)
		if !idOK || !nameOK || name == "" {
			return ContentBlock{}, false
		}
		return ToolUseBlock(id, name, obj["input"]), true
	case BlockToolResult:
		id, ok := obj["tool_use_id"].(string)
		if !ok {
			return ContentBlock{}, false
		}
		b := ToolResultBlock(id, obj["content"])
		b.IsError, _ = obj["is_error"].(bool)
		return b, true
	}
	return ContentBlock{}, false
}

func normalizeTimestamp(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t <= 0 || math.IsNaN(t) || math.IsInf(t, 0) {
			return ""
		}
		return time.UnixMilli(int64(t)).UTC().Format(time.RFC3339Nano)
	}
	return ""
}

func asMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func asSlice(v any) []any {
	if s, ok := v.([]any); ok {
		return s
	}
	return nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func stringOr(v any, fallback string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return fallback
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err == nil {
			return f
		}
	}
	return 0
}

func asInt(v any) int {
	f := asFloat(v)
	if f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(f)
}

// firstOf returns the first non-nil value among keys
func firstOf(obj map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := obj[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func firstPresent(obj map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			return v, true
		}
	}
	return nil, false
}
