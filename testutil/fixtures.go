package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// AnthropicDetail is a session detail in the Messages API capture shape
const AnthropicDetail = `{
  "id": "s-anthropic",
  "name": "Weather lookup",
  "exchanges": [
    {
      "id": "ex-1",
      "timestamp": "2025-01-01T10:00:00Z",
      "latency_ms": 812,
      "request": {
        "model": "claude-3-5-sonnet",
        "system": "You are terse.",
        "tools": [{"name": "get_weather", "description": "Weather by city", "input_schema": {"type": "object"}}],
        "messages": [
          {"role": "user", "content": "Weather in Paris?"}
        ]
      },
      "response": {
        "model": "claude-3-5-sonnet",
        "content": [
          {"type": "text", "text": "Checking."},
          {"type": "tool_use", "id": "toolu_1", "name": "get_weather", "input": {"city": "Paris"}}
        ],
        "usage": {"input_tokens": 120, "output_tokens": 30}
      }
    },
    {
      "id": "ex-2",
      "timestamp": "2025-01-01T10:00:02Z",
      "latency_ms": 640,
      "request": {
        "model": "claude-3-5-sonnet",
        "messages": [
          {"role": "user", "content": "Weather in Paris?"},
          {"role": "assistant", "content": [
            {"type": "text", "text": "Checking."},
            {"type": "tool_use", "id": "toolu_1", "name": "get_weather", "input": {"city": "Paris"}}
          ]},
          {"role": "user", "content": [
            {"type": "tool_result", "tool_use_id": "toolu_1", "content": "sunny"}
          ]}
        ]
      },
      "response": {
        "content": [{"type": "text", "text": "It is sunny."}],
        "usage": {"input_tokens": 160, "output_tokens": 8}
      }
    }
  ]
}`

// OpenAIDetail is a session detail in the chat completions capture shape
const OpenAIDetail = `{
  "session_id": "s-openai",
  "records": [
    {
      "request_id": "r-1",
      "created_at": 1735725600000,
      "duration_ms": 300,
      "request_body": {
        "model": "gpt-4o",
        "tools": [{"type": "function", "function": {"name": "lookup", "parameters": {"type": "object"}}}],
        "messages": [
          {"role": "system", "content": "Be brief."},
          {"role": "user", "content": "Find x"},
          {"role": "assistant", "content": null, "tool_calls": [
            {"id": "call_1", "type": "function", "function": {"name": "lookup", "arguments": "{\"q\":\"x\"}"}}
          ]},
          {"role": "tool", "tool_call_id": "call_1", "content": "found x"}
        ]
      },
      "response_body": {
        "model": "gpt-4o",
        "choices": [{"message": {"role": "assistant", "content": "x is found"}}],
        "usage": {"prompt_tokens": 50, "completion_tokens": 5}
      }
    }
  ]
}`

// MergedRecordDetail is a session detail made of flattened capture records
const MergedRecordDetail = `{
  "id": "s-merged",
  "exchanges": [
    {
      "id": "m-1",
      "model": "local-model",
      "latencyMs": 42,
      "messages": [{"role": "user", "content": "hi"}],
      "response_text": "hello",
      "tool_calls": [{"id": "t-1", "name": "ping", "input": {}}],
      "usage": {"inputTokens": 3, "outputTokens": 2}
    }
  ]
}`

// SessionListJSON is a backend session list response, newest first
const SessionListJSON = `[
  {"id": "s-anthropic", "name": "Weather lookup", "created_at": "2025-01-01T09:59:00Z", "last_activity_at": "2025-01-01T10:00:02Z"},
  {"id": "s-openai", "createdAt": "2025-01-01T09:00:00Z", "lastActivityAt": "2025-01-01T09:00:00Z"}
]`

// CreateCacheFixture writes a file under a cache directory
func CreateCacheFixture(t *testing.T, cachePath string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(cachePath), 0755); err != nil {
		t.Fatalf("Failed to create cache directory: %v", err)
	}
	if err := os.WriteFile(cachePath, data, 0644); err != nil {
		t.Fatalf("Failed to write cache file: %v", err)
	}
}
