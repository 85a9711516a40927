package internal

import "fmt"

// CreateTestExchange creates an exchange with a user prompt, an assistant text reply
// and the given usage and latency
func CreateTestExchange(id string, latencyMs float64, input, output int) NormalizedExchange {
	system := "You are a helpful assistant."
	return NormalizedExchange{
		ID:           id,
		Model:        "claude-test",
		SystemPrompt: &system,
		Messages: []Message{
			{Role: RoleUser, Content: TextContent("Hello, how are you?")},
		},
		ResponseContent: []ContentBlock{TextBlock("I'm doing well, thank you!")},
		Usage:           &Usage{InputTokens: input, OutputTokens: output},
		LatencyMs:       latencyMs,
	}
}

// CreateToolExchange creates an exchange whose context carries a completed
// tool round trip and whose response issues a new call
func CreateToolExchange(id string) NormalizedExchange {
	ex := CreateTestExchange(id, 250, 100, 40)
	ex.Messages = []Message{
		{Role: RoleUser, Content: TextContent("Find the weather in Paris")},
		{Role: RoleAssistant, Content: BlockContent(
			TextBlock("Searching."),
			ToolUseBlock(id+"-t1", "search", map[string]any{"q": "paris weather"}),
		)},
		{Role: RoleUser, Content: BlockContent(
			ToolResultBlock(id+"-t1", "sunny, 21C"),
		)},
	}
	ex.ResponseContent = []ContentBlock{
		TextBlock("Let me double check."),
		ToolUseBlock(id+"-t2", "fetch", map[string]any{"url": "https://example.com/paris"}),
	}
	ex.Tools = []ToolDefinition{{Name: "search"}, {Name: "fetch"}}
	return ex
}

// CreateTestSession creates a normalized session with n plain exchanges
func CreateTestSession(id string, n int) *NormalizedSession {
	session := &NormalizedSession{
		ID:        id,
		Name:      "Test Session " + id,
		Exchanges: make([]NormalizedExchange, 0, n),
	}
	for i := 0; i < n; i++ {
		session.Exchanges = append(session.Exchanges,
			CreateTestExchange(fmt.Sprintf("%s-ex%d", id, i), float64(100*(i+1)), 10*(i+1), 5*(i+1)))
	}
	return session
}

// CreateTestSummary creates a session summary
func CreateTestSummary(id, lastActivity string) SessionSummary {
	return SessionSummary{
		ID:             id,
		Name:           "Session " + id,
		CreatedAt:      "2025-01-01T00:00:00Z",
		LastActivityAt: lastActivity,
	}
}
