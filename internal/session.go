package internal

import "time"

// SessionSummary is the lightweight listing record returned by the backend
type SessionSummary struct {
	ID             string `json:"id" yaml:"id"`
	Name           string `json:"name,omitempty" yaml:"name,omitempty"`
	CreatedAt      string `json:"createdAt,omitempty" yaml:"created_at,omitempty"`
	LastActivityAt string `json:"lastActivityAt,omitempty" yaml:"last_activity_at,omitempty"`
}

// GetCreatedAt returns the creation time, or the zero time if unparseable
func (s SessionSummary) GetCreatedAt() time.Time {
	return parseTime(s.CreatedAt)
}

// GetLastActivityAt returns the last activity time, falling back to the creation time
func (s SessionSummary) GetLastActivityAt() time.Time {
	if t := parseTime(s.LastActivityAt); !t.IsZero() {
		return t
	}
	return s.GetCreatedAt()
}

// NormalizedSession is a session detail after normalization
type NormalizedSession struct {
	ID        string               `json:"id" yaml:"id"`
	Name      string               `json:"name,omitempty" yaml:"name,omitempty"`
	Exchanges []NormalizedExchange `json:"exchanges" yaml:"exchanges"`
}

// LastExchangeID returns the id of the most recent exchange, or "" if there are none
func (s *NormalizedSession) LastExchangeID() string {
	if s == nil || len(s.Exchanges) == 0 {
		return ""
	}
	return s.Exchanges[len(s.Exchanges)-1].ID
}

// Exchange looks up an exchange by id
func (s *NormalizedSession) Exchange(id string) (*NormalizedExchange, bool) {
	if s == nil {
		return nil, false
	}
	for i := range s.Exchanges {
		if s.Exchanges[i].ID == id {
			return &s.Exchanges[i], true
		}
	}
	return nil, false
}

// NormalizedExchange is one logged request/response interaction
type NormalizedExchange struct {
	ID              string           `json:"id" yaml:"id"`
	Timestamp       string           `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	Model           string           `json:"model" yaml:"model"`
	SystemPrompt    *string          `json:"systemPrompt" yaml:"system_prompt,omitempty"`
	Messages        []Message        `json:"messages" yaml:"messages"`
	ResponseContent []ContentBlock   `json:"responseContent" yaml:"response_content"`
	Tools           []ToolDefinition `json:"tools" yaml:"tools,omitempty"`
	Usage           *Usage           `json:"usage" yaml:"usage,omitempty"`
	LatencyMs       float64          `json:"latencyMs" yaml:"latency_ms"`
	RawRequest      any              `json:"rawRequest" yaml:"-"`
	RawResponse     any              `json:"rawResponse" yaml:"-"`
}

// Usage holds token accounting for an exchange
type Usage struct {
	InputTokens              int `json:"inputTokens" yaml:"input_tokens"`
	OutputTokens             int `json:"outputTokens" yaml:"output_tokens"`
	CacheReadInputTokens     int `json:"cacheReadInputTokens" yaml:"cache_read_input_tokens"`
	CacheCreationInputTokens int `json:"cacheCreationInputTokens" yaml:"cache_creation_input_tokens"`
}

// Total returns input plus output tokens
func (u *Usage) Total() int {
	if u == nil {
		return 0
	}
	return u.InputTokens + u.OutputTokens
}

// ToolDefinition is a tool declared in the request
type ToolDefinition struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	InputSchema any    `json:"inputSchema,omitempty" yaml:"input_schema,omitempty"`
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
