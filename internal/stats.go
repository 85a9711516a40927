package internal

// Metrics summarizes a contiguous range of exchanges
type Metrics struct {
	TotalLatencyMs             float64 `json:"totalLatencyMs" yaml:"total_latency_ms"`
	AverageLatencyMs           float64 `json:"averageLatencyMs" yaml:"average_latency_ms"`
	RequestCount               int     `json:"requestCount" yaml:"request_count"`
	TotalTokens                int     `json:"totalTokens" yaml:"total_tokens"`
	AverageTokens              float64 `json:"averageTokens" yaml:"average_tokens"`
	TotalInputTokens           int     `json:"totalInputTokens" yaml:"total_input_tokens"`
	TotalOutputTokens          int     `json:"totalOutputTokens" yaml:"total_output_tokens"`
	TotalToolCalls             int     `json:"totalToolCalls" yaml:"total_tool_calls"`
	UniqueToolCount            int     `json:"uniqueToolCount" yaml:"unique_tool_count"`
	AverageToolCallsPerRequest float64 `json:"averageToolCallsPerRequest" yaml:"average_tool_calls_per_request"`
}

// Aggregate computes metrics over exchanges, or over the inclusive window when one is given.
// A window reaching past either end is clipped; an empty range yields zero metrics.
func Aggregate(exchanges []NormalizedExchange, window *Window) Metrics {
	subset := sliceWindow(exchanges, window)

	var m Metrics
	tools := make(map[string]struct{})
	for _, ex := range subset {
		m.RequestCount++
		m.TotalLatencyMs += ex.LatencyMs
		if ex.Usage != nil {
			m.TotalInputTokens += ex.Usage.InputTokens
			m.TotalOutputTokens += ex.Usage.OutputTokens
		}
		for _, ev := range Correlate(ex.Messages, ex.ResponseContent, ScanResponse) {
			if ev.Kind != ToolCall {
				continue
			}
			m.TotalToolCalls++
			tools[ev.Name] = struct{}{}
		}
	}
	m.TotalTokens = m.TotalInputTokens + m.TotalOutputTokens
	m.UniqueToolCount = len(tools)

	if m.RequestCount > 0 {
		n := float64(m.RequestCount)
		m.AverageLatencyMs = m.TotalLatencyMs / n
		m.AverageTokens = float64(m.TotalTokens) / n
		m.AverageToolCallsPerRequest = float64(m.TotalToolCalls) / n
	}
	return m
}

func sliceWindow(exchanges []NormalizedExchange, window *Window) []NormalizedExchange {
	if window == nil {
		return exchanges
	}
	start, end := window.Start, window.End
	if start < 0 {
		start = 0
	}
	if end > len(exchanges)-1 {
		end = len(exchanges) - 1
	}
	if start > end {
		return nil
	}
	return exchanges[start : end+1]
}

// SeriesPoint is one exchange's values for charting
type SeriesPoint struct {
	Index        int     `json:"index" yaml:"index"`
	ExchangeID   string  `json:"exchangeId" yaml:"exchange_id"`
	Timestamp    string  `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	LatencyMs    float64 `json:"latencyMs" yaml:"latency_ms"`
	InputTokens  int     `json:"inputTokens" yaml:"input_tokens"`
	OutputTokens int     `json:"outputTokens" yaml:"output_tokens"`
	ToolCalls    int     `json:"toolCalls" yaml:"tool_calls"`
}

// Series returns one point per exchange in order
func Series(exchanges []NormalizedExchange) []SeriesPoint {
	points := make([]SeriesPoint, 0, len(exchanges))
	for i, ex := range exchanges {
		p := SeriesPoint{
			Index:      i,
			ExchangeID: ex.ID,
			Timestamp:  ex.Timestamp,
			LatencyMs:  ex.LatencyMs,
		}
		if ex.Usage != nil {
			p.InputTokens = ex.Usage.InputTokens
			p.OutputTokens = ex.Usage.OutputTokens
		}
		for _, ev := range Correlate(ex.Messages, ex.ResponseContent, ScanResponse) {
			if ev.Kind == ToolCall {
				p.ToolCalls++
			}
		}
		points = append(points, p)
	}
	return points
}
