package internal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregate_Empty(t *testing.T) {
	m := Aggregate(nil, nil)

	assert.Equal(t, Metrics{}, m)
	for _, v := range []float64{m.AverageLatencyMs, m.AverageTokens, m.AverageToolCallsPerRequest} {
		assert.False(t, math.IsNaN(v))
	}
}

func TestAggregate(t *testing.T) {
	exchanges := CreateTestSession("s", 3).Exchanges

	tests := []struct {
		name   string
		window *Window
		want   Metrics
	}{
		{
			name: "whole sequence",
			want: Metrics{
				TotalLatencyMs:    600,
				AverageLatencyMs:  200,
				RequestCount:      3,
				TotalTokens:       90,
				AverageTokens:     30,
				TotalInputTokens:  60,
				TotalOutputTokens: 30,
			},
		},
		{
			name:   "window",
			window: &Window{Start: 1, End: 2},
			want: Metrics{
				TotalLatencyMs:    500,
				AverageLatencyMs:  250,
				RequestCount:      2,
				TotalTokens:       75,
				AverageTokens:     37.5,
				TotalInputTokens:  50,
				TotalOutputTokens: 25,
			},
		},
		{
			name:   "clipped window",
			window: &Window{Start: -4, End: 0},
			want: Metrics{
				TotalLatencyMs:    100,
				AverageLatencyMs:  100,
				RequestCount:      1,
				TotalTokens:       15,
				AverageTokens:     15,
				TotalInputTokens:  10,
				TotalOutputTokens: 5,
			},
		},
		{
			name:   "window past the end",
			window: &Window{Start: 5, End: 9},
			want:   Metrics{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Aggregate(exchanges, tt.window))
		})
	}
}

func TestAggregate_ToolCalls(t *testing.T) {
	exchanges := []NormalizedExchange{
		CreateToolExchange("a"),
		CreateToolExchange("b"),
		CreateTestExchange("plain", 50, 0, 0),
	}
	exchanges[1].ResponseContent = append(exchanges[1].ResponseContent, ToolUseBlock("b-t3", "search", nil))

	m := Aggregate(exchanges, nil)

	assert.Equal(t, 3, m.TotalToolCalls, "only response calls count")
	assert.Equal(t, 2, m.UniqueToolCount)
	assert.Equal(t, 1.0, m.AverageToolCallsPerRequest)
}

func TestAggregate_MissingUsage(t *testing.T) {
	ex := CreateTestExchange("x", 10, 0, 0)
	ex.Usage = nil

	m := Aggregate([]NormalizedExchange{ex}, nil)

	assert.Equal(t, 1, m.RequestCount)
	assert.Equal(t, 0, m.TotalTokens)
	assert.Equal(t, 0.0, m.AverageTokens)
}

func TestSeries(t *testing.T) {
	exchanges := []NormalizedExchange{
		CreateTestExchange("a", 100, 10, 5),
		CreateToolExchange("b"),
	}
	exchanges[0].Timestamp = "2025-01-01T00:00:00Z"

	points := Series(exchanges)

	assert.Equal(t, []SeriesPoint{
		{Index: 0, ExchangeID: "a", Timestamp: "2025-01-01T00:00:00Z", LatencyMs: 100, InputTokens: 10, OutputTokens: 5},
		{Index: 1, ExchangeID: "b", LatencyMs: 250, InputTokens: 100, OutputTokens: 40, ToolCalls: 1},
	}, points)
	assert.Empty(t, Series(nil))
}
