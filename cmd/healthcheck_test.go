package cmd

import (
	"strings"
	"testing"
)

func TestHealthcheckCommand(t *testing.T) {
	tests := []struct {
		name     string
		list     string
		failList bool
		args     []string
		wantErr  bool
		contains []string
	}{
		{
			name:     "healthy backend",
			args:     []string{"healthcheck"},
			contains: []string{"Found 2 session(s)", "Session s-anthropic normalized: 2 exchange(s)", "Cache disabled", "Health check passed!"},
		},
		{
			name:     "details",
			args:     []string{"healthcheck", "--details"},
			contains: []string{"API: http://", "Default window: 50", "[1] Weather lookup (ID: s-anthropic)", "[2] Untitled (ID: s-openai)", "Avg latency: 726.0 ms"},
		},
		{
			name:     "no sessions",
			list:     `[]`,
			args:     []string{"healthcheck"},
			contains: []string{"No sessions to load", "Backend reachable but no exchanges found"},
		},
		{
			name:     "backend down",
			failList: true,
			args:     []string{"healthcheck"},
			wantErr:  true,
			contains: []string{"Failed to reach backend", "Health check failed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			api := newTestAPI(t)
			if tt.list != "" {
				api.SetList(tt.list)
			}
			api.FailList(tt.failList)

			out, err := executeCommand(t, append(tt.args, "--api", api.URL())...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("healthcheck error = %v, wantErr %v", err, tt.wantErr)
			}
			for _, want := range tt.contains {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestHealthcheckCommand_Cache(t *testing.T) {
	isolate(t)
	api := newTestAPI(t)
	dir := t.TempDir()

	out, err := executeCommand(t, "healthcheck", "--api", api.URL(), "--cache-dir", dir)
	if err != nil {
		t.Fatalf("healthcheck failed: %v", err)
	}
	if !strings.Contains(out, "Cache ready: 1 session(s) cached") {
		t.Errorf("unexpected cache report:\n%s", out)
	}
}
