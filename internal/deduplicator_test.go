package internal

import (
	"testing"
)

func TestNewDeduplicator(t *testing.T) {
	d := NewDeduplicator()
	if d == nil {
		t.Error("NewDeduplicator() returned nil")
	}
}

func TestDeduplicator_Deduplicate(t *testing.T) {
	tests := []struct {
		name     string
		sessions []SessionSummary
		wantIDs  []string
	}{
		{
			name:     "empty sessions",
			sessions: []SessionSummary{},
			wantIDs:  []string{},
		},
		{
			name: "no duplicates",
			sessions: []SessionSummary{
				{ID: "s2", Name: "newer"},
				{ID: "s1", Name: "older"},
			},
			wantIDs: []string{"s2", "s1"},
		},
		{
			name: "duplicate keeps first",
			sessions: []SessionSummary{
				{ID: "s2", Name: "first"},
				{ID: "s1"},
				{ID: "s2", Name: "second"},
			},
			wantIDs: []string{"s2", "s1"},
		},
		{
			name: "missing ids dropped",
			sessions: []SessionSummary{
				{Name: "no id"},
				{ID: "s1"},
			},
			wantIDs: []string{"s1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDeduplicator()
			got := d.Deduplicate(tt.sessions)

			if len(got) != len(tt.wantIDs) {
				t.Fatalf("Deduplicate() returned %d sessions, want %d", len(got), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if got[i].ID != id {
					t.Errorf("Deduplicate()[%d].ID = %q, want %q", i, got[i].ID, id)
				}
			}
		})
	}

	t.Run("first occurrence wins", func(t *testing.T) {
		got := NewDeduplicator().Deduplicate([]SessionSummary{{ID: "s1", Name: "a"}, {ID: "s1", Name: "b"}})
		if got[0].Name != "a" {
			t.Errorf("Deduplicate() kept %q, want %q", got[0].Name, "a")
		}
	})
}
