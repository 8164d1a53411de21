package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPortRangeOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b PortRange
		want bool
	}{
		{"disjoint below", PortRange{3000, 3009}, PortRange{3010, 3019}, false},
		{"disjoint above", PortRange{3010, 3019}, PortRange{3000, 3009}, false},
		{"identical", PortRange{3000, 3009}, PortRange{3000, 3009}, true},
		{"partial overlap", PortRange{3000, 3009}, PortRange{3005, 3014}, true},
		{"contained", PortRange{3000, 3019}, PortRange{3005, 3009}, true},
		{"touching edge", PortRange{3000, 3009}, PortRange{3009, 3018}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Overlaps(tt.b))
			assert.Equal(t, tt.want, tt.b.Overlaps(tt.a), "overlap must be symmetric")
		})
	}
}

func validSession() *Session {
	return &Session{
		ID:           "b1946ac9",
		Branch:       "feature-x",
		Agent:        "claude-code",
		Command:      "claude",
		ProjectID:    "myproject",
		WorktreePath: "/tmp/worktrees/feature-x",
		Status:       StatusActive,
		CreatedAt:    time.Now(),
		TerminalType: TerminalITerm,
		PortRange:    PortRange{3000, 3009},
	}
}

func TestSessionValidate(t *testing.T) {
	assert.NoError(t, validSession().Validate())

	s := validSession()
	s.ID = ""
	assert.Error(t, s.Validate())

	s = validSession()
	s.Branch = ""
	assert.Error(t, s.Validate())

	s = validSession()
	s.WorktreePath = ""
	assert.Error(t, s.Validate())

	s = validSession()
	s.Status = "destroyed"
	assert.Error(t, s.Validate())

	s = validSession()
	s.PortRange = PortRange{3009, 3000}
	assert.Error(t, s.Validate())
}

func TestHasProcess(t *testing.T) {
	s := validSession()
	assert.False(t, s.HasProcess())

	pid := 4242
	s.ProcessID = &pid
	assert.True(t, s.HasProcess())
}
