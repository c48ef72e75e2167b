package model

import "testing"

func TestNewSeedsInitialState(t *testing.T) {
	v := New("x4", 4, true)

	if v.Value != 40 || v.CommittedValue != 40 {
		t.Errorf("expected initial value 40, got value=%d committed=%d", v.Value, v.CommittedValue)
	}
	if v.CommittedTime != 0 {
		t.Errorf("expected committed_time 0, got %d", v.CommittedTime)
	}
	if !v.Readable {
		t.Error("expected new variable to be readable")
	}
	if got, ok := v.VersionHistory[0]; !ok || got != 40 {
		t.Errorf("expected version history seeded at tick 0 with 40, got %d ok=%v", got, ok)
	}
}

func TestVersionAtPicksGreatestTickNotExceedingAt(t *testing.T) {
	v := New("x2", 2, true)
	v.VersionHistory[4] = 100
	v.VersionHistory[9] = 200

	cases := []struct {
		at       int
		expected int
	}{
		{0, 20},
		{3, 20},
		{4, 100},
		{8, 100},
		{9, 200},
		{50, 200},
	}
	for _, c := range cases {
		value, ok := v.VersionAt(c.at)
		if !ok {
			t.Fatalf("VersionAt(%d): expected ok", c.at)
		}
		if value != c.expected {
			t.Errorf("VersionAt(%d) = %d, want %d", c.at, value, c.expected)
		}
	}
}

func TestCommitWriteUpdatesCommittedStateAndHistory(t *testing.T) {
	v := New("x6", 6, true)
	v.Value = 999
	v.Readable = false

	v.CommitWrite(7)

	if v.CommittedValue != 999 {
		t.Errorf("expected committed value 999, got %d", v.CommittedValue)
	}
	if v.CommittedTime != 7 {
		t.Errorf("expected committed time 7, got %d", v.CommittedTime)
	}
	if !v.Readable {
		t.Error("expected commit to restore readability")
	}
	if v.VersionHistory[7] != 999 {
		t.Errorf("expected version history[7] = 999, got %d", v.VersionHistory[7])
	}
}

func TestRollbackWriteRestoresCommittedValue(t *testing.T) {
	v := New("x8", 8, true)
	v.Value = 12345

	v.RollbackWrite()

	if v.Value != v.CommittedValue {
		t.Errorf("expected rollback to restore committed value %d, got %d", v.CommittedValue, v.Value)
	}
}

func TestMarkUnreadable(t *testing.T) {
	v := New("x10", 10, true)
	v.MarkUnreadable()
	if v.Readable {
		t.Error("expected variable to be unreadable")
	}
}
