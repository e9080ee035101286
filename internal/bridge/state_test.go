package bridge

import (
	"testing"
	"time"
)

func TestApplyFirstObservation(t *testing.T) {
	c := NewStateCache()
	now := time.Now()

	entry, transitioned, known := c.Apply("A1", 1, "alarm", false, now)
	if !transitioned {
		t.Error("first Apply() transitioned = false, want true")
	}
	if known {
		t.Error("first Apply() known = true, want false")
	}
	if entry.Value != false {
		t.Errorf("entry.Value = %v, want false", entry.Value)
	}
}

// TestApplyRepeatedValue checks that applying the same value twice yields a
// transition on the first application and none on the second.
func TestApplyRepeatedValue(t *testing.T) {
	c := NewStateCache()
	now := time.Now()

	if _, transitioned, _ := c.Apply("A1", 1, "state", "open", now); !transitioned {
		t.Error("first Apply() transitioned = false, want true")
	}
	if _, transitioned, _ := c.Apply("A1", 1, "state", "open", now.Add(time.Second)); transitioned {
		t.Error("repeated Apply() transitioned = true, want false")
	}
}

func TestApplyTransition(t *testing.T) {
	c := NewStateCache()
	now := time.Now()

	c.Apply("A1", 1, "state", "closed", now)

	_, transitioned, known := c.Apply("A1", 1, "state", "open", now.Add(time.Second))
	if !transitioned {
		t.Error("changed Apply() transitioned = false, want true")
	}
	if !known {
		t.Error("second Apply() known = false, want true")
	}
}

func TestApplyIndependentKeys(t *testing.T) {
	c := NewStateCache()
	now := time.Now()

	c.Apply("A1", 1, "state", "open", now)
	c.Apply("A1", 2, "state", "closed", now)
	c.Apply("A2", 1, "state", "tilted", now)

	if c.Len() != 3 {
		t.Errorf("Len() = %d, want 3", c.Len())
	}

	e, ok := c.Get("A1", 2, "state")
	if !ok || e.Value != "closed" {
		t.Errorf("Get(A1, 2, state) = %v, %v; want closed, true", e.Value, ok)
	}
}

func TestGetMissing(t *testing.T) {
	c := NewStateCache()
	if _, ok := c.Get("A1", 1, "state"); ok {
		t.Error("Get() on empty cache found an entry")
	}
}

func TestSnapshot(t *testing.T) {
	c := NewStateCache()
	now := time.Now()

	c.Apply("A1", 1, "state", "open", now)
	c.Apply("A2", 1, "alarm", true, now)

	snap := c.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("Snapshot() length = %d, want 2", len(snap))
	}

	seen := make(map[string]any)
	for _, rec := range snap {
		seen[rec.Address+"/"+rec.Datapoint] = rec.Entry.Value
	}
	if seen["A1/state"] != "open" || seen["A2/alarm"] != true {
		t.Errorf("Snapshot() = %v", seen)
	}
}
