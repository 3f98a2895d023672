package orchestrator

import (
	"sort"
	"testing"
)

func TestInMemoryStore(t *testing.T) {
	s := NewInMemoryStore()

	if _, ok := s.GetJob("a"); ok {
		t.Fatal("empty store should not contain a")
	}

	s.SetJob(&TranscodeJob{AssetID: "a", State: StatePending})
	s.SetJob(&TranscodeJob{AssetID: "b", State: StateRunning})
	s.SetJob(&TranscodeJob{AssetID: "a", State: StateRunning})

	got, ok := s.GetJob("a")
	if !ok || got.State != StateRunning {
		t.Errorf("SetJob should replace: got %+v ok=%v", got, ok)
	}

	ids := s.ListJobIDs()
	sort.Strings(ids)
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("ListJobIDs: got %v", ids)
	}

	s.DeleteJob("a")
	s.DeleteJob("missing")
	if _, ok := s.GetJob("a"); ok {
		t.Error("a should be deleted")
	}
	if len(s.ListJobIDs()) != 1 {
		t.Errorf("expected one job left, got %v", s.ListJobIDs())
	}
}
