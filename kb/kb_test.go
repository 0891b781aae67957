package kb

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/signalsfoundry/windfarm-yield/internal/site"
	"github.com/signalsfoundry/windfarm-yield/wake"
)

func result(id string, aep float64) *site.WindSimulationResult {
	return &site.WindSimulationResult{
		RunID:     id,
		AEPGWh:    aep,
		WakeModel: wake.ModelNOJ,
		Summary:   site.FarmSummary{Name: "ridge"},
	}
}

func TestArchiveAndGet(t *testing.T) {
	store := NewKnowledgeBase()
	if err := store.Archive(result("r1", 100)); err != nil {
		t.Fatalf("Archive error: %v", err)
	}
	got, err := store.Get("r1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.AEPGWh != 100 {
		t.Fatalf("AEPGWh = %v, want 100", got.AEPGWh)
	}
	if _, err := store.Get("missing"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("Get(missing) error = %v, want ErrRunNotFound", err)
	}
}

func TestArchiveDuplicateAndInvalid(t *testing.T) {
	store := NewKnowledgeBase()
	if err := store.Archive(result("r1", 1)); err != nil {
		t.Fatalf("Archive error: %v", err)
	}
	if err := store.Archive(result("r1", 2)); !errors.Is(err, ErrRunExists) {
		t.Fatalf("duplicate Archive error = %v, want ErrRunExists", err)
	}
	if err := store.Archive(result("", 2)); err == nil {
		t.Fatalf("expected error for empty run ID")
	}
	if err := store.Archive(nil); err == nil {
		t.Fatalf("expected error for nil result")
	}
}

func TestListAndLatestKeepOrder(t *testing.T) {
	store := NewKnowledgeBase()
	if store.Latest() != nil {
		t.Fatalf("Latest on empty archive should be nil")
	}
	for i, id := range []string{"b", "a", "c"} {
		if err := store.Archive(result(id, float64(i))); err != nil {
			t.Fatalf("Archive(%s): %v", id, err)
		}
	}
	list := store.List()
	if len(list) != 3 || list[0].RunID != "b" || list[2].RunID != "c" {
		t.Fatalf("List order wrong: %v %v %v", list[0].RunID, list[1].RunID, list[2].RunID)
	}
	if got := store.Latest().RunID; got != "c" {
		t.Fatalf("Latest = %q, want c", got)
	}
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	store := NewKnowledgeBase()
	var got []Event
	unsubscribe := store.Subscribe(func(e Event) { got = append(got, e) })
	other := 0
	store.Subscribe(func(Event) { other++ })

	if err := store.Archive(result("r1", 42)); err != nil {
		t.Fatalf("Archive error: %v", err)
	}
	if len(got) != 1 || got[0].Type != EventRunArchived || got[0].AEPGWh != 42 || got[0].WakeModel != "NOJ" {
		t.Fatalf("events = %+v", got)
	}

	unsubscribe()
	unsubscribe()
	if err := store.Archive(result("r2", 1)); err != nil {
		t.Fatalf("Archive error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("unsubscribed callback still called: %d events", len(got))
	}
	if other != 2 {
		t.Fatalf("remaining subscriber called %d times, want 2", other)
	}
}

func TestConcurrentAccess(t *testing.T) {
	store := NewKnowledgeBase()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = store.Archive(result(fmt.Sprintf("r%d", i), float64(i)))
		}()
		go func() {
			defer wg.Done()
			_ = store.List()
			_ = store.Latest()
		}()
	}
	wg.Wait()
	if store.Len() != 10 {
		t.Fatalf("Len = %d, want 10", store.Len())
	}
}
