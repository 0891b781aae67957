package kb

import (
	"errors"
	"fmt"
	"sync"

	"github.com/signalsfoundry/windfarm-yield/internal/site"
)

var (
	// ErrRunExists indicates a result with the same run ID was already stored.
	ErrRunExists = errors.New("run already archived")
	// ErrRunNotFound indicates a requested run is not in the archive.
	ErrRunNotFound = errors.New("run not found")
)

// EventType indicates what kind of change happened in the archive.
type EventType int

const (
	EventRunArchived EventType = iota
)

// Event is emitted to subscribers when a run is archived.
type Event struct {
	Type      EventType
	RunID     string
	Site      string
	AEPGWh    float64
	WakeModel string
}

// KnowledgeBase is an in-memory, thread-safe archive of finalized runs.
type KnowledgeBase struct {
	mu sync.RWMutex

	runs  map[string]*site.WindSimulationResult
	order []string

	nextSub int
	subs    map[int]func(Event)
}

// NewKnowledgeBase constructs an empty archive.
func NewKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{
		runs: make(map[string]*site.WindSimulationResult),
		subs: make(map[int]func(Event)),
	}
}

// Archive stores a finalized result and notifies subscribers. It satisfies
// site.Archiver.
func (kb *KnowledgeBase) Archive(res *site.WindSimulationResult) error {
	if res == nil || res.RunID == "" {
		return fmt.Errorf("archive: result without run ID")
	}

	kb.mu.Lock()
	if _, exists := kb.runs[res.RunID]; exists {
		kb.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrRunExists, res.RunID)
	}
	kb.runs[res.RunID] = res
	kb.order = append(kb.order, res.RunID)
	event := Event{
		Type:      EventRunArchived,
		RunID:     res.RunID,
		Site:      res.Summary.Name,
		AEPGWh:    res.AEPGWh,
		WakeModel: res.WakeModel.String(),
	}
	subs := make([]func(Event), 0, len(kb.subs))
	for _, fn := range kb.subs {
		subs = append(subs, fn)
	}
	kb.mu.Unlock()

	// Notify subscribers outside the lock to avoid deadlocks.
	for _, sub := range subs {
		sub(event)
	}
	return nil
}

// Get returns the archived result for a run ID.
func (kb *KnowledgeBase) Get(runID string) (*site.WindSimulationResult, error) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	res, ok := kb.runs[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrRunNotFound, runID)
	}
	return res, nil
}

// List returns archived results in the order they were stored.
func (kb *KnowledgeBase) List() []*site.WindSimulationResult {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	res := make([]*site.WindSimulationResult, 0, len(kb.order))
	for _, id := range kb.order {
		res = append(res, kb.runs[id])
	}
	return res
}

// Latest returns the most recently archived result, or nil.
func (kb *KnowledgeBase) Latest() *site.WindSimulationResult {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	if len(kb.order) == 0 {
		return nil
	}
	return kb.runs[kb.order[len(kb.order)-1]]
}

// Len returns the number of archived runs.
func (kb *KnowledgeBase) Len() int {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return len(kb.order)
}

// Subscribe registers a callback for archive events. It returns an
// unsubscribe function.
func (kb *KnowledgeBase) Subscribe(fn func(Event)) (unsubscribe func()) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	id := kb.nextSub
	kb.nextSub++
	kb.subs[id] = fn

	return func() {
		kb.mu.Lock()
		defer kb.mu.Unlock()
		delete(kb.subs, id)
	}
}
