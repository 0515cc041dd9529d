package lossiness

import (
	"sort"
	"sync"
	"time"

	"specado/internal/jsonvalue"
)

// Tracker is the append-only ordered log shared by every stage of one
// translation. It is safe for the sequential single-owner access pattern
// the pipeline uses; the mutex exists so a defensive caller (e.g. a future
// concurrent stage) cannot corrupt ordering, not because stages run
// concurrently today.
type Tracker struct {
	mu    sync.Mutex
	items []Item
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// RecordInput carries the optional fields for Record; leave pointers nil
// to omit them, matching the wire shape's "omitted when absent" rule.
type RecordInput struct {
	Code          Code
	Path          string
	Message       string
	Before        *jsonvalue.Value
	After         *jsonvalue.Value
	Severity      Severity
	OperationType OperationType
	Metadata      map[string]string
}

// Record appends a new Item, assigning OrderIndex in append order, and
// returns it (by value) so callers can later look it up by index if needed.
func (t *Tracker) Record(in RecordInput) Item {
	t.mu.Lock()
	defer t.mu.Unlock()

	item := Item{
		Code:          in.Code,
		Path:          in.Path,
		Message:       in.Message,
		Before:        in.Before,
		After:         in.After,
		Severity:      in.Severity,
		OperationType: in.OperationType,
		Metadata:      in.Metadata,
		OrderIndex:    len(t.items),
	}
	t.items = append(t.items, item)
	return item
}

// TimingHandle is returned by BeginTiming and consumed by EndTiming.
type TimingHandle struct {
	start      time.Time
	startCount int
}

// BeginTiming starts a scope timer.
func (t *Tracker) BeginTiming() TimingHandle {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TimingHandle{start: time.Now(), startCount: len(t.items)}
}

// EndTiming closes a scope timer, recording the elapsed microseconds onto
// the most recently appended item if one was created since BeginTiming.
// It is a no-op if no item was recorded in the scope.
func (t *Tracker) EndTiming(h TimingHandle) {
	elapsed := time.Since(h.start).Microseconds()
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.items) <= h.startCount {
		return
	}
	last := &t.items[len(t.items)-1]
	if last.TimingMicros == nil {
		last.TimingMicros = &elapsed
	}
}

// SetAfter sets the After value of the most-recently-appended item exactly
// once, used when a deviation's outcome is only known after the fact (e.g.
// a conflict resolution's winner is decided after the loser item exists).
func (t *Tracker) SetAfter(v jsonvalue.Value) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.items) == 0 {
		return
	}
	last := &t.items[len(t.items)-1]
	if last.After == nil {
		last.After = &v
	}
}

// Items returns a snapshot copy of the items recorded so far.
func (t *Tracker) Items() []Item {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Item, len(t.items))
	copy(out, t.items)
	return out
}

// Summary aggregates item counts by severity and code, and the highest
// severity observed.
type Summary struct {
	BySeverity  map[Severity]int
	ByCode      map[Code]int
	Total       int
	MaxSeverity Severity
}

func (t *Tracker) Summary() Summary {
	items := t.Items()
	s := Summary{
		BySeverity:  make(map[Severity]int),
		ByCode:      make(map[Code]int),
		Total:       len(items),
		MaxSeverity: SeverityNone,
	}
	maxRank := 0
	for _, item := range items {
		s.BySeverity[item.Severity]++
		s.ByCode[item.Code]++
		if r := item.Severity.rank(); r > maxRank {
			maxRank = r
			s.MaxSeverity = item.Severity
		}
	}
	return s
}

// HasFatal reports whether any item carries one of the codes in fatalCodes
// at Error severity — callers pass strictness.FatalCodes(), the set the
// translate orchestrator treats as strict-mode fatal between pipeline
// stages.
func (t *Tracker) HasFatal(fatalCodes map[Code]bool) bool {
	for _, item := range t.Items() {
		if item.Severity == SeverityError && fatalCodes[item.Code] {
			return true
		}
	}
	return false
}

// PerformanceReport returns the n slowest timed items, descending by
// TimingMicros, ties broken by OrderIndex ascending for determinism.
func (t *Tracker) PerformanceReport(n int) []Item {
	items := t.Items()
	timed := make([]Item, 0, len(items))
	for _, item := range items {
		if item.TimingMicros != nil {
			timed = append(timed, item)
		}
	}
	sort.SliceStable(timed, func(i, j int) bool {
		ti, tj := *timed[i].TimingMicros, *timed[j].TimingMicros
		if ti != tj {
			return ti > tj
		}
		return timed[i].OrderIndex < timed[j].OrderIndex
	})
	if n >= 0 && n < len(timed) {
		timed = timed[:n]
	}
	return timed
}
