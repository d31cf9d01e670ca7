// Package history implements the Service History Store (C5): a bounded,
// per-service ring buffer of status/progress/log/test events plus a
// derived summary, and an "installation" pseudo-service buffer that
// mirrors every event emitted during an active install for a whole-run
// view. All buffers (per service name, and "installation") and the install
// bookkeeping are guarded by the Store's single mutex; buffers have no lock
// of their own.
package history

import (
	"sync"
	"time"

	"github.com/noona-project/warden/pkg/types"
)

// InstallationService is the reserved pseudo-service name whose buffer
// mirrors every event from the currently (or most recently) active
// install run.
const InstallationService = "installation"

const DefaultCapacity = 500

// buffer is one service's bounded event log plus its derived summary.
type buffer struct {
	entries  []types.HistoryEntry
	capacity int
	summary  types.ServiceSummary
}

func newBuffer(capacity int) *buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &buffer{capacity: capacity}
}

func (b *buffer) append(entry types.HistoryEntry) {
	b.entries = append(b.entries, entry)
	if len(b.entries) > b.capacity {
		b.entries = b.entries[len(b.entries)-b.capacity:]
	}
	b.updateSummary(entry)
}

func (b *buffer) updateSummary(entry types.HistoryEntry) {
	b.summary.UpdatedAt = entry.Timestamp

	switch entry.Type {
	case types.EventStatus:
		b.summary.Status = entry.Status
	case types.EventProgress:
		if entry.Total > 0 {
			b.summary.Percent = int(100 * entry.Current / entry.Total)
		}
		if entry.Detail != "" {
			b.summary.Detail = entry.Detail
		}
	}

	if entry.Detail != "" {
		b.summary.Detail = entry.Detail
	}
}

func (b *buffer) snapshot(limit int) types.ServiceHistory {
	if limit <= 0 || limit > len(b.entries) {
		limit = len(b.entries)
	}
	start := len(b.entries) - limit

	entries := make([]types.HistoryEntry, limit)
	copy(entries, b.entries[start:])

	return types.ServiceHistory{
		Entries: entries,
		Summary: b.summary,
	}
}

// Store is the process-wide set of per-service history buffers.
type Store struct {
	mu       sync.Mutex
	buffers  map[string]*buffer
	capacity int

	installOrder []string
	statuses     map[string]types.InstallStatus
	errors       map[string]string
	overall      types.OverallStatus
	active       bool
}

// NewStore creates an empty history store. capacity <= 0 uses DefaultCapacity.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		buffers:  make(map[string]*buffer),
		capacity: capacity,
		statuses: make(map[string]types.InstallStatus),
		errors:   make(map[string]string),
		overall:  types.OverallIdle,
	}
}

func (s *Store) bufferFor(service string) *buffer {
	b, ok := s.buffers[service]
	if !ok {
		b = newBuffer(s.capacity)
		s.buffers[service] = b
	}
	return b
}

// Append pushes entry onto service's buffer, evicting the oldest entry if
// the buffer is at capacity. When an install is active, the same entry is
// also mirrored into the installation pseudo-service buffer.
func (s *Store) Append(service string, entry types.HistoryEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.bufferFor(service).append(entry)
	if s.active && service != InstallationService {
		s.bufferFor(InstallationService).append(entry)
	}
}

// Get returns the most recent limit entries (default: the whole buffer)
// and the current summary for a service. The returned slice is an
// immutable copy.
func (s *Store) Get(service string, limit int) types.ServiceHistory {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.bufferFor(service).snapshot(limit)
	snap.Service = service
	return snap
}

// BeginInstall resets the installation mirror and per-service install
// bookkeeping for a new run, in the given topological order.
func (s *Store) BeginInstall(order []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.installOrder = append([]string{}, order...)
	s.statuses = make(map[string]types.InstallStatus, len(order))
	s.errors = make(map[string]string)
	for _, name := range order {
		s.statuses[name] = types.InstallPending
	}
	s.overall = types.OverallInstalling
	s.active = true
	delete(s.buffers, InstallationService)
}

// SetInstallStatus records the per-service install status for the active
// run, used by GetInstallationProgress.
func (s *Store) SetInstallStatus(service string, status types.InstallStatus, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.statuses[service] = status
	if errMsg != "" {
		s.errors[service] = errMsg
	}
}

// FinishInstall marks the active run's overall outcome and ends mirroring.
func (s *Store) FinishInstall(overall types.OverallStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.overall = overall
	s.active = false
}

// GetInstallationProgress reconstructs the whole-run progress summary from
// the current install bookkeeping.
func (s *Store) GetInstallationProgress() types.InstallProgress {
	s.mu.Lock()
	defer s.mu.Unlock()

	installed := 0
	items := make([]types.InstallItem, 0, len(s.installOrder))
	for _, name := range s.installOrder {
		status := s.statuses[name]
		if status == types.InstallInstalled {
			installed++
		}
		items = append(items, types.InstallItem{
			Name:   name,
			Status: status,
			Error:  s.errors[name],
		})
	}

	percent := 0
	if len(s.installOrder) > 0 {
		percent = 100 * installed / len(s.installOrder)
	}

	return types.InstallProgress{
		Status:  s.overall,
		Percent: percent,
		Items:   items,
	}
}
