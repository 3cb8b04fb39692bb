package delivery

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the transient send state of one order. An order with no entry
// is idle.
type Status string

const (
	StatusSending Status = "sending"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Display windows after which a terminal status reverts to idle.
const (
	SuccessWindow = 3 * time.Second
	ErrorWindow   = 5 * time.Second
)

// Entry is the current status of one order.
type Entry struct {
	OrderID   uuid.UUID `json:"order_id"`
	Status    Status    `json:"status"`
	Message   string    `json:"message,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StatusBoard tracks at most one Entry per order.
type StatusBoard interface {
	// Begin moves the order to sending. It returns ErrSendInProgress when the
	// order is already sending.
	Begin(ctx context.Context, orderID uuid.UUID) error
	// Succeed records success; the entry is removed after SuccessWindow.
	Succeed(ctx context.Context, orderID uuid.UUID) error
	// Fail records an error with the operator message; the entry is removed
	// after ErrorWindow.
	Fail(ctx context.Context, orderID uuid.UUID, message string) error
	Get(ctx context.Context, orderID uuid.UUID) (Entry, bool, error)
	// Snapshot returns every live entry ordered by UpdatedAt.
	Snapshot(ctx context.Context) ([]Entry, error)
}

// Scheduler runs f after d and returns a function that cancels it.
type Scheduler func(d time.Duration, f func()) (stop func() bool)

// AfterFunc is the wall-clock Scheduler.
func AfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

type memoryEntry struct {
	Entry
	gen  uint64
	stop func() bool
}

// MemoryBoard is a process-local StatusBoard.
type MemoryBoard struct {
	mu       sync.Mutex
	entries  map[uuid.UUID]*memoryEntry
	gen      uint64
	schedule Scheduler
	now      func() time.Time
}

// NewMemoryBoard returns a board whose resets run on schedule. A nil
// schedule means AfterFunc.
func NewMemoryBoard(schedule Scheduler) *MemoryBoard {
	if schedule == nil {
		schedule = AfterFunc
	}
	return &MemoryBoard{
		entries:  make(map[uuid.UUID]*memoryEntry),
		schedule: schedule,
		now:      time.Now,
	}
}

func (b *MemoryBoard) Begin(_ context.Context, orderID uuid.UUID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if e, ok := b.entries[orderID]; ok && e.Status == StatusSending {
		return ErrSendInProgress
	}
	b.set(orderID, StatusSending, "", 0)
	return nil
}

func (b *MemoryBoard) Succeed(_ context.Context, orderID uuid.UUID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.set(orderID, StatusSuccess, "", SuccessWindow)
	return nil
}

func (b *MemoryBoard) Fail(_ context.Context, orderID uuid.UUID, message string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.set(orderID, StatusError, message, ErrorWindow)
	return nil
}

// set replaces the entry for orderID and cancels its pending reset. b.mu must
// be held.
func (b *MemoryBoard) set(orderID uuid.UUID, status Status, message string, window time.Duration) {
	if old, ok := b.entries[orderID]; ok && old.stop != nil {
		old.stop()
	}

	b.gen++
	e := &memoryEntry{
		Entry: Entry{OrderID: orderID, Status: status, Message: message, UpdatedAt: b.now()},
		gen:   b.gen,
	}
	b.entries[orderID] = e

	if window > 0 {
		gen := e.gen
		e.stop = b.schedule(window, func() { b.expire(orderID, gen) })
	}
}

// expire drops the entry only if it is still the one the timer was armed for.
func (b *MemoryBoard) expire(orderID uuid.UUID, gen uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if e, ok := b.entries[orderID]; ok && e.gen == gen {
		delete(b.entries, orderID)
	}
}

func (b *MemoryBoard) Get(_ context.Context, orderID uuid.UUID) (Entry, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[orderID]
	if !ok {
		return Entry{}, false, nil
	}
	return e.Entry, true, nil
}

func (b *MemoryBoard) Snapshot(_ context.Context) ([]Entry, error) {
	b.mu.Lock()
	out := make([]Entry, 0, len(b.entries))
	for _, e := range b.entries {
		out = append(out, e.Entry)
	}
	b.mu.Unlock()

	sortEntries(out)
	return out, nil
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].UpdatedAt.Equal(entries[j].UpdatedAt) {
			return entries[i].UpdatedAt.Before(entries[j].UpdatedAt)
		}
		return entries[i].OrderID.String() < entries[j].OrderID.String()
	})
}
