package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/olushola/classroom-bot/internal/metrics"
)

// Store keeps one Controller per chat. All work on a chat's controller runs
// under that chat's lock, so a controller is never touched concurrently.
type Store struct {
	mu      sync.Mutex
	byChat  map[int64]*entry
	factory func() *Controller
	now     func() time.Time
}

type entry struct {
	mu      sync.Mutex
	ctl     *Controller
	touched time.Time
	evicted bool
}

func NewStore(factory func() *Controller) *Store {
	return &Store{
		byChat:  make(map[int64]*entry),
		factory: factory,
		now:     time.Now,
	}
}

// With runs fn on the chat's controller, creating one on first use.
func (s *Store) With(chatID int64, fn func(*Controller) error) error {
	for {
		if ok, err := s.withEntry(s.entry(chatID), fn); ok {
			return err
		}
	}
}

// withEntry reports ok=false when e was swept between lookup and lock. The
// unlock is deferred so a panicking fn does not wedge the chat.
func (s *Store) withEntry(e *entry, fn func(*Controller) error) (ok bool, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.evicted {
		return false, nil
	}
	e.touched = s.now()
	return true, fn(e.ctl)
}

func (s *Store) entry(chatID int64) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byChat[chatID]
	if !ok {
		e = &entry{ctl: s.factory(), touched: s.now()}
		s.byChat[chatID] = e
		metrics.ActiveSessions.Set(float64(len(s.byChat)))
	}
	return e
}

// Evicted describes a controller dropped by Sweep.
type Evicted struct {
	ChatID    int64
	SessionID uuid.UUID
	Teaching  bool
	Finished  bool
}

// Sweep drops controllers idle for longer than idle. Chats busy at the time
// of the sweep are left alone.
func (s *Store) Sweep(idle time.Duration) []Evicted {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-idle)
	var out []Evicted
	for chatID, e := range s.byChat {
		if !e.mu.TryLock() {
			continue
		}
		if e.touched.Before(cutoff) {
			_, finished := e.ctl.FinishedAt()
			out = append(out, Evicted{
				ChatID:    chatID,
				SessionID: e.ctl.SessionID(),
				Teaching:  e.ctl.Teaching(),
				Finished:  finished,
			})
			e.evicted = true
			delete(s.byChat, chatID)
		}
		e.mu.Unlock()
	}
	metrics.ActiveSessions.Set(float64(len(s.byChat)))
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byChat)
}
