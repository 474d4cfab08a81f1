package buspro

import (
	"sync"
	"time"
)

// JobKind classifies queued commands for coalescing decisions.
type JobKind int

// Job kinds.
const (
	// JobMotion is an OPEN or CLOSE command.
	JobMotion JobKind = iota

	// JobSetPosition is a position command. Replaces prior JobSetPosition
	// (and prior motion) for the same cover.
	JobSetPosition

	// JobStop is a STOP command. Drops any queued motion command for the
	// same cover and jumps to the front of the queue.
	JobStop

	// JobRead is a read_status request. Paced like everything else so
	// polling cannot flood the gateway.
	JobRead

	// JobLight is a light set command.
	JobLight
)

// job is one pending unit of work for a bus address.
type job struct {
	kind JobKind
	run  func()
}

// Scheduler is the single-writer outbound queue.
//
// It enforces global pacing between dispatches, coalesces commands per
// address (latest wins), and prioritises STOP. Only the dispatcher
// goroutine executes jobs, so it is the only writer to the UDP socket.
//
// Thread Safety: Enqueue may be called from any goroutine.
type Scheduler struct {
	interval time.Duration

	mu      sync.Mutex
	pending map[ChannelAddress]*job
	order   []ChannelAddress

	wake chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

// NewScheduler creates a scheduler with the given pacing interval.
func NewScheduler(interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 180 * time.Millisecond
	}
	return &Scheduler{
		interval: interval,
		pending:  make(map[ChannelAddress]*job),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Interval returns the pacing interval.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Start launches the dispatcher goroutine.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.dispatchLoop()
}

// Stop terminates the dispatcher and discards pending jobs.
func (s *Scheduler) Stop() {
	close(s.done)
	s.wg.Wait()

	s.mu.Lock()
	s.pending = make(map[ChannelAddress]*job)
	s.order = nil
	s.mu.Unlock()
}

// Enqueue queues work for an address, coalescing with any pending job.
//
// Coalescing rules:
//   - A newer job replaces the pending one for the same address (latest wins).
//   - JobStop moves the address to the front of the queue, superseding any
//     queued motion or position command for that cover.
//   - JobRead never displaces a pending command; reads are dropped if a
//     command is already queued for the address.
//
// Parameters:
//   - addr: Target channel address (coalescing key)
//   - kind: Job classification
//   - run: Closure executed on the dispatcher goroutine
func (s *Scheduler) Enqueue(addr ChannelAddress, kind JobKind, run func()) {
	s.mu.Lock()

	if prev, ok := s.pending[addr]; ok {
		if kind == JobRead && prev.kind != JobRead {
			// A queued command outranks a status poll.
			s.mu.Unlock()
			return
		}
	}

	s.pending[addr] = &job{kind: kind, run: run}

	// Reposition the address in the queue.
	s.removeFromOrder(addr)
	if kind == JobStop {
		s.order = append([]ChannelAddress{addr}, s.order...)
	} else {
		s.order = append(s.order, addr)
	}

	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// removeFromOrder drops addr from the order slice if present.
// Caller must hold s.mu.
func (s *Scheduler) removeFromOrder(addr ChannelAddress) {
	for i, a := range s.order {
		if a == addr {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

// dispatchLoop executes queued jobs with global pacing.
func (s *Scheduler) dispatchLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}

		for {
			j, ok := s.next()
			if !ok {
				break
			}

			j.run()

			select {
			case <-s.done:
				return
			case <-time.After(s.interval):
			}
		}
	}
}

// next pops the front job, or returns false when the queue is drained.
func (s *Scheduler) next() (*job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.order) > 0 {
		addr := s.order[0]
		s.order = s.order[1:]
		j, ok := s.pending[addr]
		if !ok {
			continue
		}
		delete(s.pending, addr)
		return j, true
	}
	return nil, false
}

// PendingCount returns the number of queued jobs.
func (s *Scheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
