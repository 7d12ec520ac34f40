package eventloop

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/eapache/queue"
)

// Serial runs tasks one at a time on a dedicated goroutine, in the order they
// were submitted. The queue is unbounded: Execute never blocks.
//
// A task that panics is logged and the loop continues with the next task.
type Serial struct {
	mu     sync.Mutex
	cond   *sync.Cond
	tasks  *queue.Queue
	closed bool
	done   chan struct{}
	logger *slog.Logger
}

// NewSerial starts a serial loop. A nil logger uses slog.Default().
func NewSerial(logger *slog.Logger) *Serial {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Serial{
		tasks:  queue.New(),
		done:   make(chan struct{}),
		logger: logger,
	}
	s.cond = sync.NewCond(&s.mu)
	go s.loop()
	return s
}

// Execute enqueues task. After Close, tasks run inline on the caller so that
// late notifications are still delivered.
func (s *Serial) Execute(task func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.run(task)
		return
	}
	s.tasks.Add(task)
	s.mu.Unlock()
	s.cond.Signal()
}

// Pending returns the number of queued tasks not yet started.
func (s *Serial) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks.Length()
}

// Close stops accepting queued work, runs every task already queued, and
// waits for the loop goroutine to exit. It must not be called from a task.
// Calling Close more than once is safe.
func (s *Serial) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		<-s.done
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.cond.Broadcast()
	<-s.done
}

func (s *Serial) loop() {
	defer close(s.done)
	for {
		s.mu.Lock()
		for s.tasks.Length() == 0 && !s.closed {
			s.cond.Wait()
		}
		if s.tasks.Length() == 0 {
			s.mu.Unlock()
			return
		}
		task := s.tasks.Remove().(func())
		s.mu.Unlock()

		s.run(task)
	}
}

func (s *Serial) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("eventloop task panicked", slog.String("panic", fmt.Sprint(r)))
		}
	}()
	task()
}
