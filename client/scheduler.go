package client

import "context"

// Scheduler runs network work off the state goroutine and delivers the
// result back onto it. done always runs on the state goroutine.
type Scheduler interface {
	Go(work func() error, done func(error))
}

// Inline runs work and done immediately on the caller's goroutine.
type Inline struct{}

func (Inline) Go(work func() error, done func(error)) { done(work()) }

// EventLoop runs work on background goroutines and queues completions for
// the goroutine calling Run or Drain. Go and Post must be called from that
// goroutine too.
type EventLoop struct {
	posts   chan func()
	pending int
}

func NewEventLoop() *EventLoop { return &EventLoop{posts: make(chan func(), 64)} }

func (l *EventLoop) Go(work func() error, done func(error)) {
	l.pending++
	go func() {
		err := work()
		l.posts <- func() { done(err) }
	}()
}

// Pending is the number of completions not yet delivered.
func (l *EventLoop) Pending() int { return l.pending }

// Step delivers one completion, waiting for it if necessary. It reports
// false when nothing is in flight.
func (l *EventLoop) Step() bool {
	if l.pending == 0 {
		return false
	}
	fn := <-l.posts
	l.pending--
	fn()
	return true
}

// Drain delivers completions until nothing is in flight, including work
// started by the completions themselves.
func (l *EventLoop) Drain() {
	for l.Step() {
	}
}

// Run delivers completions until ctx is done.
func (l *EventLoop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.posts:
			l.pending--
			fn()
		}
	}
}
