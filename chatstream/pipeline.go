package chatstream

import (
	"iter"
	"sync"

	"github.com/llmrelay/llmrelay/chat"
)

// pipeline holds the state shared between a Producer and its Consumer. It is
// never exposed directly; callers only ever see the two handles NewPipeline
// returns.
type pipeline struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []chat.Event
	closed bool

	finishOnce sync.Once
	done       chan struct{}
	message    chat.AssistantMessage
	err        error
}

// Producer is the write end of a Pipeline. It is held exclusively by the
// provider task that is driving a single streaming call.
type Producer struct {
	p *pipeline
}

// Consumer is the read end of a Pipeline. Exactly one caller should drive it,
// either via Iter or Result.
type Consumer struct {
	p *pipeline
}

// NewPipeline creates a fresh event pipeline and returns its producer and
// consumer handles.
func NewPipeline() (*Producer, *Consumer) {
	p := &pipeline{done: make(chan struct{})}
	p.cond = sync.NewCond(&p.mu)
	return &Producer{p: p}, &Consumer{p: p}
}

// Push appends an event to the stream. It never blocks: the queue grows
// without bound, matching the "push never suspends in practice" scheduling
// model. A Push after Finish has already closed the pipeline is a silent
// no-op.
func (pr *Producer) Push(event chat.Event) {
	pr.p.mu.Lock()
	defer pr.p.mu.Unlock()

	if pr.p.closed {
		return
	}
	pr.p.queue = append(pr.p.queue, event)
	pr.p.cond.Signal()
}

// Finish closes the event stream and fulfills the one-shot terminal-message
// slot that Result awaits. Only the first call has any effect; subsequent
// calls (including from deferred cleanup after an explicit Finish) are
// no-ops so a provider task can unconditionally defer a failure path without
// double-reporting a result it already delivered successfully.
func (pr *Producer) Finish(message chat.AssistantMessage, err error) {
	pr.p.finishOnce.Do(func() {
		pr.p.mu.Lock()
		pr.p.message = message
		pr.p.err = err
		pr.p.closed = true
		pr.p.mu.Unlock()
		pr.p.cond.Broadcast()
		close(pr.p.done)
	})
}

// Abort is the practical equivalent of "dropping the producer before
// finish": it finishes the pipeline with an Error{aborted} outcome built
// from whatever content had already accumulated. Provider tasks call this
// from a deferred cleanup so that a panic, a canceled context, or an early
// return before an explicit Finish still yields a well-formed terminal
// result instead of leaving the consumer waiting forever.
func (pr *Producer) Abort(partial chat.AssistantMessage, cause error) {
	partial.StopReason = chat.StopReasonAborted
	pr.Finish(partial, cause)
}

// Iter returns a range-over-func iterator over the pushed events, in push
// order. The iterator ends once the producer calls Finish and every pushed
// event has been yielded. The terminal outcome passed to Finish is not
// yielded as an event; callers read it with Result, or use Drain for the
// common case of wanting both.
func (c *Consumer) Iter() iter.Seq[chat.Event] {
	return func(yield func(chat.Event) bool) {
		index := 0
		for {
			c.p.mu.Lock()
			for index >= len(c.p.queue) && !c.p.closed {
				c.p.cond.Wait()
			}
			if index >= len(c.p.queue) {
				c.p.mu.Unlock()
				return
			}
			event := c.p.queue[index]
			index++
			c.p.mu.Unlock()

			if !yield(event) {
				return
			}
		}
	}
}

// Result blocks until the producer calls Finish and returns the terminal
// assistant message together with any error that accompanied it.
func (c *Consumer) Result() (chat.AssistantMessage, error) {
	<-c.p.done
	c.p.mu.Lock()
	defer c.p.mu.Unlock()
	return c.p.message, c.p.err
}

// Drain consumes every event via Iter, collecting them into a slice, and
// then returns the terminal result. It is a convenience for callers (tests,
// simple synchronous wrappers) that want the whole stream at once rather
// than processing events as they arrive.
func (c *Consumer) Drain() ([]chat.Event, chat.AssistantMessage, error) {
	var events []chat.Event
	for event := range c.Iter() {
		events = append(events, event)
	}
	message, err := c.Result()
	return events, message, err
}
