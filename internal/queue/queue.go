package queue

import (
	"log/slog"
	"sync"

	"fundsync/lib/sl"
)

// Queue is a bounded background worker pool. The webhook endpoint enqueues
// event processing here and returns immediately; the provider's
// acknowledgment deadline is never spent on handler execution.
type Queue struct {
	tasks chan func()
	wg    sync.WaitGroup
	once  sync.Once
	log   *slog.Logger
}

func New(size, workers int, logger *slog.Logger) *Queue {
	if size < 1 {
		size = 1
	}
	if workers < 1 {
		workers = 1
	}
	q := &Queue{
		tasks: make(chan func(), size),
		log:   logger.With(sl.Module("queue")),
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	return q
}

// Enqueue hands a task to the pool without blocking. Returns false when the
// queue is full; the caller leaves the ledger record pending and relies on
// provider redelivery to retry.
func (q *Queue) Enqueue(task func()) bool {
	select {
	case q.tasks <- task:
		return true
	default:
		return false
	}
}

// Stop closes the queue and waits for in-flight tasks to finish.
func (q *Queue) Stop() {
	q.once.Do(func() {
		close(q.tasks)
	})
	q.wg.Wait()
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for task := range q.tasks {
		q.run(task)
	}
}

func (q *Queue) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			q.log.With(
				slog.Any("panic", r),
			).Error("task panicked")
		}
	}()
	task()
}
