// Package chain serializes scheduled digest deliveries. Recipients of a
// broadcast are processed one at a time by a single worker, with a pause
// between jobs, so only one browser and one model conversation are live at
// any moment.
package chain

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/deusflow/linenews/internal/metrics"
)

// Recipient is one delivery target of a broadcast run.
type Recipient struct {
	ID       string
	Keywords string
}

// Job is one queued delivery.
type Job struct {
	ID        string
	Recipient Recipient
}

// RunFunc performs the whole generate-and-deliver flow for one recipient.
type RunFunc func(ctx context.Context, r Recipient) error

// Runner owns the queue and its single worker. A failed job is logged and
// the worker moves on; one recipient's failure never blocks the rest.
type Runner struct {
	run       RunFunc
	stepDelay time.Duration
	sleep     func(time.Duration)

	mu      sync.Mutex
	queue   []Job
	running bool
}

func NewRunner(run RunFunc, stepDelay time.Duration) *Runner {
	return &Runner{
		run:       run,
		stepDelay: stepDelay,
		sleep:     time.Sleep,
	}
}

// Launch enqueues a job per recipient and wakes the worker if it is idle.
// Jobs run in the given order.
func (r *Runner) Launch(ctx context.Context, recipients []Recipient) {
	if len(recipients) == 0 {
		log.Printf("Chain launch with no recipients, nothing to do")
		return
	}

	r.mu.Lock()
	for _, rec := range recipients {
		r.queue = append(r.queue, Job{ID: uuid.NewString(), Recipient: rec})
	}
	start := !r.running
	if start {
		r.running = true
	}
	pending := len(r.queue)
	r.mu.Unlock()

	log.Printf(">>> Chain launched: %d job(s) queued, %d pending total", len(recipients), pending)
	if start {
		go r.work(ctx)
	}
}

// Pending reports how many jobs are queued but not yet started.
func (r *Runner) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue)
}

func (r *Runner) work(ctx context.Context) {
	first := true
	for {
		r.mu.Lock()
		if len(r.queue) == 0 {
			r.running = false
			r.mu.Unlock()
			log.Printf(">>> Chain drained, worker stopping")
			return
		}
		job := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()

		if !first && r.stepDelay > 0 {
			r.sleep(r.stepDelay)
		}
		first = false

		if ctx.Err() != nil {
			log.Printf("⚠️ Chain cancelled with job %s pending", job.ID)
			r.mu.Lock()
			r.queue = nil
			r.running = false
			r.mu.Unlock()
			return
		}

		log.Printf(">>> Chain job %s: delivering to %s", job.ID, job.Recipient.ID)
		started := time.Now()
		if err := r.run(ctx, job.Recipient); err != nil {
			log.Printf("⚠️ Chain job %s failed: %v", job.ID, err)
			metrics.Global.SetError(err.Error())
		} else {
			log.Printf("✅ Chain job %s done in %s", job.ID, time.Since(started).Round(time.Millisecond))
		}
		metrics.Global.IncrementChainJobsRun()
	}
}
