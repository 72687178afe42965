package notification

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var ErrDispatcherClosed = errors.New("notification dispatcher is shut down")

// ShareLinkSender is what the dispatcher fans work out to, usually a *Mailer.
type ShareLinkSender interface {
	SendShareLink(ctx context.Context, data ShareLink) error
}

type shareJob struct {
	ctx    context.Context
	link   ShareLink
	result chan<- error
}

type worker struct {
	id         int
	workerPool chan chan shareJob
	jobChannel chan shareJob
	logger     *slog.Logger
}

func newWorker(id int, workerPool chan chan shareJob, logger *slog.Logger) *worker {
	return &worker{
		id:         id,
		workerPool: workerPool,
		jobChannel: make(chan shareJob),
		logger:     logger,
	}
}

func (w *worker) start(ctx context.Context, wg *sync.WaitGroup, process func(shareJob)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			select {
			case w.workerPool <- w.jobChannel:
			case <-ctx.Done():
				return
			}

			select {
			case job := <-w.jobChannel:
				w.logger.Debug("worker sending share link", "worker_id", w.id, "recipient", job.link.RecipientEmail)
				process(job)
			case <-ctx.Done():
				w.logger.Debug("worker shutting down", "worker_id", w.id)
				return
			}
		}
	}()
}

type DispatcherConfig struct {
	Workers   int
	QueueSize int
}

// Dispatcher sends share links through a bounded pool of workers so a large department does not
// hold a request open for one SMTP round trip per member.
type Dispatcher struct {
	sender ShareLinkSender
	logger *slog.Logger

	jobQueue   chan shareJob
	workerPool chan chan shareJob
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once
}

func NewDispatcher(sender ShareLinkSender, cfg DispatcherConfig, logger *slog.Logger) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := cfg.Workers
	if maxWorkers <= 0 {
		maxWorkers = 4
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 64
	}

	d := &Dispatcher{
		sender:     sender,
		logger:     logger,
		jobQueue:   make(chan shareJob, queueSize),
		workerPool: make(chan chan shareJob, maxWorkers),
		maxWorkers: maxWorkers,
		ctx:        ctx,
		cancel:     cancel,
	}
	d.start()
	return d
}

func (d *Dispatcher) start() {
	d.once.Do(func() {
		for i := 0; i < d.maxWorkers; i++ {
			newWorker(i, d.workerPool, d.logger).start(d.ctx, &d.wg, d.process)
		}

		d.wg.Add(1)
		go d.dispatch()

		d.logger.Info("notification dispatcher started",
			"max_workers", d.maxWorkers,
			"queue_size", cap(d.jobQueue))
	})
}

func (d *Dispatcher) dispatch() {
	defer d.wg.Done()

	for {
		select {
		case job := <-d.jobQueue:
			select {
			case jobChannel := <-d.workerPool:
				select {
				case jobChannel <- job:
				case <-d.ctx.Done():
					return
				}
			case <-d.ctx.Done():
				return
			}
		case <-d.ctx.Done():
			d.logger.Info("notification dispatcher shutting down")
			return
		}
	}
}

func (d *Dispatcher) process(job shareJob) {
	if err := job.ctx.Err(); err != nil {
		job.result <- err
		return
	}
	job.result <- d.sender.SendShareLink(job.ctx, job.link)
}

// SendShareLink queues one link and waits for its outcome.
func (d *Dispatcher) SendShareLink(ctx context.Context, data ShareLink) error {
	return d.SendShareLinks(ctx, []ShareLink{data})[0]
}

// SendShareLinks queues every link and waits for all of them. errs[i] is the outcome of links[i].
func (d *Dispatcher) SendShareLinks(ctx context.Context, links []ShareLink) []error {
	errs := make([]error, len(links))
	if d.ctx.Err() != nil {
		for i := range errs {
			errs[i] = ErrDispatcherClosed
		}
		return errs
	}

	results := make([]chan error, len(links))
	for i, link := range links {
		// Buffered so a worker never blocks on a caller that gave up.
		results[i] = make(chan error, 1)
		select {
		case d.jobQueue <- shareJob{ctx: ctx, link: link, result: results[i]}:
		case <-ctx.Done():
			results[i] <- ctx.Err()
		case <-d.ctx.Done():
			results[i] <- ErrDispatcherClosed
		}
	}

	for i, result := range results {
		select {
		case err := <-result:
			errs[i] = err
		case <-d.ctx.Done():
			errs[i] = ErrDispatcherClosed
		}
	}
	return errs
}

// Shutdown stops the workers. Links still queued are reported as ErrDispatcherClosed.
func (d *Dispatcher) Shutdown() {
	d.logger.Info("shutting down notification dispatcher")
	d.cancel()
	d.wg.Wait()
	d.logger.Info("notification dispatcher shutdown complete")
}
