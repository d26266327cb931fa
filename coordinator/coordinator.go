// Package coordinator runs the summary, topic and query pipelines. It owns
// the result cache and the in-flight map: at most one pipeline runs per key,
// and every caller waiting on that key receives the same outcome.
package coordinator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"searchlens/cache"
	"searchlens/cleaner"
	"searchlens/fetcher"
	"searchlens/inference"
	"searchlens/pkg/errkind"
	"searchlens/retry"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrClosed = errors.New("coordinator closed")

// Inferer is the model side of a pipeline.
type Inferer interface {
	Infer(ctx context.Context, req inference.Request) (string, error)
}

type outcome struct {
	value string
	err   error
}

// pending is one pipeline run and the callers waiting on it.
type pending struct {
	key     string
	kind    string
	runID   string
	run     func(ctx context.Context, t *task) (string, error)
	waiters []chan outcome
	stage   Stage
	done    bool
	created time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

type Coordinator struct {
	cfg     Config
	fetcher fetcher.Fetcher
	cleaner *cleaner.Cleaner
	inferer Inferer
	cache   *cache.Cache
	policy  retry.Policy
	logger  *zap.Logger

	mu       sync.Mutex
	inflight map[string]*pending
	queue    []*pending
	ready    chan struct{}
	closed   bool

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once

	stats counters
}

type Option func(*Coordinator)

func WithCache(c *cache.Cache) Option {
	return func(co *Coordinator) { co.cache = c }
}

func WithRetryPolicy(p retry.Policy) Option {
	return func(co *Coordinator) { co.policy = p }
}

func WithCleaner(c *cleaner.Cleaner) Option {
	return func(co *Coordinator) { co.cleaner = c }
}

// New starts the queue workers and, when cfg.SweepInterval is set, the
// cache sweep. Call Close to stop them.
func New(cfg Config, f fetcher.Fetcher, inferer Inferer, logger *zap.Logger, opts ...Option) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Coordinator{
		cfg:      cfg.withDefaults(),
		fetcher:  f,
		inferer:  inferer,
		policy:   retry.DefaultPolicy(),
		logger:   logger,
		inflight: make(map[string]*pending),
		ready:    make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cache == nil {
		c.cache = cache.New(cache.WithLogger(logger))
	}
	if c.cleaner == nil {
		c.cleaner = cleaner.New(logger)
	}
	if c.policy.Logger == nil {
		c.policy.Logger = logger
	}

	if c.cfg.Serial {
		for i := 0; i < c.cfg.Workers; i++ {
			c.wg.Add(1)
			go c.worker()
		}
	}
	if c.cfg.SweepInterval > 0 {
		c.cache.Start(c.cfg.SweepInterval)
	}
	return c
}

// request returns the cached value for key, joins the pipeline already
// running for it, or starts a new one. A done ctx only stops this caller
// from waiting; the pipeline keeps running for the others.
func (c *Coordinator) request(ctx context.Context, key, kind string, run func(context.Context, *task) (string, error)) (string, bool, error) {
	c.stats.requests.Add(1)
	if value, ok := c.cache.Get(key); ok {
		c.stats.cacheHits.Add(1)
		c.logger.Debug("cache_hit", zap.String("kind", kind), zap.String("key", key))
		return value, true, nil
	}

	ch := make(chan outcome, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return "", false, ErrClosed
	}
	// A pipeline may have finished between the cache read and the lock.
	if value, ok := c.cache.Get(key); ok {
		c.mu.Unlock()
		c.stats.cacheHits.Add(1)
		return value, true, nil
	}
	if p, ok := c.inflight[key]; ok {
		p.waiters = append(p.waiters, ch)
		c.stats.joined.Add(1)
		c.logger.Debug("pipeline_joined",
			zap.String("run_id", p.runID),
			zap.String("kind", kind),
			zap.Int("waiters", len(p.waiters)))
		c.mu.Unlock()
	} else {
		p := c.newPending(key, kind, run)
		p.waiters = append(p.waiters, ch)
		c.inflight[key] = p
		if c.cfg.Serial {
			c.queue = append(c.queue, p)
		}
		c.mu.Unlock()

		c.stats.started.Add(1)
		c.logger.Info("pipeline_created",
			zap.String("run_id", p.runID),
			zap.String("kind", kind),
			zap.String("key", key))
		if c.cfg.Serial {
			c.signal()
		} else {
			go c.execute(p)
		}
	}

	select {
	case out := <-ch:
		return out.value, false, out.err
	case <-ctx.Done():
		return "", false, ctx.Err()
	}
}

func (c *Coordinator) newPending(key, kind string, run func(context.Context, *task) (string, error)) *pending {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.RequestTimeout)
	p := &pending{
		key:     key,
		kind:    kind,
		runID:   uuid.NewString(),
		run:     run,
		created: time.Now(),
		ctx:     ctx,
		cancel:  cancel,
	}
	context.AfterFunc(ctx, func() {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			if c.finish(p, "", c.timeoutError(kind)) {
				c.logger.Warn("pipeline_timeout",
					zap.String("run_id", p.runID),
					zap.String("kind", kind),
					zap.Duration("timeout", c.cfg.RequestTimeout))
			}
		}
	})
	return p
}

func (c *Coordinator) timeoutError(kind string) error {
	return errkind.Newf(errkind.Timeout, kind, "no result after %s", c.cfg.RequestTimeout)
}

func (c *Coordinator) signal() {
	select {
	case c.ready <- struct{}{}:
	default:
	}
}

func (c *Coordinator) worker() {
	defer c.wg.Done()
	for {
		if p := c.dequeue(); p != nil {
			c.execute(p)
			continue
		}
		select {
		case <-c.ready:
		case <-c.done:
			return
		}
	}
}

// dequeue pops the oldest pipeline that has not already been resolved by
// its deadline.
func (c *Coordinator) dequeue() *pending {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.queue) > 0 {
		p := c.queue[0]
		c.queue[0] = nil
		c.queue = c.queue[1:]
		if !p.done {
			if len(c.queue) > 0 {
				c.signal()
			}
			return p
		}
	}
	return nil
}

func (c *Coordinator) execute(p *pending) {
	t := &task{
		c:      c,
		p:      p,
		logger: c.logger.With(zap.String("run_id", p.runID), zap.String("kind", p.kind)),
	}
	t.logger.Debug("pipeline_started", zap.Duration("queued", time.Since(p.created)))

	value, err := p.run(p.ctx, t)
	// A stage that gave up on the deadline may lose the race with the
	// timeout callback; its outcome must still read as a timeout.
	if err != nil && errors.Is(p.ctx.Err(), context.DeadlineExceeded) && errkind.Of(err) != errkind.Timeout {
		err = c.timeoutError(p.kind)
	}
	if err == nil {
		t.enter(Succeeded)
	} else {
		t.enter(Failed)
	}

	if !c.finish(p, value, err) {
		t.logger.Warn("pipeline_late_result", zap.Error(err))
		return
	}
	if errkind.Of(err) == errkind.Timeout {
		t.logger.Warn("pipeline_timeout", zap.Duration("timeout", c.cfg.RequestTimeout))
		return
	}
	if err != nil {
		t.logger.Warn("pipeline_failed",
			zap.String("error_kind", string(errkind.Cause(err))),
			zap.Error(err))
		return
	}
	t.logger.Info("pipeline_succeeded", zap.Duration("elapsed", time.Since(p.created)))
}

// finish resolves p once. Success is cached before the key leaves the
// in-flight map so no caller can slip in between and start a second run.
// Waiters are notified in the order they attached.
func (c *Coordinator) finish(p *pending, value string, err error) bool {
	c.mu.Lock()
	if p.done {
		c.mu.Unlock()
		return false
	}
	p.done = true
	switch {
	case err == nil:
		c.cache.Put(p.key, value)
	case errors.Is(err, ErrClosed):
	default:
		c.stats.failures.Add(1)
		if errkind.Is(err, errkind.Timeout) {
			c.stats.timeouts.Add(1)
		}
	}
	if c.inflight[p.key] == p {
		delete(c.inflight, p.key)
	}
	waiters := p.waiters
	p.waiters = nil
	c.mu.Unlock()

	out := outcome{value: value, err: err}
	for _, ch := range waiters {
		ch <- out
	}
	p.cancel()
	return true
}

// ClearCache drops every cached result. Running pipelines are unaffected.
func (c *Coordinator) ClearCache() {
	c.cache.Clear()
}

// Close stops the workers and the cache sweep. Pipelines still queued or
// running resolve with ErrClosed.
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		var open []*pending
		for _, p := range c.inflight {
			open = append(open, p)
		}
		c.queue = nil
		c.mu.Unlock()

		for _, p := range open {
			c.finish(p, "", ErrClosed)
		}
		close(c.done)
		c.wg.Wait()
		c.cache.Stop()
	})
}

// task is the view a pipeline has of its own run.
type task struct {
	c      *Coordinator
	p      *pending
	logger *zap.Logger
}

func (t *task) enter(s Stage) {
	t.c.mu.Lock()
	from := t.p.stage
	t.p.stage = s
	t.c.mu.Unlock()

	t.logger.Debug("pipeline_stage",
		zap.Stringer("from", from),
		zap.Stringer("to", s))
}

func (t *task) retryPolicy() retry.Policy {
	p := t.c.policy
	p.Logger = t.logger
	return p
}

type counters struct {
	requests  atomic.Int64
	cacheHits atomic.Int64
	started   atomic.Int64
	joined    atomic.Int64
	failures  atomic.Int64
	timeouts  atomic.Int64
	fallbacks atomic.Int64
}

type Stats struct {
	Requests         int64 `json:"requests"`
	CacheHits        int64 `json:"cacheHits"`
	PipelinesStarted int64 `json:"pipelinesStarted"`
	Joined           int64 `json:"joined"`
	Failures         int64 `json:"failures"`
	Timeouts         int64 `json:"timeouts"`
	TopicFallbacks   int64 `json:"topicFallbacks"`
	InFlight         int   `json:"inFlight"`
	Queued           int   `json:"queued"`
	CacheEntries     int   `json:"cacheEntries"`
}

func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	inflight, queued := len(c.inflight), 0
	for _, p := range c.queue {
		if !p.done {
			queued++
		}
	}
	c.mu.Unlock()

	return Stats{
		Requests:         c.stats.requests.Load(),
		CacheHits:        c.stats.cacheHits.Load(),
		PipelinesStarted: c.stats.started.Load(),
		Joined:           c.stats.joined.Load(),
		Failures:         c.stats.failures.Load(),
		Timeouts:         c.stats.timeouts.Load(),
		TopicFallbacks:   c.stats.fallbacks.Load(),
		InFlight:         inflight,
		Queued:           queued,
		CacheEntries:     c.cache.Len(),
	}
}
