// Package webhook forwards undeliverable chat messages to an external HTTP
// endpoint.
//
// Delivery is best-effort and at-most-once: a full queue drops the
// notification, a failed POST is logged and counted, and nothing ever
// propagates back into the host pipeline.
package webhook

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	logx "offlinehook/pkg/logx"

	"offlinehook/internal/message"
	rtsup "offlinehook/internal/runtime/supervisor"

	"golang.org/x/time/rate"
)

type job struct {
	payload string
	// id is kept for logging only; the body already carries it encoded.
	id string
}

// Service implements the offline-message notifier: qualification filter +
// queue + worker pool + rate limit + fire-and-forget POST.
//
// It is safe for concurrent use; HandleOffline may be invoked from any
// number of pipeline goroutines.
type Service struct {
	mu sync.Mutex

	log    logx.Logger
	cfg    Config
	client *http.Client

	limiter *rate.Limiter

	accepting bool
	sendWG    sync.WaitGroup

	queue    chan job
	sup      *rtsup.Supervisor
	stopDone chan struct{} // non-nil while stopping

	queued  atomic.Uint64
	sent    atomic.Uint64
	failed  atomic.Uint64
	skipped atomic.Uint64
	dropped atomic.Uint64
}

func New(cfg Config, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	cfg = withDefaults(cfg)

	s := &Service{
		log: log,
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
	if cfg.RatePerSec > 0 {
		// Token bucket: burst = rate per sec, so short spikes don't block too hard.
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
	}
	return s
}

func withDefaults(cfg Config) Config {
	if strings.TrimSpace(cfg.AuthToken) == "" {
		cfg.AuthToken = DefaultAuthToken
	}
	if strings.TrimSpace(cfg.PostURL) == "" {
		cfg.PostURL = DefaultPostURL
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.RatePerSec < 0 {
		cfg.RatePerSec = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return cfg
}

// Config returns the effective (defaulted) configuration.
func (s *Service) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

func (s *Service) Stats() Stats {
	return Stats{
		Queued:  s.queued.Load(),
		Sent:    s.sent.Load(),
		Failed:  s.failed.Load(),
		Skipped: s.skipped.Load(),
		Dropped: s.dropped.Load(),
	}
}

// Start launches the worker pool. It is idempotent.
func (s *Service) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	// If stopping, wait for it to finish before restarting.
	if s.stopDone != nil {
		done := s.stopDone
		s.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return
		}
		s.mu.Lock()
	}
	if s.queue != nil {
		s.mu.Unlock()
		return
	}

	s.queue = make(chan job, s.cfg.QueueSize)
	s.accepting = true
	workers := s.cfg.Workers

	s.sup = rtsup.New(ctx,
		rtsup.WithLogger(s.log),
		// Webhook failures must never take down the daemon; best-effort only.
		rtsup.WithCancelOnError(false),
	)
	sup := s.sup
	q := s.queue
	s.mu.Unlock()

	for i := 0; i < workers; i++ {
		name := fmt.Sprintf("worker.%d", i)
		sup.Go0(name, func(c context.Context) {
			s.workerLoop(c, q)
		})
	}

	s.log.Info("webhook notifier started",
		logx.String("post_url", s.cfg.PostURL),
		logx.Bool("confidential", s.cfg.Confidential),
		logx.Int("workers", workers),
	)
}

// Stop stops intake and drains the queue best-effort until ctx deadline.
func (s *Service) Stop(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	q := s.queue
	sup := s.sup
	if q == nil {
		s.mu.Unlock()
		return
	}
	// If already stopping, wait.
	if s.stopDone != nil {
		done := s.stopDone
		s.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
		}
		return
	}

	done := make(chan struct{})
	s.stopDone = done
	s.accepting = false
	s.mu.Unlock()

	// Shutdown happens asynchronously so callers can time out without leaking state.
	go func() {
		defer close(done)
		// Wait for in-flight enqueues, then close the queue so workers drain.
		s.sendWG.Wait()
		close(q)
		if sup != nil {
			_ = sup.Wait(context.Background())
		}

		s.mu.Lock()
		s.queue = nil
		s.stopDone = nil
		s.sup = nil
		s.mu.Unlock()
	}()

	select {
	case <-done:
		s.log.Info("webhook notifier stopped")
	case <-ctx.Done():
		// Force-stop workers; whatever is still queued is lost (at-most-once).
		if sup != nil {
			sup.Cancel()
		}
		s.log.Warn("webhook notifier stop timed out; dropping queued notifications")
	}
}

// HandleOffline is the hook the host pipeline invokes for every offline
// message. It never blocks on the network and never returns an error to the
// caller: qualifying messages are queued for a worker, everything else is a
// counted no-op.
func (s *Service) HandleOffline(ctx context.Context, msg message.Message) {
	if !qualifies(msg) {
		s.skipped.Add(1)
		s.log.Debug("offline message skipped",
			logx.String("type", string(msg.Type)),
			logx.Bool("empty_body", msg.Body == ""),
		)
		return
	}

	s.mu.Lock()
	if !s.accepting || s.queue == nil {
		s.mu.Unlock()
		s.dropped.Add(1)
		return
	}
	q := s.queue
	confidential := s.cfg.Confidential
	s.sendWG.Add(1)
	s.mu.Unlock()
	defer s.sendWG.Done()

	j := job{payload: buildPayload(msg, confidential), id: msg.ID}

	select {
	case q <- j:
		s.queued.Add(1)
		s.log.Debug("offline notification queued",
			logx.String("message_id", msg.ID),
			logx.String("from", msg.From.User),
			logx.String("to", msg.To.User),
		)
	default:
		s.dropped.Add(1)
		s.log.Debug("offline notification dropped (queue full)", logx.String("message_id", msg.ID))
	}
}

func (s *Service) workerLoop(ctx context.Context, q <-chan job) {
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-q:
			if !ok {
				return
			}
			s.deliver(ctx, j)
		}
	}
}

// deliver performs one POST. All failure modes end here: logged at debug,
// counted, and forgotten.
func (s *Service) deliver(ctx context.Context, j job) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			s.dropped.Add(1)
			return
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.PostURL, strings.NewReader(j.payload))
	if err != nil {
		s.failed.Add(1)
		s.log.Debug("webhook request build failed", logx.Err(err), logx.String("message_id", j.id))
		return
	}
	// The token goes out verbatim; the scheme (if any) is the operator's choice.
	req.Header.Set("Authorization", s.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	s.log.Debug("posting offline notification",
		logx.String("url", s.cfg.PostURL),
		logx.String("message_id", j.id),
		logx.Int("payload_bytes", len(j.payload)),
	)

	resp, err := s.client.Do(req)
	if err != nil {
		s.failed.Add(1)
		s.log.Debug("webhook post failed", logx.Err(err), logx.String("message_id", j.id))
		return
	}
	// The response is not part of the contract; drain it so the connection
	// can be reused, then forget it.
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	s.sent.Add(1)
	s.log.Debug("webhook post done",
		logx.String("message_id", j.id),
		logx.Int("status", resp.StatusCode),
	)
}
