package recordings

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Poller periodically lists a source and reports the difference from the
// previous listing. It is used for sources without change notifications.
type Poller struct {
	src      Source
	interval time.Duration
	onEvent  ChangeFunc
	logger   *slog.Logger

	known  map[string]bool
	primed bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPoller creates a poller for src.
func NewPoller(src Source, interval time.Duration, onEvent ChangeFunc, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		src:      src,
		interval: interval,
		onEvent:  onEvent,
		logger:   logger,
		known:    make(map[string]bool),
	}
}

// Start lists the source once to establish a baseline, then polls on
// each tick.
func (p *Poller) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.run(ctx)
	}()
}

// Stop cancels the poller and waits for the current poll (if any) to finish.
func (p *Poller) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

func (p *Poller) run(ctx context.Context) {
	p.pollOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pollOnce(ctx)
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context) {
	recs, err := p.src.List(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Warn("recordings: poll failed", "source", p.src.Name(), "error", err)
		}
		return
	}

	current := make(map[string]bool, len(recs))
	for _, r := range recs {
		current[r.Name] = true
	}

	if p.primed {
		for _, r := range recs {
			if !p.known[r.Name] {
				p.onEvent(ctx, Change{Op: Added, Name: r.Name, Source: p.src.Name()})
			}
		}
		for name := range p.known {
			if !current[name] {
				p.onEvent(ctx, Change{Op: Removed, Name: name, Source: p.src.Name()})
			}
		}
	}

	p.known = current
	p.primed = true
	p.logger.Debug("recordings: poll completed", "source", p.src.Name(), "recordings", len(recs))
}
