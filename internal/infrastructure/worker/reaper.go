package worker

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopcore/cartservice/internal/application/reaper"
	"go.uber.org/zap"
)

// Reaper runs the expired-line sweep on a fixed interval.
type Reaper struct {
	service  *reaper.Service
	interval time.Duration
	log      *zap.Logger
	reaped   prometheus.Counter

	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewReaper(service *reaper.Service, interval time.Duration, log *zap.Logger, reaped prometheus.Counter) *Reaper {
	return &Reaper{
		service:  service,
		interval: interval,
		log:      log.With(zap.String("component", "cart_reaper")),
		reaped:   reaped,
		done:     make(chan struct{}),
	}
}

func (w *Reaper) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		bg, cancel := context.WithCancel(ctx)
		w.cancel = cancel
		go w.run(bg)
		w.log.Info("reaper_started", zap.Duration("interval", w.interval))
	})
}

func (w *Reaper) Stop() {
	w.stopOnce.Do(func() {
		if w.cancel != nil {
			w.cancel()
		}
		<-w.done
		w.log.Info("reaper_stopped")
	})
}

func (w *Reaper) run(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := w.service.ReapAll(ctx)
			if err != nil {
				w.log.Error("reap_sweep_failed", zap.Error(err))
				continue
			}
			if w.reaped != nil && removed > 0 {
				w.reaped.Add(float64(removed))
			}
		}
	}
}
