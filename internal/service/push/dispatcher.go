// Package push owns the authoritative push path. Every state-changing
// outcome leaves the engine as a sequenced PushEvent; the client view
// of interactive-control state is written here and nowhere else, so a
// request-path timeout can never contradict a completed operation.
package push

import (
	"context"
	"sync"
	"sync/atomic"

	"ChartReplay/internal/domain/models"
	domrepo "ChartReplay/internal/domain/repository"
	applogger "ChartReplay/pkg/logger"
)

// Dispatcher assigns sequence numbers and fans events out to sinks.
type Dispatcher struct {
	seq     uint64
	sinks   []domrepo.EventSink
	view    *ClientView
	metrics domrepo.Metrics
	logger  *applogger.Logger
}

func NewDispatcher(view *ClientView, metrics domrepo.Metrics, logger *applogger.Logger, sinks ...domrepo.EventSink) *Dispatcher {
	return &Dispatcher{sinks: sinks, view: view, metrics: metrics, logger: logger}
}

// Publish stamps the event with the next sequence number, applies it to
// the client view, and delivers it to every sink. Sink failures are
// logged and counted, never propagated: the push path is best-effort
// per sink but authoritative in ordering.
func (d *Dispatcher) Publish(ctx context.Context, ev *models.PushEvent) {
	ev.Seq = atomic.AddUint64(&d.seq, 1)
	d.view.Apply(ev)

	if d.metrics != nil {
		d.metrics.RecordPushEvent(string(ev.Type))
	}
	for _, sink := range d.sinks {
		if err := sink.Deliver(ctx, ev); err != nil {
			if d.metrics != nil {
				d.metrics.RecordError("push_deliver")
			}
			if d.logger != nil {
				d.logger.Warn("push delivery failed",
					applogger.String("type", string(ev.Type)),
					applogger.Error(err),
				)
			}
		}
	}
}

// ClientView mirrors the interactive-control state the client derives
// from the push path: selected timeframe and replay position. Only
// Apply mutates it, and only with a newer sequence number, so stale or
// reordered deliveries are discarded by construction.
type ClientView struct {
	mu          sync.RWMutex
	lastSeq     uint64
	timeframe   domrepo.Timeframe
	virtualTime int64
}

func NewClientView() *ClientView {
	return &ClientView{timeframe: domrepo.DefaultTimeframe()}
}

// Apply folds a push event into the view. Events at or below the last
// applied sequence are ignored.
func (v *ClientView) Apply(ev *models.PushEvent) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if ev.Seq <= v.lastSeq {
		return false
	}
	v.lastSeq = ev.Seq
	if ev.Timeframe != "" {
		v.timeframe = domrepo.Timeframe(ev.Timeframe)
	}
	if ev.VirtualTime > 0 {
		v.virtualTime = ev.VirtualTime
	}
	return true
}

// ActiveTimeframe returns the timeframe the client currently shows.
func (v *ClientView) ActiveTimeframe() domrepo.Timeframe {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.timeframe
}

// VirtualTime returns the last pushed replay position.
func (v *ClientView) VirtualTime() int64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.virtualTime
}

// LastSeq returns the highest applied sequence number.
func (v *ClientView) LastSeq() uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.lastSeq
}
