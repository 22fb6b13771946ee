package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const DefaultPollInterval = time.Second

// Observer notifies subscribers when the persisted session may have changed,
// including changes made by other processes. Delivery is eventual, not instant.
type Observer interface {
	Subscribe(fn func()) (unsubscribe func())
}

// PollObserver re-reads the store on an interval and whenever the store pushes
// a change, and fires subscribers when the snapshot differs from the last one seen.
type PollObserver struct {
	store    Store
	interval time.Duration
	log      *zap.Logger

	mu     sync.Mutex
	subs   map[int]func()
	nextID int
	last   Snapshot
	primed bool
	cancel context.CancelFunc
	done   chan struct{}
}

func NewPollObserver(store Store, interval time.Duration, log *zap.Logger) *PollObserver {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PollObserver{store: store, interval: interval, log: log, subs: map[int]func(){}}
}

func (o *PollObserver) Subscribe(fn func()) func() {
	o.mu.Lock()
	id := o.nextID
	o.nextID++
	o.subs[id] = fn
	o.mu.Unlock()
	return func() {
		o.mu.Lock()
		delete(o.subs, id)
		o.mu.Unlock()
	}
}

// Start begins watching in a goroutine. Calling Start twice is a no-op.
func (o *PollObserver) Start(ctx context.Context) {
	o.mu.Lock()
	if o.cancel != nil {
		o.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.done = make(chan struct{})
	o.mu.Unlock()

	o.Check(ctx)
	go o.loop(ctx)
}

func (o *PollObserver) Stop() {
	o.mu.Lock()
	cancel, done := o.cancel, o.done
	o.cancel, o.done = nil, nil
	o.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

func (o *PollObserver) loop(ctx context.Context) {
	o.mu.Lock()
	done := o.done
	o.mu.Unlock()
	defer close(done)

	t := time.NewTicker(o.interval)
	defer t.Stop()
	changes := o.store.Changes()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			o.Check(ctx)
		case _, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			o.Check(ctx)
		}
	}
}

// Check reads the store once and fires subscribers if the session changed.
// The first successful read only records the baseline.
func (o *PollObserver) Check(ctx context.Context) bool {
	snap, err := o.store.Read(ctx)
	if err != nil {
		o.log.Debug("session poll failed", zap.Error(err))
		return false
	}
	o.mu.Lock()
	if o.primed && o.last.Same(snap) {
		o.mu.Unlock()
		return false
	}
	first := !o.primed
	o.last, o.primed = snap, true
	subs := make([]func(), 0, len(o.subs))
	for _, fn := range o.subs {
		subs = append(subs, fn)
	}
	o.mu.Unlock()

	if first {
		return false
	}
	for _, fn := range subs {
		fn()
	}
	return true
}
