package db

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mahmed0x1/ARTEMIS/internal/domain"
	"github.com/mahmed0x1/ARTEMIS/internal/usecase"
)

const (
	DefaultFaultQueueSize = 256
	observeTimeout        = 2 * time.Second
)

// FaultObserver queues faulted registry reads and persists them from a
// single background goroutine, so the read path never waits on the
// database. When the queue is full the fault is dropped and counted.
type FaultObserver struct {
	repo   domain.ReadFaultRepository
	logger *slog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	closed  bool
	queue   chan domain.ReadFault
	done    chan struct{}
	dropped atomic.Uint64
}

func NewFaultObserver(repo domain.ReadFaultRepository, logger *slog.Logger, queueSize int) *FaultObserver {
	if logger == nil {
		logger = slog.Default()
	}
	if queueSize <= 0 {
		queueSize = DefaultFaultQueueSize
	}
	o := &FaultObserver{
		repo:   repo,
		logger: logger,
		now:    time.Now,
		queue:  make(chan domain.ReadFault, queueSize),
		done:   make(chan struct{}),
	}
	go o.run()
	return o
}

func (o *FaultObserver) ObserveRead(ctx context.Context, operation string, hash domain.ContentHash, kind domain.LookupKind, err error) {
	if kind != domain.LookupFault {
		return
	}
	fault := domain.ReadFault{Hash: hash, Operation: operation, CreatedAt: o.now().UTC()}
	if err != nil {
		fault.Error = err.Error()
	}

	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		return
	}
	select {
	case o.queue <- fault:
	default:
		n := o.dropped.Add(1)
		o.logger.WarnContext(ctx, "registry read fault queue full; fault not persisted",
			slog.String("hash", hash.Hex()),
			slog.Uint64("dropped", n))
	}
}

// Dropped reports how many faults were discarded because the queue was full.
func (o *FaultObserver) Dropped() uint64 { return o.dropped.Load() }

func (o *FaultObserver) run() {
	defer close(o.done)
	for fault := range o.queue {
		ctx, cancel := context.WithTimeout(context.Background(), observeTimeout)
		if err := o.repo.Append(ctx, fault); err != nil {
			o.logger.Warn("persist registry read fault failed",
				slog.String("hash", fault.Hash.Hex()),
				slog.String("error", err.Error()))
		}
		cancel()
	}
}

// Close stops accepting faults and waits until the queued ones are written.
func (o *FaultObserver) Close() error {
	o.mu.Lock()
	if !o.closed {
		o.closed = true
		close(o.queue)
	}
	o.mu.Unlock()
	<-o.done
	return nil
}

var _ usecase.RegistryObserver = (*FaultObserver)(nil)
