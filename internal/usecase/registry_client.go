package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mahmed0x1/ARTEMIS/internal/domain"
)

const DefaultCallTimeout = 10 * time.Second

type RegistryClientOptions struct {
	// CallTimeout bounds every registry read. Zero uses DefaultCallTimeout,
	// a negative value disables the bound.
	CallTimeout time.Duration
	Observers   []RegistryObserver
	Logger      *slog.Logger
}

// RegistryClient interprets raw registry reads. Reads are total: reverts
// become NotFound and every other failure becomes a Fault that is logged at
// warning level and reported to observers. A read abandoned because the
// caller's context ended is a Fault carrying the context error and is not
// reported.
type RegistryClient struct {
	registry    domain.Registry
	callTimeout time.Duration
	observers   []RegistryObserver
	logger      *slog.Logger
}

// NewRegistryClient fetches the registry schema and fails with
// domain.ErrSchemaMismatch when it diverges from domain.RegistrySchema.
func NewRegistryClient(ctx context.Context, registry domain.Registry, opts RegistryClientOptions) (*RegistryClient, error) {
	if registry == nil {
		return nil, errors.New("registry is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	c := &RegistryClient{
		registry:    registry,
		callTimeout: opts.CallTimeout,
		observers:   opts.Observers,
		logger:      opts.Logger,
	}
	if c.callTimeout == 0 {
		c.callTimeout = DefaultCallTimeout
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	schemaCtx, cancel := c.callContext(ctx)
	defer cancel()
	remote, err := registry.Schema(schemaCtx)
	if err != nil {
		return nil, fmt.Errorf("fetch registry schema: %w", err)
	}
	if err := domain.ValidateSchema(remote); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *RegistryClient) FetchRecord(ctx context.Context, hash domain.ContentHash) domain.Lookup {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	record, err := c.registry.Licenses(callCtx, hash)
	if cause := callerDone(ctx, err); cause != nil {
		return domain.Fault(cause)
	}
	var lookup domain.Lookup
	switch {
	case err == nil && record.Registered():
		lookup = domain.Found(record)
	case err == nil:
		lookup = domain.NotFound(domain.NotFoundUnregistered)
	case errors.Is(err, domain.ErrExecutionReverted):
		lookup = domain.NotFound(domain.NotFoundReverted)
	default:
		lookup = domain.Fault(asTransportFault(err))
	}
	c.report(ctx, domain.FnLicenses, hash, lookup.Kind, c.lookupErr(lookup, err))
	return lookup
}

// FetchRevokability never fails the caller: any error yields false. fault is
// non-nil only when the read failed below the contract layer or the caller's
// context ended.
func (c *RegistryClient) FetchRevokability(ctx context.Context, hash domain.ContentHash) (revokable bool, fault error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	ok, err := c.registry.IsRevokable(callCtx, hash)
	if cause := callerDone(ctx, err); cause != nil {
		return false, cause
	}
	switch {
	case err == nil:
		c.report(ctx, domain.FnIsRevokable, hash, domain.LookupFound, nil)
		return ok, nil
	case errors.Is(err, domain.ErrExecutionReverted):
		c.report(ctx, domain.FnIsRevokable, hash, domain.LookupNotFound, err)
		return false, nil
	default:
		fault = asTransportFault(err)
		c.report(ctx, domain.FnIsRevokable, hash, domain.LookupFault, fault)
		return false, fault
	}
}

func (c *RegistryClient) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout > 0 {
		return context.WithTimeout(ctx, c.callTimeout)
	}
	return context.WithCancel(ctx)
}

// callerDone returns the caller's context error when a failed read is
// explained by it rather than by the registry.
func callerDone(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	return ctx.Err()
}

func (c *RegistryClient) lookupErr(lookup domain.Lookup, raw error) error {
	if lookup.Kind == domain.LookupFault {
		return lookup.Err
	}
	return raw
}

func (c *RegistryClient) report(ctx context.Context, operation string, hash domain.ContentHash, kind domain.LookupKind, err error) {
	switch kind {
	case domain.LookupFault:
		c.logger.WarnContext(ctx, "registry read degraded to absent",
			slog.String("operation", operation),
			slog.String("hash", hash.Hex()),
			slog.String("error", err.Error()))
	case domain.LookupNotFound:
		if err != nil {
			c.logger.DebugContext(ctx, "registry read reverted",
				slog.String("operation", operation),
				slog.String("hash", hash.Hex()))
		}
	}
	for _, observer := range c.observers {
		if observer != nil {
			observer.ObserveRead(ctx, operation, hash, kind, err)
		}
	}
}

func asTransportFault(err error) error {
	if errors.Is(err, domain.ErrTransportFault) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrTransportFault, err)
}
