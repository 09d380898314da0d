// Package rotation implements the at-most-one-in-flight key rotation state
// machine: generate, back up, persist, log, publish, and schedule the
// retired key pair's grace-period cleanup.
package rotation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/allisson/hybridkem/internal/crypto/domain"
	"github.com/allisson/hybridkem/internal/crypto/history"
	"github.com/allisson/hybridkem/internal/crypto/lifecycle"
	"github.com/allisson/hybridkem/internal/crypto/storage"
)

// Result is what a completed rotation publishes.
type Result struct {
	Current  *domain.KeyPair
	Previous *domain.KeyPair
}

// Orchestrator runs the rotate() state machine from idle to grace period
// and back. Concurrent Rotate calls coalesce onto a single in-flight
// attempt via an x/sync/singleflight group, keyed by a constant since there
// is only ever one rotation target per Orchestrator.
type Orchestrator struct {
	preset       domain.Preset
	expiryMonths int
	gracePeriod  time.Duration
	store        storage.Store
	history      *history.History
	logger       *slog.Logger

	group singleflight.Group

	mu       sync.Mutex
	state    domain.RotationState
	cleanup  *time.Timer
	onPublish func(Result)
}

// Config configures an Orchestrator.
type Config struct {
	Preset       domain.Preset
	ExpiryMonths int
	GracePeriod  time.Duration
	Store        storage.Store
	History      *history.History
	Logger       *slog.Logger
	// OnPublish is invoked synchronously, after the orchestrator's lock is
	// released, once a rotation commits — the manager uses it to swap its
	// cached current key pair without a separate round trip.
	OnPublish func(Result)
}

// New creates an Orchestrator from cfg.
func New(cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		preset:       cfg.Preset,
		expiryMonths: cfg.ExpiryMonths,
		gracePeriod:  cfg.GracePeriod,
		store:        cfg.Store,
		history:      cfg.History,
		logger:       logger,
		onPublish:    cfg.OnPublish,
	}
}

const rotateKey = "rotate"

// Rotate runs the ten-step rotation sequence. current is the key pair being
// retired (nil on first rotation, i.e. initial generation); reason
// classifies why. Concurrent callers share the same outcome.
func (o *Orchestrator) Rotate(ctx context.Context, current *domain.KeyPair, reason domain.RotationReason) (Result, error) {
	v, err, _ := o.group.Do(rotateKey, func() (any, error) {
		return o.rotate(ctx, current, reason)
	})
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

func (o *Orchestrator) rotate(ctx context.Context, current *domain.KeyPair, reason domain.RotationReason) (Result, error) {
	const op = "rotation.Rotate"

	o.mu.Lock()
	o.state.InFlight = true
	startedAt := time.Now()
	o.state.RotationStartedAt = startedAt
	o.mu.Unlock()

	result, err := o.run(ctx, current, reason, startedAt)

	o.mu.Lock()
	o.state.InFlight = false
	if err != nil {
		o.mu.Unlock()
		return Result{}, domain.NewError(domain.KindKeyManager, op, o.preset, err)
	}
	o.state.PreviousKeyPair = result.Previous
	o.mu.Unlock()

	if result.Previous != nil && o.gracePeriod > 0 {
		o.scheduleCleanup(result.Previous, o.gracePeriod)
	}

	if o.onPublish != nil {
		o.onPublish(result)
	}
	return result, nil
}

func (o *Orchestrator) run(ctx context.Context, current *domain.KeyPair, reason domain.RotationReason, startedAt time.Time) (Result, error) {
	version, err := o.history.NextVersion(ctx)
	if err != nil {
		return Result{}, err
	}

	next, err := lifecycle.Generate(o.preset, version, o.expiryMonths, startedAt)
	if err != nil {
		return Result{}, err
	}

	if current != nil {
		if err := o.store.BackupExpired(ctx, current); err != nil {
			return Result{}, err
		}
	}

	if err := o.store.Save(ctx, next); err != nil {
		return Result{}, err
	}

	if err := o.history.Append(ctx, next, reason, startedAt); err != nil {
		return Result{}, err
	}

	return Result{Current: next, Previous: current}, nil
}

// scheduleCleanup zeroizes previous and clears rotation state after delay,
// cancelling any timer a prior rotation left pending.
func (o *Orchestrator) scheduleCleanup(previous *domain.KeyPair, delay time.Duration) {
	o.mu.Lock()
	if o.cleanup != nil {
		o.cleanup.Stop()
	}
	o.cleanup = time.AfterFunc(delay, func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		previous.Zeroize()
		o.state.PreviousKeyPair = nil
		o.cleanup = nil
	})
	o.mu.Unlock()
}

// State returns a snapshot of the current rotation state.
func (o *Orchestrator) State() domain.RotationState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// InGracePeriod reports whether a previous key pair is still valid for
// decryption as of now.
func (o *Orchestrator) InGracePeriod(now time.Time) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.PreviousKeyPair != nil && now.Sub(o.state.RotationStartedAt) < o.gracePeriod
}

// Stop cancels any pending grace-period cleanup and zeroizes the previous
// key pair immediately, for use by a controlled teardown (resetInstance).
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cleanup != nil {
		o.cleanup.Stop()
		o.cleanup = nil
	}
	if o.state.PreviousKeyPair != nil {
		o.state.PreviousKeyPair.Zeroize()
		o.state.PreviousKeyPair = nil
	}
}

// NeedsRotation reports whether current must be rotated before use.
func NeedsRotation(current *domain.KeyPair, now time.Time) bool {
	return current == nil || lifecycle.IsExpired(current, now)
}
