package rotation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/hybridkem/internal/crypto/domain"
	"github.com/allisson/hybridkem/internal/crypto/history"
	"github.com/allisson/hybridkem/internal/crypto/storage"
)

func newTestOrchestrator(t *testing.T, grace time.Duration, onPublish func(Result)) *Orchestrator {
	t.Helper()
	return New(Config{
		Preset:       domain.PresetNormal,
		ExpiryMonths: 1,
		GracePeriod:  grace,
		Store:        storage.NewMemoryStore(),
		History:      history.New(storage.NewMemoryHistoryStore()),
		OnPublish:    onPublish,
	})
}

func TestRotateInitialGeneratesVersionOne(t *testing.T) {
	o := newTestOrchestrator(t, time.Minute, nil)
	result, err := o.Rotate(context.Background(), nil, domain.ReasonInitial)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Current.Metadata.Version)
	assert.Nil(t, result.Previous)
}

func TestRotateRetiresPreviousKeyPair(t *testing.T) {
	o := newTestOrchestrator(t, time.Minute, nil)
	ctx := context.Background()

	first, err := o.Rotate(ctx, nil, domain.ReasonInitial)
	require.NoError(t, err)

	second, err := o.Rotate(ctx, first.Current, domain.ReasonManual)
	require.NoError(t, err)

	assert.Equal(t, 2, second.Current.Metadata.Version)
	assert.Equal(t, first.Current.PublicKey, second.Previous.PublicKey)
	assert.True(t, o.InGracePeriod(time.Now()))
}

func TestGracePeriodExpiryZeroizesPrevious(t *testing.T) {
	o := newTestOrchestrator(t, 20*time.Millisecond, nil)
	ctx := context.Background()

	first, err := o.Rotate(ctx, nil, domain.ReasonInitial)
	require.NoError(t, err)
	second, err := o.Rotate(ctx, first.Current, domain.ReasonManual)
	require.NoError(t, err)

	assert.True(t, o.InGracePeriod(time.Now()))
	_ = second

	time.Sleep(80 * time.Millisecond)
	assert.False(t, o.InGracePeriod(time.Now()))
	assert.Nil(t, o.State().PreviousKeyPair)
}

func TestConcurrentRotateCallsCoalesceToOneVersionIncrement(t *testing.T) {
	o := newTestOrchestrator(t, time.Minute, nil)
	ctx := context.Background()

	first, err := o.Rotate(ctx, nil, domain.ReasonInitial)
	require.NoError(t, err)

	const callers = 8
	var wg sync.WaitGroup
	versions := make([]int, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := o.Rotate(ctx, first.Current, domain.ReasonManual)
			require.NoError(t, err)
			versions[i] = result.Current.Metadata.Version
		}(i)
	}
	wg.Wait()

	for _, v := range versions {
		assert.Equal(t, versions[0], v)
	}
}

func TestOnPublishCalledWithResult(t *testing.T) {
	var published Result
	o := newTestOrchestrator(t, time.Minute, func(r Result) { published = r })

	result, err := o.Rotate(context.Background(), nil, domain.ReasonInitial)
	require.NoError(t, err)
	assert.Equal(t, result.Current.Metadata.Version, published.Current.Metadata.Version)
}

func TestStopZeroizesPreviousImmediately(t *testing.T) {
	o := newTestOrchestrator(t, time.Hour, nil)
	ctx := context.Background()

	first, err := o.Rotate(ctx, nil, domain.ReasonInitial)
	require.NoError(t, err)
	_, err = o.Rotate(ctx, first.Current, domain.ReasonManual)
	require.NoError(t, err)

	require.True(t, o.InGracePeriod(time.Now()))
	o.Stop()
	assert.Nil(t, o.State().PreviousKeyPair)
}

func TestNeedsRotation(t *testing.T) {
	assert.True(t, NeedsRotation(nil, time.Now()))

	kp := &domain.KeyPair{Metadata: domain.Metadata{
		CreatedAt: time.Now().Add(-time.Hour),
		ExpiresAt: time.Now().Add(time.Hour),
	}}
	assert.False(t, NeedsRotation(kp, time.Now()))

	expired := &domain.KeyPair{Metadata: domain.Metadata{
		CreatedAt: time.Now().Add(-2 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Hour),
	}}
	assert.True(t, NeedsRotation(expired, time.Now()))
}
