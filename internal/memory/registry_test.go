package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mock types ---

type MockMemoryReader struct {
	mock.Mock
}

func (m *MockMemoryReader) TotalMemory() int64 {
	args := m.Called()
	return args.Get(0).(int64)
}

func (m *MockMemoryReader) AvailableMemory() int64 {
	args := m.Called()
	return args.Get(0).(int64)
}

type MockReclaimer struct {
	mock.Mock
}

func (m *MockReclaimer) Reclaim(ctx context.Context, targetBytes int64, below Priority) int64 {
	args := m.Called(ctx, targetBytes, below)
	return args.Get(0).(int64)
}

// --- Tests ---

func TestRegistry_AccountingInvariant(t *testing.T) {
	reg := NewRegistry(new(MockMemoryReader))

	require.NoError(t, reg.Register("a", "Model A", 100, PriorityNormal, nil))
	require.NoError(t, reg.Register("b", "Model B", 200, PriorityHigh, nil))
	require.NoError(t, reg.Register("c", "Model C", 50, PriorityLow, nil))

	assert.Equal(t, int64(350), reg.TotalModelMemory())
	assert.Equal(t, 3, reg.Count())

	reg.Unregister("b")
	assert.Equal(t, int64(150), reg.TotalModelMemory())

	freed := reg.Unload(context.Background(), "a")
	assert.Equal(t, int64(100), freed)
	assert.Equal(t, int64(50), reg.TotalModelMemory())
	assert.Equal(t, 1, reg.Count())

	freed = reg.Unload(context.Background(), "c")
	assert.Equal(t, int64(50), freed)
	assert.Zero(t, reg.TotalModelMemory())
	assert.Zero(t, reg.Count())
}

func TestRegistry_RegisterReplaces(t *testing.T) {
	reg := NewRegistry(new(MockMemoryReader))

	require.NoError(t, reg.Register("a", "Model A", 100, PriorityNormal, nil))
	require.NoError(t, reg.Register("a", "Model A v2", 300, PriorityHigh, nil))

	assert.Equal(t, 1, reg.Count())
	assert.Equal(t, int64(300), reg.TotalModelMemory())

	size, ok := reg.MemoryUsage("a")
	assert.True(t, ok)
	assert.Equal(t, int64(300), size)
}

func TestRegistry_RegisterValidation(t *testing.T) {
	reg := NewRegistry(new(MockMemoryReader))

	assert.ErrorIs(t, reg.Register("", "nameless", 100, PriorityNormal, nil), ErrEmptyModelID)
	assert.ErrorIs(t, reg.Register("a", "Model A", 0, PriorityNormal, nil), ErrInvalidSize)
	assert.ErrorIs(t, reg.Register("a", "Model A", -5, PriorityNormal, nil), ErrInvalidSize)
	assert.Zero(t, reg.Count())
}

func TestRegistry_UnknownModelIsNoOp(t *testing.T) {
	reg := NewRegistry(new(MockMemoryReader))

	reg.Unregister("ghost")
	reg.Touch("ghost")
	assert.Zero(t, reg.Unload(context.Background(), "ghost"))
	assert.False(t, reg.IsLoaded("ghost"))

	_, ok := reg.MemoryUsage("ghost")
	assert.False(t, ok)
}

func TestRegistry_TouchIsMonotonic(t *testing.T) {
	reg := NewRegistry(new(MockMemoryReader))
	require.NoError(t, reg.Register("a", "Model A", 100, PriorityNormal, nil))

	last := reg.Loaded()[0].LastUsedAt
	for i := 0; i < 5; i++ {
		reg.Touch("a")
		current := reg.Loaded()[0].LastUsedAt
		assert.False(t, current.Before(last))
		last = current
	}
}

func TestRegistry_UnloadInvokesCleanupOnce(t *testing.T) {
	reg := NewRegistry(new(MockMemoryReader))

	var calls atomic.Int32
	require.NoError(t, reg.Register("a", "Model A", 100, PriorityNormal, func(ctx context.Context) {
		calls.Add(1)
	}))

	assert.Equal(t, int64(100), reg.Unload(context.Background(), "a"))
	assert.Zero(t, reg.Unload(context.Background(), "a"))

	require.Eventually(t, func() bool {
		return calls.Load() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestRegistry_UnregisterSkipsCleanup(t *testing.T) {
	reg := NewRegistry(new(MockMemoryReader))

	var calls atomic.Int32
	require.NoError(t, reg.Register("a", "Model A", 100, PriorityNormal, func(ctx context.Context) {
		calls.Add(1)
	}))

	reg.Unregister("a")

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, calls.Load())
}

func TestRegistry_NoDoubleFree(t *testing.T) {
	reg := NewRegistry(new(MockMemoryReader))
	require.NoError(t, reg.Register("a", "Model A", 100, PriorityNormal, nil))

	var (
		wg    sync.WaitGroup
		freed atomic.Int64
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			freed.Add(reg.Unload(context.Background(), "a"))
		}()
	}
	wg.Wait()

	// Exactly one unload claims the record; the rest observe absence.
	assert.Equal(t, int64(100), freed.Load())
	assert.Zero(t, reg.TotalModelMemory())
}

func TestRegistry_UnloadAllSumsInOrder(t *testing.T) {
	reg := NewRegistry(new(MockMemoryReader))
	require.NoError(t, reg.Register("a", "Model A", 100, PriorityNormal, nil))
	require.NoError(t, reg.Register("b", "Model B", 200, PriorityNormal, nil))

	freed := reg.UnloadAll(context.Background(), []string{"b", "missing", "a"})

	assert.Equal(t, int64(300), freed)
	assert.Zero(t, reg.Count())
}

func TestRegistry_RequestMemorySucceedsWithoutEviction(t *testing.T) {
	mem := new(MockMemoryReader)
	mem.On("AvailableMemory").Return(int64(500)).Once()

	reg := NewRegistry(mem)

	assert.True(t, reg.RequestMemory(context.Background(), 400, PriorityNormal))
	mem.AssertExpectations(t)
}

func TestRegistry_RequestMemoryFailsWithoutReclaimer(t *testing.T) {
	mem := new(MockMemoryReader)
	mem.On("AvailableMemory").Return(int64(100)).Once()

	reg := NewRegistry(mem)

	assert.False(t, reg.RequestMemory(context.Background(), 400, PriorityNormal))
	mem.AssertExpectations(t)
}

func TestRegistry_RequestMemoryReclaimsAtRequesterPriority(t *testing.T) {
	mem := new(MockMemoryReader)
	mem.On("AvailableMemory").Return(int64(100)).Once()
	mem.On("AvailableMemory").Return(int64(450)).Once()

	reclaimer := new(MockReclaimer)
	reclaimer.On("Reclaim", mock.Anything, int64(300), PriorityHigh).Return(int64(350)).Once()

	reg := NewRegistry(mem)
	reg.SetReclaimer(reclaimer)

	assert.True(t, reg.RequestMemory(context.Background(), 400, PriorityHigh))

	mem.AssertExpectations(t)
	reclaimer.AssertExpectations(t)
}

func TestRegistry_RequestMemoryFailsWhenReclaimFallsShort(t *testing.T) {
	mem := new(MockMemoryReader)
	mem.On("AvailableMemory").Return(int64(100))

	reclaimer := new(MockReclaimer)
	reclaimer.On("Reclaim", mock.Anything, int64(300), PriorityNormal).Return(int64(0)).Once()

	reg := NewRegistry(mem)
	reg.SetReclaimer(reclaimer)

	assert.False(t, reg.RequestMemory(context.Background(), 400, PriorityNormal))
	reclaimer.AssertExpectations(t)
}

func TestRegistry_LoadedReturnsSnapshotCopies(t *testing.T) {
	reg := NewRegistry(new(MockMemoryReader))
	require.NoError(t, reg.Register("a", "Model A", 100, PriorityNormal, nil))

	snapshot := reg.Loaded()
	require.Len(t, snapshot, 1)

	snapshot[0].SizeBytes = 9999

	size, ok := reg.MemoryUsage("a")
	require.True(t, ok)
	assert.Equal(t, int64(100), size)
}
