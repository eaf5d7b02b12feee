package source

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemMemoryReading(t *testing.T) {
	ctx := context.Background()
	src := NewSystem()

	total, err := src.TotalMemoryKB(ctx)
	require.NoError(t, err)
	assert.Greater(t, total, int64(0), "expected non-zero total memory on a running system")

	avail, err := src.AvailableMemoryKB(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, avail, int64(0))
	assert.LessOrEqual(t, avail, total)
}

func TestSystemMemoryKBSingleReading(t *testing.T) {
	total, avail, err := NewSystem().MemoryKB(context.Background())
	require.NoError(t, err)
	assert.Greater(t, total, int64(0))
	assert.LessOrEqual(t, avail, total)
}

func TestFakeMemoryKB(t *testing.T) {
	f := NewFake(100, 40)
	total, avail, err := f.MemoryKB(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(100), total)
	assert.Equal(t, int64(40), avail)

	f.SetMemoryError(errors.New("unreadable"))
	total, avail, err = f.MemoryKB(context.Background())
	assert.Error(t, err)
	assert.Zero(t, total)
	assert.Zero(t, avail)
	assert.Equal(t, 2, f.MemoryReads())
}

func TestSystemSeesOwnProcess(t *testing.T) {
	ctx := context.Background()
	src := NewSystem()
	self := int32(os.Getpid())

	pids, err := src.ProcessIDs(ctx)
	require.NoError(t, err)
	assert.Contains(t, pids, self)

	rss, err := src.ResidentMemoryKB(ctx, self)
	require.NoError(t, err)
	assert.Greater(t, rss, int64(0))

	name, err := src.ProcessName(ctx, self)
	require.NoError(t, err)
	assert.NotEmpty(t, name)
}

func TestSystemMissingPID(t *testing.T) {
	_, err := NewSystem().ResidentMemoryKB(context.Background(), 1<<30)
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
}

func TestFakeVanish(t *testing.T) {
	ctx := context.Background()
	f := NewFake(100, 50, FakeProcess{PID: 1, ResidentKB: 10, Name: "a"}, FakeProcess{PID: 2, ResidentKB: 20, Name: "b"})
	f.Vanish(2)

	pids, err := f.ProcessIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 2}, pids)

	_, err = f.ResidentMemoryKB(ctx, 2)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, f.ScanCalls())
}
