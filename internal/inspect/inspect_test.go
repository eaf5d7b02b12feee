package inspect

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Dicklesworthstone/memwatch/internal/source"
)

func fake() *source.Fake {
	return source.NewFake(1, 1,
		source.FakeProcess{PID: 10, ResidentKB: 2048, Name: "a"},
		source.FakeProcess{PID: 20, ResidentKB: 512, Name: "b"},
		source.FakeProcess{PID: 30, ResidentKB: 2048, Name: "c"},
	)
}

func TestProcess(t *testing.T) {
	ctx := context.Background()
	src := fake()

	assert.Equal(t, "PID 10 is using 2.00 MB.", Process(ctx, src, 10))
	assert.Equal(t, "Could not find process with PID 99.", Process(ctx, src, 99))

	src.Vanish(10)
	assert.Equal(t, "Could not find process with PID 10.", Process(ctx, src, 10), "fresh query, no cache")
}

func TestCompare(t *testing.T) {
	ctx := context.Background()
	src := fake()

	assert.Equal(t, "PID 10: 2.00 MB | PID 20: 512 KB. PID 10 uses 1.50 MB more.", Compare(ctx, src, 10, 20))
	assert.Equal(t, "PID 20: 512 KB | PID 10: 2.00 MB. PID 10 uses 1.50 MB more.", Compare(ctx, src, 20, 10))
	assert.Equal(t, "PID 10: 2.00 MB | PID 30: 2.00 MB. They use the same amount.", Compare(ctx, src, 10, 30))
	assert.Equal(t, "Could not find one or both PIDs.", Compare(ctx, src, 10, 99))
	assert.Equal(t, "Could not find one or both PIDs.", Compare(ctx, src, 99, 10))
}
