package contxt

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type key struct{}

func TestDetached_SurvivesParentCancel(t *testing.T) {
	parent, cancel := context.WithCancel(context.WithValue(context.Background(), key{}, "v"))
	ctx, done := Detached(parent, time.Minute)
	defer done()

	cancel()
	assert.NoError(t, ctx.Err())
	assert.Equal(t, "v", ctx.Value(key{}))
	_, hasDeadline := ctx.Deadline()
	assert.True(t, hasDeadline)
}

func TestDetached_NoTimeout(t *testing.T) {
	ctx, done := Detached(context.Background(), 0)
	_, hasDeadline := ctx.Deadline()
	assert.False(t, hasDeadline)
	done()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
