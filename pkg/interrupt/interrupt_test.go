package interrupt

import (
	"testing"
	"time"

	"github.com/Hubmakerlabs/aionostr/pkg/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestRunsHandlersInReverse(t *testing.T) {
	var order []int
	AddHandler(func() { order = append(order, 1) })
	AddHandler(func() { order = append(order, 2) })
	c, cancel := Context(context.Bg())
	defer cancel()
	assert.False(t, Requested())
	Request()
	select {
	case <-HandlersDone:
	case <-time.After(time.Second):
		t.Fatal("handlers did not run")
	}
	require.Error(t, c.Err())
	assert.Equal(t, []int{2, 1}, order)
	assert.True(t, Requested())
	// requesting again is harmless
	Request()
}
