package mykafka

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishEvent_MarshalError(t *testing.T) {
	t.Parallel()

	p := NewProducer([]string{"127.0.0.1:1"})
	t.Cleanup(func() { _ = p.Close() })

	err := p.PublishEvent(context.Background(), "order_events", "1", map[string]any{"bad": make(chan int)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "json.Marshal failed")
}

func TestNop(t *testing.T) {
	t.Parallel()

	var n Nop
	assert.NoError(t, n.PublishEvent(context.Background(), "t", "k", struct{}{}))
	assert.NoError(t, n.Close())
}
