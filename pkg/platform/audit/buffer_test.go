package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRingBuffer_DropsOldestWhenFull(t *testing.T) {
	b := newRingBuffer(2)

	assert.False(t, b.enqueue(Event{Type: "a"}))
	assert.False(t, b.enqueue(Event{Type: "b"}))
	assert.True(t, b.enqueue(Event{Type: "c"}))

	batch := b.dequeueBatch(10)
	assert.Len(t, batch, 2)
	assert.Equal(t, EventType("b"), batch[0].Type)
	assert.Equal(t, EventType("c"), batch[1].Type)
	assert.Equal(t, int64(1), b.droppedCount())
	assert.Zero(t, b.len())
}
