package kafka

import (
	"testing"

	"github.com/gma1k/podtrace/pkg/trace"
	"github.com/stretchr/testify/assert"
)

func TestTopicTrackerRegistersNameOnNonZeroHandle(t *testing.T) {
	names := NewTopicNames()
	topics := NewTopicTracker(names)

	topics.NewEntry(1, 1, "orders")
	topics.NewExit(1, 1, TopicHandle(0xdead))

	name, ok := names.Get(TopicHandle(0xdead))
	assert.True(t, ok)
	assert.Equal(t, "orders", name)
}

func TestTopicTrackerDiscardsOnNullHandle(t *testing.T) {
	names := NewTopicNames()
	topics := NewTopicTracker(names)

	topics.NewEntry(2, 2, "orders")
	topics.NewExit(2, 2, TopicHandle(0))

	assert.Equal(t, 0, names.Len())
}

func TestProduceEmitsWithResolvedTopicAndBytes(t *testing.T) {
	names := NewTopicNames()
	names.Put(TopicHandle(1), "orders")
	produce := NewProduceTracker(names)
	ring := trace.NewRing(8)
	sb := trace.NewSideband(64)

	produce.ProduceEntry(3, 3, 1000, TopicHandle(1), 128)
	ok := produce.ProduceExit(ring, sb, 3, 3, 1300, 0, nil)
	assert.True(t, ok)

	ev := <-ring.Events()
	assert.Equal(t, trace.EventKafkaProduce, ev.Type)
	assert.Equal(t, "orders", ev.Details)
	assert.Equal(t, uint64(128), ev.Bytes)
	assert.Equal(t, uint64(300), ev.LatencyNS)
	assert.Equal(t, int32(0), ev.Error)
}

func TestProduceUnknownHandleHasEmptyTopic(t *testing.T) {
	names := NewTopicNames()
	produce := NewProduceTracker(names)
	ring := trace.NewRing(8)
	sb := trace.NewSideband(64)

	produce.ProduceEntry(4, 4, 1000, TopicHandle(99), 10)
	produce.ProduceExit(ring, sb, 4, 4, 1100, 0, nil)

	ev := <-ring.Events()
	assert.Equal(t, "", ev.Details)
}

func TestConsumerPollExitResolvesTopicFromMessage(t *testing.T) {
	names := NewTopicNames()
	names.Put(TopicHandle(7), "payments")
	poll := NewConsumerPollTracker(names)
	ring := trace.NewRing(8)
	sb := trace.NewSideband(64)

	poll.PollEntry(5, 5, 1000)
	ok := poll.PollExit(ring, sb, 5, 5, 1050, Message{Err: 0, Topic: TopicHandle(7), Len: 64}, nil)
	assert.True(t, ok)

	ev := <-ring.Events()
	assert.Equal(t, trace.EventKafkaFetch, ev.Type)
	assert.Equal(t, "payments", ev.Details)
	assert.Equal(t, uint64(64), ev.Bytes)
}

func TestConsumerPollExitWithoutEntryIsDropped(t *testing.T) {
	names := NewTopicNames()
	poll := NewConsumerPollTracker(names)
	ring := trace.NewRing(8)
	sb := trace.NewSideband(64)

	ok := poll.PollExit(ring, sb, 6, 6, 1000, Message{}, nil)
	assert.False(t, ok)
}

func TestConsumerPollExitOversizeLenIsZeroed(t *testing.T) {
	names := NewTopicNames()
	poll := NewConsumerPollTracker(names)
	ring := trace.NewRing(8)
	sb := trace.NewSideband(64)

	poll.PollEntry(7, 7, 1000)
	poll.PollExit(ring, sb, 7, 7, 1050, Message{Len: trace.MaxBytesThreshold + 1}, nil)

	ev := <-ring.Events()
	assert.Equal(t, uint64(0), ev.Bytes)
}
