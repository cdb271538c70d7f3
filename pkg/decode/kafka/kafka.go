/**
 * Copyright (c) 2022, Xerra Earth Observation Institute.
 * Copyright (c) 2025, Simeon Miteff.
 *
 * See LICENSE.TXT in the root directory of this source tree.
 */

// Package kafka decodes librdkafka calls: topic handle registration,
// produce (publish) calls, and consumer poll (fetch) results.
package kafka

import (
	"github.com/gma1k/podtrace/pkg/correlate"
	"github.com/gma1k/podtrace/pkg/kernel"
	"github.com/gma1k/podtrace/pkg/trace"
)

func calcLatency(start, now uint64) uint64 {
	if now > start {
		return now - start
	}
	return 0
}

// TopicHandle is the opaque rd_kafka_topic_t* returned by
// rd_kafka_topic_new, used as the key for TopicNames.
type TopicHandle uint64

// TopicNames mirrors kafka_topic_names: a handle → name mapping built
// once per topic and consulted by every later produce/fetch.
type TopicNames = correlate.Table[TopicHandle, string]

func NewTopicNames() *TopicNames {
	return correlate.NewTable[TopicHandle, string](256)
}

// TopicTracker's tmp table mirrors kafka_topic_tmp: the name captured
// on the rd_kafka_topic_new entry probe, pending the matching return.
type TopicTracker struct {
	names *TopicNames
	tmp   *correlate.Table[trace.ThreadKey, string]
}

func NewTopicTracker(names *TopicNames) *TopicTracker {
	return &TopicTracker{names: names, tmp: correlate.NewTable[trace.ThreadKey, string](1024)}
}

// NewEntry mirrors uprobe_rd_kafka_topic_new: stash the topic name
// string read from PARM2, pending the handle returned on exit.
func (t *TopicTracker) NewEntry(pid, tid uint32, topic string) {
	if !kernel.BTFAvailable() {
		return
	}
	t.tmp.Put(trace.NewThreadKey(pid, tid), topic)
}

// NewExit mirrors uretprobe_rd_kafka_topic_new: a NULL handle means
// topic creation failed, so the pending name is discarded unused.
func (t *TopicTracker) NewExit(pid, tid uint32, handle TopicHandle) {
	key := trace.NewThreadKey(pid, tid)
	name, ok := t.tmp.Take(key)
	if !ok {
		return
	}
	if handle == 0 {
		return
	}
	t.names.Put(handle, name)
}

type produceState struct {
	startNS uint64
	topic   string
	bytes   uint64
}

// ProduceTracker mirrors the rd_kafka_produce entry/exit pair.
type ProduceTracker struct {
	names *TopicNames
	reqs  *correlate.Table[trace.ThreadKey, produceState]
}

func NewProduceTracker(names *TopicNames) *ProduceTracker {
	return &ProduceTracker{names: names, reqs: correlate.NewTable[trace.ThreadKey, produceState](4096)}
}

// ProduceEntry mirrors uprobe_rd_kafka_produce: resolves the topic
// name from the handle and stashes the payload length, clamped the
// same way every producer clamps a byte count.
func (p *ProduceTracker) ProduceEntry(pid, tid uint32, nowNS uint64, rkt TopicHandle, payloadLen uint64) {
	if !kernel.BTFAvailable() {
		return
	}
	topic, _ := p.names.Get(rkt)
	key := trace.NewThreadKey(pid, tid)
	p.reqs.Put(key, produceState{startNS: nowNS, topic: topic, bytes: trace.ClampBytes(int64(payloadLen))})
}

// ProduceExit mirrors uretprobe_rd_kafka_produce: error is the raw
// rd_kafka_resp_err_t return code (0 == RD_KAFKA_RESP_ERR_NO_ERROR).
func (p *ProduceTracker) ProduceExit(ring *trace.Ring, sb *trace.Sideband, pid, tid uint32, nowNS uint64, ret int32, frames []uint64) bool {
	key := trace.NewThreadKey(pid, tid)
	st, ok := p.reqs.Take(key)
	if !ok {
		return false
	}

	e := trace.GetScratch()
	e.Timestamp = nowNS
	e.PID = pid
	e.Type = trace.EventKafkaProduce
	e.LatencyNS = calcLatency(st.startNS, nowNS)
	e.Error = ret
	e.Bytes = st.bytes
	e.Details = trace.ClampDetails(st.topic)
	e.Target = ""
	e.StackKey = sb.Capture(pid, tid, nowNS, frames)
	ring.Emit(e)
	return true
}

// ConsumerPollTracker mirrors the rd_kafka_consumer_poll entry/exit
// pair: only the return value carries the fetched message's fields,
// via the message struct layout documented alongside the original
// probe (err at offset 0, topic handle at offset 8, length at offset 32).
type ConsumerPollTracker struct {
	names *TopicNames
	start *correlate.Table[trace.ThreadKey, uint64]
}

func NewConsumerPollTracker(names *TopicNames) *ConsumerPollTracker {
	return &ConsumerPollTracker{names: names, start: correlate.NewTable[trace.ThreadKey, uint64](4096)}
}

// PollEntry mirrors uprobe_rd_kafka_consumer_poll.
func (c *ConsumerPollTracker) PollEntry(pid, tid uint32, nowNS uint64) {
	if !kernel.BTFAvailable() {
		return
	}
	c.start.Put(trace.NewThreadKey(pid, tid), nowNS)
}

// Message carries the rd_kafka_message_t fields the exit probe reads
// out of the polled message: err, the owning topic handle, and len.
// A timeout/no-message poll is represented by omitting the call
// entirely, mirroring the msg_ptr == NULL early return.
type Message struct {
	Err   int32
	Topic TopicHandle
	Len   uint64
}

// PollExit mirrors uretprobe_rd_kafka_consumer_poll.
func (c *ConsumerPollTracker) PollExit(ring *trace.Ring, sb *trace.Sideband, pid, tid uint32, nowNS uint64, msg Message, frames []uint64) bool {
	key := trace.NewThreadKey(pid, tid)
	startNS, ok := c.start.Take(key)
	if !ok {
		return false
	}

	e := trace.GetScratch()
	e.Timestamp = nowNS
	e.PID = pid
	e.Type = trace.EventKafkaFetch
	e.LatencyNS = calcLatency(startNS, nowNS)
	e.Error = msg.Err
	if msg.Len < trace.MaxBytesThreshold {
		e.Bytes = msg.Len
	} else {
		e.Bytes = 0
	}
	e.Target = ""

	topic := ""
	if msg.Topic != 0 {
		topic, _ = c.names.Get(msg.Topic)
	}
	e.Details = trace.ClampDetails(topic)

	e.StackKey = sb.Capture(pid, tid, nowNS, frames)
	ring.Emit(e)
	return true
}
