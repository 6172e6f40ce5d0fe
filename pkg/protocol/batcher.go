package protocol

import "sync"

// Batcher collects outgoing messages for a single chart.batched flush.
// A message added under a key already present since the last flush
// replaces the earlier one in place, so repeated changes to one object are
// sent once with their latest content.
type Batcher struct {
	mu   sync.Mutex
	keys map[string]int // key -> index into msgs
	msgs []Message
}

// NewBatcher returns an empty batcher.
func NewBatcher() *Batcher {
	return &Batcher{keys: make(map[string]int)}
}

// Add queues msg under key. It reports false when msg replaced a message
// queued earlier under the same key. An empty key is never de-duplicated.
func (b *Batcher) Add(key string, msg Message) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if key != "" {
		if i, ok := b.keys[key]; ok {
			b.msgs[i] = msg
			return false
		}
		b.keys[key] = len(b.msgs)
	}
	b.msgs = append(b.msgs, msg)
	return true
}

// Len returns the number of queued messages.
func (b *Batcher) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.msgs)
}

// Flush returns the queued messages as one chart.batched message and
// empties the batcher. It reports false when nothing was queued.
func (b *Batcher) Flush() (Message, bool) {
	b.mu.Lock()
	msgs := b.msgs
	b.msgs = nil
	b.keys = make(map[string]int)
	b.mu.Unlock()

	if len(msgs) == 0 {
		return Message{}, false
	}
	nested := make([]any, len(msgs))
	for i, m := range msgs {
		nested[i] = m
	}
	return NewMessage(CmdBatched, map[string]any{"messages": nested}), true
}
