package mqtt

import (
	"log"
	"sync"
)

// DefaultOutboxSize is the number of messages kept while disconnected.
const DefaultOutboxSize = 64

type pendingMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox holds outgoing messages while the broker is unreachable. When full
// the oldest message is overwritten. Retained messages replace an earlier
// pending message on the same topic since only the last one matters.
type outbox struct {
	mu       sync.Mutex
	buf      []pendingMsg
	head     int // next write position
	count    int
	dropped  int
	overflow bool
}

func newOutbox(capacity int) *outbox {
	if capacity <= 0 {
		capacity = DefaultOutboxSize
	}
	return &outbox{buf: make([]pendingMsg, capacity)}
}

func (o *outbox) push(msg pendingMsg) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if msg.retained {
		for i := 0; i < o.count; i++ {
			idx := o.index(i)
			if o.buf[idx].retained && o.buf[idx].topic == msg.topic {
				o.buf[idx] = msg
				return
			}
		}
	}

	if o.count == len(o.buf) {
		if !o.overflow {
			log.Printf("mqtt: outbox full (%d messages), dropping oldest", len(o.buf))
			o.overflow = true
		}
		o.dropped++
		o.buf[o.head] = msg
		o.head = (o.head + 1) % len(o.buf)
		return
	}
	o.buf[o.head] = msg
	o.head = (o.head + 1) % len(o.buf)
	o.count++
}

// index maps the i-th oldest message to its slot.
func (o *outbox) index(i int) int {
	start := (o.head - o.count + len(o.buf)) % len(o.buf)
	return (start + i) % len(o.buf)
}

// drain returns pending messages oldest first and empties the outbox.
func (o *outbox) drain() []pendingMsg {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.count == 0 {
		return nil
	}
	out := make([]pendingMsg, o.count)
	for i := range out {
		out[i] = o.buf[o.index(i)]
	}
	o.count = 0
	o.head = 0
	o.overflow = false
	return out
}

func (o *outbox) len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.count
}
