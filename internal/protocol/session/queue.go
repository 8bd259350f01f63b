package session

import "github.com/danmuck/xconn/internal/observability"

// packetQueue holds packets read while waiting on a specific reply, in
// arrival order.
type packetQueue struct {
	items []Packet
}

func (q *packetQueue) Push(p Packet) {
	q.items = append(q.items, p)
	observability.SetQueueDepth(len(q.items))
}

func (q *packetQueue) Pop() (Packet, bool) {
	if len(q.items) == 0 {
		return nil, false
	}
	p := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	observability.SetQueueDepth(len(q.items))
	return p, true
}

func (q *packetQueue) Len() int {
	return len(q.items)
}
