package sim

// eventKind identifies a simulated interrupt source.
type eventKind uint8

const (
	evTimer     eventKind = iota // one-shot cycle timer
	evDCTimer                    // free running 110Hz timer, DC mode only
	evZeroCross                  // armed comparator edge
	evMainsRise                  // comparator low time bookkeeping, always on in AC
	evADC                        // one-shot conversion complete
	evSample                     // auto-sampled voltage/current pair
	evI2C                        // bus interrupt
	evTick                       // thermal model integration
	evPowerFail
	evCount
)

// event is a pending interrupt. Events of a kind are invalidated by bumping
// the station's generation counter for that kind.
type event struct {
	at   uint64
	kind eventKind
	gen  uint32
	arg  uint8
	next *event
}

// queue is a time-ordered singly linked list. Events with equal times keep
// their insertion order.
type queue struct {
	head *event
	free *event
}

func (q *queue) alloc() *event {
	if e := q.free; e != nil {
		q.free = e.next
		*e = event{}
		return e
	}
	return &event{}
}

func (q *queue) release(e *event) {
	e.next = q.free
	q.free = e
}

func (q *queue) insert(e *event) {
	if q.head == nil || e.at < q.head.at {
		e.next = q.head
		q.head = e
		return
	}

	cur := q.head
	for cur.next != nil && cur.next.at <= e.at {
		cur = cur.next
	}
	e.next = cur.next
	cur.next = e
}

// pop removes and returns the earliest event, or nil.
func (q *queue) pop() *event {
	e := q.head
	if e != nil {
		q.head = e.next
		e.next = nil
	}
	return e
}

func (q *queue) peek() *event {
	return q.head
}

func (q *queue) len() int {
	n := 0
	for e := q.head; e != nil; e = e.next {
		n++
	}
	return n
}
