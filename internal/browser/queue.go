package browser

import "sync"

// serialQueue runs page calls one at a time in submission order so callers on
// the assistant loop never wait on the DevTools round trip.
type serialQueue struct {
	ops  chan func()
	done chan struct{}
	once sync.Once
}

func newSerialQueue(size int) *serialQueue {
	q := &serialQueue{
		ops:  make(chan func(), size),
		done: make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *serialQueue) run() {
	for {
		select {
		case op := <-q.ops:
			op()
		case <-q.done:
			return
		}
	}
}

// submit reports false when the queue is full or closed.
func (q *serialQueue) submit(op func()) bool {
	select {
	case <-q.done:
		return false
	default:
	}
	select {
	case q.ops <- op:
		return true
	default:
		return false
	}
}

func (q *serialQueue) close() {
	q.once.Do(func() { close(q.done) })
}
