package bufpool

import (
	"sync"
	"sync/atomic"
)

// Pool hands out byte buffers of one fixed size and tracks how many are
// checked out, so callers can assert that streaming stays within a bounded
// number of buffers no matter how much data passes through.
type Pool struct {
	pool    sync.Pool
	bufSize int
	inUse   atomic.Int64
	peak    atomic.Int64
}

// New creates a pool whose buffers are exactly bufSize bytes.
func New(bufSize int) *Pool {
	if bufSize <= 0 {
		panic("bufSize must be positive")
	}
	p := &Pool{bufSize: bufSize}
	p.pool.New = func() interface{} {
		buf := make([]byte, bufSize)
		return &buf
	}
	return p
}

// Get returns a buffer of BufSize bytes. Return it with Put.
func (p *Pool) Get() []byte {
	bp := p.pool.Get().(*[]byte)
	buf := *bp
	if cap(buf) < p.bufSize {
		buf = make([]byte, p.bufSize)
	}
	n := p.inUse.Add(1)
	for {
		peak := p.peak.Load()
		if n <= peak || p.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	return buf[:p.bufSize]
}

// Put returns a buffer obtained from Get. Undersized buffers are dropped but
// still counted as returned.
func (p *Pool) Put(buf []byte) {
	p.inUse.Add(-1)
	if cap(buf) < p.bufSize {
		return
	}
	buf = buf[:cap(buf)]
	p.pool.Put(&buf)
}

// BufSize returns the size of buffers in this pool.
func (p *Pool) BufSize() int {
	return p.bufSize
}

// InUse returns the number of buffers currently checked out.
func (p *Pool) InUse() int64 {
	return p.inUse.Load()
}

// Peak returns the highest InUse value observed since the pool was created.
func (p *Pool) Peak() int64 {
	return p.peak.Load()
}
