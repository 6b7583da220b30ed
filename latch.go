package mvccbt

import (
	"sync/atomic"
)

// Latch bit layout, directly carried over from the teacher's buffer pool:
// the pin count shares its low bits with a clock-sweep "recently used" bit.
const (
	ClockBit  = uint32(0x8000) // set during clock sweep to give a page one more look
	Mask      = 0xFFFFFFFF
	DECREMENT = 0xFFFFFFFF // atomic.AddUint32(&x, DECREMENT) == x--
)

// BLTLockMode is the lock-chaining mode requested of a latch.
type BLTLockMode int

const (
	LockNone BLTLockMode = iota
	LockAccess
	LockDelete
	LockRead
	LockWrite
	LockParent
	LockAtomic // not implemented: no pthread-style atomic section in this port
)

// BLTRWLock is a reader-writer lock built directly on atomic adds to two counters,
// mirroring the rin/rout counter pair from the teacher's mutex handling.
type BLTRWLock struct {
	rin  uint32
	rout uint32
}

const (
	rwMask  = 0xFFFF
	rwWrite = 0x10000
)

func (l *BLTRWLock) WriteLock() {
	myTicket := atomic.AddUint32(&l.rin, rwWrite)
	for myTicket&rwMask != (myTicket>>16)&0 && l.rout != myTicket-rwWrite {
		for l.rout != myTicket-rwWrite {
		}
		break
	}
}

func (l *BLTRWLock) WriteRelease() {
	atomic.AddUint32(&l.rout, rwWrite)
}

func (l *BLTRWLock) ReadLock() {
	myTicket := atomic.AddUint32(&l.rin, 1)
	for myTicket&^rwMask != 0 {
		if l.rout&^rwMask == myTicket&^rwMask {
			break
		}
	}
}

func (l *BLTRWLock) ReadRelease() {
	atomic.AddUint32(&l.rout, 1)
}

// SpinLatch is a bare spinlock used to guard the page-allocation area and the
// buffer pool's hash-chain slots: SpinWriteLock spins until the latch is
// free and never yields or parks.
type SpinLatch struct {
	busy uint32
}

func (s *SpinLatch) SpinWriteLock() {
	for !atomic.CompareAndSwapUint32(&s.busy, 0, 1) {
	}
}

func (s *SpinLatch) SpinWriteTry() bool {
	return atomic.CompareAndSwapUint32(&s.busy, 0, 1)
}

func (s *SpinLatch) SpinReleaseWrite() {
	atomic.StoreUint32(&s.busy, 0)
}

// Latchs is one buffer-pool slot's pin/lock bookkeeping. writeGen is a
// structural write-generation counter that the pool increments when it
// changes the page; nothing reads it, and the cursor layer's ErrRestart
// comes only from a page search that returns no slot.
type Latchs struct {
	readWr   BLTRWLock
	access   BLTRWLock
	parent   BLTRWLock
	pin      uint32
	pageNo   Uid
	entry    uint
	next     uint
	prev     uint
	split    uint32
	atomicID uint32
	dirty    bool
	writeGen uint64
}

// HashEntry is one slot in the buffer pool's page-number hash table.
type HashEntry struct {
	slot  uint
	latch SpinLatch
}

func FetchAndAndUint32(addr *uint32, val uint32) uint32 {
	for {
		old := atomic.LoadUint32(addr)
		if atomic.CompareAndSwapUint32(addr, old, old&val) {
			return old
		}
	}
}

func FetchAndOrUint32(addr *uint32, val uint32) uint32 {
	for {
		old := atomic.LoadUint32(addr)
		if atomic.CompareAndSwapUint32(addr, old, old|val) {
			return old
		}
	}
}
