package mvccbt

import (
	"fmt"
	"sync/atomic"

	"github.com/ryogrid/mvccbt/blockmgr"
	"github.com/ryogrid/mvccbt/interfaces"
)

// Variables naming convention carried from the pack's kv.Cursor reference
// material: exported fields are nouns describing state (Cnt, Shape), methods
// are verbs describing action (Search, Insert); unexported helpers keep the
// receiver's own short name (tree, cur, sess).

// Config mirrors the teacher's NewBufMgr(bits, nodeMax, pbm, lastPageZeroId)
// constructor shape rather than introducing a config-file format the
// teacher never uses.
type Config struct {
	Name           string
	PageBits       uint8
	PoolPages      uint
	Shape          TreeShape
	MaxObjectSize  int
	Collator       Collator
	ParentBufMgr   interfaces.ParentBufMgr
	LastPageZeroId *int32
	BlockManager   blockmgr.Manager
}

// Tree is a single btree of one of the three record shapes, opened over a
// BufMgr-managed page pool.
type Tree struct {
	mgr       *BufMgr
	impl      *BLTree
	shape     TreeShape
	collator  Collator
	blockMgr  blockmgr.Manager
	lastRecno uint64 // highest record number assigned or written; APPEND takes lastRecno+1. COL_VAR/COL_FIX only
	txnSeq    uint64 // monotonic source for both transaction ids and commit timestamps
	truncates []truncateRange
}

type truncateRange struct {
	start, stop []byte
}

// Open constructs a Tree over a fresh or reopened page pool, exactly the way
// the teacher's NewBufMgr is called, generalized with a tree shape and an
// optional collator/size-check collaborator.
func Open(cfg Config) (*Tree, error) {
	if cfg.ParentBufMgr == nil {
		return nil, fmt.Errorf("mvccbt: Open: ParentBufMgr is required")
	}
	if cfg.PoolPages == 0 {
		cfg.PoolPages = HASH_TABLE_ENTRY_CHAIN_LEN * 4
	}
	if cfg.PageBits == 0 {
		cfg.PageBits = BtMinBits
	}
	collator := cfg.Collator
	if collator == nil {
		collator = DefaultCollator
	}
	bm := cfg.BlockManager
	if bm == nil {
		bm = blockmgr.NewMemManager(1<<20, cfg.MaxObjectSize)
	}

	mgr := NewBufMgr(cfg.PageBits, cfg.PoolPages, cfg.ParentBufMgr, cfg.LastPageZeroId)
	return &Tree{
		mgr:      mgr,
		impl:     NewBLTree(mgr),
		shape:    cfg.Shape,
		collator: collator,
		blockMgr: bm,
	}, nil
}

func (t *Tree) Close() {
	t.mgr.Close()
}

func (t *Tree) nextTxnSeq() uint64 {
	return atomic.AddUint64(&t.txnSeq, 1)
}

func (t *Tree) nextRecno() uint64 {
	return atomic.AddUint64(&t.lastRecno, 1)
}

// bumpRecno advances lastRecno to recno if it isn't already past it, the
// advance-only counterpart to nextRecno a direct (non-APPEND) COL_FIX/
// COL_VAR insert needs: inserting explicitly at a high record number must
// still widen the dense range isImplicitFixRecord checks against.
func (t *Tree) bumpRecno(recno uint64) {
	for {
		cur := atomic.LoadUint64(&t.lastRecno)
		if recno <= cur {
			return
		}
		if atomic.CompareAndSwapUint64(&t.lastRecno, cur, recno) {
			return
		}
	}
}

// CursorOps accumulates the per-operation counters spec section 12
// (SUPPLEMENTED FEATURES) carries over from WT_STAT_FAST_* / the teacher's
// tree.reads/tree.writes, surfaced per Session.
type CursorOps struct {
	Search          uint64
	SearchNear      uint64
	Insert          uint64
	InsertBytes     uint64
	Remove          uint64
	RemoveBytes     uint64
	Update          uint64
	UpdateBytes     uint64
	Reset           uint64
	PageReads       uint64
	PageWrites      uint64
}

// Session is one caller's transaction context over a Tree: a read snapshot,
// its own uncommitted writes, and the cursor stat counters it has
// accumulated so far.
type Session struct {
	tree    *Tree
	txn     Txn
	stats   CursorOps
	written []*UpdateChain
}

// NewSession begins a fresh transaction snapshot over tree.
func NewSession(tree *Tree) *Session {
	seq := tree.nextTxnSeq()
	return &Session{
		tree: tree,
		txn: Txn{
			id:     seq,
			readTS: seq,
			active: true,
		},
	}
}

// Commit publishes the session's writes at a new commit timestamp, making
// them visible to any session whose readTS is taken afterward.
func (s *Session) Commit() {
	ts := s.tree.nextTxnSeq()
	for _, u := range s.written {
		u.CommitTS = ts
	}
	s.txn.commitTS = ts
	s.txn.active = false
}

// recordWrite tracks an update-chain node this session just spliced in, so
// Commit can stamp it with a commit timestamp.
func (s *Session) recordWrite(u *UpdateChain) {
	s.written = append(s.written, u)
}

func (s *Session) Rollback() {
	s.txn.active = false
}

// Stats returns a copy of the session's accumulated cursor-operation counts.
func (s *Session) Stats() CursorOps {
	return s.stats
}

func (s *Session) OpenCursor() *Cursor {
	return newCursor(s)
}
