package mvccbt

// UpdateChain is one version in a key's newest-first, singly-linked update
// chain. The first write of a new key physically inserts its slot with a
// zero placeholder value; that write and every later one splice a new
// UpdateChain node onto the head kept in Page.PgRowUpd, so every version
// written through the cursor layer lives in the chain.
type UpdateChain struct {
	TxnID     uint64
	CommitTS  uint64 // 0 while the writing transaction is still uncommitted
	Tombstone bool
	Value     []byte
	Next      *UpdateChain
}

// Txn is a transaction's read/write context: a read timestamp fixing its
// snapshot, and an id used both to recognize its own uncommitted writes and
// to stamp new ones.
type Txn struct {
	id       uint64
	readTS   uint64
	commitTS uint64
	active   bool
}

// TxnRead is the visibility oracle named in spec section 6: it walks an
// update chain and returns the version visible to txn, preferring the
// transaction's own uncommitted write over any committed version.
func TxnRead(txn *Txn, chain *UpdateChain) (value []byte, tombstone bool, found bool) {
	for u := chain; u != nil; u = u.Next {
		if u.TxnID == txn.id {
			return u.Value, u.Tombstone, true
		}
		if u.CommitTS != 0 && u.CommitTS <= txn.readTS {
			return u.Value, u.Tombstone, true
		}
	}
	return nil, false, false
}
