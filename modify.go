package mvccbt

import "sync/atomic"

// modifyOp distinguishes the three write shapes a cursor drives through
// rowModify/colModify: spec section 6's row_modify/col_modify collaborator.
type modifyOp int

const (
	opInsert modifyOp = iota
	opUpdate
	opRemove
)

// rowModify splices a new UpdateChain version onto the slot for key,
// physically creating the slot first via the teacher's InsertKey if it does
// not yet exist on the page. It returns ErrRestart when the page search hit
// a concurrent structural change (a blink-tree right-pointer race that the
// teacher's own retry-on-BLTErrStruct convention expects the caller to
// absorb), ErrNotFound on remove/update of a key with no visible version
// unless overwrite is set (remove then succeeds without writing, update
// writes the new version), and ErrDuplicateKey on insert without overwrite
// of a key with a visible, non-tombstone version already present.
func (t *Tree) rowModify(sess *Session, key, value []byte, op modifyOp, overwrite bool) error {
	var set PageSet
	var reads, writes uint

	slot, compare := t.rowSearch(&set, key, LockWrite, &reads, &writes)
	atomic.AddUint64(&sess.stats.PageReads, uint64(reads))
	if slot == 0 {
		return ErrRestart
	}

	exists := compare == 0
	if exists {
		chain := set.page.Upd(slot)
		_, tombstone, found := TxnRead(&sess.txn, chain)
		if found && !tombstone {
			if op == opInsert && !overwrite {
				t.mgr.PageUnlock(LockWrite, set.latch)
				t.mgr.UnpinLatch(set.latch)
				return ErrDuplicateKey
			}
		} else if op == opRemove || (op == opUpdate && !overwrite) {
			t.mgr.PageUnlock(LockWrite, set.latch)
			t.mgr.UnpinLatch(set.latch)
			if op == opRemove && overwrite {
				return nil
			}
			return ErrNotFound
		}

		u := &UpdateChain{TxnID: sess.txn.id, Next: chain}
		if op == opRemove {
			u.Tombstone = true
		} else {
			u.Value = append([]byte(nil), value...)
		}
		set.page.SetUpd(slot, u)
		set.latch.dirty = true
		sess.recordWrite(u)
		t.mgr.PageUnlock(LockWrite, set.latch)
		t.mgr.UnpinLatch(set.latch)
		return nil
	}

	// no physical slot for key yet
	t.mgr.PageUnlock(LockWrite, set.latch)
	t.mgr.UnpinLatch(set.latch)

	switch op {
	case opRemove:
		if overwrite {
			return nil
		}
		return ErrNotFound
	case opUpdate:
		if !overwrite {
			return ErrNotFound
		}
		// update with OVERWRITE tolerates a missing key and creates it,
		// the same create-on-update the column stores rely on for an
		// implicit COL_FIX record (spec section 4.8).
	}

	var placeholder [BtId]byte
	if err := t.impl.InsertKey(key, 0, placeholder, true); err != BLTErrOk {
		return err
	}

	// re-locate the slot we just created to splice the real value in
	var set2 PageSet
	slot2, compare2 := t.rowSearch(&set2, key, LockWrite, &reads, &writes)
	if slot2 == 0 || compare2 != 0 {
		return ErrRestart
	}
	u := &UpdateChain{TxnID: sess.txn.id, Value: append([]byte(nil), value...)}
	set2.page.SetUpd(slot2, u)
	set2.latch.dirty = true
	sess.recordWrite(u)
	t.mgr.PageUnlock(LockWrite, set2.latch)
	t.mgr.UnpinLatch(set2.latch)
	return nil
}

// colModify is col_modify from spec section 6, identical to rowModify over
// an encoded record number, except that a COL_FIX remove is written as an
// update to the value zero rather than a tombstone, so the record reads
// back as zero afterwards, per the implicit-record policy in spec 4.3.
func (t *Tree) colModify(sess *Session, recno uint64, value []byte, op modifyOp, overwrite bool) error {
	key := encodeRecno(recno)
	if t.shape == ShapeColFix && op == opRemove {
		return t.rowModify(sess, key, []byte{0}, opUpdate, overwrite)
	}
	return t.rowModify(sess, key, value, op, overwrite)
}

// appendRecno assigns the next record number for a cursor opened with the
// APPEND flag, the serialized column-append primitive WT names in bt_cursor.c.
func (t *Tree) appendRecno() uint64 {
	return t.nextRecno()
}
