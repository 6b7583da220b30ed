package mvccbt

// rowSearch descends the tree for key and leaves the leaf page pinned and
// locked in set, returning the slot the key belongs at (not necessarily an
// exact match) and a tri-state compare: 0 exact, <0 the stored key sorts
// before key, >0 after. Same collaborator as col_search (spec section 6);
// COL_VAR/COL_FIX just pre-encode their recno key before calling this.
func (t *Tree) rowSearch(set *PageSet, key []byte, lock BLTLockMode, reads, writes *uint) (slot uint32, compare int) {
	slot = t.mgr.PageFetch(set, key, 0, lock, reads, writes)
	if slot == 0 {
		return 0, 0
	}
	if set.page.Typ(slot) == Librarian {
		slot++
	}
	stored := set.page.Key(slot)
	if set.page.Typ(slot) == Duplicate && len(stored) >= BtId {
		stored = stored[:len(stored)-BtId]
	}
	return slot, t.collator.Compare(stored, key)
}

// colSearch is col_search from spec section 6: identical machinery to
// rowSearch, keyed by the record number, which it encodes big-endian.
func (t *Tree) colSearch(set *PageSet, recno uint64, lock BLTLockMode, reads, writes *uint) (slot uint32, compare int) {
	return t.rowSearch(set, encodeRecno(recno), lock, reads, writes)
}

func encodeRecno(r uint64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(r)
		r >>= 8
	}
	return b
}

func decodeRecno(b []byte) uint64 {
	var r uint64
	for _, c := range b {
		r = r<<8 | uint64(c)
	}
	return r
}

// kvReturn is the kv_return collaborator from spec section 6: it resolves
// the visible value for a positioned slot, consulting the update chain
// before falling back to the page-resident value (the placeholder written
// when the slot was created, for slots this layer inserted).
func kvReturn(txn *Txn, page *Page, slot uint32) (value []byte, tombstone bool, found bool) {
	if chain := page.Upd(slot); chain != nil {
		return TxnRead(txn, chain)
	}
	v := *page.Value(slot)
	if page.Dead(slot) {
		return nil, true, true
	}
	return v, false, true
}
