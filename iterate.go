package mvccbt

// next and prev are the next/prev collaborators named in spec section 6.
// Unlike the teacher's BLTree.cursor (a single scratch page shared by the
// whole tree, usable by only one in-flight scan at a time), every mvccbt
// Cursor iterates independently, so these take the caller's last key
// instead of touching any tree-wide cursor state.

// visibleAt reports whether key currently has a visible, non-tombstone
// version for txn, and what it is.
func (t *Tree) visibleAt(txn *Txn, key []byte) (value []byte, ok bool) {
	var set PageSet
	var reads, writes uint
	slot, compare := t.rowSearch(&set, key, LockRead, &reads, &writes)
	if slot == 0 || compare != 0 {
		if slot != 0 {
			t.mgr.PageUnlock(LockRead, set.latch)
			t.mgr.UnpinLatch(set.latch)
		}
		return nil, false
	}
	v, tomb, found := kvReturn(txn, set.page, slot)
	t.mgr.PageUnlock(LockRead, set.latch)
	t.mgr.UnpinLatch(set.latch)
	if !found || tomb {
		return nil, false
	}
	return append([]byte(nil), v...), true
}

var globalStopper = []byte{0xff, 0xff}

// next returns the smallest key greater than afterKey (or, if inclusive is
// true, greater than or equal to afterKey; or the smallest key overall when
// afterKey is nil) that has a visible non-tombstone version.
func (t *Tree) next(txn *Txn, afterKey []byte, inclusive bool) (ok bool, key, value []byte, err error) {
	var set PageSet
	var reads, writes uint

	probe := afterKey
	if probe == nil {
		probe = []byte{}
	}
	slot, compare := t.rowSearch(&set, probe, LockRead, &reads, &writes)
	if slot == 0 {
		return false, nil, nil, ErrRestart
	}
	pageNo := set.latch.pageNo
	var startSlot uint32
	if afterKey != nil && compare == 0 && !inclusive {
		startSlot = slot // step past it below; scan loop starts at slot+1
	} else {
		startSlot = slot - 1 // scan loop will consider slot itself first
	}
	t.mgr.PageUnlock(LockRead, set.latch)
	t.mgr.UnpinLatch(set.latch)

	cur := startSlot
	for pageNo > 0 {
		latch := t.mgr.PinLatch(pageNo, true, &reads, &writes)
		if latch == nil {
			return false, nil, nil, ErrRestart
		}
		t.mgr.PageLock(LockRead, latch)
		page := t.mgr.GetRefOfPageAtPool(latch)

		for cur < page.Cnt {
			cur++
			if page.Typ(cur) == Librarian || page.Dead(cur) {
				continue
			}
			k := page.Key(cur)
			if len(k) == 2 && k[0] == 0xff && k[1] == 0xff {
				continue // global stopper, not a real record
			}
			v, tomb, found := kvReturn(txn, page, cur)
			if !found || tomb {
				continue
			}
			foundKey := append([]byte(nil), k...)
			foundVal := append([]byte(nil), v...)
			t.mgr.PageUnlock(LockRead, latch)
			t.mgr.UnpinLatch(latch)
			return true, foundKey, foundVal, nil
		}

		right := GetID(&page.Right)
		t.mgr.PageUnlock(LockRead, latch)
		t.mgr.UnpinLatch(latch)
		pageNo = right
		cur = 0
	}
	return false, nil, nil, nil
}

// prev returns the largest key less than beforeKey (or the largest key
// overall, when beforeKey is nil) that has a visible non-tombstone version.
// The teacher's blink-tree has no left-sibling pointers, so unlike next,
// this degrades to a bounded forward range scan rather than a true
// predecessor descent; see DESIGN.md.
func (t *Tree) prev(txn *Txn, beforeKey []byte) (ok bool, key, value []byte, err error) {
	_, keys, _ := t.impl.RangeScan(nil, beforeKey)
	for i := len(keys) - 1; i >= 0; i-- {
		k := keys[i]
		if beforeKey != nil && t.collator.Compare(k, beforeKey) == 0 {
			continue
		}
		if v, ok := t.visibleAt(txn, k); ok {
			return true, k, v, nil
		}
	}
	return false, nil, nil, nil
}
