package mvccbt

// Cursor is the single navigation and mutation handle described in spec
// section 4: Search, SearchNear, Insert, Remove, Update, Next/Prev, Compare,
// Equals and RangeTruncate, plus the APPEND/OVERWRITE/MAX_RECORD flags that
// shade their behavior. One Cursor belongs to exactly one Session and, unlike
// the teacher's tree-wide BLTree.cursor scratch page, carries its own
// position so independent cursors over the same Tree never interfere.
type Cursor struct {
	sess *Session
	tree *Tree

	key   []byte
	value []byte

	positioned bool
	compare    int // tri-state from the last Search/SearchNear: 0 exact, <0 before, >0 after
	maxRecord  bool

	appendFlag    bool
	overwriteFlag bool
}

// newCursor is the cursor_open collaborator backing Session.OpenCursor.
func newCursor(sess *Session) *Cursor {
	return &Cursor{sess: sess, tree: sess.tree}
}

// SetAppend arms the APPEND flag (spec section 4.2): Insert assigns the next
// record number itself instead of using the cursor's current key. Only
// meaningful for COL_VAR/COL_FIX trees.
func (c *Cursor) SetAppend(on bool) { c.appendFlag = on }

// SetOverwrite arms the OVERWRITE flag (spec section 4.2): Insert silently
// replaces an existing visible value instead of failing with ErrDuplicateKey,
// and Remove silently succeeds when the key has no visible version.
func (c *Cursor) SetOverwrite(on bool) { c.overwriteFlag = on }

// SetKey positions the cursor's key buffer for a ROW-shaped tree ahead of
// Search/Insert/Remove/Update.
func (c *Cursor) SetKey(key []byte) {
	c.key = append([]byte(nil), key...)
}

// SetRecno positions the cursor's key buffer for a COL_VAR/COL_FIX-shaped
// tree, encoding the record number the way col_search expects.
func (c *Cursor) SetRecno(recno uint64) {
	c.key = encodeRecno(recno)
}

// Key returns the cursor's current key.
func (c *Cursor) Key() []byte { return c.key }

// Recno decodes the cursor's current key as a record number; only meaningful
// for COL_VAR/COL_FIX trees.
func (c *Cursor) Recno() uint64 { return decodeRecno(c.key) }

// Value returns the value at the cursor's current position.
func (c *Cursor) Value() []byte { return c.value }

// SetValue loads the value buffer ahead of Insert/Update.
func (c *Cursor) SetValue(value []byte) {
	c.value = append([]byte(nil), value...)
}

// Reset clears the cursor's position without closing it, the cursor->reset
// collaborator of spec section 4.9.
func (c *Cursor) Reset() {
	c.key = nil
	c.value = nil
	c.positioned = false
	c.compare = 0
	c.maxRecord = false
	c.sess.stats.Reset++
}

// Close releases the cursor. Session-level resources (the page pool, the
// transaction snapshot) outlive it, so there is nothing else to release.
func (c *Cursor) Close() {
	c.Reset()
	c.sess = nil
	c.tree = nil
}

// isImplicitFixRecord reports whether a COL_FIX recno within the
// ever-appended range, but with no visible physical version, should read back
// as an implicit zero-value record (spec section 4.3) rather than
// ErrNotFound. MAX_RECORD suppresses this once iteration has walked off the
// end of the table.
func (c *Cursor) isImplicitFixRecord() bool {
	if c.tree.shape != ShapeColFix || c.maxRecord {
		return false
	}
	recno := decodeRecno(c.key)
	return recno >= 1 && recno <= c.tree.lastRecno
}

// validateKeySize enforces spec section 4.1's "row-store validates keys and
// values" rule: column-store keys are record numbers and carry no size
// check. Reuses the block manager's write_size predicate, the same
// collaborator value-size validation already goes through.
func (c *Cursor) validateKeySize() error {
	if c.tree.shape != ShapeRow {
		return nil
	}
	if err := c.tree.blockMgr.WriteSize(len(c.key)); err != nil {
		return ErrObjectTooLarge
	}
	return nil
}

// validateValueSize enforces spec section 4.1: COL_FIX values must be
// exactly one byte (invalid-argument otherwise); ROW and COL_VAR values go
// through the block manager's write_size predicate.
func (c *Cursor) validateValueSize() error {
	if c.tree.shape == ShapeColFix {
		if len(c.value) != 1 {
			return ErrInvalidArgument
		}
		return nil
	}
	if err := c.tree.blockMgr.WriteSize(len(c.value)); err != nil {
		return ErrObjectTooLarge
	}
	return nil
}

// Search positions the cursor exactly on key/recno, the search collaborator
// of spec section 4.4. It absorbs ErrRestart internally and retries, the
// RESTART convention the teacher's own BLTree callers follow on BLTErrStruct.
func (c *Cursor) Search() error {
	if err := c.validateKeySize(); err != nil {
		return err
	}
	for {
		var set PageSet
		var reads, writes uint
		slot, compare := c.tree.rowSearch(&set, c.key, LockRead, &reads, &writes)
		c.sess.stats.PageReads += uint64(reads)
		if slot == 0 {
			continue
		}

		if compare != 0 {
			c.tree.mgr.PageUnlock(LockRead, set.latch)
			c.tree.mgr.UnpinLatch(set.latch)
			c.sess.stats.Search++
			if c.isImplicitFixRecord() {
				c.value = []byte{0}
				c.positioned = true
				c.compare = 0
				return nil
			}
			c.positioned = false
			return ErrNotFound
		}

		value, tombstone, found := kvReturn(&c.sess.txn, set.page, slot)
		c.tree.mgr.PageUnlock(LockRead, set.latch)
		c.tree.mgr.UnpinLatch(set.latch)
		c.sess.stats.Search++

		if !found || tombstone {
			if c.isImplicitFixRecord() {
				c.value = []byte{0}
				c.positioned = true
				c.compare = 0
				return nil
			}
			c.positioned = false
			return ErrNotFound
		}
		c.value = value
		c.positioned = true
		c.compare = 0
		return nil
	}
}

// SearchNear positions the cursor on key if it has a visible version (exact
// 0), or else on the next visible key after it (exact 1), or, when there is
// none, on the previous visible key (exact -1), the search_near collaborator of spec
// section 4.5. The returned exact value is only meaningful when err is nil
// or ErrNotFound; callers must not interpret it after any other error,
// matching the open-question resolution recorded in DESIGN.md.
func (c *Cursor) SearchNear() (exact int, err error) {
	if err := c.validateKeySize(); err != nil {
		return 0, err
	}
	requestedKey := c.key
	for {
		var set PageSet
		var reads, writes uint
		slot, compare := c.tree.rowSearch(&set, requestedKey, LockRead, &reads, &writes)
		c.sess.stats.PageReads += uint64(reads)
		if slot == 0 {
			continue
		}
		matchedKey := append([]byte(nil), set.page.Key(slot)...)
		value, tombstone, found := kvReturn(&c.sess.txn, set.page, slot)
		c.tree.mgr.PageUnlock(LockRead, set.latch)
		c.tree.mgr.UnpinLatch(set.latch)
		c.sess.stats.SearchNear++

		if compare == 0 && found && !tombstone {
			c.key = matchedKey
			c.value = value
			c.positioned = true
			c.compare = 0
			return 0, nil
		}

		if compare != 0 && c.isImplicitFixRecord() {
			c.key = requestedKey
			c.value = []byte{0}
			c.positioned = true
			c.compare = 0
			return 0, nil
		}

		// The slot rowSearch landed on is invisible (a tombstone) or not an
		// exact match; take the next visible key after the requested one,
		// and only when there is none, the previous visible key.
		lowerBound := requestedKey
		if compare == 0 {
			lowerBound = matchedKey
		}
		if ok, k, v, nerr := c.tree.next(&c.sess.txn, lowerBound, false); nerr == nil && ok {
			c.key, c.value, c.positioned, c.compare = k, v, true, 1
			return 1, nil
		}

		upperBound := requestedKey
		if compare <= 0 {
			upperBound = matchedKey
		}
		if ok, k, v, _ := c.tree.prev(&c.sess.txn, upperBound); ok {
			c.key, c.value, c.positioned, c.compare = k, v, true, -1
			return -1, nil
		}

		c.positioned = false
		return 0, ErrNotFound
	}
}

// Insert writes a new version for the cursor's current key (or, with APPEND
// armed, a freshly assigned record number), the insert collaborator of spec
// section 4.6. Without OVERWRITE, inserting over a visible existing value
// fails with ErrDuplicateKey.
func (c *Cursor) Insert() error {
	if c.appendFlag {
		if c.tree.shape == ShapeColFix || c.tree.shape == ShapeColVar {
			c.key = encodeRecno(c.tree.appendRecno())
		}
	}
	if err := c.validateKeySize(); err != nil {
		return err
	}
	if err := c.validateValueSize(); err != nil {
		return err
	}
	// spec section 4.6(b): an implicit COL_FIX record counts as already
	// existing, so an unarmed insert over one is a duplicate key exactly
	// like inserting over a visible physical value.
	if !c.overwriteFlag && !c.appendFlag && c.tree.shape == ShapeColFix && c.isImplicitFixRecord() {
		return ErrDuplicateKey
	}
	isColShape := c.tree.shape == ShapeColFix || c.tree.shape == ShapeColVar
	for {
		var err error
		if isColShape {
			err = c.tree.colModify(c.sess, decodeRecno(c.key), c.value, opInsert, c.overwriteFlag)
		} else {
			err = c.tree.rowModify(c.sess, c.key, c.value, opInsert, c.overwriteFlag)
		}
		if err == ErrRestart {
			continue
		}
		if err != nil {
			return err
		}
		if isColShape {
			// a direct insert at recno N makes every never-written record in
			// [1, N-1] read back as implicit zero (spec section 4.3); APPEND
			// inserts advance this the same way, just one at a time.
			c.tree.bumpRecno(decodeRecno(c.key))
		}
		c.sess.stats.Insert++
		c.sess.stats.InsertBytes += uint64(len(c.value))
		// insert is position-less across calls (spec section 4.6): on
		// APPEND, the engine-assigned record number is copied back to the
		// caller before the position is released, mirroring the original's
		// __curfile_leave running after cbt->iface.recno is set.
		assignedKey := c.key
		c.positioned = false
		c.value = nil
		c.compare = 0
		if c.appendFlag {
			c.key = assignedKey
		} else {
			c.key = nil
		}
		return nil
	}
}

// Remove deletes the visible version at the cursor's current key, the
// remove collaborator of spec section 4.7. A COL_FIX tree never produces a
// gap: the slot is left behind reading back as an implicit zero record.
// With OVERWRITE armed, removing an absent key silently succeeds.
func (c *Cursor) Remove() error {
	if err := c.validateKeySize(); err != nil {
		return err
	}
	// spec section 4.7/4.3: an implicit COL_FIX record (no physical slot,
	// but within the ever-appended range) removes successfully and restores
	// the caller's record number, regardless of OVERWRITE.
	implicit := c.tree.shape == ShapeColFix && c.isImplicitFixRecord()
	overwrite := c.overwriteFlag || implicit
	for {
		var err error
		if c.tree.shape == ShapeColFix || c.tree.shape == ShapeColVar {
			err = c.tree.colModify(c.sess, decodeRecno(c.key), nil, opRemove, overwrite)
		} else {
			err = c.tree.rowModify(c.sess, c.key, nil, opRemove, c.overwriteFlag)
		}
		if err == ErrRestart {
			continue
		}
		if err != nil {
			return err
		}
		c.sess.stats.Remove++
		c.sess.stats.RemoveBytes += uint64(len(c.key))
		// a successful remove leaves the cursor positioned (spec section
		// 4.11's state machine), not cleared the way a successful insert is.
		c.positioned = true
		return nil
	}
}

// Update overwrites the visible version at the cursor's current key, the
// update collaborator of spec section 4.8. Without OVERWRITE, a key with no
// visible version fails with ErrNotFound (an implicit COL_FIX record excepted);
// with OVERWRITE, such a key is created.
func (c *Cursor) Update() error {
	if err := c.validateKeySize(); err != nil {
		return err
	}
	if err := c.validateValueSize(); err != nil {
		return err
	}
	// spec section 4.8: an implicit COL_FIX record counts as already
	// existing, so update succeeds over one even without OVERWRITE.
	implicit := c.tree.shape == ShapeColFix && c.isImplicitFixRecord()
	overwrite := c.overwriteFlag || implicit
	for {
		var err error
		if c.tree.shape == ShapeColFix || c.tree.shape == ShapeColVar {
			err = c.tree.colModify(c.sess, decodeRecno(c.key), c.value, opUpdate, overwrite)
		} else {
			err = c.tree.rowModify(c.sess, c.key, c.value, opUpdate, c.overwriteFlag)
		}
		if err == ErrRestart {
			continue
		}
		if err != nil {
			return err
		}
		c.sess.stats.Update++
		c.sess.stats.UpdateBytes += uint64(len(c.value))
		c.positioned = true
		c.compare = 0
		return nil
	}
}

// Next advances the cursor to the next visible key in collation order.
func (c *Cursor) Next() (bool, error) {
	for {
		ok, k, v, err := c.tree.next(&c.sess.txn, c.key, false)
		if err == ErrRestart {
			continue
		}
		if err != nil {
			return false, err
		}
		if !ok {
			c.maxRecord = true
			c.positioned = false
			return false, nil
		}
		c.key, c.value, c.positioned, c.compare = k, v, true, 0
		return true, nil
	}
}

// Prev retreats the cursor to the previous visible key in collation order.
func (c *Cursor) Prev() (bool, error) {
	ok, k, v, err := c.tree.prev(&c.sess.txn, c.key)
	if err != nil {
		return false, err
	}
	if !ok {
		c.positioned = false
		return false, nil
	}
	c.key, c.value, c.positioned, c.compare = k, v, true, 0
	return true, nil
}

// Compare orders this cursor's key against other's, the compare collaborator
// of spec section 4.11. Both cursors must be positioned.
func (c *Cursor) Compare(other *Cursor) (int, error) {
	if !c.positioned || !other.positioned {
		return 0, ErrCursorNotPositioned
	}
	return c.tree.collator.Compare(c.key, other.key), nil
}

// Equals is Compare's boolean convenience form, spec section 4.11.
func (c *Cursor) Equals(other *Cursor) (bool, error) {
	cmp, err := c.Compare(other)
	if err != nil {
		return false, err
	}
	return cmp == 0, nil
}

// RangeTruncate deletes every visible key in [startKey, stopKey] (either
// bound nil means unbounded on that side), the range-truncate collaborator
// of spec section 4.10, bracketed by TruncateLog/TruncateEnd so the whole
// range is logged as one unit. A COL_FIX tree's implicit zero records are
// left untouched rather than rewritten to the zero they already read as.
func (c *Cursor) RangeTruncate(startKey, stopKey []byte) error {
	t := c.tree
	if err := t.TruncateLog(startKey, stopKey); err != nil {
		return err
	}

	cur := startKey
	inclusive := true
	for {
		ok, k, _, err := t.next(&c.sess.txn, cur, inclusive)
		if err == ErrRestart {
			continue
		}
		if err != nil {
			t.TruncateEnd()
			return err
		}
		if !ok {
			break
		}
		if stopKey != nil && t.collator.Compare(k, stopKey) > 0 {
			break
		}

		if t.shape == ShapeColFix {
			if v, visible := t.visibleAt(&c.sess.txn, k); visible && len(v) == 1 && v[0] == 0 {
				cur, inclusive = k, false
				continue
			}
			err = t.colModify(c.sess, decodeRecno(k), nil, opRemove, true)
		} else {
			err = t.rowModify(c.sess, k, nil, opRemove, true)
		}
		if err == ErrRestart {
			continue
		}
		if err != nil {
			t.TruncateEnd()
			return err
		}
		c.sess.stats.Remove++
		cur, inclusive = k, false
	}
	return t.TruncateEnd()
}
