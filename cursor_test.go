package mvccbt

import (
	"bytes"
	"testing"
)

func openTestTree(t *testing.T, shape TreeShape) *Tree {
	t.Helper()
	tree, err := Open(Config{
		Name:         "test",
		PageBits:     12,
		PoolPages:    20,
		Shape:        shape,
		ParentBufMgr: NewParentBufMgrDummy(nil),
	})
	if err != nil {
		t.Fatalf("Open() = %v, want nil", err)
	}
	return tree
}

func TestCursor_RowInsertSearchRemove(t *testing.T) {
	tree := openTestTree(t, ShapeRow)
	defer tree.Close()
	sess := NewSession(tree)
	cur := sess.OpenCursor()

	cur.SetKey([]byte("apple"))
	cur.SetValue([]byte("fruit"))
	if err := cur.Insert(); err != nil {
		t.Fatalf("Insert() = %v, want nil", err)
	}
	sess.Commit()

	sess2 := NewSession(tree)
	cur2 := sess2.OpenCursor()
	cur2.SetKey([]byte("apple"))
	if err := cur2.Search(); err != nil {
		t.Fatalf("Search() = %v, want nil", err)
	}
	if !bytes.Equal(cur2.Value(), []byte("fruit")) {
		t.Fatalf("Value() = %q, want %q", cur2.Value(), "fruit")
	}

	if err := cur2.Remove(); err != nil {
		t.Fatalf("Remove() = %v, want nil", err)
	}
	sess2.Commit()

	sess3 := NewSession(tree)
	cur3 := sess3.OpenCursor()
	cur3.SetKey([]byte("apple"))
	if err := cur3.Search(); err != ErrNotFound {
		t.Fatalf("Search() after Remove() = %v, want ErrNotFound", err)
	}
}

func TestCursor_InsertRejectsInvalidSize(t *testing.T) {
	tree := openTestTree(t, ShapeRow)
	defer tree.Close()
	sess := NewSession(tree)
	cur := sess.OpenCursor()

	cur.SetKey([]byte("k"))
	cur.SetValue(nil)
	if err := cur.Insert(); err != ErrObjectTooLarge {
		t.Fatalf("Insert() zero-length value = %v, want ErrObjectTooLarge", err)
	}
}

func TestCursor_InsertDuplicateKeyFailsWithoutOverwrite(t *testing.T) {
	tree := openTestTree(t, ShapeRow)
	defer tree.Close()
	sess := NewSession(tree)
	cur := sess.OpenCursor()

	cur.SetKey([]byte("dup"))
	cur.SetValue([]byte("one"))
	if err := cur.Insert(); err != nil {
		t.Fatalf("first Insert() = %v, want nil", err)
	}

	cur.SetKey([]byte("dup"))
	cur.SetValue([]byte("two"))
	if err := cur.Insert(); err != ErrDuplicateKey {
		t.Fatalf("second Insert() = %v, want ErrDuplicateKey", err)
	}

	cur.SetOverwrite(true)
	if err := cur.Insert(); err != nil {
		t.Fatalf("overwrite Insert() = %v, want nil", err)
	}
	if cur.positioned {
		t.Fatalf("cursor positioned after successful Insert(), want unpositioned")
	}

	verify := sess.OpenCursor()
	verify.SetKey([]byte("dup"))
	if err := verify.Search(); err != nil {
		t.Fatalf("Search() = %v, want nil", err)
	}
	if !bytes.Equal(verify.Value(), []byte("two")) {
		t.Fatalf("Value() = %q, want %q", verify.Value(), "two")
	}
}

func TestCursor_RemoveAbsentKeyWithOverwriteIsIdempotent(t *testing.T) {
	tree := openTestTree(t, ShapeRow)
	defer tree.Close()
	sess := NewSession(tree)
	cur := sess.OpenCursor()

	cur.SetKey([]byte("ghost"))
	if err := cur.Remove(); err != ErrNotFound {
		t.Fatalf("Remove() absent key = %v, want ErrNotFound", err)
	}

	cur.SetOverwrite(true)
	if err := cur.Remove(); err != nil {
		t.Fatalf("Remove() absent key with OVERWRITE = %v, want nil", err)
	}
}

func TestCursor_ColVarAppend(t *testing.T) {
	tree := openTestTree(t, ShapeColVar)
	defer tree.Close()
	sess := NewSession(tree)

	var recnos []uint64
	for i := 0; i < 5; i++ {
		cur := sess.OpenCursor()
		cur.SetAppend(true)
		cur.SetValue([]byte{byte('a' + i)})
		if err := cur.Insert(); err != nil {
			t.Fatalf("Insert() = %v, want nil", err)
		}
		recnos = append(recnos, cur.Recno())
	}
	sess.Commit()

	for i, recno := range recnos {
		if recno != uint64(i+1) {
			t.Fatalf("recno[%d] = %d, want %d", i, recno, i+1)
		}
		sess2 := NewSession(tree)
		cur := sess2.OpenCursor()
		cur.SetRecno(recno)
		if err := cur.Search(); err != nil {
			t.Fatalf("Search(recno=%d) = %v, want nil", recno, err)
		}
		if cur.Value()[0] != byte('a'+i) {
			t.Fatalf("Value(recno=%d) = %v, want %c", recno, cur.Value(), 'a'+i)
		}
	}
}

func TestCursor_ColFixImplicitRecord(t *testing.T) {
	tree := openTestTree(t, ShapeColFix)
	defer tree.Close()
	sess := NewSession(tree)
	cur := sess.OpenCursor()

	cur.SetAppend(true)
	cur.SetValue([]byte{7})
	if err := cur.Insert(); err != nil {
		t.Fatalf("Insert() = %v, want nil", err)
	}
	last := cur.Recno()
	sess.Commit()

	sess2 := NewSession(tree)
	mid := sess2.OpenCursor()
	mid.SetRecno(last)
	if err := mid.Search(); err != nil {
		t.Fatalf("Search() of written recno = %v, want nil", err)
	}
	if mid.Value()[0] != 7 {
		t.Fatalf("Value() = %v, want [7]", mid.Value())
	}

	// a recno within the appended range but never itself written reads
	// back as an implicit zero-value record rather than ErrNotFound.
	if last > 1 {
		gap := sess2.OpenCursor()
		gap.SetRecno(last - 1)
		if err := gap.Search(); err != nil {
			t.Fatalf("Search() implicit recno = %v, want nil", err)
		}
		if len(gap.Value()) != 1 || gap.Value()[0] != 0 {
			t.Fatalf("Value() implicit recno = %v, want [0]", gap.Value())
		}
	}

	beyond := sess2.OpenCursor()
	beyond.SetRecno(last + 1000)
	if err := beyond.Search(); err != ErrNotFound {
		t.Fatalf("Search() beyond appended range = %v, want ErrNotFound", err)
	}
}

func TestCursor_SearchNear(t *testing.T) {
	tree := openTestTree(t, ShapeRow)
	defer tree.Close()
	sess := NewSession(tree)

	for _, k := range []string{"b", "d", "f"} {
		cur := sess.OpenCursor()
		cur.SetKey([]byte(k))
		cur.SetValue([]byte(k))
		if err := cur.Insert(); err != nil {
			t.Fatalf("Insert(%q) = %v, want nil", k, err)
		}
	}
	sess.Commit()

	sess2 := NewSession(tree)

	exactCur := sess2.OpenCursor()
	exactCur.SetKey([]byte("d"))
	if exact, err := exactCur.SearchNear(); err != nil || exact != 0 {
		t.Fatalf("SearchNear(d) = (%d, %v), want (0, nil)", exact, err)
	}

	nearCur := sess2.OpenCursor()
	nearCur.SetKey([]byte("c"))
	exact, err := nearCur.SearchNear()
	if err != nil {
		t.Fatalf("SearchNear(c) = %v, want nil", err)
	}
	if exact <= 0 {
		t.Fatalf("SearchNear(c) exact = %d, want > 0 (landed on next key)", exact)
	}
	if !bytes.Equal(nearCur.Key(), []byte("d")) {
		t.Fatalf("SearchNear(c) key = %q, want %q", nearCur.Key(), "d")
	}

	afterCur := sess2.OpenCursor()
	afterCur.SetKey([]byte("z"))
	exact, err = afterCur.SearchNear()
	if err != nil {
		t.Fatalf("SearchNear(z) = %v, want nil", err)
	}
	if exact >= 0 {
		t.Fatalf("SearchNear(z) exact = %d, want < 0 (landed on prior key)", exact)
	}
	if !bytes.Equal(afterCur.Key(), []byte("f")) {
		t.Fatalf("SearchNear(z) key = %q, want %q", afterCur.Key(), "f")
	}
}

func TestCursor_RangeTruncate(t *testing.T) {
	tree := openTestTree(t, ShapeRow)
	defer tree.Close()
	sess := NewSession(tree)

	keys := []string{"a", "b", "c", "d", "e"}
	for _, k := range keys {
		cur := sess.OpenCursor()
		cur.SetKey([]byte(k))
		cur.SetValue([]byte(k))
		if err := cur.Insert(); err != nil {
			t.Fatalf("Insert(%q) = %v, want nil", k, err)
		}
	}
	sess.Commit()

	sess2 := NewSession(tree)
	trunc := sess2.OpenCursor()
	if err := trunc.RangeTruncate([]byte("b"), []byte("d")); err != nil {
		t.Fatalf("RangeTruncate() = %v, want nil", err)
	}
	sess2.Commit()

	sess3 := NewSession(tree)
	for _, k := range []string{"b", "c", "d"} {
		cur := sess3.OpenCursor()
		cur.SetKey([]byte(k))
		if err := cur.Search(); err != ErrNotFound {
			t.Fatalf("Search(%q) after RangeTruncate() = %v, want ErrNotFound", k, err)
		}
	}
	for _, k := range []string{"a", "e"} {
		cur := sess3.OpenCursor()
		cur.SetKey([]byte(k))
		if err := cur.Search(); err != nil {
			t.Fatalf("Search(%q) after RangeTruncate() = %v, want nil", k, err)
		}
	}
}

func TestCursor_CompareAndEquals(t *testing.T) {
	tree := openTestTree(t, ShapeRow)
	defer tree.Close()
	sess := NewSession(tree)

	for _, k := range []string{"m", "n"} {
		cur := sess.OpenCursor()
		cur.SetKey([]byte(k))
		cur.SetValue([]byte(k))
		if err := cur.Insert(); err != nil {
			t.Fatalf("Insert(%q) = %v, want nil", k, err)
		}
	}
	sess.Commit()

	sess2 := NewSession(tree)
	m := sess2.OpenCursor()
	m.SetKey([]byte("m"))
	if err := m.Search(); err != nil {
		t.Fatalf("Search(m) = %v, want nil", err)
	}
	n := sess2.OpenCursor()
	n.SetKey([]byte("n"))
	if err := n.Search(); err != nil {
		t.Fatalf("Search(n) = %v, want nil", err)
	}

	cmp, err := m.Compare(n)
	if err != nil || cmp >= 0 {
		t.Fatalf("Compare(m, n) = (%d, %v), want (<0, nil)", cmp, err)
	}

	m2 := sess2.OpenCursor()
	m2.SetKey([]byte("m"))
	if err := m2.Search(); err != nil {
		t.Fatalf("Search(m) = %v, want nil", err)
	}
	eq, err := m.Equals(m2)
	if err != nil || !eq {
		t.Fatalf("Equals(m, m2) = (%v, %v), want (true, nil)", eq, err)
	}

	unpositioned := sess2.OpenCursor()
	if _, err := m.Compare(unpositioned); err != ErrCursorNotPositioned {
		t.Fatalf("Compare() with unpositioned cursor = %v, want ErrCursorNotPositioned", err)
	}
}

func TestCursor_InsertClearsPositionOnSuccess(t *testing.T) {
	tree := openTestTree(t, ShapeRow)
	defer tree.Close()
	sess := NewSession(tree)
	cur := sess.OpenCursor()

	cur.SetKey([]byte("apple"))
	cur.SetValue([]byte("fruit"))
	if err := cur.Insert(); err != nil {
		t.Fatalf("Insert() = %v, want nil", err)
	}
	if cur.positioned {
		t.Fatalf("cursor positioned after Insert() success, want unpositioned")
	}
	if cur.Key() != nil {
		t.Fatalf("Key() after Insert() success = %q, want nil", cur.Key())
	}
	if cur.Value() != nil {
		t.Fatalf("Value() after Insert() success = %q, want nil", cur.Value())
	}
}

func TestCursor_ColFixDirectInsertAdvancesImplicitRange(t *testing.T) {
	tree := openTestTree(t, ShapeColFix)
	defer tree.Close()
	sess := NewSession(tree)

	cur := sess.OpenCursor()
	cur.SetRecno(5)
	cur.SetValue([]byte{7})
	if err := cur.Insert(); err != nil {
		t.Fatalf("Insert(recno=5) = %v, want nil", err)
	}
	sess.Commit()

	sess2 := NewSession(tree)
	for recno := uint64(1); recno < 5; recno++ {
		gap := sess2.OpenCursor()
		gap.SetRecno(recno)
		if err := gap.Search(); err != nil {
			t.Fatalf("Search(recno=%d) = %v, want nil", recno, err)
		}
		if len(gap.Value()) != 1 || gap.Value()[0] != 0 {
			t.Fatalf("Value(recno=%d) = %v, want [0]", recno, gap.Value())
		}
	}
}

func TestCursor_ColFixImplicitRecordSearchNearInsertRemoveUpdate(t *testing.T) {
	tree := openTestTree(t, ShapeColFix)
	defer tree.Close()
	sess := NewSession(tree)

	cur := sess.OpenCursor()
	cur.SetRecno(5)
	cur.SetValue([]byte{9})
	if err := cur.Insert(); err != nil {
		t.Fatalf("Insert(recno=5) = %v, want nil", err)
	}
	sess.Commit()

	// search_near on an implicit recno synthesizes a zero-valued exact match.
	sess2 := NewSession(tree)
	near := sess2.OpenCursor()
	near.SetRecno(3)
	exact, err := near.SearchNear()
	if err != nil || exact != 0 {
		t.Fatalf("SearchNear(recno=3) = (%d, %v), want (0, nil)", exact, err)
	}
	if len(near.Value()) != 1 || near.Value()[0] != 0 {
		t.Fatalf("SearchNear(recno=3) value = %v, want [0]", near.Value())
	}

	// insert without OVERWRITE over an implicit recno is a duplicate key.
	dup := sess2.OpenCursor()
	dup.SetRecno(3)
	dup.SetValue([]byte{1})
	if err := dup.Insert(); err != ErrDuplicateKey {
		t.Fatalf("Insert(recno=3) over implicit record = %v, want ErrDuplicateKey", err)
	}

	// update without OVERWRITE over an implicit recno succeeds.
	upd := sess2.OpenCursor()
	upd.SetRecno(3)
	upd.SetValue([]byte{4})
	if err := upd.Update(); err != nil {
		t.Fatalf("Update(recno=3) over implicit record = %v, want nil", err)
	}
	sess2.Commit()

	sess3 := NewSession(tree)
	verify := sess3.OpenCursor()
	verify.SetRecno(3)
	if err := verify.Search(); err != nil {
		t.Fatalf("Search(recno=3) = %v, want nil", err)
	}
	if verify.Value()[0] != 4 {
		t.Fatalf("Value(recno=3) = %v, want [4]", verify.Value())
	}

	// remove without OVERWRITE over an implicit recno succeeds.
	rm := sess3.OpenCursor()
	rm.SetRecno(2)
	if err := rm.Remove(); err != nil {
		t.Fatalf("Remove(recno=2) over implicit record = %v, want nil", err)
	}
	if !rm.positioned {
		t.Fatalf("cursor not positioned after successful Remove()")
	}
}

func TestCursor_RowInsertRejectsInvalidKeySize(t *testing.T) {
	tree := openTestTree(t, ShapeRow)
	defer tree.Close()
	sess := NewSession(tree)
	cur := sess.OpenCursor()

	cur.SetKey(nil)
	cur.SetValue([]byte("v"))
	if err := cur.Insert(); err != ErrObjectTooLarge {
		t.Fatalf("Insert() zero-length key = %v, want ErrObjectTooLarge", err)
	}

	cur.SetKey(nil)
	if err := cur.Search(); err != ErrObjectTooLarge {
		t.Fatalf("Search() zero-length key = %v, want ErrObjectTooLarge", err)
	}
}

func TestCursor_ColFixRejectsMultiByteValue(t *testing.T) {
	tree := openTestTree(t, ShapeColFix)
	defer tree.Close()
	sess := NewSession(tree)
	cur := sess.OpenCursor()

	cur.SetRecno(1)
	cur.SetValue([]byte{1, 2})
	if err := cur.Insert(); err != ErrInvalidArgument {
		t.Fatalf("Insert() multi-byte COL_FIX value = %v, want ErrInvalidArgument", err)
	}

	cur.SetValue([]byte{1})
	if err := cur.Insert(); err != nil {
		t.Fatalf("Insert() single-byte COL_FIX value = %v, want nil", err)
	}
	cur.SetRecno(1)
	cur.SetValue([]byte{1, 2})
	if err := cur.Update(); err != ErrInvalidArgument {
		t.Fatalf("Update() multi-byte COL_FIX value = %v, want ErrInvalidArgument", err)
	}
}
