package mvccbt

// TreeShape tags which of the three record models a Page (and the tree it
// belongs to) stores. The physical slot/heap layout below is shared by all
// three: ROW uses it directly with opaque byte-string keys; COL_VAR and
// COL_FIX key it by an 8-byte big-endian record number, and COL_FIX
// additionally overlays an implicit-record read policy at the cursor layer
// (see Cursor.isImplicitFixRecord in cursor.go) so that any recno in the
// table's dense range reads back a zero byte even with no physical slot.
type TreeShape uint8

const (
	ShapeRow TreeShape = iota
	ShapeColVar
	ShapeColFix
)

// SlotType distinguishes a plain key slot from a duplicate-key slot (which
// carries a uniquifying sequence number appended to its stored key) and from
// a librarian slot, a dead placeholder kept only to speed up binary search.
type SlotType uint8

const (
	Unique SlotType = iota
	Duplicate
	Librarian
)

// PageHeader is the fixed-width prefix of every page, read/written as-is by
// BufMgr.PageIn/PageOut; field order matters for that binary layout.
type PageHeader struct {
	Cnt     uint32
	Act     uint32
	Min     uint32
	Garbage uint32
	Bits    uint8
	Free    bool
	Lvl     uint8
	Kill    bool
	Right   [BtId]byte
}

// Page is one btree node: a slot array growing up from offset 0 and a
// key/value heap growing down from Min, meeting in the middle. Slot i's
// 6-byte descriptor lives at Data[(i-1)*SlotSize:i*SlotSize]; its cell in
// the heap is [keyLen byte][key][valLen byte][value].
//
// PgRowUpd is the MVCC layer bolted on top of the teacher's page model: a
// parallel array of update-chain heads, one per slot, non-nil once any
// transaction has written a newer version of that slot's key. It is never
// serialized; BufMgr's PageIn/PageOut only ever touch PageHeader and Data.
type Page struct {
	PageHeader
	Data []byte

	Shape    TreeShape
	PgRowUpd []*UpdateChain
}

// NewPage allocates a zeroed page of the given data-area size.
func NewPage(pageDataSize uint32) *Page {
	return &Page{
		Data: make([]byte, pageDataSize),
	}
}

// MemCpyPage copies header, data and in-memory update chains from src to dst.
func MemCpyPage(dst *Page, src *Page) {
	dst.PageHeader = src.PageHeader
	if cap(dst.Data) >= len(src.Data) {
		dst.Data = dst.Data[:len(src.Data)]
	} else {
		dst.Data = make([]byte, len(src.Data))
	}
	copy(dst.Data, src.Data)
	dst.Shape = src.Shape
	dst.PgRowUpd = src.PgRowUpd
}

func (p *Page) slotBytes(slot uint32) []byte {
	off := (slot - 1) * SlotSize
	return p.Data[off : off+SlotSize]
}

func (p *Page) ClearSlot(slot uint32) {
	b := p.slotBytes(slot)
	for i := range b {
		b[i] = 0
	}
	p.growUpd(slot)
	p.PgRowUpd[slot-1] = nil
}

func (p *Page) KeyOffset(slot uint32) uint32 {
	b := p.slotBytes(slot)
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func (p *Page) SetKeyOffset(slot uint32, off uint32) {
	b := p.slotBytes(slot)
	b[0] = byte(off >> 24)
	b[1] = byte(off >> 16)
	b[2] = byte(off >> 8)
	b[3] = byte(off)
}

func (p *Page) Typ(slot uint32) SlotType {
	return SlotType(p.slotBytes(slot)[4])
}

func (p *Page) SetTyp(slot uint32, t SlotType) {
	p.slotBytes(slot)[4] = byte(t)
}

func (p *Page) Dead(slot uint32) bool {
	return p.slotBytes(slot)[5] != 0
}

func (p *Page) SetDead(slot uint32, dead bool) {
	if dead {
		p.slotBytes(slot)[5] = 1
	} else {
		p.slotBytes(slot)[5] = 0
	}
}

func (p *Page) Key(slot uint32) []byte {
	off := p.KeyOffset(slot)
	n := uint32(p.Data[off])
	return p.Data[off+1 : off+1+n]
}

func (p *Page) SetKey(key []byte, slot uint32) {
	off := p.KeyOffset(slot)
	p.Data[off] = byte(len(key))
	copy(p.Data[off+1:], key)
}

func (p *Page) valueOffset(slot uint32) uint32 {
	off := p.KeyOffset(slot)
	keyLen := uint32(p.Data[off])
	return off + 1 + keyLen
}

func (p *Page) ValueOffset(slot uint32) uint32 {
	return p.valueOffset(slot)
}

func (p *Page) Value(slot uint32) *[]byte {
	off := p.valueOffset(slot)
	n := uint32(p.Data[off])
	v := p.Data[off+1 : off+1+n]
	return &v
}

func (p *Page) SetValue(value []byte, slot uint32) {
	off := p.valueOffset(slot)
	p.Data[off] = byte(len(value))
	copy(p.Data[off+1:], value)
}

// growUpd ensures PgRowUpd has room for the given 1-based slot.
func (p *Page) growUpd(slot uint32) {
	if uint32(len(p.PgRowUpd)) < slot {
		grown := make([]*UpdateChain, slot)
		copy(grown, p.PgRowUpd)
		p.PgRowUpd = grown
	}
}

// Upd returns the update-chain head for a slot, or nil if the slot has only
// its original, page-resident value.
func (p *Page) Upd(slot uint32) *UpdateChain {
	if uint32(len(p.PgRowUpd)) < slot {
		return nil
	}
	return p.PgRowUpd[slot-1]
}

// SetUpd installs a new update-chain head for a slot.
func (p *Page) SetUpd(slot uint32, chain *UpdateChain) {
	p.growUpd(slot)
	p.PgRowUpd[slot-1] = chain
}

// FindSlot returns the lowest slot whose key is >= the given key, or 0 if
// key sorts past the end of the page (the caller should slide right).
// Librarian placeholders carry the same key as the real slot immediately
// following them, so plain binary search over all slot kinds is correct.
func (p *Page) FindSlot(key []byte) uint32 {
	lo, hi := uint32(1), p.Cnt
	for lo <= hi {
		mid := (lo + hi) / 2
		k := p.Key(mid)
		if p.Typ(mid) == Duplicate && len(k) >= BtId {
			k = k[:len(k)-BtId]
		}
		if KeyCmp(k, key) < 0 {
			lo = mid + 1
		} else {
			if mid == 0 {
				break
			}
			hi = mid - 1
		}
	}
	if lo <= p.Cnt {
		return lo
	}
	return 0
}
