//go:build ignore

// This file is an integration snippet, not a standalone-buildable package
// member: it is meant to be copied into a host engine's own buffer package
// alongside that host's Page/BufferPoolManager/types definitions, the same
// unresolved-symbol shape the teacher's own storage/buffer carries. The
// build tag keeps `go build ./...`/`go vet ./...` from tripping over it
// while it stays in the tree as reference.
package buffer

import (
	"github.com/ryogrid/mvccbt/interfaces"
	"github.com/ryogrid/mvccbt/storage/page"
	"github.com/ryogrid/mvccbt/types"
)

type ParentBufMgrImpl struct {
	*BufferPoolManager
}

func NewParentBufMgrImpl(bpm *BufferPoolManager) interfaces.ParentBufMgr {
	return &ParentBufMgrImpl{bpm}
}

func (p *ParentBufMgrImpl) FetchPPage(pageID int32) interfaces.ParentPage {
	return &page.ParentPageImpl{p.FetchPage(types.PageID(pageID))}
}

func (p *ParentBufMgrImpl) UnpinPPage(pageID int32, isDirty bool) error {
	return p.UnpinPage(types.PageID(pageID), isDirty)
}

func (p *ParentBufMgrImpl) NewPPage() interfaces.ParentPage {
	return &page.ParentPageImpl{p.NewPage()}
}

func (p *ParentBufMgrImpl) DeallocatePPage(pageID int32, isNoWait bool) error {
	return p.DeallocatePage(types.PageID(pageID), isNoWait)
}
