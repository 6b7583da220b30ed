//go:build ignore

// This file is an integration snippet, not a standalone-buildable package
// member: it is meant to be copied into a host engine's own page package
// alongside that host's Page/BufferPoolManager definitions, the same
// unresolved-symbol shape the teacher's own storage/page carries. The build
// tag keeps `go build ./...`/`go vet ./...` from tripping over it while it
// stays in the tree as reference.
package page

type ParentPageImpl struct {
	*Page
}

func (p *ParentPageImpl) DecPPinCount() {
	p.DecPinCount()
}

func (p *ParentPageImpl) PPinCount() int32 {
	return p.PinCount()
}

func (p *ParentPageImpl) GetPPageId() int32 {
	return int32(p.GetPageId())
}

func (p *ParentPageImpl) DataAsSlice() []byte {
	return (*p.Data())[:]
}
