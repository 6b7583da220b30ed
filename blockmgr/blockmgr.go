// Package blockmgr implements the write_size predicate an mvccbt tree
// consults before any insert/update/remove is allowed to proceed (spec
// section 4.1/6): non-positive sizes are rejected, a cheap fast path accepts
// anything from 1 byte up to 1GB, and a hard ceiling above that applies
// whatever absolute maximum the backing store was configured with.
package blockmgr

import (
	"fmt"
	"os"

	"github.com/dsnet/golib/memfile"
	"github.com/ncw/directio"
)

const oneGB = 1 << 30

// Manager is the external size-validation collaborator named in spec
// section 6 as block_manager.write_size.
type Manager interface {
	WriteSize(size int) error
}

type baseManager struct {
	maxObjectSize int
}

func (m *baseManager) writeSize(size int) error {
	if size <= 0 {
		return fmt.Errorf("blockmgr: write_size: non-positive size %d", size)
	}
	if size <= oneGB {
		return nil
	}
	if m.maxObjectSize > 0 && size > m.maxObjectSize {
		return fmt.Errorf("blockmgr: write_size: %d exceeds maximum object size %d", size, m.maxObjectSize)
	}
	return nil
}

// MemManager backs write_size with an in-memory file; Open uses it as the
// tree's Manager when Config.BlockManager is nil.
type MemManager struct {
	baseManager
	file *memfile.File
}

// NewMemManager allocates an in-memory backing file of initialSize bytes and
// rejects any write request that is both over 1GB and above maxObjectSize
// (0 means no ceiling beyond the 1GB fast path).
func NewMemManager(initialSize, maxObjectSize int) *MemManager {
	return &MemManager{
		baseManager: baseManager{maxObjectSize: maxObjectSize},
		file:        memfile.New(make([]byte, initialSize)),
	}
}

func (m *MemManager) WriteSize(size int) error {
	return m.writeSize(size)
}

// Bytes exposes the in-memory backing buffer, mirroring memfile.File.Bytes.
func (m *MemManager) Bytes() []byte {
	return m.file.Bytes()
}

// DirectManager backs write_size with an O_DIRECT-aligned disk file; it can
// be passed to Open as Config.BlockManager. WriteSize applies the same checks
// as MemManager and does not round; AlignedSize rounds a size up to
// directio.AlignSize.
type DirectManager struct {
	baseManager
	file *os.File
}

// NewDirectManager opens (creating if necessary) path for O_DIRECT writes.
func NewDirectManager(path string, maxObjectSize int) (*DirectManager, error) {
	f, err := directio.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("blockmgr: open direct file: %w", err)
	}
	return &DirectManager{
		baseManager: baseManager{maxObjectSize: maxObjectSize},
		file:        f,
	}, nil
}

func (m *DirectManager) WriteSize(size int) error {
	if err := m.writeSize(size); err != nil {
		return err
	}
	return nil
}

// AlignedSize rounds size up to the next directio.AlignSize boundary, the
// granularity O_DIRECT writes must land on.
func (m *DirectManager) AlignedSize(size int) int {
	a := directio.AlignSize
	return (size + a - 1) / a * a
}

func (m *DirectManager) Close() error {
	return m.file.Close()
}
