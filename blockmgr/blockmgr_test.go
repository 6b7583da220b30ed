package blockmgr

import (
	"path/filepath"
	"testing"

	"github.com/ncw/directio"
)

func TestMemManager_WriteSize(t *testing.T) {
	m := NewMemManager(1024, 2<<30)

	if err := m.WriteSize(1024); err != nil {
		t.Errorf("WriteSize(1024) = %v, want nil", err)
	}
	if err := m.WriteSize(oneGB); err != nil {
		t.Errorf("WriteSize(oneGB) = %v, want nil (fast path)", err)
	}
	if err := m.WriteSize(3 << 30); err == nil {
		t.Errorf("WriteSize(3GB) = nil, want error (exceeds max object size)")
	}
	if err := m.WriteSize(0); err == nil {
		t.Errorf("WriteSize(0) = nil, want error (non-positive size)")
	}
}

func TestMemManager_NoExtraCeiling(t *testing.T) {
	m := NewMemManager(1024, 0)
	if err := m.WriteSize(10 << 30); err != nil {
		t.Errorf("WriteSize(10GB) with maxObjectSize=0 = %v, want nil", err)
	}
}

func TestDirectManager_WriteSizeAndAlignedSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "direct.db")
	m, err := NewDirectManager(path, 2<<30)
	if err != nil {
		t.Fatalf("NewDirectManager() = %v, want nil", err)
	}
	defer m.Close()

	if err := m.WriteSize(4096); err != nil {
		t.Errorf("WriteSize(4096) = %v, want nil", err)
	}
	if err := m.WriteSize(3 << 30); err == nil {
		t.Errorf("WriteSize(3GB) = nil, want error (exceeds max object size)")
	}

	if got := m.AlignedSize(1); got != directio.AlignSize {
		t.Errorf("AlignedSize(1) = %d, want %d", got, directio.AlignSize)
	}
	if got := m.AlignedSize(directio.AlignSize + 1); got != 2*directio.AlignSize {
		t.Errorf("AlignedSize(AlignSize+1) = %d, want %d", got, 2*directio.AlignSize)
	}
}
