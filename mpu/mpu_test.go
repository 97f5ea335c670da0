package mpu_test

import (
	"errors"
	"testing"

	"github.com/tock/tock-sub011/mpu"
)

func testBounds() mpu.Bounds {
	return mpu.Bounds{
		Flash:       mpu.Region{Base: 0x0000, Length: 0x1000, Permissions: mpu.PermRead | mpu.PermExecute},
		RAM:         mpu.Region{Base: 0x2000, Length: 0x1000},
		MemoryBreak: 0x2000 + 0x800, // lower half is user-visible
	}
}

func TestAllocateRegionWithinFlash(t *testing.T) {
	m := mpu.NewSimMPU()
	cfg := mpu.NewConfig(testBounds())

	r, err := m.AllocateRegion(cfg, 0x0100, 0x100, mpu.PermRead|mpu.PermExecute)
	if err != nil {
		t.Fatalf("AllocateRegion() error = %v", err)
	}
	if r.Base != 0x0100 || r.Length != 0x100 {
		t.Fatalf("unexpected region: %+v", r)
	}
}

func TestAllocateRegionRejectsGrantArea(t *testing.T) {
	m := mpu.NewSimMPU()
	cfg := mpu.NewConfig(testBounds())

	// Above the memory break is the kernel-owned grant area; never MPU-exposed.
	_, err := m.AllocateRegion(cfg, 0x2000+0x900, 0x10, mpu.PermRead|mpu.PermWrite)
	if !errors.Is(err, mpu.ErrOutOfBounds) {
		t.Fatalf("AllocateRegion() error = %v, want ErrOutOfBounds", err)
	}
}

func TestAllocateRegionRejectsOverlap(t *testing.T) {
	m := mpu.NewSimMPU()
	cfg := mpu.NewConfig(testBounds())

	if _, err := m.AllocateRegion(cfg, 0x2000, 0x100, mpu.PermRead|mpu.PermWrite); err != nil {
		t.Fatalf("first AllocateRegion() error = %v", err)
	}
	if _, err := m.AllocateRegion(cfg, 0x2050, 0x10, mpu.PermRead); !errors.Is(err, mpu.ErrOverlap) {
		t.Fatalf("second AllocateRegion() error = %v, want ErrOverlap", err)
	}
}

func TestAllocateRegionRejectsWhenFull(t *testing.T) {
	m := mpu.NewSimMPU()
	cfg := mpu.NewConfig(testBounds())

	for i := 0; i < mpu.MaxRegions; i++ {
		base := uintptr(i * 0x10)
		if _, err := m.AllocateRegion(cfg, base, 0x8, mpu.PermRead); err != nil {
			t.Fatalf("AllocateRegion(%d) error = %v", i, err)
		}
	}
	if _, err := m.AllocateRegion(cfg, uintptr(mpu.MaxRegions*0x10), 0x8, mpu.PermRead); !errors.Is(err, mpu.ErrTooManyRegions) {
		t.Fatalf("overflow AllocateRegion() error = %v, want ErrTooManyRegions", err)
	}
}

func TestCheckAccess(t *testing.T) {
	m := mpu.NewSimMPU()
	cfg := mpu.NewConfig(testBounds())
	if _, err := m.AllocateRegion(cfg, 0x2000, 0x100, mpu.PermRead|mpu.PermWrite); err != nil {
		t.Fatalf("AllocateRegion() error = %v", err)
	}

	if err := m.CheckAccess(cfg, 0x2010, 0x10, mpu.PermRead); err != nil {
		t.Fatalf("CheckAccess() in-range error = %v", err)
	}

	err := m.CheckAccess(cfg, 0x2010, 0x10, mpu.PermExecute)
	var fault mpu.Fault
	if !errors.As(err, &fault) {
		t.Fatalf("CheckAccess() wrong-permission error = %v, want mpu.Fault", err)
	}
}

func TestConfigureRevalidatesAfterBreakMove(t *testing.T) {
	m := mpu.NewSimMPU()
	cfg := mpu.NewConfig(testBounds())
	if _, err := m.AllocateRegion(cfg, 0x2700, 0x100, mpu.PermRead|mpu.PermWrite); err != nil {
		t.Fatalf("AllocateRegion() error = %v", err)
	}

	cfg.SetBreak(0x2000 + 0x400) // move break below the already-allocated region
	if err := m.Configure(cfg); !errors.Is(err, mpu.ErrOutOfBounds) {
		t.Fatalf("Configure() after break move error = %v, want ErrOutOfBounds", err)
	}
}
