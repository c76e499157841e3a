package service

import (
	"fmt"
	"strings"

	"github.com/compustore/compustore/internal/core/domain"
)

// ValidateCombo checks that a resolved line set forms a sellable PC combo.
// It is pure: no side effects, no storage access.
//
// Rules are evaluated in a fixed order and the first violation wins, so the
// reason surfaced to the user is deterministic for a given line set:
//
//  1. exactly one motherboard
//  2. exactly one CPU
//  3. at least one RAM line
//  4. at least one disk line
//  5. motherboard socket matches CPU socket
//  6. every RAM line's memory type matches the motherboard
//  7. every disk line's interface is supported by the motherboard
func ValidateCombo(lines []domain.ResolvedLine) error {
	var motherboard, cpu *domain.Part
	motherboards, cpus, rams, disks := 0, 0, 0, 0

	for i := range lines {
		p := &lines[i].Part
		switch p.Kind {
		case domain.KindMotherboard:
			motherboards++
			motherboard = p
		case domain.KindCPU:
			cpus++
			cpu = p
		case domain.KindRAM:
			rams++
		case domain.KindDisk:
			disks++
		}
	}

	switch {
	case motherboards == 0:
		return &domain.IncompatibleComponentsError{Reason: "a combo must include a motherboard"}
	case motherboards > 1:
		return &domain.IncompatibleComponentsError{Reason: "a combo can include only one motherboard"}
	case cpus == 0:
		return &domain.IncompatibleComponentsError{Reason: "a combo must include a CPU"}
	case cpus > 1:
		return &domain.IncompatibleComponentsError{Reason: "a combo can include only one CPU"}
	case rams == 0:
		return &domain.IncompatibleComponentsError{Reason: "a combo must include at least one RAM module"}
	case disks == 0:
		return &domain.IncompatibleComponentsError{Reason: "a combo must include at least one disk"}
	}

	mb := motherboard.Motherboard
	if mb == nil || cpu.CPU == nil {
		return &domain.IncompatibleComponentsError{Reason: "catalog data missing kind-specific attributes"}
	}

	if mb.Socket != cpu.CPU.Socket {
		return &domain.IncompatibleComponentsError{Reason: fmt.Sprintf(
			"motherboard socket %q does not match CPU socket %q", mb.Socket, cpu.CPU.Socket)}
	}

	for i := range lines {
		p := &lines[i].Part
		if p.Kind != domain.KindRAM || p.RAM == nil {
			continue
		}
		if mb.RAMType != p.RAM.MemoryType {
			return &domain.IncompatibleComponentsError{Reason: fmt.Sprintf(
				"motherboard memory type %q does not match RAM type %q", mb.RAMType, p.RAM.MemoryType)}
		}
	}

	for i := range lines {
		p := &lines[i].Part
		if p.Kind != domain.KindDisk || p.Disk == nil {
			continue
		}
		if !strings.Contains(mb.DiskInterfaces, p.Disk.Interface) {
			return &domain.IncompatibleComponentsError{Reason: fmt.Sprintf(
				"disk interface %q is not supported by the motherboard (%s)", p.Disk.Interface, mb.DiskInterfaces)}
		}
	}

	return nil
}

// Compatible reports whether two parts are pairwise hardware-compatible.
// Non-motherboard pairs have no constraint between them and are always
// compatible; the motherboard anchors every check.
func Compatible(a, b *domain.Part) bool {
	if b.Kind == domain.KindMotherboard && a.Kind != domain.KindMotherboard {
		a, b = b, a
	}
	if a.Kind != domain.KindMotherboard || a.Motherboard == nil {
		return true
	}
	mb := a.Motherboard
	switch b.Kind {
	case domain.KindCPU:
		return b.CPU != nil && mb.Socket == b.CPU.Socket
	case domain.KindRAM:
		return b.RAM != nil && mb.RAMType == b.RAM.MemoryType
	case domain.KindDisk:
		return b.Disk != nil && strings.Contains(mb.DiskInterfaces, b.Disk.Interface)
	case domain.KindMotherboard:
		return false
	}
	return true
}
