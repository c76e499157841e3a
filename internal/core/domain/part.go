package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindMotherboard Kind = "motherboard"
	KindCPU         Kind = "cpu"
	KindRAM         Kind = "ram"
	KindDisk        Kind = "disk"
)

func (k Kind) Valid() bool {
	switch k {
	case KindMotherboard, KindCPU, KindRAM, KindDisk:
		return true
	}
	return false
}

// Part is a catalog component. Exactly one of the kind-specific payloads
// is non-nil, selected by Kind.
type Part struct {
	ID           int64
	SerialNumber string
	Kind         Kind
	Price        decimal.Decimal
	Quantity     int
	Brand        string
	Model        string

	Motherboard *MotherboardSpec
	CPU         *CPUSpec
	RAM         *RAMSpec
	Disk        *DiskSpec
}

type MotherboardSpec struct {
	Socket  string
	RAMType string
	// DiskInterfaces is the comma-separated list of supported disk
	// connections as stored in the catalog, e.g. "SATA,NVMe".
	DiskInterfaces string
}

type CPUSpec struct {
	Socket string
	Cores  int
}

type RAMSpec struct {
	MemoryType string
	CapacityGB int
}

type DiskSpec struct {
	Interface  string
	CapacityGB int
}

func (p *Part) String() string {
	return fmt.Sprintf("%s %s %s (serial %s)", p.Brand, p.Model, p.Kind, p.SerialNumber)
}

// SaleLine is a resolved, de-duplicated demand against the stock ledger.
type SaleLine struct {
	PartID   int64
	Quantity int
}

// ResolvedLine pairs a sale line with its catalog part, as needed by the
// compatibility validator and price computation.
type ResolvedLine struct {
	Part     Part
	Quantity int
}
