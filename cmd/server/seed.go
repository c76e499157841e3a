package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/compustore/compustore/internal/core/domain"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load a demo catalog and sync stock levels into the cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		return seed(cmd.Context())
	},
}

func seed(ctx context.Context) error {
	eng, err := buildEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.close()

	price := func(s string) decimal.Decimal {
		d, err := decimal.NewFromString(s)
		if err != nil {
			panic(err)
		}
		return d
	}
	serial := func() string { return uuid.NewString() }

	parts := []domain.Part{
		{
			SerialNumber: serial(), Kind: domain.KindMotherboard,
			Price: price("180.00"), Quantity: 10, Brand: "ASUS", Model: "Prime B550",
			Motherboard: &domain.MotherboardSpec{Socket: "AM4", RAMType: "DDR4", DiskInterfaces: "SATA,NVMe"},
		},
		{
			SerialNumber: serial(), Kind: domain.KindCPU,
			Price: price("220.00"), Quantity: 10, Brand: "AMD", Model: "Ryzen 5 5600",
			CPU: &domain.CPUSpec{Socket: "AM4", Cores: 6},
		},
		{
			SerialNumber: serial(), Kind: domain.KindRAM,
			Price: price("45.00"), Quantity: 20, Brand: "Kingston", Model: "Fury 16GB",
			RAM: &domain.RAMSpec{MemoryType: "DDR4", CapacityGB: 16},
		},
		{
			SerialNumber: serial(), Kind: domain.KindDisk,
			Price: price("55.00"), Quantity: 15, Brand: "WD", Model: "Blue 1TB",
			Disk: &domain.DiskSpec{Interface: "SATA", CapacityGB: 1000},
		},
	}

	comboLines := make([]domain.ComboLine, 0, len(parts))
	for i := range parts {
		partID, err := eng.mysql.InsertPart(ctx, &parts[i])
		if err != nil {
			return fmt.Errorf("seed part %s: %w", parts[i].Model, err)
		}
		slog.Info("seeded part", "part_id", partID, "kind", parts[i].Kind, "model", parts[i].Model)
		comboLines = append(comboLines, domain.ComboLine{PartID: partID, Quantity: 1})
	}

	comboID, err := eng.combos.Create(ctx, &domain.Combo{
		Name:            "Starter AM4 build",
		DiscountPercent: price("10"),
		Lines:           comboLines,
	})
	if err != nil {
		return fmt.Errorf("seed combo: %w", err)
	}
	slog.Info("seeded combo", "combo_id", comboID)

	customerID, err := eng.mysql.InsertCustomer(ctx, &domain.Customer{Name: "Walk-in customer"})
	if err != nil {
		return fmt.Errorf("seed customer: %w", err)
	}
	slog.Info("seeded customer", "customer_id", customerID)

	if err := eng.ledger.SyncCache(ctx); err != nil {
		return fmt.Errorf("sync stock cache: %w", err)
	}
	slog.Info("stock cache synced")

	return nil
}
