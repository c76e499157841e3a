package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/compustore/compustore/internal/core/domain"
)

const partColumns = `part_id, serial_number, kind, price, quantity, brand, model,
	socket, ram_type, disk_interfaces, cores, memory_type, capacity_gb, disk_interface`

func (m *MySQLAdapter) ResolvePart(ctx context.Context, partID int64) (*domain.Part, error) {
	row := m.db.QueryRowContext(ctx,
		`SELECT `+partColumns+` FROM parts WHERE part_id = ?`, partID)

	part, err := scanPart(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query part %d: %w", partID, err)
	}
	return part, nil
}

func (m *MySQLAdapter) PartsByKind(ctx context.Context, kind domain.Kind) ([]domain.Part, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT `+partColumns+` FROM parts WHERE kind = ? ORDER BY part_id`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("query parts by kind: %w", err)
	}
	defer rows.Close()

	var parts []domain.Part
	for rows.Next() {
		part, err := scanPart(rows)
		if err != nil {
			return nil, fmt.Errorf("scan part: %w", err)
		}
		parts = append(parts, *part)
	}
	return parts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanPart maps the single-table variant columns onto the kind-specific
// payload the part's kind selects.
func scanPart(row rowScanner) (*domain.Part, error) {
	var p domain.Part
	var socket, ramType, diskInterfaces, memoryType, diskInterface sql.NullString
	var cores, capacityGB sql.NullInt64

	err := row.Scan(
		&p.ID, &p.SerialNumber, &p.Kind, &p.Price, &p.Quantity, &p.Brand, &p.Model,
		&socket, &ramType, &diskInterfaces, &cores, &memoryType, &capacityGB, &diskInterface,
	)
	if err != nil {
		return nil, err
	}

	switch p.Kind {
	case domain.KindMotherboard:
		p.Motherboard = &domain.MotherboardSpec{
			Socket:         socket.String,
			RAMType:        ramType.String,
			DiskInterfaces: diskInterfaces.String,
		}
	case domain.KindCPU:
		p.CPU = &domain.CPUSpec{
			Socket: socket.String,
			Cores:  int(cores.Int64),
		}
	case domain.KindRAM:
		p.RAM = &domain.RAMSpec{
			MemoryType: memoryType.String,
			CapacityGB: int(capacityGB.Int64),
		}
	case domain.KindDisk:
		p.Disk = &domain.DiskSpec{
			Interface:  diskInterface.String,
			CapacityGB: int(capacityGB.Int64),
		}
	}

	return &p, nil
}

func (m *MySQLAdapter) ResolveCombo(ctx context.Context, comboID int64) (*domain.Combo, error) {
	var combo domain.Combo
	err := m.db.QueryRowContext(ctx,
		`SELECT combo_id, name, discount_percent FROM combos WHERE combo_id = ?`, comboID,
	).Scan(&combo.ID, &combo.Name, &combo.DiscountPercent)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrComboNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query combo %d: %w", comboID, err)
	}

	rows, err := m.db.QueryContext(ctx,
		`SELECT part_id, quantity FROM combo_lines WHERE combo_id = ? ORDER BY part_id`, comboID)
	if err != nil {
		return nil, fmt.Errorf("query combo lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line domain.ComboLine
		if err := rows.Scan(&line.PartID, &line.Quantity); err != nil {
			return nil, fmt.Errorf("scan combo line: %w", err)
		}
		combo.Lines = append(combo.Lines, line)
	}
	return &combo, rows.Err()
}

func (m *MySQLAdapter) CustomerExists(ctx context.Context, customerID int64) (bool, error) {
	var exists bool
	err := m.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM customers WHERE customer_id = ?)`, customerID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check customer: %w", err)
	}
	return exists, nil
}

func (m *MySQLAdapter) InsertCombo(ctx context.Context, combo *domain.Combo) (int64, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO combos (name, discount_percent) VALUES (?, ?)`,
		combo.Name, combo.DiscountPercent)
	if err != nil {
		return 0, fmt.Errorf("insert combo: %w", err)
	}
	comboID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("combo id: %w", err)
	}

	if err := insertComboLines(ctx, tx, comboID, combo.Lines); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit combo: %w", err)
	}
	return comboID, nil
}

func (m *MySQLAdapter) UpdateCombo(ctx context.Context, combo *domain.Combo) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE combos SET name = ?, discount_percent = ? WHERE combo_id = ?`,
		combo.Name, combo.DiscountPercent, combo.ID)
	if err != nil {
		return fmt.Errorf("update combo: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		// Distinguish a missing combo from an unchanged one.
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM combos WHERE combo_id = ?)`, combo.ID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("check combo: %w", err)
		}
		if !exists {
			return domain.ErrComboNotFound
		}
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM combo_lines WHERE combo_id = ?`, combo.ID); err != nil {
		return fmt.Errorf("clear combo lines: %w", err)
	}
	if err := insertComboLines(ctx, tx, combo.ID, combo.Lines); err != nil {
		return err
	}
	return tx.Commit()
}

func insertComboLines(ctx context.Context, tx *sql.Tx, comboID int64, lines []domain.ComboLine) error {
	for _, line := range lines {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO combo_lines (combo_id, part_id, quantity) VALUES (?, ?, ?)`,
			comboID, line.PartID, line.Quantity); err != nil {
			return fmt.Errorf("insert combo line: %w", err)
		}
	}
	return nil
}

func (m *MySQLAdapter) DeleteCombo(ctx context.Context, comboID int64) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM combo_lines WHERE combo_id = ?`, comboID); err != nil {
		return fmt.Errorf("delete combo lines: %w", err)
	}
	result, err := tx.ExecContext(ctx,
		`DELETE FROM combos WHERE combo_id = ?`, comboID)
	if err != nil {
		return fmt.Errorf("delete combo: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return domain.ErrComboNotFound
	}
	return tx.Commit()
}

func (m *MySQLAdapter) ListCombos(ctx context.Context) ([]domain.Combo, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT combo_id, name, discount_percent FROM combos ORDER BY combo_id`)
	if err != nil {
		return nil, fmt.Errorf("query combos: %w", err)
	}
	defer rows.Close()

	var combos []domain.Combo
	for rows.Next() {
		var combo domain.Combo
		if err := rows.Scan(&combo.ID, &combo.Name, &combo.DiscountPercent); err != nil {
			return nil, fmt.Errorf("scan combo: %w", err)
		}
		combos = append(combos, combo)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range combos {
		full, err := m.ResolveCombo(ctx, combos[i].ID)
		if err != nil {
			return nil, err
		}
		combos[i].Lines = full.Lines
	}
	return combos, nil
}

// InsertPart adds a catalog part; used by the seed command.
func (m *MySQLAdapter) InsertPart(ctx context.Context, p *domain.Part) (int64, error) {
	var socket, ramType, diskInterfaces, memoryType, diskInterface sql.NullString
	var cores, capacityGB sql.NullInt64

	switch p.Kind {
	case domain.KindMotherboard:
		socket = sql.NullString{String: p.Motherboard.Socket, Valid: true}
		ramType = sql.NullString{String: p.Motherboard.RAMType, Valid: true}
		diskInterfaces = sql.NullString{String: p.Motherboard.DiskInterfaces, Valid: true}
	case domain.KindCPU:
		socket = sql.NullString{String: p.CPU.Socket, Valid: true}
		cores = sql.NullInt64{Int64: int64(p.CPU.Cores), Valid: true}
	case domain.KindRAM:
		memoryType = sql.NullString{String: p.RAM.MemoryType, Valid: true}
		capacityGB = sql.NullInt64{Int64: int64(p.RAM.CapacityGB), Valid: true}
	case domain.KindDisk:
		diskInterface = sql.NullString{String: p.Disk.Interface, Valid: true}
		capacityGB = sql.NullInt64{Int64: int64(p.Disk.CapacityGB), Valid: true}
	default:
		return 0, fmt.Errorf("insert part: unknown kind %q", p.Kind)
	}

	result, err := m.db.ExecContext(ctx, `
		INSERT INTO parts (serial_number, kind, price, quantity, brand, model,
			socket, ram_type, disk_interfaces, cores, memory_type, capacity_gb, disk_interface)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.SerialNumber, string(p.Kind), p.Price, p.Quantity, p.Brand, p.Model,
		socket, ramType, diskInterfaces, cores, memoryType, capacityGB, diskInterface,
	)
	if err != nil {
		return 0, fmt.Errorf("insert part: %w", err)
	}
	return result.LastInsertId()
}

// InsertCustomer adds a customer; used by the seed command.
func (m *MySQLAdapter) InsertCustomer(ctx context.Context, c *domain.Customer) (int64, error) {
	result, err := m.db.ExecContext(ctx,
		`INSERT INTO customers (name) VALUES (?)`, c.Name)
	if err != nil {
		return 0, fmt.Errorf("insert customer: %w", err)
	}
	return result.LastInsertId()
}
