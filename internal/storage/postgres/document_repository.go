package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

type deliveryNoteRepository struct {
	db *sql.DB
}

// NewDeliveryNoteRepository создаёт PostgreSQL-реализацию DeliveryNoteRepository.
// Уникальность order_id на уровне схемы гарантирует не больше одной
// накладной на заказ.
func NewDeliveryNoteRepository(store *Store) domain.DeliveryNoteRepository {
	return &deliveryNoteRepository{db: store.DB()}
}

func (r *deliveryNoteRepository) Create(note domain.DeliveryNote) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	chargesRaw, err := marshalCharges(note.Charges)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if note.CreatedAt.IsZero() {
		note.CreatedAt = now
	}
	if note.UpdatedAt.IsZero() {
		note.UpdatedAt = now
	}

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO delivery_notes (
			id, control_number, order_id, bill_id, paid, generated_bill,
			charges, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		note.ID, note.ControlNumber, note.OrderID, note.BillID,
		note.Paid, note.GeneratedBill, chargesRaw,
		note.CreatedAt, note.UpdatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDeliveryNoteExists
		}
		return fmt.Errorf("insert delivery note: %w", err)
	}

	return nil
}

func (r *deliveryNoteRepository) Get(id string) (domain.DeliveryNote, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return r.getByColumn(ctx, "id", id)
}

func (r *deliveryNoteRepository) GetByOrder(orderID string) (domain.DeliveryNote, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return r.getByColumn(ctx, "order_id", orderID)
}

func (r *deliveryNoteRepository) getByColumn(ctx context.Context, column, value string) (domain.DeliveryNote, error) {
	var (
		note       domain.DeliveryNote
		chargesRaw []byte
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, control_number, order_id, bill_id, paid, generated_bill,
		       charges, created_at, updated_at
		FROM delivery_notes
		WHERE `+column+` = $1
	`, value).Scan(
		&note.ID, &note.ControlNumber, &note.OrderID, &note.BillID,
		&note.Paid, &note.GeneratedBill, &chargesRaw,
		&note.CreatedAt, &note.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.DeliveryNote{}, domain.ErrDeliveryNoteNotFound
		}
		return domain.DeliveryNote{}, fmt.Errorf("select delivery note: %w", err)
	}

	charges, err := unmarshalCharges(chargesRaw)
	if err != nil {
		return domain.DeliveryNote{}, err
	}
	note.Charges = charges

	return note, nil
}

func (r *deliveryNoteRepository) Save(note domain.DeliveryNote) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE delivery_notes
		SET bill_id = $2,
		    paid = $3,
		    generated_bill = $4,
		    updated_at = $5
		WHERE id = $1
	`, note.ID, note.BillID, note.Paid, note.GeneratedBill, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update delivery note: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for delivery note save: %w", err)
	}
	if affected == 0 {
		return domain.ErrDeliveryNoteNotFound
	}

	return nil
}

func (r *deliveryNoteRepository) ListControlNumbers() ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return listControlNumbers(ctx, r.db, "delivery_notes")
}

type billRepository struct {
	db *sql.DB
}

// NewBillRepository создаёт PostgreSQL-реализацию BillRepository.
func NewBillRepository(store *Store) domain.BillRepository {
	return &billRepository{db: store.DB()}
}

func (r *billRepository) Create(bill domain.Bill) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	chargesRaw, err := marshalCharges(bill.Charges)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if bill.CreatedAt.IsZero() {
		bill.CreatedAt = now
	}
	if bill.UpdatedAt.IsZero() {
		bill.UpdatedAt = now
	}

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO bills (
			id, control_number, order_id, currency_id, rate, paid, charges,
			subtotal_minor, discount_minor, tax_minor, total_minor,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`,
		bill.ID, bill.ControlNumber, bill.OrderID, bill.CurrencyID,
		bill.Rate, bill.Paid, chargesRaw,
		bill.SubtotalMinor, bill.DiscountMinor, bill.TaxMinor, bill.TotalMinor,
		bill.CreatedAt, bill.UpdatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrBillExists
		}
		return fmt.Errorf("insert bill: %w", err)
	}

	return nil
}

func (r *billRepository) Get(id string) (domain.Bill, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return r.getByColumn(ctx, "id", id)
}

func (r *billRepository) GetByOrder(orderID string) (domain.Bill, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return r.getByColumn(ctx, "order_id", orderID)
}

func (r *billRepository) getByColumn(ctx context.Context, column, value string) (domain.Bill, error) {
	var (
		bill       domain.Bill
		chargesRaw []byte
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, control_number, order_id, currency_id, rate, paid, charges,
		       subtotal_minor, discount_minor, tax_minor, total_minor,
		       created_at, updated_at
		FROM bills
		WHERE `+column+` = $1
	`, value).Scan(
		&bill.ID, &bill.ControlNumber, &bill.OrderID, &bill.CurrencyID,
		&bill.Rate, &bill.Paid, &chargesRaw,
		&bill.SubtotalMinor, &bill.DiscountMinor, &bill.TaxMinor, &bill.TotalMinor,
		&bill.CreatedAt, &bill.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Bill{}, domain.ErrBillNotFound
		}
		return domain.Bill{}, fmt.Errorf("select bill: %w", err)
	}

	charges, err := unmarshalCharges(chargesRaw)
	if err != nil {
		return domain.Bill{}, err
	}
	bill.Charges = charges

	return bill, nil
}

func (r *billRepository) ListControlNumbers() ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return listControlNumbers(ctx, r.db, "bills")
}

func listControlNumbers(ctx context.Context, db querier, table string) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT control_number FROM `+table+` ORDER BY control_number`)
	if err != nil {
		return nil, fmt.Errorf("list control numbers: %w", err)
	}
	defer rows.Close()

	numbers := make([]string, 0)
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan control number: %w", err)
		}
		numbers = append(numbers, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate control numbers: %w", err)
	}

	return numbers, nil
}

type controlNumberAllocator struct {
	db *sql.DB
}

// NewControlNumberAllocator создаёт персистентный линеаризуемый счётчик
// контрольных номеров. Инкремент выполняется одним upsert: два конкурентных
// Next по одной серии сериализуются блокировкой строки и никогда не выдают
// одинаковый номер.
func NewControlNumberAllocator(store *Store) domain.ControlNumberAllocator {
	return &controlNumberAllocator{db: store.DB()}
}

func (a *controlNumberAllocator) Next(series domain.DocumentSeries) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var last int64
	err := a.db.QueryRowContext(ctx, `
		INSERT INTO control_numbers (series, last)
		VALUES ($1, 1)
		ON CONFLICT (series) DO UPDATE
		SET last = control_numbers.last + 1
		RETURNING last
	`, string(series)).Scan(&last)
	if err != nil {
		return "", fmt.Errorf("allocate control number: %w", err)
	}

	return domain.FormatControlNumber(last), nil
}

// Seed поднимает счётчик серии до max(existing), не опуская его.
// Используется при первичном заполнении по уже выданным документам.
func (a *controlNumberAllocator) Seed(series domain.DocumentSeries, existing []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	next := domain.NextControlNumber(existing)
	var last int64
	if _, err := fmt.Sscanf(next, "%d", &last); err != nil {
		return fmt.Errorf("parse seeded control number: %w", err)
	}
	last-- // NextControlNumber возвращает max+1, счётчик хранит max

	if _, err := a.db.ExecContext(ctx, `
		INSERT INTO control_numbers (series, last)
		VALUES ($1, $2)
		ON CONFLICT (series) DO UPDATE
		SET last = GREATEST(control_numbers.last, EXCLUDED.last)
	`, string(series), last); err != nil {
		return fmt.Errorf("seed control number series: %w", err)
	}

	return nil
}

var (
	_ domain.DeliveryNoteRepository = (*deliveryNoteRepository)(nil)
	_ domain.BillRepository         = (*billRepository)(nil)
	_ domain.ControlNumberAllocator = (*controlNumberAllocator)(nil)
)
