package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

type variantRepository struct {
	db *sql.DB
}

// NewVariantRepository создаёт PostgreSQL-реализацию VariantRepository.
// Резервирование выполняется одним условным UPDATE: остаток проверяется
// и списывается атомарно, CHECK (quantity >= 0) страхует на уровне схемы.
func NewVariantRepository(store *Store) domain.VariantRepository {
	return &variantRepository{db: store.DB()}
}

func (r *variantRepository) Get(id string) (domain.VariantValue, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var v domain.VariantValue
	err := r.db.QueryRowContext(ctx, `
		SELECT id, product_id, sku, variant1, variant2, variant3,
		       price_minor, compare_at_price_minor, quantity, photo, disabled,
		       created_at, updated_at
		FROM variant_values
		WHERE id = $1
	`, id).Scan(
		&v.ID, &v.ProductID, &v.SKU,
		&v.Attrs.Variant1, &v.Attrs.Variant2, &v.Attrs.Variant3,
		&v.PriceMinor, &v.CompareAtPriceMinor, &v.Quantity, &v.Photo, &v.Disabled,
		&v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.VariantValue{}, domain.ErrVariantNotFound
		}
		return domain.VariantValue{}, fmt.Errorf("select variant: %w", err)
	}

	return v, nil
}

func (r *variantRepository) Create(v domain.VariantValue) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	now := time.Now().UTC()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	if v.UpdatedAt.IsZero() {
		v.UpdatedAt = now
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO variant_values (
			id, product_id, sku, variant1, variant2, variant3,
			price_minor, compare_at_price_minor, quantity, photo, disabled,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`,
		v.ID, v.ProductID, v.SKU,
		v.Attrs.Variant1, v.Attrs.Variant2, v.Attrs.Variant3,
		v.PriceMinor, v.CompareAtPriceMinor, v.Quantity, v.Photo, v.Disabled,
		v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert variant: %w", err)
	}

	return nil
}

func (r *variantRepository) TryReserve(id string, qty int64) error {
	if qty <= 0 {
		return domain.ErrQuantityInvalid
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE variant_values
		SET quantity = quantity - $2,
		    updated_at = NOW()
		WHERE id = $1
		  AND NOT disabled
		  AND quantity >= $2
	`, id, qty)
	if err != nil {
		return fmt.Errorf("reserve variant stock: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for reserve: %w", err)
	}
	if affected > 0 {
		return nil
	}

	// UPDATE ничего не задел: выясняем, какая именно предпосылка нарушена.
	var (
		disabled bool
		quantity int64
	)
	err = r.db.QueryRowContext(ctx, `
		SELECT disabled, quantity FROM variant_values WHERE id = $1
	`, id).Scan(&disabled, &quantity)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrVariantNotFound
	}
	if err != nil {
		return fmt.Errorf("inspect variant after failed reserve: %w", err)
	}
	if disabled {
		return domain.ErrVariantDisabled
	}
	return domain.ErrInsufficientStock
}

func (r *variantRepository) Release(id string, qty int64) error {
	if qty <= 0 {
		return domain.ErrQuantityInvalid
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE variant_values
		SET quantity = quantity + $2,
		    updated_at = NOW()
		WHERE id = $1
	`, id, qty)
	if err != nil {
		return fmt.Errorf("release variant stock: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for release: %w", err)
	}
	if affected == 0 {
		return domain.ErrVariantNotFound
	}

	return nil
}

var _ domain.VariantRepository = (*variantRepository)(nil)
