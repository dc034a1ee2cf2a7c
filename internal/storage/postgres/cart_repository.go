package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

const lineItemColumns = `
	id, title, brand, photo, is_service, active,
	sku, variant1, variant2, variant3, price_minor, quantity,
	product_id, variant_value_id, cart_id, order_id,
	created_at, updated_at`

type cartRepository struct {
	db *sql.DB
}

// NewCartRepository создаёт PostgreSQL-реализацию CartRepository.
// Позиции хранятся в общей таблице line_items; владелец позиции задан
// ровно одной из колонок cart_id/order_id (CHECK на уровне схемы).
func NewCartRepository(store *Store) domain.CartRepository {
	return &cartRepository{db: store.DB()}
}

func (r *cartRepository) Get(id string) (domain.Cart, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var cart domain.Cart
	err := r.db.QueryRowContext(ctx, `
		SELECT id, client_id, settled, version, created_at, updated_at
		FROM carts
		WHERE id = $1
	`, id).Scan(&cart.ID, &cart.ClientID, &cart.Settled, &cart.Version, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Cart{}, domain.ErrCartNotFound
		}
		return domain.Cart{}, fmt.Errorf("select cart: %w", err)
	}

	items, err := loadLineItems(ctx, r.db, "cart_id", cart.ID)
	if err != nil {
		return domain.Cart{}, err
	}
	cart.Items = items

	return cart, nil
}

func (r *cartRepository) Create(cart domain.Cart) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	now := time.Now().UTC()
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}
	if cart.UpdatedAt.IsZero() {
		cart.UpdatedAt = now
	}

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO carts (id, client_id, settled, version, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, cart.ID, cart.ClientID, cart.Settled, cart.Version, cart.CreatedAt, cart.UpdatedAt); err != nil {
		return fmt.Errorf("insert cart: %w", err)
	}

	return nil
}

func (r *cartRepository) AddItem(item domain.LineItem) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := insertLineItem(ctx, r.db, item); err != nil {
		return err
	}
	return nil
}

func (r *cartRepository) GetItem(lineItemID string) (domain.LineItem, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		SELECT `+lineItemColumns+`
		FROM line_items
		WHERE id = $1
	`, lineItemID)

	item, err := scanLineItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.LineItem{}, domain.ErrLineItemNotFound
		}
		return domain.LineItem{}, fmt.Errorf("select line item: %w", err)
	}

	return item, nil
}

func (r *cartRepository) SaveItem(item domain.LineItem) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE line_items
		SET quantity = $2,
		    updated_at = $3
		WHERE id = $1
	`, item.ID, item.Quantity, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update line item: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for line item save: %w", err)
	}
	if affected == 0 {
		return domain.ErrLineItemNotFound
	}

	return nil
}

func (r *cartRepository) RemoveItem(lineItemID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM line_items WHERE id = $1`, lineItemID)
	if err != nil {
		return fmt.Errorf("delete line item: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for line item delete: %w", err)
	}
	if affected == 0 {
		return domain.ErrLineItemNotFound
	}

	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func insertLineItem(ctx context.Context, db execer, item domain.LineItem) error {
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = now
	}

	if _, err := db.ExecContext(ctx, `
		INSERT INTO line_items (
			id, title, brand, photo, is_service, active,
			sku, variant1, variant2, variant3, price_minor, quantity,
			product_id, variant_value_id, cart_id, order_id,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
	`,
		item.ID, item.Title, item.Brand, item.Photo, item.IsService, item.Active,
		item.SKU, item.Attrs.Variant1, item.Attrs.Variant2, item.Attrs.Variant3,
		item.PriceMinor, item.Quantity,
		item.ProductID, item.VariantValueID,
		nullableID(item.CartID), nullableID(item.OrderID),
		item.CreatedAt, item.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert line item: %w", err)
	}

	return nil
}

func loadLineItems(ctx context.Context, db querier, ownerColumn, ownerID string) ([]domain.LineItem, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+lineItemColumns+`
		FROM line_items
		WHERE `+ownerColumn+` = $1
		ORDER BY created_at ASC, id ASC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("load line items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.LineItem, 0)
	for rows.Next() {
		item, err := scanLineItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan line item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate line items: %w", err)
	}

	return items, nil
}

func scanLineItem(row rowScanner) (domain.LineItem, error) {
	var (
		item    domain.LineItem
		cartID  sql.NullString
		orderID sql.NullString
	)
	if err := row.Scan(
		&item.ID, &item.Title, &item.Brand, &item.Photo, &item.IsService, &item.Active,
		&item.SKU, &item.Attrs.Variant1, &item.Attrs.Variant2, &item.Attrs.Variant3,
		&item.PriceMinor, &item.Quantity,
		&item.ProductID, &item.VariantValueID, &cartID, &orderID,
		&item.CreatedAt, &item.UpdatedAt,
	); err != nil {
		return domain.LineItem{}, err
	}

	item.CartID = cartID.String
	item.OrderID = orderID.String

	return item, nil
}

func nullableID(id string) sql.NullString {
	return sql.NullString{String: id, Valid: id != ""}
}

var _ domain.CartRepository = (*cartRepository)(nil)
