package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

const orderColumns = `
	id, code, status, paid,
	subtotal_minor, tax_minor, extra_fees_minor, discount_minor, total_minor, commission_minor,
	client_id, seller_id, shipping_id, promo_code,
	phone, address, rate, source_cart_id, charges,
	version, created_at, updated_at`

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
// Идемпотентность расчёта обеспечивается уникальностью source_cart_id;
// Save применяет optimistic locking по колонке version.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

func (r *orderRepository) Create(order domain.Order) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = insertOrderTx(ctx, tx, order); err != nil {
		return err
	}
	if err = attachOrderItemsTx(ctx, tx, order); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create order: %w", err)
	}

	return nil
}

func (r *orderRepository) Get(id string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return r.getByColumn(ctx, "id", id)
}

func (r *orderRepository) GetBySourceCart(cartID string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return r.getByColumn(ctx, "source_cart_id", cartID)
}

func (r *orderRepository) getByColumn(ctx context.Context, column, value string) (domain.Order, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE `+column+` = $1
	`, value)

	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}

	items, err := loadLineItems(ctx, r.db, "order_id", order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Items = items

	return order, nil
}

func (r *orderRepository) ListByClient(clientID string, limit int) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE client_id = $1
		ORDER BY created_at DESC, id DESC
	`

	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = r.db.QueryContext(ctx, query+" LIMIT $2", clientID, limit)
	} else {
		rows, err = r.db.QueryContext(ctx, query, clientID)
	}
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	for i := range orders {
		items, err := loadLineItems(ctx, r.db, "order_id", orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}

	return orders, nil
}

func (r *orderRepository) Save(order domain.Order) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	chargesRaw, err := marshalCharges(order.Charges)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $2,
		    paid = $3,
		    phone = $4,
		    address = $5,
		    charges = $6,
		    version = version + 1,
		    updated_at = $7
		WHERE id = $1
		  AND version = $8
	`,
		order.ID, int(order.Status), order.Paid,
		order.Phone, order.Address, chargesRaw,
		time.Now().UTC(), order.Version,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for order save: %w", err)
	}
	if affected == 0 {
		exists, err := r.orderExists(ctx, order.ID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrOrderNotFound
		}
		return domain.ErrVersionConflict
	}

	return nil
}

func (r *orderRepository) orderExists(ctx context.Context, orderID string) (bool, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `SELECT id FROM orders WHERE id = $1`, orderID).Scan(&id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check order exists: %w", err)
}

// insertOrderTx вставляет строку заказа. Нарушение уникальности
// source_cart_id означает, что корзина уже рассчитана.
func insertOrderTx(ctx context.Context, tx *sql.Tx, order domain.Order) error {
	chargesRaw, err := marshalCharges(order.Charges)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO orders (
			id, code, status, paid,
			subtotal_minor, tax_minor, extra_fees_minor, discount_minor, total_minor, commission_minor,
			client_id, seller_id, shipping_id, promo_code,
			phone, address, rate, source_cart_id, charges,
			version, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)
	`,
		order.ID, order.Code, int(order.Status), order.Paid,
		order.SubtotalMinor, order.TaxMinor, order.ExtraFeesMinor,
		order.DiscountMinor, order.TotalMinor, order.CommissionMinor,
		order.ClientID, order.SellerID, order.ShippingID, order.PromoCode,
		order.Phone, order.Address, order.Rate, order.SourceCartID, chargesRaw,
		order.Version, order.CreatedAt, order.UpdatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrCartAlreadySettled
		}
		return fmt.Errorf("insert order: %w", err)
	}

	return nil
}

// attachOrderItemsTx переводит позиции заказа во владение order_id.
// Существующие позиции корзины обновляются, новые вставляются.
func attachOrderItemsTx(ctx context.Context, tx *sql.Tx, order domain.Order) error {
	for _, item := range order.Items {
		res, err := tx.ExecContext(ctx, `
			UPDATE line_items
			SET cart_id = NULL,
			    order_id = $2,
			    updated_at = NOW()
			WHERE id = $1
		`, item.ID, order.ID)
		if err != nil {
			return fmt.Errorf("attach line item to order: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected for item attach: %w", err)
		}
		if affected > 0 {
			continue
		}

		item.CartID = ""
		item.OrderID = order.ID
		if err := insertLineItem(ctx, tx, item); err != nil {
			return err
		}
	}

	return nil
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		order      domain.Order
		status     int
		chargesRaw []byte
	)
	if err := row.Scan(
		&order.ID, &order.Code, &status, &order.Paid,
		&order.SubtotalMinor, &order.TaxMinor, &order.ExtraFeesMinor,
		&order.DiscountMinor, &order.TotalMinor, &order.CommissionMinor,
		&order.ClientID, &order.SellerID, &order.ShippingID, &order.PromoCode,
		&order.Phone, &order.Address, &order.Rate, &order.SourceCartID, &chargesRaw,
		&order.Version, &order.CreatedAt, &order.UpdatedAt,
	); err != nil {
		return domain.Order{}, err
	}

	order.Status = domain.OrderStatus(status)
	charges, err := unmarshalCharges(chargesRaw)
	if err != nil {
		return domain.Order{}, err
	}
	order.Charges = charges

	return order, nil
}

var _ domain.OrderRepository = (*orderRepository)(nil)
