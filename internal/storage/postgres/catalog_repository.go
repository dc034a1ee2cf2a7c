package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

type productRepository struct {
	db *sql.DB
}

// NewProductRepository создаёт PostgreSQL-реализацию ProductRepository.
func NewProductRepository(store *Store) domain.ProductRepository {
	return &productRepository{db: store.DB()}
}

func (r *productRepository) Get(id string) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var p domain.Product
	err := r.db.QueryRowContext(ctx, `
		SELECT id, title, brand, photo, is_service, active, created_at, updated_at
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Title, &p.Brand, &p.Photo, &p.IsService, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("select product: %w", err)
	}

	return p, nil
}

func (r *productRepository) Create(p domain.Product) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO products (id, title, brand, photo, is_service, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, p.ID, p.Title, p.Brand, p.Photo, p.IsService, p.Active, p.CreatedAt, p.UpdatedAt); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}

	return nil
}

type shippingRepository struct {
	db *sql.DB
}

// NewShippingRepository создаёт PostgreSQL-реализацию ShippingRepository.
// Get возвращает только активные способы доставки.
func NewShippingRepository(store *Store) domain.ShippingRepository {
	return &shippingRepository{db: store.DB()}
}

func (r *shippingRepository) Get(id string) (domain.Shipping, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var s domain.Shipping
	err := r.db.QueryRowContext(ctx, `
		SELECT id, slug, name, price_minor, active
		FROM shipping_methods
		WHERE id = $1 AND active
	`, id).Scan(&s.ID, &s.Slug, &s.Name, &s.PriceMinor, &s.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Shipping{}, domain.ErrShippingNotFound
		}
		return domain.Shipping{}, fmt.Errorf("select shipping: %w", err)
	}

	return s, nil
}

func (r *shippingRepository) Create(s domain.Shipping) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO shipping_methods (id, slug, name, price_minor, active)
		VALUES ($1,$2,$3,$4,$5)
	`, s.ID, s.Slug, s.Name, s.PriceMinor, s.Active); err != nil {
		return fmt.Errorf("insert shipping: %w", err)
	}

	return nil
}

type currencyRepository struct {
	db *sql.DB
}

// NewCurrencyRepository создаёт PostgreSQL-реализацию CurrencyRepository.
func NewCurrencyRepository(store *Store) domain.CurrencyRepository {
	return &currencyRepository{db: store.DB()}
}

func (r *currencyRepository) Get(id string) (domain.Currency, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var c domain.Currency
	err := r.db.QueryRowContext(ctx, `
		SELECT id, slug, name, symbol, rate, active
		FROM currencies
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Slug, &c.Name, &c.Symbol, &c.Rate, &c.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Currency{}, domain.ErrCurrencyNotFound
		}
		return domain.Currency{}, fmt.Errorf("select currency: %w", err)
	}

	return c, nil
}

func (r *currencyRepository) Create(c domain.Currency) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO currencies (id, slug, name, symbol, rate, active)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, c.ID, c.Slug, c.Name, c.Symbol, c.Rate, c.Active); err != nil {
		return fmt.Errorf("insert currency: %w", err)
	}

	return nil
}

type promoCodeRepository struct {
	db *sql.DB
}

// NewPromoCodeRepository создаёт PostgreSQL-реализацию PromoCodeRepository.
// GetByCode возвращает только активные промокоды; проверка срока действия
// остаётся за вызывающим кодом.
func NewPromoCodeRepository(store *Store) domain.PromoCodeRepository {
	return &promoCodeRepository{db: store.DB()}
}

func (r *promoCodeRepository) GetByCode(code string) (domain.PromoCode, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var p domain.PromoCode
	err := r.db.QueryRowContext(ctx, `
		SELECT id, slug, name, code, discount, fixed, percentage,
		       expiration_date, active, created_at, updated_at
		FROM promo_codes
		WHERE code = $1 AND active
	`, code).Scan(
		&p.ID, &p.Slug, &p.Name, &p.Code, &p.Discount, &p.Fixed, &p.Percentage,
		&p.ExpirationDate, &p.Active, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.PromoCode{}, domain.ErrPromoInvalid
		}
		return domain.PromoCode{}, fmt.Errorf("select promo code: %w", err)
	}

	return p, nil
}

func (r *promoCodeRepository) Create(p domain.PromoCode) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO promo_codes (
			id, slug, name, code, discount, fixed, percentage,
			expiration_date, active, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`,
		p.ID, p.Slug, p.Name, p.Code, p.Discount, p.Fixed, p.Percentage,
		p.ExpirationDate, p.Active, p.CreatedAt, p.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert promo code: %w", err)
	}

	return nil
}

type clientRepository struct {
	db *sql.DB
}

// NewClientRepository создаёт PostgreSQL-реализацию ClientRepository.
// Список заказов клиента хранится JSONB-колонкой в порядке добавления.
func NewClientRepository(store *Store) domain.ClientRepository {
	return &clientRepository{db: store.DB()}
}

func (r *clientRepository) Get(id string) (domain.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var (
		c           domain.Client
		orderIDsRaw []byte
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, phone, points, cart_id, order_ids, created_at, updated_at
		FROM clients
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Phone, &c.Points, &c.CartID, &orderIDsRaw, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Client{}, domain.ErrClientNotFound
		}
		return domain.Client{}, fmt.Errorf("select client: %w", err)
	}

	if len(orderIDsRaw) > 0 {
		if err := json.Unmarshal(orderIDsRaw, &c.OrderIDs); err != nil {
			return domain.Client{}, fmt.Errorf("unmarshal client order ids: %w", err)
		}
	}
	if len(c.OrderIDs) == 0 {
		c.OrderIDs = nil
	}

	return c, nil
}

func (r *clientRepository) Create(c domain.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	orderIDsRaw, err := marshalOrderIDs(c.OrderIDs)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = now
	}

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO clients (id, phone, points, cart_id, order_ids, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, c.ID, c.Phone, c.Points, c.CartID, orderIDsRaw, c.CreatedAt, c.UpdatedAt); err != nil {
		return fmt.Errorf("insert client: %w", err)
	}

	return nil
}

func (r *clientRepository) Save(c domain.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	orderIDsRaw, err := marshalOrderIDs(c.OrderIDs)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE clients
		SET phone = $2,
		    points = $3,
		    cart_id = $4,
		    order_ids = $5,
		    updated_at = $6
		WHERE id = $1
	`, c.ID, c.Phone, c.Points, c.CartID, orderIDsRaw, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update client: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for client save: %w", err)
	}
	if affected == 0 {
		return domain.ErrClientNotFound
	}

	return nil
}

func marshalOrderIDs(ids []string) ([]byte, error) {
	if ids == nil {
		ids = []string{}
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("marshal client order ids: %w", err)
	}
	return raw, nil
}

type sellerRepository struct {
	db *sql.DB
}

// NewSellerRepository создаёт PostgreSQL-реализацию SellerRepository.
// Get возвращает только активных продавцов.
func NewSellerRepository(store *Store) domain.SellerRepository {
	return &sellerRepository{db: store.DB()}
}

func (r *sellerRepository) Get(id string) (domain.Seller, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var s domain.Seller
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, commission_rate, active
		FROM sellers
		WHERE id = $1 AND active
	`, id).Scan(&s.ID, &s.Name, &s.CommissionRate, &s.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Seller{}, domain.ErrSellerNotFound
		}
		return domain.Seller{}, fmt.Errorf("select seller: %w", err)
	}

	return s, nil
}

func (r *sellerRepository) Create(s domain.Seller) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO sellers (id, name, commission_rate, active)
		VALUES ($1,$2,$3,$4)
	`, s.ID, s.Name, s.CommissionRate, s.Active); err != nil {
		return fmt.Errorf("insert seller: %w", err)
	}

	return nil
}

var (
	_ domain.ProductRepository   = (*productRepository)(nil)
	_ domain.ShippingRepository  = (*shippingRepository)(nil)
	_ domain.CurrencyRepository  = (*currencyRepository)(nil)
	_ domain.PromoCodeRepository = (*promoCodeRepository)(nil)
	_ domain.ClientRepository    = (*clientRepository)(nil)
	_ domain.SellerRepository    = (*sellerRepository)(nil)
)
