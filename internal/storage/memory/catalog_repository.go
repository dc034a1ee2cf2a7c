package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

// Каталожные репозитории (товары, доставка, валюты, промокоды, клиенты,
// продавцы) — простые read-mostly словари под RWMutex, без версионирования.

type productRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Product
}

// NewProductRepository возвращает in-memory каталог товаров.
func NewProductRepository() domain.ProductRepository {
	return &productRepositoryInMemory{items: make(map[string]domain.Product)}
}

func (r *productRepositoryInMemory) Get(id string) (domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.items[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return p, nil
}

func (r *productRepositoryInMemory) Create(p domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[p.ID] = p
	return nil
}

type shippingRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Shipping
}

// NewShippingRepository возвращает in-memory справочник доставки.
func NewShippingRepository() domain.ShippingRepository {
	return &shippingRepositoryInMemory{items: make(map[string]domain.Shipping)}
}

// Get возвращает только активные способы доставки.
func (r *shippingRepositoryInMemory) Get(id string) (domain.Shipping, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.items[id]
	if !ok || !s.Active {
		return domain.Shipping{}, domain.ErrShippingNotFound
	}
	return s, nil
}

func (r *shippingRepositoryInMemory) Create(s domain.Shipping) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[s.ID] = s
	return nil
}

type currencyRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Currency
}

// NewCurrencyRepository возвращает in-memory справочник валют.
func NewCurrencyRepository() domain.CurrencyRepository {
	return &currencyRepositoryInMemory{items: make(map[string]domain.Currency)}
}

func (r *currencyRepositoryInMemory) Get(id string) (domain.Currency, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.items[id]
	if !ok {
		return domain.Currency{}, domain.ErrCurrencyNotFound
	}
	return c, nil
}

func (r *currencyRepositoryInMemory) Create(c domain.Currency) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[c.ID] = c
	return nil
}

type promoCodeRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.PromoCode // ключ — code
}

// NewPromoCodeRepository возвращает in-memory хранилище промокодов.
func NewPromoCodeRepository() domain.PromoCodeRepository {
	return &promoCodeRepositoryInMemory{items: make(map[string]domain.PromoCode)}
}

// GetByCode возвращает только активные промокоды; прочее — ErrPromoInvalid.
func (r *promoCodeRepositoryInMemory) GetByCode(code string) (domain.PromoCode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.items[code]
	if !ok || !p.Active {
		return domain.PromoCode{}, domain.ErrPromoInvalid
	}
	return p, nil
}

func (r *promoCodeRepositoryInMemory) Create(p domain.PromoCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[p.Code] = p
	return nil
}

type clientRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Client
}

// NewClientRepository возвращает in-memory хранилище клиентов.
func NewClientRepository() domain.ClientRepository {
	return &clientRepositoryInMemory{items: make(map[string]domain.Client)}
}

func (r *clientRepositoryInMemory) Get(id string) (domain.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.items[id]
	if !ok {
		return domain.Client{}, domain.ErrClientNotFound
	}
	return c, nil
}

func (r *clientRepositoryInMemory) Create(c domain.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[c.ID]; exists {
		return domain.ErrVersionConflict
	}
	r.items[c.ID] = c
	return nil
}

func (r *clientRepositoryInMemory) Save(c domain.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[c.ID]; !ok {
		return domain.ErrClientNotFound
	}
	r.items[c.ID] = c
	return nil
}

type sellerRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Seller
}

// NewSellerRepository возвращает in-memory хранилище продавцов.
func NewSellerRepository() domain.SellerRepository {
	return &sellerRepositoryInMemory{items: make(map[string]domain.Seller)}
}

// Get возвращает только активных продавцов.
func (r *sellerRepositoryInMemory) Get(id string) (domain.Seller, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.items[id]
	if !ok || !s.Active {
		return domain.Seller{}, domain.ErrSellerNotFound
	}
	return s, nil
}

func (r *sellerRepositoryInMemory) Create(s domain.Seller) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[s.ID] = s
	return nil
}

var (
	_ domain.ProductRepository   = (*productRepositoryInMemory)(nil)
	_ domain.ShippingRepository  = (*shippingRepositoryInMemory)(nil)
	_ domain.CurrencyRepository  = (*currencyRepositoryInMemory)(nil)
	_ domain.PromoCodeRepository = (*promoCodeRepositoryInMemory)(nil)
	_ domain.ClientRepository    = (*clientRepositoryInMemory)(nil)
	_ domain.SellerRepository    = (*sellerRepositoryInMemory)(nil)
)
