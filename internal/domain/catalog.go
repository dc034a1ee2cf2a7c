package domain

import "time"

// Product — карточка товара из каталога. Для пайплайна расчёта заказа
// важны только активность и атрибуты, попадающие в снапшот позиции корзины.
type Product struct {
	ID        string
	Title     string
	Brand     string
	Photo     string
	IsService bool
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Shipping — способ доставки с фиксированной ценой в минорных единицах.
type Shipping struct {
	ID         string
	Slug       string
	Name       string
	PriceMinor int64
	Active     bool
}

// Currency — валюта для выставления счетов. Rate используется как множитель
// при пересчёте итогов заказа в момент создания счёта.
type Currency struct {
	ID     string
	Slug   string
	Name   string
	Symbol string
	Rate   float64
	Active bool
}

// Seller — продавец, получающий комиссию с заказа.
type Seller struct {
	ID             string
	Name           string
	CommissionRate float64 // доля от базы комиссии, например 0.05
	Active         bool
}

// Client — покупатель. Держит ссылку на единственную активную корзину;
// при успешном расчёте заказа ссылка перенаправляется на новую пустую корзину.
type Client struct {
	ID        string
	Phone     string
	Points    int64
	CartID    string
	OrderIDs  []string
	CreatedAt time.Time
	UpdatedAt time.Time
}
