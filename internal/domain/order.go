package domain

import "time"

// OrderStatus — числовой код статуса заказа. Коды совместимы с фискальной
// нумерацией исходной системы учёта.
type OrderStatus int

const (
	// OrderStatusPendingPayment — заказ создан, ожидает оплату.
	OrderStatusPendingPayment OrderStatus = 0
	// OrderStatusAdminReview — оплата заявлена, идёт административная проверка.
	OrderStatusAdminReview OrderStatus = 1
	// OrderStatusPaid — оплата подтверждена.
	OrderStatusPaid OrderStatus = 2
	// OrderStatusDelivered — заказ доставлен, цикл завершён.
	OrderStatusDelivered OrderStatus = 3
	// OrderStatusCreditGranted — заказ оформлен в кредит.
	OrderStatusCreditGranted OrderStatus = 4
	// OrderStatusCreditDelivered — кредитный заказ доставлен.
	OrderStatusCreditDelivered OrderStatus = 5
	// OrderStatusCreditPaid — кредит погашен, цикл завершён.
	OrderStatusCreditPaid OrderStatus = 6
	// OrderStatusVoided — заказ аннулирован. Терминальный статус.
	OrderStatusVoided OrderStatus = 7
)

// statusNames — человекочитаемые имена для логов и событий.
var statusNames = map[OrderStatus]string{
	OrderStatusPendingPayment:  "pending_payment",
	OrderStatusAdminReview:     "admin_review",
	OrderStatusPaid:            "paid",
	OrderStatusDelivered:       "delivered",
	OrderStatusCreditGranted:   "credit_granted",
	OrderStatusCreditDelivered: "credit_delivered",
	OrderStatusCreditPaid:      "credit_paid",
	OrderStatusVoided:          "voided",
}

func (s OrderStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// Valid сообщает, относится ли код к известным статусам.
func (s OrderStatus) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// Final сообщает, завершён ли жизненный цикл заказа в этом статусе.
func (s OrderStatus) Final() bool {
	switch s {
	case OrderStatusDelivered, OrderStatusCreditPaid, OrderStatusVoided:
		return true
	default:
		return false
	}
}

// statusTransitions — валидированный граф переходов. Исходная система
// принимала любой код статуса без проверки; здесь нелегальные переходы
// (например voided → paid) отклоняются.
var statusTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPendingPayment:  {OrderStatusAdminReview, OrderStatusCreditGranted, OrderStatusVoided},
	OrderStatusAdminReview:     {OrderStatusPaid, OrderStatusCreditGranted, OrderStatusVoided},
	OrderStatusPaid:            {OrderStatusDelivered, OrderStatusVoided},
	OrderStatusCreditGranted:   {OrderStatusCreditDelivered, OrderStatusVoided},
	OrderStatusCreditDelivered: {OrderStatusCreditPaid, OrderStatusVoided},
}

// CanTransitionTo проверяет допустимость перехода. Переход в тот же
// статус разрешён (повторное применение идемпотентно).
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	if s == next {
		return true
	}
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Charge — запись о платеже по заказу. Список зарядов append-only.
type Charge struct {
	Ref         string
	Method      string
	Bank        string
	Capture     string
	AmountMinor int64
	CreatedAt   time.Time
}

// Order — результат расчёта корзины. Денежные поля вычисляются один раз
// при создании и никогда не пересчитываются; изменяемы только Status,
// Paid и список Charges.
type Order struct {
	ID   string
	Code int64

	Status OrderStatus
	Paid   bool

	SubtotalMinor   int64
	TaxMinor        int64
	ExtraFeesMinor  int64
	DiscountMinor   int64
	TotalMinor      int64
	CommissionMinor int64

	Items []LineItem

	ClientID   string
	SellerID   string
	ShippingID string
	PromoCode  string

	Charges []Charge
	Phone   string
	Address string
	Rate    float64 // курс валюты, зафиксированный при создании заказа

	// SourceCartID — корзина, из которой создан заказ. Уникален: повторный
	// расчёт той же корзины возвращает существующий заказ.
	SourceCartID string

	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateInvariants проверяет арифметику заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.ClientID == "" {
		errs = append(errs, ErrClientRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if !o.Status.Valid() {
		errs = append(errs, ErrStatusTransition)
	}

	for _, amount := range []int64{o.SubtotalMinor, o.TaxMinor, o.ExtraFeesMinor, o.DiscountMinor, o.TotalMinor, o.CommissionMinor} {
		if amount < 0 {
			errs = append(errs, ErrAmountNegative)
			break
		}
	}

	// Сверяем subtotal с суммой позиций и total с его компонентами.
	var calc int64
	for _, item := range o.Items {
		if item.Quantity <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.PriceMinor < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
		calc += item.SubtotalMinor()
	}
	if calc != o.SubtotalMinor {
		errs = append(errs, ErrTotalMismatch)
	}
	if o.SubtotalMinor+o.ExtraFeesMinor-o.DiscountMinor+o.TaxMinor != o.TotalMinor {
		errs = append(errs, ErrTotalMismatch)
	}

	return errs
}
