package domain

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// DocumentSeries — независимая серия контрольных номеров. Накладные и счета
// нумеруются в разных сериях и никогда не делят номера.
type DocumentSeries string

const (
	SeriesDeliveryNote DocumentSeries = "delivery_note"
	SeriesBill         DocumentSeries = "bill"
)

// ControlNumberWidth — фиксированная ширина контрольного номера.
const ControlNumberWidth = 9

// FormatControlNumber дополняет порядковый номер нулями слева
// до девяти знаков.
func FormatControlNumber(n int64) string {
	return fmt.Sprintf("%0*d", ControlNumberWidth, n)
}

// NextControlNumber вычисляет следующий контрольный номер по полному
// набору уже выданных: max+1, дополненный нулями. Для пустого набора
// возвращает "000000001".
//
// Это scan-and-increment из исходной системы; под конкурентной нагрузкой
// стратегия небезопасна, поэтому в рантайме номера выдаёт персистентный
// атомарный счётчик (ControlNumberAllocator), а эта функция используется
// для его первичного заполнения по существующим документам.
func NextControlNumber(existing []string) string {
	var maxSeen int64
	for _, raw := range existing {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		if n > maxSeen {
			maxSeen = n
		}
	}
	return FormatControlNumber(maxSeen + 1)
}

// DeliveryNote — накладная: фискальный документ, выдаваемый по заказу.
// Ссылается ровно на один заказ; у заказа не больше одной накладной.
type DeliveryNote struct {
	ID            string
	ControlNumber string
	OrderID       string
	BillID        string // заполняется после выписки счёта
	Paid          bool
	GeneratedBill bool
	Charges       []Charge
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Validate проверяет обязательные поля накладной.
func (d *DeliveryNote) Validate() []error {
	var errs []error

	if d.ControlNumber == "" {
		errs = append(errs, ErrControlNumberEmpty)
	}
	if d.OrderID == "" {
		errs = append(errs, ErrOrderIDRequired)
	}

	return errs
}

// DocumentLine — строка описания для печатной формы накладной.
// Вычисляется при выдаче документа и не персистится.
type DocumentLine struct {
	Description string
	Amount      string
}

// Bill — счёт, выписанный по накладной. Денежные поля — итоги заказа,
// пересчитанные по курсу rate на момент выписки (не пересчёт из позиций).
type Bill struct {
	ID            string
	ControlNumber string
	OrderID       string
	CurrencyID    string
	Rate          float64
	Paid          bool
	Charges       []Charge

	SubtotalMinor int64
	DiscountMinor int64
	TaxMinor      int64
	TotalMinor    int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate проверяет обязательные поля счёта.
func (b *Bill) Validate() []error {
	var errs []error

	if b.ControlNumber == "" {
		errs = append(errs, ErrControlNumberEmpty)
	}
	if b.OrderID == "" {
		errs = append(errs, ErrOrderIDRequired)
	}

	return errs
}

// RescaleMinor пересчитывает сумму в минорных единицах по курсу.
func RescaleMinor(amountMinor int64, rate float64) int64 {
	return int64(math.Round(float64(amountMinor) * rate))
}
