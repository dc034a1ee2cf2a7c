package memory

import (
	"sort"
	"strconv"
	"sync"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

// deliveryNoteRepositoryInMemory хранит накладные.
type deliveryNoteRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.DeliveryNote
}

// NewDeliveryNoteRepository возвращает in-memory хранилище накладных.
func NewDeliveryNoteRepository() domain.DeliveryNoteRepository {
	return &deliveryNoteRepositoryInMemory{items: make(map[string]domain.DeliveryNote)}
}

func (r *deliveryNoteRepositoryInMemory) Create(note domain.DeliveryNote) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[note.ID]; exists {
		return domain.ErrVersionConflict
	}
	// У заказа не больше одной накладной.
	for _, existing := range r.items {
		if existing.OrderID == note.OrderID {
			return domain.ErrDeliveryNoteExists
		}
	}
	r.items[note.ID] = note
	return nil
}

func (r *deliveryNoteRepositoryInMemory) Get(id string) (domain.DeliveryNote, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	note, ok := r.items[id]
	if !ok {
		return domain.DeliveryNote{}, domain.ErrDeliveryNoteNotFound
	}
	return note, nil
}

func (r *deliveryNoteRepositoryInMemory) GetByOrder(orderID string) (domain.DeliveryNote, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, note := range r.items {
		if note.OrderID == orderID {
			return note, nil
		}
	}
	return domain.DeliveryNote{}, domain.ErrDeliveryNoteNotFound
}

func (r *deliveryNoteRepositoryInMemory) Save(note domain.DeliveryNote) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[note.ID]; !ok {
		return domain.ErrDeliveryNoteNotFound
	}
	r.items[note.ID] = note
	return nil
}

func (r *deliveryNoteRepositoryInMemory) ListControlNumbers() ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	numbers := make([]string, 0, len(r.items))
	for _, note := range r.items {
		numbers = append(numbers, note.ControlNumber)
	}
	sort.Strings(numbers)
	return numbers, nil
}

// billRepositoryInMemory хранит счета.
type billRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Bill
}

// NewBillRepository возвращает in-memory хранилище счетов.
func NewBillRepository() domain.BillRepository {
	return &billRepositoryInMemory{items: make(map[string]domain.Bill)}
}

func (r *billRepositoryInMemory) Create(bill domain.Bill) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[bill.ID]; exists {
		return domain.ErrVersionConflict
	}
	for _, existing := range r.items {
		if existing.OrderID == bill.OrderID {
			return domain.ErrBillExists
		}
	}
	r.items[bill.ID] = bill
	return nil
}

func (r *billRepositoryInMemory) Get(id string) (domain.Bill, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bill, ok := r.items[id]
	if !ok {
		return domain.Bill{}, domain.ErrBillNotFound
	}
	return bill, nil
}

func (r *billRepositoryInMemory) GetByOrder(orderID string) (domain.Bill, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, bill := range r.items {
		if bill.OrderID == orderID {
			return bill, nil
		}
	}
	return domain.Bill{}, domain.ErrBillNotFound
}

func (r *billRepositoryInMemory) ListControlNumbers() ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	numbers := make([]string, 0, len(r.items))
	for _, bill := range r.items {
		numbers = append(numbers, bill.ControlNumber)
	}
	sort.Strings(numbers)
	return numbers, nil
}

// controlNumberAllocatorInMemory — персистентный (в рамках процесса)
// атомарный счётчик контрольных номеров по сериям. Заменяет небезопасный
// scan-and-increment исходной системы: Next линеаризуем, два конкурентных
// вызова по одной серии не возвращают один номер.
type controlNumberAllocatorInMemory struct {
	mu   sync.Mutex
	last map[domain.DocumentSeries]int64
}

// NewControlNumberAllocator создаёт счётчик с пустыми сериями.
func NewControlNumberAllocator() *controlNumberAllocatorInMemory {
	return &controlNumberAllocatorInMemory{last: make(map[domain.DocumentSeries]int64)}
}

// Seed инициализирует серию по уже выданным номерам (max из набора).
// Значение меньше текущего счётчика игнорируется.
func (a *controlNumberAllocatorInMemory) Seed(series domain.DocumentSeries, existing []string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, raw := range existing {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		if n > a.last[series] {
			a.last[series] = n
		}
	}
}

// Next атомарно инкрементирует счётчик серии и возвращает номер.
func (a *controlNumberAllocatorInMemory) Next(series domain.DocumentSeries) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.last[series]++
	return domain.FormatControlNumber(a.last[series]), nil
}

var (
	_ domain.DeliveryNoteRepository = (*deliveryNoteRepositoryInMemory)(nil)
	_ domain.BillRepository         = (*billRepositoryInMemory)(nil)
	_ domain.ControlNumberAllocator = (*controlNumberAllocatorInMemory)(nil)
)
