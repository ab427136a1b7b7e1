package domain

// StockMovementKind — направление движения остатка.
type StockMovementKind string

const (
	// Списание под заказ.
	StockMovementDeduct StockMovementKind = "deduct"
	// Возврат на склад.
	StockMovementRestore StockMovementKind = "restore"
)

// StockLine — суммарное количество одного товара в заказе.
type StockLine struct {
	ProductID string
	Quantity  int64
}

// StockLines сворачивает позиции заказа по товарам с сохранением порядка первого появления.
// Одинаковый товар в двух позициях проверяется и списывается одной суммой.
func StockLines(items []OrderItem) []StockLine {
	lines := make([]StockLine, 0, len(items))
	index := make(map[string]int, len(items))
	for _, item := range items {
		if i, ok := index[item.ProductID]; ok {
			lines[i].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(lines)
		lines = append(lines, StockLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return lines
}

// StockMovement фиксирует применённое изменение остатка; используется для компенсаций.
type StockMovement struct {
	Kind      StockMovementKind
	ProductID string
	Quantity  int64
}

// Validate проверяет строку движения.
func (m *StockMovement) Validate() []error {
	var errs []error

	if m.ProductID == "" {
		errs = append(errs, ErrItemProductRequired)
	}
	if m.Quantity <= 0 {
		errs = append(errs, ErrItemQtyInvalid)
	}

	return errs
}
