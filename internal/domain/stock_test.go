package domain

import "testing"

func TestStockLines_AggregatesByProduct(t *testing.T) {
	items := []OrderItem{
		{ProductID: "p-1", Quantity: 2},
		{ProductID: "p-2", Quantity: 1},
		{ProductID: "p-1", Quantity: 3},
	}

	lines := StockLines(items)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].ProductID != "p-1" || lines[0].Quantity != 5 {
		t.Fatalf("unexpected first line: %+v", lines[0])
	}
	if lines[1].ProductID != "p-2" || lines[1].Quantity != 1 {
		t.Fatalf("unexpected second line: %+v", lines[1])
	}
}

func TestStockLines_Empty(t *testing.T) {
	if lines := StockLines(nil); len(lines) != 0 {
		t.Fatalf("expected no lines, got %v", lines)
	}
}

func TestStockMovement_Validate(t *testing.T) {
	tests := []struct {
		name     string
		movement StockMovement
		errCount int
	}{
		{
			name:     "valid movement",
			movement: StockMovement{Kind: StockMovementDeduct, ProductID: "p-1", Quantity: 3},
			errCount: 0,
		},
		{
			name:     "missing product",
			movement: StockMovement{Kind: StockMovementDeduct, Quantity: 3},
			errCount: 1,
		},
		{
			name:     "zero quantity",
			movement: StockMovement{Kind: StockMovementRestore, ProductID: "p-1"},
			errCount: 1,
		},
		{
			name:     "everything missing",
			movement: StockMovement{Kind: StockMovementRestore, Quantity: -1},
			errCount: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := tt.movement.Validate()
			if len(errs) != tt.errCount {
				t.Errorf("Validate() returned %d errors, want %d: %v", len(errs), tt.errCount, errs)
			}
		})
	}
}
