package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from MovementStatus
		to   MovementStatus
		want bool
	}{
		{"previsto elapses", StatusPrevisto, StatusVencido, true},
		{"previsto matched", StatusPrevisto, StatusConfirmado, true},
		{"vencido confirmed late", StatusVencido, StatusConfirmado, true},
		{"unplanned manually classified", StatusNoPlanificado, StatusConfirmado, true},
		{"confirmed reconciled", StatusConfirmado, StatusConciliado, true},
		{"no exit from conciliado", StatusConciliado, StatusConfirmado, false},
		{"conciliado cannot reopen as previsto", StatusConciliado, StatusPrevisto, false},
		{"vencido cannot go back to previsto", StatusVencido, StatusPrevisto, false},
		{"unplanned cannot skip to conciliado", StatusNoPlanificado, StatusConciliado, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestMovementIsPosted(t *testing.T) {
	m := Movement{Amount: decimal.NewFromInt(-10)}

	m.Status = StatusPrevisto
	assert.False(t, m.IsPosted())
	m.Status = StatusVencido
	assert.False(t, m.IsPosted())

	m.Status = StatusNoPlanificado
	assert.True(t, m.IsPosted())
	m.Status = StatusConfirmado
	assert.True(t, m.IsPosted())
	m.Status = StatusConciliado
	assert.True(t, m.IsPosted())
}

func TestMovementIsExpense(t *testing.T) {
	out := Movement{Amount: decimal.RequireFromString("-120.55")}
	in := Movement{Amount: decimal.RequireFromString("800.00")}
	assert.True(t, out.IsExpense())
	assert.False(t, in.IsExpense())
}
