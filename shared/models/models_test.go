package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionTypeApply(t *testing.T) {
	balance := decimal.RequireFromString("5000.00")
	amount := decimal.RequireFromString("100.00")

	assert.True(t, TransactionTypeDeposit.Apply(balance, amount).Equal(decimal.RequireFromString("5100")))
	assert.True(t, TransactionTypeWithdrawal.Apply(balance, amount).Equal(decimal.RequireFromString("4900")))
	assert.True(t, TransactionTypeTransfer.Apply(balance, amount).Equal(decimal.RequireFromString("4900")))
}

func TestTransactionTypeValid(t *testing.T) {
	assert.True(t, TransactionTypeDeposit.Valid())
	assert.True(t, TransactionTypeTransfer.Valid())
	assert.False(t, TransactionType("deposit").Valid())
	assert.False(t, TransactionType("").Valid())
	assert.False(t, TransactionTypeDeposit.IsDebit())
}

func TestAccountBalanceEncodesAsNumber(t *testing.T) {
	acc := Account{ID: "1", Balance: decimal.RequireFromString("5100.50")}
	b, err := json.Marshal(acc)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.Equal(t, 5100.5, raw["balance"])
}

func TestFitsLedger(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"0.0001", true},
		{"0.00010", true},
		{"0.00001", false},
		{"0.00006", false},
		{"1e-400", false},
		{"999999999999999.9999", true},
		{"1000000000000000", false},
		{"-999999999999999.9999", true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			if got := FitsLedger(decimal.RequireFromString(tt.value)); got != tt.want {
				t.Errorf("FitsLedger(%s) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}
