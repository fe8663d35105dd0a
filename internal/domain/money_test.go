package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMoney_ToDecimal(t *testing.T) {
	m := NewMoney(12_500_000, "USDT-TRC20") // 12.5
	assert.Equal(t, "12.5", m.ToDecimal().String())
}

func TestFromDecimal(t *testing.T) {
	d := decimal.NewFromFloat(12.50)
	assert.Equal(t, int64(12_500_000), FromDecimal(d))
}

func TestMoneyFromFloat(t *testing.T) {
	m := MoneyFromFloat(12.5, "USDT-TRC20")
	assert.Equal(t, int64(12_500_000), m.Amount)
	assert.Equal(t, "USDT-TRC20", m.Currency)
	assert.InEpsilon(t, 12.5, m.Float(), 1e-9)
}

func TestMoney_String(t *testing.T) {
	m := NewMoney(7_000_000, "USDT-TRC20")
	assert.Equal(t, "7 USDT-TRC20", m.String())
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"12.5", 12_500_000, true},
		{"0.000001", 1, true},
		{"100", 100_000_000, true},
		{"0", 0, false},
		{"-3", 0, false},
		{"abc", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if !tc.ok {
			assert.Error(t, err, tc.in)
			continue
		}
		assert.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestParseNonNegativeAmount(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"0", 0, true},
		{"0.0", 0, true},
		{"1.5", 1_500_000, true},
		{"-0.01", 0, false},
		{"abc", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseNonNegativeAmount(tc.in)
		if !tc.ok {
			assert.Error(t, err, tc.in)
			continue
		}
		assert.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}
