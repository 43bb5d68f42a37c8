package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"12.34", "12.34"},
		{"12,34", "12.34"},
		{"12,5", "12.50"},
		{"$0,99", "0.99"},
		{"12.345", "12.35"},
		{"12.344", "12.34"},
		{" 7 ", "7.00"},
		{"$4.5", "4.50"},
		{".5", "0.50"},
		{"0", "0.00"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.StringFixed(2))
		})
	}
}

func TestParseAmountRejects(t *testing.T) {
	for _, in := range []string{"", "  ", "abc", "-5", "+5", "1e3", "1.2.3", "1,234.50", "1,500", "2,000", "1,234", "12,345", "1,5000", "$", ".", "1000000000000"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseAmount(in)
			assert.ErrorIs(t, err, ErrInvalidAmount)
		})
	}
}
