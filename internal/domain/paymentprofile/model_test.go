package paymentprofile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatExternalNumber(t *testing.T) {
	tests := []struct {
		sequence int64
		width    int
		want     string
	}{
		{sequence: 42, width: 0, want: "42"},
		{sequence: 42, width: 6, want: "000042"},
		{sequence: 1234567, width: 6, want: "1234567"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatExternalNumber(tt.sequence, tt.width))
	}

	p := &PaymentProfile{NumberWidth: 8}
	assert.Equal(t, "00000007", p.FormatExternalNumber(7))
}
