package paymentprofile

import (
	"fmt"

	"github.com/ispops/billing/internal/types"
)

// PaymentProfile owns the external numbering sequence shared by the invoices of its contracts
type PaymentProfile struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`

	// NextExternalNumber is the number the next allocation returns
	NextExternalNumber int64 `db:"next_external_number" json:"next_external_number"`

	// NumberWidth left pads external numbers with zeros, 0 disables padding
	NumberWidth int `db:"number_width" json:"number_width"`

	types.BaseModel
}

// FormatExternalNumber renders an allocated sequence as the registrar facing invoice number
func (p *PaymentProfile) FormatExternalNumber(sequence int64) string {
	return FormatExternalNumber(sequence, p.NumberWidth)
}

func FormatExternalNumber(sequence int64, width int) string {
	if width <= 0 {
		return fmt.Sprintf("%d", sequence)
	}
	return fmt.Sprintf("%0*d", width, sequence)
}
