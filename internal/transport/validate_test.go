package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validCheckoutRequest() CheckoutRequest {
	return CheckoutRequest{
		LastName:   "Lovelace",
		FirstName:  "Ada",
		Username:   "ada",
		Address:    "1 Analytical St",
		CardNumber: "4111111111111111",
		CardExpiry: "12/29",
	}
}

func TestValidator_CheckoutCardFields(t *testing.T) {
	t.Parallel()

	v := NewValidator()

	tests := []struct {
		name    string
		number  string
		expiry  string
		invalid []string
	}{
		{name: "valid", number: "4111111111111111", expiry: "01/30"},
		{name: "plus sign", number: "+411111111111111", expiry: "01/30", invalid: []string{"card_number"}},
		{name: "minus sign", number: "-411111111111111", expiry: "01/30", invalid: []string{"card_number"}},
		{name: "decimal point", number: "41111111111.1111", expiry: "01/30", invalid: []string{"card_number"}},
		{name: "too short", number: "411111111111111", expiry: "01/30", invalid: []string{"card_number"}},
		{name: "month 13", number: "4111111111111111", expiry: "13/30", invalid: []string{"card_expiry"}},
		{name: "long year", number: "4111111111111111", expiry: "01/2030", invalid: []string{"card_expiry"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := validCheckoutRequest()
			req.CardNumber = tt.number
			req.CardExpiry = tt.expiry

			err := v.Struct(req)
			if len(tt.invalid) == 0 {
				assert.NoError(t, err)
				return
			}
			fields := FieldErrors(err)
			assert.Len(t, fields, len(tt.invalid))
			for _, f := range tt.invalid {
				assert.Contains(t, fields, f)
			}
		})
	}
}

func TestFieldErrors_DigitsOnlyMessage(t *testing.T) {
	req := validCheckoutRequest()
	req.CardNumber = "+411111111111111"

	fields := FieldErrors(NewValidator().Struct(req))
	assert.Equal(t, "must contain digits only", fields["card_number"])
}
