package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDraftStartsWithOneItem(t *testing.T) {
	d := NewDraft()

	require.Len(t, d.Items, 1)
	assert.True(t, d.Items[0].Quantity.Equal(decimal.NewFromInt(1)))
	assert.True(t, d.Items[0].Rate.IsZero())
	assert.Empty(t, d.Items[0].Description)
}

func TestDraftRemoveItem(t *testing.T) {
	d := NewDraft()

	// The last remaining item can never be removed.
	assert.False(t, d.RemoveItem(d.Items[0].ID))
	require.Len(t, d.Items, 1)

	second := d.AddItem()
	assert.True(t, d.RemoveItem(second.ID))
	assert.Len(t, d.Items, 1)

	// Unknown id is a no-op.
	d.AddItem()
	assert.False(t, d.RemoveItem(uuid.New()))
	assert.Len(t, d.Items, 2)
}

func TestDraftUpdateItemCoercion(t *testing.T) {
	d := NewDraft()
	id := d.Items[0].ID

	assert.True(t, d.UpdateItem(id, "description", "Web design"))
	assert.True(t, d.UpdateItem(id, "quantity", "3"))
	assert.True(t, d.UpdateItem(id, "rate", "150.50"))

	assert.Equal(t, "Web design", d.Items[0].Description)
	assert.True(t, d.Items[0].Quantity.Equal(decimal.NewFromInt(3)))
	assert.True(t, d.Items[0].Rate.Equal(decimal.RequireFromString("150.50")))

	// Unparseable numeric input coerces to zero instead of failing.
	assert.True(t, d.UpdateItem(id, "quantity", "abc"))
	assert.True(t, d.Items[0].Quantity.IsZero())

	assert.False(t, d.UpdateItem(uuid.New(), "rate", "10"))
}

func TestDraftTotals(t *testing.T) {
	d := NewDraft()
	d.UpdateItem(d.Items[0].ID, "quantity", "2")
	d.UpdateItem(d.Items[0].ID, "rate", "10")
	second := d.AddItem()
	d.UpdateItem(second.ID, "rate", "5")

	assert.Equal(t, "25", d.Subtotal().String())

	d.SetTax("2")
	d.SetDiscount("1")
	assert.Equal(t, "26", d.Total().String())

	// A discount above subtotal + tax yields a negative total; no clamping.
	d.SetDiscount("100")
	assert.Equal(t, "-73", d.Total().String())

	// Unparseable tax and discount are zero.
	d.SetTax("not a number")
	d.SetDiscount("")
	assert.Equal(t, "25", d.Total().String())
}

func TestDraftValidate(t *testing.T) {
	valid := func() *Draft {
		d := NewDraft()
		d.CustomerName = "Ama Mensah"
		d.CustomerPhone = "0241234567"
		d.UpdateItem(d.Items[0].ID, "description", "Consulting")
		d.UpdateItem(d.Items[0].ID, "rate", "100")
		return d
	}

	tests := []struct {
		name    string
		mutate  func(*Draft)
		wantErr bool
	}{
		{"valid draft", func(d *Draft) {}, false},
		{"invalid phone", func(d *Draft) { d.CustomerPhone = "12345" }, true},
		{"empty description", func(d *Draft) { d.UpdateItem(d.Items[0].ID, "description", "  ") }, true},
		{"zero rate", func(d *Draft) { d.UpdateItem(d.Items[0].ID, "rate", "0") }, true},
		{"non-numeric rate coerces to zero and fails", func(d *Draft) { d.UpdateItem(d.Items[0].ID, "rate", "free") }, true},
		{"negative rate", func(d *Draft) { d.UpdateItem(d.Items[0].ID, "rate", "-5") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := valid()
			tt.mutate(d)
			err := d.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsKind(err, KindValidation))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDraftPayload(t *testing.T) {
	d := NewDraft()
	d.CustomerName = "Kofi Asante"
	d.CustomerPhone = "+233541234567"
	d.Notes = "Payment due in 14 days"
	d.UpdateItem(d.Items[0].ID, "description", "Logo design")
	d.UpdateItem(d.Items[0].ID, "quantity", "2")
	d.UpdateItem(d.Items[0].ID, "rate", "10")
	second := d.AddItem()
	d.UpdateItem(second.ID, "description", "Hosting")
	d.UpdateItem(second.ID, "rate", "5")
	d.SetTax("2")
	d.SetDiscount("1")

	req, err := d.Payload()
	require.NoError(t, err)

	assert.Equal(t, "Kofi Asante", req.CustomerName)
	assert.Equal(t, "+233541234567", req.CustomerPhone)
	require.Len(t, req.Items, 2)
	assert.Equal(t, "Logo design", req.Items[0].Description)
	assert.Equal(t, "2", req.Items[0].Quantity)
	assert.Equal(t, "10", req.Items[0].Rate)
	assert.Equal(t, "2", req.Tax)
	assert.Equal(t, "1", req.Discount)
	assert.Equal(t, "Payment due in 14 days", req.Notes)

	// An invalid draft never produces a payload.
	d.CustomerPhone = "bad"
	_, err = d.Payload()
	require.Error(t, err)
	assert.True(t, IsKind(err, KindValidation))
}

func TestCoerceAmount(t *testing.T) {
	assert.Equal(t, "12.5", CoerceAmount(" 12.5 ").String())
	assert.True(t, CoerceAmount("").IsZero())
	assert.True(t, CoerceAmount("abc").IsZero())
	assert.Equal(t, "-3", CoerceAmount("-3").String())
}
