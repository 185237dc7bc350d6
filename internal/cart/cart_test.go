package cart

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/herbstore-backend/internal/pricing"
	"github.com/angelmondragon/herbstore-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/herbstore-backend/pkg/db/types"
	"github.com/angelmondragon/herbstore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/herbstore-backend/pkg/errors"
)

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func hennaProduct() models.Product {
	return models.Product{
		ID:       uuid.New(),
		Name:     "حناء جمرة",
		Category: enums.ProductCategoryHennaPowder,
		Kind:     enums.ProductKindVariant,
		Price: dbtypes.NewPriceTable(map[string]decimal.Decimal{
			enums.VariantKey500g.String(): dec("5.0"),
			enums.VariantKey1kg.String():  dec("9.0"),
		}),
		Images: dbtypes.StringList{"https://cdn.example/henna.jpg"},
	}
}

func sidrProduct() models.Product {
	return models.Product{
		ID:           uuid.New(),
		Name:         "سدر",
		Category:     enums.ProductCategorySidrPowder,
		Kind:         enums.ProductKindFlat,
		RegularPrice: decimal.NewNullDecimal(dec("3.0")),
		OldPrice:     decimal.NewNullDecimal(dec("4.0")),
	}
}

func resolve(p models.Product, size string) pricing.Resolution {
	return pricing.Resolve(pricing.SourceFor(p), size)
}

func TestAddLineHennaScenario(t *testing.T) {
	c := New("s1", dec("1.5"))
	p := hennaProduct()

	line, err := c.AddLine(p, resolve(p, enums.VariantKey500g.String()), 2)
	require.NoError(t, err)
	assert.True(t, line.UnitPrice.Equal(dec("5.0")))
	assert.Equal(t, enums.VariantKey500g, line.SelectedSize)
	assert.Equal(t, "https://cdn.example/henna.jpg", line.Image)

	assert.True(t, c.Subtotal().Equal(dec("10.0")), "subtotal %s", c.Subtotal())
	assert.True(t, c.GrandTotal().Equal(dec("11.5")), "grand total %s", c.GrandTotal())
	assert.Equal(t, 2, c.ItemCount())
}

func TestAddLineMergesSameProductAndSize(t *testing.T) {
	c := New("s1", dec("1.5"))
	p := hennaProduct()
	res := resolve(p, enums.VariantKey1kg.String())

	first, err := c.AddLine(p, res, 1)
	require.NoError(t, err)
	second, err := c.AddLine(p, res, 1)
	require.NoError(t, err)

	require.Len(t, c.Lines, 1)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2, c.Lines[0].Quantity)

	_, err = c.AddLine(p, resolve(p, enums.VariantKey500g.String()), 1)
	require.NoError(t, err)
	assert.Len(t, c.Lines, 2, "a different size is a separate line")
}

func TestAddLineFlatIgnoresSize(t *testing.T) {
	c := New("s1", decimal.Zero)
	p := sidrProduct()

	line, err := c.AddLine(p, resolve(p, enums.VariantKey1kg.String()), 1)
	require.NoError(t, err)
	assert.True(t, line.UnitPrice.Equal(dec("3.0")))
	assert.Empty(t, line.SelectedSize)
	require.NotNil(t, line.OldPrice)
	assert.True(t, line.OldPrice.Equal(dec("4.0")))

	_, err = c.AddLine(p, resolve(p, ""), 1)
	require.NoError(t, err)
	assert.Len(t, c.Lines, 1)
}

func TestAddLineRejectsDegradedPrice(t *testing.T) {
	c := New("s1", dec("1.5"))
	p := hennaProduct()
	p.Price = dbtypes.PriceTable{}

	_, err := c.AddLine(p, resolve(p, enums.VariantKey500g.String()), 1)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodePriceUnavailable))
	assert.True(t, c.IsEmpty())
}

func TestAddLineRejectsNonPositiveQuantity(t *testing.T) {
	c := New("s1", dec("1.5"))
	p := sidrProduct()

	_, err := c.AddLine(p, resolve(p, ""), 0)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestRemoveLineAndClear(t *testing.T) {
	c := New("s1", dec("1.5"))
	henna := hennaProduct()
	sidr := sidrProduct()

	a, err := c.AddLine(henna, resolve(henna, ""), 1)
	require.NoError(t, err)
	_, err = c.AddLine(sidr, resolve(sidr, ""), 3)
	require.NoError(t, err)

	require.NoError(t, c.RemoveLine(a.ID))
	assert.Len(t, c.Lines, 1)
	assert.True(t, c.Subtotal().Equal(dec("9.0")))

	err = c.RemoveLine(uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	c.Clear()
	assert.True(t, c.IsEmpty())
	assert.True(t, c.Subtotal().IsZero())
	assert.True(t, c.GrandTotal().Equal(dec("1.5")))
}

func TestGrandTotalTracksSubtotal(t *testing.T) {
	c := New("s1", dec("1.5"))
	henna := hennaProduct()
	sidr := sidrProduct()
	fee := dec("1.5")

	check := func() {
		t.Helper()
		assert.True(t, c.GrandTotal().Equal(c.Subtotal().Add(fee)))
	}

	check()
	a, _ := c.AddLine(henna, resolve(henna, enums.VariantKey1kg.String()), 2)
	check()
	_, _ = c.AddLine(sidr, resolve(sidr, ""), 1)
	check()
	_, _ = c.AddLine(henna, resolve(henna, enums.VariantKey1kg.String()), 1)
	check()
	_ = c.RemoveLine(a.ID)
	check()
	c.Clear()
	check()
}
