package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"

	"github.com/Skotchmaster/storefront/internal/models"
)

func TestWriteProductsXLSX(t *testing.T) {
	t.Parallel()

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	products := []models.Product{
		{ID: 1, Name: "Lamp", Description: "warm", Price: decimal.RequireFromString("19.9"), CreatedAt: created},
		{ID: 2, Name: "Desk", Price: decimal.NewFromInt(120), CreatedAt: created},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteProductsXLSX(&buf, products))

	file, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, file.Sheets, 1)

	sheet := file.Sheets[0]
	assert.Equal(t, ProductsSheet, sheet.Name)
	require.Len(t, sheet.Rows, 3)

	assert.Equal(t, "Name", sheet.Rows[0].Cells[1].Value)
	assert.Equal(t, "Lamp", sheet.Rows[1].Cells[1].Value)
	assert.Equal(t, "19.90", sheet.Rows[1].Cells[3].Value)
	assert.Equal(t, "120.00", sheet.Rows[2].Cells[3].Value)
	assert.Equal(t, "2026-03-01T12:00:00Z", sheet.Rows[2].Cells[5].Value)
}

func TestProductsFilename(t *testing.T) {
	t.Parallel()

	name := ProductsFilename(time.Date(2026, 10, 16, 9, 5, 0, 0, time.UTC))
	assert.Equal(t, "products-20261016-090500.xlsx", name)
}
