// Package export writes catalog data as spreadsheets for the admin back office.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/tealeg/xlsx"

	"github.com/Skotchmaster/storefront/internal/models"
)

const (
	ProductsSheet   = "Products"
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var productHeader = []string{"ID", "Name", "Description", "Price", "Image URL", "Created At"}

func WriteProductsXLSX(w io.Writer, products []models.Product) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet(ProductsSheet)
	if err != nil {
		return fmt.Errorf("xlsx: add sheet: %w", err)
	}

	header := sheet.AddRow()
	for _, h := range productHeader {
		header.AddCell().SetString(h)
	}

	for _, p := range products {
		row := sheet.AddRow()
		row.AddCell().SetInt(int(p.ID))
		row.AddCell().SetString(p.Name)
		row.AddCell().SetString(p.Description)
		row.AddCell().SetString(p.Price.StringFixed(2))
		row.AddCell().SetString(p.ImageURL)
		row.AddCell().SetString(p.CreatedAt.UTC().Format(time.RFC3339))
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("xlsx: write: %w", err)
	}
	return nil
}

func ProductsFilename(now time.Time) string {
	return fmt.Sprintf("products-%s.xlsx", now.UTC().Format("20060102-150405"))
}
