// Package receipt renders committed bills as a printable PDF or a
// plain-text preview for the register display.
package receipt

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"dastak/backend/internal/domain"
)

// cents formats an amount in cents as a decimal money string.
func cents(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// PDF renders a committed bill as an A4 receipt.
func PDF(bill domain.Bill, shopName string) ([]byte, error) {
	if shopName == "" {
		shopName = "Receipt"
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, shopName)
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Bill %s", bill.ID))
	pdf.Ln(6)
	if !bill.CreatedAt.IsZero() {
		pdf.Cell(0, 6, bill.CreatedAt.Format("2006-01-02 15:04:05"))
		pdf.Ln(6)
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(80, 8, "Item", "1", 0, "L", true, 0, "")
	pdf.CellFormat(25, 8, "Price", "1", 0, "R", true, 0, "")
	pdf.CellFormat(20, 8, "Qty", "1", 0, "R", true, 0, "")
	pdf.CellFormat(30, 8, "Subtotal", "1", 0, "R", true, 0, "")
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	for _, item := range bill.Items {
		pdf.CellFormat(80, 8, item.ProductName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 8, cents(item.UnitPriceCents), "1", 0, "R", false, 0, "")
		pdf.CellFormat(20, 8, fmt.Sprintf("%d", item.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 8, cents(item.SubtotalCents), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(125, 8, "Total", "0", 0, "R", false, 0, "")
	pdf.CellFormat(30, 8, cents(bill.TotalCents), "0", 0, "R", false, 0, "")
	pdf.Ln(-1)
	if bill.DiscountCents != 0 {
		pdf.CellFormat(125, 8, "Discount", "0", 0, "R", false, 0, "")
		pdf.CellFormat(30, 8, "-"+cents(bill.DiscountCents), "0", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.CellFormat(125, 8, "Amount Due", "0", 0, "R", false, 0, "")
	pdf.CellFormat(30, 8, cents(bill.FinalAmountCents), "0", 0, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PreviewText renders a monospace preview of a bill, committed or not.
func PreviewText(bill domain.Bill, shopName string) string {
	var b strings.Builder
	if shopName != "" {
		fmt.Fprintf(&b, "%s\n", shopName)
	}
	if bill.ID != "" {
		fmt.Fprintf(&b, "Bill %s\n", bill.ID)
	}
	if !bill.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "%s\n", bill.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	b.WriteString(strings.Repeat("-", 40) + "\n")

	for _, item := range bill.Items {
		fmt.Fprintf(&b, "%-20s %3d x %8s = %10s\n",
			item.ProductName, item.Quantity, cents(item.UnitPriceCents), cents(item.SubtotalCents))
	}

	b.WriteString(strings.Repeat("-", 40) + "\n")
	fmt.Fprintf(&b, "%-26s %13s\n", "Total", cents(bill.TotalCents))
	if bill.DiscountCents != 0 {
		fmt.Fprintf(&b, "%-26s %13s\n", "Discount", "-"+cents(bill.DiscountCents))
	}
	fmt.Fprintf(&b, "%-26s %13s\n", "Amount Due", cents(bill.FinalAmountCents))
	return b.String()
}
