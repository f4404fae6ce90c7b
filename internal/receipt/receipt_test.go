package receipt

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"dastak/backend/internal/domain"
)

func sampleBill() domain.Bill {
	return domain.Bill{
		ID:        "bill-1",
		CreatedAt: time.Date(2026, time.June, 1, 14, 30, 0, 0, time.UTC),
		Items: []domain.BillItem{
			{ProductName: "Ballpoint Pen", UnitPriceCents: 1000, Quantity: 3, SubtotalCents: 3000},
			{ProductName: "Notebook A5", UnitPriceCents: 6000, Quantity: 1, SubtotalCents: 6000},
		},
		TotalCents:       9000,
		DiscountCents:    500,
		FinalAmountCents: 8500,
	}
}

func TestPDFProducesDocument(t *testing.T) {
	data, err := PDF(sampleBill(), "Dastak Stationery")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("output does not start with a PDF header: %q", data[:8])
	}
	if len(data) < 500 {
		t.Fatalf("suspiciously small PDF: %d bytes", len(data))
	}
}

func TestPreviewTextCarriesEveryLine(t *testing.T) {
	text := PreviewText(sampleBill(), "Dastak Stationery")

	for _, want := range []string{
		"Dastak Stationery",
		"bill-1",
		"Ballpoint Pen",
		"Notebook A5",
		"90.00",
		"-5.00",
		"85.00",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("preview missing %q:\n%s", want, text)
		}
	}
}

func TestCentsFormatting(t *testing.T) {
	cases := map[int64]string{
		0:     "0.00",
		5:     "0.05",
		2500:  "25.00",
		-2000: "-20.00",
	}
	for in, want := range cases {
		if got := cents(in); got != want {
			t.Fatalf("cents(%d) = %q, want %q", in, got, want)
		}
	}
}
