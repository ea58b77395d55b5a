package payments

import (
	"fmt"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/atelier-ops/atelier/internal/lifecycle"
)

// ReceiptRenderer renders plain-text receipts in the shop's currency.
type ReceiptRenderer struct {
	unit    currency.Unit
	printer *message.Printer
}

// NewReceiptRenderer creates a renderer for an ISO 4217 currency code.
func NewReceiptRenderer(code string) (*ReceiptRenderer, error) {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return nil, fmt.Errorf("payments: unknown currency %q: %w", code, err)
	}
	return &ReceiptRenderer{
		unit:    unit,
		printer: message.NewPrinter(language.English),
	}, nil
}

// Money formats minor currency units with the shop's currency symbol.
func (r *ReceiptRenderer) Money(cents int64) string {
	return r.printer.Sprint(currency.Symbol(r.unit.Amount(float64(cents) / 100)))
}

// Render lays out an order's ledger and reconciled position as a text
// receipt.
func (r *ReceiptRenderer) Render(number string, ledger []Payment, rec lifecycle.Reconciliation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Order %s\n", number)
	b.WriteString(strings.Repeat("-", 40) + "\n")

	for _, p := range ledger {
		method := p.Method
		if method == "" {
			method = "-"
		}
		fmt.Fprintf(&b, "%s  %-10s %12s", p.ReceivedAt.Format("2006-01-02"), method, r.Money(p.AmountCents))
		if p.RefundedCents > 0 {
			fmt.Fprintf(&b, "  refunded %s", r.Money(p.RefundedCents))
		}
		if p.Status != lifecycle.EntryCompleted {
			fmt.Fprintf(&b, "  [%s]", p.Status)
		}
		b.WriteString("\n")
	}

	b.WriteString(strings.Repeat("-", 40) + "\n")
	fmt.Fprintf(&b, "%-12s %12s\n", "Total", r.Money(rec.TotalCents))
	fmt.Fprintf(&b, "%-12s %12s\n", "Net paid", r.Money(rec.NetPaidCents))
	fmt.Fprintf(&b, "%-12s %12s\n", "Amount due", r.Money(rec.AmountDueCents))
	fmt.Fprintf(&b, "%-12s %12s\n", "Status", string(rec.Status))
	return b.String()
}
