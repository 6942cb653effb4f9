package service

import (
	"strings"

	"invoicely/internal/model"

	"github.com/shopspring/decimal"
)

// FilterInvoices returns the subset matching both the search term and the
// status filter (AND semantics). Search is a case-insensitive substring
// match against customer name or invoice id; status "all" or "" matches
// everything. Pure: the input slice is never mutated.
func FilterInvoices(invoices []model.Invoice, search, status string) []model.Invoice {
	term := strings.ToLower(strings.TrimSpace(search))
	filtered := make([]model.Invoice, 0, len(invoices))
	for _, inv := range invoices {
		if term != "" {
			name := strings.ToLower(inv.CustomerName)
			id := strings.ToLower(inv.ID.String())
			if !strings.Contains(name, term) && !strings.Contains(id, term) {
				continue
			}
		}
		if status != "" && status != "all" && inv.Status != status {
			continue
		}
		filtered = append(filtered, inv)
	}
	return filtered
}

// ComputeStats folds the full, unfiltered invoice set into summary
// statistics. Paid sums total_amount of paid invoices, pending sums
// total_amount of sent invoices, overdue counts overdue invoices. Any
// other status, draft included, contributes to the total count only.
func ComputeStats(invoices []model.Invoice) model.InvoiceStats {
	stats := model.InvoiceStats{
		Paid:    decimal.Zero,
		Pending: decimal.Zero,
	}
	for _, inv := range invoices {
		stats.Total++
		switch inv.Status {
		case model.StatusPaid:
			stats.Paid = stats.Paid.Add(inv.TotalAmount)
		case model.StatusSent:
			stats.Pending = stats.Pending.Add(inv.TotalAmount)
		case model.StatusOverdue:
			stats.Overdue++
		}
	}
	return stats
}
