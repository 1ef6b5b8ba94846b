package models

import "github.com/shopspring/decimal"

// DashboardStats is recomputed on every request; there is no caching layer.
// TotalRevenue only counts paid invoices. PendingInvoices counts sent ones.
type DashboardStats struct {
	TotalClients      int64           `json:"totalClients"`
	TotalInvoices     int64           `json:"totalInvoices"`
	PendingInvoices   int64           `json:"pendingInvoices"`
	TotalRevenue      decimal.Decimal `json:"totalRevenue"`
	InvoicesThisMonth int64           `json:"invoicesThisMonth"`
}
