package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SubscriptionRecord is one validated row of the uploaded report. Records are
// immutable once built by the parser.
type SubscriptionRecord struct {
	CustomerID     string          `json:"customer_id"`
	ServiceType    string          `json:"service_type"`
	ActivationDate time.Time       `json:"activation_date"`
	ExpirationDate time.Time       `json:"expiration_date"`
	Amount         decimal.Decimal `json:"amount"`
	Status         StatusEntity    `json:"status"`
}

// ServiceTypeCount backs the summary report's per-type aggregation.
type ServiceTypeCount struct {
	ServiceType string `json:"service_type"`
	Count       int64  `json:"count"`
}

// AvgCustomerSpending backs the summary report's spending aggregation.
type AvgCustomerSpending struct {
	CustomerID string          `json:"customer_id"`
	AvgAmount  decimal.Decimal `json:"avg_amount"`
}

// ReportSummary is the response of the summary endpoint.
type ReportSummary struct {
	ServicesByType                   []ServiceTypeCount    `json:"count_services_by_type"`
	AvgCustomerSpending              []AvgCustomerSpending `json:"avg_customer_spending"`
	CustomersWithMultipleExpired     []string              `json:"customers_with_multiple_expired_services"`
	CustomersWithUpcomingExpirations []string              `json:"customers_with_upcoming_expirations"`
}
