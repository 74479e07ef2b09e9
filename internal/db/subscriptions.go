package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"subscription-report-service/internal/models"
)

// SaveAll persists one uploaded batch in a single transaction. The caller
// only invokes this after the whole file has been validated in memory.
func (d *DB) SaveAll(ctx context.Context, records []models.SubscriptionRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := d.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"customer_service_subscriptions"},
		[]string{"customer_id", "service_type", "activation_date", "expiration_date", "amount", "status_id"},
		pgx.CopyFromSlice(len(records), func(i int) ([]interface{}, error) {
			r := records[i]
			return []interface{}{
				r.CustomerID,
				r.ServiceType,
				r.ActivationDate,
				r.ExpirationDate,
				r.Amount.String(),
				r.Status.ID,
			}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to copy subscription records: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit subscription records: %w", err)
	}
	return nil
}

// GetByCustomerID reads back every record for one customer.
func (d *DB) GetByCustomerID(ctx context.Context, customerID string) ([]models.SubscriptionRecord, error) {
	rows, err := d.Pool.Query(ctx, `
        SELECT c.customer_id, c.service_type, c.activation_date, c.expiration_date, c.amount::text, s.id, s.code
        FROM customer_service_subscriptions c
        JOIN subscription_status s ON s.id = c.status_id
        WHERE c.customer_id = $1
        ORDER BY c.activation_date`, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscriptions for customer %s: %w", customerID, err)
	}
	defer rows.Close()

	var records []models.SubscriptionRecord
	for rows.Next() {
		var rec models.SubscriptionRecord
		var amount, code string
		if err := rows.Scan(&rec.CustomerID, &rec.ServiceType, &rec.ActivationDate, &rec.ExpirationDate,
			&amount, &rec.Status.ID, &code); err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		rec.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("failed to parse amount %q: %w", amount, err)
		}
		rec.Status.Code = models.StatusCode(code)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CountServicesByTypeWithStatus counts services per type across the given
// statuses.
func (d *DB) CountServicesByTypeWithStatus(ctx context.Context, statuses []models.StatusCode) ([]models.ServiceTypeCount, error) {
	rows, err := d.Pool.Query(ctx, `
        SELECT c.service_type, COUNT(*)
        FROM customer_service_subscriptions c
        JOIN subscription_status s ON s.id = c.status_id
        WHERE s.code = ANY($1)
        GROUP BY c.service_type`, statusStrings(statuses))
	if err != nil {
		return nil, fmt.Errorf("failed to count services by type: %w", err)
	}
	defer rows.Close()

	var counts []models.ServiceTypeCount
	for rows.Next() {
		var c models.ServiceTypeCount
		if err := rows.Scan(&c.ServiceType, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan service type count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// AverageAmountPerCustomer averages the subscription amount per customer.
func (d *DB) AverageAmountPerCustomer(ctx context.Context) ([]models.AvgCustomerSpending, error) {
	rows, err := d.Pool.Query(ctx, `
        SELECT c.customer_id, AVG(c.amount)::text
        FROM customer_service_subscriptions c
        GROUP BY c.customer_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to average customer spending: %w", err)
	}
	defer rows.Close()

	var averages []models.AvgCustomerSpending
	for rows.Next() {
		var a models.AvgCustomerSpending
		var avg string
		if err := rows.Scan(&a.CustomerID, &avg); err != nil {
			return nil, fmt.Errorf("failed to scan customer spending: %w", err)
		}
		a.AvgAmount, err = decimal.NewFromString(avg)
		if err != nil {
			return nil, fmt.Errorf("failed to parse average %q: %w", avg, err)
		}
		averages = append(averages, a)
	}
	return averages, rows.Err()
}

// CustomersWithExpiredCountAbove lists customers holding strictly more than
// limit records in the given status.
func (d *DB) CustomersWithExpiredCountAbove(ctx context.Context, status models.StatusCode, limit int) ([]string, error) {
	rows, err := d.Pool.Query(ctx, `
        SELECT c.customer_id
        FROM customer_service_subscriptions c
        JOIN subscription_status s ON s.id = c.status_id
        WHERE s.code = $1
        GROUP BY c.customer_id
        HAVING COUNT(*) > $2`, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to find customers with expired services: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

// CustomersWithExpirationWithinDays lists customers with a service in the
// given statuses expiring between today and the given date.
func (d *DB) CustomersWithExpirationWithinDays(ctx context.Context, statuses []models.StatusCode, until time.Time) ([]string, error) {
	rows, err := d.Pool.Query(ctx, `
        SELECT DISTINCT c.customer_id
        FROM customer_service_subscriptions c
        JOIN subscription_status s ON s.id = c.status_id
        WHERE s.code = ANY($1)
          AND c.expiration_date BETWEEN CURRENT_DATE AND $2`, statusStrings(statuses), until)
	if err != nil {
		return nil, fmt.Errorf("failed to find customers with upcoming expirations: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

func statusStrings(statuses []models.StatusCode) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func scanStrings(rows pgx.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan customer_id: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
