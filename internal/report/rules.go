package report

import (
	"time"

	"subscription-report-service/internal/models"
)

// RuleEngine partitions parsed records into the two alertable cohorts.
// Records reaching the engine have already passed validation; it never
// validates again.
type RuleEngine struct {
	ExpiredLimit int
	UpsellYears  int

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

// NewRuleEngine returns a RuleEngine with the given thresholds.
func NewRuleEngine(expiredLimit, upsellYears int) *RuleEngine {
	return &RuleEngine{ExpiredLimit: expiredLimit, UpsellYears: upsellYears, Now: time.Now}
}

// Evaluate runs both rules over the same record set in one pass each, without
// mutating any record.
func (e *RuleEngine) Evaluate(records []models.SubscriptionRecord) ([]models.ExpiredServicesAlert, []models.UpsellAlert) {
	return e.expiredServices(records), e.upsellOpportunities(records)
}

// expiredServices emits one alert per customer whose EXPIRED record count is
// strictly greater than the limit.
func (e *RuleEngine) expiredServices(records []models.SubscriptionRecord) []models.ExpiredServicesAlert {
	counts := make(map[string]int)
	order := make([]string, 0)
	for _, rec := range records {
		if rec.Status.Code != models.StatusExpired {
			continue
		}
		if _, seen := counts[rec.CustomerID]; !seen {
			order = append(order, rec.CustomerID)
		}
		counts[rec.CustomerID]++
	}

	var alerts []models.ExpiredServicesAlert
	for _, customerID := range order {
		if counts[customerID] > e.ExpiredLimit {
			alerts = append(alerts, models.ExpiredServicesAlert{
				CustomerID: customerID,
				Count:      counts[customerID],
			})
		}
	}
	return alerts
}

// upsellOpportunities emits one alert per qualifying record: status ACTIVE or
// PENDING_RENEWAL and activation strictly earlier than now minus the
// configured years. Activation exactly on the boundary does not qualify.
func (e *RuleEngine) upsellOpportunities(records []models.SubscriptionRecord) []models.UpsellAlert {
	nowFn := time.Now
	if e.Now != nil {
		nowFn = e.Now
	}
	// Compare calendar dates: parsed dates sit at midnight UTC, so the
	// boundary must too, or "exactly N years ago" would wrongly qualify.
	n := nowFn()
	today := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
	cutoff := today.AddDate(-e.UpsellYears, 0, 0)

	var alerts []models.UpsellAlert
	for _, rec := range records {
		if rec.Status.Code != models.StatusActive && rec.Status.Code != models.StatusPendingRenewal {
			continue
		}
		if rec.ActivationDate.Before(cutoff) {
			alerts = append(alerts, models.UpsellAlert{
				CustomerID:  rec.CustomerID,
				ServiceType: rec.ServiceType,
			})
		}
	}
	return alerts
}
