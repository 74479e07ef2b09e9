package report

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"subscription-report-service/internal/logging"
	"subscription-report-service/internal/models"
)

// Storage persists subscription records and backs the summary report.
type Storage interface {
	SaveAll(ctx context.Context, records []models.SubscriptionRecord) error
	GetByCustomerID(ctx context.Context, customerID string) ([]models.SubscriptionRecord, error)
	CountServicesByTypeWithStatus(ctx context.Context, statuses []models.StatusCode) ([]models.ServiceTypeCount, error)
	AverageAmountPerCustomer(ctx context.Context) ([]models.AvgCustomerSpending, error)
	CustomersWithExpiredCountAbove(ctx context.Context, status models.StatusCode, limit int) ([]string, error)
	CustomersWithExpirationWithinDays(ctx context.Context, statuses []models.StatusCode, until time.Time) ([]string, error)
}

// Dispatcher schedules asynchronous delivery of computed alerts.
type Dispatcher interface {
	DispatchExpired(ctx context.Context, alert models.ExpiredServicesAlert, correlationID string) error
	DispatchUpsell(ctx context.Context, alert models.UpsellAlert, correlationID string) error
}

const expirationWindowDays = 30

// Service runs the ingestion pipeline: validate the file, parse its rows,
// persist the batch, evaluate the alert rules, and hand alerts to the
// dispatcher. Validation and parse errors propagate to the caller;
// notification delivery is best-effort relative to the persisted batch and
// never surfaces here.
type Service struct {
	validator  *Validator
	parser     *Parser
	engine     *RuleEngine
	storage    Storage
	dispatcher Dispatcher
	logger     *logging.Logger
}

// NewService wires the pipeline.
func NewService(validator *Validator, parser *Parser, engine *RuleEngine, storage Storage, dispatcher Dispatcher, logger *logging.Logger) *Service {
	return &Service{
		validator:  validator,
		parser:     parser,
		engine:     engine,
		storage:    storage,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// CreateReport ingests one uploaded file. The batch is saved as a single unit
// of work after in-memory validation, so a parse failure never produces
// partial writes.
func (s *Service) CreateReport(ctx context.Context, filename string, content []byte, correlationID string) error {
	log := s.logger.WithCorrelation(correlationID)

	if err := s.validator.Validate(filename, content); err != nil {
		return err
	}

	records, err := s.parser.Parse(ctx, bytes.NewReader(content))
	if err != nil {
		return err
	}
	log.Infof("Parsed %d valid record(s) from %s", len(records), filename)

	if err := s.storage.SaveAll(ctx, records); err != nil {
		return fmt.Errorf("failed to save records: %w", err)
	}

	expired, upsell := s.engine.Evaluate(records)
	for _, alert := range expired {
		log.Infof("Alert: customer %s has %d expired services", alert.CustomerID, alert.Count)
		if err := s.dispatcher.DispatchExpired(ctx, alert, correlationID); err != nil {
			log.Errorf("Failed to queue expired-services alert for customer %s: %v", alert.CustomerID, err)
		}
	}
	for _, alert := range upsell {
		log.Infof("Alert: upsell opportunity for customer %s about service %s", alert.CustomerID, alert.ServiceType)
		if err := s.dispatcher.DispatchUpsell(ctx, alert, correlationID); err != nil {
			log.Errorf("Failed to queue upselling alert for customer %s: %v", alert.CustomerID, err)
		}
	}

	return nil
}

// CustomerRecords reads back every persisted record for one customer.
func (s *Service) CustomerRecords(ctx context.Context, customerID string) ([]models.SubscriptionRecord, error) {
	records, err := s.storage.GetByCustomerID(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get records for customer %s: %w", customerID, err)
	}
	return records, nil
}

// Summary runs the aggregate queries behind the summary endpoint.
func (s *Service) Summary(ctx context.Context) (models.ReportSummary, error) {
	activeStatuses := []models.StatusCode{models.StatusActive, models.StatusPendingRenewal}

	byType, err := s.storage.CountServicesByTypeWithStatus(ctx, activeStatuses)
	if err != nil {
		return models.ReportSummary{}, fmt.Errorf("failed to count services by type: %w", err)
	}

	avgSpending, err := s.storage.AverageAmountPerCustomer(ctx)
	if err != nil {
		return models.ReportSummary{}, fmt.Errorf("failed to average customer spending: %w", err)
	}

	multipleExpired, err := s.storage.CustomersWithExpiredCountAbove(ctx, models.StatusExpired, s.engine.ExpiredLimit)
	if err != nil {
		return models.ReportSummary{}, fmt.Errorf("failed to find customers with expired services: %w", err)
	}

	until := time.Now().AddDate(0, 0, expirationWindowDays)
	expiring, err := s.storage.CustomersWithExpirationWithinDays(ctx, activeStatuses, until)
	if err != nil {
		return models.ReportSummary{}, fmt.Errorf("failed to find customers with upcoming expirations: %w", err)
	}

	return models.ReportSummary{
		ServicesByType:                   byType,
		AvgCustomerSpending:              avgSpending,
		CustomersWithMultipleExpired:     multipleExpired,
		CustomersWithUpcomingExpirations: expiring,
	}, nil
}
