package report

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"subscription-report-service/internal/logging"
	"subscription-report-service/internal/models"
)

const dateLayout = "2006-01-02"

// StatusResolver maps a status code to its canonical entity.
type StatusResolver interface {
	Resolve(ctx context.Context, code models.StatusCode) (models.StatusEntity, error)
}

// Parser converts CSV rows into SubscriptionRecords. A defective row is
// discarded with its reason logged; only an unreadable stream aborts the
// whole parse.
type Parser struct {
	statuses StatusResolver
	logger   *logging.Logger
}

// NewParser returns a Parser using the given status resolver.
func NewParser(statuses StatusResolver, logger *logging.Logger) *Parser {
	return &Parser{statuses: statuses, logger: logger}
}

// Parse reads every data row and returns the records that survived row-level
// validation. Fields are located by header name, not column index. Row
// numbers in discard logs are 1-based over data rows, header excluded.
func (p *Parser) Parse(ctx context.Context, r io.Reader) ([]models.SubscriptionRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	fieldIndex := make(map[string]int, len(header))
	for i, name := range header {
		fieldIndex[strings.ToLower(strings.TrimSpace(name))] = i
	}

	var records []models.SubscriptionRecord
	rowNum := 0
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		rowNum++
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				p.logger.Warnf("Skipping invalid row number %d because %v", rowNum, err)
				continue
			}
			return nil, fmt.Errorf("failed to read CSV data: %w", err)
		}

		record, err := p.buildRecord(ctx, fieldIndex, row)
		if err != nil {
			p.logger.Warnf("Skipping invalid row number %d because %v", rowNum, err)
			continue
		}
		records = append(records, record)
	}

	return records, nil
}

func (p *Parser) buildRecord(ctx context.Context, fieldIndex map[string]int, row []string) (models.SubscriptionRecord, error) {
	var rec models.SubscriptionRecord

	customerID, err := fieldValue(fieldIndex, row, HeaderCustomerID)
	if err != nil {
		return rec, err
	}
	if strings.TrimSpace(customerID) == "" {
		return rec, fmt.Errorf("%s is missing or blank", HeaderCustomerID)
	}

	rawStatus, err := fieldValue(fieldIndex, row, HeaderStatus)
	if err != nil {
		return rec, err
	}
	code, err := models.ParseStatusCode(rawStatus)
	if err != nil {
		return rec, err
	}
	status, err := p.statuses.Resolve(ctx, code)
	if err != nil {
		return rec, fmt.Errorf("invalid status %q: %w", rawStatus, err)
	}

	rawActivation, err := fieldValue(fieldIndex, row, HeaderActivationDate)
	if err != nil {
		return rec, err
	}
	activation, err := time.Parse(dateLayout, strings.TrimSpace(rawActivation))
	if err != nil {
		return rec, fmt.Errorf("invalid %s %q", HeaderActivationDate, rawActivation)
	}

	rawExpiration, err := fieldValue(fieldIndex, row, HeaderExpirationDate)
	if err != nil {
		return rec, err
	}
	expiration, err := time.Parse(dateLayout, strings.TrimSpace(rawExpiration))
	if err != nil {
		return rec, fmt.Errorf("invalid %s %q", HeaderExpirationDate, rawExpiration)
	}

	rawAmount, err := fieldValue(fieldIndex, row, HeaderAmount)
	if err != nil {
		return rec, err
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(rawAmount))
	if err != nil {
		return rec, fmt.Errorf("invalid %s %q", HeaderAmount, rawAmount)
	}

	serviceType, err := fieldValue(fieldIndex, row, HeaderServiceType)
	if err != nil {
		return rec, err
	}

	rec = models.SubscriptionRecord{
		CustomerID:     strings.TrimSpace(customerID),
		ServiceType:    strings.TrimSpace(serviceType),
		ActivationDate: activation,
		ExpirationDate: expiration,
		Amount:         amount,
		Status:         status,
	}
	return rec, nil
}

func fieldValue(fieldIndex map[string]int, row []string, name string) (string, error) {
	idx, ok := fieldIndex[name]
	if !ok || idx >= len(row) {
		return "", fmt.Errorf("%s field is missing", name)
	}
	return row[idx], nil
}
