package report

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validHeader = "customer_id,service_type,activation_date,expiration_date,amount,status"

func TestValidator_ValidFiles(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name     string
		filename string
		content  string
	}{
		{"csv extension", "report.csv", validHeader + "\nC1,cloud,2020-01-01,2025-01-01,9.99,ACTIVE\n"},
		{"txt extension", "report.txt", validHeader + "\nC1,cloud,2020-01-01,2025-01-01,9.99,ACTIVE\n"},
		{"uppercase extension", "REPORT.CSV", validHeader + "\nC1,cloud,2020-01-01,2025-01-01,9.99,ACTIVE\n"},
		{"header only", "report.csv", validHeader + "\n"},
		{"mixed case headers", "report.csv", "Customer_ID,Service_Type,Activation_Date,Expiration_Date,AMOUNT,Status\n"},
		{"whitespace around headers", "report.csv", " customer_id , service_type , activation_date , expiration_date , amount , status \n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, v.Validate(tt.filename, []byte(tt.content)))
		})
	}
}

func TestValidator_InvalidFiles(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name     string
		filename string
		content  []byte
		wantMsg  string
	}{
		{"nil content", "report.csv", nil, "null"},
		{"empty content", "report.csv", []byte{}, "empty"},
		{"blank filename", "   ", []byte(validHeader), "filename"},
		{"wrong extension", "report.xlsx", []byte(validHeader), "extension"},
		{"no extension", "report", []byte(validHeader), "extension"},
		{"binary content", "report.csv", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}, "content type"},
		{"too few headers", "report.csv", []byte("customer_id,service_type,amount\n"), "number of headers"},
		{"too many headers", "report.csv", []byte(validHeader + ",extra\n"), "number of headers"},
		{"reordered headers", "report.csv", []byte("service_type,customer_id,activation_date,expiration_date,amount,status\n"), "invalid header"},
		{"renamed header", "report.csv", []byte("customer,service_type,activation_date,expiration_date,amount,status\n"), "invalid header"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.filename, tt.content)
			require.Error(t, err)

			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr), "expected a *ValidationError, got %T", err)
			assert.Contains(t, vErr.Reason, tt.wantMsg)
		})
	}
}
