package report

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Header names expected in the uploaded file, in order.
const (
	HeaderCustomerID     = "customer_id"
	HeaderServiceType    = "service_type"
	HeaderActivationDate = "activation_date"
	HeaderExpirationDate = "expiration_date"
	HeaderAmount         = "amount"
	HeaderStatus         = "status"
)

var expectedHeaders = []string{
	HeaderCustomerID,
	HeaderServiceType,
	HeaderActivationDate,
	HeaderExpirationDate,
	HeaderAmount,
	HeaderStatus,
}

var csvMimeTypes = []string{
	"text/csv",
	"text/plain",
	"application/csv",
	"application/vnd.ms-excel",
}

var csvExtensions = []string{".csv", ".txt"}

// ValidationError is a user-correctable defect in the uploaded file. The API
// layer maps it to a client error; it is never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func validationErrorf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// Validator is the structural gatekeeper for an uploaded CSV file. Checks run
// in order and short-circuit on the first failure; there is no partial
// success.
type Validator struct{}

// NewValidator returns a Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks the file name, size, sniffed content type, and header line.
// The content type is detected from the bytes, not the extension, so a
// renamed binary is still rejected.
func (v *Validator) Validate(filename string, content []byte) error {
	if content == nil {
		return validationErrorf("file cannot be null")
	}
	if len(content) == 0 {
		return validationErrorf("file cannot be empty")
	}
	if strings.TrimSpace(filename) == "" {
		return validationErrorf("file must have a valid filename")
	}
	if !hasValidExtension(filename) {
		return validationErrorf("file must have a valid CSV extension (.csv or .txt)")
	}

	detected := mimetype.Detect(content)
	if !isValidMimeType(detected) {
		return validationErrorf("file content type %q is not a valid CSV type, expected one of %v", detected.String(), csvMimeTypes)
	}

	return validateHeaderLine(content)
}

func hasValidExtension(filename string) bool {
	lower := strings.ToLower(filename)
	for _, ext := range csvExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func isValidMimeType(detected *mimetype.MIME) bool {
	for _, t := range csvMimeTypes {
		if detected.Is(t) {
			return true
		}
	}
	return false
}

func validateHeaderLine(content []byte) error {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	if !scanner.Scan() {
		return validationErrorf("file does not contain any headers")
	}

	headers := strings.Split(scanner.Text(), ",")
	if len(headers) != len(expectedHeaders) {
		return validationErrorf("invalid number of headers, expected %d but found %d", len(expectedHeaders), len(headers))
	}

	// Order-sensitive on purpose: reordered headers are rejected, not remapped.
	for i, h := range headers {
		header := strings.ToLower(strings.TrimSpace(h))
		if header != expectedHeaders[i] {
			return validationErrorf("invalid header, expected %q but found %q", expectedHeaders[i], header)
		}
	}
	return nil
}
