package report

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"subscription-report-service/internal/logging"
	"subscription-report-service/internal/models"
)

func testLogger() *logging.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &logging.Logger{Logger: l}
}

// fakeResolver resolves every enumerated code to a fixed entity. Codes listed
// in missing simulate a resolver that cannot repair the cache.
type fakeResolver struct {
	missing map[models.StatusCode]bool
	calls   int
}

func (f *fakeResolver) Resolve(_ context.Context, code models.StatusCode) (models.StatusEntity, error) {
	f.calls++
	if f.missing[code] {
		return models.StatusEntity{}, fmt.Errorf("no status found for code %s", code)
	}
	switch code {
	case models.StatusActive:
		return models.StatusEntity{ID: 1, Code: code}, nil
	case models.StatusExpired:
		return models.StatusEntity{ID: 2, Code: code}, nil
	case models.StatusPendingRenewal:
		return models.StatusEntity{ID: 3, Code: code}, nil
	}
	return models.StatusEntity{}, fmt.Errorf("unknown status code %q", code)
}
