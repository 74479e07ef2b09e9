package status

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subscription-report-service/internal/logging"
	"subscription-report-service/internal/models"
)

func testLogger() *logging.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &logging.Logger{Logger: l}
}

type fakeStore struct {
	rows        []models.StatusEntity
	lookupCalls int
}

func (f *fakeStore) ListStatuses(context.Context) ([]models.StatusEntity, error) {
	return f.rows, nil
}

func (f *fakeStore) GetStatusByCode(_ context.Context, code models.StatusCode) (models.StatusEntity, error) {
	f.lookupCalls++
	for _, r := range f.rows {
		if r.Code == code {
			return r, nil
		}
	}
	return models.StatusEntity{}, fmt.Errorf("no status found for code %s", code)
}

func allRows() []models.StatusEntity {
	return []models.StatusEntity{
		{ID: 1, Code: models.StatusActive},
		{ID: 2, Code: models.StatusExpired},
		{ID: 3, Code: models.StatusPendingRenewal},
	}
}

func TestResolver_BulkLoadedHitsSkipTheStore(t *testing.T) {
	store := &fakeStore{rows: allRows()}
	r, err := NewResolver(context.Background(), store, testLogger())
	require.NoError(t, err)

	entity, err := r.Resolve(context.Background(), models.StatusExpired)
	require.NoError(t, err)
	assert.Equal(t, int64(2), entity.ID)
	assert.Equal(t, 0, store.lookupCalls)
}

func TestResolver_MissRepairsCacheOnce(t *testing.T) {
	// simulate a partially seeded table at load time
	store := &fakeStore{rows: allRows()[:1]}
	r, err := NewResolver(context.Background(), store, testLogger())
	require.NoError(t, err)

	store.rows = allRows()

	entity, err := r.Resolve(context.Background(), models.StatusPendingRenewal)
	require.NoError(t, err)
	assert.Equal(t, int64(3), entity.ID)
	assert.Equal(t, 1, store.lookupCalls)

	// second resolve is served from the repaired cache
	_, err = r.Resolve(context.Background(), models.StatusPendingRenewal)
	require.NoError(t, err)
	assert.Equal(t, 1, store.lookupCalls)
}

func TestResolver_UnknownCodeFails(t *testing.T) {
	store := &fakeStore{rows: allRows()}
	r, err := NewResolver(context.Background(), store, testLogger())
	require.NoError(t, err)

	_, err = r.Resolve(context.Background(), models.StatusCode("SUSPENDED"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SUSPENDED")
}
