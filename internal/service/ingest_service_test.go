package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"equipdata/internal/repository"
	"equipdata/internal/tabular"
)

func newTestIngest(t *testing.T, limit int) (*ingestService, *repository.MemoryDatasetsRepository) {
	t.Helper()
	repo := repository.NewMemoryDatasetsRepository()
	retention := NewRetentionManager(repo, limit, zap.NewNop())
	return NewIngestService(repo, retention, zap.NewNop()), repo
}

func measurementTable(rows ...[]string) *tabular.Table {
	return tabular.New(
		[]string{"Equipment Name", "Type", "Flowrate", "Pressure", "Temperature"},
		rows,
	)
}

func TestIngest_Success(t *testing.T) {
	svc, repo := newTestIngest(t, 5)
	ctx := context.Background()

	result, err := svc.Ingest(ctx, IngestRequest{
		OwnerID: "owner-1",
		Name:    "plant.csv",
		Table:   measurementTable([]string{"Pump-A1", "Pump", "150.5", "45.2", "85.0"}),
	})
	require.NoError(t, err)
	require.True(t, result.Accepted)
	assert.NotEmpty(t, result.DatasetID)
	assert.Equal(t, "plant.csv", result.Name)
	assert.Equal(t, 1, result.RecordCount)

	summary := result.Summary
	require.NotNil(t, summary)
	assert.Equal(t, 1, summary.TotalRecords)
	require.NotNil(t, summary.AvgFlowrate)
	assert.Equal(t, 150.5, *summary.AvgFlowrate)
	assert.Equal(t, 45.2, *summary.AvgPressure)
	assert.Equal(t, 85.0, *summary.AvgTemperature)
	assert.Equal(t, map[string]int{"Pump": 1}, summary.TypeDistribution)

	// The summary must be persisted onto the dataset, not only returned.
	ds, err := repo.GetDataset(ctx, "owner-1", result.DatasetID)
	require.NoError(t, err)
	require.NotNil(t, ds)
	assert.Equal(t, 1, ds.RecordCount)
	require.NotNil(t, ds.AvgFlowrate)
	assert.Equal(t, 150.5, *ds.AvgFlowrate)
	assert.Equal(t, map[string]int{"Pump": 1}, ds.TypeDistribution)

	records, total, err := repo.ListRecords(ctx, "owner-1", result.DatasetID, 1, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, records, 1)
	assert.Equal(t, "Pump-A1", records[0].EquipmentName)
	assert.Equal(t, result.DatasetID, records[0].DatasetID)
}

func TestIngest_CountInvariant(t *testing.T) {
	svc, repo := newTestIngest(t, 5)
	ctx := context.Background()

	result, err := svc.Ingest(ctx, IngestRequest{
		OwnerID: "owner-1",
		Name:    "plant.csv",
		Table: measurementTable(
			[]string{"Pump-A1", "Pump", "100.0", "40.0", "80.0"},
			[]string{"Pump-A2", "Pump", "200.0", "50.0", "90.0"},
			[]string{"Reactor-R1", "Reactor", "300.0", "60.0", "100.0"},
		),
	})
	require.NoError(t, err)
	require.True(t, result.Accepted)

	_, total, err := repo.ListRecords(ctx, "owner-1", result.DatasetID, 1, 50)
	require.NoError(t, err)
	assert.Equal(t, result.Summary.TotalRecords, total)
	assert.Equal(t, 150.0, *result.Summary.AvgFlowrate)
	assert.Equal(t, map[string]int{"Pump": 2, "Reactor": 1}, result.Summary.TypeDistribution)
}

func TestIngest_RejectionPersistsNothing(t *testing.T) {
	svc, repo := newTestIngest(t, 5)
	ctx := context.Background()

	result, err := svc.Ingest(ctx, IngestRequest{
		OwnerID: "owner-1",
		Name:    "bad.csv",
		Table:   measurementTable([]string{"Pump-A1", "Pump", "-150.5", "45.2", "85.0"}),
	})
	require.NoError(t, err)
	require.False(t, result.Accepted)
	assert.Equal(t, "validation_failed", result.Reason)

	require.NotNil(t, result.Errors)
	fl := result.Errors.NumericValidation["Flowrate"]
	require.NotNil(t, fl)
	require.NotNil(t, fl.NonPositiveValues)
	assert.Equal(t, 1, fl.NonPositiveValues.Count)

	datasets, err := repo.ListDatasets(ctx, "owner-1", 0)
	require.NoError(t, err)
	assert.Empty(t, datasets)
}

func TestIngest_EmptyInputRejected(t *testing.T) {
	svc, repo := newTestIngest(t, 5)
	ctx := context.Background()

	result, err := svc.Ingest(ctx, IngestRequest{
		OwnerID: "owner-1",
		Name:    "empty.csv",
		Table:   measurementTable(),
	})
	require.NoError(t, err)
	require.False(t, result.Accepted)
	assert.Equal(t, "empty_input", result.Reason)
	assert.Nil(t, result.Errors)

	datasets, err := repo.ListDatasets(ctx, "owner-1", 0)
	require.NoError(t, err)
	assert.Empty(t, datasets)
}

func TestIngest_MissingColumnsRejected(t *testing.T) {
	svc, _ := newTestIngest(t, 5)

	result, err := svc.Ingest(context.Background(), IngestRequest{
		OwnerID: "owner-1",
		Name:    "partial.csv",
		Table: tabular.New(
			[]string{"Equipment Name", "Type", "Flowrate"},
			[][]string{{"Pump-A1", "Pump", "150.5"}},
		),
	})
	require.NoError(t, err)
	require.False(t, result.Accepted)
	require.NotNil(t, result.Errors)
	require.NotNil(t, result.Errors.MissingColumns)
	assert.Equal(t, []string{"Pressure", "Temperature"}, result.Errors.MissingColumns.Missing)
}

func TestIngest_RetentionKeepsNewestFive(t *testing.T) {
	svc, repo := newTestIngest(t, 5)
	ctx := context.Background()

	ids := make([]string, 0, 6)
	for i := 0; i < 6; i++ {
		result, err := svc.Ingest(ctx, IngestRequest{
			OwnerID: "owner-1",
			Name:    fmt.Sprintf("upload-%d.csv", i),
			Table:   measurementTable([]string{"Pump-A1", "Pump", "150.5", "45.2", "85.0"}),
		})
		require.NoError(t, err)
		require.True(t, result.Accepted)
		ids = append(ids, result.DatasetID)
	}

	datasets, err := repo.ListDatasets(ctx, "owner-1", 0)
	require.NoError(t, err)
	require.Len(t, datasets, 5)

	// The newest upload survived; the oldest was evicted.
	remaining := make(map[string]bool)
	for _, ds := range datasets {
		remaining[ds.DatasetID] = true
	}
	assert.True(t, remaining[ids[5]])
	assert.False(t, remaining[ids[0]])

	// Records of the evicted dataset are gone too.
	_, total, err := repo.ListRecords(ctx, "owner-1", ids[0], 1, 50)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestIngest_RetentionLimitIsConfigurable(t *testing.T) {
	svc, repo := newTestIngest(t, 2)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		result, err := svc.Ingest(ctx, IngestRequest{
			OwnerID: "owner-1",
			Name:    fmt.Sprintf("upload-%d.csv", i),
			Table:   measurementTable([]string{"Pump-A1", "Pump", "150.5", "45.2", "85.0"}),
		})
		require.NoError(t, err)
		require.True(t, result.Accepted)
	}

	datasets, err := repo.ListDatasets(ctx, "owner-1", 0)
	require.NoError(t, err)
	assert.Len(t, datasets, 2)
}

func TestIngest_RetentionIsPerOwner(t *testing.T) {
	svc, repo := newTestIngest(t, 2)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		for _, owner := range []string{"owner-a", "owner-b"} {
			result, err := svc.Ingest(ctx, IngestRequest{
				OwnerID: owner,
				Name:    fmt.Sprintf("upload-%d.csv", i),
				Table:   measurementTable([]string{"Pump-A1", "Pump", "150.5", "45.2", "85.0"}),
			})
			require.NoError(t, err)
			require.True(t, result.Accepted)
		}
	}

	for _, owner := range []string{"owner-a", "owner-b"} {
		datasets, err := repo.ListDatasets(ctx, owner, 0)
		require.NoError(t, err)
		assert.Len(t, datasets, 2, "owner %s", owner)
	}
}

func TestIngest_RequiresOwnerAndTable(t *testing.T) {
	svc, _ := newTestIngest(t, 5)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, IngestRequest{Name: "x.csv", Table: measurementTable()})
	require.Error(t, err)

	_, err = svc.Ingest(ctx, IngestRequest{OwnerID: "owner-1", Name: "x.csv"})
	require.Error(t, err)
}
