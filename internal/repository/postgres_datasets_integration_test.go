// +build integration

package repository

import (
	"context"
	"database/sql"
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equipdata/internal/database"
	"equipdata/internal/domain"
)

func getTestDB(t *testing.T) *sql.DB {
	cfg := &database.Config{
		Host:     getTestEnv("TEST_DB_HOST", "localhost"),
		Port:     getTestEnvInt("TEST_DB_PORT", 5432),
		User:     getTestEnv("TEST_DB_USER", "postgres"),
		Password: getTestEnv("TEST_DB_PASSWORD", "postgres"),
		Database: getTestEnv("TEST_DB_NAME", "equipdata"),
		SSLMode:  getTestEnv("TEST_DB_SSLMODE", "disable"),
	}

	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		t.Skipf("Skipping integration test: cannot connect to database: %v", err)
		return nil
	}
	return db
}

func getTestEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getTestEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func cleanupOwner(t *testing.T, db *sql.DB, ownerID string) {
	_, _ = db.Exec(`DELETE FROM datasets WHERE owner_id = $1`, ownerID)
}

func testRecords(n int) []domain.EquipmentRecord {
	records := make([]domain.EquipmentRecord, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, domain.EquipmentRecord{
			EquipmentName: "Pump-A1",
			EquipmentType: "Pump",
			Flowrate:      150.5,
			Pressure:      45.2,
			Temperature:   85.0,
		})
	}
	return records
}

func TestPostgresDatasets_InsertAndGet(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	ownerID := "it-owner-insert"
	defer cleanupOwner(t, db, ownerID)

	repo := NewPostgresDatasetsRepository(db)
	ctx := context.Background()

	ds := &domain.Dataset{OwnerID: ownerID, Name: "plant.csv", RecordCount: 2}
	require.NoError(t, repo.InsertDataset(ctx, ds, testRecords(2)))
	require.NotEmpty(t, ds.DatasetID)

	got, err := repo.GetDataset(ctx, ownerID, ds.DatasetID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "plant.csv", got.Name)
	assert.Equal(t, 2, got.RecordCount)
	// Summary not yet written: averages stay null.
	assert.Nil(t, got.AvgFlowrate)
	assert.Empty(t, got.TypeDistribution)
}

func TestPostgresDatasets_SaveSummary(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	ownerID := "it-owner-summary"
	defer cleanupOwner(t, db, ownerID)

	repo := NewPostgresDatasetsRepository(db)
	ctx := context.Background()

	ds := &domain.Dataset{OwnerID: ownerID, Name: "plant.csv", RecordCount: 1}
	require.NoError(t, repo.InsertDataset(ctx, ds, testRecords(1)))

	avg := 150.5
	avgP := 45.2
	avgT := 85.0
	summary := &domain.Summary{
		TotalRecords:     1,
		AvgFlowrate:      &avg,
		AvgPressure:      &avgP,
		AvgTemperature:   &avgT,
		TypeDistribution: map[string]int{"Pump": 1},
	}
	require.NoError(t, repo.SaveSummary(ctx, ownerID, ds.DatasetID, summary))

	got, err := repo.GetDataset(ctx, ownerID, ds.DatasetID)
	require.NoError(t, err)
	require.NotNil(t, got.AvgFlowrate)
	assert.Equal(t, 150.5, *got.AvgFlowrate)
	assert.Equal(t, map[string]int{"Pump": 1}, got.TypeDistribution)

	// Unknown dataset: explicit error.
	err = repo.SaveSummary(ctx, ownerID, "00000000-0000-0000-0000-000000000000", summary)
	require.Error(t, err)
}

func TestPostgresDatasets_OwnerScoping(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	ownerID := "it-owner-scope"
	defer cleanupOwner(t, db, ownerID)

	repo := NewPostgresDatasetsRepository(db)
	ctx := context.Background()

	ds := &domain.Dataset{OwnerID: ownerID, Name: "plant.csv"}
	require.NoError(t, repo.InsertDataset(ctx, ds, nil))

	got, err := repo.GetDataset(ctx, "someone-else", ds.DatasetID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPostgresDatasets_ListNewestFirst(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	ownerID := "it-owner-list"
	defer cleanupOwner(t, db, ownerID)

	repo := NewPostgresDatasetsRepository(db)
	ctx := context.Background()

	ids := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		ds := &domain.Dataset{
			OwnerID:   ownerID,
			Name:      "upload.csv",
			CreatedAt: int64(1700000000 + i),
		}
		require.NoError(t, repo.InsertDataset(ctx, ds, nil))
		ids = append(ids, ds.DatasetID)
	}

	datasets, err := repo.ListDatasets(ctx, ownerID, 0)
	require.NoError(t, err)
	require.Len(t, datasets, 3)
	assert.Equal(t, ids[2], datasets[0].DatasetID)
	assert.Equal(t, ids[0], datasets[2].DatasetID)

	limited, err := repo.ListDatasets(ctx, ownerID, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestPostgresDatasets_DeleteCascades(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	ownerID := "it-owner-delete"
	defer cleanupOwner(t, db, ownerID)

	repo := NewPostgresDatasetsRepository(db)
	ctx := context.Background()

	ds := &domain.Dataset{OwnerID: ownerID, Name: "plant.csv", RecordCount: 3}
	require.NoError(t, repo.InsertDataset(ctx, ds, testRecords(3)))

	require.NoError(t, repo.DeleteDataset(ctx, ownerID, ds.DatasetID))

	got, err := repo.GetDataset(ctx, ownerID, ds.DatasetID)
	require.NoError(t, err)
	assert.Nil(t, got)

	var orphaned int
	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM equipment_records WHERE dataset_id = $1::uuid`,
		ds.DatasetID,
	).Scan(&orphaned))
	assert.Equal(t, 0, orphaned)

	// Deleting an absent dataset is not an error.
	require.NoError(t, repo.DeleteDataset(ctx, ownerID, ds.DatasetID))
}

func TestPostgresDatasets_ListRecordsPaged(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	ownerID := "it-owner-records"
	defer cleanupOwner(t, db, ownerID)

	repo := NewPostgresDatasetsRepository(db)
	ctx := context.Background()

	records := make([]domain.EquipmentRecord, 0, 7)
	for i := 0; i < 7; i++ {
		records = append(records, domain.EquipmentRecord{
			EquipmentName: "Pump-" + strconv.Itoa(i),
			EquipmentType: "Pump",
			Flowrate:      100.0,
			Pressure:      40.0,
			Temperature:   80.0,
		})
	}
	ds := &domain.Dataset{OwnerID: ownerID, Name: "plant.csv", RecordCount: 7}
	require.NoError(t, repo.InsertDataset(ctx, ds, records))

	page1, total, err := repo.ListRecords(ctx, ownerID, ds.DatasetID, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, 7, total)
	require.Len(t, page1, 3)
	assert.Equal(t, "Pump-0", page1[0].EquipmentName)

	page3, _, err := repo.ListRecords(ctx, ownerID, ds.DatasetID, 3, 3)
	require.NoError(t, err)
	require.Len(t, page3, 1)
	assert.Equal(t, "Pump-6", page3[0].EquipmentName)
}
