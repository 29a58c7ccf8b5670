package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"equipdata/internal/domain"
)

// PostgresDatasetsRepository DatasetsRepository backed by PostgreSQL.
type PostgresDatasetsRepository struct {
	db *sql.DB
}

// NewPostgresDatasetsRepository creates a datasets repository on the given
// connection pool.
func NewPostgresDatasetsRepository(db *sql.DB) *PostgresDatasetsRepository {
	return &PostgresDatasetsRepository{db: db}
}

var _ DatasetsRepository = (*PostgresDatasetsRepository)(nil)

// InsertDataset inserts the dataset row and all records in one transaction.
func (r *PostgresDatasetsRepository) InsertDataset(ctx context.Context, dataset *domain.Dataset, records []domain.EquipmentRecord) error {
	if dataset.OwnerID == "" {
		return fmt.Errorf("owner_id is required")
	}
	if dataset.DatasetID == "" {
		dataset.DatasetID = uuid.New().String()
	}
	if dataset.CreatedAt == 0 {
		dataset.CreatedAt = time.Now().Unix()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO datasets (dataset_id, owner_id, name, record_count, type_distribution, created_at)
		 VALUES ($1::uuid, $2, $3, $4, $5::jsonb, to_timestamp($6))`,
		dataset.DatasetID, dataset.OwnerID, dataset.Name, dataset.RecordCount, "{}", dataset.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert dataset: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO equipment_records (record_id, dataset_id, row_idx, equipment_name, equipment_type, flowrate, pressure, temperature)
		 VALUES ($1::uuid, $2::uuid, $3, $4, $5, $6, $7, $8)`,
	)
	if err != nil {
		return fmt.Errorf("failed to prepare record insert: %w", err)
	}
	defer stmt.Close()

	for i := range records {
		rec := &records[i]
		if rec.RecordID == "" {
			rec.RecordID = uuid.New().String()
		}
		rec.DatasetID = dataset.DatasetID
		if _, err := stmt.ExecContext(ctx,
			rec.RecordID, rec.DatasetID, i,
			rec.EquipmentName, rec.EquipmentType,
			rec.Flowrate, rec.Pressure, rec.Temperature,
		); err != nil {
			return fmt.Errorf("failed to insert record %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit dataset insert: %w", err)
	}
	return nil
}

// SaveSummary writes the computed summary fields onto the dataset row.
func (r *PostgresDatasetsRepository) SaveSummary(ctx context.Context, ownerID, datasetID string, summary *domain.Summary) error {
	if ownerID == "" || datasetID == "" {
		return fmt.Errorf("owner_id and dataset_id are required")
	}

	dist, err := json.Marshal(summary.TypeDistribution)
	if err != nil {
		return fmt.Errorf("failed to marshal type distribution: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE datasets
		 SET record_count = $1,
		     avg_flowrate = $2,
		     avg_pressure = $3,
		     avg_temperature = $4,
		     type_distribution = $5::jsonb
		 WHERE owner_id = $6
		   AND dataset_id = $7::uuid`,
		summary.TotalRecords,
		nullableFloat(summary.AvgFlowrate),
		nullableFloat(summary.AvgPressure),
		nullableFloat(summary.AvgTemperature),
		string(dist), ownerID, datasetID,
	)
	if err != nil {
		return fmt.Errorf("failed to save summary: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("dataset %s not found for owner", datasetID)
	}
	return nil
}

// DeleteDataset removes the dataset row; equipment_records cascade via FK.
func (r *PostgresDatasetsRepository) DeleteDataset(ctx context.Context, ownerID, datasetID string) error {
	if ownerID == "" || datasetID == "" {
		return fmt.Errorf("owner_id and dataset_id are required")
	}

	_, err := r.db.ExecContext(ctx,
		`DELETE FROM datasets WHERE owner_id = $1 AND dataset_id = $2::uuid`,
		ownerID, datasetID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}
	return nil
}

// GetDataset returns the dataset with its stored summary, or nil if absent.
func (r *PostgresDatasetsRepository) GetDataset(ctx context.Context, ownerID, datasetID string) (*domain.Dataset, error) {
	if ownerID == "" || datasetID == "" {
		return nil, fmt.Errorf("owner_id and dataset_id are required")
	}

	row := r.db.QueryRowContext(ctx,
		`SELECT dataset_id::text, owner_id, name, record_count,
		        avg_flowrate, avg_pressure, avg_temperature,
		        type_distribution::text,
		        EXTRACT(EPOCH FROM created_at)::bigint
		 FROM datasets
		 WHERE owner_id = $1 AND dataset_id = $2::uuid`,
		ownerID, datasetID,
	)

	ds, err := scanDataset(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}
	return ds, nil
}

// ListDatasets returns the owner's datasets newest first.
func (r *PostgresDatasetsRepository) ListDatasets(ctx context.Context, ownerID string, limit int) ([]*domain.Dataset, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("owner_id is required")
	}

	query := `SELECT dataset_id::text, owner_id, name, record_count,
	                 avg_flowrate, avg_pressure, avg_temperature,
	                 type_distribution::text,
	                 EXTRACT(EPOCH FROM created_at)::bigint
	          FROM datasets
	          WHERE owner_id = $1
	          ORDER BY created_at DESC, dataset_id DESC`
	args := []any{ownerID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	defer rows.Close()

	datasets := make([]*domain.Dataset, 0)
	for rows.Next() {
		ds, err := scanDataset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dataset: %w", err)
		}
		datasets = append(datasets, ds)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate datasets: %w", err)
	}
	return datasets, nil
}

// ListRecords returns one page of records in original row order.
func (r *PostgresDatasetsRepository) ListRecords(ctx context.Context, ownerID, datasetID string, page, size int) ([]*domain.EquipmentRecord, int, error) {
	if ownerID == "" || datasetID == "" {
		return nil, 0, fmt.Errorf("owner_id and dataset_id are required")
	}
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}
	offset := (page - 1) * size

	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*)
		 FROM equipment_records er
		 JOIN datasets d ON d.dataset_id = er.dataset_id
		 WHERE d.owner_id = $1 AND er.dataset_id = $2::uuid`,
		ownerID, datasetID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count records: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT er.record_id::text, er.dataset_id::text,
		        er.equipment_name, er.equipment_type,
		        er.flowrate, er.pressure, er.temperature
		 FROM equipment_records er
		 JOIN datasets d ON d.dataset_id = er.dataset_id
		 WHERE d.owner_id = $1 AND er.dataset_id = $2::uuid
		 ORDER BY er.row_idx
		 LIMIT $3 OFFSET $4`,
		ownerID, datasetID, size, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	records := make([]*domain.EquipmentRecord, 0)
	for rows.Next() {
		var rec domain.EquipmentRecord
		if err := rows.Scan(
			&rec.RecordID, &rec.DatasetID,
			&rec.EquipmentName, &rec.EquipmentType,
			&rec.Flowrate, &rec.Pressure, &rec.Temperature,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate records: %w", err)
	}

	return records, total, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanDataset(s scanner) (*domain.Dataset, error) {
	var (
		ds       domain.Dataset
		avgFlow  sql.NullFloat64
		avgPress sql.NullFloat64
		avgTemp  sql.NullFloat64
		distJSON string
	)
	if err := s.Scan(
		&ds.DatasetID, &ds.OwnerID, &ds.Name, &ds.RecordCount,
		&avgFlow, &avgPress, &avgTemp, &distJSON, &ds.CreatedAt,
	); err != nil {
		return nil, err
	}

	if avgFlow.Valid {
		ds.AvgFlowrate = &avgFlow.Float64
	}
	if avgPress.Valid {
		ds.AvgPressure = &avgPress.Float64
	}
	if avgTemp.Valid {
		ds.AvgTemperature = &avgTemp.Float64
	}

	ds.TypeDistribution = make(map[string]int)
	if distJSON != "" {
		if err := json.Unmarshal([]byte(distJSON), &ds.TypeDistribution); err != nil {
			return nil, fmt.Errorf("failed to unmarshal type distribution: %w", err)
		}
	}
	return &ds, nil
}

func nullableFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
