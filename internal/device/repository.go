package device

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Repository defines the interface for device metadata persistence.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// GetByID retrieves metadata by device identifier.
	// Returns ErrDeviceNotFound if the device does not exist.
	GetByID(ctx context.Context, id string) (Metadata, error)

	// List retrieves all cached metadata records.
	List(ctx context.Context) ([]Metadata, error)

	// Upsert inserts or refreshes a metadata record. Discovery runs
	// repeatedly, so existing rows are overwritten.
	Upsert(ctx context.Context, meta Metadata) error

	// Delete removes a metadata record.
	// Returns ErrDeviceNotFound if the device does not exist.
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection with the devices
// table migrated.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const metadataColumns = `device_id, model, sku, category, category_group, name, manufacturer, channels, updated_at`

// GetByID retrieves metadata by device identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (Metadata, error) {
	query := `SELECT ` + metadataColumns + ` FROM devices WHERE device_id = ?`

	meta, err := scanMetadata(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Metadata{}, ErrDeviceNotFound
		}
		return Metadata{}, fmt.Errorf("querying device by id: %w", err)
	}
	return meta, nil
}

// List retrieves all cached metadata records.
func (r *SQLiteRepository) List(ctx context.Context) ([]Metadata, error) {
	query := `SELECT ` + metadataColumns + ` FROM devices ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}
	defer rows.Close()

	var records []Metadata
	for rows.Next() {
		meta, err := scanMetadata(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device row: %w", err)
		}
		records = append(records, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating device rows: %w", err)
	}
	return records, nil
}

// Upsert inserts or refreshes a metadata record.
func (r *SQLiteRepository) Upsert(ctx context.Context, meta Metadata) error {
	if meta.DeviceID == "" {
		return ErrMissingDeviceID
	}

	channels, err := json.Marshal(channelsOrEmpty(meta.Channels))
	if err != nil {
		return fmt.Errorf("encoding channels: %w", err)
	}
	updatedAt := meta.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO devices (device_id, model, sku, category, category_group, name, manufacturer, channels, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(device_id) DO UPDATE SET
			model = excluded.model,
			sku = excluded.sku,
			category = excluded.category,
			category_group = excluded.category_group,
			name = excluded.name,
			manufacturer = excluded.manufacturer,
			channels = excluded.channels,
			updated_at = excluded.updated_at`

	_, err = r.db.ExecContext(ctx, query,
		meta.DeviceID, meta.Model, meta.SKU, meta.Category, meta.CategoryGroup,
		meta.Name, meta.Manufacturer, string(channels), updatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting device %s: %w", meta.DeviceID, err)
	}
	return nil
}

// Delete removes a metadata record.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM devices WHERE device_id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting device %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if affected == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMetadata(scanner rowScanner) (Metadata, error) {
	var (
		meta      Metadata
		channels  string
		updatedAt string
	)
	err := scanner.Scan(
		&meta.DeviceID, &meta.Model, &meta.SKU, &meta.Category,
		&meta.CategoryGroup, &meta.Name, &meta.Manufacturer, &channels, &updatedAt,
	)
	if err != nil {
		return Metadata{}, err
	}

	if channels != "" {
		if err := json.Unmarshal([]byte(channels), &meta.Channels); err != nil {
			return Metadata{}, fmt.Errorf("decoding channels: %w", err)
		}
	}
	if updatedAt != "" {
		if parsed, err := time.Parse(time.RFC3339, updatedAt); err == nil {
			meta.UpdatedAt = parsed
		}
	}
	return meta, nil
}

func channelsOrEmpty(channels map[string]map[string]any) map[string]map[string]any {
	if channels == nil {
		return map[string]map[string]any{}
	}
	return channels
}
