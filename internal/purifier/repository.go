package purifier

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for device persistence operations.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// Get retrieves a device configuration by ID.
	// Returns ErrNotFound if the device does not exist.
	Get(ctx context.Context, id string) (*DeviceConfig, error)

	// List retrieves all persisted device configurations.
	List(ctx context.Context) ([]DeviceConfig, error)

	// Create inserts a new device registration.
	// Returns ErrAlreadyRegistered when the ID or address is taken.
	Create(ctx context.Context, cfg *DeviceConfig) error

	// Delete removes a device registration.
	// Returns ErrNotFound if the device does not exist.
	Delete(ctx context.Context, id string) error

	// UpdateSnapshot stores the device's latest normalized snapshot.
	UpdateSnapshot(ctx context.Context, id string, snap StatusSnapshot) error

	// UpdateHealth updates the reachability state and last-seen timestamp.
	UpdateHealth(ctx context.Context, id string, status HealthStatus, lastSeen time.Time) error

	// LastSnapshot retrieves the persisted snapshot, if any.
	// Returns ErrNotFound if the device does not exist; (nil, nil) when
	// the device exists but has never been polled.
	LastSnapshot(ctx context.Context, id string) (*StatusSnapshot, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection with the schema
// migrations applied.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Get retrieves a device configuration by ID.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (*DeviceConfig, error) {
	query := `
		SELECT id, name, address, transport, poll_interval_seconds,
			timeout_ms, max_retries, disable_polling_on_error
		FROM devices
		WHERE id = ?`

	cfg, err := scanDevice(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying device by id: %w", err)
	}
	return cfg, nil
}

// List retrieves all persisted device configurations.
func (r *SQLiteRepository) List(ctx context.Context) ([]DeviceConfig, error) {
	query := `
		SELECT id, name, address, transport, poll_interval_seconds,
			timeout_ms, max_retries, disable_polling_on_error
		FROM devices
		ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}
	defer rows.Close()

	var configs []DeviceConfig
	for rows.Next() {
		cfg, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device row: %w", err)
		}
		configs = append(configs, *cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating device rows: %w", err)
	}
	return configs, nil
}

// Create inserts a new device registration.
func (r *SQLiteRepository) Create(ctx context.Context, cfg *DeviceConfig) error {
	query := `
		INSERT INTO devices (id, name, address, transport,
			poll_interval_seconds, timeout_ms, max_retries,
			disable_polling_on_error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		cfg.ID,
		cfg.Name,
		cfg.Address,
		string(cfg.Transport),
		int(cfg.PollInterval.Seconds()),
		cfg.Timeout.Milliseconds(),
		cfg.retries(),
		boolToInt(cfg.DisablePollingOnError),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrAlreadyRegistered, cfg.ID)
		}
		return fmt.Errorf("inserting device: %w", err)
	}
	return nil
}

// Delete removes a device registration.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM devices WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateSnapshot stores the device's latest normalized snapshot as JSON.
func (r *SQLiteRepository) UpdateSnapshot(ctx context.Context, id string, snap StatusSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshalling snapshot: %w", err)
	}

	query := `
		UPDATE devices
		SET last_snapshot = ?, snapshot_at = ?,
			updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, string(data), snap.UpdatedAt.UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("updating snapshot: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking snapshot update: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateHealth updates the reachability state and last-seen timestamp.
func (r *SQLiteRepository) UpdateHealth(ctx context.Context, id string, status HealthStatus, lastSeen time.Time) error {
	query := `
		UPDATE devices
		SET health_status = ?, health_last_seen = ?,
			updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, string(status), lastSeen.UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("updating health: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking health update: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// LastSnapshot retrieves the persisted snapshot, if any.
func (r *SQLiteRepository) LastSnapshot(ctx context.Context, id string) (*StatusSnapshot, error) {
	var data sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT last_snapshot FROM devices WHERE id = ?`, id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying snapshot: %w", err)
	}
	if !data.Valid || data.String == "" {
		return nil, nil
	}

	var snap StatusSnapshot
	if err := json.Unmarshal([]byte(data.String), &snap); err != nil {
		return nil, fmt.Errorf("unmarshalling snapshot: %w", err)
	}
	return &snap, nil
}

// rowScanner abstracts sql.Row and sql.Rows for shared scanning logic.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDevice reads one device row into a DeviceConfig.
func scanDevice(row rowScanner) (*DeviceConfig, error) {
	var (
		cfg          DeviceConfig
		transport    string
		intervalSecs int64
		timeoutMs    int64
		maxRetries   int
		disableInt   int
	)

	err := row.Scan(
		&cfg.ID,
		&cfg.Name,
		&cfg.Address,
		&transport,
		&intervalSecs,
		&timeoutMs,
		&maxRetries,
		&disableInt,
	)
	if err != nil {
		return nil, err
	}

	cfg.Transport = Transport(transport)
	cfg.PollInterval = time.Duration(intervalSecs) * time.Second
	cfg.Timeout = time.Duration(timeoutMs) * time.Millisecond
	cfg.MaxRetries = &maxRetries
	cfg.DisablePollingOnError = disableInt != 0
	return &cfg, nil
}

// isUniqueViolation reports whether err is a SQLite unique constraint error.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
