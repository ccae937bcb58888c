package repository

import (
	"context"
	"database/sql"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lzhang-oss/winboard/internal/models"
)

// Repository provides data access methods
type Repository struct {
	db *sql.DB
}

// New creates a new Repository
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite works best with single connection
	db.SetMaxIdleConns(1)

	repo := &Repository{db: db}

	// Run migrations
	if err := repo.migrate(); err != nil {
		return nil, err
	}

	return repo, nil
}

// DB returns the underlying database connection (for transactions)
func (r *Repository) DB() *sql.DB {
	return r.db
}

// Close closes the database connection
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks if the database connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// migrate runs database migrations
func (r *Repository) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			log_time TEXT,
			nickname TEXT,
			item_type TEXT,
			quantity INTEGER,
			unique_sign TEXT UNIQUE,
			device_id TEXT,
			template_id TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS devices (
			device_id TEXT PRIMARY KEY,
			template_id TEXT DEFAULT 'default',
			nickname TEXT,
			secret TEXT DEFAULT '',
			last_seen REAL,
			process_running INTEGER,
			first_seen REAL
		)`,
		`CREATE TABLE IF NOT EXISTS round_resets (
			device_id TEXT,
			template_id TEXT,
			reset_at TEXT,
			PRIMARY KEY (device_id, template_id)
		)`,
		`CREATE TABLE IF NOT EXISTS daily_overrides (
			date TEXT,
			device_id TEXT,
			template_id TEXT,
			manual_users INTEGER,
			manual_sum INTEGER,
			PRIMARY KEY (date, device_id, template_id)
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_scope ON events(device_id, template_id)`,
		`CREATE INDEX IF NOT EXISTS idx_events_sign ON events(unique_sign)`,
	}

	additionalMigrations := []string{
		`ALTER TABLE devices ADD COLUMN template_id TEXT DEFAULT 'default'`,
		`ALTER TABLE devices ADD COLUMN secret TEXT DEFAULT ''`,
		`ALTER TABLE devices ADD COLUMN first_seen REAL`,
		`ALTER TABLE events ADD COLUMN template_id TEXT`,
		`ALTER TABLE daily_overrides ADD COLUMN template_id TEXT`,
	}

	for _, migration := range migrations {
		if _, err := r.db.Exec(migration); err != nil {
			return err
		}
	}

	for _, migration := range additionalMigrations {
		r.db.Exec(migration) // Ignore errors - columns may already exist
	}

	return nil
}

// ==================== Event Methods ====================

// InsertEvent stores one extracted event. A uniqueness violation on the
// derived sign means the event was already ingested; that is reported as
// inserted=false, never as an error, so overlapping uploads stay safe
// without locking.
func (r *Repository) InsertEvent(ctx context.Context, ev *models.Event) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO events (log_time, nickname, item_type, quantity, unique_sign, device_id, template_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, ev.LogTime, ev.Nickname, ev.ItemType, ev.Quantity, ev.UniqueSign, ev.DeviceID, ev.TemplateID)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListEvents returns every event in a device+template scope in insertion order
func (r *Repository) ListEvents(ctx context.Context, deviceID, templateID string) ([]models.Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, log_time, nickname, item_type, quantity, device_id, template_id
		FROM events WHERE device_id = ? AND template_id = ?
		ORDER BY id
	`, deviceID, templateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ListRecentEvents returns the most recent events in scope, newest first.
// Detail views are expected to pass a bounded limit (a few thousand).
func (r *Repository) ListRecentEvents(ctx context.Context, deviceID, templateID string, limit int) ([]models.Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, log_time, nickname, item_type, quantity, device_id, template_id
		FROM events WHERE device_id = ? AND template_id = ?
		ORDER BY id DESC LIMIT ?
	`, deviceID, templateID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]models.Event, error) {
	var events []models.Event
	for rows.Next() {
		var ev models.Event
		var logTime, nickname, itemType, deviceID, templateID sql.NullString
		if err := rows.Scan(&ev.ID, &logTime, &nickname, &itemType, &ev.Quantity, &deviceID, &templateID); err != nil {
			return nil, err
		}
		ev.LogTime = logTime.String
		ev.Nickname = nickname.String
		ev.ItemType = itemType.String
		ev.DeviceID = deviceID.String
		ev.TemplateID = templateID.String
		events = append(events, ev)
	}
	return events, rows.Err()
}

// UpdateEventCorrection is the administrative override path: fix a
// nickname/quantity by event id. The unique sign is left untouched so the
// original upload stays deduplicated against itself.
func (r *Repository) UpdateEventCorrection(ctx context.Context, id int64, nickname string, quantity int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE events SET nickname = ?, quantity = ? WHERE id = ?`,
		nickname, quantity, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ==================== Device Methods ====================

// UpsertDevice creates a device row on first contact and updates it in
// place afterwards. first_seen is written once and preserved so node
// listings keep a stable order.
func (r *Repository) UpsertDevice(ctx context.Context, deviceID, nickname, templateID string, running bool, seenAt float64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO devices (device_id, template_id, nickname, last_seen, process_running, first_seen)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(device_id) DO UPDATE SET
			template_id = excluded.template_id,
			nickname = excluded.nickname,
			last_seen = excluded.last_seen,
			process_running = excluded.process_running
	`, deviceID, templateID, nickname, seenAt, boolToInt(running), seenAt)
	return err
}

// GetDevice returns one device scope
func (r *Repository) GetDevice(ctx context.Context, deviceID string) (*models.Device, error) {
	var d models.Device
	var templateID, nickname, secret sql.NullString
	var lastSeen, firstSeen sql.NullFloat64
	var running sql.NullInt64
	err := r.db.QueryRowContext(ctx, `
		SELECT device_id, template_id, nickname, secret, last_seen, process_running, first_seen
		FROM devices WHERE device_id = ?
	`, deviceID).Scan(&d.DeviceID, &templateID, &nickname, &secret, &lastSeen, &running, &firstSeen)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	d.TemplateID = templateID.String
	d.Nickname = nickname.String
	d.Secret = secret.String
	d.LastSeen = lastSeen.Float64
	d.ProcessRunning = running.Int64 != 0
	d.FirstSeen = firstSeen.Float64
	return &d, nil
}

// ListDevices returns all devices ordered by first contact
func (r *Repository) ListDevices(ctx context.Context) ([]models.Device, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT device_id, template_id, nickname, secret, last_seen, process_running, first_seen
		FROM devices ORDER BY first_seen
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var devices []models.Device
	for rows.Next() {
		var d models.Device
		var templateID, nickname, secret sql.NullString
		var lastSeen, firstSeen sql.NullFloat64
		var running sql.NullInt64
		if err := rows.Scan(&d.DeviceID, &templateID, &nickname, &secret, &lastSeen, &running, &firstSeen); err != nil {
			return nil, err
		}
		d.TemplateID = templateID.String
		d.Nickname = nickname.String
		d.Secret = secret.String
		d.LastSeen = lastSeen.Float64
		d.ProcessRunning = running.Int64 != 0
		d.FirstSeen = firstSeen.Float64
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

// SetDeviceSecret sets or clears the shared upload secret for a device
func (r *Repository) SetDeviceSecret(ctx context.Context, deviceID, secret string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE devices SET secret = ? WHERE device_id = ?`, secret, deviceID)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteDeviceData removes a device and everything keyed to it: events,
// round resets and daily overrides.
func (r *Repository) DeleteDeviceData(ctx context.Context, deviceID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM events WHERE device_id = ?`,
		`DELETE FROM round_resets WHERE device_id = ?`,
		`DELETE FROM daily_overrides WHERE device_id = ?`,
		`DELETE FROM devices WHERE device_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, deviceID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ==================== Round Reset Methods ====================

// SetRoundReset overwrites the manual round-start instant for a scope.
// Last writer wins; the REPLACE is a single statement so readers never
// observe a torn entry.
func (r *Repository) SetRoundReset(ctx context.Context, deviceID, templateID, resetAt string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO round_resets (device_id, template_id, reset_at) VALUES (?, ?, ?)`,
		deviceID, templateID, resetAt)
	return err
}

// GetRoundReset returns the manual round-start instant for a scope
func (r *Repository) GetRoundReset(ctx context.Context, deviceID, templateID string) (string, error) {
	var resetAt string
	err := r.db.QueryRowContext(ctx,
		`SELECT reset_at FROM round_resets WHERE device_id = ? AND template_id = ?`,
		deviceID, templateID).Scan(&resetAt)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return resetAt, err
}

// ==================== Daily Override Methods ====================

// SetDailyOverride stores or replaces an operator override for one day
func (r *Repository) SetDailyOverride(ctx context.Context, o *models.DailyOverride) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO daily_overrides (date, device_id, template_id, manual_users, manual_sum)
		VALUES (?, ?, ?, ?, ?)
	`, o.Date, o.DeviceID, o.TemplateID, o.ManualUsers, o.ManualSum)
	return err
}

// ListDailyOverrides returns every override in a device+template scope
func (r *Repository) ListDailyOverrides(ctx context.Context, deviceID, templateID string) ([]models.DailyOverride, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT date, device_id, template_id, manual_users, manual_sum
		FROM daily_overrides WHERE device_id = ? AND template_id = ?
	`, deviceID, templateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var overrides []models.DailyOverride
	for rows.Next() {
		var o models.DailyOverride
		if err := rows.Scan(&o.Date, &o.DeviceID, &o.TemplateID, &o.ManualUsers, &o.ManualSum); err != nil {
			return nil, err
		}
		overrides = append(overrides, o)
	}
	return overrides, rows.Err()
}

// ==================== Settings Methods ====================

// GetSetting retrieves a setting value
func (r *Repository) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return value, err
}

// SetSetting updates a setting value
func (r *Repository) SetSetting(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`, key, value)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
