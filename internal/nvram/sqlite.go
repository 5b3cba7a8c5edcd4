package nvram

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

// SQLite is a store backed by a SQLite database, one row per written
// cell. Cells never written read as erased, which preserves the blank
// store semantics of a fresh EEPROM.
type SQLite struct {
	db       *sql.DB
	size     int
	deviceID string
}

// OpenSQLite opens or creates the database. The store size and a
// generated device id are fixed at creation time and read back from
// the meta row on later opens.
func OpenSQLite(path string, size int) (*SQLite, error) {
	if size <= 0 {
		size = DefaultSize
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	s := &SQLite{db: db}

	var deviceID string
	var storedSize int
	err = db.QueryRow(`SELECT device_id, size FROM nvram_meta WHERE id = 1`).Scan(&deviceID, &storedSize)
	switch {
	case err == sql.ErrNoRows:
		deviceID = uuid.NewString()
		if _, err := db.Exec(`INSERT INTO nvram_meta (id, device_id, size) VALUES (1, ?, ?)`, deviceID, size); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create meta row: %w", err)
		}
		s.size = size
		log.Info().Str("device_id", deviceID).Int("size", size).Msg("Created blank sqlite store")
	case err != nil:
		db.Close()
		return nil, fmt.Errorf("failed to read meta row: %w", err)
	default:
		s.size = storedSize
	}
	s.deviceID = deviceID

	return s, nil
}

// initSchema creates the cell and meta tables.
func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS nvram_cell (
			addr INTEGER PRIMARY KEY,
			value INTEGER NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create nvram_cell table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS nvram_meta (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			device_id TEXT NOT NULL,
			size INTEGER NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create nvram_meta table: %w", err)
	}

	return nil
}

// DeviceID returns the identity generated when the store was created.
func (s *SQLite) DeviceID() string {
	return s.deviceID
}

// ReadByte returns the cell at addr, erased if never written.
func (s *SQLite) ReadByte(addr int) (byte, error) {
	if err := checkRange(s.size, addr, 1); err != nil {
		return 0, err
	}
	var value int
	err := s.db.QueryRow(`SELECT value FROM nvram_cell WHERE addr = ?`, addr).Scan(&value)
	if err == sql.ErrNoRows {
		return Erased, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read cell %d: %w", addr, err)
	}
	return byte(value), nil
}

// WriteByte sets the cell at addr.
func (s *SQLite) WriteByte(addr int, value byte) error {
	if err := checkRange(s.size, addr, 1); err != nil {
		return err
	}
	_, err := s.db.Exec(`
		INSERT INTO nvram_cell (addr, value) VALUES (?, ?)
		ON CONFLICT(addr) DO UPDATE SET value = excluded.value
	`, addr, value)
	if err != nil {
		return fmt.Errorf("failed to write cell %d: %w", addr, err)
	}
	return nil
}

// ReadBlock returns n cells starting at addr, erased where unwritten.
func (s *SQLite) ReadBlock(addr, n int) ([]byte, error) {
	if err := checkRange(s.size, addr, n); err != nil {
		return nil, err
	}

	block := make([]byte, n)
	for i := range block {
		block[i] = Erased
	}

	rows, err := s.db.Query(`SELECT addr, value FROM nvram_cell WHERE addr >= ? AND addr < ?`, addr, addr+n)
	if err != nil {
		return nil, fmt.Errorf("failed to read block at %d: %w", addr, err)
	}
	defer rows.Close()

	for rows.Next() {
		var cellAddr, value int
		if err := rows.Scan(&cellAddr, &value); err != nil {
			return nil, fmt.Errorf("failed to scan cell: %w", err)
		}
		block[cellAddr-addr] = byte(value)
	}

	return block, rows.Err()
}

// WriteBlock writes data starting at addr in one transaction.
func (s *SQLite) WriteBlock(addr int, data []byte) error {
	if err := checkRange(s.size, addr, len(data)); err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO nvram_cell (addr, value) VALUES (?, ?)
		ON CONFLICT(addr) DO UPDATE SET value = excluded.value
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for i, value := range data {
		if _, err := stmt.Exec(addr+i, value); err != nil {
			return fmt.Errorf("failed to write cell %d: %w", addr+i, err)
		}
	}

	return tx.Commit()
}

// Size returns the store size in bytes.
func (s *SQLite) Size() int {
	return s.size
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
