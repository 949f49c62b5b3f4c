package database

import (
	"database/sql/driver"
	"errors"
)

// JSONText is a nullable JSON column that stores raw JSON as text, which
// works across PostgreSQL, MySQL and SQLite. A nil JSONText reads and
// writes as SQL NULL.
type JSONText []byte

// Scan implements the sql.Scanner interface for reading from the database.
func (j *JSONText) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		buf := make([]byte, len(v))
		copy(buf, v)
		*j = buf
		return nil
	case string:
		*j = JSONText(v)
		return nil
	default:
		return errors.New("JSONText: unsupported scan type")
	}
}

// Value implements the driver.Valuer interface for writing to the database.
func (j JSONText) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return string(j), nil
}

// GormDataType returns the GORM data type hint.
func (JSONText) GormDataType() string {
	return "text"
}
