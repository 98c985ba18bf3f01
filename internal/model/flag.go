package model

import (
	"database/sql/driver"
	"fmt"
)

// Flag is a boolean stored as a 0/1 INTEGER column. It encodes to JSON as a
// plain boolean.
type Flag bool

// Value implements driver.Valuer.
func (f Flag) Value() (driver.Value, error) {
	if f {
		return int64(1), nil
	}
	return int64(0), nil
}

// Scan implements sql.Scanner.
func (f *Flag) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*f = false
	case int64:
		*f = v != 0
	case bool:
		*f = Flag(v)
	case []byte:
		*f = len(v) > 0 && string(v) != "0"
	case string:
		*f = v != "" && v != "0"
	default:
		return fmt.Errorf("scan flag: unsupported type %T", src)
	}
	return nil
}
