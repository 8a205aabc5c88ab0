package models

import (
	"database/sql/driver"
	"fmt"
)

// Preferences holds the attendee's free-form preference payload as raw JSON.
// Whatever the client sent (object, string, array) is stored and returned verbatim.
type Preferences []byte

func (p Preferences) Value() (driver.Value, error) {
	if len(p) == 0 {
		return nil, nil
	}
	return string(p), nil
}

func (p *Preferences) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*p = nil
	case []byte:
		*p = append(Preferences(nil), v...)
	case string:
		*p = Preferences(v)
	default:
		return fmt.Errorf("preferences: unsupported column type %T", value)
	}
	return nil
}

func (p Preferences) MarshalJSON() ([]byte, error) {
	if len(p) == 0 {
		return []byte("null"), nil
	}
	return p, nil
}

func (p *Preferences) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = nil
		return nil
	}
	*p = append(Preferences(nil), data...)
	return nil
}
