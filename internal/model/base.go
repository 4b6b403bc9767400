package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Role identifies which kind of principal a token belongs to.
type Role string

const (
	RoleUser   Role = "user"
	RoleDoctor Role = "doctor"
	RoleAdmin  Role = "admin"
)

// Actor is the authenticated principal performing an operation.
// Admin actors carry uuid.Nil as ID.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

// Address is the two-line postal address shared by users and doctors.
type Address struct {
	Line1 string `json:"line1"`
	Line2 string `json:"line2"`
}

// Value implements driver.Valuer for JSONB columns.
func (a Address) Value() (driver.Value, error) {
	return json.Marshal(a)
}

// Scan implements sql.Scanner for JSONB columns.
func (a *Address) Scan(src interface{}) error {
	return scanJSON(src, a)
}

// ParseAddress accepts the address either as a JSON object or as a JSON
// string wrapping one. An empty input yields the zero Address.
func ParseAddress(raw string) (Address, error) {
	var addr Address
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return addr, nil
	}
	if strings.HasPrefix(raw, `"`) {
		var inner string
		if err := json.Unmarshal([]byte(raw), &inner); err != nil {
			return addr, err
		}
		raw = inner
	}
	if err := json.Unmarshal([]byte(raw), &addr); err != nil {
		return addr, err
	}
	return addr, nil
}

func scanJSON(src interface{}, dst interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dst)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported JSON column type %T", src)
	}
}
