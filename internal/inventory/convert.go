package inventory

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// ToPgUUID wraps a domain UUID for use as a pgx query parameter.
func ToPgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

// PgUUIDValue converts a scanned UUID column back to the domain type.
// NULL scans to uuid.Nil.
func PgUUIDValue(u pgtype.UUID) uuid.UUID {
	if !u.Valid {
		return uuid.Nil
	}
	return uuid.UUID(u.Bytes)
}

// ParseUUID parses client-supplied UUID text, such as a path parameter.
func ParseUUID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return id, nil
}

// ToPgText wraps optional text for a pgx parameter, mapping empty
// strings to NULL.
func ToPgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

// PgTextValue converts a scanned nullable text column to a plain string.
func PgTextValue(t pgtype.Text) string {
	if !t.Valid {
		return ""
	}
	return t.String
}
