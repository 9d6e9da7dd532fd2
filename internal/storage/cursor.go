package storage

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/IanTeda/personal-ledger-backend/internal/core"
)

// cursor is the sort key of the last row on a page.
type cursor struct {
	CreatedOn time.Time `json:"c"`
	ID        string    `json:"i"`
}

func encodeCursor(c core.Category) string {
	b, err := json.Marshal(cursor{CreatedOn: c.CreatedOn.UTC(), ID: c.ID.String()})
	if err != nil {
		// cursor holds a time and a string; Marshal cannot fail on it
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

func decodeCursor(s string) (cursor, error) {
	invalid := core.Invalid("cursor", core.RuleFormat, "not a cursor returned by a previous list call")

	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return cursor{}, invalid
	}
	var c cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return cursor{}, invalid
	}
	if c.CreatedOn.IsZero() {
		return cursor{}, invalid
	}
	if _, err := core.ParseRowID(c.ID); err != nil {
		return cursor{}, invalid
	}
	c.CreatedOn = c.CreatedOn.UTC()
	return c, nil
}
