package marketplace

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/kilianp07/freightmarket/core/apperr"
	"github.com/kilianp07/freightmarket/core/ids"
	"github.com/kilianp07/freightmarket/core/model"
)

// cursorKey is the sort key of the last shipment of a page.
type cursorKey struct {
	CreatedAt time.Time `json:"t"`
	ID        string    `json:"id"`
}

func keyOf(s model.Shipment) cursorKey {
	return cursorKey{CreatedAt: s.CreatedAt, ID: s.ID}
}

// before reports whether a sorts ahead of b in the feed order:
// createdAt descending, then id descending.
func (a cursorKey) before(b cursorKey) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return ids.Compare(a.ID, b.ID) > 0
}

func encodeCursor(k cursorKey) string {
	b, _ := json.Marshal(k)
	return base64.RawURLEncoding.EncodeToString(b)
}

func decodeCursor(s string) (cursorKey, error) {
	var k cursorKey
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return k, apperr.Validation("invalid cursor")
	}
	if err := json.Unmarshal(b, &k); err != nil || k.ID == "" {
		return k, apperr.Validation("invalid cursor")
	}
	return k, nil
}
