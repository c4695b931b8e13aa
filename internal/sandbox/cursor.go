package sandbox

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

var ErrInvalidCursor = errors.New("invalid cursor")

// pageCursor points after the last document of a page ordered by
// (created_at desc, _id desc).
type pageCursor struct {
	CreatedAt time.Time
	ID        string
}

func (c pageCursor) encode() string {
	raw := strconv.FormatInt(c.CreatedAt.UnixNano(), 10) + ":" + c.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(s string) (pageCursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return pageCursor{}, ErrInvalidCursor
	}
	nanos, id, ok := strings.Cut(string(raw), ":")
	if !ok || id == "" {
		return pageCursor{}, ErrInvalidCursor
	}
	n, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil {
		return pageCursor{}, ErrInvalidCursor
	}
	return pageCursor{CreatedAt: time.Unix(0, n).UTC(), ID: id}, nil
}

// after narrows filter to documents that sort after the cursor.
func (c pageCursor) after(filter bson.M) bson.M {
	filter["$or"] = bson.A{
		bson.M{"created_at": bson.M{"$lt": c.CreatedAt}},
		bson.M{"created_at": c.CreatedAt, "_id": bson.M{"$lt": c.ID}},
	}
	return filter
}
