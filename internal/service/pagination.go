package service

import (
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	"github.com/Baaaki/chapterhub/internal/models"
	"github.com/Baaaki/chapterhub/internal/repository"
)

const (
	MinPageSize = 1
	MaxPageSize = 100
)

// Page is one slice of a room's history in chronological order. NextCursor is
// nil when there is nothing older to fetch.
type Page struct {
	Messages   []models.Message `json:"messages"`
	NextCursor *string          `json:"next_cursor"`
	HasMore    bool             `json:"has_more"`
}

// ClampLimit forces a requested page size into [MinPageSize, MaxPageSize].
func ClampLimit(limit int) int {
	if limit < MinPageSize {
		return MinPageSize
	}
	if limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}

// EncodeCursor builds the opaque token pointing just past msg.
// Layout before encoding: <RFC3339Nano created_at>|<id>.
func EncodeCursor(msg models.Message) string {
	raw := msg.CreatedAt.UTC().Format(time.RFC3339Nano) + "|" + strconv.FormatInt(msg.ID, 10)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a token produced by EncodeCursor. A bare RFC3339
// timestamp is accepted as a timestamp-only bound. Anything else yields nil,
// which callers treat as "start from the newest message".
func DecodeCursor(token string) *repository.Cursor {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}

	if raw, err := base64.RawURLEncoding.DecodeString(token); err == nil {
		if ts, id, ok := strings.Cut(string(raw), "|"); ok {
			createdAt, tsErr := time.Parse(time.RFC3339Nano, ts)
			messageID, idErr := strconv.ParseInt(id, 10, 64)
			if tsErr == nil && idErr == nil && messageID > 0 {
				return &repository.Cursor{CreatedAt: createdAt.UTC(), ID: messageID}
			}
		}
	}

	if createdAt, err := time.Parse(time.RFC3339Nano, token); err == nil {
		return &repository.Cursor{CreatedAt: createdAt.UTC()}
	}
	return nil
}

// buildPage turns the result of a limit+1 scan into a page. rows are oldest
// first, so the surplus row, if any, is rows[0].
func buildPage(rows []models.Message, limit int) *Page {
	page := &Page{Messages: rows}

	if len(rows) > limit {
		page.Messages = rows[len(rows)-limit:]
		page.HasMore = true
		cursor := EncodeCursor(page.Messages[0])
		page.NextCursor = &cursor
	}

	if page.Messages == nil {
		page.Messages = []models.Message{}
	}
	return page
}
