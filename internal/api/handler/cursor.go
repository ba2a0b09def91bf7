package handler

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/bountyloop/marketplace-be/internal/marketplace/storage"
)

// Cursors are base64("<created_at unix nanos>|<id>"), keyset pagination
// over (created_at, id).

func decodeCursor(cursorStr string) (time.Time, string, error) {
	decoded, err := base64.StdEncoding.DecodeString(cursorStr)
	if err != nil {
		return time.Time{}, "", err
	}

	parts := strings.Split(string(decoded), "|")
	if len(parts) != 2 {
		return time.Time{}, "", fmt.Errorf("invalid cursor format")
	}

	var createdAt int64
	if _, err := fmt.Sscanf(parts[0], "%d", &createdAt); err != nil {
		return time.Time{}, "", fmt.Errorf("invalid createdAt in cursor: %w", err)
	}

	return time.Unix(0, createdAt), parts[1], nil
}

func encodeCursor(createdAt time.Time, id string) string {
	cs := fmt.Sprintf("%d|%s", createdAt.UnixNano(), id)
	return base64.StdEncoding.EncodeToString([]byte(cs))
}

func DecodeTaskCursor(cursorStr string) (*storage.TaskCursor, error) {
	if cursorStr == "" {
		return nil, nil
	}
	createdAt, id, err := decodeCursor(cursorStr)
	if err != nil {
		return nil, err
	}
	return &storage.TaskCursor{CreatedAt: createdAt, TaskID: id}, nil
}

func EncodeTaskCursor(cursor *storage.TaskCursor) string {
	return encodeCursor(cursor.CreatedAt, cursor.TaskID)
}

func DecodeRecoveryCursor(cursorStr string) (*storage.RecoveryCursor, error) {
	if cursorStr == "" {
		return nil, nil
	}
	createdAt, id, err := decodeCursor(cursorStr)
	if err != nil {
		return nil, err
	}
	return &storage.RecoveryCursor{CreatedAt: createdAt, RecordID: id}, nil
}

func EncodeRecoveryCursor(cursor *storage.RecoveryCursor) string {
	return encodeCursor(cursor.CreatedAt, cursor.RecordID)
}
