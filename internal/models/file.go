package models

import (
	"database/sql/driver"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoPayload is returned when a file was stored without content.
var ErrNoPayload = errors.New("file has no payload")

// EncodedFile is a file carried inline as base64 text. Only the metadata is
// guaranteed; Base64 may be empty when the client could not read the file.
type EncodedFile struct {
	Name   string `json:"name" validate:"required,max=255"`
	Type   string `json:"type" validate:"max=255"`
	Size   int64  `json:"size" validate:"gte=0"`
	Base64 string `json:"base64,omitempty"`
}

// Previewable reports whether the file carries content that can be shown.
func (f EncodedFile) Previewable() bool {
	return strings.TrimSpace(f.Base64) != ""
}

// Decode returns the raw bytes of the file. A data URL prefix
// ("data:<mime>;base64,") is accepted and stripped.
func (f EncodedFile) Decode() ([]byte, error) {
	payload := strings.TrimSpace(f.Base64)
	if payload == "" {
		return nil, ErrNoPayload
	}
	if strings.HasPrefix(payload, "data:") {
		comma := strings.IndexByte(payload, ',')
		if comma < 0 {
			return nil, fmt.Errorf("decode %s: malformed data url", f.Name)
		}
		payload = payload[comma+1:]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// Some browsers drop padding.
		if raw, rawErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "=")); rawErr == nil {
			return raw, nil
		}
		return nil, fmt.Errorf("decode %s: %w", f.Name, err)
	}
	return data, nil
}

// ContentType returns the declared MIME type or a binary fallback.
func (f EncodedFile) ContentType() string {
	if f.Type == "" {
		return "application/octet-stream"
	}
	return f.Type
}

// WithoutPayload returns a copy of f carrying metadata only.
func (f EncodedFile) WithoutPayload() EncodedFile {
	f.Base64 = ""
	return f
}

// EncodedFiles is the JSONB representation of a submission's files.
type EncodedFiles []EncodedFile

// Value implements driver.Valuer.
func (f EncodedFiles) Value() (driver.Value, error) {
	if f == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(f)
}

// Scan implements sql.Scanner.
func (f *EncodedFiles) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*f = EncodedFiles{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan encoded files: unsupported type %T", src)
	}
	var files []EncodedFile
	if err := json.Unmarshal(raw, &files); err != nil {
		return fmt.Errorf("scan encoded files: %w", err)
	}
	*f = files
	return nil
}
