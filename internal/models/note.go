package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// MaxAttachments is the cap on attachment locators per note.
const MaxAttachments = 3

// StringList stores an ordered list of strings as a JSON-encoded text column.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal string list: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = StringList{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for string list", value)
	}
	if len(raw) == 0 {
		*l = StringList{}
		return nil
	}
	return json.Unmarshal(raw, l)
}

// Note represents a single note owned by a user. Attachments holds the
// object-store locator URLs of uploaded images, capped at MaxAttachments.
type Note struct {
	ID          string     `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	UserID      string     `json:"user_id" gorm:"index;type:varchar(36)"`
	Title       string     `json:"title" gorm:"type:varchar(255)" validate:"required,min=1,max=255"`
	Content     string     `json:"content" gorm:"type:text"`
	Attachments StringList `json:"attachments" gorm:"type:text"`
	IsFavourite bool       `json:"isFavourite"`
	IsVoiceNote bool       `json:"isVoiceNote"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
