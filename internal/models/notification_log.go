package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ChannelPush  = "push"
	ChannelEmail = "email"
)

// NotificationLog records a single delivery attempt
type NotificationLog struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Channel   string    `gorm:"type:varchar(20);not null;index" json:"channel"`
	Title     string    `gorm:"type:varchar(255)" json:"title,omitempty"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	Success   bool      `gorm:"not null" json:"success"`
	Error     string    `gorm:"type:text" json:"error,omitempty"`
	Metadata  JSONBMap  `gorm:"type:text" json:"metadata,omitempty"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (n *NotificationLog) SetMetadata(key string, value interface{}) {
	if n.Metadata == nil {
		n.Metadata = make(JSONBMap)
	}
	n.Metadata[key] = value
}

func (n *NotificationLog) String() string {
	status := "sent"
	if !n.Success {
		status = "failed"
	}
	return fmt.Sprintf("NotificationLog[User: %s, Channel: %s, Status: %s, Time: %s]",
		n.UserID, n.Channel, status, n.CreatedAt.Format(time.RFC3339))
}

func (n *NotificationLog) TableName() string {
	return "notification_logs"
}

func (n *NotificationLog) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	return nil
}

// JSONBMap is a string keyed map persisted as JSON text
type JSONBMap map[string]interface{}

// Value implements driver.Valuer interface
func (m JSONBMap) Value() (driver.Value, error) {
	if len(m) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(map[string]interface{}(m))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner interface
func (m *JSONBMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into JSONBMap", value)
	}

	if len(data) == 0 {
		*m = nil
		return nil
	}

	var tmp map[string]interface{}
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}
	*m = tmp
	return nil
}
