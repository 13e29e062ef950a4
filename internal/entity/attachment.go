package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Attachment is an uploaded file plus the metadata linking it to a parent.
// Only the parent fields change after creation.
type Attachment struct {
	ID            string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Filename      string    `gorm:"type:text;not null" json:"filename"`
	Mimetype      string    `gorm:"size:255" json:"mimetype"`
	Size          int64     `gorm:"not null" json:"size"`
	Path          string    `gorm:"type:text;not null" json:"path"`
	Timestamp     time.Time `gorm:"not null;index" json:"timestamp"`
	UserID        string    `gorm:"size:64;not null;index" json:"userId"`
	ParentID      *string   `gorm:"size:255;index:idx_attachments_parent,priority:2" json:"parentId"`
	ParentType    *string   `gorm:"size:100;index:idx_attachments_parent,priority:1" json:"parentType"`
	ParentSubtype *string   `gorm:"size:100" json:"parentSubtype"`
}

func (Attachment) TableName() string {
	return "attachments"
}

func (a *Attachment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

// MutableFields maps the parent fields, by their JSON names, to their current
// values. A nil pointer is reported as a nil value.
func (a *Attachment) MutableFields() map[string]any {
	return map[string]any{
		FieldParentID:      stringOrNil(a.ParentID),
		FieldParentType:    stringOrNil(a.ParentType),
		FieldParentSubtype: stringOrNil(a.ParentSubtype),
	}
}

const (
	FieldParentID      = "parentId"
	FieldParentType    = "parentType"
	FieldParentSubtype = "parentSubtype"
)

// MutableColumns maps every field a patch may change to its column.
var MutableColumns = map[string]string{
	FieldParentID:      "parent_id",
	FieldParentType:    "parent_type",
	FieldParentSubtype: "parent_subtype",
}

// MutableFieldMaxLength is the column size, in characters, of every mutable
// field. The create request carries the same limits in its binding tags.
var MutableFieldMaxLength = map[string]int{
	FieldParentID:      255,
	FieldParentType:    100,
	FieldParentSubtype: 100,
}

func stringOrNil(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
