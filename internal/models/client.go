package models

import "time"

// Client entity. Rows are never physically deleted: closing the validity
// interval (ValidTo set) supersedes the row.
type Client struct {
	ClientID      uint       `gorm:"column:client_id;primaryKey" json:"client_id"`
	DisplayName   string     `gorm:"column:display_name;size:255;not null" json:"display_name"`
	FullName      string     `gorm:"column:full_name;size:255;not null" json:"full_name"`
	IMASignedDate *time.Time `gorm:"column:ima_signed_date" json:"ima_signed_date,omitempty"`
	ValidFrom     time.Time  `gorm:"column:valid_from;autoCreateTime" json:"valid_from"`
	ValidTo       *time.Time `gorm:"column:valid_to;index" json:"valid_to,omitempty"`
}

func (Client) TableName() string { return "clients" }

// ClientPatch carries per-field optionality for partial updates.
// A nil field means "leave unchanged"; a non-nil field is written as-is.
type ClientPatch struct {
	DisplayName   *string    `json:"display_name"`
	FullName      *string    `json:"full_name"`
	IMASignedDate *time.Time `json:"ima_signed_date"`
}

// Changes translates the patch into a deterministic column map for a
// parameterized update. Empty map means nothing to update.
func (p ClientPatch) Changes() map[string]any {
	m := map[string]any{}
	if p.DisplayName != nil {
		m["display_name"] = *p.DisplayName
	}
	if p.FullName != nil {
		m["full_name"] = *p.FullName
	}
	if p.IMASignedDate != nil {
		m["ima_signed_date"] = *p.IMASignedDate
	}
	return m
}
