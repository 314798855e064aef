package models

// RequestSequence is the atomic counter source for request-number minting,
// one row per calendar date. Rows grow forever and are never deleted; the
// counter is only ever touched under a row lock inside a transaction.
type RequestSequence struct {
	DateKey         string `gorm:"primaryKey;column:date_key;size:8" json:"date_key"`
	CurrentSequence int    `gorm:"column:current_sequence;not null;default:0" json:"current_sequence"`
}

func (RequestSequence) TableName() string {
	return "request_sequences"
}
