package sql

import "time"

// DocumentEntity is the row model of the durable_documents table.
type DocumentEntity struct {
	Key       string    `gorm:"column:doc_key;primaryKey"`
	Payload   string    `gorm:"column:payload"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// TableName implements gorm's Tabler.
func (DocumentEntity) TableName() string {
	return "durable_documents"
}
