package model

import "time"

// AuditLog is a write-once record of who changed what. One row accompanies
// every ledger write and every product edit or delete.
type AuditLog struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Action    string    `db:"action" json:"action"`
	TableName string    `db:"table_name" json:"table_name"`
	RecordID  string    `db:"record_id" json:"record_id"`
	OldValues []byte    `db:"old_values" json:"old_values"` // JSON snapshot
	NewValues []byte    `db:"new_values" json:"new_values"` // JSON snapshot
	IPAddress string    `db:"ip_address" json:"ip_address"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

const (
	AuditActionTransaction = "INVENTORY_TRANSACTION"
	AuditActionUpdate      = "UPDATE"
	AuditActionDelete      = "DELETE"
)
