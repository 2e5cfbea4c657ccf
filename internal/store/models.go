package store

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Separation represents the 'separations' table.
type Separation struct {
	ID             int64     `db:"id" json:"id"`
	OwnerID        string    `db:"owner_id" json:"owner_id"`
	Region         string    `db:"region" json:"region"`
	SeparationDate time.Time `db:"separation_date" json:"separation_date"`
	Status         string    `db:"status" json:"status"`
	FileName       string    `db:"file_name" json:"file_name"`
	TotalItems     int       `db:"total_items" json:"total_items"`
	TotalStores    int       `db:"total_stores" json:"total_stores"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// MaterialItem represents the 'material_items' table.
type MaterialItem struct {
	ID             int64  `db:"id" json:"id"`
	SeparationID   int64  `db:"separation_id" json:"separation_id"`
	MaterialCode   string `db:"material_code" json:"material_code"`
	Description    string `db:"description" json:"description"`
	TypeSeparation string `db:"type_separation" json:"type_separation"`
}

// Cell is a quantity cell joined with its material, as read by views.
type Cell struct {
	ItemID         int64  `db:"item_id" json:"item_id"`
	MaterialCode   string `db:"material_code" json:"material_code"`
	Description    string `db:"description" json:"description"`
	TypeSeparation string `db:"type_separation" json:"type_separation"`
	StoreCode      string `db:"store_code" json:"store_code"`
	Quantity       int64  `db:"quantity" json:"quantity"`
}

// CellWrite sets one cell. Quantity 0 removes the row.
type CellWrite struct {
	ItemID    int64
	StoreCode string
	Quantity  int64
}

// StoreInfo represents the 'stores' master table.
type StoreInfo struct {
	Prefix      string `db:"prefix" json:"prefix"`
	Name        string `db:"name" json:"name"`
	UF          string `db:"uf" json:"uf"`
	ZonaSeco    string `db:"zona_seco" json:"zona_seco"`
	SubzonaSeco string `db:"subzona_seco" json:"subzona_seco"`
	OrdemSeco   int    `db:"ordem_seco" json:"ordem_seco"`
	ZonaFrio    string `db:"zona_frio" json:"zona_frio"`
	SubzonaFrio string `db:"subzona_frio" json:"subzona_frio"`
	OrdemFrio   int    `db:"ordem_frio" json:"ordem_frio"`
}

// AuditEntry represents the 'audit_log' table.
type AuditEntry struct {
	ID           int64          `db:"id" json:"id"`
	SeparationID int64          `db:"separation_id" json:"separation_id"`
	ActorID      string         `db:"actor_id" json:"actor_id"`
	Action       string         `db:"action" json:"action"`
	Details      string         `db:"details" json:"details"`
	Report       types.JSONText `db:"report" json:"report"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}

const (
	StockReference = "reference"
	StockCurrent   = "current"
)

// StockCount represents the 'stock_snapshots' table.
type StockCount struct {
	SeparationID int64  `db:"separation_id" json:"separation_id"`
	Kind         string `db:"kind" json:"kind"`
	MaterialCode string `db:"material_code" json:"material_code"`
	Quantity     int64  `db:"quantity" json:"quantity"`
}
