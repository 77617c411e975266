// Package trip defines the record of one vehicle's journey through the
// network. It carries GORM tags but no database code, so the engine can
// produce trips on platforms without a SQL driver.
package trip

import "time"

// Trip is one vehicle's journey from spawn to removal.
type Trip struct {
	ID          uint      `gorm:"primarykey" json:"-"`
	VehicleID   string    `gorm:"size:36;index" json:"vehicle_id"`
	Origin      string    `gorm:"size:64" json:"origin"`
	Destination string    `gorm:"size:64" json:"destination"`
	EndedAt     string    `gorm:"size:64" json:"ended_at"`
	Outcome     string    `gorm:"size:16;index" json:"outcome"`
	SpawnTick   uint64    `json:"spawn_tick"`
	EndTick     uint64    `json:"end_tick"`
	CreatedAt   time.Time `json:"-"`
}

func (Trip) TableName() string { return "trips" }

// Ticks is the number of ticks the trip lasted.
func (t Trip) Ticks() uint64 {
	if t.EndTick < t.SpawnTick {
		return 0
	}
	return t.EndTick - t.SpawnTick
}
