// Package types holds the values passed between the dive loop, storage
// backends and controllers.
package types

import (
	"strconv"
	"time"
)

// Reading is one processed sample of a dive session. It is a value copy of
// the loop's state at the sample time and is safe to hand to other goroutines.
type Reading struct {
	Timestamp    time.Time `gorm:"column:time" json:"timestamp" msgpack:"timestamp"`
	SessionID    string    `gorm:"column:session_id" json:"session_id" msgpack:"session_id"`
	SensorName   string    `gorm:"column:sensor" json:"sensor" msgpack:"sensor"`
	Elapsed      float64   `gorm:"column:elapsed" json:"elapsed_minutes" msgpack:"elapsed_minutes"`
	Pressure     float64   `gorm:"column:pressure" json:"pressure_bar" msgpack:"pressure_bar"`
	Depth        float64   `gorm:"column:depth" json:"depth_m" msgpack:"depth_m"`
	Temperature  float64   `gorm:"column:temperature" json:"temperature_c" msgpack:"temperature_c"`
	NDL          int       `gorm:"column:ndl" json:"ndl_minutes" msgpack:"ndl_minutes"`
	Unlimited    bool      `gorm:"column:unlimited" json:"unlimited" msgpack:"unlimited"`
	Ceiling      float64   `gorm:"column:ceiling" json:"ceiling_m" msgpack:"ceiling_m"`
	VerticalRate float64   `gorm:"column:vertical_rate" json:"vertical_rate_m_min" msgpack:"vertical_rate_m_min"`
}

// TableName sets the table used when a Reading is stored with GORM.
func (Reading) TableName() string {
	return "dive_samples"
}

// NDLString renders the NDL the way the display does, "N/A" when unlimited.
func (r Reading) NDLString() string {
	if r.Unlimited {
		return "N/A"
	}
	return strconv.Itoa(r.NDL)
}
