package models

import (
	"database/sql/driver"
	"encoding/json"
)

// AgeGate is an age restriction on a KB item
type AgeGate struct {
	Min          *float64 `json:"min,omitempty"`
	Max          *float64 `json:"max,omitempty"`
	Unit         string   `json:"unit,omitempty"` // "years" (default) or "months"
	MinInclusive *bool    `json:"min_inclusive,omitempty"`
	MaxInclusive *bool    `json:"max_inclusive,omitempty"`
}

// ServiceRequirements are the service-level gates and hints on a KB item
type ServiceRequirements struct {
	MinDurationMinutes   *float64 `json:"min_duration_minutes,omitempty"`
	MaxDurationMinutes   *float64 `json:"max_duration_minutes,omitempty"`
	ComponentsRequired   []string `json:"components_required,omitempty"`
	ComponentsProhibited []string `json:"components_prohibited,omitempty"`
}

// SettingMode describes where a KB item may be delivered
type SettingMode struct {
	LocationsAllowed []string `json:"locations_allowed,omitempty"`
}

// HardGates are the machine-checkable restrictions on a KB item. Gates
// absent from an item are simply not checked.
type HardGates struct {
	PatientAge           *AgeGate             `json:"patient_age,omitempty"`
	ServiceRequirements  *ServiceRequirements `json:"service_requirements,omitempty"`
	SettingMode          *SettingMode         `json:"setting_mode,omitempty"`
	ProviderRolesAllowed []string             `json:"provider_roles_allowed,omitempty"`
}

// Value implements driver.Valuer for JSONB
func (h HardGates) Value() (driver.Value, error) {
	return json.Marshal(h)
}

// Scan implements sql.Scanner for JSONB
func (h *HardGates) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	if len(bytes) == 0 {
		return nil
	}

	return json.Unmarshal(bytes, h)
}

// KBItem is one billing item from the knowledge base. The KB ships as
// JSONL (one item per line) and may also be imported into Postgres.
type KBItem struct {
	ItemNumber    string    `json:"item_number"`
	Description   string    `json:"description"`
	ScheduleFee   *float64  `json:"schedule_fee,omitempty"`
	EffectiveFrom string    `json:"effective_from,omitempty"` // YYYY-MM-DD
	EffectiveTo   string    `json:"effective_to,omitempty"`   // YYYY-MM-DD
	HardGates     HardGates `json:"hard_gates"`
}
