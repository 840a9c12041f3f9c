package model

import "time"

// Task is a checklist item of the service section of a job.
type Task struct {
	ID          string
	Name        string
	Description string
	Priority    Priority
	Done        bool
	CreatedAt   time.Time
	CompletedAt *time.Time
	CompletedBy string
}

// EquipmentStatus is the service result of an equipment item.
type EquipmentStatus string

const (
	EquipmentStatusAvailable EquipmentStatus = "available"
	EquipmentStatusRepaired  EquipmentStatus = "repaired"
	EquipmentStatusReplaced  EquipmentStatus = "replaced"
	EquipmentStatusFaulty    EquipmentStatus = "faulty"
)

// Valid returns true if the status is a known one.
func (s EquipmentStatus) Valid() bool {
	switch s {
	case EquipmentStatusAvailable, EquipmentStatusRepaired, EquipmentStatusReplaced, EquipmentStatusFaulty:
		return true
	}
	return false
}

// Equipment is an item serviced on a job.
type Equipment struct {
	SerialNumber  string
	ItemName      string
	ItemCode      string
	ModelSeries   string
	Brand         string
	Type          string
	Location      string
	WarrantyStart *time.Time
	WarrantyEnd   *time.Time
	Notes         string
	Status        EquipmentStatus
	UpdatedAt     *time.Time
	UpdatedBy     string
}
