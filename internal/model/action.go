package model

import (
	"fmt"
	"time"
)

// ActionType is the type of a deferred offline write.
type ActionType string

const (
	ActionStartJob        ActionType = "START_JOB"
	ActionUpdateJobStatus ActionType = "UPDATE_JOB_STATUS"
	ActionAddTask         ActionType = "ADD_TASK"
	ActionToggleTask      ActionType = "TOGGLE_TASK"
	ActionDeleteTask      ActionType = "DELETE_TASK"
	ActionUpdateEquipment ActionType = "UPDATE_EQUIPMENT"
	ActionSubmitService   ActionType = "SUBMIT_SERVICE"
	ActionUploadImage     ActionType = "UPLOAD_IMAGE"
	ActionCompleteJob     ActionType = "COMPLETE_JOB"
)

// ActionTypes returns all the known action types.
func ActionTypes() []ActionType {
	return []ActionType{
		ActionStartJob,
		ActionUpdateJobStatus,
		ActionAddTask,
		ActionToggleTask,
		ActionDeleteTask,
		ActionUpdateEquipment,
		ActionSubmitService,
		ActionUploadImage,
		ActionCompleteJob,
	}
}

// ParseActionType parses an action type.
func ParseActionType(s string) (ActionType, error) {
	for _, t := range ActionTypes() {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown action type %q: %w", s, ErrNotValid)
}

// OfflineAction is a write deferred while the device was offline.
type OfflineAction struct {
	ID        string
	Seq       int64
	Type      ActionType
	Payload   []byte
	Timestamp time.Time
}
