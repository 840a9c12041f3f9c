package document

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/slok/fieldwork/internal/model"
)

// Worker is the stored shape of a worker profile.
type Worker struct {
	ID            string `json:"id" yaml:"id"`
	UID           string `json:"uid" yaml:"uid"`
	Email         string `json:"email" yaml:"email"`
	FullName      string `json:"fullName,omitempty" yaml:"fullName"`
	Role          string `json:"role,omitempty" yaml:"role"`
	IsFieldWorker bool   `json:"isFieldWorker" yaml:"isFieldWorker"`
	IsOnline      bool   `json:"isOnline,omitempty" yaml:"isOnline"`
	LastSeen      string `json:"lastSeen,omitempty" yaml:"lastSeen"`
}

// DecodeWorker decodes and validates a JSON worker document.
func DecodeWorker(data []byte) (model.Worker, error) {
	var doc Worker
	if err := unmarshal("worker", data, &doc); err != nil {
		return model.Worker{}, err
	}
	return doc.ToModel()
}

// EncodeWorker encodes a worker as a JSON document.
func EncodeWorker(w model.Worker) ([]byte, error) {
	data, err := json.Marshal(WorkerFromModel(w))
	if err != nil {
		return nil, fmt.Errorf("could not encode worker: %w", err)
	}
	return data, nil
}

// ToModel validates the document and converts it to a worker.
func (d Worker) ToModel() (model.Worker, error) {
	if strings.TrimSpace(d.ID) == "" {
		return model.Worker{}, decodeErr("worker.id", "missing")
	}
	if strings.TrimSpace(d.UID) == "" {
		return model.Worker{}, decodeErr("worker.uid", "missing on worker %s", d.ID)
	}

	lastSeen, err := parseOptionalTime("worker.lastSeen", d.LastSeen)
	if err != nil {
		return model.Worker{}, err
	}

	return model.Worker{
		ID:          d.ID,
		UID:         d.UID,
		Email:       d.Email,
		FullName:    d.FullName,
		Role:        d.Role,
		FieldWorker: d.IsFieldWorker,
		Online:      d.IsOnline,
		LastSeen:    lastSeen,
	}, nil
}

// WorkerFromModel converts a worker into its stored shape.
func WorkerFromModel(w model.Worker) Worker {
	return Worker{
		ID:            w.ID,
		UID:           w.UID,
		Email:         w.Email,
		FullName:      w.FullName,
		Role:          w.Role,
		IsFieldWorker: w.FieldWorker,
		IsOnline:      w.Online,
		LastSeen:      formatOptionalTime(w.LastSeen),
	}
}
