package document

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/slok/fieldwork/internal/model"
)

// Job is the stored shape of a job document.
type Job struct {
	ID                       string           `json:"id" yaml:"id"`
	JobNo                    string           `json:"jobNo" yaml:"jobNo"`
	JobName                  string           `json:"jobName,omitempty" yaml:"jobName"`
	JobDescription           string           `json:"jobDescription,omitempty" yaml:"jobDescription"`
	JobStatus                string           `json:"jobStatus" yaml:"jobStatus"`
	Priority                 string           `json:"priority,omitempty" yaml:"priority"`
	CustomerID               string           `json:"customerId,omitempty" yaml:"customerId"`
	CustomerName             string           `json:"customerName,omitempty" yaml:"customerName"`
	JobContact               Contact          `json:"jobContact" yaml:"jobContact"`
	Location                 Location         `json:"location" yaml:"location"`
	AssignedWorkers          []AssignedWorker `json:"assignedWorkers" yaml:"assignedWorkers"`
	TaskList                 []Task           `json:"taskList,omitempty" yaml:"taskList"`
	Equipments               []Equipment      `json:"equipments,omitempty" yaml:"equipments"`
	StartDate                string           `json:"startDate" yaml:"startDate"`
	EndDate                  string           `json:"endDate,omitempty" yaml:"endDate"`
	EstimatedDurationMinutes int              `json:"estimatedDurationMinutes,omitempty" yaml:"estimatedDurationMinutes"`
	CompletedAt              string           `json:"completedAt,omitempty" yaml:"completedAt"`
	CompletedBy              string           `json:"completedBy,omitempty" yaml:"completedBy"`
	UpdatedAt                string           `json:"updatedAt,omitempty" yaml:"updatedAt"`
	Version                  int              `json:"version,omitempty" yaml:"version"`
}

// Contact is the stored shape of a job contact.
type Contact struct {
	ContactFullname string `json:"contactFullname,omitempty" yaml:"contactFullname"`
	Email           string `json:"email,omitempty" yaml:"email"`
	PhoneNumber     string `json:"phoneNumber,omitempty" yaml:"phoneNumber"`
}

// Location is the stored shape of a job location.
type Location struct {
	LocationName string      `json:"locationName,omitempty" yaml:"locationName"`
	Address      string      `json:"address,omitempty" yaml:"address"`
	Coordinates  Coordinates `json:"coordinates" yaml:"coordinates"`
}

// Coordinates is the stored shape of a geographic point.
type Coordinates struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// AssignedWorker is the stored shape of a worker assignment.
type AssignedWorker struct {
	WorkerID     string `json:"workerId" yaml:"workerId"`
	WorkerName   string `json:"workerName,omitempty" yaml:"workerName"`
	WorkerStatus string `json:"workerStatus,omitempty" yaml:"workerStatus"`
	TimeStarted  string `json:"timeStarted,omitempty" yaml:"timeStarted"`
	TimeEnded    string `json:"timeEnded,omitempty" yaml:"timeEnded"`
	IsOnline     bool   `json:"isOnline,omitempty" yaml:"isOnline"`
}

// Task is the stored shape of a checklist task.
type Task struct {
	TaskID          string `json:"taskID" yaml:"taskID"`
	TaskName        string `json:"taskName" yaml:"taskName"`
	TaskDescription string `json:"taskDescription,omitempty" yaml:"taskDescription"`
	TaskPriority    string `json:"taskPriority,omitempty" yaml:"taskPriority"`
	IsDone          bool   `json:"isDone" yaml:"isDone"`
	CreatedAt       string `json:"createdAt,omitempty" yaml:"createdAt"`
	CompletedAt     string `json:"completedAt,omitempty" yaml:"completedAt"`
	CompletedBy     string `json:"completedBy,omitempty" yaml:"completedBy"`
}

// Equipment is the stored shape of an equipment item.
type Equipment struct {
	SerialNumber  string `json:"serialNumber" yaml:"serialNumber"`
	ItemName      string `json:"itemName,omitempty" yaml:"itemName"`
	ItemCode      string `json:"itemCode,omitempty" yaml:"itemCode"`
	ModelSeries   string `json:"modelSeries,omitempty" yaml:"modelSeries"`
	Brand         string `json:"brand,omitempty" yaml:"brand"`
	EquipmentType string `json:"equipmentType,omitempty" yaml:"equipmentType"`
	Location      string `json:"equipmentLocation,omitempty" yaml:"equipmentLocation"`
	WarrantyStart string `json:"warrantyStartDate,omitempty" yaml:"warrantyStartDate"`
	WarrantyEnd   string `json:"warrantyEndDate,omitempty" yaml:"warrantyEndDate"`
	Notes         string `json:"notes,omitempty" yaml:"notes"`
	Status        string `json:"status,omitempty" yaml:"status"`
	UpdatedAt     string `json:"updatedAt,omitempty" yaml:"updatedAt"`
	UpdatedBy     string `json:"updatedBy,omitempty" yaml:"updatedBy"`
}

// DecodeJob decodes and validates a JSON job document.
func DecodeJob(data []byte) (model.Job, error) {
	var doc Job
	if err := unmarshal("job", data, &doc); err != nil {
		return model.Job{}, err
	}
	return doc.ToModel()
}

// EncodeJob encodes a job as a JSON document.
func EncodeJob(j model.Job) ([]byte, error) {
	data, err := json.Marshal(JobFromModel(j))
	if err != nil {
		return nil, fmt.Errorf("could not encode job: %w", err)
	}
	return data, nil
}

// ToModel validates the document and converts it to a job.
func (d Job) ToModel() (model.Job, error) {
	if strings.TrimSpace(d.ID) == "" {
		return model.Job{}, decodeErr("job.id", "missing")
	}
	if strings.TrimSpace(d.JobNo) == "" {
		return model.Job{}, decodeErr("job.jobNo", "missing on job %s", d.ID)
	}

	status, err := model.ParseJobStatus(d.JobStatus)
	if err != nil {
		return model.Job{}, decodeErr("job.jobStatus", "%q is not a known status on job %s", d.JobStatus, d.ID)
	}

	priority := model.PriorityLow
	if d.Priority != "" {
		priority, err = model.ParsePriority(d.Priority)
		if err != nil {
			return model.Job{}, decodeErr("job.priority", "%q is not a known priority on job %s", d.Priority, d.ID)
		}
	}

	if strings.TrimSpace(d.StartDate) == "" {
		return model.Job{}, decodeErr("job.startDate", "missing on job %s", d.ID)
	}
	start, err := parseTime("job.startDate", d.StartDate)
	if err != nil {
		return model.Job{}, err
	}
	end, err := parseOptionalTime("job.endDate", d.EndDate)
	if err != nil {
		return model.Job{}, err
	}
	completedAt, err := parseOptionalTime("job.completedAt", d.CompletedAt)
	if err != nil {
		return model.Job{}, err
	}
	updatedAt, err := parseOptionalTime("job.updatedAt", d.UpdatedAt)
	if err != nil {
		return model.Job{}, err
	}

	j := model.Job{
		ID:           d.ID,
		JobNo:        d.JobNo,
		Name:         d.JobName,
		Description:  d.JobDescription,
		Status:       status,
		Priority:     priority,
		CustomerID:   d.CustomerID,
		CustomerName: d.CustomerName,
		Contact: model.Contact{
			FullName: d.JobContact.ContactFullname,
			Email:    d.JobContact.Email,
			Phone:    d.JobContact.PhoneNumber,
		},
		Location: model.Location{
			Name:    d.Location.LocationName,
			Address: d.Location.Address,
			Coordinates: model.Coordinates{
				Latitude:  d.Location.Coordinates.Latitude,
				Longitude: d.Location.Coordinates.Longitude,
			},
		},
		StartDate:         start,
		EndDate:           end,
		EstimatedDuration: time.Duration(d.EstimatedDurationMinutes) * time.Minute,
		CompletedAt:       completedAt,
		CompletedBy:       d.CompletedBy,
		Version:           d.Version,
	}
	if updatedAt != nil {
		j.UpdatedAt = *updatedAt
	}

	seen := map[string]bool{}
	for i, w := range d.AssignedWorkers {
		field := fmt.Sprintf("job.assignedWorkers[%d]", i)
		aw, err := w.toModel(field)
		if err != nil {
			return model.Job{}, err
		}
		if seen[aw.WorkerID] {
			return model.Job{}, decodeErr(field+".workerId", "worker %s assigned twice on job %s", aw.WorkerID, d.ID)
		}
		seen[aw.WorkerID] = true
		j.AssignedWorkers = append(j.AssignedWorkers, aw)
	}

	for i, t := range d.TaskList {
		task, err := t.toModel(fmt.Sprintf("job.taskList[%d]", i))
		if err != nil {
			return model.Job{}, err
		}
		j.Tasks = append(j.Tasks, task)
	}

	for i, e := range d.Equipments {
		eq, err := e.toModel(fmt.Sprintf("job.equipments[%d]", i))
		if err != nil {
			return model.Job{}, err
		}
		j.Equipment = append(j.Equipment, eq)
	}

	return j, nil
}

func (w AssignedWorker) toModel(field string) (model.AssignedWorker, error) {
	if strings.TrimSpace(w.WorkerID) == "" {
		return model.AssignedWorker{}, decodeErr(field+".workerId", "missing")
	}

	status := model.WorkerStatusPending
	if w.WorkerStatus != "" {
		var err error
		status, err = model.ParseWorkerStatus(w.WorkerStatus)
		if err != nil {
			return model.AssignedWorker{}, decodeErr(field+".workerStatus", "%q is not a known status", w.WorkerStatus)
		}
	}

	started, err := parseOptionalTime(field+".timeStarted", w.TimeStarted)
	if err != nil {
		return model.AssignedWorker{}, err
	}
	ended, err := parseOptionalTime(field+".timeEnded", w.TimeEnded)
	if err != nil {
		return model.AssignedWorker{}, err
	}

	return model.AssignedWorker{
		WorkerID:   w.WorkerID,
		WorkerName: w.WorkerName,
		Status:     status,
		StartedAt:  started,
		EndedAt:    ended,
		Online:     w.IsOnline,
	}, nil
}

func (t Task) toModel(field string) (model.Task, error) {
	if strings.TrimSpace(t.TaskID) == "" {
		return model.Task{}, decodeErr(field+".taskID", "missing")
	}

	priority := model.PriorityLow
	if t.TaskPriority != "" {
		var err error
		priority, err = model.ParsePriority(t.TaskPriority)
		if err != nil {
			return model.Task{}, decodeErr(field+".taskPriority", "%q is not a known priority", t.TaskPriority)
		}
	}

	created, err := parseOptionalTime(field+".createdAt", t.CreatedAt)
	if err != nil {
		return model.Task{}, err
	}
	completed, err := parseOptionalTime(field+".completedAt", t.CompletedAt)
	if err != nil {
		return model.Task{}, err
	}

	task := model.Task{
		ID:          t.TaskID,
		Name:        t.TaskName,
		Description: t.TaskDescription,
		Priority:    priority,
		Done:        t.IsDone,
		CompletedAt: completed,
		CompletedBy: t.CompletedBy,
	}
	if created != nil {
		task.CreatedAt = *created
	}

	return task, nil
}

func (e Equipment) toModel(field string) (model.Equipment, error) {
	if strings.TrimSpace(e.SerialNumber) == "" {
		return model.Equipment{}, decodeErr(field+".serialNumber", "missing")
	}

	status := model.EquipmentStatusAvailable
	if e.Status != "" {
		status = model.EquipmentStatus(strings.ToLower(e.Status))
		if !status.Valid() {
			return model.Equipment{}, decodeErr(field+".status", "%q is not a known status", e.Status)
		}
	}

	wStart, err := parseOptionalTime(field+".warrantyStartDate", e.WarrantyStart)
	if err != nil {
		return model.Equipment{}, err
	}
	wEnd, err := parseOptionalTime(field+".warrantyEndDate", e.WarrantyEnd)
	if err != nil {
		return model.Equipment{}, err
	}
	updated, err := parseOptionalTime(field+".updatedAt", e.UpdatedAt)
	if err != nil {
		return model.Equipment{}, err
	}

	return model.Equipment{
		SerialNumber:  e.SerialNumber,
		ItemName:      e.ItemName,
		ItemCode:      e.ItemCode,
		ModelSeries:   e.ModelSeries,
		Brand:         e.Brand,
		Type:          e.EquipmentType,
		Location:      e.Location,
		WarrantyStart: wStart,
		WarrantyEnd:   wEnd,
		Notes:         e.Notes,
		Status:        status,
		UpdatedAt:     updated,
		UpdatedBy:     e.UpdatedBy,
	}, nil
}

// JobFromModel converts a job into its stored shape.
func JobFromModel(j model.Job) Job {
	d := Job{
		ID:             j.ID,
		JobNo:          j.JobNo,
		JobName:        j.Name,
		JobDescription: j.Description,
		JobStatus:      string(j.Status),
		Priority:       string(j.Priority),
		CustomerID:     j.CustomerID,
		CustomerName:   j.CustomerName,
		JobContact: Contact{
			ContactFullname: j.Contact.FullName,
			Email:           j.Contact.Email,
			PhoneNumber:     j.Contact.Phone,
		},
		Location: Location{
			LocationName: j.Location.Name,
			Address:      j.Location.Address,
			Coordinates: Coordinates{
				Latitude:  j.Location.Coordinates.Latitude,
				Longitude: j.Location.Coordinates.Longitude,
			},
		},
		StartDate:                formatTime(j.StartDate),
		EndDate:                  formatOptionalTime(j.EndDate),
		EstimatedDurationMinutes: int(j.EstimatedDuration / time.Minute),
		CompletedAt:              formatOptionalTime(j.CompletedAt),
		CompletedBy:              j.CompletedBy,
		UpdatedAt:                formatTime(j.UpdatedAt),
		Version:                  j.Version,
	}

	for _, w := range j.AssignedWorkers {
		d.AssignedWorkers = append(d.AssignedWorkers, AssignedWorker{
			WorkerID:     w.WorkerID,
			WorkerName:   w.WorkerName,
			WorkerStatus: string(w.Status),
			TimeStarted:  formatOptionalTime(w.StartedAt),
			TimeEnded:    formatOptionalTime(w.EndedAt),
			IsOnline:     w.Online,
		})
	}

	for _, t := range j.Tasks {
		d.TaskList = append(d.TaskList, Task{
			TaskID:          t.ID,
			TaskName:        t.Name,
			TaskDescription: t.Description,
			TaskPriority:    string(t.Priority),
			IsDone:          t.Done,
			CreatedAt:       formatTime(t.CreatedAt),
			CompletedAt:     formatOptionalTime(t.CompletedAt),
			CompletedBy:     t.CompletedBy,
		})
	}

	for _, e := range j.Equipment {
		d.Equipments = append(d.Equipments, Equipment{
			SerialNumber:  e.SerialNumber,
			ItemName:      e.ItemName,
			ItemCode:      e.ItemCode,
			ModelSeries:   e.ModelSeries,
			Brand:         e.Brand,
			EquipmentType: e.Type,
			Location:      e.Location,
			WarrantyStart: formatOptionalTime(e.WarrantyStart),
			WarrantyEnd:   formatOptionalTime(e.WarrantyEnd),
			Notes:         e.Notes,
			Status:        string(e.Status),
			UpdatedAt:     formatOptionalTime(e.UpdatedAt),
			UpdatedBy:     e.UpdatedBy,
		})
	}

	return d
}
