package attach

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/slok/fieldwork/internal/backend"
	"github.com/slok/fieldwork/internal/jobops"
	"github.com/slok/fieldwork/internal/jobsource"
	"github.com/slok/fieldwork/internal/lifecycle"
	"github.com/slok/fieldwork/internal/log"
	"github.com/slok/fieldwork/internal/model"
	"github.com/slok/fieldwork/internal/offline"
	"github.com/slok/fieldwork/internal/session"
)

// Action is an attachment action.
type Action string

const (
	ActionSignature   Action = "signature"
	ActionImage       Action = "image"
	ActionDeleteImage Action = "delete-image"
)

// Queuer defers writes until connectivity is back.
type Queuer interface {
	Enqueue(ctx context.Context, t model.ActionType, payload any) error
}

// ServiceConfig is the configuration for the attach service.
type ServiceConfig struct {
	Source      *jobsource.Source
	Operator    *jobops.Operator
	Tracker     *lifecycle.Tracker
	Attachments backend.AttachmentRepository
	Queue       Queuer
	Logger      log.Logger
	Now         func() time.Time
}

func (c *ServiceConfig) defaults() error {
	if c.Source == nil {
		return fmt.Errorf("job source is required")
	}
	if c.Operator == nil {
		return fmt.Errorf("job operator is required")
	}
	if c.Tracker == nil {
		return fmt.Errorf("stage tracker is required")
	}
	if c.Attachments == nil {
		return fmt.Errorf("attachments repository is required")
	}
	if c.Queue == nil {
		return fmt.Errorf("queue is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Attach"})

	if c.Now == nil {
		c.Now = time.Now
	}
	return nil
}

// Service attaches signatures and photos to jobs.
type Service struct {
	source      *jobsource.Source
	operator    *jobops.Operator
	tracker     *lifecycle.Tracker
	attachments backend.AttachmentRepository
	queue       Queuer
	logger      log.Logger
	now         func() time.Time
}

// NewService creates a new attach service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		source:      cfg.Source,
		operator:    cfg.Operator,
		tracker:     cfg.Tracker,
		attachments: cfg.Attachments,
		queue:       cfg.Queue,
		logger:      cfg.Logger,
		now:         cfg.Now,
	}, nil
}

// Request represents the attach request parameters.
type Request struct {
	Session session.Session
	JobID   string
	Action  Action

	// Signature.
	SignatureKind model.SignatureKind
	// Replace allows replacing an existing signature.
	Replace bool

	// Image.
	Description string
	ImageID     string

	// Data is the PNG signature or the image file.
	Data []byte
}

// Result is the attach outcome.
type Result struct {
	Signature *model.Signature
	Image     *model.Image
	Queued    bool
}

// Run applies an attach action. The worker needs to have started the job.
func (s *Service) Run(ctx context.Context, req Request) (Result, error) {
	workerID := req.Session.WorkerID
	now := s.now()

	read, err := s.source.Get(ctx, req.JobID)
	if err != nil {
		return Result{}, err
	}

	p, err := s.tracker.Progress(ctx, req.JobID, workerID)
	if err != nil {
		return Result{}, err
	}
	d := lifecycle.Decide(lifecycle.Request{Target: model.StageService, Job: &read.Job, WorkerID: workerID, Flags: p.Flags})
	if err := d.Err(); err != nil {
		return Result{}, err
	}

	switch req.Action {
	case ActionSignature:
		return s.signature(ctx, req, now)
	case ActionImage:
		return s.image(ctx, read, req, now)
	case ActionDeleteImage:
		if !s.source.Online(ctx) {
			return Result{}, fmt.Errorf("deleting images requires connectivity: %w", model.ErrOffline)
		}
		if err := s.operator.DeleteImage(ctx, req.JobID, req.ImageID); err != nil {
			return Result{}, err
		}
		return Result{}, nil
	}

	return Result{}, fmt.Errorf("unknown attach action %q: %w", req.Action, model.ErrNotValid)
}

func (s *Service) signature(ctx context.Context, req Request, now time.Time) (Result, error) {
	kind, err := model.ParseSignatureKind(string(req.SignatureKind))
	if err != nil {
		return Result{}, err
	}
	if len(req.Data) == 0 {
		return Result{}, fmt.Errorf("please sign first: %w", model.ErrNotValid)
	}
	if ct := http.DetectContentType(req.Data); ct != "image/png" {
		return Result{}, fmt.Errorf("signature must be a PNG image, got %s: %w", ct, model.ErrNotValid)
	}
	if !s.source.Online(ctx) {
		return Result{}, fmt.Errorf("signatures require connectivity: %w", model.ErrOffline)
	}

	_, err = s.attachments.GetSignature(ctx, req.JobID, kind, req.Session.WorkerID)
	switch {
	case err == nil && !req.Replace:
		return Result{}, fmt.Errorf("%s signature exists, replace it explicitly: %w", kind, model.ErrAlreadyExists)
	case err != nil && !errors.Is(err, model.ErrNotFound):
		return Result{}, fmt.Errorf("could not get signature: %w", err)
	}

	sig, err := s.operator.SaveSignature(ctx, req.JobID, req.Session.WorkerID, kind, req.Data, now)
	if err != nil {
		return Result{}, err
	}

	return Result{Signature: &sig}, nil
}

func (s *Service) image(ctx context.Context, read jobsource.Result, req Request, now time.Time) (Result, error) {
	img := model.Image{
		ID:          req.ImageID,
		JobID:       req.JobID,
		Description: req.Description,
		UploadedBy:  req.Session.WorkerID,
		CreatedAt:   now,
	}
	if img.ID == "" {
		img.ID = uuid.NewString()
	}
	contentType := http.DetectContentType(req.Data)

	if !read.Cached {
		stored, err := s.operator.UploadImage(ctx, img, contentType, req.Data)
		if err != nil {
			return Result{}, err
		}
		return Result{Image: &stored}, nil
	}

	// Validate before queuing so a bad image never blocks the queue.
	if strings.TrimSpace(img.Description) == "" {
		return Result{}, fmt.Errorf("please provide an image description: %w", model.ErrNotValid)
	}
	if len(req.Data) == 0 {
		return Result{}, fmt.Errorf("no image selected: %w", model.ErrNotValid)
	}

	err := s.queue.Enqueue(ctx, model.ActionUploadImage, offline.UploadImagePayload{Image: img, ContentType: contentType, Data: req.Data})
	if err != nil {
		return Result{}, fmt.Errorf("could not queue image: %w", err)
	}
	s.logger.Infof("Image %s saved for upload when online", img.ID)

	return Result{Image: &img, Queued: true}, nil
}
