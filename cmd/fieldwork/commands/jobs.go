package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/fieldwork/internal/app/attach"
	"github.com/slok/fieldwork/internal/app/complete"
	"github.com/slok/fieldwork/internal/app/joblist"
	"github.com/slok/fieldwork/internal/app/jobshow"
	"github.com/slok/fieldwork/internal/app/jobstart"
	"github.com/slok/fieldwork/internal/app/navigate"
	"github.com/slok/fieldwork/internal/app/service"
	"github.com/slok/fieldwork/internal/app/stage"
	"github.com/slok/fieldwork/internal/model"
	"github.com/slok/fieldwork/internal/printer"
)

type JobListCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	view   string
	query  string
	format string
}

// NewJobListCommand returns the job list command.
func NewJobListCommand(rootCmd *RootCommand, jobs *kingpin.CmdClause) *JobListCommand {
	c := &JobListCommand{rootCmd: rootCmd}

	c.Cmd = jobs.Command("list", "List the assigned jobs.").Alias("ls")
	c.Cmd.Flag("view", "Jobs view (all, current, history).").Default(string(joblist.ViewAll)).EnumVar(&c.view,
		string(joblist.ViewAll), string(joblist.ViewCurrent), string(joblist.ViewHistory))
	c.Cmd.Flag("query", "Search by title, customer or job ID.").Short('q').StringVar(&c.query)
	formatFlag(c.Cmd, &c.format)

	return c
}

func (c JobListCommand) Name() string { return c.Cmd.FullCommand() }

func (c JobListCommand) Run(ctx context.Context) error {
	d, err := newDeps(ctx, *c.rootCmd)
	if err != nil {
		return err
	}
	defer d.Close()

	s, err := d.Session(ctx)
	if err != nil {
		return err
	}

	svc, err := joblist.NewService(joblist.ServiceConfig{Source: d.Source, Logger: c.rootCmd.Logger})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx, joblist.Request{Session: s, Query: c.query, View: joblist.View(c.view)})
	if err != nil {
		return fmt.Errorf("could not list jobs: %w", err)
	}

	p := c.rootCmd.printer(c.format)
	if res.Cached && c.format == formatTable {
		_ = p.PrintMessage("Offline, showing cached jobs")
	}
	return p.PrintJobs(res.Jobs)
}

type JobShowCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	jobID  string
	format string
}

// NewJobShowCommand returns the job show command.
func NewJobShowCommand(rootCmd *RootCommand, jobs *kingpin.CmdClause) *JobShowCommand {
	c := &JobShowCommand{rootCmd: rootCmd}

	c.Cmd = jobs.Command("show", "Show a job with its workflow state.")
	c.Cmd.Arg("job-id", "Job ID.").Required().StringVar(&c.jobID)
	formatFlag(c.Cmd, &c.format)

	return c
}

func (c JobShowCommand) Name() string { return c.Cmd.FullCommand() }

func (c JobShowCommand) Run(ctx context.Context) error {
	d, err := newDeps(ctx, *c.rootCmd)
	if err != nil {
		return err
	}
	defer d.Close()

	s, err := d.Session(ctx)
	if err != nil {
		return err
	}

	svc, err := jobshow.NewService(jobshow.ServiceConfig{
		Source:      d.Source,
		Tracker:     d.Tracker,
		Attachments: d.Backend,
		Logger:      c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx, jobshow.Request{Session: s, JobID: c.jobID})
	if err != nil {
		return fmt.Errorf("could not get job: %w", err)
	}

	return c.rootCmd.printer(c.format).PrintJob(res.Job, res.Progress, res.Images)
}

type JobStartCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	jobID string
}

// NewJobStartCommand returns the job start command.
func NewJobStartCommand(rootCmd *RootCommand, jobs *kingpin.CmdClause) *JobStartCommand {
	c := &JobStartCommand{rootCmd: rootCmd}

	c.Cmd = jobs.Command("start", "Start working on a job.")
	c.Cmd.Arg("job-id", "Job ID.").Required().StringVar(&c.jobID)

	return c
}

func (c JobStartCommand) Name() string { return c.Cmd.FullCommand() }

func (c JobStartCommand) Run(ctx context.Context) error {
	d, err := newDeps(ctx, *c.rootCmd)
	if err != nil {
		return err
	}
	defer d.Close()

	s, err := d.Session(ctx)
	if err != nil {
		return err
	}

	svc, err := jobstart.NewService(jobstart.ServiceConfig{
		Source:     d.Source,
		Operator:   d.Operator,
		Tracker:    d.Tracker,
		Attendance: d.Backend,
		Logger:     c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx, jobstart.Request{Session: s, JobID: c.jobID})
	if err != nil {
		return fmt.Errorf("could not start job: %w", err)
	}

	return printWrite(c.rootCmd.printer(formatTable), fmt.Sprintf("Job %s started", res.Job.ID), res.Queued)
}

type JobStageCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	jobID  string
	stage  string
	format string
}

// NewJobStageCommand returns the job stage command.
func NewJobStageCommand(rootCmd *RootCommand, jobs *kingpin.CmdClause) *JobStageCommand {
	c := &JobStageCommand{rootCmd: rootCmd}

	c.Cmd = jobs.Command("stage", "Request entering a workflow stage of a job.")
	c.Cmd.Arg("job-id", "Job ID.").Required().StringVar(&c.jobID)
	c.Cmd.Arg("stage", "Workflow stage.").Required().EnumVar(&c.stage,
		string(model.StageDetails), string(model.StageNavigate), string(model.StageService), string(model.StageComplete))
	formatFlag(c.Cmd, &c.format)

	return c
}

func (c JobStageCommand) Name() string { return c.Cmd.FullCommand() }

func (c JobStageCommand) Run(ctx context.Context) error {
	d, err := newDeps(ctx, *c.rootCmd)
	if err != nil {
		return err
	}
	defer d.Close()

	s, err := d.Session(ctx)
	if err != nil {
		return err
	}

	target, err := model.ParseStage(c.stage)
	if err != nil {
		return err
	}

	svc, err := stage.NewService(stage.ServiceConfig{Source: d.Source, Tracker: d.Tracker, Logger: c.rootCmd.Logger})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx, stage.Request{Session: s, JobID: c.jobID, Target: target})
	if err != nil {
		return fmt.Errorf("could not request stage: %w", err)
	}

	return c.rootCmd.printer(c.format).PrintDecision(res.Decision)
}

type JobNavigateCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	jobID  string
	from   string
	format string
}

// NewJobNavigateCommand returns the job navigate command.
func NewJobNavigateCommand(rootCmd *RootCommand, jobs *kingpin.CmdClause) *JobNavigateCommand {
	c := &JobNavigateCommand{rootCmd: rootCmd}

	c.Cmd = jobs.Command("navigate", "Get the route to the job site.")
	c.Cmd.Arg("job-id", "Job ID.").Required().StringVar(&c.jobID)
	c.Cmd.Flag("from", "Current location as 'lat,lng'.").Required().StringVar(&c.from)
	formatFlag(c.Cmd, &c.format)

	return c
}

func (c JobNavigateCommand) Name() string { return c.Cmd.FullCommand() }

func (c JobNavigateCommand) Run(ctx context.Context) error {
	origin, err := parseCoordinates(c.from)
	if err != nil {
		return err
	}

	d, err := newDeps(ctx, *c.rootCmd)
	if err != nil {
		return err
	}
	defer d.Close()

	s, err := d.Session(ctx)
	if err != nil {
		return err
	}

	svc, err := navigate.NewService(navigate.ServiceConfig{
		Source:     d.Source,
		Tracker:    d.Tracker,
		Directions: d.Directions,
		Logger:     c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx, navigate.Request{Session: s, JobID: c.jobID, Origin: origin})
	if err != nil {
		return fmt.Errorf("could not navigate: %w", err)
	}

	p := c.rootCmd.printer(c.format)
	if res.Route == nil {
		return p.PrintDecision(res.Decision)
	}
	return p.PrintRoute(*res.Route)
}

type JobServiceCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	jobID       string
	action      string
	name        string
	description string
	priority    string
	taskID      string
	serial      string
	status      string
	format      string
}

// NewJobServiceCommand returns the job service section command.
func NewJobServiceCommand(rootCmd *RootCommand, jobs *kingpin.CmdClause) *JobServiceCommand {
	c := &JobServiceCommand{rootCmd: rootCmd}

	c.Cmd = jobs.Command("service", "Manage the tasks and equipment of a job.")
	c.Cmd.Arg("job-id", "Job ID.").Required().StringVar(&c.jobID)
	c.Cmd.Arg("action", "Service action.").Required().EnumVar(&c.action,
		string(service.ActionAddTask), string(service.ActionToggleTask), string(service.ActionDeleteTask),
		string(service.ActionEquipment), string(service.ActionSubmit))
	c.Cmd.Flag("name", "Task name.").StringVar(&c.name)
	c.Cmd.Flag("description", "Task description.").StringVar(&c.description)
	c.Cmd.Flag("priority", "Task priority (low, medium, high).").Default(string(model.PriorityMedium)).StringVar(&c.priority)
	c.Cmd.Flag("task-id", "Task ID.").StringVar(&c.taskID)
	c.Cmd.Flag("serial", "Equipment serial number.").StringVar(&c.serial)
	c.Cmd.Flag("status", "Equipment status (available, repaired, replaced, faulty).").StringVar(&c.status)
	formatFlag(c.Cmd, &c.format)

	return c
}

func (c JobServiceCommand) Name() string { return c.Cmd.FullCommand() }

func (c JobServiceCommand) Run(ctx context.Context) error {
	priority, err := model.ParsePriority(c.priority)
	if err != nil {
		return err
	}

	d, err := newDeps(ctx, *c.rootCmd)
	if err != nil {
		return err
	}
	defer d.Close()

	s, err := d.Session(ctx)
	if err != nil {
		return err
	}

	svc, err := service.NewService(service.ServiceConfig{
		Source:   d.Source,
		Operator: d.Operator,
		Tracker:  d.Tracker,
		Logger:   c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx, service.Request{
		Session:         s,
		JobID:           c.jobID,
		Action:          service.Action(c.action),
		TaskName:        c.name,
		TaskDescription: c.description,
		TaskPriority:    priority,
		TaskID:          c.taskID,
		SerialNumber:    c.serial,
		EquipmentStatus: model.EquipmentStatus(c.status),
	})
	if err != nil {
		return fmt.Errorf("could not %s: %w", c.action, err)
	}

	p := c.rootCmd.printer(c.format)
	if res.Queued && c.format == formatTable {
		_ = p.PrintMessage("Offline, the change will be synced later")
	}
	return p.PrintJob(res.Job, res.Progress, nil)
}

type JobAttachCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	jobID       string
	action      string
	kind        string
	replace     bool
	description string
	imageID     string
	file        string
}

// NewJobAttachCommand returns the job attach command.
func NewJobAttachCommand(rootCmd *RootCommand, jobs *kingpin.CmdClause) *JobAttachCommand {
	c := &JobAttachCommand{rootCmd: rootCmd}

	c.Cmd = jobs.Command("attach", "Attach signatures and images to a job.")
	c.Cmd.Arg("job-id", "Job ID.").Required().StringVar(&c.jobID)
	c.Cmd.Arg("action", "Attach action.").Required().EnumVar(&c.action,
		string(attach.ActionSignature), string(attach.ActionImage), string(attach.ActionDeleteImage))
	c.Cmd.Flag("kind", "Signature kind (technician, customer).").Default(string(model.SignatureKindTechnician)).StringVar(&c.kind)
	c.Cmd.Flag("replace", "Replace an existing signature.").BoolVar(&c.replace)
	c.Cmd.Flag("description", "Image description.").StringVar(&c.description)
	c.Cmd.Flag("image-id", "Image ID.").StringVar(&c.imageID)
	c.Cmd.Flag("file", "File to upload, '-' reads from stdin.").Short('f').StringVar(&c.file)

	return c
}

func (c JobAttachCommand) Name() string { return c.Cmd.FullCommand() }

func (c JobAttachCommand) Run(ctx context.Context) error {
	req := attach.Request{
		JobID:       c.jobID,
		Action:      attach.Action(c.action),
		Replace:     c.replace,
		Description: c.description,
		ImageID:     c.imageID,
	}

	if req.Action == attach.ActionSignature {
		kind, err := model.ParseSignatureKind(c.kind)
		if err != nil {
			return err
		}
		req.SignatureKind = kind
	}

	if req.Action != attach.ActionDeleteImage {
		data, err := c.readFile()
		if err != nil {
			return err
		}
		req.Data = data
	}

	d, err := newDeps(ctx, *c.rootCmd)
	if err != nil {
		return err
	}
	defer d.Close()

	req.Session, err = d.Session(ctx)
	if err != nil {
		return err
	}

	svc, err := attach.NewService(attach.ServiceConfig{
		Source:      d.Source,
		Operator:    d.Operator,
		Tracker:     d.Tracker,
		Attachments: d.Backend,
		Queue:       d.Queue,
		Logger:      c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx, req)
	if err != nil {
		return fmt.Errorf("could not attach: %w", err)
	}

	var msg string
	switch {
	case res.Signature != nil:
		msg = fmt.Sprintf("Signature %s stored (%s)", res.Signature.Kind, printer.FormatBytes(int64(len(req.Data))))
	case res.Image != nil:
		msg = fmt.Sprintf("Image %s stored (%s)", res.Image.ID, printer.FormatBytes(int64(len(req.Data))))
	default:
		msg = fmt.Sprintf("Image %s deleted", c.imageID)
	}
	return printWrite(c.rootCmd.printer(formatTable), msg, res.Queued)
}

func (c JobAttachCommand) readFile() ([]byte, error) {
	switch c.file {
	case "":
		return nil, fmt.Errorf("a file is required: %w", model.ErrNotValid)
	case "-":
		data, err := io.ReadAll(c.rootCmd.Stdin)
		if err != nil {
			return nil, fmt.Errorf("could not read stdin: %w", err)
		}
		return data, nil
	}

	data, err := os.ReadFile(c.file)
	if err != nil {
		return nil, fmt.Errorf("could not read file: %w", err)
	}
	return data, nil
}

type JobCompleteCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	jobID string
}

// NewJobCompleteCommand returns the job complete command.
func NewJobCompleteCommand(rootCmd *RootCommand, jobs *kingpin.CmdClause) *JobCompleteCommand {
	c := &JobCompleteCommand{rootCmd: rootCmd}

	c.Cmd = jobs.Command("complete", "Complete a job.")
	c.Cmd.Arg("job-id", "Job ID.").Required().StringVar(&c.jobID)

	return c
}

func (c JobCompleteCommand) Name() string { return c.Cmd.FullCommand() }

func (c JobCompleteCommand) Run(ctx context.Context) error {
	d, err := newDeps(ctx, *c.rootCmd)
	if err != nil {
		return err
	}
	defer d.Close()

	s, err := d.Session(ctx)
	if err != nil {
		return err
	}

	svc, err := complete.NewService(complete.ServiceConfig{
		Source:   d.Source,
		Operator: d.Operator,
		Tracker:  d.Tracker,
		Logger:   c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx, complete.Request{Session: s, JobID: c.jobID})
	if err != nil {
		return fmt.Errorf("could not complete job: %w", err)
	}

	return printWrite(c.rootCmd.printer(formatTable), fmt.Sprintf("Job %s completed", res.Job.ID), res.Queued)
}

type JobWatchCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	jobID string
}

// NewJobWatchCommand returns the job watch command.
func NewJobWatchCommand(rootCmd *RootCommand, jobs *kingpin.CmdClause) *JobWatchCommand {
	c := &JobWatchCommand{rootCmd: rootCmd}

	c.Cmd = jobs.Command("watch", "Follow the changes of a job, or of all jobs.")
	c.Cmd.Arg("job-id", "Job ID.").StringVar(&c.jobID)

	return c
}

func (c JobWatchCommand) Name() string { return c.Cmd.FullCommand() }

func (c JobWatchCommand) Run(ctx context.Context) error {
	d, err := newDeps(ctx, *c.rootCmd)
	if err != nil {
		return err
	}
	defer d.Close()

	if d.Watcher == nil {
		return fmt.Errorf("job updates require a redis address: %w", model.ErrNotValid)
	}

	sub, err := d.Watcher.Subscribe(ctx, c.jobID)
	if err != nil {
		return fmt.Errorf("could not subscribe to job updates: %w", err)
	}
	defer sub.Close()

	p := c.rootCmd.printer(formatTable)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub.Events():
			if !ok {
				return nil
			}
			_ = p.PrintMessage(fmt.Sprintf("%s  %s  %s (v%d)", ev.At.Format(time.RFC3339), ev.JobID, ev.Status, ev.Version))
		}
	}
}

func printWrite(p printer.Printer, msg string, queued bool) error {
	if queued {
		msg += ", offline, queued for sync"
	}
	return p.PrintMessage(msg)
}

func parseCoordinates(s string) (model.Coordinates, error) {
	lat, lng, ok := strings.Cut(s, ",")
	if !ok {
		return model.Coordinates{}, fmt.Errorf("location %q must be 'lat,lng': %w", s, model.ErrNotValid)
	}

	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return model.Coordinates{}, fmt.Errorf("invalid latitude: %w", model.ErrNotValid)
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(lng), 64)
	if err != nil {
		return model.Coordinates{}, fmt.Errorf("invalid longitude: %w", model.ErrNotValid)
	}
	if la < -90 || la > 90 || lo < -180 || lo > 180 {
		return model.Coordinates{}, fmt.Errorf("location %q out of range: %w", s, model.ErrNotValid)
	}

	return model.Coordinates{Latitude: la, Longitude: lo}, nil
}
