package provision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/harbor-usertools/pkg/observability"
)

var tracer = otel.Tracer("github.com/platinummonkey/harbor-usertools/pkg/provision")

// Client is the Harbor API surface needed for provisioning
type Client interface {
	UserAPI
	ProjectAPI
}

// Options configures a provisioning run
type Options struct {
	// DefaultProjects apply to rows with an empty Project cell
	DefaultProjects        []string
	CreateProjectIfMissing bool
	Poller                 Poller
	ProjectCacheSize       int
}

// Run is the outcome of one provisioning pass over a CSV
type Run struct {
	ID        uuid.UUID
	StartedAt time.Time
	Duration  time.Duration
	Results   []Result
}

// Summary counts the run's results per status
func (r *Run) Summary() Summary {
	return Summarize(r.Results)
}

// Provisioner creates users and project memberships from CSV records, one
// row at a time.
type Provisioner struct {
	opts     Options
	users    *UserResolver
	members  *MembershipAssigner
	log      logrus.FieldLogger
	metrics  *observability.Metrics
	newRunID func() uuid.UUID
}

// New creates a Provisioner. log may be nil; metrics may be nil.
func New(client Client, opts Options, log logrus.FieldLogger, metrics *observability.Metrics) *Provisioner {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if opts.Poller.Attempts == 0 {
		opts.Poller = DefaultPoller()
	}
	if opts.ProjectCacheSize <= 0 {
		opts.ProjectCacheSize = 128
	}

	return &Provisioner{
		opts:     opts,
		users:    NewUserResolver(client, opts.Poller, log, metrics),
		members:  NewMembershipAssigner(client, opts.Poller, opts.CreateProjectIfMissing, opts.ProjectCacheSize, log, metrics),
		log:      log,
		metrics:  metrics,
		newRunID: uuid.New,
	}
}

// Run processes records in order. Failures of individual rows are recorded
// as results and never stop the run; only context cancellation does, in
// which case the partial run is returned together with the context error.
func (p *Provisioner) Run(ctx context.Context, records []Record) (*Run, error) {
	run := &Run{
		ID:        p.newRunID(),
		StartedAt: time.Now(),
	}
	log := p.log.WithField("run_id", run.ID.String())

	ctx, span := tracer.Start(ctx, "Provision.Run",
		trace.WithAttributes(
			attribute.String("run.id", run.ID.String()),
			attribute.Int("run.rows", len(records)),
		),
	)
	defer span.End()

	log.WithField("rows", len(records)).Info("Starting provisioning run")

	var runErr error
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			runErr = fmt.Errorf("run interrupted before row %d: %w", rec.Row, err)
			break
		}
		for _, res := range p.processRow(ctx, log, rec) {
			run.Results = append(run.Results, res)
			p.metrics.RecordResult(string(res.Status))
			logResult(log, res)
		}
	}

	run.Duration = time.Since(run.StartedAt)
	p.metrics.RecordRun(run.Duration, time.Now())

	summary := run.Summary()
	log.WithFields(logrus.Fields{
		"duration": run.Duration.String(),
		"results":  len(run.Results),
	}).Infof("Provisioning run finished: %s", summary)

	if runErr != nil {
		span.RecordError(runErr)
		span.SetStatus(codes.Error, "run interrupted")
	} else if summary.Failed() {
		span.SetStatus(codes.Error, summary.String())
	}
	return run, runErr
}

// processRow turns one record into its results
func (p *Provisioner) processRow(ctx context.Context, log logrus.FieldLogger, rec Record) (results []Result) {
	ctx, span := tracer.Start(ctx, "Provision.Row",
		trace.WithAttributes(
			attribute.Int("row.number", rec.Row),
			attribute.String("row.username", rec.Username),
		),
	)
	defer span.End()

	row := NewRow(rec, p.opts.DefaultProjects)
	log = observability.WithTraceContext(ctx, log).WithFields(logrus.Fields{
		"row":      row.Number,
		"username": row.Username,
	})

	result := func(status Status, detail string) Result {
		return Result{Row: row.Number, Username: row.Username, Status: status, Detail: detail}
	}

	defer func() {
		if r := recover(); r != nil {
			observability.LogPanic(log, "provision row", r)
			results = append(results, result(StatusError, observability.MustRecover(r).Error()))
			span.SetStatus(codes.Error, "panic")
		}
	}()

	if err := row.Validate(); err != nil {
		return []Result{result(StatusSkip, err.Error())}
	}

	roleID, err := ResolveRole(row.RoleToken)
	if err != nil {
		return []Result{result(StatusSkip, err.Error())}
	}
	span.SetAttributes(attribute.Int("row.role_id", roleID))

	resolution, err := p.users.Ensure(ctx, row)
	switch {
	case errors.Is(err, ErrUserIDUnresolved):
		span.RecordError(err)
		span.SetStatus(codes.Error, "user id unresolved")
		return []Result{result(StatusError, err.Error())}
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, "create user failed")
		return []Result{result(StatusError, fmt.Sprintf("create_user failed: %v", err))}
	}
	span.SetAttributes(
		attribute.Int64("row.user_id", resolution.UserID),
		attribute.Bool("row.user_created", resolution.Created),
	)

	if !resolution.Created {
		results = append(results, result(StatusSkip, fmt.Sprintf("user %q already exists", row.Username)))
	}

	memberResults, added := p.members.Assign(ctx, row, resolution.UserID, roleID)
	results = append(results, memberResults...)

	if resolution.Created && !added {
		results = append(results, result(StatusOKUser, fmt.Sprintf("user_id=%d", resolution.UserID)))
	}
	return results
}

func logResult(log logrus.FieldLogger, res Result) {
	entry := log.WithFields(logrus.Fields{
		"row":      res.Row,
		"username": res.Username,
		"status":   string(res.Status),
	})
	switch res.Status {
	case StatusError:
		entry.Error(res.Detail)
	case StatusWarn:
		entry.Warn(res.Detail)
	default:
		entry.Info(res.Detail)
	}
}
