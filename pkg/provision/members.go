package provision

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/harbor-usertools/pkg/harbor"
	"github.com/platinummonkey/harbor-usertools/pkg/observability"
)

// ProjectAPI is the part of the Harbor client used for projects and members
type ProjectAPI interface {
	ProjectExists(ctx context.Context, name string) (bool, error)
	CreateProject(ctx context.Context, req harbor.ProjectReq) error
	CreateProjectMember(ctx context.Context, projectName string, member harbor.ProjectMember) error
}

// MembershipAssigner adds users to projects, optionally creating missing
// projects. Projects seen to exist are remembered for the rest of the run;
// missing projects are probed again every time.
type MembershipAssigner struct {
	api           ProjectAPI
	poller        Poller
	createMissing bool
	known         *lru.LRU[string, struct{}]
	log           logrus.FieldLogger
	metrics       *observability.Metrics
}

// NewMembershipAssigner creates a MembershipAssigner caching up to cacheSize project names
func NewMembershipAssigner(api ProjectAPI, poller Poller, createMissing bool, cacheSize int, log logrus.FieldLogger, metrics *observability.Metrics) *MembershipAssigner {
	if cacheSize < 1 {
		cacheSize = 1
	}
	return &MembershipAssigner{
		api:           api,
		poller:        poller,
		createMissing: createMissing,
		known:         lru.NewLRU[string, struct{}](cacheSize, nil, 0),
		log:           log,
		metrics:       metrics,
	}
}

// Assign adds the user to every project of row with roleID. It returns one
// result per project and whether the user was added to at least one.
func (a *MembershipAssigner) Assign(ctx context.Context, row Row, userID int64, roleID int) ([]Result, bool) {
	var results []Result
	added := false

	result := func(status Status, format string, args ...interface{}) {
		results = append(results, Result{
			Row:      row.Number,
			Username: row.Username,
			Status:   status,
			Detail:   fmt.Sprintf(format, args...),
		})
	}

	for _, project := range row.Projects {
		if project == "" {
			continue
		}

		exists, err := a.ensureProject(ctx, project)
		if err != nil {
			result(StatusError, "project create/check failed: %v", err)
			continue
		}
		if !exists {
			result(StatusWarn, "project %q not found - skipping project membership", project)
			continue
		}

		member := harbor.ProjectMember{
			RoleID:     roleID,
			MemberUser: &harbor.UserEntity{UserID: userID, Username: row.Username},
		}
		err = a.api.CreateProjectMember(ctx, project, member)
		switch {
		case err == nil:
			result(StatusOK, "user_id=%d added to project %s role=%d", userID, project, roleID)
			added = true
		case harbor.IsConflict(err):
			result(StatusSkip, "user %q already in project %s", row.Username, project)
		default:
			result(StatusError, "add to project failed: %v", err)
		}
	}

	return results, added
}

// ensureProject reports whether project exists, creating it when allowed.
// false with a nil error means missing with auto-create off.
func (a *MembershipAssigner) ensureProject(ctx context.Context, project string) (bool, error) {
	if a.known.Contains(project) {
		return true, nil
	}

	exists, err := a.api.ProjectExists(ctx, project)
	if err != nil {
		return false, err
	}
	if exists {
		a.known.Add(project, struct{}{})
		return true, nil
	}
	if !a.createMissing {
		return false, nil
	}

	err = a.api.CreateProject(ctx, harbor.ProjectReq{
		ProjectName: project,
		Metadata:    &harbor.ProjectMetadata{Public: "false"},
	})
	switch {
	case err == nil:
		a.metrics.RecordProjectCreated()
		a.log.WithField("project", project).Info("Project created")
	case harbor.IsConflict(err):
		// Created by someone else between the probe and the create
		a.log.WithField("project", project).Debug("Project already exists")
	default:
		return false, err
	}

	visible, err := a.poller.Poll(ctx, func(ctx context.Context) (bool, error) {
		return a.api.ProjectExists(ctx, project)
	})
	if err != nil {
		return false, err
	}
	if !visible {
		return false, fmt.Errorf("project %q not visible after creation", project)
	}

	a.known.Add(project, struct{}{})
	return true, nil
}
