package provision

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/harbor-usertools/pkg/harbor"
	"github.com/platinummonkey/harbor-usertools/pkg/observability"
)

// ErrUserIDUnresolved is returned when a created user never shows up in search
var ErrUserIDUnresolved = errors.New("could not determine user id after creation")

// UserAPI is the part of the Harbor client used to look up and create users
type UserAPI interface {
	FindUser(ctx context.Context, username string) (harbor.UserSearchResult, error)
	CreateUser(ctx context.Context, req harbor.UserCreationReq) error
}

// Resolution is the outcome of UserResolver.Ensure
type Resolution struct {
	UserID  int64
	Created bool
}

// UserResolver finds a user by exact name or creates it
type UserResolver struct {
	api     UserAPI
	poller  Poller
	log     logrus.FieldLogger
	metrics *observability.Metrics
}

// NewUserResolver creates a UserResolver
func NewUserResolver(api UserAPI, poller Poller, log logrus.FieldLogger, metrics *observability.Metrics) *UserResolver {
	return &UserResolver{api: api, poller: poller, log: log, metrics: metrics}
}

// Ensure returns the id of the user named in row, creating the user when no
// exact match exists. A 409 on creation resolves the existing user instead.
// Existing users are never modified.
func (r *UserResolver) Ensure(ctx context.Context, row Row) (Resolution, error) {
	existing, err := r.api.FindUser(ctx, row.Username)
	if err == nil {
		return Resolution{UserID: existing.UserID}, nil
	}
	if !errors.Is(err, harbor.ErrUserNotFound) {
		return Resolution{}, err
	}

	req := harbor.UserCreationReq{
		Username: row.Username,
		Password: row.Password,
		Email:    fmt.Sprintf("%s@local.local", row.Username),
		Realname: row.Username,
	}
	if err := r.api.CreateUser(ctx, req); err != nil {
		if !harbor.IsConflict(err) {
			return Resolution{}, err
		}
		// Harbor knows the name even though the search missed it
		existing, findErr := r.api.FindUser(ctx, row.Username)
		if findErr != nil {
			return Resolution{}, err
		}
		r.log.WithField("username", row.Username).Debug("User already exists")
		return Resolution{UserID: existing.UserID}, nil
	}
	r.metrics.RecordUserCreated()
	r.log.WithField("username", row.Username).Info("User created")

	var created harbor.UserSearchResult
	found, err := r.poller.Poll(ctx, func(ctx context.Context) (bool, error) {
		user, err := r.api.FindUser(ctx, row.Username)
		if errors.Is(err, harbor.ErrUserNotFound) {
			r.log.WithField("username", row.Username).Debug("Created user not visible yet")
			return false, nil
		}
		if err != nil {
			return false, err
		}
		created = user
		return true, nil
	})
	if err != nil {
		return Resolution{}, err
	}
	if !found {
		return Resolution{Created: true}, ErrUserIDUnresolved
	}
	return Resolution{UserID: created.UserID, Created: true}, nil
}
