package provision

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/harbor-usertools/pkg/harbor"
	"github.com/platinummonkey/harbor-usertools/pkg/observability"
)

// stubUsers misses every search until CreateUser has been called, then
// returns afterCreate when it is set
type stubUsers struct {
	afterCreate *harbor.UserSearchResult
	createErr   error
	finds       int
	creates     int
}

func (s *stubUsers) FindUser(_ context.Context, username string) (harbor.UserSearchResult, error) {
	s.finds++
	if s.creates > 0 && s.afterCreate != nil {
		return *s.afterCreate, nil
	}
	return harbor.UserSearchResult{}, fmt.Errorf("%w: %s", harbor.ErrUserNotFound, username)
}

func (s *stubUsers) CreateUser(context.Context, harbor.UserCreationReq) error {
	s.creates++
	return s.createErr
}

func newTestResolver(api UserAPI) *UserResolver {
	return NewUserResolver(api, fastPoller, observability.NewLogger("debug", observability.FormatText, io.Discard), nil)
}

func conflictErr() error {
	return &harbor.APIError{Operation: "CreateUser", StatusCode: http.StatusConflict, Status: "409 Conflict"}
}

func TestEnsure_ConflictResolvesExistingUser(t *testing.T) {
	api := &stubUsers{
		createErr:   conflictErr(),
		afterCreate: &harbor.UserSearchResult{UserID: 42, Username: "bob"},
	}

	res, err := newTestResolver(api).Ensure(context.Background(), Row{Number: 1, Username: "bob", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, Resolution{UserID: 42, Created: false}, res)
	assert.Equal(t, 1, api.creates)
	assert.Equal(t, 2, api.finds)
}

func TestEnsure_ConflictWithoutVisibleUserIsError(t *testing.T) {
	api := &stubUsers{createErr: conflictErr()}

	_, err := newTestResolver(api).Ensure(context.Background(), Row{Number: 1, Username: "bob", Password: "pw"})
	require.Error(t, err)
	assert.True(t, harbor.IsConflict(err))
}

func TestEnsure_CreateFailure(t *testing.T) {
	api := &stubUsers{
		createErr: &harbor.APIError{Operation: "CreateUser", StatusCode: http.StatusForbidden, Status: "403 Forbidden"},
	}

	_, err := newTestResolver(api).Ensure(context.Background(), Row{Number: 1, Username: "bob", Password: "pw"})
	require.Error(t, err)
	assert.True(t, harbor.IsForbidden(err))
	assert.Equal(t, 1, api.finds)
}

func TestEnsure_CreatedUserResolvedByPoll(t *testing.T) {
	api := &stubUsers{afterCreate: &harbor.UserSearchResult{UserID: 7, Username: "carol"}}

	res, err := newTestResolver(api).Ensure(context.Background(), Row{Number: 1, Username: "carol", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, Resolution{UserID: 7, Created: true}, res)
}
