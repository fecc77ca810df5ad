package provision

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/harbor-usertools/pkg/harbor"
	"github.com/platinummonkey/harbor-usertools/pkg/harbor/harbortest"
	"github.com/platinummonkey/harbor-usertools/pkg/observability"
)

const (
	adminUser = "admin"
	adminPass = "Harbor12345"
)

var fastPoller = Poller{Interval: time.Millisecond, Attempts: 3}

type fixture struct {
	srv     *harbortest.Server
	metrics *observability.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv := harbortest.NewServer(adminUser, adminPass)
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, metrics: observability.NewMetrics(nil)}
}

func (f *fixture) provisioner(t *testing.T, opts Options) *Provisioner {
	t.Helper()
	client, err := harbor.NewClient(harbor.Config{
		Host:     f.srv.URL,
		Username: adminUser,
		Password: adminPass,
		Metrics:  f.metrics,
	})
	require.NoError(t, err)

	if opts.Poller.Attempts == 0 {
		opts.Poller = fastPoller
	}
	return New(client, opts, observability.NewLogger("debug", observability.FormatText, io.Discard), f.metrics)
}

func (f *fixture) run(t *testing.T, opts Options, csv string) *Run {
	t.Helper()
	records, err := ReadRecords(strings.NewReader(csv))
	require.NoError(t, err)

	run, err := f.provisioner(t, opts).Run(context.Background(), records)
	require.NoError(t, err)
	return run
}

func TestRun_CreatesUsersAndMemberships(t *testing.T) {
	f := newFixture(t)
	f.srv.AddProject("demo")
	f.srv.AddProject("ops")

	run := f.run(t, Options{DefaultProjects: []string{"ops"}}, "Username,Password,Role,Project\n"+
		"alice,Passw0rd!,developer,demo\n"+
		"bob,S3cret!,guest,\n")

	assert.Equal(t, []Result{
		{Row: 1, Username: "alice", Status: StatusOK, Detail: "user_id=2 added to project demo role=2"},
		{Row: 2, Username: "bob", Status: StatusOK, Detail: "user_id=3 added to project ops role=3"},
	}, run.Results)

	alice, ok := f.srv.User("alice")
	require.True(t, ok)
	assert.Equal(t, "alice@local.local", alice.Email)
	assert.Equal(t, "alice", alice.Realname)
	assert.Equal(t, "Passw0rd!", alice.Password)

	assert.Equal(t, map[int64]int{2: RoleDeveloper}, f.srv.Members("demo"))
	assert.Equal(t, map[int64]int{3: RoleGuest}, f.srv.Members("ops"))

	assert.NotEqual(t, [16]byte{}, [16]byte(run.ID))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.UsersCreatedTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.RowResultsTotal.WithLabelValues("OK")))
}

func TestRun_RerunIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.srv.AddProject("demo")
	input := "Username,Password,Role,Project\n" +
		"alice,Passw0rd!,developer,demo\n" +
		"bob,S3cret!,guest,demo\n"

	first := f.run(t, Options{}, input)
	assert.False(t, first.Summary().Failed())
	users, creates := f.srv.UserCount(), f.srv.Calls(harbortest.OpCreateUser)

	second := f.run(t, Options{}, input)
	assert.Equal(t, []Result{
		{Row: 1, Username: "alice", Status: StatusSkip, Detail: `user "alice" already exists`},
		{Row: 1, Username: "alice", Status: StatusSkip, Detail: `user "alice" already in project demo`},
		{Row: 2, Username: "bob", Status: StatusSkip, Detail: `user "bob" already exists`},
		{Row: 2, Username: "bob", Status: StatusSkip, Detail: `user "bob" already in project demo`},
	}, second.Results)

	assert.Equal(t, users, f.srv.UserCount())
	assert.Equal(t, creates, f.srv.Calls(harbortest.OpCreateUser))
	assert.Len(t, f.srv.Members("demo"), 2)
}

func TestRun_ExistingUserBeyondFirstSearchPage(t *testing.T) {
	f := newFixture(t)
	f.srv.AddProject("demo")
	for i := 1; i <= harbor.SearchPageSize; i++ {
		f.srv.AddUser(fmt.Sprintf("bob%d", i), "pw", false)
	}
	bob := f.srv.AddUser("bob", "pw", false)

	run := f.run(t, Options{}, "Username,Password,Role,Project\nbob,pw,guest,demo\n")

	assert.Equal(t, []Result{
		{Row: 1, Username: "bob", Status: StatusSkip, Detail: `user "bob" already exists`},
		{Row: 1, Username: "bob", Status: StatusOK, Detail: fmt.Sprintf("user_id=%d added to project demo role=3", bob)},
	}, run.Results)
	assert.Zero(t, f.srv.Calls(harbortest.OpCreateUser))
}

func TestRun_SimilarNameIsNotAMatch(t *testing.T) {
	f := newFixture(t)
	bob2 := f.srv.AddUser("bob2", "pw", false)

	run := f.run(t, Options{}, "Username,Password,Role\nbob,S3cret!,guest\n")

	bob, ok := f.srv.User("bob")
	require.True(t, ok)
	assert.NotEqual(t, bob2, bob.ID)
	assert.Equal(t, []Result{
		{Row: 1, Username: "bob", Status: StatusOKUser, Detail: "user_id=3"},
	}, run.Results)
}

func TestRun_MissingProjectWarnsAndContinues(t *testing.T) {
	f := newFixture(t)
	f.srv.AddProject("demo")

	run := f.run(t, Options{}, "Username,Password,Role,Project\nalice,Passw0rd!,developer,missing demo\n")

	assert.Equal(t, []Result{
		{Row: 1, Username: "alice", Status: StatusWarn, Detail: `project "missing" not found - skipping project membership`},
		{Row: 1, Username: "alice", Status: StatusOK, Detail: "user_id=2 added to project demo role=2"},
	}, run.Results)
	assert.False(t, f.srv.HasProject("missing"))
	assert.Zero(t, f.srv.Calls(harbortest.OpCreateProject))
}

func TestRun_DuplicateRowsInOneBatch(t *testing.T) {
	f := newFixture(t)
	f.srv.AddProject("demo")

	run := f.run(t, Options{}, "Username,Password,Role,Project\n"+
		"alice,Pass1,developer,demo\n"+
		"alice,Pass1,developer,demo\n")

	assert.Equal(t, []Result{
		{Row: 1, Username: "alice", Status: StatusOK, Detail: "user_id=2 added to project demo role=2"},
		{Row: 2, Username: "alice", Status: StatusSkip, Detail: `user "alice" already exists`},
		{Row: 2, Username: "alice", Status: StatusSkip, Detail: `user "alice" already in project demo`},
	}, run.Results)
	assert.Equal(t, 1, f.srv.Calls(harbortest.OpCreateUser))
}

func TestRun_InvalidRowsMakeNoRemoteCalls(t *testing.T) {
	f := newFixture(t)

	run := f.run(t, Options{DefaultProjects: []string{"demo"}}, "Username,Password,Role\n"+
		",pw,guest\n"+
		"alice,,guest\n"+
		"bob,pw,\n"+
		"carol,pw,wizard\n")

	assert.Equal(t, []Result{
		{Row: 1, Username: "", Status: StatusSkip, Detail: "missing username/password/role"},
		{Row: 2, Username: "alice", Status: StatusSkip, Detail: "missing username/password/role"},
		{Row: 3, Username: "bob", Status: StatusSkip, Detail: "missing username/password/role"},
		{Row: 4, Username: "carol", Status: StatusSkip, Detail: `unknown role "wizard"`},
	}, run.Results)
	assert.Zero(t, f.srv.TotalCalls())
}

func TestRun_NumericRole(t *testing.T) {
	f := newFixture(t)
	f.srv.AddProject("demo")

	run := f.run(t, Options{}, "Username,Password,Role,Project\ndave,InitPass9,4,demo\n")

	require.Len(t, run.Results, 1)
	assert.Equal(t, "user_id=2 added to project demo role=4", run.Results[0].Detail)
	assert.Equal(t, map[int64]int{2: RoleMaintainer}, f.srv.Members("demo"))
}

func TestRun_CreateProjectIfMissingWithLag(t *testing.T) {
	f := newFixture(t)
	f.srv.SetVisibilityLag(1)

	run := f.run(t, Options{CreateProjectIfMissing: true}, "Username,Password,Role,Project\nalice,Passw0rd!,developer,demo\n")

	assert.Equal(t, []Result{
		{Row: 1, Username: "alice", Status: StatusOK, Detail: "user_id=2 added to project demo role=2"},
	}, run.Results)
	assert.True(t, f.srv.HasProject("demo"))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ProjectsCreatedTotal))
	// initial search, then one hidden and one visible search
	assert.Equal(t, 3, f.srv.Calls(harbortest.OpSearchUsers))
}

func TestRun_CreatedUserNeverVisible(t *testing.T) {
	f := newFixture(t)
	f.srv.AddProject("demo")
	f.srv.SetVisibilityLag(10)

	run := f.run(t, Options{}, "Username,Password,Role,Project\nalice,Passw0rd!,developer,demo\n")

	assert.Equal(t, []Result{
		{Row: 1, Username: "alice", Status: StatusError, Detail: "could not determine user id after creation"},
	}, run.Results)
	assert.Zero(t, f.srv.Calls(harbortest.OpCreateMember))
	assert.Equal(t, 1+fastPoller.Attempts, f.srv.Calls(harbortest.OpSearchUsers))
}

func TestRun_CreateUserFailureDoesNotStopBatch(t *testing.T) {
	f := newFixture(t)
	f.srv.FailNext(harbortest.OpCreateUser, http.StatusInternalServerError)

	run := f.run(t, Options{}, "Username,Password,Role\nalice,pw,guest\nbob,pw,guest\n")

	require.Len(t, run.Results, 2)
	assert.Equal(t, StatusError, run.Results[0].Status)
	assert.True(t, strings.HasPrefix(run.Results[0].Detail, "create_user failed: CreateUser: 500"), run.Results[0].Detail)
	assert.Equal(t, Result{Row: 2, Username: "bob", Status: StatusOKUser, Detail: "user_id=2"}, run.Results[1])
}

func TestRun_SearchFailureIsCreateUserError(t *testing.T) {
	f := newFixture(t)
	f.srv.FailNext(harbortest.OpSearchUsers, http.StatusServiceUnavailable)

	run := f.run(t, Options{}, "Username,Password,Role\nalice,pw,guest\n")

	require.Len(t, run.Results, 1)
	assert.Equal(t, StatusError, run.Results[0].Status)
	assert.Contains(t, run.Results[0].Detail, "create_user failed: SearchUsers: 503")
	assert.Zero(t, f.srv.Calls(harbortest.OpCreateUser))
}

func TestRun_ProjectProbeFailure(t *testing.T) {
	f := newFixture(t)
	f.srv.AddProject("demo")
	f.srv.AddProject("ops")
	f.srv.FailNext(harbortest.OpHeadProject, http.StatusInternalServerError)

	run := f.run(t, Options{CreateProjectIfMissing: true}, "Username,Password,Role,Project\nalice,pw,guest,demo ops\n")

	assert.Equal(t, []Result{
		{Row: 1, Username: "alice", Status: StatusError, Detail: "project create/check failed: HeadProject: 500 Internal Server Error"},
		{Row: 1, Username: "alice", Status: StatusOK, Detail: "user_id=2 added to project ops role=3"},
	}, run.Results)
	assert.Zero(t, f.srv.Calls(harbortest.OpCreateProject), "a failed probe is not treated as missing")
}

func TestRun_ProjectCreateFailure(t *testing.T) {
	f := newFixture(t)
	f.srv.FailNext(harbortest.OpCreateProject, http.StatusForbidden)

	run := f.run(t, Options{CreateProjectIfMissing: true}, "Username,Password,Role,Project\nalice,pw,guest,demo\n")

	require.Len(t, run.Results, 2)
	assert.Equal(t, StatusError, run.Results[0].Status)
	assert.True(t, strings.HasPrefix(run.Results[0].Detail, "project create/check failed: CreateProject: 403"))
	assert.Equal(t, Result{Row: 1, Username: "alice", Status: StatusOKUser, Detail: "user_id=2"}, run.Results[1])
}

func TestRun_AddMemberFailure(t *testing.T) {
	f := newFixture(t)
	f.srv.AddProject("demo")
	f.srv.FailNext(harbortest.OpCreateMember, http.StatusInternalServerError)

	run := f.run(t, Options{}, "Username,Password,Role,Project\nalice,pw,guest,demo\n")

	require.Len(t, run.Results, 2)
	assert.Equal(t, StatusError, run.Results[0].Status)
	assert.True(t, strings.HasPrefix(run.Results[0].Detail, "add to project failed: CreateProjectMember: 500"))
	assert.Equal(t, StatusOKUser, run.Results[1].Status)
	assert.True(t, run.Summary().Failed())
}

func TestRun_ExistingProjectsAreProbedOnce(t *testing.T) {
	f := newFixture(t)
	f.srv.AddProject("demo")

	f.run(t, Options{DefaultProjects: []string{"demo", "missing"}}, "Username,Password,Role\n"+
		"alice,pw,guest\n"+
		"bob,pw,guest\n"+
		"carol,pw,guest\n")

	assert.Equal(t, 1+3, f.srv.Calls(harbortest.OpHeadProject), "demo once, missing on every row")
	assert.Len(t, f.srv.Members("demo"), 3)
}

func TestRun_ContextCancelled(t *testing.T) {
	f := newFixture(t)
	records, err := ReadRecords(strings.NewReader("Username,Password,Role\nalice,pw,guest\n"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, err := f.provisioner(t, Options{}).Run(ctx, records)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, run)
	assert.Empty(t, run.Results)
	assert.Zero(t, f.srv.TotalCalls())
}

type panickingClient struct {
	Client
}

func (panickingClient) FindUser(context.Context, string) (harbor.UserSearchResult, error) {
	panic("nil map")
}

func TestRun_PanicBecomesRowError(t *testing.T) {
	p := New(panickingClient{}, Options{Poller: fastPoller}, observability.NewLogger("info", observability.FormatText, io.Discard), nil)
	records := []Record{
		{Row: 1, Username: "alice", Password: "pw", Role: "guest"},
		{Row: 2, Username: "bob", Password: "pw", Role: "guest"},
	}

	run, err := p.Run(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, []Result{
		{Row: 1, Username: "alice", Status: StatusError, Detail: "panic: nil map"},
		{Row: 2, Username: "bob", Status: StatusError, Detail: "panic: nil map"},
	}, run.Results)
}
