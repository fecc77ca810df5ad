// Package harbortest provides an in-memory Harbor v2.0 API for tests.
package harbortest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/harbor-usertools/pkg/harbor"
)

// Operation names recorded for every request the server handles
const (
	OpSearchUsers    = "SearchUsers"
	OpCreateUser     = "CreateUser"
	OpUpdatePassword = "UpdateUserPassword"
	OpHeadProject    = "HeadProject"
	OpCreateProject  = "CreateProject"
	OpCreateMember   = "CreateProjectMember"
)

// User is a user stored by the fake server
type User struct {
	ID       int64
	Username string
	Password string
	Email    string
	Realname string
	Admin    bool

	// hiddenFor counts the searches that still miss this user
	hiddenFor int
}

// Project is a project stored by the fake server
type Project struct {
	Name    string
	Public  string
	Members map[int64]int

	hiddenFor int
}

// Server is a fake Harbor. Basic auth is checked against the stored users.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	users      map[int64]*User
	nextUserID int64
	projects   map[string]*Project
	calls      map[string]int
	failures   map[string][]int
	lag        int
}

// NewServer starts a fake Harbor with a single system administrator
func NewServer(adminUser, adminPass string) *Server {
	s := &Server{
		users:      make(map[int64]*User),
		nextUserID: 1,
		projects:   make(map[string]*Project),
		calls:      make(map[string]int),
		failures:   make(map[string][]int),
	}
	s.AddUser(adminUser, adminPass, true)

	router := mux.NewRouter()
	api := router.PathPrefix(harbor.APIBasePath).Subrouter()
	api.HandleFunc("/users/search", s.handleSearchUsers).Methods(http.MethodGet)
	api.HandleFunc("/users", s.handleCreateUser).Methods(http.MethodPost)
	api.HandleFunc("/users/{id:[0-9]+}/password", s.handleUpdatePassword).Methods(http.MethodPut)
	api.HandleFunc("/projects", s.handleHeadProject).Methods(http.MethodHead)
	api.HandleFunc("/projects", s.handleCreateProject).Methods(http.MethodPost)
	api.HandleFunc("/projects/{project}/members", s.handleCreateMember).Methods(http.MethodPost)

	s.Server = httptest.NewServer(s.authenticate(router))
	return s
}

// AddUser stores a user directly and returns its id
func (s *Server) AddUser(username, password string, admin bool) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(username, password, username+"@local.local", username, admin)
}

func (s *Server) addUserLocked(username, password, email, realname string, admin bool) int64 {
	id := s.nextUserID
	s.nextUserID++
	s.users[id] = &User{
		ID:       id,
		Username: username,
		Password: password,
		Email:    email,
		Realname: realname,
		Admin:    admin,
	}
	return id
}

// AddProject stores a project directly
func (s *Server) AddProject(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[name] = &Project{Name: name, Public: "false", Members: make(map[int64]int)}
}

// AddMember stores a membership directly
func (s *Server) AddMember(project string, userID int64, roleID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.projects[project]; ok {
		p.Members[userID] = roleID
	}
}

// SetVisibilityLag makes entities created through the API invisible to the
// next n reads, simulating read-after-write lag.
func (s *Server) SetVisibilityLag(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lag = n
}

// FailNext makes the next call of op fail with the given HTTP status.
// Calling it several times queues several failures.
func (s *Server) FailNext(op string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = append(s.failures[op], status)
}

// Calls returns how many requests of op the server has handled
func (s *Server) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// TotalCalls returns the number of API requests handled
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

// User returns a copy of the stored user with the given name
func (s *Server) User(username string) (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u := s.findLocked(username); u != nil {
		return *u, true
	}
	return User{}, false
}

// UserCount returns the number of stored users, the administrator included
func (s *Server) UserCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// HasProject reports whether the project is stored
func (s *Server) HasProject(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.projects[name]
	return ok
}

// Members returns a copy of the project's user id to role id memberships
func (s *Server) Members(project string) map[int64]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]int)
	if p, ok := s.projects[project]; ok {
		for id, role := range p.Members {
			out[id] = role
		}
	}
	return out
}

func (s *Server) findLocked(username string) *User {
	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			return u
		}
	}
	return nil
}

// authenticate rejects requests whose basic credentials match no stored user
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
			return
		}
		s.mu.Lock()
		u := s.findLocked(username)
		valid := u != nil && u.Password == password
		s.mu.Unlock()
		if !valid {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// begin records the call and reports an injected failure, if any
func (s *Server) begin(op string) (int, bool) {
	s.calls[op]++
	queue := s.failures[op]
	if len(queue) == 0 {
		return 0, false
	}
	s.failures[op] = queue[1:]
	return queue[0], true
}

func (s *Server) caller(r *http.Request) *User {
	username, _, _ := r.BasicAuth()
	return s.findLocked(username)
}

func (s *Server) handleSearchUsers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status, fail := s.begin(OpSearchUsers); fail {
		writeError(w, status, http.StatusText(status), "injected failure")
		return
	}

	query := strings.ToLower(r.URL.Query().Get("username"))
	pageSize, err := strconv.Atoi(r.URL.Query().Get("page_size"))
	if err != nil || pageSize <= 0 {
		pageSize = 10
	}
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page <= 0 {
		page = 1
	}
	skip := (page - 1) * pageSize

	ids := make([]int64, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	results := make([]harbor.UserSearchResult, 0)
	for _, id := range ids {
		u := s.users[id]
		if !strings.Contains(strings.ToLower(u.Username), query) {
			continue
		}
		if u.hiddenFor > 0 {
			u.hiddenFor--
			continue
		}
		if skip > 0 {
			skip--
			continue
		}
		if len(results) < pageSize {
			results = append(results, harbor.UserSearchResult{UserID: u.ID, Username: u.Username})
		}
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status, fail := s.begin(OpCreateUser); fail {
		writeError(w, status, http.StatusText(status), "injected failure")
		return
	}
	if c := s.caller(r); c == nil || !c.Admin {
		writeError(w, http.StatusForbidden, "FORBIDDEN", "only system admin can create users")
		return
	}

	var req harbor.UserCreationReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid user creation request")
		return
	}
	if s.findLocked(req.Username) != nil {
		writeError(w, http.StatusConflict, "CONFLICT", fmt.Sprintf("username %s already exists", req.Username))
		return
	}

	id := s.addUserLocked(req.Username, req.Password, req.Email, req.Realname, false)
	s.users[id].hiddenFor = s.lag
	w.Header().Set("Location", fmt.Sprintf("%s/users/%d", harbor.APIBasePath, id))
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status, fail := s.begin(OpUpdatePassword); fail {
		writeError(w, status, http.StatusText(status), "injected failure")
		return
	}

	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	target, ok := s.users[id]
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "user not found")
		return
	}

	var req harbor.PasswordReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "new password is required")
		return
	}

	c := s.caller(r)
	switch {
	case c.ID == target.ID && !c.Admin:
		if req.OldPassword != target.Password {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "old password is incorrect")
			return
		}
	case c.Admin:
		if c.ID == target.ID && req.OldPassword != "" && req.OldPassword != target.Password {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "old password is incorrect")
			return
		}
	default:
		writeError(w, http.StatusForbidden, "FORBIDDEN", "insufficient privilege to update the password")
		return
	}
	if req.NewPassword == target.Password {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "the new password must not be the same as the old one")
		return
	}

	target.Password = req.NewPassword
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleHeadProject(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status, fail := s.begin(OpHeadProject); fail {
		w.WriteHeader(status)
		return
	}

	p, ok := s.projects[r.URL.Query().Get("project_name")]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if p.hiddenFor > 0 {
		p.hiddenFor--
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status, fail := s.begin(OpCreateProject); fail {
		writeError(w, status, http.StatusText(status), "injected failure")
		return
	}

	var req harbor.ProjectReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProjectName == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid project request")
		return
	}
	if _, exists := s.projects[req.ProjectName]; exists {
		writeError(w, http.StatusConflict, "CONFLICT", fmt.Sprintf("project %s already exists", req.ProjectName))
		return
	}

	public := "false"
	if req.Metadata != nil && req.Metadata.Public != "" {
		public = req.Metadata.Public
	}
	s.projects[req.ProjectName] = &Project{
		Name:      req.ProjectName,
		Public:    public,
		Members:   make(map[int64]int),
		hiddenFor: s.lag,
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleCreateMember(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status, fail := s.begin(OpCreateMember); fail {
		writeError(w, status, http.StatusText(status), "injected failure")
		return
	}

	p, ok := s.projects[mux.Vars(r)["project"]]
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "project not found")
		return
	}

	var req harbor.ProjectMember
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.MemberUser == nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "member_user is required")
		return
	}
	if req.RoleID < 1 || req.RoleID > 5 {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", fmt.Sprintf("invalid role id %d", req.RoleID))
		return
	}
	if _, ok := s.users[req.MemberUser.UserID]; !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "user not found")
		return
	}
	if _, exists := p.Members[req.MemberUser.UserID]; exists {
		writeError(w, http.StatusConflict, "CONFLICT", "the member already exists")
		return
	}

	p.Members[req.MemberUser.UserID] = req.RoleID
	w.WriteHeader(http.StatusCreated)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"errors": []map[string]string{{"code": code, "message": message}},
	})
}
