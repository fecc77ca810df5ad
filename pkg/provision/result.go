package provision

import (
	"fmt"
	"strings"
)

// Status is the outcome class of a provisioning step
type Status string

const (
	// StatusOK means a membership was added
	StatusOK Status = "OK"
	// StatusOKUser means a user was created but added to no project
	StatusOKUser Status = "OK_USER"
	// StatusSkip means the row or step was already satisfied or invalid
	StatusSkip Status = "SKIP"
	// StatusWarn means a project was missing and auto-create was off
	StatusWarn Status = "WARN"
	// StatusError means a remote call failed
	StatusError Status = "ERROR"
)

// Statuses lists every status in report order
var Statuses = []Status{StatusOK, StatusOKUser, StatusSkip, StatusWarn, StatusError}

// Result is one entry of the run log. A row produces one or more results.
type Result struct {
	Row      int
	Username string
	Status   Status
	Detail   string
}

func (r Result) String() string {
	return fmt.Sprintf("row=%d user=%s status=%s detail=%s", r.Row, r.Username, r.Status, r.Detail)
}

// Summary counts results per status
type Summary map[Status]int

// Summarize counts results per status
func Summarize(results []Result) Summary {
	s := make(Summary, len(Statuses))
	for _, r := range results {
		s[r.Status]++
	}
	return s
}

// Failed reports whether any result is an ERROR
func (s Summary) Failed() bool {
	return s[StatusError] > 0
}

func (s Summary) String() string {
	parts := make([]string, 0, len(Statuses))
	for _, status := range Statuses {
		parts = append(parts, fmt.Sprintf("%s=%d", status, s[status]))
	}
	return strings.Join(parts, " ")
}
