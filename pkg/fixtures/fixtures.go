// Package fixtures writes sample user CSV files for exercising create-users.
package fixtures

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// Default output files
const (
	DefaultOutput          = "test_users.csv"
	DefaultOutputThreeCols = "harbor_users.csv"
)

// User is one sample row
type User struct {
	Username string
	Password string
	Role     string
	Project  string
}

// Set is a sample data set and the columns it is written with
type Set struct {
	Header []string
	Users  []User
}

// Users returns the four-column sample set covering every role, two
// projects and a row without a project.
func Users() Set {
	return Set{
		Header: []string{"Username", "Password", "Role", "Project"},
		Users: []User{
			{"alice", "Passw0rd!", "developer", "demo"},
			{"bob", "S3cret!", "guest", "demo"},
			{"carol", "TopSecret1", "maintainer", "demo"},
			{"dave", "InitPass9", "projectAdmin", "ops"},
			{"eve", "EvePass#1", "developer", "ops"},
			{"frank", "Temp1234", "guest", ""},
		},
	}
}

// ThreeColumnUsers returns the sample set without a Project column
func ThreeColumnUsers() Set {
	return Set{
		Header: []string{"Username", "Password", "Role"},
		Users: []User{
			{Username: "alice", Password: "Alice1234", Role: "admin"},
			{Username: "bob", Password: "Bob12345", Role: "guest"},
			{Username: "carol", Password: "Carol123", Role: "maintainer"},
			{Username: "dave", Password: "Dave1234", Role: "developer"},
		},
	}
}

// Generate writes the header and rows of set to w. A negative rows writes
// the set once; otherwise exactly rows data lines are written, cycling
// through the set. It returns the number of data lines written.
func Generate(w io.Writer, set Set, rows int) (int, error) {
	if rows < 0 {
		rows = len(set.Users)
	}
	if rows > 0 && len(set.Users) == 0 {
		return 0, fmt.Errorf("sample set is empty")
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(set.Header); err != nil {
		return 0, err
	}
	for i := 0; i < rows; i++ {
		if err := cw.Write(set.record(set.Users[i%len(set.Users)])); err != nil {
			return i, err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, err
	}
	return rows, nil
}

// WriteFile generates set into the file at path, replacing any existing file
func WriteFile(path string, set Set, rows int) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", path, err)
	}
	n, err := Generate(f, set, rows)
	if err != nil {
		f.Close()
		return n, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return n, f.Close()
}

func (s Set) record(u User) []string {
	values := map[string]string{
		"Username": u.Username,
		"Password": u.Password,
		"Role":     u.Role,
		"Project":  u.Project,
	}
	record := make([]string, len(s.Header))
	for i, column := range s.Header {
		record[i] = values[column]
	}
	return record
}
