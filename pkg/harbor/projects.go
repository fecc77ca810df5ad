package harbor

import (
	"context"
	"net/http"
	"net/url"
)

// ProjectExists probes a project by name. A 404 means the project does not
// exist; any other failure is returned as an error.
func (c *Client) ProjectExists(ctx context.Context, name string) (bool, error) {
	query := url.Values{}
	query.Set("project_name", name)

	err := c.do(ctx, request{
		operation: "HeadProject",
		method:    http.MethodHead,
		path:      "/projects",
		query:     query,
	}, nil)
	if err == nil {
		return true, nil
	}
	if IsNotFound(err) {
		return false, nil
	}
	return false, err
}

// CreateProject creates a project
func (c *Client) CreateProject(ctx context.Context, req ProjectReq) error {
	return c.do(ctx, request{
		operation: "CreateProject",
		method:    http.MethodPost,
		path:      "/projects",
		body:      req,
	}, nil)
}

// CreateProjectMember adds a member to the project identified by name.
// A user who is already a member yields a 409 APIError.
func (c *Client) CreateProjectMember(ctx context.Context, projectName string, member ProjectMember) error {
	return c.do(ctx, request{
		operation: "CreateProjectMember",
		method:    http.MethodPost,
		path:      "/projects/" + url.PathEscape(projectName) + "/members",
		headers:   map[string]string{"X-Is-Resource-Name": "true"},
		body:      member,
	}, nil)
}
