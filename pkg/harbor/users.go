package harbor

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// SearchPageSize is the page size used when looking a user up by name
const SearchPageSize = 10

// maxSearchPages bounds how far FindUser pages through the search results
const maxSearchPages = 100

// SearchUsers searches users by username. Harbor matches fuzzily, so the
// results may contain users whose names merely contain the query.
func (c *Client) SearchUsers(ctx context.Context, username string, page, pageSize int) ([]UserSearchResult, error) {
	query := url.Values{}
	query.Set("username", username)
	query.Set("page", strconv.Itoa(page))
	query.Set("page_size", strconv.Itoa(pageSize))

	var results []UserSearchResult
	err := c.do(ctx, request{
		operation: "SearchUsers",
		method:    http.MethodGet,
		path:      "/users/search",
		query:     query,
	}, &results)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// FindUser returns the user whose name equals username, ignoring case.
// Partial matches in the search results are discarded. Pages are read until
// the exact match shows up or a short page ends the results;
// ErrUserNotFound is returned when no exact match exists.
func (c *Client) FindUser(ctx context.Context, username string) (UserSearchResult, error) {
	for page := 1; page <= maxSearchPages; page++ {
		results, err := c.SearchUsers(ctx, username, page, SearchPageSize)
		if err != nil {
			return UserSearchResult{}, err
		}
		if match, ok := ExactMatch(results, username); ok {
			return match, nil
		}
		if len(results) < SearchPageSize {
			break
		}
	}
	return UserSearchResult{}, fmt.Errorf("%w: %s", ErrUserNotFound, username)
}

// ExactMatch picks the result whose username equals username case-insensitively
func ExactMatch(results []UserSearchResult, username string) (UserSearchResult, bool) {
	for _, item := range results {
		if strings.EqualFold(item.Username, username) && item.UserID != 0 {
			return item, true
		}
	}
	return UserSearchResult{}, false
}

// CreateUser creates a local Harbor user. Harbor answers 201 with no body,
// so the new id has to be looked up afterwards.
func (c *Client) CreateUser(ctx context.Context, req UserCreationReq) error {
	return c.do(ctx, request{
		operation: "CreateUser",
		method:    http.MethodPost,
		path:      "/users",
		body:      req,
	}, nil)
}

// UpdateUserPassword changes the password of the user with the given id
func (c *Client) UpdateUserPassword(ctx context.Context, userID int64, req PasswordReq) error {
	return c.do(ctx, request{
		operation: "UpdateUserPassword",
		method:    http.MethodPut,
		path:      fmt.Sprintf("/users/%d/password", userID),
		body:      req,
	}, nil)
}
