// Package password changes Harbor user passwords interactively, either for
// the acting user or, for administrators, for another user.
package password

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/harbor-usertools/pkg/harbor"
)

var (
	// ErrPasswordMismatch is returned when the new password and its confirmation differ
	ErrPasswordMismatch = errors.New("passwords do not match")

	// ErrUserNotFound is matched by errors for users that do not exist
	ErrUserNotFound = errors.New("user not found")

	// ErrUnauthorized is returned when Harbor rejects the update with 401
	ErrUnauthorized = errors.New("unauthorized: wrong current password or insufficient permissions")
)

type userNotFoundError struct {
	username string
}

func (e *userNotFoundError) Error() string {
	return fmt.Sprintf("user %q not found", e.username)
}

func (e *userNotFoundError) Is(target error) bool {
	return target == ErrUserNotFound
}

// Prompter reads a secret from the user
type Prompter interface {
	PromptPassword(prompt string) (string, error)
}

// UserAPI is the part of the Harbor client used to change passwords
type UserAPI interface {
	FindUser(ctx context.Context, username string) (harbor.UserSearchResult, error)
	UpdateUserPassword(ctx context.Context, userID int64, req harbor.PasswordReq) error
}

// Changer runs the interactive password change
type Changer struct {
	api      UserAPI
	prompter Prompter
	log      logrus.FieldLogger
}

// NewChanger creates a Changer
func NewChanger(api UserAPI, prompter Prompter, log logrus.FieldLogger) *Changer {
	return &Changer{api: api, prompter: prompter, log: log}
}

// IsSelfChange reports whether target names the acting user. An empty
// target means the acting user.
func IsSelfChange(actingUser, target string) bool {
	return target == "" || strings.EqualFold(target, actingUser)
}

// Change changes the password of target, or of actingUser when target is
// empty or names the acting user, and returns a confirmation message.
func (c *Changer) Change(ctx context.Context, actingUser, target string) (string, error) {
	if IsSelfChange(actingUser, target) {
		return c.changeOwn(ctx, actingUser)
	}
	return c.changeOther(ctx, target)
}

// changeOwn reads all three secrets before the first API call.
func (c *Changer) changeOwn(ctx context.Context, username string) (string, error) {
	current, err := c.prompter.PromptPassword("Current password: ")
	if err != nil {
		return "", fmt.Errorf("failed to read current password: %w", err)
	}
	newPass, err := c.promptNew("New password: ")
	if err != nil {
		return "", err
	}

	user, err := c.lookup(ctx, username)
	if err != nil {
		return "", err
	}

	log := c.log.WithFields(logrus.Fields{"username": username, "user_id": user.UserID})
	log.Debug("Changing own password")

	err = c.api.UpdateUserPassword(ctx, user.UserID, harbor.PasswordReq{
		OldPassword: current,
		NewPassword: newPass,
	})
	if err != nil {
		return "", classify(err)
	}

	log.Info("Password changed")
	return "Password changed successfully", nil
}

func (c *Changer) changeOther(ctx context.Context, target string) (string, error) {
	user, err := c.lookup(ctx, target)
	if err != nil {
		return "", err
	}

	newPass, err := c.promptNew(fmt.Sprintf("New password for %s: ", target))
	if err != nil {
		return "", err
	}

	log := c.log.WithFields(logrus.Fields{"target": target, "user_id": user.UserID})
	log.Debug("Setting password for user")

	if err := c.api.UpdateUserPassword(ctx, user.UserID, harbor.PasswordReq{NewPassword: newPass}); err != nil {
		return "", classify(err)
	}

	log.Info("Password updated")
	return fmt.Sprintf("Password updated for %q", target), nil
}

// promptNew asks for the new password twice
func (c *Changer) promptNew(prompt string) (string, error) {
	newPass, err := c.prompter.PromptPassword(prompt)
	if err != nil {
		return "", fmt.Errorf("failed to read new password: %w", err)
	}
	confirm, err := c.prompter.PromptPassword("Confirm new password: ")
	if err != nil {
		return "", fmt.Errorf("failed to read password confirmation: %w", err)
	}
	if newPass != confirm {
		return "", ErrPasswordMismatch
	}
	return newPass, nil
}

func (c *Changer) lookup(ctx context.Context, username string) (harbor.UserSearchResult, error) {
	user, err := c.api.FindUser(ctx, username)
	if errors.Is(err, harbor.ErrUserNotFound) {
		return harbor.UserSearchResult{}, &userNotFoundError{username: username}
	}
	if err != nil {
		return harbor.UserSearchResult{}, fmt.Errorf("failed to look up user %q: %w", username, err)
	}
	return user, nil
}

// classify maps a failed password update to the message shown to the user
func classify(err error) error {
	var apiErr *harbor.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("failed to change password: %w", err)
	}

	switch {
	case harbor.IsBadRequest(err):
		return fmt.Errorf("bad request: %s", strings.TrimSpace(apiErr.Body))
	case harbor.IsUnauthorized(err):
		return ErrUnauthorized
	default:
		return fmt.Errorf("failed to change password: %w", err)
	}
}
