package harbor

// UserSearchResult is one entry returned by the user search endpoint.
// Harbor only returns the id and the username here.
type UserSearchResult struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// UserCreationReq is the body of a user creation request
type UserCreationReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	Realname string `json:"realname"`
	Comment  string `json:"comment,omitempty"`
}

// PasswordReq is the body of a password update. OldPassword is left empty
// when a system administrator resets another user's password.
type PasswordReq struct {
	OldPassword string `json:"old_password,omitempty"`
	NewPassword string `json:"new_password"`
}

// ProjectMetadata holds the project metadata Harbor stores as strings
type ProjectMetadata struct {
	Public string `json:"public,omitempty"`
}

// ProjectReq is the body of a project creation request
type ProjectReq struct {
	ProjectName string           `json:"project_name"`
	Metadata    *ProjectMetadata `json:"metadata,omitempty"`
}

// UserEntity identifies the user side of a project membership
type UserEntity struct {
	UserID   int64  `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
}

// ProjectMember is the body of a project member creation request
type ProjectMember struct {
	RoleID     int         `json:"role_id"`
	MemberUser *UserEntity `json:"member_user,omitempty"`
}

// errorEnvelope is the error payload Harbor returns on non-2xx responses
type errorEnvelope struct {
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}
