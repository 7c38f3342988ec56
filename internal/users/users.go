// Package users parses the user list and applies the assignee rules.
package users

import (
	"github.com/deskline/deskline/internal/apierrors"
	"github.com/deskline/deskline/internal/wire"
)

// User is one entry of GET /users. DepartmentID is -1 when the server did
// not send one.
type User struct {
	ID           string `json:"id" yaml:"id"`
	Username     string `json:"username" yaml:"username"`
	DepartmentID int    `json:"department_id" yaml:"department_id"`
}

// Parse reads a user list body. Elements without an id are skipped.
func Parse(body []byte) ([]User, error) {
	objs, _, err := wire.DecodeArray(body)
	if err != nil {
		return nil, &apierrors.InvalidResponseError{Operation: "list users", Reason: err.Error()}
	}

	users := make([]User, 0, len(objs))
	for _, obj := range objs {
		id := obj.String("id")
		if id == "" {
			id = obj.String("user_id")
		}
		if id == "" {
			continue
		}
		users = append(users, User{
			ID:           id,
			Username:     obj.String("username"),
			DepartmentID: obj.Int("department_id", -1),
		})
	}
	return users, nil
}

// Assignable keeps the users that belong to a department.
func Assignable(all []User) []User {
	out := make([]User, 0, len(all))
	for _, u := range all {
		if u.DepartmentID > 0 {
			out = append(out, u)
		}
	}
	return out
}

// InDepartment keeps the users of dept, in their original order.
func InDepartment(all []User, dept int) []User {
	out := make([]User, 0, len(all))
	for _, u := range all {
		if u.DepartmentID == dept {
			out = append(out, u)
		}
	}
	return out
}

// Names maps user ids to usernames.
func Names(all []User) map[string]string {
	names := make(map[string]string, len(all))
	for _, u := range all {
		names[u.ID] = u.Username
	}
	return names
}

// Find returns the user with id.
func Find(all []User, id string) (User, bool) {
	for _, u := range all {
		if u.ID == id {
			return u, true
		}
	}
	return User{}, false
}
