package user

import "strings"

// Roles, as sent by the LMS.
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

var (
	AllRoles = []string{RoleAdmin, RoleStudent, RoleTeacher} // sorted

	rolePriorities = map[string]int{
		RoleAdmin:   30,
		RoleTeacher: 20,
		RoleStudent: 10,
	}
)

func RolePriority(role string) int {
	return rolePriorities[role]
}

// User is the signed in LMS user, as stored under core.UserKey.
type User struct {
	ID    string `json:"id" validate:"required,notblank"`
	Name  string `json:"name"`
	Email string `json:"email" validate:"omitempty,email"`
	Role  string `json:"role" validate:"required,role"`
}

func (u User) hasRole(role string) bool {
	return strings.EqualFold(u.Role, role)
}

func (u User) IsAdmin() bool {
	return u.hasRole(RoleAdmin)
}

func (u User) IsTeacher() bool {
	return u.hasRole(RoleTeacher)
}

func (u User) IsStudent() bool {
	return u.hasRole(RoleStudent)
}

// CanGrade reports whether the user may use the grading interface (teachers and above).
func (u User) CanGrade() bool {
	return RolePriority(strings.ToLower(u.Role)) >= RolePriority(RoleTeacher)
}

// IsZero reports whether no user is signed in.
func (u User) IsZero() bool {
	return u.ID == ""
}
