package models

// RoleType is the role flag stored on a tutor account.
type RoleType string

const (
	RoleTutor   RoleType = "tutor"
	RoleStudent RoleType = "student"
)
