package domain

import "time"

type User struct {
	ID              string
	Email           string
	FullName        string
	PasswordHash    string  // argon2id encoded
	Role            Role
	EmployerOwnerID *string // set for Workers: the Owner account they work under
	Active          bool
	EmailConfirmed  bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
