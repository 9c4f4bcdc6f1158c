package model

type Role struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

type User struct {
	ID        int64  `json:"id" db:"id"`
	Email     string `json:"email" db:"email"`
	GivenName string `json:"given_name" db:"given_name"`
	Surname   string `json:"surname" db:"surname"`
	Enabled   bool   `json:"enabled" db:"enabled"`
}

type UserWithRoles struct {
	User
	Roles []string `json:"roles"`
}
