package models

import "time"

// UserRole соответствует ENUM user_role в БД.
type UserRole string

const (
	RoleUser  UserRole = "USER"
	RoleAdmin UserRole = "ADMIN"
)

type User struct {
	ID                  string    `json:"id" db:"id"`
	Nickname            string    `json:"nickname" db:"nickname"`
	Email               string    `json:"email" db:"email"`
	PasswordHash        string    `json:"-" db:"password_hash"`
	Role                UserRole  `json:"role" db:"role"`
	RiffaCoinsAvailable int64     `json:"riffa_coins_available" db:"riffa_coins_available"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
}

// UserSummary — публичная проекция пользователя для вложенных ответов.
type UserSummary struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
}
