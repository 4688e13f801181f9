package models

import "time"

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

type User struct {
	ID         int64
	FirstName  string
	LastName   string
	Email      string
	PassHash   []byte
	Role       Role
	IsVerified bool
	UpdatedAt  time.Time
}

// * PublicUser: представление пользователя без хеша пароля
type PublicUser struct {
	ID         int64  `json:"id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Role       Role   `json:"role"`
	IsVerified bool   `json:"is_verified"`
}

// * Public возвращает публичное представление пользователя
func (u User) Public() PublicUser {
	return PublicUser{
		ID:         u.ID,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Email:      u.Email,
		Role:       u.Role,
		IsVerified: u.IsVerified,
	}
}

type Registration struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

type Todo struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	TodoName    string     `json:"todo_name"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	IsCompleted bool       `json:"is_completed"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// * TodoPatch: частичное обновление задачи, nil поля не меняются
type TodoPatch struct {
	TodoName    *string
	Description *string
	DueDate     *time.Time
	IsCompleted *bool
}

type EmailMessage struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html"`
}
