package models

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// EmployeeType is a user's role. Roles are ordered: each includes the permissions of the ones before it.
type EmployeeType string

const (
	Reporter EmployeeType = "Reporter"
	Worker   EmployeeType = "Worker"
	Reviewer EmployeeType = "Reviewer"
	Admin    EmployeeType = "Admin"
)

// EmployeeTypes lists the valid roles in ascending order.
var EmployeeTypes = []EmployeeType{Reporter, Worker, Reviewer, Admin}

func (e EmployeeType) rank() int {
	for i, t := range EmployeeTypes {
		if t == e {
			return i
		}
	}
	return -1
}

// AtLeast reports whether e includes the permissions of other.
func (e EmployeeType) AtLeast(other EmployeeType) bool {
	return e.rank() >= 0 && e.rank() >= other.rank()
}

// User is a person who signs in to the tracker.
type User struct {
	Record
	Email          string       `validate:"required,email,max=255"`
	Name           string       `validate:"required,max=100"`
	EmployeeType   EmployeeType `validate:"required,oneof=Reporter Worker Reviewer Admin"`
	PasswordHash   string
	GitHubID       int64 `validate:"gte=0"`
	GitHubUsername string
}

// NewUser creates an unsaved user. Emails are stored lowercased.
func NewUser(email, name string, employeeType EmployeeType) *User {
	return &User{
		Record:       newRecord(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		Name:         strings.TrimSpace(name),
		EmployeeType: employeeType,
	}
}

func (u *User) Validate() error { return Validate(u) }

func (u *User) IsAdmin() bool    { return u != nil && u.EmployeeType == Admin }
func (u *User) IsReviewer() bool { return u != nil && u.EmployeeType.AtLeast(Reviewer) }
func (u *User) IsEmployee() bool { return u != nil && u.EmployeeType.AtLeast(Worker) }

// SetPassword stores a bcrypt hash of password.
func (u *User) SetPassword(password string) error {
	if len(password) < 8 {
		return &ValidationError{Fields: map[string]string{"Password": "is too short (minimum is 8 characters)"}}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword reports whether password matches the stored hash.
func (u *User) CheckPassword(password string) bool {
	if u == nil || u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}
