package main

import (
	"bufio"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/desertthunder/roller/internal/models"
	"github.com/desertthunder/roller/internal/repositories"
	"github.com/desertthunder/roller/internal/shared"
	"github.com/urfave/cli/v3"
)

// userRow is the exported view of a user; it never carries the password hash.
type userRow struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	GitHub string `json:"github,omitempty"`
}

func parseRole(role string) (models.EmployeeType, error) {
	for _, t := range models.EmployeeTypes {
		if strings.EqualFold(string(t), role) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: role must be one of %s", shared.ErrInvalidArgument, roleNames())
}

// UsersCreate creates an account. The password is read from stdin when --password is empty.
func (r *Runner) UsersCreate(ctx context.Context, cmd *cli.Command) error {
	role, err := parseRole(cmd.String("role"))
	if err != nil {
		return err
	}

	password := cmd.String("password")
	if password == "" {
		r.writePlain("Password: ")
		line, err := bufio.NewReader(r.input).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("%w: password", shared.ErrMissingArgument)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	db, err := r.database()
	if err != nil {
		return err
	}

	u := models.NewUser(cmd.String("email"), cmd.String("name"), role)
	if err := u.SetPassword(password); err != nil {
		return err
	}
	if err := repositories.NewUserRepository(db).Create(u); err != nil {
		return fmt.Errorf("failed to create user %s: %w", u.Email, err)
	}

	r.logger.Info("user created", "id", u.ID(), "email", u.Email, "role", u.EmployeeType)
	return r.writePlain("✓ Created %s <%s> (%s)\n", u.Name, u.Email, u.EmployeeType)
}

// UsersList prints every user.
func (r *Runner) UsersList(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	users, err := repositories.NewUserRepository(db).List(nil)
	if err != nil {
		return err
	}

	rows := make([]userRow, len(users))
	for i, u := range users {
		rows[i] = userRow{ID: u.ID(), Email: u.Email, Name: u.Name, Role: string(u.EmployeeType), GitHub: u.GitHubUsername}
	}

	if cmd.Bool("json") {
		return r.writeJSON(rows, true)
	}

	r.writePlainHeader(fmt.Sprintf("Users (%d)", len(rows)))
	for _, row := range rows {
		r.writePlain("%-9s %-30s %s\n", row.Role, row.Email, row.Name)
	}
	return nil
}

// UsersPromote changes the role of the user with --email.
func (r *Runner) UsersPromote(ctx context.Context, cmd *cli.Command) error {
	role, err := parseRole(cmd.String("role"))
	if err != nil {
		return err
	}

	db, err := r.database()
	if err != nil {
		return err
	}
	users := repositories.NewUserRepository(db)

	u, err := users.GetByEmail(cmd.String("email"))
	if err != nil {
		return fmt.Errorf("failed to find user %s: %w", cmd.String("email"), err)
	}
	if u.EmployeeType == role {
		return r.writePlain("%s is already %s\n", u.Email, role)
	}

	from := u.EmployeeType
	u.EmployeeType = role
	if err := users.Update(u); err != nil {
		return err
	}

	r.logger.Info("user role changed", "email", u.Email, "from", from, "to", role)
	verb := "Promoted"
	if slices.Index(models.EmployeeTypes, role) < slices.Index(models.EmployeeTypes, from) {
		verb = "Demoted"
	}
	return r.writePlain("✓ %s %s from %s to %s\n", verb, u.Email, from, role)
}
