package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/roller/internal/models"
)

const userColumns = `id, sequence, email, name, employee_type, password_hash, github_id, github_username, created_at, updated_at, deleted_at`

// UserRepository implements [models.Repository] for [models.User] persistence.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new [UserRepository] with the given database connection
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user into the database with generated ID and sequence
func (r *UserRepository) Create(user *models.User) error {
	if err := prepare(r.db, "users", user); err != nil {
		return err
	}

	query := `INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)`
	_, err := r.db.Exec(query,
		user.ID(), user.Sequence(), user.Email, user.Name, user.EmployeeType, user.PasswordHash,
		user.GitHubID, user.GitHubUsername, user.CreatedAt(), user.UpdatedAt(),
	)
	if err != nil {
		return wrapWrite(err, "insert", "user")
	}
	return nil
}

// Get retrieves a user by ID, excluding soft-deleted users
func (r *UserRepository) Get(id string) (*models.User, error) {
	return r.getBy("id", id)
}

// GetByEmail retrieves a user by (case-insensitive) email address.
func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	return r.getBy("email", models.NewUser(email, "", "").Email)
}

// GetByGitHubID retrieves the user linked to a GitHub account.
func (r *UserRepository) GetByGitHubID(githubID int64) (*models.User, error) {
	if githubID == 0 {
		return nil, wrapGet(sql.ErrNoRows, "user", "github:0")
	}
	return r.getBy("github_id", githubID)
}

func (r *UserRepository) getBy(column string, value any) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = ? AND deleted_at IS NULL`

	user, err := scanUser(r.db.QueryRow(query, value))
	if err != nil {
		return nil, wrapGet(err, "user", fmt.Sprint(value))
	}
	return user, nil
}

// Update modifies an existing user in the database
func (r *UserRepository) Update(user *models.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	user.SetUpdatedAt(now)

	query := `
		UPDATE users
		SET email = ?, name = ?, employee_type = ?, password_hash = ?, github_id = ?, github_username = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		user.Email, user.Name, user.EmployeeType, user.PasswordHash, user.GitHubID, user.GitHubUsername, now, user.ID(),
	)
	if err != nil {
		return wrapWrite(err, "update", "user")
	}
	return expectRow(result, "user", user.ID())
}

// Delete soft-deletes a user by ID
func (r *UserRepository) Delete(id string) error {
	return softDelete(r.db, "users", "user", id)
}

// List retrieves all users matching the given criteria, excluding soft-deleted users.
//
// Supported criteria: "email", "employee_type".
func (r *UserRepository) List(criteria map[string]any) ([]*models.User, error) {
	f := newFilter()
	f.eqString(criteria, "email", "email")
	f.eqString(criteria, "employee_type", "employee_type")

	rows, err := r.db.Query(`SELECT `+userColumns+` FROM users`+f.sql()+` ORDER BY sequence ASC`, f.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	return scanAll(rows, "user", scanUser)
}

func scanUser(s rowScanner) (*models.User, error) {
	var (
		rec  record
		user models.User
	)

	err := s.Scan(
		&rec.id, &rec.sequence, &user.Email, &user.Name, &user.EmployeeType, &user.PasswordHash,
		&user.GitHubID, &user.GitHubUsername, &rec.createdAt, &rec.updatedAt, &rec.deletedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.apply(&user)
	return &user, nil
}
