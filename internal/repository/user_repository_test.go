package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/college-admin-api/internal/models"
)

func newUserMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "email", "password_hash", "full_name", "role", "status", "college_id", "department_id", "last_login", "created_at", "updated_at"})
}

func TestUserRepositoryFindByEmail(t *testing.T) {
	db, mock, cleanup := newUserMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, password_hash, full_name, role, status, college_id, department_id, last_login, created_at, updated_at FROM users WHERE LOWER(email) = LOWER($1) LIMIT 1")).
		WithArgs("Admin@college.edu").
		WillReturnRows(userRows().AddRow("u1", "admin@college.edu", "hash", "Admin", "college_admin", "active", "c1", nil, nil, time.Now(), time.Now()))

	user, err := repo.FindByEmail(context.Background(), "Admin@college.edu")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, models.RoleCollegeAdmin, user.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryFindByEmailNotFound(t *testing.T) {
	db, mock, cleanup := newUserMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery("SELECT .+ FROM users WHERE LOWER").
		WithArgs("nobody@college.edu").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByEmail(context.Background(), "nobody@college.edu")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestUserRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newUserMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO users").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	user := &models.User{Email: "New@College.edu", FullName: "New User", Role: models.RoleStudent, Status: models.UserStatusActive, CollegeID: "c1"}
	err := repo.Create(context.Background(), user)
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "new@college.edu", user.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositorySetVerificationStatus(t *testing.T) {
	db, mock, cleanup := newUserMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery("UPDATE users SET status = .+ AND role = 'alumni' RETURNING").
		WithArgs("u1", "c1", models.UserStatusActive, sqlmock.AnyArg()).
		WillReturnRows(userRows().AddRow("u1", "alum@college.edu", "hash", "Alum", "alumni", "active", "c1", nil, nil, time.Now(), time.Now()))

	user, err := repo.SetVerificationStatus(context.Background(), "u1", "c1", models.UserStatusActive)
	require.NoError(t, err)
	assert.Equal(t, models.UserStatusActive, user.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositorySetVerificationStatusNotAlumni(t *testing.T) {
	db, mock, cleanup := newUserMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery("UPDATE users SET status = .+ AND role = 'alumni' RETURNING").
		WithArgs("u1", "c1", models.UserStatusActive, sqlmock.AnyArg()).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.SetVerificationStatus(context.Background(), "u1", "c1", models.UserStatusActive)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestUserRepositoryList(t *testing.T) {
	db, mock, cleanup := newUserMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	role := models.RoleTeacher
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, password_hash, full_name, role, status, college_id, department_id, last_login, created_at, updated_at FROM users WHERE 1=1 AND college_id = $1 AND role = $2 ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WithArgs("c1", role).
		WillReturnRows(userRows().AddRow("u1", "t@college.edu", "hash", "Teacher", "teacher", "active", "c1", nil, nil, time.Now(), time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE 1=1 AND college_id = $1 AND role = $2")).
		WithArgs("c1", role).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	users, total, err := repo.List(context.Background(), models.UserFilter{CollegeID: "c1", Role: &role})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryListRejectsUnknownSort(t *testing.T) {
	db, mock, cleanup := newUserMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WillReturnRows(userRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE 1=1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, _, err := repo.List(context.Background(), models.UserFilter{SortBy: "password_hash; DROP TABLE users"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
