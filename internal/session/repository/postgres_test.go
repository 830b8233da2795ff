package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mobitech-crm/backend/internal/session/domain"
)

var sessionCols = []string{"id", "user_id", "ip_address", "user_agent", "created_at", "expires_at"}

func newSessionTestFixture(t *testing.T) (*PostgresRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return NewPostgresRepository(mock), mock
}

func TestSessionRepository_Create(t *testing.T) {
	repo, mock := newSessionTestFixture(t)
	defer mock.Close()

	now := time.Now().UTC()
	s := &domain.Session{ID: "s1", UserID: "u1", IPAddress: "10.0.0.1", CreatedAt: now, ExpiresAt: now.Add(24 * time.Hour)}
	ip := "10.0.0.1"
	mock.ExpectExec("INSERT INTO sessions").
		WithArgs("s1", "u1", &ip, (*string)(nil), now, s.ExpiresAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), s))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_GetActive(t *testing.T) {
	repo, mock := newSessionTestFixture(t)
	defer mock.Close()

	now := time.Now().UTC()
	agent := "Mozilla/5.0"
	mock.ExpectQuery("SELECT .+ FROM sessions").
		WithArgs("s1", "u1", now).
		WillReturnRows(pgxmock.NewRows(sessionCols).
			AddRow("s1", "u1", (*string)(nil), &agent, now.Add(-time.Hour), now.Add(time.Hour)))

	got, err := repo.GetActive(context.Background(), "s1", "u1", now)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "s1", got.ID)
	assert.Empty(t, got.IPAddress)
	assert.Equal(t, agent, got.UserAgent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_GetActive_NotFound(t *testing.T) {
	repo, mock := newSessionTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM sessions").
		WithArgs("s1", "u1", pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)

	got, err := repo.GetActive(context.Background(), "s1", "u1", time.Now())
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_GetActive_DBError(t *testing.T) {
	repo, mock := newSessionTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM sessions").
		WithArgs("s1", "u1", pgxmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))

	_, err := repo.GetActive(context.Background(), "s1", "u1", time.Now())
	assert.Error(t, err)
}

func TestSessionRepository_DeleteByUser(t *testing.T) {
	repo, mock := newSessionTestFixture(t)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM sessions WHERE user_id = \\$1").
		WithArgs("u1").
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	n, err := repo.DeleteByUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_DeleteByID(t *testing.T) {
	repo, mock := newSessionTestFixture(t)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM sessions WHERE id = \\$1").
		WithArgs("missing").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	n, err := repo.DeleteByID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_List_FilteredByUser(t *testing.T) {
	repo, mock := newSessionTestFixture(t)
	defer mock.Close()

	now := time.Now().UTC()
	userID := "u1"
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM sessions").
		WithArgs(now, &userID).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(2)))
	mock.ExpectQuery("SELECT .+ FROM sessions .+ ORDER BY created_at DESC").
		WithArgs(now, &userID, 20, 0).
		WillReturnRows(pgxmock.NewRows(sessionCols).
			AddRow("s2", "u1", (*string)(nil), (*string)(nil), now.Add(-time.Minute), now.Add(time.Hour)).
			AddRow("s1", "u1", (*string)(nil), (*string)(nil), now.Add(-time.Hour), now.Add(time.Hour)))

	list, total, err := repo.List(context.Background(), ListFilter{UserID: "u1"}, now, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, list, 2)
	assert.Equal(t, "s2", list[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_List_AllUsers(t *testing.T) {
	repo, mock := newSessionTestFixture(t)
	defer mock.Close()

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM sessions").
		WithArgs(now, (*string)(nil)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(0)))
	mock.ExpectQuery("SELECT .+ FROM sessions").
		WithArgs(now, (*string)(nil), 10, 10).
		WillReturnRows(pgxmock.NewRows(sessionCols))

	list, total, err := repo.List(context.Background(), ListFilter{}, now, 10, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, list)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_DeleteExpired(t *testing.T) {
	repo, mock := newSessionTestFixture(t)
	defer mock.Close()

	cutoff := time.Now().UTC()
	mock.ExpectExec("DELETE FROM sessions WHERE expires_at < \\$1").
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 7))

	n, err := repo.DeleteExpired(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}
