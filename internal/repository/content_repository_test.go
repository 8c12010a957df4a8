package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/community-api/internal/models"
)

func newContentMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var contentTestColumns = []string{
	"id", "content_type", "title", "description", "body", "tags", "category_id", "family_id", "created_by", "visibility", "view_count",
	"note_type", "is_pinned", "allow_comments", "allow_editing", "last_edited_by", "last_edited_at",
	"resource_type", "url", "target_audience", "external_meta", "status", "approved_by", "approved_at", "featured_by", "featured_at", "rating", "rating_count",
	"has_assignments", "has_curation", "has_ratings", "has_sharing", "is_deleted", "deleted_at", "created_at", "updated_at",
}

func addNoteRow(rows *sqlmock.Rows, id string) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(
		id, "NOTE", "Care plan", nil, "Body", "{care,plan}", nil, nil, "user-1", "PRIVATE", 0,
		"TEXT", false, true, false, nil, nil,
		nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, 0,
		false, false, false, false, false, nil, now, now,
	)
}

func TestContentRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newContentMock(t)
	defer cleanup()
	repo := NewContentRepository(db)

	rows := sqlmock.NewRows(contentTestColumns)
	addNoteRow(rows, "c1")
	mock.ExpectQuery(`SELECT c\.id, .+ FROM content c WHERE c\.id = \$1 AND c\.is_deleted = FALSE`).
		WithArgs("c1").
		WillReturnRows(rows)

	content, err := repo.FindByID(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", content.ID)
	assert.Equal(t, models.ContentTypeNote, content.ContentType)
	assert.Equal(t, []string{"care", "plan"}, []string(content.Tags))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContentRepositoryListAdmin(t *testing.T) {
	db, mock, cleanup := newContentMock(t)
	defer cleanup()
	repo := NewContentRepository(db)

	rows := sqlmock.NewRows(append(append([]string{}, contentTestColumns...), "creator_name", "family_name", "category_name"))
	now := time.Now()
	rows.AddRow(
		"c1", "NOTE", "Care plan", nil, "Body", "{care,plan}", nil, nil, "user-1", "PRIVATE", 0,
		"TEXT", false, true, false, nil, nil,
		nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, 0,
		false, false, false, false, false, nil, now, now,
		"Alice", nil, nil,
	)
	mock.ExpectQuery(`SELECT c\.id, .+ FROM content c\s+LEFT JOIN users u .+ WHERE c\.is_deleted = FALSE AND c\.tags && \$1 ORDER BY c\.created_at DESC NULLS LAST LIMIT 20 OFFSET 0`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(rows)
	mock.ExpectQuery(`SELECT COUNT\(c\.id\) FROM content c`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	items, total, err := repo.List(context.Background(), models.ContentFilter{Tags: []string{"care"}}, models.VisibilityGate{Admin: true})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContentRepositoryListNonAdminGate(t *testing.T) {
	db, mock, cleanup := newContentMock(t)
	defer cleanup()
	repo := NewContentRepository(db)

	famID := "fam-1"
	rows := sqlmock.NewRows(append(append([]string{}, contentTestColumns...), "creator_name", "family_name", "category_name"))
	mock.ExpectQuery(`c\.created_by = \$1 OR c\.visibility = 'PUBLIC'.+c\.visibility = 'SHARED'.+c\.visibility = 'FAMILY' AND c\.family_id = \$2`).
		WithArgs("user-1", famID).
		WillReturnRows(rows)
	mock.ExpectQuery(`SELECT COUNT\(c\.id\) FROM content c`).
		WithArgs("user-1", famID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	items, total, err := repo.List(context.Background(), models.ContentFilter{}, models.VisibilityGate{ActorID: "user-1", FamilyID: &famID})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContentRepositoryListClampsLimit(t *testing.T) {
	db, mock, cleanup := newContentMock(t)
	defer cleanup()
	repo := NewContentRepository(db)

	rows := sqlmock.NewRows(append(append([]string{}, contentTestColumns...), "creator_name", "family_name", "category_name"))
	mock.ExpectQuery(`LIMIT 100 OFFSET 0`).WillReturnRows(rows)
	mock.ExpectQuery(`SELECT COUNT\(c\.id\) FROM content c`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, _, err := repo.List(context.Background(), models.ContentFilter{Limit: 500}, models.VisibilityGate{Admin: true})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newContentMock(t)
	defer cleanup()
	repo := NewContentRepository(db)

	mock.ExpectExec("INSERT INTO content").
		WillReturnResult(sqlmock.NewResult(1, 1))

	noteType := models.NoteTypeText
	content := &models.Content{
		ContentType: models.ContentTypeNote,
		Title:       "Care plan",
		CreatedBy:   "user-1",
		Visibility:  models.VisibilityPrivate,
		NoteType:    &noteType,
	}
	err := repo.Create(context.Background(), content)
	require.NoError(t, err)
	assert.NotEmpty(t, content.ID)
	assert.False(t, content.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContentRepositorySoftDelete(t *testing.T) {
	db, mock, cleanup := newContentMock(t)
	defer cleanup()
	repo := NewContentRepository(db)

	mock.ExpectExec(`UPDATE content SET is_deleted = TRUE, deleted_at = \$2, updated_at = \$2 WHERE id = \$1 AND is_deleted = FALSE`).
		WithArgs("c1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SoftDelete(context.Background(), "c1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContentRepositoryIncrementViewCount(t *testing.T) {
	db, mock, cleanup := newContentMock(t)
	defer cleanup()
	repo := NewContentRepository(db)

	mock.ExpectExec(`UPDATE content SET view_count = view_count \+ 1 WHERE id = \$1 AND is_deleted = FALSE`).
		WithArgs("c1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.IncrementViewCount(context.Background(), "c1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContentRepositoryUpdateRatingAggregate(t *testing.T) {
	db, mock, cleanup := newContentMock(t)
	defer cleanup()
	repo := NewContentRepository(db)

	mean := 4.0
	mock.ExpectExec(`UPDATE content SET rating = \$2, rating_count = \$3, has_ratings = \$4, updated_at = \$5 WHERE id = \$1 AND is_deleted = FALSE`).
		WithArgs("c1", mean, 2, true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateRatingAggregate(context.Background(), "c1", &mean, 2))
	assert.NoError(t, mock.ExpectationsWereMet())
}
