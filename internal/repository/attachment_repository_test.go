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

func newAttachmentMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAttachmentRepositoryAttachDocument(t *testing.T) {
	db, mock, cleanup := newAttachmentMock(t)
	defer cleanup()
	repo := NewAttachmentRepository(db)

	mock.ExpectExec("INSERT INTO content_documents").
		WillReturnResult(sqlmock.NewResult(1, 1))

	doc := &models.ContentDocument{ContentID: "c1", DocumentID: "d1", AttachedBy: "user-1"}
	require.NoError(t, repo.AttachDocument(context.Background(), doc))
	assert.NotEmpty(t, doc.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachmentRepositoryDetachDocument(t *testing.T) {
	db, mock, cleanup := newAttachmentMock(t)
	defer cleanup()
	repo := NewAttachmentRepository(db)

	mock.ExpectExec(`DELETE FROM content_documents WHERE content_id = \$1 AND document_id = \$2`).
		WithArgs("c1", "d1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	affected, err := repo.DetachDocument(context.Background(), "c1", "d1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachmentRepositoryFindShareMissing(t *testing.T) {
	db, mock, cleanup := newAttachmentMock(t)
	defer cleanup()
	repo := NewAttachmentRepository(db)

	mock.ExpectQuery(`SELECT id, content_id, user_id, .+ FROM content_shares WHERE content_id = \$1 AND user_id = \$2`).
		WithArgs("c1", "user-9").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	share, err := repo.FindShare(context.Background(), "c1", "user-9")
	require.NoError(t, err)
	assert.Nil(t, share)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachmentRepositoryFindShare(t *testing.T) {
	db, mock, cleanup := newAttachmentMock(t)
	defer cleanup()
	repo := NewAttachmentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "content_id", "user_id", "shared_by", "can_edit", "can_comment", "can_share", "created_at"}).
		AddRow("s1", "c1", "user-2", "user-1", false, true, false, time.Now())
	mock.ExpectQuery(`SELECT id, content_id, user_id, .+ FROM content_shares WHERE content_id = \$1 AND user_id = \$2`).
		WithArgs("c1", "user-2").
		WillReturnRows(rows)

	share, err := repo.FindShare(context.Background(), "c1", "user-2")
	require.NoError(t, err)
	require.NotNil(t, share)
	assert.True(t, share.CanComment)
	assert.False(t, share.CanEdit)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachmentRepositoryCreateShare(t *testing.T) {
	db, mock, cleanup := newAttachmentMock(t)
	defer cleanup()
	repo := NewAttachmentRepository(db)

	mock.ExpectExec(`INSERT INTO content_shares .+ ON CONFLICT \(content_id, user_id\) DO UPDATE`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	share := &models.ContentShare{ContentID: "c1", UserID: "user-2", SharedBy: "user-1", CanComment: true}
	require.NoError(t, repo.CreateShare(context.Background(), share))
	assert.NotEmpty(t, share.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
