package service

import (
	"context"
	"mime/multipart"
	"os"
	"testing"

	"inkwell/internal/database"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return db
}

func setupPostService(t *testing.T) (*PostService, *gorm.DB, string) {
	t.Helper()
	db := setupServiceTestDB(t)
	dir := t.TempDir()
	svc := NewPostService(
		repository.NewPostRepository(db),
		repository.NewImageRepository(db),
		NewAttachmentService(dir),
	)
	return svc, db, dir
}

func createTestUser(t *testing.T, db *gorm.DB, name, email string) *models.User {
	t.Helper()
	user := &models.User{Name: name, Email: email, Password: "hashed", Role: models.RoleUser}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func dirEntries(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return len(entries)
}

func TestPostService_CreatePost(t *testing.T) {
	svc, db, dir := setupPostService(t)
	ctx := context.Background()
	author := createTestUser(t, db, "Author", "author@example.com")

	post, err := svc.CreatePost(ctx, CreatePostInput{
		UserID:  author.ID,
		Title:   "Hello, World!",
		Content: "First post body.",
		Files: []*multipart.FileHeader{
			testutil.PNGFileHeader(t, "one.png"),
			testutil.PNGFileHeader(t, "two.png"),
		},
	})
	require.NoError(t, err)
	require.NotNil(t, post)

	assert.Equal(t, "hello-world", post.Slug)
	assert.Equal(t, author.ID, post.UserID)
	assert.Len(t, post.Images, 2)
	assert.Equal(t, 2, dirEntries(t, dir))

	for _, img := range post.Images {
		_, statErr := os.Stat(img.FilePath)
		assert.NoError(t, statErr)
	}
}

func TestPostService_CreatePost_BadFileWritesNothing(t *testing.T) {
	svc, db, dir := setupPostService(t)
	ctx := context.Background()
	author := createTestUser(t, db, "Author", "author@example.com")

	_, err := svc.CreatePost(ctx, CreatePostInput{
		UserID:  author.ID,
		Title:   "Mixed batch",
		Content: "Body",
		Files: []*multipart.FileHeader{
			testutil.PNGFileHeader(t, "good.png"),
			testutil.FileHeader(t, "notes.txt", "text/plain", []byte("nope")),
		},
	})
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)

	// One bad file rejects the whole request before any write.
	assert.Equal(t, 0, dirEntries(t, dir))

	var count int64
	db.Model(&models.Post{}).Count(&count)
	assert.Zero(t, count)
}

func TestPostService_CreatePost_MissingFields(t *testing.T) {
	svc, db, _ := setupPostService(t)
	ctx := context.Background()
	author := createTestUser(t, db, "Author", "author@example.com")

	_, err := svc.CreatePost(ctx, CreatePostInput{UserID: author.ID, Title: "", Content: "Body"})
	assert.Error(t, err)

	_, err = svc.CreatePost(ctx, CreatePostInput{UserID: author.ID, Title: "Title", Content: ""})
	assert.Error(t, err)
}

func TestPostService_ListPosts_NewestFirst(t *testing.T) {
	svc, db, _ := setupPostService(t)
	ctx := context.Background()
	author := createTestUser(t, db, "Author", "author@example.com")

	for _, title := range []string{"First", "Second", "Third"} {
		_, err := svc.CreatePost(ctx, CreatePostInput{UserID: author.ID, Title: title, Content: "Body"})
		require.NoError(t, err)
	}

	posts, err := svc.ListPosts(ctx, ListPostsInput{})
	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Equal(t, "Third", posts[0].Title)
	assert.Equal(t, "First", posts[2].Title)
}

func TestPostService_GetPostBySlug(t *testing.T) {
	svc, db, _ := setupPostService(t)
	ctx := context.Background()
	author := createTestUser(t, db, "Author", "author@example.com")

	created, err := svc.CreatePost(ctx, CreatePostInput{UserID: author.ID, Title: "A Slugged Post", Content: "Body"})
	require.NoError(t, err)

	post, err := svc.GetPostBySlug(ctx, "a-slugged-post")
	require.NoError(t, err)
	assert.Equal(t, created.ID, post.ID)
	assert.Equal(t, "Author", post.User.Name)

	_, err = svc.GetPostBySlug(ctx, "no-such-slug")
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestPostService_UpdatePost(t *testing.T) {
	svc, db, dir := setupPostService(t)
	ctx := context.Background()
	author := createTestUser(t, db, "Author", "author@example.com")

	created, err := svc.CreatePost(ctx, CreatePostInput{
		UserID:  author.ID,
		Title:   "Original Title",
		Content: "Body",
		Files:   []*multipart.FileHeader{testutil.PNGFileHeader(t, "keep.png"), testutil.PNGFileHeader(t, "drop.png")},
	})
	require.NoError(t, err)
	require.Len(t, created.Images, 2)

	dropID := created.Images[1].ID
	dropPath := created.Images[1].FilePath
	newTitle := "Updated Title"

	updated, err := svc.UpdatePost(ctx, UpdatePostInput{
		UserID:         author.ID,
		PostID:         created.ID,
		Title:          &newTitle,
		DeleteImageIDs: []uint{dropID},
		NewFiles:       []*multipart.FileHeader{testutil.PNGFileHeader(t, "added.png")},
	})
	require.NoError(t, err)

	assert.Equal(t, "Updated Title", updated.Title)
	assert.Equal(t, "updated-title", updated.Slug)
	assert.Equal(t, "Body", updated.Content)
	assert.Len(t, updated.Images, 2)

	_, statErr := os.Stat(dropPath)
	assert.True(t, os.IsNotExist(statErr), "deleted image's file must be removed")
	assert.Equal(t, 2, dirEntries(t, dir))
}

func TestPostService_UpdatePost_SkipsForeignImageIDs(t *testing.T) {
	svc, db, _ := setupPostService(t)
	ctx := context.Background()
	author := createTestUser(t, db, "Author", "author@example.com")
	other := createTestUser(t, db, "Other", "other@example.com")

	mine, err := svc.CreatePost(ctx, CreatePostInput{
		UserID:  author.ID,
		Title:   "Mine",
		Content: "Body",
		Files:   []*multipart.FileHeader{testutil.PNGFileHeader(t, "mine.png")},
	})
	require.NoError(t, err)

	theirs, err := svc.CreatePost(ctx, CreatePostInput{
		UserID:  other.ID,
		Title:   "Theirs",
		Content: "Body",
		Files:   []*multipart.FileHeader{testutil.PNGFileHeader(t, "theirs.png")},
	})
	require.NoError(t, err)

	// Asking to delete another post's image is silently ignored.
	updated, err := svc.UpdatePost(ctx, UpdatePostInput{
		UserID:         author.ID,
		PostID:         mine.ID,
		DeleteImageIDs: []uint{theirs.Images[0].ID},
	})
	require.NoError(t, err)
	assert.Len(t, updated.Images, 1)

	reloaded, err := svc.GetPostBySlug(ctx, "theirs")
	require.NoError(t, err)
	assert.Len(t, reloaded.Images, 1)
}

func TestPostService_UpdatePost_OwnerOnly(t *testing.T) {
	svc, db, _ := setupPostService(t)
	ctx := context.Background()
	author := createTestUser(t, db, "Author", "author@example.com")
	intruder := createTestUser(t, db, "Intruder", "intruder@example.com")

	created, err := svc.CreatePost(ctx, CreatePostInput{UserID: author.ID, Title: "Private", Content: "Body"})
	require.NoError(t, err)

	newTitle := "Hijacked"
	_, err = svc.UpdatePost(ctx, UpdatePostInput{UserID: intruder.ID, PostID: created.ID, Title: &newTitle})

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "FORBIDDEN", appErr.Code)
}

func TestPostService_DeletePost(t *testing.T) {
	svc, db, dir := setupPostService(t)
	ctx := context.Background()
	author := createTestUser(t, db, "Author", "author@example.com")

	created, err := svc.CreatePost(ctx, CreatePostInput{
		UserID:  author.ID,
		Title:   "Doomed",
		Content: "Body",
		Files:   []*multipart.FileHeader{testutil.PNGFileHeader(t, "gone.png")},
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeletePost(ctx, author.ID, created.ID))

	assert.Equal(t, 0, dirEntries(t, dir))

	_, err = svc.GetPostBySlug(ctx, "doomed")
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "NOT_FOUND", appErr.Code)

	var imageCount int64
	db.Model(&models.PostImage{}).Count(&imageCount)
	assert.Zero(t, imageCount)
}

func TestPostService_DeletePost_OwnerOnly(t *testing.T) {
	svc, db, _ := setupPostService(t)
	ctx := context.Background()
	author := createTestUser(t, db, "Author", "author@example.com")
	intruder := createTestUser(t, db, "Intruder", "intruder@example.com")

	created, err := svc.CreatePost(ctx, CreatePostInput{UserID: author.ID, Title: "Keep Out", Content: "Body"})
	require.NoError(t, err)

	err = svc.DeletePost(ctx, intruder.ID, created.ID)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "FORBIDDEN", appErr.Code)
}
