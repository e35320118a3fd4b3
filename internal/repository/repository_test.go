package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dkoval/market_api/internal/models"
)

func initTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Product{}); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	return db
}

func seedUsers(t *testing.T, db *gorm.DB, n int) []models.User {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	users := make([]models.User, n)
	for i := 0; i < n; i++ {
		users[i] = models.User{
			Email:        fmt.Sprintf("user%d@x.com", i),
			PasswordHash: "hash",
			FirstName:    "First",
			LastName:     "Lastname",
			CreatedAt:    base.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, db.Create(&users[i]).Error)
	}
	return users
}

func TestUserCreateAndFind(t *testing.T) {
	db := initTestDB(t)
	repo := &UserRepo{DB: db}
	ctx := context.Background()

	user := models.User{Email: "a@x.com", PasswordHash: "hash", FirstName: "Ann", LastName: "Smith"}
	require.NoError(t, repo.Create(ctx, &user))
	require.NotZero(t, user.ID)

	got, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "a@x.com", got.Email)

	got, err = repo.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)
}

func TestUserNotFound(t *testing.T) {
	db := initTestDB(t)
	repo := &UserRepo{DB: db}
	ctx := context.Background()

	_, err := repo.FindByID(ctx, 999)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = repo.FindByEmail(ctx, "missing@x.com")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUserFindPage(t *testing.T) {
	db := initTestDB(t)
	repo := &UserRepo{DB: db}
	ctx := context.Background()

	seedUsers(t, db, 5)

	page, total, err := repo.FindPage(ctx, 0, 2)
	require.NoError(t, err)
	require.Equal(t, int64(5), total)
	require.Len(t, page, 2)
	// newest first
	require.Equal(t, "user4@x.com", page[0].Email)
	require.Equal(t, "user3@x.com", page[1].Email)

	page, total, err = repo.FindPage(ctx, 4, 2)
	require.NoError(t, err)
	require.Equal(t, int64(5), total)
	require.Len(t, page, 1)
	require.Equal(t, "user0@x.com", page[0].Email)

	page, total, err = repo.FindPage(ctx, 10, 2)
	require.NoError(t, err)
	require.Equal(t, int64(5), total)
	require.Len(t, page, 0)
}

func TestUserUpdateAndDelete(t *testing.T) {
	db := initTestDB(t)
	repo := &UserRepo{DB: db}
	ctx := context.Background()

	user := models.User{Email: "a@x.com", PasswordHash: "hash", FirstName: "Ann", LastName: "Smith"}
	require.NoError(t, repo.Create(ctx, &user))

	user.FirstName = "Anna"
	require.NoError(t, repo.Update(ctx, &user))

	got, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "Anna", got.FirstName)

	require.NoError(t, repo.Delete(ctx, user.ID))
	_, err = repo.FindByID(ctx, user.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestProductCRUD(t *testing.T) {
	db := initTestDB(t)
	repo := &ProductRepo{DB: db}
	ctx := context.Background()

	product := models.Product{ProductCode: "P-1", Title: "Lamp", Price: 19.99, Image: "images/a.png", UserID: 1}
	require.NoError(t, repo.Create(ctx, &product))
	require.NotZero(t, product.ID)

	got, err := repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	require.Equal(t, "Lamp", got.Title)

	got.Price = 24.99
	require.NoError(t, repo.Update(ctx, got))

	got, err = repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	require.Equal(t, 24.99, got.Price)

	require.NoError(t, repo.Delete(ctx, product.ID))
	_, err = repo.FindByID(ctx, product.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestProductFindPage(t *testing.T) {
	db := initTestDB(t)
	repo := &ProductRepo{DB: db}
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		p := models.Product{
			ProductCode: fmt.Sprintf("P-%d", i),
			Title:       "Item",
			Price:       float64(i),
			Image:       "images/a.png",
			UserID:      1,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.Create(&p).Error)
	}

	page, total, err := repo.FindPage(ctx, 0, 2)
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, page, 2)
	require.Equal(t, "P-2", page[0].ProductCode)
}
