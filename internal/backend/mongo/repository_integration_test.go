package mongo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"connectlist/contentservice/internal/domain"
)

// testMongoURI returns the MongoDB connection URI for integration tests.
// Set MONGO_TEST_URI to override.
func testMongoURI() string {
	if uri := os.Getenv("MONGO_TEST_URI"); uri != "" {
		return uri
	}
	return "mongodb://localhost:27017"
}

// setupTestRepo connects to a throwaway database. Skips when MongoDB is unreachable.
func setupTestRepo(t *testing.T) (*Repository, func()) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	uri := testMongoURI()
	client, err := Connect(ctx, uri, options.Client().SetConnectTimeout(2*time.Second).SetServerSelectionTimeout(2*time.Second))
	if err != nil {
		t.Skipf("MongoDB not available at %s: %v", uri, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		t.Skipf("MongoDB ping failed at %s: %v", uri, err)
	}

	dbName := fmt.Sprintf("contentsvc_test_%d", time.Now().UnixNano())
	repo := NewRepository(client, dbName)
	if err := repo.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		t.Fatalf("EnsureIndexes: %v", err)
	}

	cleanup := func() {
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = client.Database(dbName).Drop(ctx2)
		_ = client.Disconnect(ctx2)
	}
	return repo, cleanup
}

func TestIntegrationSearchAndAddListItem(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := repo.profiles.InsertMany(ctx, []any{
		profileDoc{ID: "u1", Username: "batfan", FullName: "Bruce W"},
		profileDoc{ID: "u2", Username: "reader", FullName: "Jane Batson"},
		profileDoc{ID: "u3", Username: "gamer"},
	}); err != nil {
		t.Fatalf("seed profiles: %v", err)
	}
	if _, err := repo.lists.InsertOne(ctx, listDoc{ID: "l1", Title: "Batman Marathon", OwnerID: "u1", CreatedAt: time.Now().Unix()}); err != nil {
		t.Fatalf("seed list: %v", err)
	}
	if err := repo.SeedCategories(ctx); err != nil {
		t.Fatalf("SeedCategories: %v", err)
	}
	if err := repo.SeedCategories(ctx); err != nil {
		t.Fatalf("SeedCategories is not idempotent: %v", err)
	}

	users, err := repo.SearchUsers(ctx, "BAT", 10)
	if err != nil || len(users) != 2 {
		t.Fatalf("expected 2 users, got %v (%v)", users, err)
	}
	lists, err := repo.SearchLists(ctx, "marathon", 10)
	if err != nil || len(lists) != 1 || lists[0].ID != "l1" {
		t.Fatalf("expected the marathon list, got %v (%v)", lists, err)
	}

	categoryID, err := repo.CategoryIDByName(ctx, "movie")
	if err != nil || categoryID == "" {
		t.Fatalf("CategoryIDByName: %q %v", categoryID, err)
	}
	if _, err := repo.CategoryIDByName(ctx, "anime"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	item := domain.ListItem{ListID: "l1", CategoryID: categoryID, ExternalID: "268", Title: "Batman"}
	if _, err := repo.AddListItem(ctx, item); err != nil {
		t.Fatalf("AddListItem: %v", err)
	}
	if _, err := repo.AddListItem(ctx, item); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if _, err := repo.AddListItem(ctx, domain.ListItem{ListID: "missing", ExternalID: "1"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown list, got %v", err)
	}

	var list listDoc
	if err := repo.lists.FindOne(ctx, bson.M{"_id": "l1"}).Decode(&list); err != nil {
		t.Fatalf("reload list: %v", err)
	}
	if list.ItemCount != 1 {
		t.Fatalf("expected item count 1, got %d", list.ItemCount)
	}
}
