package mongo

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"connectlist/contentservice/internal/domain"
)

const (
	profilesCollection   = "profiles"
	listsCollection      = "lists"
	listItemsCollection  = "list_items"
	categoriesCollection = "categories"
	maxSearchLimit       = 50
)

// Repository is the backend side of the content service: user and list
// search for aggregated results, and list item persistence.
type Repository struct {
	profiles   *mongo.Collection
	lists      *mongo.Collection
	listItems  *mongo.Collection
	categories *mongo.Collection
}

type profileDoc struct {
	ID        string `bson:"_id"`
	Username  string `bson:"username"`
	FullName  string `bson:"fullName,omitempty"`
	AvatarURL string `bson:"avatarUrl,omitempty"`
}

type listDoc struct {
	ID          string `bson:"_id"`
	Title       string `bson:"title"`
	Description string `bson:"description,omitempty"`
	OwnerID     string `bson:"ownerId"`
	CategoryID  string `bson:"categoryId,omitempty"`
	ItemCount   int    `bson:"itemCount"`
	CreatedAt   int64  `bson:"createdAt"`
}

type listItemDoc struct {
	ID           string `bson:"_id"`
	ListID       string `bson:"listId"`
	CategoryID   string `bson:"categoryId"`
	ExternalID   string `bson:"externalId"`
	Title        string `bson:"title"`
	Description  string `bson:"description"`
	ImageURL     string `bson:"imageUrl"`
	ExternalData bson.M `bson:"externalData,omitempty"`
	CreatedAt    int64  `bson:"createdAt"`
}

type categoryDoc struct {
	ID    string `bson:"_id"`
	Name  string `bson:"name"`
	Label string `bson:"label"`
}

func NewRepository(client *mongo.Client, dbName string) *Repository {
	db := client.Database(dbName)
	return &Repository{
		profiles:   db.Collection(profilesCollection),
		lists:      db.Collection(listsCollection),
		listItems:  db.Collection(listItemsCollection),
		categories: db.Collection(categoriesCollection),
	}
}

func Connect(ctx context.Context, uri string, extra ...*options.ClientOptions) (*mongo.Client, error) {
	opts := append([]*options.ClientOptions{options.Client().ApplyURI(uri)}, extra...)
	client, err := mongo.Connect(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (r *Repository) EnsureIndexes(ctx context.Context) error {
	if r == nil {
		return nil
	}
	if _, err := r.profiles.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}},
		{Keys: bson.D{{Key: "fullName", Value: 1}}},
	}); err != nil {
		return err
	}
	if _, err := r.lists.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "title", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	}); err != nil {
		return err
	}
	if _, err := r.listItems.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "listId", Value: 1}, {Key: "categoryId", Value: 1}, {Key: "externalId", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return err
	}
	_, err := r.categories.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// SeedCategories inserts any missing category rows; existing ids are kept.
func (r *Repository) SeedCategories(ctx context.Context) error {
	for _, category := range domain.Categories {
		_, err := r.categories.UpdateOne(
			ctx,
			bson.M{"name": string(category)},
			bson.M{
				"$setOnInsert": bson.M{"_id": uuid.NewString()},
				"$set":         bson.M{"label": category.Label()},
			},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) SearchUsers(ctx context.Context, query string, limit int) ([]domain.UserResult, error) {
	pattern := containsPattern(query)
	if pattern == nil {
		return []domain.UserResult{}, nil
	}
	filter := bson.M{"$or": bson.A{
		bson.M{"username": pattern},
		bson.M{"fullName": pattern},
	}}
	opts := options.Find().
		SetSort(bson.D{{Key: "username", Value: 1}}).
		SetLimit(clampLimit(limit))

	cursor, err := r.profiles.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []profileDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	users := make([]domain.UserResult, 0, len(docs))
	for _, doc := range docs {
		users = append(users, fromProfileDoc(doc))
	}
	return users, nil
}

func (r *Repository) SearchLists(ctx context.Context, query string, limit int) ([]domain.ListResult, error) {
	pattern := containsPattern(query)
	if pattern == nil {
		return []domain.ListResult{}, nil
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(clampLimit(limit))

	cursor, err := r.lists.Find(ctx, bson.M{"title": pattern}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []listDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	lists := make([]domain.ListResult, 0, len(docs))
	for _, doc := range docs {
		lists = append(lists, fromListDoc(doc))
	}
	return lists, nil
}

func (r *Repository) CategoryIDByName(ctx context.Context, name string) (string, error) {
	var doc categoryDoc
	err := r.categories.FindOne(ctx, bson.M{"name": strings.ToLower(strings.TrimSpace(name))}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", domain.ErrNotFound
		}
		return "", err
	}
	return doc.ID, nil
}

// AddListItem stores the item and bumps the parent list's item count. The
// same external item can be added to a list only once.
func (r *Repository) AddListItem(ctx context.Context, item domain.ListItem) (domain.ListItem, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	res, err := r.lists.UpdateOne(ctx, bson.M{"_id": item.ListID}, bson.M{"$inc": bson.M{"itemCount": 1}})
	if err != nil {
		return domain.ListItem{}, err
	}
	if res.MatchedCount == 0 {
		return domain.ListItem{}, domain.ErrNotFound
	}

	if _, err := r.listItems.InsertOne(ctx, toListItemDoc(item)); err != nil {
		_, _ = r.lists.UpdateOne(ctx, bson.M{"_id": item.ListID}, bson.M{"$inc": bson.M{"itemCount": -1}})
		if mongo.IsDuplicateKeyError(err) {
			return domain.ListItem{}, domain.ErrAlreadyExists
		}
		return domain.ListItem{}, err
	}
	return item, nil
}

func containsPattern(query string) bson.M {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	return bson.M{
		"$regex":   regexp.QuoteMeta(query),
		"$options": "i",
	}
}

func clampLimit(limit int) int64 {
	if limit <= 0 || limit > maxSearchLimit {
		return maxSearchLimit
	}
	return int64(limit)
}

func fromProfileDoc(doc profileDoc) domain.UserResult {
	return domain.UserResult{
		ID:        doc.ID,
		Username:  doc.Username,
		FullName:  doc.FullName,
		AvatarURL: doc.AvatarURL,
	}
}

func fromListDoc(doc listDoc) domain.ListResult {
	return domain.ListResult{
		ID:          doc.ID,
		Title:       doc.Title,
		Description: doc.Description,
		OwnerID:     doc.OwnerID,
		CategoryID:  doc.CategoryID,
		ItemCount:   doc.ItemCount,
		CreatedAt:   time.Unix(doc.CreatedAt, 0).UTC(),
	}
}

func toListItemDoc(item domain.ListItem) listItemDoc {
	var data bson.M
	if len(item.ExternalData) > 0 {
		data = make(bson.M, len(item.ExternalData))
		for key, value := range item.ExternalData {
			data[key] = value
		}
	}
	return listItemDoc{
		ID:           item.ID,
		ListID:       item.ListID,
		CategoryID:   item.CategoryID,
		ExternalID:   item.ExternalID,
		Title:        item.Title,
		Description:  item.Description,
		ImageURL:     item.ImageURL,
		ExternalData: data,
		CreatedAt:    item.CreatedAt.UTC().Unix(),
	}
}
