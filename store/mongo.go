package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cppla/organizer/models"
)

const (
	postsCollection = "postmessages"
	usersCollection = "users"
)

// MongoStore persists posts and users in MongoDB. Documents keep ObjectID primary
// keys and ObjectID references in users.posts; creator and likes stay strings.
type MongoStore struct {
	client *mongo.Client
	posts  *mongo.Collection
	users  *mongo.Collection
}

type postDocument struct {
	ID           primitive.ObjectID `bson:"_id"`
	Title        string             `bson:"title"`
	Body         any                `bson:"body,omitempty"`
	Message      string             `bson:"message"`
	Name         string             `bson:"name"`
	Creator      string             `bson:"creator"`
	Tags         []string           `bson:"tags"`
	SelectedFile string             `bson:"selectedFile,omitempty"`
	Likes        []string           `bson:"likes"`
	Comments     []string           `bson:"comments"`
	CreatedAt    time.Time          `bson:"createdAt"`
}

type userDocument struct {
	ID       primitive.ObjectID   `bson:"_id"`
	Name     string               `bson:"name"`
	Email    string               `bson:"email"`
	Password string               `bson:"password"`
	Posts    []primitive.ObjectID `bson:"posts"`
}

// NewMongoStore wraps an already connected client.
func NewMongoStore(client *mongo.Client, database string) *MongoStore {
	db := client.Database(database)
	return &MongoStore{
		client: client,
		posts:  db.Collection(postsCollection),
		users:  db.Collection(usersCollection),
	}
}

// EnsureIndexes creates the unique email index and the lookup indexes used by search.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	if _, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("create users.email index: %w", err)
	}
	if _, err := s.posts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "tags", Value: 1}}},
		{Keys: bson.D{{Key: "creator", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("create postmessages indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) FindPostByID(ctx context.Context, id string) (*models.Post, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var doc postDocument
	if err := s.posts.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, translateMongoErr(err)
	}
	return doc.toModel(), nil
}

func (s *MongoStore) FindPosts(ctx context.Context, filter PostFilter, page Page) ([]models.Post, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: -1}})
	if page.Limit > 0 {
		opts.SetLimit(page.Limit)
	}
	if page.Skip > 0 {
		opts.SetSkip(page.Skip)
	}

	cur, err := s.posts.Find(ctx, postFilterBSON(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []postDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]models.Post, 0, len(docs))
	for i := range docs {
		out = append(out, *docs[i].toModel())
	}
	return out, nil
}

func (s *MongoStore) CountPosts(ctx context.Context, filter PostFilter) (int64, error) {
	return s.posts.CountDocuments(ctx, postFilterBSON(filter))
}

func (s *MongoStore) CreatePost(ctx context.Context, p *models.Post) error {
	if p.ID == "" {
		p.ID = models.NewID()
	}
	doc, err := newPostDocument(p)
	if err != nil {
		return err
	}
	_, err = s.posts.InsertOne(ctx, doc)
	return err
}

func (s *MongoStore) ReplacePost(ctx context.Context, p *models.Post) (*models.Post, error) {
	doc, err := newPostDocument(p)
	if err != nil {
		return nil, err
	}
	opts := options.FindOneAndReplace().SetReturnDocument(options.After)
	var stored postDocument
	if err := s.posts.FindOneAndReplace(ctx, bson.M{"_id": doc.ID}, doc, opts).Decode(&stored); err != nil {
		return nil, translateMongoErr(err)
	}
	return stored.toModel(), nil
}

func (s *MongoStore) DeletePost(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := s.posts.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return s.findUser(ctx, bson.M{"_id": oid})
}

func (s *MongoStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

func (s *MongoStore) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc userDocument
	if err := s.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, translateMongoErr(err)
	}
	return doc.toModel(), nil
}

func (s *MongoStore) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = models.NewID()
	}
	doc, err := newUserDocument(u)
	if err != nil {
		return err
	}
	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (s *MongoStore) ReplaceUser(ctx context.Context, u *models.User) error {
	doc, err := newUserDocument(u)
	if err != nil {
		return err
	}
	res, err := s.users.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func postFilterBSON(f PostFilter) bson.M {
	if f.IsEmpty() {
		return bson.M{}
	}
	var or bson.A
	if f.TitleContains != nil {
		or = append(or, bson.M{"title": primitive.Regex{Pattern: regexp.QuoteMeta(*f.TitleContains), Options: "i"}})
	}
	if len(f.AnyTag) > 0 {
		or = append(or, bson.M{"tags": bson.M{"$in": f.AnyTag}})
	}
	return bson.M{"$or": or}
}

func translateMongoErr(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

func newPostDocument(p *models.Post) (*postDocument, error) {
	oid, err := primitive.ObjectIDFromHex(p.ID)
	if err != nil {
		return nil, fmt.Errorf("post id %q: %w", p.ID, err)
	}
	c := p.Clone()
	return &postDocument{
		ID:           oid,
		Title:        c.Title,
		Body:         c.Body,
		Message:      c.Message,
		Name:         c.Name,
		Creator:      c.Creator,
		Tags:         c.Tags,
		SelectedFile: c.SelectedFile,
		Likes:        c.Likes,
		Comments:     c.Comments,
		CreatedAt:    c.CreatedAt,
	}, nil
}

func (d *postDocument) toModel() *models.Post {
	p := &models.Post{
		ID:           d.ID.Hex(),
		Title:        d.Title,
		Body:         d.Body,
		Message:      d.Message,
		Name:         d.Name,
		Creator:      d.Creator,
		Tags:         d.Tags,
		SelectedFile: d.SelectedFile,
		Likes:        d.Likes,
		Comments:     d.Comments,
		CreatedAt:    d.CreatedAt.UTC(),
	}
	return p.Clone()
}

func newUserDocument(u *models.User) (*userDocument, error) {
	oid, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return nil, fmt.Errorf("user id %q: %w", u.ID, err)
	}
	posts := make([]primitive.ObjectID, 0, len(u.Posts))
	for _, id := range u.Posts {
		pid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return nil, fmt.Errorf("post reference %q: %w", id, err)
		}
		posts = append(posts, pid)
	}
	return &userDocument{
		ID:       oid,
		Name:     u.Name,
		Email:    u.Email,
		Password: u.Password,
		Posts:    posts,
	}, nil
}

func (d *userDocument) toModel() *models.User {
	posts := make([]string, 0, len(d.Posts))
	for _, id := range d.Posts {
		posts = append(posts, id.Hex())
	}
	return &models.User{
		ID:       d.ID.Hex(),
		Name:     d.Name,
		Email:    d.Email,
		Password: d.Password,
		Posts:    posts,
	}
}
