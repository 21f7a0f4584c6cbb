package todo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const todosCollection = "todos"

// MongoRepository persists todos in MongoDB.
type MongoRepository struct {
	col *mongo.Collection
}

// NewMongoRepository wires the repository to its collection and ensures
// the index the uid-scoped, newest-first listing relies on.
func NewMongoRepository(ctx context.Context, db *mongo.Database) (*MongoRepository, error) {
	col := db.Collection(todosCollection)

	_, err := col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "uid", Value: 1}, {Key: "createAt", Value: -1}},
	})
	if err != nil {
		return nil, fmt.Errorf("create todos index: %w", err)
	}

	return &MongoRepository{col: col}, nil
}

func (r *MongoRepository) Create(ctx context.Context, item *Todo) error {
	if _, err := r.col.InsertOne(ctx, item); err != nil {
		return fmt.Errorf("insert todo: %w", err)
	}
	return nil
}

func (r *MongoRepository) Get(ctx context.Context, uid, id string) (*Todo, error) {
	var item Todo
	err := r.col.FindOne(ctx, bson.M{"_id": id, "uid": uid}).Decode(&item)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTodoNotFound
		}
		return nil, fmt.Errorf("find todo: %w", err)
	}
	return &item, nil
}

func (r *MongoRepository) List(ctx context.Context, uid string) ([]Todo, error) {
	cur, err := r.col.Find(ctx, bson.M{"uid": uid},
		options.Find().SetSort(bson.D{{Key: "createAt", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	defer func() { _ = cur.Close(ctx) }()

	items := make([]Todo, 0)
	if err := cur.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("decode todos: %w", err)
	}
	return items, nil
}

func (r *MongoRepository) Update(ctx context.Context, uid, id string, patch Patch) (*Todo, error) {
	set := bson.M{}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Completed != nil {
		set["completed"] = *patch.Completed
	}
	if len(set) == 0 {
		return r.Get(ctx, uid, id)
	}

	var item Todo
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "uid": uid},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&item)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTodoNotFound
		}
		return nil, fmt.Errorf("update todo: %w", err)
	}
	return &item, nil
}

func (r *MongoRepository) Delete(ctx context.Context, uid, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id, "uid": uid})
	if err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrTodoNotFound
	}
	return nil
}

func (r *MongoRepository) DeleteByUser(ctx context.Context, uid string) error {
	if _, err := r.col.DeleteMany(ctx, bson.M{"uid": uid}); err != nil {
		return fmt.Errorf("delete todos by user: %w", err)
	}
	return nil
}

var _ Repository = (*MongoRepository)(nil)
