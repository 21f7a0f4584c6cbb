package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/todokit/pkg/sanitizer"
)

const (
	usersCollection       = "users"
	accountsCollection    = "accounts"
	credentialsCollection = "credentials"
)

// MongoAdapter persists users, linked provider accounts, and password
// credentials in MongoDB. It implements Adapter and CredentialStore.
type MongoAdapter struct {
	NoSessionRecords

	users    *mongo.Collection
	accounts *mongo.Collection
	creds    *mongo.Collection
}

// NewMongoAdapter wires the adapter to its collections and ensures the
// indexes account lookup and email uniqueness rely on.
func NewMongoAdapter(ctx context.Context, db *mongo.Database) (*MongoAdapter, error) {
	a := &MongoAdapter{
		users:    db.Collection(usersCollection),
		accounts: db.Collection(accountsCollection),
		creds:    db.Collection(credentialsCollection),
	}

	_, err := a.accounts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "provider", Value: 1}, {Key: "providerAccountId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("create account index: %w", err)
	}

	_, err = a.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetSparse(true),
	})
	if err != nil {
		return nil, fmt.Errorf("create user email index: %w", err)
	}

	return a, nil
}

func (a *MongoAdapter) CreateUser(ctx context.Context, user *User) (*User, error) {
	stored := *user
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	stored.Email = sanitizer.NormalizeEmail(stored.Email)

	if _, err := a.users.InsertOne(ctx, stored); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &stored, nil
}

func (a *MongoAdapter) GetUser(ctx context.Context, id string) (*User, error) {
	var user User
	err := a.users.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

func (a *MongoAdapter) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := a.users.FindOne(ctx, bson.M{"email": sanitizer.NormalizeEmail(email)}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

func (a *MongoAdapter) GetUserByAccount(ctx context.Context, provider, providerAccountID string) (*User, error) {
	var account Account
	err := a.accounts.FindOne(ctx, bson.M{
		"provider":          provider,
		"providerAccountId": providerAccountID,
	}).Decode(&account)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return a.GetUser(ctx, account.UserID)
}

func (a *MongoAdapter) UpdateUser(ctx context.Context, patch UserPatch) (*User, error) {
	set := bson.M{}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Email != nil {
		set["email"] = sanitizer.NormalizeEmail(*patch.Email)
	}
	if patch.Image != nil {
		set["image"] = *patch.Image
	}
	if patch.EmailVerified != nil {
		set["emailVerified"] = *patch.EmailVerified
	}
	if patch.Role != nil {
		set["role"] = *patch.Role
	}
	if patch.AccessToken != nil {
		set["accessToken"] = *patch.AccessToken
	}
	if patch.RefreshToken != nil {
		set["refreshToken"] = *patch.RefreshToken
	}
	if len(set) == 0 {
		return a.GetUser(ctx, patch.ID)
	}

	var user User
	err := a.users.FindOneAndUpdate(ctx,
		bson.M{"_id": patch.ID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return &user, nil
}

// DeleteUser removes the user document and cascades to every account
// linked to it.
func (a *MongoAdapter) DeleteUser(ctx context.Context, id string) error {
	if _, err := a.users.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if _, err := a.accounts.DeleteMany(ctx, bson.M{"userId": id}); err != nil {
		return fmt.Errorf("delete linked accounts: %w", err)
	}
	return nil
}

func (a *MongoAdapter) LinkAccount(ctx context.Context, account *Account) error {
	stored := *account
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if _, err := a.accounts.InsertOne(ctx, stored); err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (a *MongoAdapter) UnlinkAccount(ctx context.Context, provider, providerAccountID string) error {
	res, err := a.accounts.DeleteOne(ctx, bson.M{
		"provider":          provider,
		"providerAccountId": providerAccountID,
	})
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (a *MongoAdapter) CreateCredential(ctx context.Context, cred *Credential) error {
	stored := *cred
	stored.Email = sanitizer.NormalizeEmail(stored.Email)
	if _, err := a.creds.InsertOne(ctx, stored); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("insert credential: %w", err)
	}
	return nil
}

func (a *MongoAdapter) GetCredential(ctx context.Context, email string) (*Credential, error) {
	var cred Credential
	err := a.creds.FindOne(ctx, bson.M{"_id": sanitizer.NormalizeEmail(email)}).Decode(&cred)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find credential: %w", err)
	}
	return &cred, nil
}

func (a *MongoAdapter) DeleteCredentialsByUser(ctx context.Context, userID string) error {
	if _, err := a.creds.DeleteMany(ctx, bson.M{"userId": userID}); err != nil {
		return fmt.Errorf("delete credentials: %w", err)
	}
	return nil
}

var (
	_ Adapter         = (*MongoAdapter)(nil)
	_ CredentialStore = (*MongoAdapter)(nil)
)
