package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"

	"github.com/finportal/portal/internal/core/domain"
	"github.com/finportal/portal/internal/core/ports"
)

const (
	profileCollection  = "customer_profiles"
	counterCollection  = "counters"
	employeeCollection = "employees"

	customerCounterID = "customer_id"
)

var _ ports.RecordStore = (*RecordStore)(nil)

// RecordStore keeps customer profiles, the customer id sequence and employee
// credentials in MongoDB.
type RecordStore struct {
	profiles  *mongo.Collection
	counters  *mongo.Collection
	employees *mongo.Collection
}

func NewRecordStore(db *mongo.Database) *RecordStore {
	return &RecordStore{
		profiles:  db.Collection(profileCollection),
		counters:  db.Collection(counterCollection),
		employees: db.Collection(employeeCollection),
	}
}

type counterDoc struct {
	ID  string `bson:"_id"`
	Seq int64  `bson:"seq"`
}

type employeeDoc struct {
	Username     string `bson:"username"`
	PasswordHash string `bson:"password_hash"`
	CreatedAt    int64  `bson:"created_at"`
}

// GenerateCustomerID increments the customer counter atomically and formats
// the result as CUST-000042.
func (s *RecordStore) GenerateCustomerID(ctx context.Context) (string, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var c counterDoc
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": customerCounterID},
		bson.M{"$inc": bson.M{"seq": 1}},
		opts,
	).Decode(&c)
	if err != nil {
		return "", fmt.Errorf("next customer id: %w", err)
	}
	return FormatCustomerID(c.Seq), nil
}

// FormatCustomerID renders a sequence value as a customer identifier.
func FormatCustomerID(seq int64) string {
	return fmt.Sprintf("CUST-%06d", seq)
}

func (s *RecordStore) InsertCustomerProfile(ctx context.Context, profile *domain.CustomerProfile) error {
	if _, err := s.profiles.InsertOne(ctx, profile); err != nil {
		return fmt.Errorf("insert customer profile: %w", err)
	}
	return nil
}

func (s *RecordStore) ReadCustomerProfile(ctx context.Context, userID string) (*domain.CustomerProfile, error) {
	var p domain.CustomerProfile
	if err := s.profiles.FindOne(ctx, bson.M{"user_id": userID}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("read customer profile: %w", err)
	}
	return &p, nil
}

// CheckEmployeeCredentials matches username exactly and compares the bcrypt
// hash. A match yields a fresh opaque token.
func (s *RecordStore) CheckEmployeeCredentials(ctx context.Context, username, password string) (string, error) {
	var e employeeDoc
	if err := s.employees.FindOne(ctx, bson.M{"username": username}).Decode(&e); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", domain.ErrInvalidEmployeeCredentials
		}
		return "", fmt.Errorf("find employee: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(e.PasswordHash), []byte(password)); err != nil {
		return "", domain.ErrInvalidEmployeeCredentials
	}
	return uuid.NewString(), nil
}

// SeedEmployee creates or replaces the credentials of username.
func (s *RecordStore) SeedEmployee(ctx context.Context, username, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash employee password: %w", err)
	}

	_, err = s.employees.UpdateOne(ctx,
		bson.M{"username": username},
		bson.M{"$set": employeeDoc{
			Username:     username,
			PasswordHash: string(hash),
			CreatedAt:    time.Now().UTC().Unix(),
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("seed employee: %w", err)
	}
	return nil
}

// EnsureIndexes creates the unique indexes the record store relies on.
func (s *RecordStore) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	unique := options.Index().SetUnique(true)
	if _, err := s.profiles.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: unique},
		{Keys: bson.D{{Key: "customer_id", Value: 1}}, Options: unique},
	}); err != nil {
		return fmt.Errorf("customer profile indexes: %w", err)
	}

	if _, err := s.employees.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: unique,
	}); err != nil {
		return fmt.Errorf("employee indexes: %w", err)
	}
	return nil
}
