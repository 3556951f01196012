package mdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"geminibot/internal/models"
	"geminibot/internal/storage"
)

const (
	usersCollection    = "users"
	settingsCollection = "settings"
)

// MongoDB stores users and settings in MongoDB collections
type MongoDB struct {
	client   *mongo.Client
	users    *mongo.Collection
	settings *mongo.Collection
}

// NewMongoDB connects to MongoDB and verifies the connection
func NewMongoDB(ctx context.Context, uri, database string) (*MongoDB, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri).SetServerSelectionTimeout(10 * time.Second))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Test the connection
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", wrap(err))
	}

	db := client.Database(database)
	return &MongoDB{
		client:   client,
		users:    db.Collection(usersCollection),
		settings: db.Collection(settingsCollection),
	}, nil
}

// Initialize creates the unique indexes that make upserts race-safe
func (db *MongoDB) Initialize(ctx context.Context) error {
	if _, err := db.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("failed to create users index: %w", wrap(err))
	}

	if _, err := db.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "banned", Value: 1}},
	}); err != nil {
		return fmt.Errorf("failed to create banned index: %w", wrap(err))
	}

	if _, err := db.settings.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "key", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("failed to create settings index: %w", wrap(err))
	}

	return nil
}

// GetOrCreateUser upserts the user with $setOnInsert so an existing record is
// never modified. The pre-image tells whether this call inserted it.
func (db *MongoDB) GetOrCreateUser(ctx context.Context, userID int64, profile models.Profile, initialPoints int64, now time.Time) (*models.User, bool, error) {
	firstName := profile.FirstName
	if firstName == "" {
		firstName = "User"
	}
	fresh := models.User{
		UserID:    userID,
		FirstName: firstName,
		Username:  profile.Username,
		Points:    initialPoints,
		JoinedAt:  now.UTC().Truncate(time.Millisecond),
	}

	update := bson.D{{Key: "$setOnInsert", Value: bson.D{
		{Key: "first_name", Value: fresh.FirstName},
		{Key: "username", Value: fresh.Username},
		{Key: "points", Value: fresh.Points},
		{Key: "banned", Value: false},
		{Key: "last_bonus_time", Value: nil},
		{Key: "joined_at", Value: fresh.JoinedAt},
	}}}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.Before)

	var existing models.User
	err := db.users.FindOneAndUpdate(ctx, bson.D{{Key: "user_id", Value: userID}}, update, opts).Decode(&existing)
	switch {
	case err == nil:
		return &existing, false, nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return &fresh, true, nil
	case mongo.IsDuplicateKeyError(err):
		// A concurrent upsert for the same user won the insert
		user, err := db.GetUser(ctx, userID)
		if err != nil {
			return nil, false, err
		}
		return user, false, nil
	default:
		return nil, false, fmt.Errorf("failed to upsert user: %w", wrap(err))
	}
}

// GetUser returns a single user by Telegram ID
func (db *MongoDB) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	var user models.User
	err := db.users.FindOne(ctx, bson.D{{Key: "user_id", Value: userID}}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("user %d: %w", userID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", wrap(err))
	}
	return &user, nil
}

// ListUsers returns users with the given banned flag ordered by ID
func (db *MongoDB) ListUsers(ctx context.Context, banned bool) ([]models.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "user_id", Value: 1}})
	cursor, err := db.users.Find(ctx, bson.D{{Key: "banned", Value: banned}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", wrap(err))
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", wrap(err))
	}
	return users, nil
}

// SetBanned updates the banned flag
func (db *MongoDB) SetBanned(ctx context.Context, userID int64, banned bool) error {
	return db.updateOne(ctx, bson.D{{Key: "user_id", Value: userID}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "banned", Value: banned}}}}, userID)
}

// IncrementPoints adds delta to the balance with no floor
func (db *MongoDB) IncrementPoints(ctx context.Context, userID int64, delta int64) error {
	return db.updateOne(ctx, bson.D{{Key: "user_id", Value: userID}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: "points", Value: delta}}}}, userID)
}

// DecrementIfPositive subtracts one point in a single conditional update
func (db *MongoDB) DecrementIfPositive(ctx context.Context, userID int64) (bool, error) {
	filter := bson.D{
		{Key: "user_id", Value: userID},
		{Key: "points", Value: bson.D{{Key: "$gt", Value: 0}}},
	}
	update := bson.D{{Key: "$inc", Value: bson.D{{Key: "points", Value: -1}}}}

	res, err := db.users.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to deduct point: %w", wrap(err))
	}
	return res.ModifiedCount == 1, nil
}

// GrantBonus adds amount and stamps the claim time when the last claim is
// missing or not after cutoff
func (db *MongoDB) GrantBonus(ctx context.Context, userID int64, amount int64, now, cutoff time.Time) (bool, error) {
	filter := bson.D{
		{Key: "user_id", Value: userID},
		{Key: "$or", Value: bson.A{
			bson.D{{Key: "last_bonus_time", Value: nil}},
			bson.D{{Key: "last_bonus_time", Value: bson.D{{Key: "$lte", Value: cutoff.UTC()}}}},
		}},
	}
	update := bson.D{
		{Key: "$inc", Value: bson.D{{Key: "points", Value: amount}}},
		{Key: "$set", Value: bson.D{{Key: "last_bonus_time", Value: now.UTC()}}},
	}

	res, err := db.users.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to grant bonus: %w", wrap(err))
	}
	return res.ModifiedCount == 1, nil
}

func (db *MongoDB) updateOne(ctx context.Context, filter, update bson.D, userID int64) error {
	res, err := db.users.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", wrap(err))
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user %d: %w", userID, storage.ErrNotFound)
	}
	return nil
}

// GetSetting returns a setting value and whether it exists
func (db *MongoDB) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var setting models.Setting
	err := db.settings.FindOne(ctx, bson.D{{Key: "key", Value: key}}).Decode(&setting)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get setting %s: %w", key, wrap(err))
	}
	return setting.Value, true, nil
}

// SetSetting replaces the setting document, inserting it if missing
func (db *MongoDB) SetSetting(ctx context.Context, key, value string) error {
	_, err := db.settings.ReplaceOne(ctx,
		bson.D{{Key: "key", Value: key}},
		models.Setting{Key: key, Value: value},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to set setting %s: %w", key, wrap(err))
	}
	return nil
}

// Stats returns user counts and the sum of all balances
func (db *MongoDB) Stats(ctx context.Context) (models.Stats, error) {
	var stats models.Stats

	total, err := db.users.CountDocuments(ctx, bson.D{})
	if err != nil {
		return stats, fmt.Errorf("failed to count users: %w", wrap(err))
	}
	banned, err := db.users.CountDocuments(ctx, bson.D{{Key: "banned", Value: true}})
	if err != nil {
		return stats, fmt.Errorf("failed to count banned users: %w", wrap(err))
	}

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$points"}}},
		}}},
	}
	cursor, err := db.users.Aggregate(ctx, pipeline)
	if err != nil {
		return stats, fmt.Errorf("failed to sum points: %w", wrap(err))
	}
	defer cursor.Close(ctx)

	var sums []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(ctx, &sums); err != nil {
		return stats, fmt.Errorf("failed to decode points sum: %w", wrap(err))
	}

	stats.TotalUsers = total
	stats.BannedUsers = banned
	if len(sums) > 0 {
		stats.TotalPoints = sums[0].Total
	}
	return stats, nil
}

// Close disconnects the client
func (db *MongoDB) Close() error {
	if db.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return db.client.Disconnect(ctx)
}

// wrap marks connectivity failures with storage.ErrUnavailable
func wrap(err error) error {
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, mongo.ErrClientDisconnected) {
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	return err
}
