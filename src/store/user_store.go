package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"www.github.com/Wanderer0074348/CalSync/src/auth"
	"www.github.com/Wanderer0074348/CalSync/src/config"
)

var (
	// ErrStoreUnavailable wraps connection and write failures. It is always
	// surfaced to the caller; a successful exchange does not imply a
	// successful write.
	ErrStoreUnavailable = errors.New("user store unavailable")

	ErrNotFound         = errors.New("user not found")
	ErrCalendarNotFound = errors.New("calendar not found")

	// ErrConflict means a concurrent write changed the calendar between the
	// read and the conditional update. The caller retries or reloads.
	ErrConflict = errors.New("calendar modified concurrently")
)

// CalendarEntry is one calendar in a user's list. Enabled defaults to false
// for calendars never seen before.
type CalendarEntry struct {
	ID      string `bson:"id" json:"id"`
	Summary string `bson:"summary" json:"summary"`
	Enabled bool   `bson:"enabled" json:"enabled"`
}

// UserRecord is the users collection document: profile, credential and the
// calendar list, keyed by email (unique index).
type UserRecord struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"-"`

	GoogleID      string `bson:"google_id" json:"google_id"`
	Email         string `bson:"email" json:"email"`
	VerifiedEmail bool   `bson:"verified_email" json:"verified_email"`
	FullName      string `bson:"full_name" json:"full_name"`
	FirstName     string `bson:"first_name" json:"first_name"`
	LastName      string `bson:"last_name" json:"last_name"`
	Picture       string `bson:"picture" json:"picture"`
	Locale        string `bson:"locale" json:"locale"`
	HostedDomain  string `bson:"google_hd,omitempty" json:"google_hd,omitempty"`

	Token        string    `bson:"token" json:"-"`
	RefreshToken string    `bson:"refresh_token,omitempty" json:"-"`
	TokenURI     string    `bson:"token_uri" json:"-"`
	ClientID     string    `bson:"client_id" json:"-"`
	Scopes       []string  `bson:"scopes" json:"scopes"`
	Expiry       time.Time `bson:"expiry" json:"-"`

	Calendars []CalendarEntry `bson:"calendars" json:"calendars"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Credential rebuilds the token material held on the record.
func (r *UserRecord) Credential() *auth.Credential {
	return &auth.Credential{
		AccessToken:  r.Token,
		RefreshToken: r.RefreshToken,
		TokenURI:     r.TokenURI,
		ClientID:     r.ClientID,
		Scopes:       r.Scopes,
		Expiry:       r.Expiry,
	}
}

// Connect establishes and ping-checks the MongoDB client.
func Connect(ctx context.Context, cfg *config.MongoConfig) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return client, nil
}

type UserStore struct {
	collection *mongo.Collection
	now        func() time.Time
}

func NewUserStore(db *mongo.Database) *UserStore {
	return &UserStore{
		collection: db.Collection("users"),
		now:        time.Now,
	}
}

// EnsureIndexes creates the unique email index the upsert relies on.
func (s *UserStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Upsert writes profile and credential fields for the given email in a
// single atomic conditional update. Fields outside this operation's inputs,
// the calendar list in particular, are never touched: two racing writes end
// with one complete credential set, not an interleaving. The email key is
// matched case-sensitively as received from the provider.
func (s *UserStore) Upsert(ctx context.Context, profile *auth.GoogleUserInfo, credential *auth.Credential) (*UserRecord, error) {
	now := s.now().UTC().Truncate(time.Millisecond)

	update := bson.M{
		"$set":         upsertSetFields(profile, credential, now),
		"$setOnInsert": upsertInsertFields(profile.Email, now),
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var record UserRecord
	err := s.collection.FindOneAndUpdate(ctx, bson.M{"email": profile.Email}, update, opts).Decode(&record)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return &record, nil
}

// upsertSetFields is the $set document: profile + credential + updated_at,
// and nothing else.
func upsertSetFields(profile *auth.GoogleUserInfo, credential *auth.Credential, now time.Time) bson.M {
	return bson.M{
		"google_id":      profile.ID,
		"verified_email": profile.VerifiedEmail,
		"full_name":      profile.Name,
		"first_name":     profile.GivenName,
		"last_name":      profile.FamilyName,
		"picture":        profile.Picture,
		"locale":         profile.Locale,
		"google_hd":      profile.HostedDomain,

		"token":         credential.AccessToken,
		"refresh_token": credential.RefreshToken,
		"token_uri":     credential.TokenURI,
		"client_id":     credential.ClientID,
		"scopes":        credential.Scopes,
		"expiry":        credential.Expiry.UTC(),

		"updated_at": now,
	}
}

// upsertInsertFields only applies when the email was never seen: the
// immutable key, created_at and an empty calendar list.
func upsertInsertFields(email string, now time.Time) bson.M {
	return bson.M{
		"email":      email,
		"created_at": now,
		"calendars":  []CalendarEntry{},
	}
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*UserRecord, error) {
	var record UserRecord
	err := s.collection.FindOne(ctx, bson.M{"email": email}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return &record, nil
}

// SaveCalendars replaces the calendar list for a user. Credential and
// profile fields are not part of the update.
func (s *UserStore) SaveCalendars(ctx context.Context, email string, calendars []CalendarEntry) error {
	now := s.now().UTC().Truncate(time.Millisecond)

	res, err := s.collection.UpdateOne(ctx,
		bson.M{"email": email},
		bson.M{"$set": bson.M{"calendars": calendars, "updated_at": now}},
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ToggleCalendar flips the enabled flag on one calendar. The positional
// update filter includes the previously observed value, so a concurrent
// flip makes this write match nothing and surfaces as ErrConflict instead
// of a lost update.
func (s *UserStore) ToggleCalendar(ctx context.Context, email, calendarID string) (*CalendarEntry, error) {
	record, err := s.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	var current *CalendarEntry
	for i := range record.Calendars {
		if record.Calendars[i].ID == calendarID {
			current = &record.Calendars[i]
			break
		}
	}
	if current == nil {
		return nil, ErrCalendarNotFound
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	next := !current.Enabled

	res, err := s.collection.UpdateOne(ctx,
		bson.M{
			"email":     email,
			"calendars": bson.M{"$elemMatch": bson.M{"id": calendarID, "enabled": current.Enabled}},
		},
		bson.M{"$set": bson.M{"calendars.$.enabled": next, "updated_at": now}},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if res.MatchedCount == 0 {
		return nil, ErrConflict
	}

	return &CalendarEntry{ID: current.ID, Summary: current.Summary, Enabled: next}, nil
}
