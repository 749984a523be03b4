package docstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/melodex/internal/models"
	"github.com/desertthunder/melodex/internal/shared"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection         = "users"
	artistsCollection       = "artists"
	songsCollection         = "songs"
	playlistsCollection     = "playlists"
	playlistSongsCollection = "playlist_songs"
)

// Store implements [models.Store] on a MongoDB database.
type Store struct {
	client    *mongo.Client
	db        *mongo.Database
	users     *UserCollection
	artists   *ArtistCollection
	songs     *SongCollection
	playlists *PlaylistCollection
}

// Connect dials uri, verifies the connection and ensures indexes on database.
func Connect(ctx context.Context, uri, database string, logger *log.Logger) (*Store, error) {
	if uri == "" {
		return nil, fmt.Errorf("%w: mongo_uri is required for the mongo driver", shared.ErrMissingConfig)
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetAppName("melodex"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%w: mongo ping: %v", shared.ErrServiceUnavailable, err)
	}

	s := New(client, database)
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	if logger != nil {
		logger.Info("connected to mongo", "database", database)
	}
	return s, nil
}

// New wraps an already connected client.
func New(client *mongo.Client, database string) *Store {
	db := client.Database(database)
	return &Store{
		client:    client,
		db:        db,
		users:     &UserCollection{c: db.Collection(usersCollection)},
		artists:   &ArtistCollection{c: db.Collection(artistsCollection)},
		songs:     &SongCollection{c: db.Collection(songsCollection)},
		playlists: &PlaylistCollection{c: db.Collection(playlistsCollection), links: db.Collection(playlistSongsCollection), songs: db.Collection(songsCollection)},
	}
}

func (s *Store) Users() models.UserStore         { return s.users }
func (s *Store) Artists() models.ArtistStore     { return s.artists }
func (s *Store) Songs() models.SongStore         { return s.songs }
func (s *Store) Playlists() models.PlaylistStore { return s.playlists }

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Drop removes every catalog collection. Used by tests and `setup database --reset`.
func (s *Store) Drop(ctx context.Context) error {
	for _, name := range []string{usersCollection, artistsCollection, songsCollection, playlistsCollection, playlistSongsCollection} {
		if err := s.db.Collection(name).Drop(ctx); err != nil {
			return fmt.Errorf("failed to drop %s: %w", name, err)
		}
	}
	return nil
}

// EnsureIndexes creates the catalog indexes. Existing indexes with the same definition are left alone.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_username")},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_email")},
			{Keys: bson.D{{Key: "created_at", Value: -1}}, Options: options.Index().SetName("created_at_desc")},
		},
		artistsCollection: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetName("idx_artist_name")},
		},
		songsCollection: {
			{Keys: bson.D{{Key: "title", Value: 1}, {Key: "artist_id", Value: 1}, {Key: "album", Value: 1}}, Options: options.Index().SetName("idx_song_title_artist_album")},
			{Keys: bson.D{{Key: "artist_id", Value: 1}}, Options: options.Index().SetName("idx_song_artist")},
			{Keys: bson.D{{Key: "album", Value: 1}}, Options: options.Index().SetName("idx_song_album")},
			{Keys: bson.D{{Key: "song_id", Value: 1}}, Options: options.Index().SetName("idx_song_song_id")},
			{Keys: bson.D{{Key: "created_at", Value: -1}}, Options: options.Index().SetName("idx_song_created")},
		},
		playlistsCollection: {
			{Keys: bson.D{{Key: "name", Value: 1}, {Key: "user_id", Value: 1}}, Options: options.Index().SetName("idx_playlist_name_user")},
			{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetName("idx_playlist_user")},
			{Keys: bson.D{{Key: "created_at", Value: -1}}, Options: options.Index().SetName("idx_playlist_created")},
		},
		playlistSongsCollection: {
			{Keys: bson.D{{Key: "playlist_id", Value: 1}, {Key: "song_id", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_playlist_song")},
			{Keys: bson.D{{Key: "playlist_id", Value: 1}}, Options: options.Index().SetName("idx_ps_playlist")},
			{Keys: bson.D{{Key: "song_id", Value: 1}}, Options: options.Index().SetName("idx_ps_song")},
		},
	}

	for name, idx := range indexes {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}
	return nil
}

// UserCollection implements [models.UserStore].
type UserCollection struct {
	c *mongo.Collection
}

func (u *UserCollection) Create(ctx context.Context, user *models.User) error {
	user.Email = models.NormalizeEmail(user.Email)
	if err := user.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	doc := userDocument{
		Username:     user.Username,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		CreatedAt:    time.Now().UTC(),
	}
	res, err := u.c.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: username or email", shared.ErrConflict)
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	user.ID = res.InsertedID.(primitive.ObjectID).Hex()
	user.CreatedAt = doc.CreatedAt
	return nil
}

func (u *UserCollection) Get(ctx context.Context, id string) (*models.User, error) {
	oid, err := objectID(id, shared.ErrUserNotFound)
	if err != nil {
		return nil, err
	}
	return u.findOne(ctx, bson.M{"_id": oid}, id)
}

func (u *UserCollection) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	email = models.NormalizeEmail(email)
	return u.findOne(ctx, bson.M{"email": email}, email)
}

func (u *UserCollection) Delete(ctx context.Context, id string) error {
	oid, err := objectID(id, shared.ErrUserNotFound)
	if err != nil {
		return err
	}
	res, err := u.c.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", shared.ErrUserNotFound, id)
	}
	return nil
}

func (u *UserCollection) findOne(ctx context.Context, filter bson.M, key string) (*models.User, error) {
	var doc userDocument
	if err := u.c.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", shared.ErrUserNotFound, key)
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return doc.model(), nil
}

// ArtistCollection implements [models.ArtistStore].
type ArtistCollection struct {
	c *mongo.Collection
}

func (a *ArtistCollection) Create(ctx context.Context, artist *models.Artist) error {
	artist.Name = strings.TrimSpace(artist.Name)
	if err := artist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	doc := artistDocument{Name: artist.Name, CreatedAt: time.Now().UTC()}
	res, err := a.c.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to insert artist: %w", err)
	}

	artist.ID = res.InsertedID.(primitive.ObjectID).Hex()
	artist.CreatedAt = doc.CreatedAt
	return nil
}

func (a *ArtistCollection) Get(ctx context.Context, id string) (*models.Artist, error) {
	oid, err := objectID(id, shared.ErrArtistNotFound)
	if err != nil {
		return nil, err
	}
	return a.findOne(ctx, bson.M{"_id": oid}, id, nil)
}

func (a *ArtistCollection) GetByName(ctx context.Context, name string) (*models.Artist, error) {
	return a.findOne(ctx, bson.M{"name": name}, name, options.FindOne().SetSort(bson.D{{Key: "_id", Value: 1}}))
}

// Search matches q as a literal, case-insensitive substring of the name.
func (a *ArtistCollection) Search(ctx context.Context, q string) ([]*models.Artist, error) {
	filter := bson.M{}
	if q = strings.TrimSpace(q); q != "" {
		filter["name"] = bson.M{"$regex": regexp.QuoteMeta(q), "$options": "i"}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}}).
		SetCollation(&options.Collation{Locale: "en", Strength: 2})

	cur, err := a.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query artists: %w", err)
	}

	var docs []artistDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode artists: %w", err)
	}

	artists := make([]*models.Artist, 0, len(docs))
	for _, d := range docs {
		artists = append(artists, d.model())
	}
	return artists, nil
}

func (a *ArtistCollection) Delete(ctx context.Context, id string) error {
	oid, err := objectID(id, shared.ErrArtistNotFound)
	if err != nil {
		return err
	}
	res, err := a.c.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete artist: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", shared.ErrArtistNotFound, id)
	}
	return nil
}

func (a *ArtistCollection) findOne(ctx context.Context, filter bson.M, key string, opts *options.FindOneOptions) (*models.Artist, error) {
	var doc artistDocument
	var err error
	if opts != nil {
		err = a.c.FindOne(ctx, filter, opts).Decode(&doc)
	} else {
		err = a.c.FindOne(ctx, filter).Decode(&doc)
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", shared.ErrArtistNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query artist: %w", err)
	}
	return doc.model(), nil
}

// SongCollection implements [models.SongStore].
type SongCollection struct {
	c *mongo.Collection
}

func (s *SongCollection) Create(ctx context.Context, song *models.Song) error {
	if err := song.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if song.CreatedAt.IsZero() {
		song.CreatedAt = time.Now().UTC()
	}

	doc, err := newSongDocument(song)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	res, err := s.c.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to insert song: %w", err)
	}
	song.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return nil
}

func (s *SongCollection) Get(ctx context.Context, id string) (*models.Song, error) {
	oid, err := objectID(id, shared.ErrTrackNotFound)
	if err != nil {
		return nil, err
	}
	return s.findOne(ctx, bson.M{"_id": oid}, id)
}

func (s *SongCollection) GetBySongID(ctx context.Context, songID string) (*models.Song, error) {
	return s.findOne(ctx, bson.M{"song_id": songID}, songID)
}

// Search pages through songs newest first.
func (s *SongCollection) Search(ctx context.Context, q models.SongQuery) (models.Page[*models.Song], error) {
	page, size := models.ClampPaging(q.Page, q.Size)
	result := models.Page[*models.Song]{Items: []*models.Song{}, Page: page, Size: size}

	filter := bson.M{}
	if text := strings.TrimSpace(q.Q); text != "" {
		filter["title"] = bson.M{"$regex": regexp.QuoteMeta(text), "$options": "i"}
	}
	if q.SongID != "" {
		filter["song_id"] = q.SongID
	}
	if q.ArtistID != "" {
		oid, err := primitive.ObjectIDFromHex(q.ArtistID)
		if err != nil {
			return result, nil
		}
		filter["artist_id"] = oid
	}

	total, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return result, fmt.Errorf("failed to count songs: %w", err)
	}
	result.Total = int(total)

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(models.Offset(page, size))).
		SetLimit(int64(size))

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return result, fmt.Errorf("failed to query songs: %w", err)
	}

	var docs []songDocument
	if err := cur.All(ctx, &docs); err != nil {
		return result, fmt.Errorf("failed to decode songs: %w", err)
	}
	for _, d := range docs {
		result.Items = append(result.Items, d.model())
	}
	return result, nil
}

func (s *SongCollection) IDs(ctx context.Context) ([]string, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1}).SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query song ids: %w", err)
	}

	var docs []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode song ids: %w", err)
	}

	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID.Hex())
	}
	return ids, nil
}

func (s *SongCollection) Delete(ctx context.Context, id string) error {
	oid, err := objectID(id, shared.ErrTrackNotFound)
	if err != nil {
		return err
	}
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete song: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", shared.ErrTrackNotFound, id)
	}
	return nil
}

func (s *SongCollection) findOne(ctx context.Context, filter bson.M, key string) (*models.Song, error) {
	var doc songDocument
	err := s.c.FindOne(ctx, filter, options.FindOne().SetSort(bson.D{{Key: "_id", Value: 1}})).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query song: %w", err)
	}
	return doc.model(), nil
}
