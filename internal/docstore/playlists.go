package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/melodex/internal/models"
	"github.com/desertthunder/melodex/internal/shared"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PlaylistCollection implements [models.PlaylistStore] over the playlists and playlist_songs collections.
type PlaylistCollection struct {
	c     *mongo.Collection
	links *mongo.Collection
	songs *mongo.Collection
}

func (p *PlaylistCollection) Create(ctx context.Context, playlist *models.Playlist) error {
	playlist.Name = strings.TrimSpace(playlist.Name)
	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	userID, err := objectID(playlist.UserID, shared.ErrUserNotFound)
	if err != nil {
		return err
	}

	doc := playlistDocument{Name: playlist.Name, UserID: userID, CreatedAt: time.Now().UTC()}
	res, err := p.c.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to insert playlist: %w", err)
	}

	playlist.ID = res.InsertedID.(primitive.ObjectID).Hex()
	playlist.CreatedAt = doc.CreatedAt
	if playlist.Songs == nil {
		playlist.Songs = []models.Song{}
	}
	return nil
}

func (p *PlaylistCollection) Get(ctx context.Context, id string) (*models.Playlist, error) {
	oid, err := objectID(id, shared.ErrPlaylistNotFound)
	if err != nil {
		return nil, err
	}
	return p.findOne(ctx, bson.M{"_id": oid}, id)
}

func (p *PlaylistCollection) GetByName(ctx context.Context, userID, name string) (*models.Playlist, error) {
	uid, err := objectID(userID, shared.ErrPlaylistNotFound)
	if err != nil {
		return nil, err
	}
	return p.findOne(ctx, bson.M{"name": name, "user_id": uid}, name)
}

func (p *PlaylistCollection) ListByUser(ctx context.Context, userID string) ([]*models.Playlist, error) {
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return []*models.Playlist{}, nil
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := p.c.Find(ctx, bson.M{"user_id": uid}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}

	var docs []playlistDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode playlists: %w", err)
	}

	playlists := make([]*models.Playlist, 0, len(docs))
	for _, d := range docs {
		playlists = append(playlists, d.model())
	}
	if err := p.attachSongs(ctx, playlists...); err != nil {
		return nil, err
	}
	return playlists, nil
}

func (p *PlaylistCollection) Rename(ctx context.Context, id, name string) (*models.Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("validation failed: %w: name required", shared.ErrInvalidInput)
	}
	oid, err := objectID(id, shared.ErrPlaylistNotFound)
	if err != nil {
		return nil, err
	}

	var doc playlistDocument
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err = p.c.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"name": name}}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to rename playlist: %w", err)
	}

	playlist := doc.model()
	if err := p.attachSongs(ctx, playlist); err != nil {
		return nil, err
	}
	return playlist, nil
}

// Delete removes the playlist and then its membership documents.
func (p *PlaylistCollection) Delete(ctx context.Context, id string) error {
	oid, err := objectID(id, shared.ErrPlaylistNotFound)
	if err != nil {
		return err
	}

	res, err := p.c.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}
	if _, err := p.links.DeleteMany(ctx, bson.M{"playlist_id": oid}); err != nil {
		return fmt.Errorf("failed to delete playlist songs: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	return nil
}

// AddSong upserts the membership document, so repeated adds leave a single link.
func (p *PlaylistCollection) AddSong(ctx context.Context, playlistID, songID string) error {
	pid, err := objectID(playlistID, shared.ErrPlaylistNotFound)
	if err != nil {
		return err
	}
	sid, err := objectID(songID, shared.ErrTrackNotFound)
	if err != nil {
		return err
	}

	if n, err := p.c.CountDocuments(ctx, bson.M{"_id": pid}); err != nil {
		return fmt.Errorf("failed to check playlist: %w", err)
	} else if n == 0 {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
	}
	if n, err := p.songs.CountDocuments(ctx, bson.M{"_id": sid}); err != nil {
		return fmt.Errorf("failed to check song: %w", err)
	} else if n == 0 {
		return fmt.Errorf("%w: %s", shared.ErrTrackNotFound, songID)
	}

	link := linkDocument{PlaylistID: pid, SongID: sid}
	_, err = p.links.UpdateOne(ctx,
		bson.M{"playlist_id": pid, "song_id": sid},
		bson.M{"$set": link},
		options.Update().SetUpsert(true),
	)
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("failed to add song to playlist: %w", err)
	}
	return nil
}

func (p *PlaylistCollection) RemoveSong(ctx context.Context, playlistID, songID string) error {
	pid, err := primitive.ObjectIDFromHex(playlistID)
	if err != nil {
		return nil
	}
	sid, err := primitive.ObjectIDFromHex(songID)
	if err != nil {
		return nil
	}
	if _, err := p.links.DeleteOne(ctx, bson.M{"playlist_id": pid, "song_id": sid}); err != nil {
		return fmt.Errorf("failed to remove song from playlist: %w", err)
	}
	return nil
}

func (p *PlaylistCollection) findOne(ctx context.Context, filter bson.M, key string) (*models.Playlist, error) {
	var doc playlistDocument
	err := p.c.FindOne(ctx, filter, options.FindOne().SetSort(bson.D{{Key: "_id", Value: 1}})).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist: %w", err)
	}

	playlist := doc.model()
	if err := p.attachSongs(ctx, playlist); err != nil {
		return nil, err
	}
	return playlist, nil
}

// attachSongs resolves membership links to songs for every playlist with two queries.
func (p *PlaylistCollection) attachSongs(ctx context.Context, playlists ...*models.Playlist) error {
	if len(playlists) == 0 {
		return nil
	}

	byID := make(map[primitive.ObjectID]*models.Playlist, len(playlists))
	ids := make([]primitive.ObjectID, 0, len(playlists))
	for _, pl := range playlists {
		oid, err := primitive.ObjectIDFromHex(pl.ID)
		if err != nil {
			continue
		}
		byID[oid] = pl
		ids = append(ids, oid)
	}

	cur, err := p.links.Find(ctx, bson.M{"playlist_id": bson.M{"$in": ids}})
	if err != nil {
		return fmt.Errorf("failed to query playlist songs: %w", err)
	}
	var links []linkDocument
	if err := cur.All(ctx, &links); err != nil {
		return fmt.Errorf("failed to decode playlist songs: %w", err)
	}
	if len(links) == 0 {
		return nil
	}

	songIDs := make([]primitive.ObjectID, 0, len(links))
	for _, l := range links {
		songIDs = append(songIDs, l.SongID)
	}

	cur, err = p.songs.Find(ctx, bson.M{"_id": bson.M{"$in": songIDs}})
	if err != nil {
		return fmt.Errorf("failed to query songs: %w", err)
	}
	var docs []songDocument
	if err := cur.All(ctx, &docs); err != nil {
		return fmt.Errorf("failed to decode songs: %w", err)
	}

	songs := make(map[primitive.ObjectID]models.Song, len(docs))
	for _, d := range docs {
		songs[d.ID] = *d.model()
	}

	for _, l := range links {
		pl, ok := byID[l.PlaylistID]
		if !ok {
			continue
		}
		if song, ok := songs[l.SongID]; ok {
			pl.Songs = append(pl.Songs, song)
		}
	}
	return nil
}
