package docstore

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/desertthunder/melodex/internal/models"
	"github.com/desertthunder/melodex/internal/shared"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type userDocument struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Username     string             `bson:"username"`
	Email        string             `bson:"email"`
	PasswordHash []byte             `bson:"password_hash"`
	CreatedAt    time.Time          `bson:"created_at"`
}

func (d userDocument) model() *models.User {
	return &models.User{
		ID:           d.ID.Hex(),
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt,
	}
}

type artistDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	CreatedAt time.Time          `bson:"created_at,omitempty"`
}

func (d artistDocument) model() *models.Artist {
	return &models.Artist{ID: d.ID.Hex(), Name: d.Name, CreatedAt: d.CreatedAt}
}

// songDocument tolerates loosely typed rows written by bulk loaders:
// text fields may hold numbers or NaN and artist_id may be null.
type songDocument struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty"`
	SongID      any                 `bson:"song_id"`
	Title       any                 `bson:"title"`
	ArtistID    *primitive.ObjectID `bson:"artist_id"`
	Album       any                 `bson:"album"`
	DurationSec any                 `bson:"duration_sec"`
	ReleaseYear any                 `bson:"release_year"`
	Cover       any                 `bson:"cover"`
	AudioURL    any                 `bson:"audio_url"`
	CreatedAt   time.Time           `bson:"created_at"`
}

func newSongDocument(s *models.Song) (songDocument, error) {
	doc := songDocument{
		SongID:      s.SongID,
		Title:       s.Title,
		Album:       s.Album,
		DurationSec: s.DurationSec,
		ReleaseYear: s.ReleaseYear,
		Cover:       s.Cover,
		AudioURL:    s.AudioURL,
		CreatedAt:   s.CreatedAt,
	}
	if s.ArtistID != "" {
		oid, err := primitive.ObjectIDFromHex(s.ArtistID)
		if err != nil {
			return doc, fmt.Errorf("%w: artist_id %q", shared.ErrInvalidInput, s.ArtistID)
		}
		doc.ArtistID = &oid
	}
	return doc, nil
}

func (d songDocument) model() *models.Song {
	song := &models.Song{
		ID:          d.ID.Hex(),
		SongID:      text(d.SongID),
		Title:       text(d.Title),
		Album:       text(d.Album),
		DurationSec: number(d.DurationSec),
		ReleaseYear: text(d.ReleaseYear),
		Cover:       text(d.Cover),
		AudioURL:    text(d.AudioURL),
		CreatedAt:   d.CreatedAt,
	}
	if d.ArtistID != nil {
		song.ArtistID = d.ArtistID.Hex()
	}
	return song
}

type playlistDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	UserID    primitive.ObjectID `bson:"user_id"`
	CreatedAt time.Time          `bson:"created_at"`
}

func (d playlistDocument) model() *models.Playlist {
	return &models.Playlist{
		ID:        d.ID.Hex(),
		Name:      d.Name,
		UserID:    d.UserID.Hex(),
		CreatedAt: d.CreatedAt,
		Songs:     []models.Song{},
	}
}

type linkDocument struct {
	PlaylistID primitive.ObjectID `bson:"playlist_id"`
	SongID     primitive.ObjectID `bson:"song_id"`
}

// text renders a loosely typed BSON value as a string. Null and NaN become "".
func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return ""
		}
		if x == math.Trunc(x) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return fmt.Sprint(x)
	}
}

// number reads a loosely typed BSON value as seconds. Anything non-finite becomes 0.
func number(v any) float64 {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case string:
		f, _ = strconv.ParseFloat(x, 64)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// objectID parses a hex identifier, reporting malformed ids as notFound so lookups behave like a miss.
func objectID(id string, notFound error) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %s", notFound, id)
	}
	return oid, nil
}
