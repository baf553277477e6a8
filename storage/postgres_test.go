package storage

import (
	"context"
	"database/sql"
	"io"
	"os"
	"testing"

	"ewintr.nl/eduvid/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func TestCompareMigrations(t *testing.T) {
	for _, tc := range []struct {
		name     string
		wanted   []string
		existing []string
		exp      []string
		expErr   bool
	}{
		{
			name:   "fresh database",
			wanted: []string{"a", "b"},
			exp:    []string{"a", "b"},
		},
		{
			name:     "up to date",
			wanted:   []string{"a", "b"},
			existing: []string{"a", "b"},
			exp:      []string{},
		},
		{
			name:     "new migration",
			wanted:   []string{"a", "b", "c"},
			existing: []string{"a", "b"},
			exp:      []string{"c"},
		},
		{
			name:     "changed migration",
			wanted:   []string{"a", "x"},
			existing: []string{"a", "b"},
			expErr:   true,
		},
		{
			name:     "database ahead",
			wanted:   []string{"a"},
			existing: []string{"a", "b"},
			expErr:   true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			act, err := compareMigrations(tc.wanted, tc.existing)
			if tc.expErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.exp, act)
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	info := PostgresInfo{Host: "db", Port: "5432", User: "u", Password: "p", Database: "eduvid"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=eduvid sslmode=disable", info.DSN())
}

// TestPostgres needs a disposable database, for instance
// POSTGRES_TEST_DSN="host=localhost port=5432 user=eduvid password=eduvid dbname=eduvid_test sslmode=disable"
func TestPostgres(t *testing.T) {
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}

	ctx := context.Background()
	pg, err := NewPostgres(ctx, dsn, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer pg.Close()
	resetTables(t, pg.db)

	videoRepo := NewPostgresVideoRepository(pg)
	channelRepo := NewPostgresChannelRepository(pg)

	t.Run("videos", func(t *testing.T) {
		require.NoError(t, videoRepo.InsertMany(ctx, sampleVideos("a", "b")))
		assert.ErrorIs(t, videoRepo.InsertMany(ctx, sampleVideos("a")), ErrDuplicate)

		_, err := videoRepo.FindByYoutubeID(ctx, "z")
		assert.ErrorIs(t, err, ErrNotFound)

		concepts := []model.Concept{{Title: "t", Reference: "r", Description: "d"}}
		require.NoError(t, videoRepo.SaveConcepts(ctx, "a", "text", concepts))
		assert.ErrorIs(t, videoRepo.SaveConcepts(ctx, "z", "text", concepts), ErrNotFound)

		v, err := videoRepo.FindByYoutubeID(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "text", v.Transcript)
		assert.Equal(t, concepts, v.Concepts)
	})

	t.Run("replace all", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			require.NoError(t, videoRepo.ReplaceAll(ctx, sampleVideos("x", "y")))
		}
		all, err := videoRepo.FindAll(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []model.YoutubeVideoID{"x", "y"}, youtubeIDs(all))

		assert.ErrorIs(t, videoRepo.ReplaceAll(ctx, sampleVideos("p", "p")), ErrDuplicate)
		all, err = videoRepo.FindAll(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []model.YoutubeVideoID{"x", "y"}, youtubeIDs(all))
	})

	t.Run("channels", func(t *testing.T) {
		assert.ErrorIs(t, channelRepo.AddVideo(ctx, "chan", "x"), ErrNotFound)

		require.NoError(t, channelRepo.Save(ctx, &model.Channel{Name: "Channel", YoutubeChannelID: "chan", VideoIDs: []model.YoutubeVideoID{"x"}}))
		require.NoError(t, channelRepo.AddVideo(ctx, "chan", "y"))
		require.NoError(t, channelRepo.AddVideo(ctx, "chan", "x"))

		c, err := channelRepo.FindByYoutubeChannelID(ctx, "chan")
		require.NoError(t, err)
		assert.Equal(t, "Channel", c.Name)
		assert.Equal(t, []model.YoutubeVideoID{"x", "y"}, c.VideoIDs)
	})
}

func resetTables(t *testing.T, db *sql.DB) {
	t.Helper()
	for _, table := range []string{"channel_video", "channel", "video"} {
		_, err := db.Exec("DELETE FROM " + table)
		require.NoError(t, err)
	}
}
