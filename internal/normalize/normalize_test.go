package normalize

import (
	"encoding/json"
	"testing"

	"github.com/amaumene/traktdb/internal/models"
	"github.com/amaumene/traktdb/internal/services/trakt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustUnmarshal(t *testing.T, data string, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(data), v))
}

func TestShow(t *testing.T) {
	var raw trakt.Show
	mustUnmarshal(t, `{"title": "Parks and Recreation", "year": 2009,
		"ids": {"trakt": 406221, "slug": "parks-and-recreation", "tvdb": 1088061, "imdb": "tt1504148", "tmdb": 397635, "tvrage": null}}`, &raw)

	row, err := Show(&raw)
	require.NoError(t, err)
	assert.Equal(t, models.MediaTypeShow, row.Type)
	assert.Equal(t, int64(406221), row.ID)
	assert.Equal(t, row.ID, row.TraktID)
	assert.Equal(t, "Parks and Recreation", row.Title)
	assert.Equal(t, 2009, *row.Year)
	assert.Equal(t, "parks-and-recreation", *row.TraktSlug)
	assert.Equal(t, "tt1504148", *row.IMDBID)
	assert.Nil(t, row.TVRageID)
}

func TestEpisodeTakesShowID(t *testing.T) {
	var raw trakt.Episode
	mustUnmarshal(t, `{"season": 2, "number": 5, "title": "Sister City", "ids": {"trakt": 73482, "tvdb": 1}}`, &raw)

	row, err := Episode(&raw, 406221)
	require.NoError(t, err)
	assert.Equal(t, models.Episode{
		Type:    models.MediaTypeEpisode,
		ID:      73482,
		ShowID:  406221,
		Season:  2,
		Number:  5,
		Title:   raw.Title,
		TraktID: 73482,
		TVDBID:  raw.IDs.TVDB,
	}, row)
}

func TestMalformedRecords(t *testing.T) {
	tests := []struct {
		name  string
		run   func() error
		field string
	}{
		{"show without ids", func() error {
			_, err := Show(&trakt.Show{Title: strPtr("x")})
			return err
		}, "ids"},
		{"show without trakt id", func() error {
			_, err := Show(&trakt.Show{Title: strPtr("x"), IDs: &trakt.IDs{}})
			return err
		}, "ids.trakt"},
		{"show without title", func() error {
			_, err := Show(&trakt.Show{IDs: &trakt.IDs{Trakt: int64Ptr(1)}})
			return err
		}, "title"},
		{"nil movie", func() error {
			_, err := Movie(nil)
			return err
		}, "movie"},
		{"episode without number", func() error {
			_, err := Episode(&trakt.Episode{Season: intPtr(1), IDs: &trakt.IDs{Trakt: int64Ptr(1)}}, 1)
			return err
		}, "number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			require.ErrorIs(t, err, ErrMalformedRecord)

			var malformed *MalformedRecordError
			require.ErrorAs(t, err, &malformed)
			assert.Equal(t, tt.field, malformed.Field)
		})
	}
}

func TestSeasonsFlattensCatalog(t *testing.T) {
	var seasons []trakt.Season
	mustUnmarshal(t, `[
		{"number": 0, "ids": {"trakt": 900}, "episodes": [{"season": 0, "number": 1, "ids": {"trakt": 1}}]},
		{"number": 1, "ids": {"trakt": 901}, "episodes": [
			{"number": 1, "ids": {"trakt": 2}},
			{"season": 1, "number": 2, "ids": {}},
			{"season": 1, "number": 3, "ids": {"trakt": 3}}
		]}
	]`, &seasons)

	rows, errs := Seasons(seasons, 42)
	require.Len(t, rows, 3)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrMalformedRecord)

	for _, row := range rows {
		assert.Equal(t, int64(42), row.ShowID, "show id comes from the caller, not the season")
	}
	assert.Equal(t, 1, rows[1].Season)
	assert.Equal(t, int64(3), rows[2].ID)
}

func TestExtendedRows(t *testing.T) {
	var show trakt.ExtendedShow
	mustUnmarshal(t, `{"title": "Breaking Bad", "year": 2008, "ids": {"trakt": 1, "slug": "breaking-bad"},
		"overview": "Chemistry.", "network": "AMC", "aired_episodes": 62, "genres": ["drama"]}`, &show)
	showRow, err := ExtendedShow(&show)
	require.NoError(t, err)
	assert.Equal(t, "AMC", *showRow.Network)
	assert.Equal(t, 62, *showRow.AiredEpisodes)
	assert.Equal(t, models.MediaTypeShow, showRow.Type)

	var movie trakt.ExtendedMovie
	mustUnmarshal(t, `{"title": "TRON", "ids": {"trakt": 12}, "released": "1982-07-09"}`, &movie)
	movieRow, err := ExtendedMovie(&movie)
	require.NoError(t, err)
	assert.Equal(t, "1982-07-09", *movieRow.Released)

	var episode trakt.ExtendedEpisode
	mustUnmarshal(t, `{"season": 1, "number": 1, "ids": {"trakt": 62085}, "number_abs": 1}`, &episode)
	episodeRow, err := ExtendedEpisode(&episode, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), episodeRow.ShowID)
	assert.Equal(t, 1, *episodeRow.NumberAbs)

	_, err = ExtendedMovie(&trakt.ExtendedMovie{})
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestContentHashIsStable(t *testing.T) {
	row := Collected(models.MediaTypeEpisode, 10, "2023-01-01T00:00:00.000Z")
	assert.Equal(t, "d3a88bf2124527c23954d548861782980ac72d79", row.ID)
	assert.Equal(t, row.ID, Collected(models.MediaTypeEpisode, 10, "2023-01-01T00:00:00.000Z").ID)
	assert.NotEqual(t, row.ID, Collected(models.MediaTypeMovie, 10, "2023-01-01T00:00:00.000Z").ID)

	ratedAt := "2023-03-01T10:00:00.000Z"
	rated := Rated(models.MediaTypeMovie, 5, 8, ratedAt)
	assert.Equal(t, "7c2fd11bbe617e37db120b15c58789fc5b22d3cd", rated.ID)
	assert.Equal(t, ratedAt, rated.RatedAt)
	assert.NotEqual(t, rated.ID, Rated(models.MediaTypeMovie, 5, 9, ratedAt).ID)
}

func TestContentHashMatchesStoredColumns(t *testing.T) {
	rated := Rated(models.MediaTypeShow, 3, 7, "2023-03-01T10:00:00.000Z")
	assert.Equal(t, rated.ID, ContentHash(map[string]interface{}{
		"media_id": rated.MediaID,
		"rated_at": rated.RatedAt,
		"rating":   rated.Rating,
		"type":     rated.Type,
	}))

	collected := Collected(models.MediaTypeMovie, 12, "2023-01-01T00:00:00.000Z")
	assert.Equal(t, collected.ID, ContentHash(map[string]interface{}{
		"collected_at": collected.CollectedAt,
		"media_id":     collected.MediaID,
		"type":         collected.Type,
	}))
}

func TestGenreIndex(t *testing.T) {
	scifi := Genre(trakt.Genre{Name: "Science Fiction", Slug: "science-fiction"})
	assert.Equal(t, "9ace6def4fa33b5ebc36d0322852ca084d0b8da7", scifi.ID)
	drama := Genre(trakt.Genre{Name: "Drama", Slug: "drama"})

	idx := NewGenreIndex([]models.Genre{scifi, drama})

	g, ok := idx.Lookup("science-fiction")
	require.True(t, ok)
	assert.Equal(t, scifi.ID, g.ID)

	g, ok = idx.Lookup("SCIENCE fiction")
	require.True(t, ok)
	assert.Equal(t, scifi.ID, g.ID)

	matched, created := idx.Resolve([]string{"drama", "Drama", "war-and-politics"})
	require.Len(t, matched, 2)
	require.Len(t, created, 1)
	assert.Equal(t, "War And Politics", created[0].Name)
	assert.Equal(t, "war-and-politics", created[0].Slug)

	// Created genres are found on the next lookup
	_, created = idx.Resolve([]string{"war-and-politics"})
	assert.Empty(t, created)

	mapping := GenreMapping(models.MediaTypeShow, 1, drama.ID)
	assert.Equal(t, mapping.ID, GenreMapping(models.MediaTypeShow, 1, drama.ID).ID)
	assert.NotEqual(t, mapping.ID, GenreMapping(models.MediaTypeMovie, 1, drama.ID).ID)
}

func strPtr(s string) *string  { return &s }
func intPtr(i int) *int        { return &i }
func int64Ptr(i int64) *int64 { return &i }
