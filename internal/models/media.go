package models

// Show is a normalized show row keyed by its trakt id
type Show struct {
	Type      MediaType `gorm:"column:type;default:show" json:"type"`
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement:false" json:"id"`
	Title     string    `gorm:"column:title;not null" json:"title"`
	Year      *int      `gorm:"column:year" json:"year"`
	TraktID   int64     `gorm:"column:trakt_id;not null" json:"trakt_id"`
	TraktSlug *string   `gorm:"column:trakt_slug" json:"trakt_slug"`
	TVDBID    *int64    `gorm:"column:tvdb_id" json:"tvdb_id"`
	IMDBID    *string   `gorm:"column:imdb_id" json:"imdb_id"`
	TMDBID    *int64    `gorm:"column:tmdb_id" json:"tmdb_id"`
	TVRageID  *int64    `gorm:"column:tvrage_id" json:"tvrage_id"`
}

func (Show) TableName() string { return TableShow }

// Episode is a normalized episode row; ShowID must exist in the show table first
type Episode struct {
	Type     MediaType `gorm:"column:type;default:episode" json:"type"`
	ID       int64     `gorm:"column:id;primaryKey;autoIncrement:false" json:"id"`
	ShowID   int64     `gorm:"column:show_id;not null;index" json:"show_id"`
	Season   int       `gorm:"column:season;not null" json:"season"`
	Number   int       `gorm:"column:number;not null" json:"number"`
	Title    *string   `gorm:"column:title" json:"title"`
	TraktID  int64     `gorm:"column:trakt_id;not null" json:"trakt_id"`
	TVDBID   *int64    `gorm:"column:tvdb_id" json:"tvdb_id"`
	IMDBID   *string   `gorm:"column:imdb_id" json:"imdb_id"`
	TMDBID   *int64    `gorm:"column:tmdb_id" json:"tmdb_id"`
	TVRageID *int64    `gorm:"column:tvrage_id" json:"tvrage_id"`

	Show *Show `gorm:"foreignKey:ShowID;references:ID" json:"-"`
}

func (Episode) TableName() string { return TableEpisode }

// Movie is a normalized movie row keyed by its trakt id
type Movie struct {
	Type      MediaType `gorm:"column:type;default:movie" json:"type"`
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement:false" json:"id"`
	Title     string    `gorm:"column:title;not null" json:"title"`
	Year      *int      `gorm:"column:year" json:"year"`
	TraktID   int64     `gorm:"column:trakt_id;not null" json:"trakt_id"`
	TraktSlug *string   `gorm:"column:trakt_slug" json:"trakt_slug"`
	IMDBID    *string   `gorm:"column:imdb_id" json:"imdb_id"`
	TMDBID    *int64    `gorm:"column:tmdb_id" json:"tmdb_id"`
}

func (Movie) TableName() string { return TableMovie }

// Genre is shared by all extended entities
type Genre struct {
	ID   string `gorm:"column:id;primaryKey" json:"id"`
	Name string `gorm:"column:name;not null" json:"name"`
	Slug string `gorm:"column:slug" json:"slug"`
}

func (Genre) TableName() string { return TableGenre }

// GenreMapping links one extended entity to one genre
type GenreMapping struct {
	ID      string    `gorm:"column:id;primaryKey" json:"id"`
	Type    MediaType `gorm:"column:type;not null" json:"type"`
	MediaID int64     `gorm:"column:media_id;not null;index" json:"media_id"`
	GenreID string    `gorm:"column:genre_id;not null" json:"genre_id"`

	Genre *Genre `gorm:"foreignKey:GenreID;references:ID" json:"-"`
}

func (GenreMapping) TableName() string { return TableGenreMapping }
