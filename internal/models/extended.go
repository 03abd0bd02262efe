package models

// ExtendedShow is a show row plus the full upstream metadata
type ExtendedShow struct {
	Type          MediaType `gorm:"column:type;default:show" json:"type"`
	ID            int64     `gorm:"column:id;primaryKey;autoIncrement:false" json:"id"`
	Title         string    `gorm:"column:title;not null" json:"title"`
	Year          *int      `gorm:"column:year" json:"year"`
	TraktID       int64     `gorm:"column:trakt_id;not null" json:"trakt_id"`
	TraktSlug     *string   `gorm:"column:trakt_slug" json:"trakt_slug"`
	TVDBID        *int64    `gorm:"column:tvdb_id" json:"tvdb_id"`
	IMDBID        *string   `gorm:"column:imdb_id" json:"imdb_id"`
	TMDBID        *int64    `gorm:"column:tmdb_id" json:"tmdb_id"`
	TVRageID      *int64    `gorm:"column:tvrage_id" json:"tvrage_id"`
	Overview      *string   `gorm:"column:overview" json:"overview"`
	FirstAired    *string   `gorm:"column:first_aired" json:"first_aired"`
	Runtime       *int      `gorm:"column:runtime" json:"runtime"`
	Certification *string   `gorm:"column:certification" json:"certification"`
	Network       *string   `gorm:"column:network" json:"network"`
	Country       *string   `gorm:"column:country" json:"country"`
	Trailer       *string   `gorm:"column:trailer" json:"trailer"`
	Homepage      *string   `gorm:"column:homepage" json:"homepage"`
	Status        *string   `gorm:"column:status" json:"status"`
	Language      *string   `gorm:"column:language" json:"language"`
	AiredEpisodes *int      `gorm:"column:aired_episodes" json:"aired_episodes"`
	Rating        *float64  `gorm:"column:rating" json:"rating"`
	Votes         *int      `gorm:"column:votes" json:"votes"`
	CommentCount  *int      `gorm:"column:comment_count" json:"comment_count"`
}

func (ExtendedShow) TableName() string { return TableExtendedShow }

// ExtendedEpisode is an episode row plus the full upstream metadata
type ExtendedEpisode struct {
	Type         MediaType `gorm:"column:type;default:episode" json:"type"`
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement:false" json:"id"`
	ShowID       int64     `gorm:"column:show_id;not null;index" json:"show_id"`
	Season       int       `gorm:"column:season;not null" json:"season"`
	Number       int       `gorm:"column:number;not null" json:"number"`
	NumberAbs    *int      `gorm:"column:number_abs" json:"number_abs"`
	Title        *string   `gorm:"column:title" json:"title"`
	TraktID      int64     `gorm:"column:trakt_id;not null" json:"trakt_id"`
	TVDBID       *int64    `gorm:"column:tvdb_id" json:"tvdb_id"`
	IMDBID       *string   `gorm:"column:imdb_id" json:"imdb_id"`
	TMDBID       *int64    `gorm:"column:tmdb_id" json:"tmdb_id"`
	TVRageID     *int64    `gorm:"column:tvrage_id" json:"tvrage_id"`
	Overview     *string   `gorm:"column:overview" json:"overview"`
	FirstAired   *string   `gorm:"column:first_aired" json:"first_aired"`
	Runtime      *int      `gorm:"column:runtime" json:"runtime"`
	Rating       *float64  `gorm:"column:rating" json:"rating"`
	Votes        *int      `gorm:"column:votes" json:"votes"`
	CommentCount *int      `gorm:"column:comment_count" json:"comment_count"`

	Show *Show `gorm:"foreignKey:ShowID;references:ID" json:"-"`
}

func (ExtendedEpisode) TableName() string { return TableExtendedEpisode }

// ExtendedMovie is a movie row plus the full upstream metadata
type ExtendedMovie struct {
	Type          MediaType `gorm:"column:type;default:movie" json:"type"`
	ID            int64     `gorm:"column:id;primaryKey;autoIncrement:false" json:"id"`
	Title         string    `gorm:"column:title;not null" json:"title"`
	Year          *int      `gorm:"column:year" json:"year"`
	TraktID       int64     `gorm:"column:trakt_id;not null" json:"trakt_id"`
	TraktSlug     *string   `gorm:"column:trakt_slug" json:"trakt_slug"`
	IMDBID        *string   `gorm:"column:imdb_id" json:"imdb_id"`
	TMDBID        *int64    `gorm:"column:tmdb_id" json:"tmdb_id"`
	Tagline       *string   `gorm:"column:tagline" json:"tagline"`
	Overview      *string   `gorm:"column:overview" json:"overview"`
	Released      *string   `gorm:"column:released" json:"released"`
	Runtime       *int      `gorm:"column:runtime" json:"runtime"`
	Country       *string   `gorm:"column:country" json:"country"`
	Trailer       *string   `gorm:"column:trailer" json:"trailer"`
	Homepage      *string   `gorm:"column:homepage" json:"homepage"`
	Status        *string   `gorm:"column:status" json:"status"`
	Rating        *float64  `gorm:"column:rating" json:"rating"`
	Votes         *int      `gorm:"column:votes" json:"votes"`
	CommentCount  *int      `gorm:"column:comment_count" json:"comment_count"`
	Language      *string   `gorm:"column:language" json:"language"`
	Certification *string   `gorm:"column:certification" json:"certification"`
}

func (ExtendedMovie) TableName() string { return TableExtendedMovie }
