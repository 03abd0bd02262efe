package models

// WatchLogEntry is one historical watch; ID is the upstream history id
type WatchLogEntry struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement:false" json:"id"`
	Type      MediaType `gorm:"column:type;not null" json:"type"`
	MediaID   int64     `gorm:"column:media_id;not null;index" json:"media_id"`
	WatchedAt string    `gorm:"column:watched_at;not null" json:"watched_at"`
}

func (WatchLogEntry) TableName() string { return TableWatchLog }

// Ref returns the polymorphic reference
func (e WatchLogEntry) Ref() MediaRef { return MediaRef{Type: e.Type, MediaID: e.MediaID} }

// CollectedEntry is one collection event; ID is a content hash
type CollectedEntry struct {
	ID          string    `gorm:"column:id;primaryKey" json:"id"`
	Type        MediaType `gorm:"column:type;not null" json:"type"`
	MediaID     int64     `gorm:"column:media_id;not null;index" json:"media_id"`
	CollectedAt string    `gorm:"column:collected_at;not null" json:"collected_at"`
}

func (CollectedEntry) TableName() string { return TableCollected }

// Ref returns the polymorphic reference
func (e CollectedEntry) Ref() MediaRef { return MediaRef{Type: e.Type, MediaID: e.MediaID} }

// RatedEntry is one rating; ID is a content hash
type RatedEntry struct {
	ID      string    `gorm:"column:id;primaryKey" json:"id"`
	Type    MediaType `gorm:"column:type;not null" json:"type"`
	MediaID int64     `gorm:"column:media_id;not null;index" json:"media_id"`
	Rating  int       `gorm:"column:rating;not null" json:"rating"`
	RatedAt string    `gorm:"column:rated_at" json:"rated_at"`
}

func (RatedEntry) TableName() string { return TableRatings }

// Ref returns the polymorphic reference
func (e RatedEntry) Ref() MediaRef { return MediaRef{Type: e.Type, MediaID: e.MediaID} }

// WatchlistEntry is one watchlist item; ID is the upstream list item id
type WatchlistEntry struct {
	ID            int64     `gorm:"column:id;primaryKey;autoIncrement:false" json:"id"`
	Type          MediaType `gorm:"column:type;not null" json:"type"`
	MediaID       int64     `gorm:"column:media_id;not null;index" json:"media_id"`
	WatchlistedAt string    `gorm:"column:watchlisted_at;not null" json:"watchlisted_at"`
}

func (WatchlistEntry) TableName() string { return TableWatchlist }

// Ref returns the polymorphic reference
func (e WatchlistEntry) Ref() MediaRef { return MediaRef{Type: e.Type, MediaID: e.MediaID} }
