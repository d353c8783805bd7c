package models

import "strconv"

// Media types understood by the catalogue and by the sync layer.
const (
	MediaTypeMovie = "movie"
	MediaTypeTV    = "tv"
)

// Genre is a catalogue genre reference.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Video is a trailer/clip reference attached to a title.
type Video struct {
	Key  string `json:"key"`
	Site string `json:"site"`
	Type string `json:"type"`
	Name string `json:"name"`
}

// ExternalIDs holds cross-catalogue identifiers for a title.
type ExternalIDs struct {
	IMDBID string `json:"imdb_id,omitempty"`
}

// Media is the denormalized display snapshot of a movie or TV title. Field
// names follow the catalogue wire format so snapshots stored by the web client
// and by this server stay interchangeable.
type Media struct {
	ID               int          `json:"id"`
	Title            string       `json:"title,omitempty"`
	Name             string       `json:"name,omitempty"`
	Overview         string       `json:"overview"`
	PosterPath       string       `json:"poster_path"`
	BackdropPath     string       `json:"backdrop_path"`
	VoteAverage      float64      `json:"vote_average"`
	ReleaseDate      string       `json:"release_date,omitempty"`
	FirstAirDate     string       `json:"first_air_date,omitempty"`
	MediaType        string       `json:"media_type"` // movie | tv
	Genres           []Genre      `json:"genres,omitempty"`
	GenreIDs         []int        `json:"genre_ids,omitempty"`
	Runtime          int          `json:"runtime,omitempty"`
	Popularity       float64      `json:"popularity"`
	NumberOfSeasons  int          `json:"number_of_seasons,omitempty"`
	NumberOfEpisodes int          `json:"number_of_episodes,omitempty"`
	Seasons          []Season     `json:"seasons,omitempty"`
	OriginalLanguage string       `json:"original_language,omitempty"`
	ExternalIDs      *ExternalIDs `json:"external_ids,omitempty"`
	Videos           *struct {
		Results []Video `json:"results"`
	} `json:"videos,omitempty"`
}

// DisplayTitle returns the movie title or series name, whichever is set.
func (m Media) DisplayTitle() string {
	if m.Title != "" {
		return m.Title
	}
	return m.Name
}

// Key returns a stable identifier combining media type and catalogue ID.
func (m Media) Key() string {
	return m.MediaType + ":" + strconv.Itoa(m.ID)
}

// Season summarises one season of a series.
type Season struct {
	SeasonNumber int    `json:"season_number"`
	EpisodeCount int    `json:"episode_count"`
	Name         string `json:"name"`
	PosterPath   string `json:"poster_path"`
}

// Episode summarises one episode of a season.
type Episode struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Overview      string `json:"overview"`
	EpisodeNumber int    `json:"episode_number"`
	SeasonNumber  int    `json:"season_number"`
	StillPath     string `json:"still_path"`
	AirDate       string `json:"air_date"`
}
