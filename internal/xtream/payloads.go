package xtream

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// ErrMalformed is returned when an upstream body is not JSON at all.
var ErrMalformed = errors.New("xtream: malformed response body")

// StreamMetadata is the subset of probe data shown for a video/audio track.
type StreamMetadata struct {
	CodecName FlexString `json:"codec_name"`
	Profile   FlexString `json:"profile"`
	Width     FlexInt    `json:"width"`
	Height    FlexInt    `json:"height"`
	Channels  FlexInt    `json:"channels"`
	BitRate   FlexString `json:"bit_rate"`
}

func (m *StreamMetadata) UnmarshalJSON(b []byte) error {
	*m = StreamMetadata{}
	if !isObject(b) {
		return nil
	}
	type plain StreamMetadata
	return json.Unmarshal(b, (*plain)(m))
}

// MediaInfo is the technical block attached to an episode.
type MediaInfo struct {
	DurationSecs FlexInt        `json:"duration_secs"`
	Duration     FlexString     `json:"duration"`
	Bitrate      FlexInt        `json:"bitrate"`
	Video        StreamMetadata `json:"video"`
	Audio        StreamMetadata `json:"audio"`
}

func (m *MediaInfo) UnmarshalJSON(b []byte) error {
	*m = MediaInfo{}
	if !isObject(b) {
		return nil
	}
	type plain MediaInfo
	return json.Unmarshal(b, (*plain)(m))
}

// --- movies ---

// VodDetails is the "info" object of get_vod_info.
type VodDetails struct {
	Name           FlexString     `json:"name"`
	MovieImage     FlexString     `json:"movie_image"`
	TMDBID         FlexString     `json:"tmdb_id"`
	Backdrop       FlexString     `json:"backdrop"`
	YoutubeTrailer FlexString     `json:"youtube_trailer"`
	Genre          FlexString     `json:"genre"`
	Plot           FlexString     `json:"plot"`
	Cast           FlexString     `json:"cast"`
	Rating         FlexString     `json:"rating"`
	Director       FlexString     `json:"director"`
	ReleaseDate    FlexString     `json:"releasedate"`
	BackdropPath   StringList     `json:"backdrop_path"`
	DurationSecs   FlexInt        `json:"duration_secs"`
	Duration       FlexString     `json:"duration"`
	Bitrate        FlexInt        `json:"bitrate"`
	Video          StreamMetadata `json:"video"`
	Audio          StreamMetadata `json:"audio"`
}

func (d *VodDetails) UnmarshalJSON(b []byte) error {
	*d = VodDetails{}
	if !isObject(b) {
		return nil
	}
	type plain VodDetails
	return json.Unmarshal(b, (*plain)(d))
}

// MovieData is the "movie_data" object of get_vod_info.
type MovieData struct {
	StreamID           FlexInt    `json:"stream_id"`
	Name               FlexString `json:"name"`
	Added              FlexString `json:"added"`
	CategoryID         FlexString `json:"category_id"`
	ContainerExtension FlexString `json:"container_extension"`
	CustomSID          FlexString `json:"custom_sid"`
	DirectSource       FlexString `json:"direct_source"`
}

func (d *MovieData) UnmarshalJSON(b []byte) error {
	*d = MovieData{}
	if !isObject(b) {
		return nil
	}
	type plain MovieData
	return json.Unmarshal(b, (*plain)(d))
}

// VodInfo is a parsed get_vod_info payload.
type VodInfo struct {
	VodID int        `json:"vodId"`
	Info  VodDetails `json:"info"`
	Movie MovieData  `json:"movie_data"`
}

// Title prefers the stream name, falling back to the info block.
func (v *VodInfo) Title() string {
	if v.Movie.Name != "" {
		return v.Movie.Name.String()
	}
	return v.Info.Name.String()
}

func (v *VodInfo) Extension() string { return v.Movie.ContainerExtension.String() }

// StreamID is the id used in content URLs and download refs.
func (v *VodInfo) StreamID() int {
	if id := v.Movie.StreamID.Int(); id != 0 {
		return id
	}
	return v.VodID
}

// ParseVodInfo decodes a get_vod_info body. Anything that is valid JSON
// yields a result; missing blocks resolve to zero values.
func ParseVodInfo(vodID int, body []byte) (*VodInfo, error) {
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: vod %d", ErrMalformed, vodID)
	}
	v := &VodInfo{}
	if isObject(body) {
		if err := json.Unmarshal(body, v); err != nil {
			return nil, fmt.Errorf("xtream: decode vod %d: %w", vodID, err)
		}
	}
	v.VodID = vodID
	return v, nil
}

// --- series ---

// SeriesDetails is the "info" object of get_series_info.
type SeriesDetails struct {
	Name           FlexString `json:"name"`
	Cover          FlexString `json:"cover"`
	Plot           FlexString `json:"plot"`
	Cast           FlexString `json:"cast"`
	Director       FlexString `json:"director"`
	Genre          FlexString `json:"genre"`
	ReleaseDate    FlexString `json:"releaseDate"`
	LastModified   FlexString `json:"last_modified"`
	Rating         FlexString `json:"rating"`
	Rating5Based   FlexFloat  `json:"rating_5based"`
	BackdropPath   StringList `json:"backdrop_path"`
	YoutubeTrailer FlexString `json:"youtube_trailer"`
	EpisodeRunTime FlexString `json:"episode_run_time"`
	CategoryID     FlexString `json:"category_id"`
}

func (d *SeriesDetails) UnmarshalJSON(b []byte) error {
	*d = SeriesDetails{}
	if !isObject(b) {
		return nil
	}
	type plain SeriesDetails
	return json.Unmarshal(b, (*plain)(d))
}

type Season struct {
	SeasonNumber FlexInt    `json:"season_number"`
	Name         FlexString `json:"name"`
	EpisodeCount FlexInt    `json:"episode_count"`
	AirDate      FlexString `json:"air_date"`
	Cover        FlexString `json:"cover"`
}

// SeasonList tolerates a non-array "seasons" value.
type SeasonList []Season

func (l *SeasonList) UnmarshalJSON(b []byte) error {
	*l = nil
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil
	}
	for _, r := range raw {
		var s Season
		if isObject(r) && json.Unmarshal(r, &s) == nil {
			*l = append(*l, s)
		}
	}
	return nil
}

type Episode struct {
	ID                 FlexString `json:"id"`
	EpisodeNum         FlexInt    `json:"episode_num"`
	Title              FlexString `json:"title"`
	ContainerExtension FlexString `json:"container_extension"`
	Season             FlexInt    `json:"season"`
	Info               MediaInfo  `json:"info"`
	CustomSID          FlexString `json:"custom_sid"`
	Added              FlexString `json:"added"`
	DirectSource       FlexString `json:"direct_source"`
}

// NumericID parses the episode id used in content URLs.
func (e *Episode) NumericID() (int, error) {
	return strconv.Atoi(e.ID.String())
}

// EpisodeMap groups episodes by season number. Upstream sends either an
// object keyed by season or an array of per-season arrays.
type EpisodeMap map[int][]Episode

func (m *EpisodeMap) UnmarshalJSON(b []byte) error {
	*m = EpisodeMap{}
	if isObject(b) {
		var byKey map[string][]json.RawMessage
		if err := json.Unmarshal(b, &byKey); err != nil {
			return nil
		}
		for k, eps := range byKey {
			season, _ := strconv.Atoi(k)
			m.add(season, eps)
		}
		return nil
	}
	var lists [][]json.RawMessage
	if err := json.Unmarshal(b, &lists); err != nil {
		return nil
	}
	for i, eps := range lists {
		m.add(i+1, eps)
	}
	return nil
}

func (m EpisodeMap) add(season int, raw []json.RawMessage) {
	for _, r := range raw {
		var ep Episode
		if !isObject(r) || json.Unmarshal(r, &ep) != nil {
			continue
		}
		if ep.Season == 0 {
			ep.Season = FlexInt(season)
		}
		s := ep.Season.Int()
		m[s] = append(m[s], ep)
	}
}

// SeriesInfo is a parsed get_series_info payload.
type SeriesInfo struct {
	SeriesID int           `json:"seriesId"`
	Info     SeriesDetails `json:"info"`
	Seasons  SeasonList    `json:"seasons"`
	Episodes EpisodeMap    `json:"episodes"`
}

func (s *SeriesInfo) Title() string { return s.Info.Name.String() }

// Episode finds an episode by season and episode number.
func (s *SeriesInfo) Episode(season, num int) (*Episode, bool) {
	for i := range s.Episodes[season] {
		ep := &s.Episodes[season][i]
		if ep.EpisodeNum.Int() == num {
			return ep, true
		}
	}
	return nil, false
}

// EpisodeByID finds an episode by its upstream id.
func (s *SeriesInfo) EpisodeByID(id string) (*Episode, bool) {
	for season := range s.Episodes {
		for i := range s.Episodes[season] {
			if s.Episodes[season][i].ID.String() == id {
				return &s.Episodes[season][i], true
			}
		}
	}
	return nil, false
}

// AllEpisodes returns every episode ordered by season then episode number.
func (s *SeriesInfo) AllEpisodes() []*Episode {
	var out []*Episode
	for season := range s.Episodes {
		for i := range s.Episodes[season] {
			out = append(out, &s.Episodes[season][i])
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Season != out[j].Season {
			return out[i].Season < out[j].Season
		}
		return out[i].EpisodeNum < out[j].EpisodeNum
	})
	return out
}

// ParseSeriesInfo decodes a get_series_info body with the same leniency as
// ParseVodInfo.
func ParseSeriesInfo(seriesID int, body []byte) (*SeriesInfo, error) {
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: series %d", ErrMalformed, seriesID)
	}
	s := &SeriesInfo{Episodes: EpisodeMap{}}
	if isObject(body) {
		if err := json.Unmarshal(body, s); err != nil {
			return nil, fmt.Errorf("xtream: decode series %d: %w", seriesID, err)
		}
	}
	if s.Episodes == nil {
		s.Episodes = EpisodeMap{}
	}
	s.SeriesID = seriesID
	return s, nil
}

// --- listings ---

type VodStream struct {
	Num                FlexInt    `json:"num"`
	Name               FlexString `json:"name"`
	StreamID           FlexInt    `json:"stream_id"`
	StreamIcon         FlexString `json:"stream_icon"`
	Rating             FlexString `json:"rating"`
	Added              FlexString `json:"added"`
	CategoryID         FlexString `json:"category_id"`
	ContainerExtension FlexString `json:"container_extension"`
}

type SeriesListing struct {
	Num          FlexInt    `json:"num"`
	Name         FlexString `json:"name"`
	SeriesID     FlexInt    `json:"series_id"`
	Cover        FlexString `json:"cover"`
	Plot         FlexString `json:"plot"`
	Genre        FlexString `json:"genre"`
	ReleaseDate  FlexString `json:"releaseDate"`
	Rating       FlexString `json:"rating"`
	CategoryID   FlexString `json:"category_id"`
	LastModified FlexString `json:"last_modified"`
}

// parseList decodes a listing; non-array bodies yield an empty list and
// entries that are not objects are skipped.
func parseList[T any](body []byte) ([]T, error) {
	if !json.Valid(body) {
		return nil, ErrMalformed
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return []T{}, nil
	}
	out := make([]T, 0, len(raw))
	for _, r := range raw {
		var v T
		if isObject(r) && json.Unmarshal(r, &v) == nil {
			out = append(out, v)
		}
	}
	return out, nil
}
