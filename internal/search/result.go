package search

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"
)

// Engine identifies a reverse image search backend.
type Engine string

const (
	EngineGoogle   Engine = "google"
	EngineBaidu    Engine = "baidu"
	EngineBing     Engine = "bing"
	EngineTinEye   Engine = "tineye"
	EngineYandex   Engine = "yandex"
	EngineSogou    Engine = "sogou"
	EngineSauceNAO Engine = "saucenao"
	EngineIQDB     Engine = "iqdb"
	EngineASCII2D  Engine = "ascii2d"
)

// EngineStatus is the per-engine progress reported by the background search.
type EngineStatus string

const (
	StatusDisabled EngineStatus = "disabled"
	StatusLoading  EngineStatus = "loading"
	StatusLoaded   EngineStatus = "loaded"
	StatusError    EngineStatus = "error"
)

func (s *EngineStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch EngineStatus(raw) {
	case StatusDisabled, StatusLoading, StatusLoaded, StatusError:
		*s = EngineStatus(raw)
		return nil
	}
	return fmt.Errorf("unknown engine status %q", raw)
}

// fallbackHeight is used when the backend could not report an image height,
// which is the aspect ratio of the placeholder shown for missing images.
const fallbackHeight = 264.0 / 475.0

// ImageInfo holds the pixel dimensions reported by a search engine. Either
// value may be missing or nonsensical.
type ImageInfo struct {
	Width  *float64 `json:"width,omitempty"`
	Height *float64 `json:"height,omitempty"`
}

// UnmarshalJSON drops dimensions that are not JSON numbers instead of failing
// the whole result.
func (i *ImageInfo) UnmarshalJSON(data []byte) error {
	var raw struct {
		Width  json.RawMessage `json:"width"`
		Height json.RawMessage `json:"height"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		// Engines sometimes send null or a bare string for imageInfo.
		*i = ImageInfo{}
		return nil
	}
	i.Width = number(raw.Width)
	i.Height = number(raw.Height)
	return nil
}

func number(raw json.RawMessage) *float64 {
	if len(raw) == 0 {
		return nil
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return &v
}

// ImageQuery echoes what a single engine searched for.
type ImageQuery struct {
	Engine      Engine `json:"engine"`
	Keyword     string `json:"keyword"`
	KeywordLink string `json:"keywordLink"`
}

// Item is one search hit as produced by the background search.
type Item struct {
	Description  string    `json:"description"`
	Title        string    `json:"title"`
	SourceURL    string    `json:"sourceUrl"`
	ImageURL     string    `json:"imageUrl"`
	ThumbURL     string    `json:"thumbUrl"`
	SearchEngine Engine    `json:"searchEngine"`
	Weight       float64   `json:"weight"`
	ImageInfo    ImageInfo `json:"imageInfo"`
}

// Width returns the reported width, or 1 when it is missing or invalid.
func (i Item) Width() float64 {
	if !valid(i.ImageInfo.Width) {
		return 1
	}
	return *i.ImageInfo.Width
}

// Height returns the reported height, or the placeholder ratio when it is
// missing or invalid.
func (i Item) Height() float64 {
	if !valid(i.ImageInfo.Height) {
		return fallbackHeight
	}
	return *i.ImageInfo.Height
}

// AspectRatio is Height/Width after defaults are applied.
func (i Item) AspectRatio() float64 {
	return i.Height() / i.Width()
}

func valid(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0) && *v > 0
}

// Result is everything stored for one search session.
type Result struct {
	URL             string                  `json:"url,omitempty"`
	Base64          string                  `json:"base64,omitempty"`
	EngineLink      map[Engine]string       `json:"engineLink,omitempty"`
	EngineStatus    map[Engine]EngineStatus `json:"engineStatus,omitempty"`
	SearchImageInfo []ImageQuery            `json:"searchImageInfo,omitempty"`
	SearchResult    []Item                  `json:"searchResult,omitempty"`
}

// Clone returns a copy that shares no maps or slices with r.
func (r Result) Clone() Result {
	out := r
	out.EngineLink = maps.Clone(r.EngineLink)
	out.EngineStatus = maps.Clone(r.EngineStatus)
	out.SearchImageInfo = slices.Clone(r.SearchImageInfo)
	out.SearchResult = slices.Clone(r.SearchResult)
	return out
}

// WithItems returns a copy of r whose result list is items.
func (r Result) WithItems(items []Item) Result {
	out := r.Clone()
	out.SearchResult = items
	return out
}

// Pending reports whether any engine is still searching.
func (r Result) Pending() bool {
	for _, status := range r.EngineStatus {
		if status == StatusLoading {
			return true
		}
	}
	return false
}
