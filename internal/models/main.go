// Package models defines the core data structures for talents, catalogs and filters.
package models

import (
	"encoding/json"
	"regexp"
	"time"
)

// idPattern is the safe identifier pattern. Talent ids are used directly
// in file names, so every filesystem path built from an id must pass it.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidID reports whether id may be used to build a filesystem path.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// Talent is a catalog entry describing a person with metadata and an image.
type Talent struct {
	// ID is unique within a catalog and immutable once assigned.
	ID        string `json:"id"`
	Name      string `json:"name"`
	Gender    string `json:"gender,omitempty"`
	AgeGroup  string `json:"age_group,omitempty"`
	Ethnicity string `json:"ethnicity,omitempty"`
	SkinTone  string `json:"skin_tone,omitempty"`
	HairColor string `json:"hair_color,omitempty"`
	HairStyle string `json:"hair_style,omitempty"`
	EyeColor  string `json:"eye_color,omitempty"`
	BodyType  string `json:"body_type,omitempty"`
	Freckles  bool   `json:"freckles"`
	// Tags keep their stored case; filtering compares them case-insensitively.
	Tags []string `json:"tags"`
	// Description is optional; when empty it is derived on read and not persisted.
	Description string `json:"description,omitempty"`
	// ImagePath is an absolute remote URL or a path relative to the catalog directory.
	ImagePath     string  `json:"image_path"`
	Copyright     string  `json:"copyright,omitempty"`
	DownloadURL   string  `json:"download_url,omitempty"`
	Rating        float64 `json:"rating,omitempty"`
	PortfolioSize int     `json:"portfolio_size,omitempty"`
	IsFavorite    bool    `json:"is_favorite"`

	// ThumbnailURL and FullImageURL are filled in for responses only.
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	FullImageURL string `json:"full_image_url,omitempty"`
}

// MarshalJSON always encodes tags as an array.
func (t Talent) MarshalJSON() ([]byte, error) {
	type alias Talent
	a := alias(t)
	if a.Tags == nil {
		a.Tags = []string{}
	}
	return json.Marshal(a)
}

// Stored returns a copy of t without the response-only fields.
func (t Talent) Stored() Talent {
	t.ThumbnailURL = ""
	t.FullImageURL = ""
	return t
}

// Catalog is a versioned collection of talents.
type Catalog struct {
	Version     string   `json:"version"`
	Description string   `json:"description,omitempty"`
	Created     string   `json:"created,omitempty"`
	LastUpdated string   `json:"last_updated,omitempty"`
	Talents     []Talent `json:"talents"`
}

// DateLayout is the format of Created and LastUpdated.
const DateLayout = "2006-01-02"

// MarshalJSON always encodes talents as an array.
func (c Catalog) MarshalJSON() ([]byte, error) {
	type alias Catalog
	a := alias(c)
	if a.Talents == nil {
		a.Talents = []Talent{}
	}
	return json.Marshal(a)
}

// IndexOf returns the position of the talent with the given id, or -1.
func (c *Catalog) IndexOf(id string) int {
	for i := range c.Talents {
		if c.Talents[i].ID == id {
			return i
		}
	}
	return -1
}

// Find returns a pointer into Talents for the given id, or nil.
func (c *Catalog) Find(id string) *Talent {
	if i := c.IndexOf(id); i >= 0 {
		return &c.Talents[i]
	}
	return nil
}

// Touch sets LastUpdated to the date of now.
func (c *Catalog) Touch(now time.Time) {
	c.LastUpdated = now.Format(DateLayout)
}

// TagLogic selects how multiple tag filters combine.
type TagLogic string

const (
	// TagLogicOR keeps talents carrying at least one requested tag.
	TagLogicOR TagLogic = "OR"
	// TagLogicAND keeps talents carrying every requested tag.
	TagLogicAND TagLogic = "AND"
)

// FilterSpec configures the filter engine. Empty fields impose no constraint.
type FilterSpec struct {
	NameFilter    string
	TagFilter     []string
	TagLogic      TagLogic
	Gender        string
	AgeGroup      string
	Ethnicity     string
	SkinTone      string
	HairColor     string
	HairStyle     string
	EyeColor      string
	BodyType      string
	FavoritesOnly bool
}

// AccessDecision is the per-request result of a remote catalog access check.
// It is never persisted.
type AccessDecision struct {
	Authenticated   bool   `json:"authenticated"`
	TierMet         bool   `json:"tier_met"`
	IsCreator       bool   `json:"is_creator"`
	IsPatron        bool   `json:"is_patron"`
	EntitledCents   int    `json:"entitled_cents"`
	TierRequirement int    `json:"tier_requirement"`
	User            string `json:"user,omitempty"`
}
