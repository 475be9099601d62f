package remote

import (
	"strings"

	"github.com/atinyakov/TalentKeeper/internal/models"
)

// AbsoluteImageURLs returns copies of talents whose image references are
// absolute URLs. Relative image paths are resolved against baseURL.
func AbsoluteImageURLs(talents []models.Talent, baseURL string) []models.Talent {
	base := strings.TrimRight(baseURL, "/")
	out := make([]models.Talent, len(talents))
	for i, t := range talents {
		if p := t.ImagePath; p != "" {
			if !strings.HasPrefix(p, "http") {
				p = base + "/" + strings.TrimLeft(p, "/")
				t.ImagePath = p
			}
			t.ThumbnailURL = p
			t.FullImageURL = p
		}
		out[i] = t
	}
	return out
}

// ImageURL picks the URL an image should be downloaded from.
func ImageURL(t models.Talent) string {
	switch {
	case t.ImagePath != "":
		return t.ImagePath
	case t.FullImageURL != "":
		return t.FullImageURL
	default:
		return t.ThumbnailURL
	}
}
