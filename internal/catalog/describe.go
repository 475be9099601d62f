package catalog

import (
	"cmp"
	"fmt"
	"strings"

	"github.com/atinyakov/TalentKeeper/internal/models"
)

func humanize(s string) string {
	return strings.ReplaceAll(s, "_", " ")
}

// Describe derives a one-line description from a talent's attributes.
// When no attribute contributes, the stored description (or a name based
// fallback) is returned.
func Describe(t models.Talent) string {
	var parts []string

	if t.AgeGroup != "" && t.Gender != "" {
		parts = append(parts, humanize(t.AgeGroup)+" "+t.Gender)
	}
	if t.HairColor != "" && t.HairStyle != "" {
		parts = append(parts, humanize(t.HairStyle)+" "+humanize(t.HairColor)+" hair")
	}
	if t.SkinTone != "" {
		parts = append(parts, humanize(t.SkinTone)+" skin")
	}
	if t.EyeColor != "" {
		parts = append(parts, t.EyeColor+" eyes")
	}
	if t.Freckles {
		parts = append(parts, "with freckles")
	}
	if len(t.Tags) > 0 {
		parts = append(parts, strings.Join(t.Tags[:min(2, len(t.Tags))], ", ")+" style")
	}

	if len(parts) > 0 {
		return strings.Join(parts, "; ") + "."
	}
	if t.Description != "" {
		return t.Description
	}
	return "Talent: " + cmp.Or(t.Name, "Unknown")
}

// WithDescription returns t with Description filled in when it is empty.
func WithDescription(t models.Talent) models.Talent {
	if t.Description == "" {
		t.Description = Describe(t)
	}
	return t
}

// Metadata renders the multi-line summary shown next to a selected talent.
func Metadata(t models.Talent) string {
	lines := []string{
		"Name: " + cmp.Or(t.Name, "Unknown"),
		"ID: " + cmp.Or(t.ID, "N/A"),
	}
	if t.Gender != "" {
		lines = append(lines, "Gender: "+t.Gender)
	}
	if t.AgeGroup != "" {
		lines = append(lines, "Age Group: "+t.AgeGroup)
	}
	if t.Ethnicity != "" {
		lines = append(lines, "Ethnicity: "+t.Ethnicity)
	}
	if len(t.Tags) > 0 {
		lines = append(lines, "Tags: "+strings.Join(t.Tags, ", "))
	}
	if t.IsFavorite {
		lines = append(lines, fmt.Sprintf("Favorite: %t", t.IsFavorite))
	}
	return strings.Join(lines, "\n")
}
