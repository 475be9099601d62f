// Package catalog holds the source-independent catalog logic: filtering,
// pagination, description generation and catalog bootstrapping.
package catalog

import (
	"strings"

	"github.com/atinyakov/TalentKeeper/internal/models"
)

// Filter returns the talents matching spec, in input order.
// The input slice is not modified. Local and remote talents go through the
// same predicates.
func Filter(talents []models.Talent, spec models.FilterSpec) []models.Talent {
	name := strings.ToLower(strings.TrimSpace(spec.NameFilter))
	tags := normalizeTags(spec.TagFilter)

	out := make([]models.Talent, 0, len(talents))
	for _, t := range talents {
		if name != "" && !strings.Contains(strings.ToLower(t.Name), name) {
			continue
		}
		if !attrMatches(spec, t) {
			continue
		}
		if spec.FavoritesOnly && !t.IsFavorite {
			continue
		}
		if len(tags) > 0 && !tagsMatch(t.Tags, tags, spec.TagLogic) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func attrMatches(spec models.FilterSpec, t models.Talent) bool {
	pairs := [...][2]string{
		{spec.Gender, t.Gender},
		{spec.AgeGroup, t.AgeGroup},
		{spec.Ethnicity, t.Ethnicity},
		{spec.SkinTone, t.SkinTone},
		{spec.HairColor, t.HairColor},
		{spec.HairStyle, t.HairStyle},
		{spec.EyeColor, t.EyeColor},
		{spec.BodyType, t.BodyType},
	}
	for _, p := range pairs {
		if p[0] != "" && p[0] != p[1] {
			return false
		}
	}
	return true
}

func tagsMatch(have []string, want []string, logic models.TagLogic) bool {
	set := make(map[string]struct{}, len(have))
	for _, h := range have {
		set[strings.ToLower(h)] = struct{}{}
	}

	if logic == models.TagLogicAND {
		for _, w := range want {
			if _, ok := set[w]; !ok {
				return false
			}
		}
		return true
	}

	for _, w := range want {
		if _, ok := set[w]; ok {
			return true
		}
	}
	return false
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// ParseTagLogic maps a user-supplied value onto a TagLogic.
// Anything other than "and" (any case) is OR.
func ParseTagLogic(s string) models.TagLogic {
	if strings.EqualFold(strings.TrimSpace(s), string(models.TagLogicAND)) {
		return models.TagLogicAND
	}
	return models.TagLogicOR
}

// SplitTags splits a comma separated tag list, dropping empty items.
func SplitTags(s string) []string {
	return normalizeTags(strings.Split(s, ","))
}
