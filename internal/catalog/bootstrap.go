package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/atinyakov/TalentKeeper/internal/models"
)

// CatalogVersion is the version written into generated catalogs.
const CatalogVersion = "1.0"

var scanExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".bmp": true, ".tiff": true, ".webp": true,
}

var unsafeIDChars = regexp.MustCompile(`[^a-z0-9_]`)

// SanitizeID lowercases s and replaces every character outside [a-z0-9_] with '_'.
func SanitizeID(s string) string {
	return unsafeIDChars.ReplaceAllString(strings.ToLower(s), "_")
}

// Sample returns the catalog written when a local catalog does not exist yet
// and its images folder holds nothing to scan.
func Sample(now time.Time) *models.Catalog {
	today := now.Format(models.DateLayout)
	return &models.Catalog{
		Version:     CatalogVersion,
		Description: "Morpheus Model Management Talent Catalog",
		Created:     today,
		LastUpdated: today,
		Talents: []models.Talent{
			{
				ID: "talent_lia_001", Name: "Lia",
				Gender: "female", AgeGroup: "young_adult", Ethnicity: "mixed",
				SkinTone: "light_warm", HairColor: "brown_auburn", HairStyle: "long_wavy",
				EyeColor: "green", BodyType: "slim_tall", Freckles: true,
				Tags:        []string{"editorial", "sporty"},
				Description: "Young adult with soft waves and light freckles, editorial look.",
				ImagePath:   "images/lia_001.jpg",
				Copyright:   "Morpheus Model Management",
			},
			{
				ID: "talent_marco_002", Name: "Marco",
				Gender: "male", AgeGroup: "adult", Ethnicity: "caucasian",
				SkinTone: "medium", HairColor: "brown", HairStyle: "short",
				EyeColor: "blue", BodyType: "athletic",
				Tags:        []string{"fashion", "commercial"},
				Description: "Professional adult male model with athletic build.",
				ImagePath:   "images/marco_002.jpg",
				Copyright:   "Morpheus Model Management",
			},
			{
				ID: "talent_sofia_003", Name: "Sofia",
				Gender: "female", AgeGroup: "teen", Ethnicity: "hispanic",
				SkinTone: "medium_warm", HairColor: "black", HairStyle: "long",
				EyeColor: "brown", BodyType: "slim",
				Tags:        []string{"lifestyle", "beauty"},
				Description: "Teen model with natural beauty and lifestyle appeal.",
				ImagePath:   "images/sofia_003.jpg",
				Copyright:   "Morpheus Model Management",
			},
		},
	}
}

// Scan builds a catalog with one entry per image found in imagesDir.
// Image paths are stored relative to catalogDir. A missing imagesDir yields
// an empty catalog and no error.
func Scan(catalogDir, imagesDir string, now time.Time) (*models.Catalog, error) {
	today := now.Format(models.DateLayout)
	c := &models.Catalog{
		Version:     CatalogVersion,
		Description: "Auto-generated Morpheus Model Management Catalog",
		Created:     today,
		LastUpdated: today,
		Talents:     []models.Talent{},
	}

	entries, err := os.ReadDir(imagesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("scan images folder: %w", err)
	}

	rel, err := filepath.Rel(catalogDir, imagesDir)
	if err != nil {
		return nil, fmt.Errorf("images folder relative to catalog: %w", err)
	}

	title := cases.Title(language.Und)
	seen := make(map[string]int)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if !scanExtensions[strings.ToLower(ext)] {
			continue
		}
		base := strings.TrimSuffix(e.Name(), ext)

		id := "talent_" + SanitizeID(base)
		if n := seen[id]; n > 0 {
			seen[id] = n + 1
			id = fmt.Sprintf("%s_%d", id, n)
		} else {
			seen[id] = 1
		}

		display := strings.NewReplacer("_", " ", "-", " ").Replace(base)
		c.Talents = append(c.Talents, models.Talent{
			ID:          id,
			Name:        title.String(display),
			ImagePath:   filepath.ToSlash(filepath.Join(rel, e.Name())),
			Description: "Auto-generated entry for " + base,
			Tags:        []string{"auto_generated"},
			Copyright:   "Unknown",
		})
	}
	return c, nil
}
