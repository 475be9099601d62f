package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atinyakov/TalentKeeper/internal/apperr"
	"github.com/atinyakov/TalentKeeper/internal/catalog"
	"github.com/atinyakov/TalentKeeper/internal/models"
	"github.com/atinyakov/TalentKeeper/internal/securepath"
)

var (
	uploadExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}
	tempFilePattern  = regexp.MustCompile(`^temp_[0-9a-f]{32}\.(jpg|jpeg|png)$`)
)

// UploadResult describes an image staged for a later save.
type UploadResult struct {
	Status           string `json:"status"`
	TempFilename     string `json:"temp_filename"`
	OriginalFilename string `json:"original_filename"`
}

// TalentInput carries the editable fields of a talent.
type TalentInput struct {
	TalentID     string   `json:"talent_id"`
	TempFilename string   `json:"temp_filename"`
	Name         string   `json:"name"`
	Gender       string   `json:"gender"`
	AgeGroup     string   `json:"age_group"`
	Ethnicity    string   `json:"ethnicity"`
	HairColor    string   `json:"hair_color"`
	HairStyle    string   `json:"hair_style"`
	EyeColor     string   `json:"eye_color"`
	Tags         []string `json:"tags"`
	Description  string   `json:"description"`
}

func (in TalentInput) requireFields(withTemp bool) error {
	fields := []struct{ name, value string }{
		{"name", in.Name},
		{"gender", in.Gender},
		{"age_group", in.AgeGroup},
		{"ethnicity", in.Ethnicity},
	}
	if withTemp {
		fields = append([]struct{ name, value string }{{"temp_filename", in.TempFilename}}, fields...)
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return apperr.InvalidArgument("Missing required field: " + f.name)
		}
	}
	return nil
}

// Selection is the detail view of a talent.
type Selection struct {
	Talent      models.Talent `json:"talent"`
	Description string        `json:"description"`
	Metadata    string        `json:"metadata"`
}

func (s *TalentService) defaultCatalogPath() string {
	return filepath.Join(s.dataDir, filepath.FromSlash(DefaultCatalogPath))
}

// Upload stages an image under a random temp name.
func (s *TalentService) Upload(_ context.Context, filename string, r io.Reader) (*UploadResult, error) {
	if filename == "" {
		return nil, apperr.InvalidArgument("No filename provided")
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !uploadExtensions[ext] {
		return nil, apperr.InvalidArgument("Only JPG and PNG files are allowed")
	}

	dir := filepath.Join(s.dataDir, tempUploadDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperr.Storage("create upload dir", err)
	}
	name := "temp_" + strings.ReplaceAll(uuid.NewString(), "-", "") + ext
	dst := filepath.Join(dir, name)

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, apperr.Storage("create upload file", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(dst)
		return nil, apperr.Storage("write upload file", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(dst)
		return nil, apperr.Storage("close upload file", err)
	}

	return &UploadResult{Status: "success", TempFilename: name, OriginalFilename: filename}, nil
}

// Save adds a new talent to the editable catalog, moving its staged image
// into the catalog images folder. It returns the new talent id.
func (s *TalentService) Save(ctx context.Context, in TalentInput) (string, error) {
	if err := in.requireFields(true); err != nil {
		return "", err
	}
	if !tempFilePattern.MatchString(in.TempFilename) {
		return "", apperr.Security("invalid temp_filename")
	}
	tempPath := filepath.Join(s.dataDir, tempUploadDir, in.TempFilename)
	if !isRegularFile(tempPath) {
		return "", apperr.NotFound("temp file")
	}

	id := catalog.SanitizeID(in.Name) + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	catalogPath := s.defaultCatalogPath()
	catalogDir := filepath.Dir(catalogPath)
	imgDir := filepath.Join(catalogDir, imagesDir)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(imgDir, 0o755); err != nil {
		return "", apperr.Storage("create images dir", err)
	}
	ext := filepath.Ext(in.TempFilename)
	filename := id + ext
	for n := 1; fileExists(filepath.Join(imgDir, filename)); n++ {
		filename = fmt.Sprintf("%s_%d%s", id, n, ext)
	}
	finalPath := filepath.Join(imgDir, filename)
	if err := os.Rename(tempPath, finalPath); err != nil {
		return "", apperr.Storage("move uploaded image", err)
	}

	c, err := s.catalogs.Load(ctx, catalogPath)
	if apperr.Is(err, apperr.KindNotFound) {
		today := s.now().Format(models.DateLayout)
		c = &models.Catalog{
			Version:     catalog.CatalogVersion,
			Description: "Morpheus Model Management Talent Catalog",
			Created:     today,
			LastUpdated: today,
		}
	} else if err != nil {
		_ = os.Rename(finalPath, tempPath)
		return "", err
	}

	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}
	c.Talents = append(c.Talents, models.Talent{
		ID:          id,
		Name:        in.Name,
		Gender:      in.Gender,
		AgeGroup:    in.AgeGroup,
		Ethnicity:   in.Ethnicity,
		SkinTone:    "unknown",
		HairColor:   in.HairColor,
		HairStyle:   in.HairStyle,
		EyeColor:    in.EyeColor,
		BodyType:    "unknown",
		Tags:        tags,
		Description: in.Description,
		ImagePath:   imagesDir + "/" + filename,
		Copyright:   "User Upload",
	})
	c.Touch(s.now())
	if err := s.catalogs.Save(ctx, catalogPath, c); err != nil {
		_ = os.Rename(finalPath, tempPath)
		return "", err
	}

	thumb := filepath.Join(catalogDir, thumbnailsDir, id+"_thumb.jpg")
	if err := s.thumbs.Make(finalPath, thumb); err != nil {
		s.log.Warn("failed to render thumbnail", zap.String("talent_id", id), zap.Error(err))
	}
	s.log.Info("talent saved", zap.String("talent_id", id))
	return id, nil
}

// Update replaces the editable fields of an existing talent.
func (s *TalentService) Update(ctx context.Context, in TalentInput) error {
	if err := validateID(in.TalentID); err != nil {
		return err
	}
	if err := in.requireFields(false); err != nil {
		return err
	}
	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}

	return s.mutate(ctx, s.defaultCatalogPath(), func(c *models.Catalog) error {
		t := c.Find(in.TalentID)
		if t == nil {
			return apperr.NotFound("talent")
		}
		t.Name = in.Name
		t.Gender = in.Gender
		t.AgeGroup = in.AgeGroup
		t.Ethnicity = in.Ethnicity
		t.HairColor = in.HairColor
		t.HairStyle = in.HairStyle
		t.EyeColor = in.EyeColor
		t.Tags = tags
		t.Description = in.Description
		return nil
	})
}

// Delete removes a talent together with its image and thumbnail. The entry
// is dropped from the catalog only after the files are gone. It returns the
// deleted talent's name.
func (s *TalentService) Delete(ctx context.Context, id string) (string, error) {
	if err := validateID(id); err != nil {
		return "", err
	}
	catalogPath := s.defaultCatalogPath()
	catalogDir := filepath.Dir(catalogPath)

	var name string
	err := s.mutate(ctx, catalogPath, func(c *models.Catalog) error {
		idx := c.IndexOf(id)
		if idx < 0 {
			return apperr.NotFound("talent")
		}
		t := c.Talents[idx]
		name = t.Name

		if t.ImagePath != "" {
			if filepath.IsAbs(t.ImagePath) || securepath.HasTraversal(t.ImagePath) {
				return apperr.Security("invalid image path detected")
			}
			img, err := securepath.Join(catalogDir, t.ImagePath)
			if err != nil {
				return err
			}
			err = securepath.RemoveFile(filepath.Join(catalogDir, imagesDir), img)
			if err != nil && !apperr.Is(err, apperr.KindNotFound) {
				return err
			}
		}

		thumbs := filepath.Join(catalogDir, thumbnailsDir)
		err := securepath.RemoveFile(thumbs, filepath.Join(thumbs, id+"_thumb.jpg"))
		if err != nil && !apperr.Is(err, apperr.KindNotFound) {
			return err
		}

		c.Talents = append(c.Talents[:idx], c.Talents[idx+1:]...)
		return nil
	})
	if err != nil {
		return "", err
	}
	if name == "" {
		name = id
	}
	s.log.Info("talent deleted", zap.String("talent_id", id))
	return name, nil
}

// ToggleFavorite flips the favorite flag of a talent and returns the new
// value. An empty catalogPath selects the editable catalog.
func (s *TalentService) ToggleFavorite(ctx context.Context, id, catalogPath string) (bool, error) {
	if id == "" {
		return false, apperr.InvalidArgument("talent_id required")
	}
	path, err := s.catalogPathOrDefault(catalogPath)
	if err != nil {
		return false, err
	}

	var fav bool
	err = s.mutate(ctx, path, func(c *models.Catalog) error {
		t := c.Find(id)
		if t == nil {
			return apperr.NotFound("talent")
		}
		t.IsFavorite = !t.IsFavorite
		fav = t.IsFavorite
		return nil
	})
	return fav, err
}

// Get returns a talent of the editable catalog.
func (s *TalentService) Get(ctx context.Context, id string) (*models.Talent, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	c, err := s.catalogs.Load(ctx, s.defaultCatalogPath())
	if err != nil {
		return nil, err
	}
	t := c.Find(id)
	if t == nil {
		return nil, apperr.NotFound("talent")
	}
	return t, nil
}

// Select returns the detail view of a talent. An empty catalogPath selects
// the editable catalog.
func (s *TalentService) Select(ctx context.Context, id, catalogPath string) (*Selection, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	path, err := s.catalogPathOrDefault(catalogPath)
	if err != nil {
		return nil, err
	}
	c, err := s.catalogs.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	t := c.Find(id)
	if t == nil {
		return nil, apperr.NotFound("talent")
	}
	return &Selection{
		Talent:      catalog.WithDescription(*t),
		Description: catalog.Describe(*t),
		Metadata:    catalog.Metadata(*t),
	}, nil
}

// mutate runs fn on the catalog at path and saves it, all under the
// catalog mutex.
func (s *TalentService) mutate(ctx context.Context, path string, fn func(*models.Catalog) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.catalogs.Load(ctx, path)
	if err != nil {
		return err
	}
	if err := fn(c); err != nil {
		return err
	}
	c.Touch(s.now())
	return s.catalogs.Save(ctx, path, c)
}

func (s *TalentService) catalogPathOrDefault(p string) (string, error) {
	if p == "" {
		return s.defaultCatalogPath(), nil
	}
	return securepath.Resolve(s.dataDir, p)
}

func validateID(id string) error {
	if id == "" {
		return apperr.InvalidArgument("Missing talent_id")
	}
	if !models.ValidID(id) {
		return apperr.InvalidArgument("Invalid talent_id format")
	}
	return nil
}

func fileExists(p string) bool {
	_, err := os.Lstat(p)
	return err == nil
}
