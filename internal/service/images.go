package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/atinyakov/TalentKeeper/internal/apperr"
	"github.com/atinyakov/TalentKeeper/internal/models"
	"github.com/atinyakov/TalentKeeper/internal/securepath"
)

// ImagePath returns the original image file of a local talent.
func (s *TalentService) ImagePath(ctx context.Context, id, catalogPath, imagesFolder string) (string, error) {
	resolved, err := s.resolveImageRequest(id, catalogPath, imagesFolder)
	if err != nil {
		return "", err
	}
	return s.originalImage(ctx, id, resolved)
}

// ThumbnailPath returns the thumbnail of a local talent, rendering it on
// first use. When rendering fails the original image is returned instead.
func (s *TalentService) ThumbnailPath(ctx context.Context, id, catalogPath, imagesFolder string) (string, error) {
	resolved, err := s.resolveImageRequest(id, catalogPath, imagesFolder)
	if err != nil {
		return "", err
	}

	thumb, err := securepath.Join(filepath.Dir(resolved), thumbnailsDir+"/"+id+"_thumb.jpg")
	if err != nil {
		return "", err
	}
	if isRegularFile(thumb) {
		return thumb, nil
	}

	src, err := s.originalImage(ctx, id, resolved)
	if err != nil {
		return "", err
	}
	if err := s.thumbs.Make(src, thumb); err != nil {
		s.log.Warn("failed to render thumbnail", zap.String("talent_id", id), zap.Error(err))
		return src, nil
	}
	return thumb, nil
}

// CachedImagePath returns the cached remote image of id, if there is one.
func (s *TalentService) CachedImagePath(id string) (string, bool) {
	if !models.ValidID(id) || !s.images.Cached(id) {
		return "", false
	}
	p, err := s.images.Path(id)
	if err != nil {
		return "", false
	}
	return p, true
}

// resolveImageRequest validates an image request and returns the resolved
// catalog path.
func (s *TalentService) resolveImageRequest(id, catalogPath, imagesFolder string) (string, error) {
	if id == "" {
		return "", apperr.InvalidArgument("missing talent_id")
	}
	if !models.ValidID(id) {
		return "", apperr.Security("invalid talent_id format")
	}
	if catalogPath == "" || imagesFolder == "" {
		return "", apperr.InvalidArgument("Missing catalog_path or images_folder")
	}
	if _, err := securepath.Resolve(s.dataDir, imagesFolder); err != nil {
		return "", err
	}
	return securepath.Resolve(s.dataDir, catalogPath)
}

func (s *TalentService) originalImage(ctx context.Context, id, catalogPath string) (string, error) {
	c, err := s.catalogs.Load(ctx, catalogPath)
	if err != nil {
		return "", err
	}
	t := c.Find(id)
	if t == nil {
		return "", apperr.NotFound("talent")
	}
	if t.ImagePath == "" || strings.HasPrefix(t.ImagePath, "http") {
		return "", apperr.NotFound("image")
	}

	p, err := securepath.Join(filepath.Dir(catalogPath), t.ImagePath)
	if err != nil {
		return "", err
	}
	if !isRegularFile(p) {
		return "", apperr.NotFound("image")
	}
	return p, nil
}

func isRegularFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}
