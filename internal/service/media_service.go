package service

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/draw"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder

	"github.com/gustavohdab/rettiwt-backend/internal/config"
	"github.com/gustavohdab/rettiwt-backend/internal/models"
)

// Image upload kinds. Each kind has its own target geometry.
const (
	MediaKindAvatar = "avatar"
	MediaKindHeader = "header"
	MediaKindTweet  = "tweet"
)

const (
	defaultMediaDir                 = "./media"
	defaultMediaMaxUploadMB         = 10
	avatarSize                      = 400
	headerWidth                     = 1500
	headerHeight                    = 500
	tweetImageMaxSize               = 2048
	webpQuality             float32 = 80
)

// UploadMediaInput carries one uploaded file.
type UploadMediaInput struct {
	UserID      uint
	Kind        string
	Filename    string
	ContentType string
	Content     []byte
}

// StoredMedia describes a persisted media file.
type StoredMedia struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// MediaService validates, normalizes, and stores uploaded images. Files are
// content-addressed by SHA-256, so re-uploading identical bytes is free.
// Static images are re-encoded to WebP at the kind's target geometry; GIFs
// are stored as-is to keep animation.
type MediaService struct {
	mediaDir           string
	maxUploadSizeBytes int64
}

// NewMediaService creates a MediaService from configuration.
func NewMediaService(cfg *config.Config) *MediaService {
	dir := defaultMediaDir
	maxMB := defaultMediaMaxUploadMB
	if cfg != nil {
		if cfg.MediaDir != "" {
			dir = cfg.MediaDir
		}
		if cfg.MediaMaxUploadSizeMB > 0 {
			maxMB = cfg.MediaMaxUploadSizeMB
		}
	}
	return &MediaService{
		mediaDir:           dir,
		maxUploadSizeBytes: int64(maxMB) * 1024 * 1024,
	}
}

// Upload stores one image and returns its public URL and dimensions.
func (s *MediaService) Upload(in UploadMediaInput) (*StoredMedia, error) {
	if in.UserID == 0 {
		return nil, models.NewAuthenticationError("authentication required")
	}
	if !isMediaKind(in.Kind) {
		return nil, models.NewFieldValidationError("kind", "kind must be one of avatar, header, tweet")
	}
	if len(in.Content) == 0 {
		return nil, models.NewFieldValidationError("file", "no file uploaded")
	}
	if int64(len(in.Content)) > s.maxUploadSizeBytes {
		return nil, models.NewFieldValidationError("file",
			fmt.Sprintf("file too large (max %dMB)", s.maxUploadSizeBytes/(1024*1024)))
	}

	detected := http.DetectContentType(in.Content)
	if !isAllowedImageMIME(detected) {
		return nil, models.NewFieldValidationError("file", "unsupported image type")
	}
	if provided := normalizeContentType(in.ContentType); strings.HasPrefix(provided, "image/") &&
		!isMatchingContentType(provided, detected) {
		return nil, models.NewFieldValidationError("file", "content type does not match file contents")
	}

	// Animated GIFs survive only as-is; everything else is normalized to WebP.
	if normalizeContentType(detected) == "image/gif" {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(in.Content))
		if err != nil {
			return nil, models.NewFieldValidationError("file", "invalid image file")
		}
		return s.store(in.Content, "gif", cfg.Width, cfg.Height)
	}

	decoded, _, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return nil, models.NewFieldValidationError("file", "invalid image file")
	}

	normalized := normalizeForKind(decoded, in.Kind)
	encoded, err := encodeWebP(normalized, webpQuality)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	b := normalized.Bounds()
	return s.store(encoded, "webp", b.Dx(), b.Dy())
}

// MediaPath resolves a stored media filename to its on-disk path. Filenames
// are strictly content hashes plus extension; anything else is rejected to
// keep traversal out of the media dir.
func (s *MediaService) MediaPath(filename string) (string, error) {
	if !validMediaFilename(filename) {
		return "", models.NewNotFoundError("media", filename)
	}
	path := filepath.Join(s.mediaDir, filename)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", models.NewNotFoundError("media", filename)
		}
		return "", models.NewInternalError(err)
	}
	return path, nil
}

func (s *MediaService) store(data []byte, ext string, width, height int) (*StoredMedia, error) {
	sum := sha256.Sum256(data)
	name := hex.EncodeToString(sum[:]) + "." + ext
	path := filepath.Join(s.mediaDir, name)

	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return nil, models.NewInternalError(err)
		}
		if err := os.MkdirAll(s.mediaDir, 0o750); err != nil {
			return nil, models.NewInternalError(err)
		}
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return nil, models.NewInternalError(err)
		}
	}

	return &StoredMedia{URL: "/media/" + name, Width: width, Height: height}, nil
}

// normalizeForKind crops and scales an image to the kind's target geometry.
func normalizeForKind(src image.Image, kind string) image.Image {
	switch kind {
	case MediaKindAvatar:
		return cropScale(src, avatarSize, avatarSize)
	case MediaKindHeader:
		return cropScale(src, headerWidth, headerHeight)
	default:
		return scaleToFit(src, tweetImageMaxSize, tweetImageMaxSize)
	}
}

// cropScale center-crops to the target aspect ratio, then scales down to the
// exact target size. Images already smaller than the target are not upscaled
// past their crop.
func cropScale(src image.Image, targetW, targetH int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return src
	}

	targetRatio := float64(targetW) / float64(targetH)
	cropW, cropH := w, h
	if float64(w)/float64(h) > targetRatio {
		cropW = int(float64(h) * targetRatio)
	} else {
		cropH = int(float64(w) / targetRatio)
	}
	if cropW < 1 {
		cropW = 1
	}
	if cropH < 1 {
		cropH = 1
	}

	cropped := image.NewRGBA(image.Rect(0, 0, cropW, cropH))
	offset := image.Point{X: b.Min.X + (w-cropW)/2, Y: b.Min.Y + (h-cropH)/2}
	draw.Draw(cropped, cropped.Bounds(), src, offset, draw.Src)

	return scaleToFit(cropped, targetW, targetH)
}

// scaleToFit scales down so both dimensions fit within the max, preserving
// aspect ratio. Smaller images pass through untouched.
func scaleToFit(src image.Image, maxW, maxH int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 || (w <= maxW && h <= maxH) {
		return src
	}

	scale := float64(maxW) / float64(w)
	if s := float64(maxH) / float64(h); s < scale {
		scale = s
	}
	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
	return dst
}

func encodeWebP(img image.Image, quality float32) ([]byte, error) {
	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isMediaKind(kind string) bool {
	switch kind {
	case MediaKindAvatar, MediaKindHeader, MediaKindTweet:
		return true
	default:
		return false
	}
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isMatchingContentType(provided, detected string) bool {
	p := normalizeContentType(provided)
	d := normalizeContentType(detected)
	if p == d {
		return true
	}
	return (p == "image/jpg" && d == "image/jpeg") || (p == "image/jpeg" && d == "image/jpg")
}

// validMediaFilename accepts only "<64 hex chars>.<ext>" names.
func validMediaFilename(name string) bool {
	dot := strings.IndexByte(name, '.')
	if dot != 64 {
		return false
	}
	for _, c := range name[:dot] {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	switch name[dot+1:] {
	case "webp", "gif":
		return true
	default:
		return false
	}
}
