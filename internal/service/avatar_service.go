package service

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif" // registered so mislabeled uploads decode before the extension check rejects them

	"inkwell/internal/models"

	xdraw "golang.org/x/image/draw"
)

const (
	// ThumbnailMaxSize bounds both avatar dimensions; aspect ratio is preserved
	// and smaller images are never upscaled.
	ThumbnailMaxSize = 125

	avatarJPEGQuality  = 85
	avatarMaxUploadMB  = 5
	avatarNameHexChars = 16

	profilePicsDir = "profile_pics"
)

// AvatarService ingests uploaded profile pictures: validate, downsample,
// store under the static profile-picture directory.
type AvatarService struct {
	dir string
}

// NewAvatarService creates an AvatarService writing under
// <staticDir>/profile_pics.
func NewAvatarService(staticDir string) *AvatarService {
	return &AvatarService{dir: filepath.Join(staticDir, profilePicsDir)}
}

// Dir returns the directory avatars are written to.
func (s *AvatarService) Dir() string { return s.dir }

// SavePicture validates and stores an uploaded image, returning the generated
// filename to persist on the user record. The name is a random hex segment
// plus the original extension, so repeated uploads of the same source never
// collide. All rejections are validation errors the form can display.
func (s *AvatarService) SavePicture(originalName string, content []byte) (string, error) {
	if len(content) == 0 {
		return "", models.NewValidationError("No file uploaded.")
	}
	if int64(len(content)) > avatarMaxUploadMB*1024*1024 {
		return "", models.NewValidationError(fmt.Sprintf("File too large (max %dMB).", avatarMaxUploadMB))
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	if ext == ".jpeg" {
		ext = ".jpg"
	}
	if ext != ".jpg" && ext != ".png" {
		return "", models.NewValidationError("File does not have an approved extension: jpg, png.")
	}

	decoded, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return "", models.NewValidationError("Invalid image file.")
	}

	thumb := resizeToFit(decoded, ThumbnailMaxSize, ThumbnailMaxSize)

	var encoded bytes.Buffer
	switch ext {
	case ".png":
		err = png.Encode(&encoded, thumb)
	default:
		err = jpeg.Encode(&encoded, thumb, &jpeg.Options{Quality: avatarJPEGQuality})
	}
	if err != nil {
		return "", models.NewInternalError(err)
	}

	name := randomHex(avatarNameHexChars) + ext
	if err := writeBytesToFile(filepath.Join(s.dir, name), encoded.Bytes()); err != nil {
		return "", models.NewInternalError(err)
	}
	return name, nil
}

// resizeToFit scales src down so neither dimension exceeds the bounds,
// preserving aspect ratio. Images already inside the bounds pass through.
func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scaleW := float64(maxWidth) / float64(w)
	scaleH := float64(maxHeight) / float64(h)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
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
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func randomHex(chars int) string {
	b := make([]byte, (chars+1)/2)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)[:chars]
}

func writeBytesToFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
