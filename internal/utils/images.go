package utils

import (
	"bytes"
	"image"
	"image/jpeg"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"

	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var allowedImageContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
	"image/bmp":  true,
	"image/tiff": true,
}

func ValidateImageContentType(contentType string) bool {
	ct := strings.TrimSpace(strings.ToLower(contentType))
	return ct != "" && allowedImageContentTypes[ct]
}

func DetectContentType(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	sample := data
	if len(sample) > 512 {
		sample = sample[:512]
	}
	return http.DetectContentType(sample)
}

// MenuPhoto holds the web-sized rendition and square thumbnail produced from
// an admin upload.
type MenuPhoto struct {
	Full  []byte
	Thumb []byte
}

// ProcessMenuPhoto normalizes an uploaded menu item photo: EXIF orientation is
// applied, the image is fit inside maxSide, and a square thumbnail is cut.
// Output is always JPEG.
func ProcessMenuPhoto(data []byte, maxSide, thumbSize, quality int) (MenuPhoto, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return MenuPhoto{}, err
	}
	if strings.EqualFold(format, "jpeg") {
		img = applyExifOrientation(img, data)
	}

	full, err := encodeJpeg(imaging.Fit(img, maxSide, maxSide, imaging.Lanczos), quality)
	if err != nil {
		return MenuPhoto{}, err
	}
	thumb, err := encodeJpeg(imaging.Fill(img, thumbSize, thumbSize, imaging.Center, imaging.Lanczos), quality)
	if err != nil {
		return MenuPhoto{}, err
	}
	return MenuPhoto{Full: full, Thumb: thumb}, nil
}

// Only JPEGs typically carry EXIF; decode errors are ignored.
func applyExifOrientation(img image.Image, raw []byte) image.Image {
	ex, err := exif.Decode(bytes.NewReader(raw))
	if err != nil {
		return img
	}
	tag, err := ex.Get(exif.Orientation)
	if err != nil {
		return img
	}
	orient, err := tag.Int(0)
	if err != nil {
		return img
	}
	switch orient {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	}
	return img
}

func encodeJpeg(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
