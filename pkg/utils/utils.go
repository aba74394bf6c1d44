package utils

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	_ "image/png"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"golang.org/x/image/draw"
)

const (
	thumbnailSize    = 200
	thumbnailQuality = 85
)

type IUtils interface {
	NewULIDFromTimestamp(t time.Time) (string, error)
	NewSessionID() string
	BuildThumbnail(imageData []byte) ([]byte, error)
	ThumbnailKey(employeeID string) string
	FailedLoginKey(t time.Time) string
}

type utils struct{}

func New() IUtils {
	return &utils{}
}

func (u *utils) NewULIDFromTimestamp(t time.Time) (string, error) {
	ms := ulid.Timestamp(t)
	entropy := ulid.Monotonic(rand.Reader, 0)

	id, err := ulid.New(ms, entropy)
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

func (u *utils) NewSessionID() string {
	return uuid.NewString()
}

// BuildThumbnail fits the input within 200x200 preserving aspect ratio, pads
// to exactly 200x200 on a white background and re-encodes as JPEG quality 85.
func (u *utils) BuildThumbnail(imageData []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return nil, errors.New("image has empty bounds")
	}

	scale := float64(thumbnailSize) / float64(w)
	if hs := float64(thumbnailSize) / float64(h); hs < scale {
		scale = hs
	}
	if scale > 1 {
		scale = 1
	}

	fitW := int(float64(w) * scale)
	fitH := int(float64(h) * scale)
	if fitW < 1 {
		fitW = 1
	}
	if fitH < 1 {
		fitH = 1
	}

	canvas := image.NewRGBA(image.Rect(0, 0, thumbnailSize, thumbnailSize))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	offsetX := (thumbnailSize - fitW) / 2
	offsetY := (thumbnailSize - fitH) / 2
	target := image.Rect(offsetX, offsetY, offsetX+fitW, offsetY+fitH)
	draw.CatmullRom.Scale(canvas, target, src, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: thumbnailQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	return buf.Bytes(), nil
}

func (u *utils) ThumbnailKey(employeeID string) string {
	return fmt.Sprintf("enroll/%s/face_thumbnail.jpg", employeeID)
}

// FailedLoginKey names the capture of an unmatched login probe, e.g.
// logins/2025-01-31/20250131_091502_unknown_1a2b3c4d.jpg
func (u *utils) FailedLoginKey(t time.Time) string {
	suffix := uuid.NewString()[:8]
	return fmt.Sprintf("logins/%s/%s_unknown_%s.jpg",
		t.Format("2006-01-02"), t.Format("20060102_150405"), suffix)
}
