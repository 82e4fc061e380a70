package folioengine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	_ "image/gif"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/image/draw"
)

//go:generate mockgen -destination=mocks/objectstore.go -package=mocks github.com/eringen/folioengine ObjectStore

// ObjectStore persists a media object and returns a URL untrusted clients can
// fetch it from.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
}

const (
	imageField  = "image"
	jpegQuality = 85
	putTimeout  = 2 * time.Minute
)

// allowedFormats maps accepted file extensions to the decoder name that
// image.DecodeConfig reports for them.
var allowedFormats = map[string]string{
	".jpg":  "jpeg",
	".jpeg": "jpeg",
	".png":  "png",
}

var contentTypes = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
}

// Media forwards uploaded images to an ObjectStore under a fixed folder.
type Media struct {
	store     ObjectStore
	folder    string
	maxSize   int64
	maxWidth  int
	maxPixels int64
	require   bool
	metrics   *Metrics
}

// NewMedia returns the ingestion pipeline for cfg writing to store. metrics
// may be nil.
func NewMedia(store ObjectStore, cfg *Config, metrics *Metrics) *Media {
	return &Media{
		store:     store,
		folder:    strings.Trim(cfg.MediaFolder, "/"),
		maxSize:   cfg.MaxUploadSize,
		maxWidth:  cfg.MaxImageWidth,
		maxPixels: cfg.MaxImagePixels,
		require:   cfg.RequireImage,
		metrics:   metrics,
	}
}

// FromRequest ingests the request's image field, if any. Requests without a
// file (including plain JSON bodies) yield an empty URL unless images are
// required.
func (m *Media) FromRequest(c echo.Context) (string, error) {
	fh, err := c.FormFile(imageField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			if m.require {
				return "", invalidInput("An image file is required", err)
			}
			return "", nil
		}
		return "", invalidInput("Malformed multipart body", err)
	}
	return m.Ingest(c.Request().Context(), fh)
}

// Ingest validates one uploaded file and stores it, returning its public URL.
// Every failure is a StorageFailure.
func (m *Media) Ingest(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	url, err := m.ingest(ctx, fh)
	if m.metrics != nil {
		if err != nil {
			m.metrics.UploadFailures.Inc()
		} else {
			m.metrics.UploadBytes.Add(float64(fh.Size))
		}
	}
	return url, err
}

func (m *Media) ingest(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	if m.maxSize > 0 && fh.Size > m.maxSize {
		return "", storageFailure(fmt.Sprintf("File too large (max %d bytes)", m.maxSize), nil)
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	wantFormat, ok := allowedFormats[ext]
	if !ok {
		return "", storageFailure("Image format not allowed (jpg, jpeg, png)", nil)
	}

	src, err := fh.Open()
	if err != nil {
		return "", storageFailure("Failed to read upload", err)
	}
	defer src.Close()

	data, format, err := m.process(src, wantFormat)
	if err != nil {
		return "", err
	}

	key := m.objectKey(fh.Filename, ext)
	putCtx, cancel := context.WithTimeout(ctx, putTimeout)
	defer cancel()
	url, err := m.store.Put(putCtx, key, bytes.NewReader(data), int64(len(data)), contentTypes[format])
	if err != nil {
		return "", storageFailure("Failed to upload image", err)
	}
	if url == "" {
		return "", storageFailure("Failed to upload image", fmt.Errorf("object store returned empty url for %s", key))
	}
	return url, nil
}

// process checks that src really is an image of the expected format and
// downscales it when wider than maxWidth. Images within bounds are passed
// through byte for byte.
func (m *Media) process(src io.Reader, wantFormat string) ([]byte, string, error) {
	limit := m.maxSize
	if limit <= 0 {
		limit = 10 << 20
	}
	raw, err := io.ReadAll(io.LimitReader(src, limit+1))
	if err != nil {
		return nil, "", storageFailure("Failed to read upload", err)
	}
	if int64(len(raw)) > limit {
		return nil, "", storageFailure(fmt.Sprintf("File too large (max %d bytes)", limit), nil)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, "", storageFailure("Invalid image", fmt.Errorf("decode config: %w", err))
	}
	if format != wantFormat {
		return nil, "", storageFailure("Image format not allowed (jpg, jpeg, png)", fmt.Errorf("extension says %s, content is %s", wantFormat, format))
	}
	if m.maxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > m.maxPixels {
		return nil, "", storageFailure("Image dimensions too large",
			fmt.Errorf("%dx%d exceeds %d pixels", cfg.Width, cfg.Height, m.maxPixels))
	}
	if m.maxWidth <= 0 || cfg.Width <= m.maxWidth {
		return raw, format, nil
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, "", storageFailure("Invalid image", fmt.Errorf("decode image: %w", err))
	}
	bounds := img.Bounds()
	newH := bounds.Dy() * m.maxWidth / bounds.Dx()
	if newH < 1 {
		newH = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, m.maxWidth, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	switch format {
	case "png":
		err = png.Encode(&buf, dst)
	default:
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality})
	}
	if err != nil {
		return nil, "", storageFailure("Failed to encode image", err)
	}
	return buf.Bytes(), format, nil
}

// objectKey builds "<folder>/<uuid>-<slug><ext>". The uuid keeps keys unique
// without consulting the store.
func (m *Media) objectKey(filename, ext string) string {
	base := Slugify(strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)))
	name := uuid.NewString()
	if base != "" {
		name += "-" + base
	}
	if m.folder == "" {
		return name + ext
	}
	return m.folder + "/" + name + ext
}
