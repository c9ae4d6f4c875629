// Package qrcode renders ticket QR codes. The payload of every code is the
// ticket code string itself, with no extra encoding.
package qrcode

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	goqr "github.com/skip2/go-qrcode"
	"golang.org/x/sync/singleflight"

	"github.com/Shivanand-hulikatti/event-ticketing/internal/logger/sl"
)

// DefaultSize is the edge length of rendered PNGs in pixels.
const DefaultSize = 256

const dataURLPrefix = "data:image/png;base64,"

// ErrCacheMiss is returned by a Cache when the key is absent.
var ErrCacheMiss = errors.New("qr cache miss")

// Cache stores rendered PNGs by ticket code. Ticket codes never change, so
// entries never go stale.
type Cache interface {
	Get(ctx context.Context, code string) ([]byte, error)
	Set(ctx context.Context, code string, png []byte) error
}

// Renderer renders and caches QR PNGs.
type Renderer struct {
	cache Cache
	size  int
	log   *slog.Logger
	group singleflight.Group
}

// NewRenderer returns a Renderer. cache may be nil.
func NewRenderer(cache Cache, log *slog.Logger) *Renderer {
	return &Renderer{
		cache: cache,
		size:  DefaultSize,
		log:   log.With(sl.Module("qrcode")),
	}
}

// PNG returns the QR code for a ticket code as PNG bytes. Concurrent calls
// for the same code share one render.
func (r *Renderer) PNG(ctx context.Context, code string) ([]byte, error) {
	if code == "" {
		return nil, fmt.Errorf("qrcode: empty ticket code")
	}
	if r.cache != nil {
		png, err := r.cache.Get(ctx, code)
		if err == nil {
			return png, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			r.log.Warn("qr cache read failed", sl.Err(err))
		}
	}

	v, err, _ := r.group.Do(code, func() (any, error) {
		return render(code, r.size)
	})
	if err != nil {
		return nil, err
	}
	png := v.([]byte)

	if r.cache != nil {
		if err := r.cache.Set(ctx, code, png); err != nil {
			r.log.Warn("qr cache write failed", sl.Err(err))
		}
	}
	return png, nil
}

// DataURL returns the QR code as a data:image/png;base64 URL, the form
// stored on tickets.
func (r *Renderer) DataURL(ctx context.Context, code string) (string, error) {
	png, err := r.PNG(ctx, code)
	if err != nil {
		return "", err
	}
	return dataURLPrefix + base64.StdEncoding.EncodeToString(png), nil
}

// DecodeDataURL extracts the PNG bytes from a URL produced by DataURL.
func DecodeDataURL(url string) ([]byte, error) {
	if len(url) < len(dataURLPrefix) || url[:len(dataURLPrefix)] != dataURLPrefix {
		return nil, fmt.Errorf("qrcode: not a png data url")
	}
	return base64.StdEncoding.DecodeString(url[len(dataURLPrefix):])
}

func render(code string, size int) ([]byte, error) {
	q, err := goqr.New(code, goqr.High)
	if err != nil {
		return nil, fmt.Errorf("qrcode: encode: %w", err)
	}
	png, err := q.PNG(size)
	if err != nil {
		return nil, fmt.Errorf("qrcode: render png: %w", err)
	}
	return png, nil
}
