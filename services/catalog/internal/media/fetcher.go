package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/utafrali/marketplace/pkg/httpclient"
)

// Fetch errors.
var (
	ErrUnsupportedURL = errors.New("unsupported image url")
	ErrTooLarge       = errors.New("remote file too large")
	ErrNotImage       = errors.New("remote file is not an image")
)

// Getter performs GET requests. *httpclient.CircuitBreakerClient satisfies it.
type Getter interface {
	Get(ctx context.Context, url string) (*http.Response, error)
}

// Remote is a downloaded file.
type Remote struct {
	FileName string
	MimeType string
	Data     []byte
}

// Fetcher downloads remote images.
type Fetcher struct {
	client   Getter
	maxBytes int64
}

// NewFetcher creates a fetcher that rejects bodies larger than maxBytes.
func NewFetcher(client Getter, maxBytes int64) *Fetcher {
	return &Fetcher{client: client, maxBytes: maxBytes}
}

// Fetch downloads src and checks by content sniffing that it is an image.
func (f *Fetcher) Fetch(ctx context.Context, src string) (*Remote, error) {
	u, err := url.Parse(src)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedURL, src)
	}

	resp, err := f.client.Get(ctx, u.String())
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", u.Redacted(), err)
	}
	if err := httpclient.CheckResponse(resp); err != nil {
		return nil, fmt.Errorf("download %s: %w", u.Redacted(), err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", u.Redacted(), err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, f.maxBytes)
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, fmt.Errorf("%w: detected %s", ErrNotImage, mt.String())
	}

	return &Remote{
		FileName: fileName(u, mt),
		MimeType: mt.String(),
		Data:     data,
	}, nil
}

// fileName derives a storage-safe name from the URL path, using the detected
// extension when the path has none.
func fileName(u *url.URL, mt *mimetype.MIME) string {
	base := path.Base(u.Path)
	if base == "." || base == "/" {
		base = "image"
	}
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '-'
		}
	}, base)
	if path.Ext(base) == "" {
		base += mt.Extension()
	}
	return base
}
