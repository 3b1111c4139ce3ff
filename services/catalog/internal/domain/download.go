package domain

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"path"
	"strings"
)

// Download is a file granted to buyers of a downloadable product.
type Download struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	File string `json:"file"`
}

// NewDownload builds a download for file. The ID is derived from the file so
// re-saving the same file keeps its ID. An empty name falls back to the
// file's base name.
func NewDownload(name, file string) Download {
	sum := md5.Sum([]byte(file))
	if name == "" {
		name = fileName(file)
	}
	return Download{ID: hex.EncodeToString(sum[:]), Name: name, File: file}
}

func fileName(file string) string {
	p := file
	if u, err := url.Parse(file); err == nil && u.Path != "" {
		p = u.Path
	}
	base := path.Base(strings.TrimRight(p, "/"))
	if base == "." || base == "/" {
		return file
	}
	return base
}
