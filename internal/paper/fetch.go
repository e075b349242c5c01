// Package paper turns a paper reference (URL or local path) into cleaned,
// chunked text.
package paper

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"papereval/internal/util"
)

// Document is a fetched paper on local disk.
type Document struct {
	PaperID   string `json:"paper_id"`
	SourceURL string `json:"source_url"`
	Path      string `json:"path"`
	Size      int64  `json:"size"`
}

// maxDocumentBytes bounds a single download.
const maxDocumentBytes = 100 << 20

type Fetcher struct {
	Client *http.Client
	Dir    string
}

func NewFetcher(dir string, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Fetcher{Client: &http.Client{Timeout: timeout}, Dir: dir}
}

// Fetch downloads src (http or https) or reads it from disk, stores a copy
// named by its content hash under Dir and returns it.
func (f *Fetcher) Fetch(ctx context.Context, src string) (Document, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return Document{}, fmt.Errorf("empty paper source")
	}
	var (
		data []byte
		ext  string
		err  error
	)
	u, perr := url.Parse(src)
	switch {
	case perr == nil && (u.Scheme == "http" || u.Scheme == "https"):
		data, ext, err = f.download(ctx, src)
	case perr == nil && u.Scheme == "file":
		data, err = os.ReadFile(u.Path)
		ext = filepath.Ext(u.Path)
	default:
		data, err = os.ReadFile(src)
		ext = filepath.Ext(src)
	}
	if err != nil {
		return Document{}, err
	}
	if len(data) == 0 {
		return Document{}, fmt.Errorf("paper %s is empty", src)
	}
	if ext == "" {
		ext = ".pdf"
	}
	id := util.SHA256Hex(data)
	if err := util.EnsureDir(f.Dir); err != nil {
		return Document{}, err
	}
	path := filepath.Join(f.Dir, id+strings.ToLower(ext))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return Document{}, fmt.Errorf("write paper: %w", err)
	}
	return Document{PaperID: id, SourceURL: src, Path: path, Size: int64(len(data))}, nil
}

func (f *Fetcher) download(ctx context.Context, src string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build download request: %w", err)
	}
	req.Header.Set("User-Agent", "papereval/1.0")
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download paper: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("download paper: unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read paper body: %w", err)
	}
	if len(data) > maxDocumentBytes {
		return nil, "", fmt.Errorf("paper exceeds %d bytes", maxDocumentBytes)
	}
	return data, extensionFor(resp.Header.Get("Content-Type"), resp.Request.URL.Path), nil
}

func extensionFor(contentType, urlPath string) string {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		switch mt {
		case "application/pdf":
			return ".pdf"
		case "text/plain":
			return ".txt"
		case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
			return ".docx"
		}
	}
	if ext := filepath.Ext(urlPath); ext != "" && len(ext) <= 5 {
		return ext
	}
	return ".pdf"
}
