package static

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"
)

//go:embed site
var staticFiles embed.FS

const CANVAS_ID = "renderCanvas"

var ErrNoCanvas = errors.New("page has no render canvas")

// injectedFile pretends to be an fs.File, but just returns a byte buffer.
type injectedFile struct {
	name   string
	data   []byte
	reader *bytes.Reader
}

var _ fs.File = (*injectedFile)(nil)

type injectedFileInfo struct {
	name string
	size int64
}

var _ fs.FileInfo = (*injectedFileInfo)(nil)

func (i *injectedFileInfo) Name() string       { return i.name }
func (i *injectedFileInfo) Size() int64        { return i.size }
func (i *injectedFileInfo) Mode() fs.FileMode  { return 0444 }
func (i *injectedFileInfo) Sys() interface{}   { return nil }
func (i *injectedFileInfo) ModTime() time.Time { return time.Time{} }
func (i *injectedFileInfo) IsDir() bool        { return false }

func (i *injectedFile) Stat() (fs.FileInfo, error) {
	return &injectedFileInfo{
		name: i.name,
		size: int64(len(i.data)),
	}, nil
}

func (i *injectedFile) Read(p []byte) (n int, err error) {
	return i.reader.Read(p)
}

// Range requests need to seek.
func (i *injectedFile) Seek(offset int64, whence int) (int64, error) {
	return i.reader.Seek(offset, whence)
}

func (i *injectedFile) Close() error {
	return nil
}

// dynamicFS is an fs.FS that allows you to overwrite files with injected
// data.
type dynamicFS struct {
	original fs.FS
	injected map[string][]byte
}

var _ fs.FS = (*dynamicFS)(nil)

func (d *dynamicFS) Open(name string) (fs.File, error) {
	if data, ok := d.injected[name]; ok {
		return &injectedFile{
			name:   name,
			data:   data,
			reader: bytes.NewReader(data),
		}, nil
	}

	return d.original.Open(name)
}

// serve checks that content is a page the client can start from and
// injects the client configuration into its script.
func serve(content fs.FS, clientConfig string) (http.Handler, error) {
	page, err := fs.ReadFile(content, "index.html")
	if err != nil {
		return nil, fmt.Errorf("failed to read index.html: %w", err)
	}

	if !bytes.Contains(page, []byte(fmt.Sprintf(`id="%s"`, CANVAS_ID))) {
		return nil, fmt.Errorf("%w: index.html lacks #%s", ErrNoCanvas, CANVAS_ID)
	}

	index, err := fs.ReadFile(content, "index.js")
	if err != nil {
		return nil, fmt.Errorf("failed to read index.js: %w", err)
	}

	if clientConfig == "" {
		clientConfig = "{}"
	}

	prefix := fmt.Sprintf(
		"const INJECTED_BYTEBULLET_CONFIG = %s;\n",
		clientConfig,
	)

	index = append(
		[]byte(prefix),
		index...,
	)

	injected := map[string][]byte{
		"index.js": index,
	}

	return http.FileServer(http.FS(&dynamicFS{
		original: content,
		injected: injected,
	})), nil
}

// Site serves the embedded client page with clientConfig, a JSON object,
// available to its script.
func Site(clientConfig string) (http.Handler, error) {
	content, err := fs.Sub(fs.FS(staticFiles), "site")
	if err != nil {
		return nil, err
	}
	return serve(content, clientConfig)
}
