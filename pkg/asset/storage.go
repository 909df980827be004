// Copyright 2026 fuzzcov project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package asset uploads campaign results (the cumulative coverage report and
// the hang/crash corpus) to GCS or a local directory. Uploads are xz-compressed.
package asset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/fuzzcov/fuzzcov/pkg/gcs"
	"github.com/fuzzcov/fuzzcov/pkg/log"
	"github.com/fuzzcov/fuzzcov/pkg/osutil"
	"github.com/ulikunitz/xz"
)

type Config struct {
	// gs://bucket/path, dummy:// or a local directory.
	UploadTo string
}

type Storage struct {
	cfg     *Config
	backend storageBackend
}

type Asset struct {
	Type        Type
	Title       string
	DownloadURL string
}

func StorageFromConfig(ctx context.Context, cfg *Config) (*Storage, error) {
	var backend storageBackend
	switch {
	case cfg.UploadTo == "":
		return nil, fmt.Errorf("upload_to is empty")
	case strings.HasPrefix(cfg.UploadTo, "gs://"):
		client, err := gcs.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create a GCS client: %w", err)
		}
		backend = makeCloudStorageBackend(client, strings.TrimPrefix(cfg.UploadTo, "gs://"))
	case strings.HasPrefix(cfg.UploadTo, "dummy://"):
		backend = makeDummyStorageBackend()
	default:
		dir := osutil.Abs(strings.TrimPrefix(cfg.UploadTo, "file://"))
		if err := osutil.MkdirAll(dir); err != nil {
			return nil, err
		}
		backend = makeLocalStorageBackend(dir)
	}
	return &Storage{cfg: cfg, backend: backend}, nil
}

func (storage *Storage) Close() error {
	return storage.backend.close()
}

func savePath(tag string, typ Type, fileName string) string {
	return path.Join(tag, string(typ), fileName) + ".xz"
}

// Upload stores the content read from r as fileName of the given type under tag.
// Uploading a file that already exists is not an error.
func (storage *Storage) Upload(r io.Reader, fileName string, typ Type, tag string) (*Asset, error) {
	desc := GetTypeDescription(typ)
	if desc == nil {
		return nil, fmt.Errorf("unknown asset type %q", typ)
	}
	req := &uploadRequest{
		savePath:    savePath(tag, typ, fileName),
		contentType: desc.ContentType,
	}
	resp, err := xzCompressor(req, storage.backend.upload)
	var existsErr *FileExistsError
	if errors.As(err, &existsErr) {
		log.Logf(1, "asset %v already exists", existsErr.Path)
		return storage.makeAsset(typ, desc, existsErr.Path)
	} else if err != nil {
		return nil, err
	}
	if _, err := io.Copy(resp.writer, r); err != nil {
		resp.writer.Close()
		return nil, fmt.Errorf("failed to upload %v: %w", req.savePath, err)
	}
	if err := resp.writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish upload of %v: %w", req.savePath, err)
	}
	return storage.makeAsset(typ, desc, resp.path)
}

func (storage *Storage) makeAsset(typ Type, desc *TypeDescription, path string) (*Asset, error) {
	url, err := storage.backend.downloadURL(path)
	if err != nil {
		return nil, err
	}
	return &Asset{Type: typ, Title: desc.Title, DownloadURL: url}, nil
}

func (storage *Storage) UploadFile(file string, typ Type, tag string) (*Asset, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return storage.Upload(f, filepath.Base(file), typ, tag)
}

// UploadDir uploads all regular files of dir that are not yet present under tag.
func (storage *Storage) UploadDir(dir string, typ Type, tag string) ([]*Asset, error) {
	files, err := osutil.ListDir(dir)
	if err != nil {
		return nil, err
	}
	objects, err := storage.backend.list()
	if err != nil {
		return nil, err
	}
	present := make(map[string]bool)
	for _, obj := range objects {
		present[obj.path] = true
	}
	var ret []*Asset
	for _, name := range files {
		file := filepath.Join(dir, name)
		if !osutil.IsExist(file) || osutil.IsDir(file) {
			continue
		}
		if present[storage.backend.objectPath(savePath(tag, typ, name))] {
			continue
		}
		asset, err := storage.UploadFile(file, typ, tag)
		if err != nil {
			return ret, err
		}
		ret = append(ret, asset)
	}
	return ret, nil
}

func xzCompressor(req *uploadRequest,
	next func(req *uploadRequest) (*uploadResponse, error)) (*uploadResponse, error) {
	resp, err := next(req)
	if err != nil {
		return nil, err
	}
	xzWriter, err := xz.NewWriter(resp.writer)
	if err != nil {
		resp.writer.Close()
		return nil, fmt.Errorf("failed to create xz writer: %w", err)
	}
	return &uploadResponse{
		path: resp.path,
		writer: &wrappedWriteCloser{
			writer: xzWriter,
			closeCallback: func() error {
				xzErr := xzWriter.Close()
				err := resp.writer.Close()
				if xzErr != nil {
					return xzErr
				}
				return err
			},
		},
	}, nil
}

type wrappedWriteCloser struct {
	writer        io.Writer
	closeCallback func() error
}

func (wwc *wrappedWriteCloser) Write(p []byte) (int, error) {
	return wwc.writer.Write(p)
}

func (wwc *wrappedWriteCloser) Close() error {
	return wwc.closeCallback()
}

// Tag returns the upload tag for a campaign over the toolchain started at the given time.
func Tag(toolchain string, start time.Time) string {
	return fmt.Sprintf("%v-%v", toolchain, start.UTC().Format("20060102-150405"))
}
