// Copyright 2026 fuzzcov project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package asset

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fuzzcov/fuzzcov/pkg/osutil"
)

// localStorageBackend stores assets in a directory tree.
type localStorageBackend struct {
	root string
}

func makeLocalStorageBackend(root string) *localStorageBackend {
	return &localStorageBackend{root: root}
}

func (lsb *localStorageBackend) objectPath(savePath string) string {
	return filepath.Join(lsb.root, filepath.FromSlash(savePath))
}

func (lsb *localStorageBackend) upload(req *uploadRequest) (*uploadResponse, error) {
	path := lsb.objectPath(req.savePath)
	if err := osutil.MkdirAll(filepath.Dir(path)); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, osutil.DefaultFilePerm)
	if os.IsExist(err) {
		return nil, &FileExistsError{Path: path}
	}
	if err != nil {
		return nil, err
	}
	return &uploadResponse{path: path, writer: f}, nil
}

func (lsb *localStorageBackend) downloadURL(path string) (string, error) {
	return "file://" + path, nil
}

func (lsb *localStorageBackend) list() ([]storedObject, error) {
	var ret []storedObject
	err := filepath.WalkDir(lsb.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		ret = append(ret, storedObject{path: path, createdAt: info.ModTime()})
		return nil
	})
	return ret, err
}

func (lsb *localStorageBackend) close() error {
	return nil
}
