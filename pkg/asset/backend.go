// Copyright 2026 fuzzcov project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package asset

import (
	"fmt"
	"io"
	"time"
)

type uploadRequest struct {
	savePath    string
	contentType string
}

type uploadResponse struct {
	path   string
	writer io.WriteCloser
}

type storedObject struct {
	path      string
	createdAt time.Time
}

type storageBackend interface {
	upload(req *uploadRequest) (*uploadResponse, error)
	list() ([]storedObject, error)
	downloadURL(path string) (string, error)
	// objectPath returns the path list reports for an object uploaded to savePath.
	objectPath(savePath string) string
	close() error
}

type FileExistsError struct {
	// The path gets changed by wrappers, so we need to return it back.
	Path string
}

func (e *FileExistsError) Error() string {
	return fmt.Sprintf("%s already exists", e.Path)
}
