// Copyright 2026 fuzzcov project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package asset

import (
	"bytes"
	"sync"
	"time"
)

type objectUploadCallback func(req *uploadRequest) (*uploadResponse, error)

type dummyObject struct {
	createdAt   time.Time
	contentType string
	data        *bytes.Buffer
}

// dummyStorageBackend keeps uploaded objects in memory.
type dummyStorageBackend struct {
	mu           sync.Mutex
	currentTime  time.Time
	objects      map[string]*dummyObject
	objectUpload objectUploadCallback
}

func makeDummyStorageBackend() *dummyStorageBackend {
	return &dummyStorageBackend{
		currentTime: time.Now(),
		objects:     make(map[string]*dummyObject),
	}
}

func (be *dummyStorageBackend) objectPath(savePath string) string {
	return savePath
}

func (be *dummyStorageBackend) upload(req *uploadRequest) (*uploadResponse, error) {
	if be.objectUpload != nil {
		return be.objectUpload(req)
	}
	be.mu.Lock()
	defer be.mu.Unlock()
	if be.objects[req.savePath] != nil {
		return nil, &FileExistsError{Path: req.savePath}
	}
	obj := &dummyObject{
		createdAt:   be.currentTime,
		contentType: req.contentType,
		data:        new(bytes.Buffer),
	}
	be.objects[req.savePath] = obj
	return &uploadResponse{
		path: req.savePath,
		writer: &wrappedWriteCloser{
			writer:        obj.data,
			closeCallback: func() error { return nil },
		},
	}, nil
}

func (be *dummyStorageBackend) downloadURL(path string) (string, error) {
	return "http://download/" + path, nil
}

func (be *dummyStorageBackend) list() ([]storedObject, error) {
	be.mu.Lock()
	defer be.mu.Unlock()
	ret := []storedObject{}
	for path, obj := range be.objects {
		ret = append(ret, storedObject{
			path:      path,
			createdAt: obj.createdAt,
		})
	}
	return ret, nil
}

func (be *dummyStorageBackend) close() error {
	return nil
}
