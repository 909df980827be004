// Copyright 2026 fuzzcov project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package asset

import (
	"strings"

	"github.com/fuzzcov/fuzzcov/pkg/gcs"
)

type cloudStorageBackend struct {
	client *gcs.Client
	// bucket/prefix
	root string
}

func makeCloudStorageBackend(client *gcs.Client, root string) *cloudStorageBackend {
	return &cloudStorageBackend{
		client: client,
		root:   strings.TrimSuffix(root, "/"),
	}
}

func (csb *cloudStorageBackend) objectPath(savePath string) string {
	return csb.root + "/" + savePath
}

func (csb *cloudStorageBackend) upload(req *uploadRequest) (*uploadResponse, error) {
	path := csb.objectPath(req.savePath)
	w, err := csb.client.FileWriter(path, req.contentType)
	if err != nil {
		return nil, err
	}
	return &uploadResponse{path: path, writer: w}, nil
}

func (csb *cloudStorageBackend) downloadURL(path string) (string, error) {
	return gcs.PublicPrefix + path, nil
}

func (csb *cloudStorageBackend) list() ([]storedObject, error) {
	objects, err := csb.client.ListObjects(csb.root)
	if err != nil {
		return nil, err
	}
	var ret []storedObject
	for _, obj := range objects {
		ret = append(ret, storedObject{path: obj.Path, createdAt: obj.CreatedAt})
	}
	return ret, nil
}

func (csb *cloudStorageBackend) close() error {
	return csb.client.Close()
}
