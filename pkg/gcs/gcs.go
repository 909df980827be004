// Copyright 2026 fuzzcov project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package gcs provides wrappers around Google Cloud Storage (GCS) APIs.
// Package uses Application Default Credentials.
//
// See the following links for details and API reference:
// https://cloud.google.com/go/getting-started/using-cloud-storage
// https://godoc.org/cloud.google.com/go/storage
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

type Client struct {
	client *storage.Client
	ctx    context.Context
}

type Object struct {
	Path      string
	CreatedAt time.Time
}

func NewClient(ctx context.Context) (*Client, error) {
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	client := &Client{
		client: storageClient,
		ctx:    ctx,
	}
	return client, nil
}

func (client *Client) Close() error {
	return client.client.Close()
}

// FileWriter returns a writer for gcsFile. The object is created on Close.
func (client *Client) FileWriter(gcsFile, contentType string) (io.WriteCloser, error) {
	bucket, filename, err := split(gcsFile)
	if err != nil {
		return nil, err
	}
	w := client.client.Bucket(bucket).Object(filename).NewWriter(client.ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	return w, nil
}

// ListObjects returns all objects under the bucket/prefix path.
func (client *Client) ListObjects(path string) ([]*Object, error) {
	bucket, prefix, err := split(path)
	if err != nil {
		return nil, err
	}
	var ret []*Object
	it := client.client.Bucket(bucket).Objects(client.ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list %v: %w", path, err)
		}
		ret = append(ret, &Object{
			Path:      bucket + "/" + attrs.Name,
			CreatedAt: attrs.Created,
		})
	}
	return ret, nil
}

// Where things get published.
const PublicPrefix = "https://storage.googleapis.com/"

func split(file string) (bucket, filename string, err error) {
	file = strings.TrimPrefix(file, "gs://")
	pos := strings.IndexByte(file, '/')
	if pos == -1 || pos == 0 || pos == len(file)-1 {
		return "", "", fmt.Errorf("invalid GCS file name: %v", file)
	}
	return file[:pos], file[pos+1:], nil
}
