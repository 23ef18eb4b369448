// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package outfs provides the destinations evaluation results are
// written to: a local directory or a Google Cloud Storage prefix.
package outfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// An FS creates named output files.
type FS interface {
	// Create creates or truncates the named file. The file is
	// complete once Close returns without error.
	Create(ctx context.Context, name string) (io.WriteCloser, error)

	// Location returns a human-readable location of name.
	Location(name string) string
}

// Open returns the FS for target. A target of the form
// "gs://bucket/prefix" writes objects to Google Cloud Storage using
// opts; any other target is a local directory.
func Open(ctx context.Context, target string, opts ...option.ClientOption) (FS, error) {
	if bucket, prefix, ok := ParseGCS(target); ok {
		return NewGCS(ctx, bucket, prefix, opts...)
	}
	return Dir(target), nil
}

// Dir is an FS rooted at a local directory. The directory is created
// on first use.
type Dir string

func (d Dir) Create(ctx context.Context, name string) (io.WriteCloser, error) {
	dir := string(d)
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0777); err != nil {
		return nil, err
	}
	return os.Create(filepath.Join(dir, name))
}

func (d Dir) Location(name string) string {
	return filepath.Join(string(d), name)
}

// ParseGCS splits a "gs://bucket/prefix" URL. It reports false if
// target is not such a URL.
func ParseGCS(target string) (bucket, prefix string, ok bool) {
	rest, ok := strings.CutPrefix(target, "gs://")
	if !ok {
		return "", "", false
	}
	bucket, prefix, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", false
	}
	return bucket, strings.Trim(prefix, "/"), true
}

// GCS is an FS that writes objects below a prefix of a Cloud Storage
// bucket.
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCS returns a GCS writing to bucket below prefix.
func NewGCS(ctx context.Context, bucket, prefix string, opts ...option.ClientOption) (*GCS, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to cloud storage: %w", err)
	}
	return &GCS{client: client, bucket: bucket, prefix: prefix}, nil
}

func (g *GCS) object(name string) string {
	return path.Join(g.prefix, name)
}

func (g *GCS) Create(ctx context.Context, name string) (io.WriteCloser, error) {
	w := g.client.Bucket(g.bucket).Object(g.object(name)).NewWriter(ctx)
	w.ContentType = contentType(name)
	return w, nil
}

func (g *GCS) Location(name string) string {
	return "gs://" + g.bucket + "/" + g.object(name)
}

// Close releases the client of g.
func (g *GCS) Close() error {
	return g.client.Close()
}

func contentType(name string) string {
	switch path.Ext(name) {
	case ".csv":
		return "text/csv"
	case ".svg":
		return "image/svg+xml"
	case ".png":
		return "image/png"
	case ".pdf":
		return "application/pdf"
	}
	return "text/plain"
}
