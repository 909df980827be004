// Copyright 2026 fuzzcov project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package httpsrv

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fuzzcov/fuzzcov/pkg/batch"
	"github.com/fuzzcov/fuzzcov/pkg/log"
	"github.com/fuzzcov/fuzzcov/pkg/runner"
	"github.com/fuzzcov/fuzzcov/pkg/stat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var statTest = stat.New("test artifacts", "Artifacts seen by the test", stat.Prometheus("fuzzcov_test_artifacts"))

func makeServer() *HTTPServer {
	stats := runner.NewStats(&batch.Batch{Seq: 2, Artifacts: make([]batch.Artifact, 4)})
	stats.Processed.Add(3)
	stats.Hangs.Add(1)
	stats.CompileTime.Save(20 * time.Millisecond)
	return &HTTPServer{
		Toolchain: "gcc",
		StartTime: time.Now(),
		Progress:  func() []*runner.Stats { return []*runner.Stats{stats} },
	}
}

func get(t *testing.T, h http.Handler, path string) string {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestPages(t *testing.T) {
	log.EnableLogCaching(100, 1<<20)
	log.Logf(0, "batch #2: generated coverage file")
	statTest.Add(7)
	h := makeServer().Handler()

	main := get(t, h, "/")
	assert.Contains(t, main, "#2")
	assert.Contains(t, main, "3/4")
	assert.Contains(t, main, "20ms (1)")
	assert.Contains(t, main, "test artifacts")

	assert.Contains(t, get(t, h, "/stats"), "test artifacts: 7")
	assert.Contains(t, get(t, h, "/log"), "batch #2: generated coverage file")
	assert.Contains(t, get(t, h, "/metrics"), "fuzzcov_test_artifacts 7")
}

func TestServeDisabled(t *testing.T) {
	serv := makeServer()
	assert.Error(t, serv.Serve(context.Background()))
}

func TestServe(t *testing.T) {
	serv := makeServer()
	serv.Addr = "127.0.0.1:0"
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- serv.Serve(ctx) }()
	cancel()
	assert.NoError(t, <-done)
}
