// Copyright 2026 fuzzcov project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package httpsrv serves the status page of a running campaign.
package httpsrv

import (
	"context"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/fuzzcov/fuzzcov/pkg/log"
	"github.com/fuzzcov/fuzzcov/pkg/runner"
	"github.com/fuzzcov/fuzzcov/pkg/stat"
	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServer struct {
	// To be set before calling Serve.
	Addr      string
	Toolchain string
	StartTime time.Time
	// Progress returns the stats of all batches of the campaign.
	Progress func() []*runner.Stats
}

func (serv *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	handle := func(pattern string, handler func(http.ResponseWriter, *http.Request)) {
		mux.Handle(pattern, handlers.CompressHandler(http.HandlerFunc(handler)))
	}
	handle("/", serv.httpMain)
	handle("/log", serv.httpLog)
	handle("/metrics", promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{}).ServeHTTP)
	handle("/stats", serv.httpStats)
	// Browsers like to request this, without special handler this goes to / handler.
	handle("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {})
	return mux
}

// Serve runs the server until ctx is cancelled.
func (serv *HTTPServer) Serve(ctx context.Context) error {
	if serv.Addr == "" {
		return fmt.Errorf("starting a disabled HTTP server")
	}
	ln, err := net.Listen("tcp", serv.Addr)
	if err != nil {
		return err
	}
	log.Logf(0, "serving http on http://%v", ln.Addr())
	server := &http.Server{Handler: serv.Handler()}
	go func() {
		<-ctx.Done()
		server.Close()
	}()
	if err := server.Serve(ln); err != http.ErrServerClosed {
		return err
	}
	return nil
}

type uiStat struct {
	Name  string
	Value string
	Hint  string
}

type uiBatch struct {
	Seq       int
	Processed int64
	Total     int
	Safe      int64
	Failures  int64
	Hangs     int64
	Crashes   int64
	MeanTime  time.Duration
	Compiles  int64
}

type uiSummary struct {
	Toolchain string
	Uptime    time.Duration
	Stats     []uiStat
	Batches   []uiBatch
	Log       string
}

func (serv *HTTPServer) summary(level stat.Level) *uiSummary {
	data := &uiSummary{
		Toolchain: serv.Toolchain,
		Uptime:    time.Since(serv.StartTime).Round(time.Second),
	}
	for _, s := range stat.Collect(level) {
		data.Stats = append(data.Stats, uiStat{Name: s.Name, Value: s.Value, Hint: s.Desc})
	}
	if serv.Progress != nil {
		for _, s := range serv.Progress() {
			data.Batches = append(data.Batches, uiBatch{
				Seq:       s.Seq,
				Processed: s.Processed.Load(),
				Total:     s.Total,
				Safe:      s.Safe.Load(),
				Failures:  s.Failures.Load(),
				Hangs:     s.Hangs.Load(),
				Crashes:   s.Crashes.Load(),
				MeanTime:  s.CompileTime.Value().Round(time.Millisecond),
				Compiles:  s.CompileTime.Count(),
			})
		}
	}
	return data
}

func (serv *HTTPServer) httpMain(w http.ResponseWriter, r *http.Request) {
	data := serv.summary(stat.All)
	data.Log = log.CachedLogOutput()
	executeTemplate(w, mainTemplate, data)
}

func (serv *HTTPServer) httpStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	for _, s := range serv.summary(stat.All).Stats {
		fmt.Fprintf(w, "%v: %v\n", s.Name, s.Value)
	}
}

func (serv *HTTPServer) httpLog(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, log.CachedLogOutput())
}

func executeTemplate(w http.ResponseWriter, templ *template.Template, data any) {
	if err := templ.Execute(w, data); err != nil {
		log.Logf(0, "failed to execute template: %v", err)
		http.Error(w, fmt.Sprintf("failed to execute template: %v", err), http.StatusInternalServerError)
	}
}

var mainTemplate = template.Must(template.New("main").Parse(`<!doctype html>
<html>
<head>
	<title>fuzzcov {{.Toolchain}}</title>
</head>
<body>
<b>{{.Toolchain}}</b> up {{.Uptime}}
<table>
	{{range $s := $.Stats}}
	<tr><td title="{{$s.Hint}}">{{$s.Name}}</td><td>{{$s.Value}}</td></tr>
	{{end}}
</table>
<table>
	<tr><th>batch</th><th>progress</th><th>safe</th><th>failures</th><th>hangs</th><th>crashes</th><th>mean compile time (samples)</th></tr>
	{{range $b := $.Batches}}
	<tr>
		<td>#{{$b.Seq}}</td><td>{{$b.Processed}}/{{$b.Total}}</td>
		<td>{{$b.Safe}}</td><td>{{$b.Failures}}</td><td>{{$b.Hangs}}</td><td>{{$b.Crashes}}</td>
		<td>{{$b.MeanTime}} ({{$b.Compiles}})</td>
	</tr>
	{{end}}
</table>
<pre>{{.Log}}</pre>
</body>
</html>
`))
