package actions

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/relloyd/batchetl/constants"
	"github.com/relloyd/batchetl/helper"
	"github.com/relloyd/batchetl/logger"
)

type WebServerConfig struct {
	LogLevel         string `errorTxt:"log level" mandatory:"yes"`
	Addr             net.IP `errorTxt:"address" mandatory:"no"`
	Port             int    `errorTxt:"port" mandatory:"yes"`
	StackDumpOnPanic bool
	Run              *RunConfig // template for each run; the date and step come from the request
}

// runFunc runs the pipeline; tests replace it.
type runFunc func(ctx context.Context, cfg *RunConfig) error

// runner allows one pipeline run at a time.
type runner struct {
	mu   sync.Mutex
	cfg  RunConfig
	run  runFunc
	last *RunSummary
}

// RunSummary describes the most recent run started over HTTP.
type RunSummary struct {
	Date     string    `json:"date"`
	Step     string    `json:"step"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
	Error    string    `json:"error,omitempty"`
}

// tryRun runs the pipeline for date and step unless another run holds the lock, in which case
// ok is false.
func (r *runner) tryRun(ctx context.Context, date string, step string) (s RunSummary, ok bool) {
	if !r.mu.TryLock() {
		return s, false
	}
	defer r.mu.Unlock()
	c := r.cfg
	c.Pipeline.LogicalDate = date
	c.Step = step
	s = RunSummary{Date: date, Step: step, Started: time.Now()}
	if err := r.run(ctx, &c); err != nil {
		s.Error = err.Error()
	}
	s.Finished = time.Now()
	r.last = &s
	return s, true
}

func RunWebServer(web *WebServerConfig) error {
	if web == nil {
		return errors.New("nil pointer to web server config supplied")
	}
	// Check if we have valid input params.
	if err := helper.ValidateStructIsPopulated(web); err != nil {
		return err
	}
	if web.Run == nil {
		return errors.New("nil pointer to run config supplied")
	}
	log := logger.NewLogger(constants.ServiceName, web.LogLevel, web.StackDumpOnPanic)
	// Start the web server.
	srv, chanStopServer := runServer(log, web, &runner{cfg: *web.Run, run: RunPipeline})
	// Block & wait for completion.
	return waitForServer(log, srv, chanStopServer)
}

// newRouter wires the HTTP endpoints to r.
func newRouter(log logger.Logger, r *runner, chanStopServer chan string) *mux.Router {
	m := mux.NewRouter()
	m.Path("/health").Methods(http.MethodGet).HandlerFunc(GetHandlerHealth(log))
	m.Path("/stop").Methods(http.MethodPost).HandlerFunc(GetHandlerStopServer(log, chanStopServer))
	m.Path("/runs/{date}").Methods(http.MethodPost).HandlerFunc(GetHandlerRun(log, r))
	m.Path("/runs/last").Methods(http.MethodGet).HandlerFunc(GetHandlerLastRun(log, r))
	return m
}

// runServer starts a web server and returns:
// 1) the server; and
// 2) a channel that can be used to stop the web server
func runServer(log logger.Logger, web *WebServerConfig, r *runner) (*http.Server, chan string) {
	chanStopServer := make(chan string, 1)
	srv := &http.Server{
		Addr:        fmt.Sprintf("%v:%v", addrOrAll(web.Addr), web.Port),
		ReadTimeout: time.Second * 15,
		IdleTimeout: time.Second * 60,
		Handler:     newRouter(log, r, chanStopServer), // runs are synchronous so there is no write timeout
	}
	// Run HTTP server non-blocking.
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			if err == http.ErrServerClosed {
				log.Info(err)
			} else {
				log.Error(err)
				chanStopServer <- "error"
			}
		}
	}()
	log.Info(fmt.Sprintf("Listening on http://%v", srv.Addr))
	return srv, chanStopServer
}

func addrOrAll(ip net.IP) string {
	if ip == nil {
		return ""
	}
	return ip.String()
}

func waitForServer(log logger.Logger, srv *http.Server, chanStopServer chan string) error {
	// Accept graceful shutdowns when quit via SIGINT (Ctrl+C).
	chanOS := make(chan os.Signal, 1)
	signal.Notify(chanOS, os.Interrupt)
	defer signal.Stop(chanOS)
	select {
	case <-chanStopServer:
	case <-chanOS:
	}
	log.Info("Shutting down web server...")
	// Shutdown waits for a run in progress up to the timeout.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*constants.WebServerShutdownTimeoutSec)
	defer cancel()
	return srv.Shutdown(ctx)
}
