package actions

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/relloyd/batchetl/constants"
	"github.com/relloyd/batchetl/helper"
	"github.com/relloyd/batchetl/logger"
)

type WebServerResponse uint32

const (
	Okay WebServerResponse = iota + 1
	Error
)

func (w WebServerResponse) MarshalJSON() ([]byte, error) {
	var retval string
	switch w {
	case Okay:
		retval = "ok"
	case Error:
		retval = "error"
	default:
		err := fmt.Errorf("unhandled WebServerResponse value in MarshalJSON() conversion")
		return nil, err
	}
	return json.Marshal(retval)
}

type ResponseSimple struct {
	ServerStatus WebServerResponse `json:"status"`
}

type ResponseRun struct {
	Status  WebServerResponse `json:"status"`
	Message string            `json:"message"`
	Run     *RunSummary       `json:"run,omitempty"`
}

func GetHandlerHealth(log logger.Logger) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		respond(log, w, http.StatusOK, ResponseSimple{ServerStatus: Okay})
	}
}

func GetHandlerStopServer(log logger.Logger, chanStop chan string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		select {
		case chanStop <- "stop":
			log.Info("Stop signal sent")
		default: // already stopping
		}
		respond(log, w, http.StatusOK, ResponseSimple{ServerStatus: Okay})
	}
}

// GetHandlerRun runs the pipeline for the date in the path and the optional step query parameter.
// It answers 409 if a run is already in progress.
func GetHandlerRun(log logger.Logger, rn *runner) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		date := mux.Vars(r)["date"]
		if err := helper.ValidateLogicalDate(date); err != nil {
			respond(log, w, http.StatusBadRequest, ResponseRun{Status: Error, Message: err.Error()})
			return
		}
		step := r.URL.Query().Get("step")
		if step == "" {
			step = constants.StepAll
		}
		if err := helper.ValidateStep(step); err != nil {
			respond(log, w, http.StatusBadRequest, ResponseRun{Status: Error, Message: err.Error()})
			return
		}
		log.Info("HTTP request to run step ", step, " for ", date)
		s, ok := rn.tryRun(r.Context(), date, step)
		if !ok {
			respond(log, w, http.StatusConflict, ResponseRun{Status: Error, Message: "a run is already in progress"})
			return
		}
		if s.Error != "" {
			respond(log, w, http.StatusInternalServerError, ResponseRun{Status: Error, Message: "run failed", Run: &s})
			return
		}
		respond(log, w, http.StatusOK, ResponseRun{Status: Okay, Message: "run complete", Run: &s})
	}
}

// GetHandlerLastRun returns the most recent run, if any.
func GetHandlerLastRun(log logger.Logger, rn *runner) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		if !rn.mu.TryLock() {
			respond(log, w, http.StatusConflict, ResponseRun{Status: Error, Message: "a run is in progress"})
			return
		}
		last := rn.last
		rn.mu.Unlock()
		if last == nil {
			respond(log, w, http.StatusNotFound, ResponseRun{Status: Error, Message: "no runs yet"})
			return
		}
		respond(log, w, http.StatusOK, ResponseRun{Status: Okay, Run: last})
	}
}

// respond will marshal i to JSON and write it to w with the status code.
func respond(log logger.Logger, w http.ResponseWriter, code int, i interface{}) {
	j, err := json.MarshalIndent(i, "", "  ")
	if err != nil {
		log.Error(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err = fmt.Fprint(w, string(j)); err != nil {
		log.Error(err)
	}
}
