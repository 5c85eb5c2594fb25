package logger

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/relloyd/batchetl/constants"
	log "github.com/sirupsen/logrus"
)

// fileHook appends every entry to a log file using lineFormatter.
type fileHook struct {
	mu        sync.Mutex
	f         *os.File
	formatter log.Formatter
}

func newFileHook(f *os.File) *fileHook {
	return &fileHook{f: f, formatter: &lineFormatter{}}
}

func (h *fileHook) Levels() []log.Level {
	return log.AllLevels
}

func (h *fileHook) Fire(e *log.Entry) error {
	b, err := h.formatter.Format(e)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.f == nil { // closed
		return nil
	}
	_, err = h.f.Write(b)
	return err
}

func (h *fileHook) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.f == nil {
		return nil
	}
	if err := h.f.Sync(); err != nil {
		_ = h.f.Close()
		h.f = nil
		return err
	}
	err := h.f.Close()
	h.f = nil
	return err
}

// lineFormatter renders "<time> - <LEVEL> - <message> k=v ..." lines.
type lineFormatter struct{}

func (lineFormatter) Format(e *log.Entry) ([]byte, error) {
	b := &bytes.Buffer{}
	fmt.Fprintf(b, "%v - %v - %v", e.Time.Format(constants.TimeFormatYearSecondsTZ), strings.ToUpper(e.Level.String()), e.Message)
	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		if k == "stackTrace" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, " %v=%v", k, e.Data[k])
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}
