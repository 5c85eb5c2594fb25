package logger_test

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/relloyd/batchetl/logger"
	log "github.com/sirupsen/logrus"
)

var _ = Describe("Logger", func() {
	l := logger.NewLogger("test-service", "debug", true)
	l.SetFormatter(&log.JSONFormatter{})

	It("Should have `test-service` as service name", func() {
		logOutput := bytes.NewBufferString("")
		l.SetOutput(logOutput)

		l.Info("Testing")
		var actual map[string]interface{}
		Expect(json.Unmarshal(logOutput.Bytes(), &actual)).To(Succeed())

		Expect(actual["service"]).To(Equal("test-service"))
	})

	It("Should have info as log level", func() {
		var actual map[string]interface{}
		logOutput := bytes.NewBufferString("")
		l.SetOutput(logOutput)

		l.Info("Testing")
		Expect(json.Unmarshal(logOutput.Bytes(), &actual)).To(Succeed())

		Expect(actual["level"]).To(Equal("info"))
	})

	It("Should have warn as log level", func() {
		logOutput := bytes.NewBufferString("")
		l.SetOutput(logOutput)

		l.Warn("Testing")
		var actual map[string]interface{}
		Expect(json.Unmarshal(logOutput.Bytes(), &actual)).To(Succeed())

		Expect(actual["level"]).To(Equal("warning"))
	})

	It("Should have error as log level and a stack trace", func() {
		logOutput := bytes.NewBufferString("")
		l.SetOutput(logOutput)

		l.Error("Testing")
		var actual map[string]interface{}
		Expect(json.Unmarshal(logOutput.Bytes(), &actual)).To(Succeed())

		Expect(actual["level"]).To(Equal("error"))
		Expect(actual["stackTrace"]).ToNot(BeNil())
	})

	It("Should have `Testing` as msg", func() {
		logOutput := bytes.NewBufferString("")
		l.SetOutput(logOutput)

		l.Info("Testing")
		var actual map[string]interface{}
		Expect(json.Unmarshal(logOutput.Bytes(), &actual)).To(Succeed())

		Expect(actual["msg"]).To(Equal("Testing"))
	})

	It("Should add fields on a child logger only", func() {
		logOutput := bytes.NewBufferString("")
		l.SetOutput(logOutput)

		l.WithFields(map[string]interface{}{"date": "2024-06-01"}).Info("child")
		var actual map[string]interface{}
		Expect(json.Unmarshal(logOutput.Bytes(), &actual)).To(Succeed())
		Expect(actual["date"]).To(Equal("2024-06-01"))

		logOutput.Reset()
		l.Info("parent")
		actual = nil
		Expect(json.Unmarshal(logOutput.Bytes(), &actual)).To(Succeed())
		Expect(actual).ToNot(HaveKey("date"))
	})
})

var _ = Describe("Run logger", func() {
	var dir string

	BeforeEach(func() {
		var err error
		dir, err = ioutil.TempDir("", "batchetl-logger")
		Expect(err).ToNot(HaveOccurred())
	})

	AfterEach(func() {
		_ = os.RemoveAll(dir)
	})

	It("Should write to the console and the log file", func() {
		logFile := filepath.Join(dir, "logs", "etl_2024-06-01.log")
		l, err := logger.NewRunLogger("test-service", "info", false, logFile)
		Expect(err).ToNot(HaveOccurred())
		console := bytes.NewBufferString("")
		l.SetOutput(console)

		l.Info("Extracting table: orders")
		l.Debug("hidden")
		Expect(l.Close()).To(Succeed())

		Expect(console.String()).To(ContainSubstring("Extracting table: orders"))
		b, err := ioutil.ReadFile(logFile)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(b)).To(ContainSubstring(" - INFO - Extracting table: orders"))
		Expect(string(b)).To(ContainSubstring("service=test-service"))
		Expect(string(b)).ToNot(ContainSubstring("hidden"))
	})

	It("Should append across runs and tolerate a second Close", func() {
		logFile := filepath.Join(dir, "etl.log")
		for _, msg := range []string{"first", "second"} {
			l, err := logger.NewRunLogger("test-service", "info", false, logFile)
			Expect(err).ToNot(HaveOccurred())
			l.SetOutput(ioutil.Discard)
			l.Info(msg)
			Expect(l.Close()).To(Succeed())
			Expect(l.Close()).To(Succeed())
		}
		b, err := ioutil.ReadFile(logFile)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(b)).To(ContainSubstring("first"))
		Expect(string(b)).To(ContainSubstring("second"))
	})

	It("Should reject an unknown level", func() {
		_, err := logger.NewRunLogger("test-service", "noisy", false, filepath.Join(dir, "x.log"))
		Expect(err).To(HaveOccurred())
	})
})
