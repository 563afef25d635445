// Package testutil provides mock implementations for interfaces defined in the
// sales-report core library (pkg/report and subpackages) plus small fixture
// helpers shared by package tests.
package testutil

import (
	"io"
	"time"

	"github.com/stackvity/sales-report/pkg/report"
	"github.com/stretchr/testify/mock"
)

// MockHooks provides a mock implementation of the report.Hooks interface.
// Configure expectations using testify/mock methods (e.g., .On("OnFileStarted", ...).Return(nil)).
// testify's mock.Mock is internally locked, so concurrent Aggregators may call it safely.
type MockHooks struct {
	mock.Mock
}

// OnFileStarted mocks the OnFileStarted method.
func (m *MockHooks) OnFileStarted(path string) error {
	args := m.Called(path)
	return args.Error(0)
}

// OnLineRejected mocks the OnLineRejected method.
func (m *MockHooks) OnLineRejected(path string, rejection *report.LineError) error {
	args := m.Called(path, rejection)
	return args.Error(0)
}

// OnFileCompleted mocks the OnFileCompleted method.
func (m *MockHooks) OnFileCompleted(path string, summary report.FileSummary, duration time.Duration) error {
	args := m.Called(path, summary, duration)
	return args.Error(0)
}

// OnRunComplete mocks the OnRunComplete method.
func (m *MockHooks) OnRunComplete(summaries []report.FileSummary) error {
	args := m.Called(summaries)
	return args.Error(0)
}

// MockMetricsRecorder provides a mock implementation of report.MetricsRecorder.
type MockMetricsRecorder struct {
	mock.Mock
}

// LineAccepted mocks the LineAccepted method.
func (m *MockMetricsRecorder) LineAccepted() {
	m.Called()
}

// LineRejected mocks the LineRejected method.
func (m *MockMetricsRecorder) LineRejected(reason string) {
	m.Called(reason)
}

// FileCompleted mocks the FileCompleted method.
func (m *MockMetricsRecorder) FileCompleted(status string, duration time.Duration) {
	m.Called(status, duration)
}

// MockDecoder provides a mock implementation of the encoding.Decoder interface.
// See encoding.Decoder for the interface contract.
type MockDecoder struct {
	mock.Mock
}

// NewReader mocks the NewReader method.
func (m *MockDecoder) NewReader(r io.Reader) (utf8Reader io.Reader, encodingName string, err error) {
	args := m.Called(r)
	utf8Reader, _ = args.Get(0).(io.Reader)
	encodingName, _ = args.Get(1).(string)
	err = args.Error(2)
	return
}

// IsBinary mocks the IsBinary method.
func (m *MockDecoder) IsBinary(content []byte) bool {
	args := m.Called(content)
	isBinary, _ := args.Get(0).(bool)
	return isBinary
}
