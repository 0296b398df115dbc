package errorsink

import (
	"sync"

	"github.com/aescanero/kvarea/pkg/ports"
	"go.uber.org/zap"
)

// Logger reports errors to a zap logger at error level
type Logger struct {
	logger *zap.Logger
}

// NewLogger creates a new logging error sink
func NewLogger(logger *zap.Logger) *Logger {
	return &Logger{logger: logger}
}

// ReportError logs err
func (l *Logger) ReportError(err error) {
	l.logger.Error("storage error", zap.Error(err))
}

// Recorder keeps every reported error
type Recorder struct {
	mu     sync.Mutex
	errors []error
}

// NewRecorder creates a new recording error sink
func NewRecorder() *Recorder {
	return &Recorder{}
}

// ReportError records err
func (r *Recorder) ReportError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.errors = append(r.errors, err)
}

// Errors returns a copy of the recorded errors in report order
func (r *Recorder) Errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]error, len(r.errors))
	copy(out, r.errors)
	return out
}

// Messages returns the recorded error messages in report order
func (r *Recorder) Messages() []string {
	errs := r.Errors()
	out := make([]string, len(errs))
	for i, err := range errs {
		out[i] = err.Error()
	}
	return out
}

// Len returns the number of recorded errors
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.errors)
}

// Reset discards the recorded errors
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.errors = nil
}

// Multi forwards every error to each sink in order
type Multi []ports.ErrorSink

// ReportError forwards err
func (m Multi) ReportError(err error) {
	for _, s := range m {
		s.ReportError(err)
	}
}
