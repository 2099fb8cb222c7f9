package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

const spinnerInterval = 100 * time.Millisecond

var spinnerFrames = []string{"⠋", "⠙", "⠸", "⠴", "⠦", "⠇"}

// Spinner is a stderr progress indicator for long-running scans. The text
// next to the frame can be swapped while it runs, so commands can surface
// the package currently being visited, and each frame carries the elapsed
// time since Start.
type Spinner struct {
	out    io.Writer
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	message string
	width   int

	stop     chan struct{}
	stopOnce sync.Once
	finished chan struct{}
}

// newSpinner creates a spinner with a starting message.
func newSpinner(message string) *Spinner {
	return newSpinnerWithContext(context.Background(), message)
}

// newSpinnerWithContext creates a spinner that erases itself when ctx is
// cancelled.
func newSpinnerWithContext(ctx context.Context, message string) *Spinner {
	sctx, cancel := context.WithCancel(ctx)
	return &Spinner{
		out:      os.Stderr,
		ctx:      sctx,
		cancel:   cancel,
		message:  message,
		stop:     make(chan struct{}),
		finished: make(chan struct{}),
	}
}

// Start begins the animation. Frames go to stderr so piped stdout output
// stays clean.
func (s *Spinner) Start() {
	started := time.Now()
	go func() {
		defer close(s.finished)
		ticker := time.NewTicker(spinnerInterval)
		defer ticker.Stop()

		for i := 0; ; i++ {
			select {
			case <-s.ctx.Done():
				s.erase()
				return
			case <-s.stop:
				return
			case <-ticker.C:
				s.render(spinnerFrames[i%len(spinnerFrames)], time.Since(started))
			}
		}
	}()
}

// SetMessage swaps the text shown next to the frame.
func (s *Spinner) SetMessage(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

// Stop halts the animation and erases the spinner line. Safe to call more
// than once.
func (s *Spinner) Stop() {
	s.cancel()
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.finished
	s.erase()
}

// StopWithSuccess stops the spinner and prints a success line.
func (s *Spinner) StopWithSuccess(message string) {
	s.Stop()
	printSuccess("%s", message)
}

// StopWithError stops the spinner and prints an error line.
func (s *Spinner) StopWithError(message string) {
	s.Stop()
	printError("%s", message)
}

// Cancelled reports whether the spinner's context was cancelled.
func (s *Spinner) Cancelled() bool {
	return s.ctx.Err() != nil
}

func (s *Spinner) render(frame string, elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	suffix := fmt.Sprintf("(%ds)", int(elapsed.Seconds()))
	if w := len([]rune(s.message)) + len(suffix) + 3; w > s.width {
		s.width = w
	}
	fmt.Fprintf(s.out, "\r%s %s %s",
		styleIconSpinner.Render(frame),
		StyleDim.Render(s.message),
		StyleDim.Render(suffix))
}

// erase blanks the widest line rendered so far.
func (s *Spinner) erase() {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, "\r%s\r", strings.Repeat(" ", s.width))
}
