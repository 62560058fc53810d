package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/matzehuels/pkgcheck/pkg/audit"
	"github.com/matzehuels/pkgcheck/pkg/observability"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner animates a one-line status on stderr until it is stopped or its
// context ends.
type Spinner struct {
	w      io.Writer
	parent context.Context
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	message string
	width   int // widest line drawn so far, cleared on stop

	start    sync.Once
	stop     sync.Once
	finished chan struct{}
}

func newSpinnerWithContext(parent context.Context, message string) *Spinner {
	ctx, cancel := context.WithCancel(parent)
	return &Spinner{
		w:        os.Stderr,
		parent:   parent,
		ctx:      ctx,
		cancel:   cancel,
		message:  message,
		finished: make(chan struct{}),
	}
}

// Start begins the animation. Calls after the first are ignored.
func (s *Spinner) Start() {
	s.start.Do(func() { go s.run() })
}

func (s *Spinner) run() {
	defer close(s.finished)
	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()

	for i := 0; ; i++ {
		select {
		case <-s.ctx.Done():
			s.clearLine()
			return
		case <-ticker.C:
			s.draw(spinnerFrames[i%len(spinnerFrames)])
		}
	}
}

func (s *Spinner) draw(frame string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width = max(s.width, len(s.message)+4)
	fmt.Fprintf(s.w, "\r%s %s", styleIconSpinner.Render(frame), StyleDim.Render(s.message))
}

// SetMessage replaces the text shown next to the spinner.
func (s *Spinner) SetMessage(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(message) < len(s.message) {
		fmt.Fprintf(s.w, "\r%s", strings.Repeat(" ", s.width))
	}
	s.message = message
}

// Stop ends the animation and clears the line. It may be called more than
// once and without Start.
func (s *Spinner) Stop() {
	s.stop.Do(func() {
		started := true
		s.start.Do(func() { started = false })
		s.cancel()
		if started {
			<-s.finished
		}
		s.clearLine()
	})
}

func (s *Spinner) clearLine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", max(s.width, len(s.message)+4)))
}

// StopWithError stops the spinner and prints message as a failure.
func (s *Spinner) StopWithError(message string) {
	s.Stop()
	printError("%s", message)
}

// Cancelled reports whether the parent context ended, as opposed to a
// plain Stop.
func (s *Spinner) Cancelled() bool {
	return s.parent.Err() != nil
}

// stageMessages label the audit stages shown by a stage spinner.
var stageMessages = map[string]string{
	audit.StageCatalog:    "Loading catalogs...",
	audit.StageHistory:    "Applying history...",
	audit.StageComponents: "Querying components...",
	audit.StageResolve:    "Resolving versions...",
	audit.StageDistribute: "Indexing dependents...",
	audit.StageCycles:     "Detecting cycles...",
}

// spinnerHooks shows the running audit stage on a spinner.
type spinnerHooks struct {
	observability.NoopAuditHooks
	spinner *Spinner
}

func (h spinnerHooks) OnStageStart(_ context.Context, stage string) {
	if msg, ok := stageMessages[stage]; ok {
		h.spinner.SetMessage(msg)
	}
}
