package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/pkgcheck/pkg/audit"
)

func testSpinner(ctx context.Context, msg string) (*Spinner, *bytes.Buffer) {
	var buf bytes.Buffer
	s := newSpinnerWithContext(ctx, msg)
	s.w = &buf
	return s, &buf
}

func TestSpinnerDrawsMessage(t *testing.T) {
	s, buf := testSpinner(context.Background(), "Loading catalogs...")
	s.Start()
	time.Sleep(150 * time.Millisecond)
	s.Stop()

	if !strings.Contains(buf.String(), "Loading catalogs...") {
		t.Errorf("output %q lacks the message", buf.String())
	}
	if !strings.HasSuffix(buf.String(), "\r") {
		t.Error("Stop should leave the cursor at the start of a cleared line")
	}
	if s.Cancelled() {
		t.Error("a stopped spinner is not cancelled")
	}
}

func TestSpinnerCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	s, _ := testSpinner(ctx, "Querying components...")
	s.Start()
	time.Sleep(100 * time.Millisecond)

	if !s.Cancelled() {
		t.Error("spinner should be cancelled after the context expires")
	}
	s.Stop()
	s.Stop()
}

func TestSpinnerHooks(t *testing.T) {
	s, buf := testSpinner(context.Background(), "Auditing...")
	h := spinnerHooks{spinner: s}

	h.OnStageStart(context.Background(), audit.StageResolve)
	h.OnStageStart(context.Background(), "unknown")
	s.Start()
	time.Sleep(150 * time.Millisecond)
	s.Stop()

	if !strings.Contains(buf.String(), stageMessages[audit.StageResolve]) {
		t.Errorf("output %q lacks the stage message", buf.String())
	}
	if strings.Contains(buf.String(), "Auditing...") {
		t.Error("stage message should replace the initial message")
	}
}
