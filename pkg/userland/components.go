// Package userland reads component metadata from an oi-userland style
// source tree and loads it into a graph.
//
// A tree has a components directory whose Makefile can generate
// components.mk, a list of component directories relative to it. Every
// component directory holds a pkg5 file naming the packages it publishes,
// and a Makefile that prints its build and test requirements on request:
//
//	components/
//	  Makefile
//	  components.mk          # "COMPONENT_DIRS += library/zlib" ...
//	  library/zlib/
//	    Makefile             # make print-value-REQUIRED_PACKAGES
//	    pkg5                 # {"fmris": ["library/zlib"], ...}
//	  encumbered/            # optional second tree with the same layout
//
// Build queries shell out to make, which is slow; [MakeQuerier] runs them
// with a timeout and caches answers keyed on the Makefile contents.
package userland

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/matzehuels/pkgcheck/pkg/errors"
	"github.com/matzehuels/pkgcheck/pkg/fmri"
)

const (
	// ListFile is the generated component list in a components directory.
	ListFile = "components.mk"
	// ManifestFile lists the packages a component publishes.
	ManifestFile = "pkg5"
	// EncumberedDir is the optional nested tree of encumbered components.
	EncumberedDir = "encumbered"
)

// illumos-gate is not listed in components.mk but publishes packages.
const gateComponent = "openindiana/illumos-gate"

// Runner runs an external command in dir and returns its standard output.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// RunnerFunc adapts a function to [Runner].
type RunnerFunc func(ctx context.Context, dir, name string, args ...string) ([]byte, error)

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	return f(ctx, dir, name, args...)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements [Runner]. Standard error is folded into the returned error.
func (ExecRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return out, fmt.Errorf("%w: %s", err, msg)
		}
		return out, err
	}
	return out, nil
}

// Entry is one component of the source tree.
type Entry struct {
	// Name is the component directory relative to the top components
	// directory, e.g. "library/zlib" or "encumbered/media/lame".
	Name     string
	Path     string
	Packages []fmri.FMRI
}

type manifest struct {
	FMRIs []string `json:"fmris"`
}

// ListComponents regenerates and reads the component list of componentsDir
// and its encumbered subtree, and reads every component's manifest.
// A component whose manifest is missing or malformed is skipped and
// reported in the error list; failing to produce the list itself is fatal.
func ListComponents(ctx context.Context, runner Runner, componentsDir string) ([]Entry, []error, error) {
	names, err := listTree(ctx, runner, componentsDir)
	if err != nil {
		return nil, nil, err
	}

	encDir := filepath.Join(componentsDir, EncumberedDir)
	if _, err := os.Stat(filepath.Join(encDir, "Makefile")); err == nil {
		enc, err := listTree(ctx, runner, encDir)
		if err != nil {
			return nil, nil, err
		}
		for _, n := range enc {
			names = append(names, EncumberedDir+"/"+n)
		}
	}

	seen := make(map[string]bool, len(names)+1)
	for _, n := range names {
		seen[n] = true
	}
	if !seen[gateComponent] {
		if _, err := os.Stat(filepath.Join(componentsDir, gateComponent, ManifestFile)); err == nil {
			names = append(names, gateComponent)
		}
	}

	var (
		entries []Entry
		errs    []error
	)
	for _, name := range names {
		if err := errors.ValidateComponentName(name); err != nil {
			errs = append(errs, &errors.RecordError{Source: componentsDir, Record: name, Err: err})
			continue
		}
		dir := filepath.Join(componentsDir, filepath.FromSlash(name))
		pkgs, err := readManifest(filepath.Join(dir, ManifestFile))
		if err != nil {
			errs = append(errs, &errors.RecordError{Source: componentsDir, Record: name, Err: err})
			continue
		}
		entries = append(entries, Entry{Name: name, Path: dir, Packages: pkgs})
	}
	return entries, errs, nil
}

func listTree(ctx context.Context, runner Runner, dir string) ([]string, error) {
	listPath := filepath.Join(dir, ListFile)
	if err := os.Remove(listPath); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeInvalidComponent, err, "remove %s", listPath)
	}
	if _, err := runner.Run(ctx, dir, "make", ListFile); err != nil {
		return nil, errors.Wrap(errors.ErrCodeBuildQuery, err, "make %s in %s", ListFile, dir)
	}

	f, err := os.Open(listPath)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", listPath)
	}
	defer f.Close()
	return ParseList(f)
}

// ParseList reads a components.mk listing. The last whitespace-separated
// token of every non-empty, non-comment line names a component directory.
func ParseList(r io.Reader) ([]string, error) {
	var names []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		names = append(names, fields[len(fields)-1])
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidComponent, err, "read %s", ListFile)
	}
	return names, nil
}

func readManifest(path string) ([]fmri.FMRI, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "read %s", path)
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidComponent, err, "decode %s", path)
	}
	if m.FMRIs == nil {
		return nil, errors.New(errors.ErrCodeInvalidComponent, "%s has no fmris list", path)
	}

	pkgs := make([]fmri.FMRI, 0, len(m.FMRIs))
	for _, raw := range m.FMRIs {
		f, err := fmri.Parse(raw)
		if err != nil {
			return nil, err
		}
		pkgs = append(pkgs, f.Normalize())
	}
	return pkgs, nil
}
