// Package history reads the package history file of a userland tree and
// applies its obsolete and renamed records to a graph.
//
// Each non-blank line that does not start with '#' names one package,
// optionally followed by its successor and by the noincorporate flag:
//
//	library/python/six@1.16.0,5.11-2024.0.0.0   # obsoleted
//	library/libfoo@1.0 library/foo               # renamed to library/foo
//	library/bar@2.1 noincorporate                # obsoleted, not incorporated
//
// A record without a successor is an obsolescence, a record with one is a
// rename. Trailing "#" comments are ignored.
package history

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pkgcheck/pkg/errors"
	"github.com/matzehuels/pkgcheck/pkg/fmri"
	"github.com/matzehuels/pkgcheck/pkg/graph"
)

// Record is one history line.
type Record struct {
	FMRI      fmri.FMRI
	RenamedTo *fmri.FMRI // nil for an obsolescence
	// NoIncorporate keeps the record out of the userland incorporation.
	NoIncorporate bool
	Line          int
}

// noIncorporate is the optional last field of a history line.
const noIncorporate = "noincorporate"

// Renamed reports whether the record is a rename.
func (r Record) Renamed() bool { return r.RenamedTo != nil }

// ParseFile parses the history file at path.
func ParseFile(path string) ([]Record, []error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open history %s", path)
	}
	defer f.Close()
	return Parse(f, path)
}

// Parse reads history records from r. Lines that cannot be parsed are
// returned as errors and skipped.
func Parse(r io.Reader, source string) ([]Record, []error, error) {
	var (
		records []Record
		errs    []error
	)
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		rec, err := parseFields(fields)
		if err != nil {
			errs = append(errs, &errors.RecordError{Source: source, Record: fmt.Sprintf("line %d", n), Err: err})
			continue
		}
		rec.Line = n
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeInvalidHistory, err, "read %s", source)
	}
	return records, errs, nil
}

func parseFields(fields []string) (Record, error) {
	var rec Record
	if len(fields) > 1 && fields[len(fields)-1] == noIncorporate {
		rec.NoIncorporate = true
		fields = fields[:len(fields)-1]
	}
	if len(fields) > 2 {
		return Record{}, errors.New(errors.ErrCodeInvalidHistory, "expected fmri [successor] [%s], got %d fields", noIncorporate, len(fields))
	}
	id, err := fmri.Parse(fields[0])
	if err != nil {
		return Record{}, err
	}
	rec.FMRI = id
	if len(fields) == 2 {
		to, err := fmri.Parse(fields[1])
		if err != nil {
			return Record{}, err
		}
		if to.Name == id.Name {
			return Record{}, errors.New(errors.ErrCodeInvalidHistory, "%s renamed to itself", id.Name)
		}
		rec.RenamedTo = &to
	}
	return rec, nil
}

// Apply marks every record on g. Unknown packages and versions, and records
// that contradict a flag already set, are returned as errors and skipped.
func Apply(g *graph.Graph, records []Record, logger *log.Logger) (int, []error) {
	if logger == nil {
		logger = log.Default()
	}

	var (
		applied int
		errs    []error
	)
	for _, rec := range records {
		if err := apply(g, rec); err != nil {
			errs = append(errs, &errors.RecordError{Record: fmt.Sprintf("line %d", rec.Line), Err: err})
			continue
		}
		applied++
	}
	logger.Debug("history applied", "records", applied, "rejected", len(errs))
	return applied, errs
}

func apply(g *graph.Graph, rec Record) error {
	obsolete, renamed, err := g.Flags(rec.FMRI)
	if err != nil {
		return err
	}

	if rec.Renamed() {
		if obsolete {
			return errors.New(errors.ErrCodeInvalidHistory, "%s is obsolete and cannot be renamed", rec.FMRI)
		}
		if err := g.MarkRenamed(rec.FMRI); err != nil {
			return err
		}
		return g.SetRenamedTo(rec.FMRI, *rec.RenamedTo)
	}

	if renamed {
		return errors.New(errors.ErrCodeInvalidHistory, "%s is renamed and cannot be obsoleted", rec.FMRI)
	}
	return g.MarkObsolete(rec.FMRI)
}
