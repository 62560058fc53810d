// Package catalog reads IPS "catalog.dependency.C" files into package
// records and feeds them into a graph.
//
// A dependency catalog maps publishers to package names to a list of
// versions, each carrying the depend and set actions of that version:
//
//	{
//	  "openindiana.org": {
//	    "library/zlib": [
//	      {"version": "1.3.1,5.11-2024.0.0.0:20240101T000000Z",
//	       "actions": ["depend fmri=pkg:/system/library@0.5.11 type=require"]}
//	    ]
//	  },
//	  "_SIGNATURE": {...}
//	}
//
// Parsing is lenient per record: a version entry that cannot be parsed is
// reported in the returned error list and skipped, and the rest of the
// catalog still loads.
package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pkgcheck/pkg/depend"
	"github.com/matzehuels/pkgcheck/pkg/errors"
	"github.com/matzehuels/pkgcheck/pkg/fmri"
	"github.com/matzehuels/pkgcheck/pkg/graph"
)

// FileName is the catalog part that carries dependency actions.
const FileName = "catalog.dependency.C"

const signatureKey = "_SIGNATURE"

// Record is one published package version.
type Record struct {
	FMRI     fmri.FMRI
	Obsolete bool
	Renamed  bool
	Runtime  []depend.Dependency
}

type versionEntry struct {
	Version string   `json:"version"`
	Actions []string `json:"actions"`
}

// ParseFile parses the catalog at path.
func ParseFile(path string) ([]Record, []error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open catalog %s", path)
	}
	defer f.Close()

	recs, errs, err := Parse(f, path)
	if err != nil {
		return nil, nil, err
	}
	return recs, errs, nil
}

// Parse decodes a catalog from r. source names the catalog in errors.
// The first error is fatal (the document itself is malformed); the error
// list holds one entry per skipped version record.
func Parse(r io.Reader, source string) ([]Record, []error, error) {
	var doc map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeInvalidCatalog, err, "decode %s", source)
	}

	publishers := make([]string, 0, len(doc))
	for pub := range doc {
		if pub != signatureKey {
			publishers = append(publishers, pub)
		}
	}
	slices.Sort(publishers)

	var (
		records []Record
		errs    []error
	)
	for _, pub := range publishers {
		var pkgs map[string][]versionEntry
		if err := json.Unmarshal(doc[pub], &pkgs); err != nil {
			errs = append(errs, &errors.RecordError{Source: source, Record: pub, Err: err})
			continue
		}

		names := make([]string, 0, len(pkgs))
		for name := range pkgs {
			names = append(names, name)
		}
		slices.Sort(names)

		for _, name := range names {
			for _, entry := range pkgs[name] {
				rec, err := parseEntry(pub, name, entry)
				if err != nil {
					errs = append(errs, &errors.RecordError{
						Source: source,
						Record: name + "@" + entry.Version,
						Err:    err,
					})
					continue
				}
				records = append(records, rec)
			}
		}
	}
	return records, errs, nil
}

func parseEntry(pub, name string, entry versionEntry) (Record, error) {
	id, err := fmri.Parse(name + "@" + entry.Version)
	if err != nil {
		return Record{}, err
	}
	rec := Record{FMRI: id.WithPublisher(pub)}

	for _, action := range entry.Actions {
		verb, rest, _ := strings.Cut(strings.TrimSpace(action), " ")
		attrs, err := parseAttributes(rest)
		if err != nil {
			return Record{}, err
		}
		switch verb {
		case "depend":
			d, err := parseDepend(attrs)
			if err != nil {
				return Record{}, err
			}
			rec.Runtime = append(rec.Runtime, d)
		case "set":
			switch attrs.first("name") {
			case "pkg.obsolete":
				rec.Obsolete = rec.Obsolete || attrs.first("value") == "true"
			case "pkg.renamed":
				rec.Renamed = rec.Renamed || attrs.first("value") == "true"
			}
		default:
			return Record{}, fmt.Errorf("unknown action %q", verb)
		}
	}
	return rec, nil
}

type attributes map[string][]string

func (a attributes) first(key string) string {
	if v := a[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// parseAttributes splits "k=v k=v" pairs. A key may repeat (require-any
// lists several fmri= attributes). Values may be double-quoted.
func parseAttributes(s string) (attributes, error) {
	attrs := make(attributes)
	for _, field := range splitFields(s) {
		key, value, ok := strings.Cut(field, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("malformed attribute %q", field)
		}
		attrs[key] = append(attrs[key], strings.Trim(value, `"`))
	}
	return attrs, nil
}

func splitFields(s string) []string {
	var (
		fields []string
		cur    strings.Builder
		quoted bool
	)
	for _, r := range s {
		switch {
		case r == '"':
			quoted = !quoted
			cur.WriteRune(r)
		case (r == ' ' || r == '\t') && !quoted:
			if cur.Len() > 0 {
				fields = append(fields, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		fields = append(fields, cur.String())
	}
	return fields
}

func parseDepend(attrs attributes) (depend.Dependency, error) {
	kind, err := depend.ParseKind(attrs.first("type"))
	if err != nil {
		return depend.Dependency{}, err
	}

	targets := make([]fmri.FMRI, 0, len(attrs["fmri"]))
	for _, raw := range attrs["fmri"] {
		f, err := fmri.Parse(raw)
		if err != nil {
			return depend.Dependency{}, err
		}
		targets = append(targets, f)
	}
	if len(targets) == 0 {
		return depend.Dependency{}, fmt.Errorf("%s dependency without fmri", kind)
	}

	switch kind {
	case depend.KindRequireAny:
		return depend.RequireAny(targets...), nil
	case depend.KindConditional:
		raw := attrs.first("predicate")
		if raw == "" {
			return depend.Dependency{}, fmt.Errorf("conditional dependency on %s without predicate", targets[0])
		}
		pred, err := fmri.Parse(raw)
		if err != nil {
			return depend.Dependency{}, err
		}
		return depend.Conditional(targets[0], pred), nil
	default:
		return depend.Dependency{Kind: kind, FMRI: targets[0]}, nil
	}
}

// Load adds every record to g and returns the number of versions loaded.
// Records flagged both obsolete and renamed, alone or merged with a version
// an earlier catalog published, are rejected and returned as errors; they
// never reach the graph.
func Load(g *graph.Graph, records []Record, logger *log.Logger) (int, []error) {
	if logger == nil {
		logger = log.Default()
	}

	var (
		loaded int
		errs   []error
	)
	for _, rec := range records {
		if rec.Obsolete && rec.Renamed {
			errs = append(errs, &errors.RecordError{
				Record: rec.FMRI.String(),
				Err:    errors.New(errors.ErrCodeInvalidCatalog, "version is both obsolete and renamed"),
			})
			continue
		}
		if _, err := g.AddPackage(rec.FMRI, rec.Obsolete, rec.Renamed, rec.Runtime); err != nil {
			errs = append(errs, &errors.RecordError{Record: rec.FMRI.String(), Err: err})
			continue
		}
		loaded++
	}
	logger.Debug("catalog loaded", "versions", loaded, "rejected", len(errs))
	return loaded, errs
}
