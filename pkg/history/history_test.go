package history

import (
	"errors"
	"strings"
	"testing"

	"github.com/matzehuels/pkgcheck/pkg/fmri"
	"github.com/matzehuels/pkgcheck/pkg/graph"
)

const sample = `# obsoleted and renamed packages
library/old@1.0
library/libfoo@1.0 library/foo   # moved
library/gone

not a valid line at all
library/self library/self
`

func TestParse(t *testing.T) {
	recs, errs, err := Parse(strings.NewReader(sample), "history")
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 3 {
		t.Fatalf("len(records) = %d, want 3", len(recs))
	}
	if len(errs) != 2 {
		t.Errorf("errs = %v, want 2", errs)
	}

	if recs[0].Renamed() || recs[0].FMRI.Version.Release != "1.0" || recs[0].Line != 2 {
		t.Errorf("records[0] = %+v", recs[0])
	}
	if !recs[1].Renamed() || recs[1].RenamedTo.Name != "library/foo" {
		t.Errorf("records[1] = %+v", recs[1])
	}
	if recs[2].FMRI.HasVersion() {
		t.Errorf("records[2] should be versionless: %+v", recs[2])
	}
}

func TestParseFields(t *testing.T) {
	tests := []struct {
		line          string
		renamedTo     string
		noIncorporate bool
		wantErr       bool
	}{
		{line: "library/foo@1.0"},
		{line: "library/foo@1.0 noincorporate", noIncorporate: true},
		{line: "library/old@1.0 library/new", renamedTo: "library/new"},
		{line: "library/old@1.0 library/new noincorporate", renamedTo: "library/new", noIncorporate: true},
		{line: "library/old@1.0 library/new extra", wantErr: true},
		{line: "library/old@1.0 library/new noincorporate extra", wantErr: true},
		{line: "library/old@1.0 noincorporate library/new", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			rec, err := parseFields(strings.Fields(tt.line))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseFields() = %+v, want error", rec)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if rec.NoIncorporate != tt.noIncorporate {
				t.Errorf("NoIncorporate = %v, want %v", rec.NoIncorporate, tt.noIncorporate)
			}
			var to string
			if rec.RenamedTo != nil {
				to = rec.RenamedTo.Name
			}
			if to != tt.renamedTo {
				t.Errorf("RenamedTo = %q, want %q", to, tt.renamedTo)
			}
		})
	}
}

func TestApplyNoIncorporateObsoletes(t *testing.T) {
	g := graph.New(graph.Options{})
	if _, err := g.AddPackage(fmri.MustParse("library/foo@1.0"), false, false, nil); err != nil {
		t.Fatal(err)
	}
	recs, errs, err := Parse(strings.NewReader("library/foo@1.0 noincorporate\n"), "history")
	if err != nil || len(errs) != 0 {
		t.Fatalf("Parse: %v %v", err, errs)
	}
	if _, errs := Apply(g, recs, nil); len(errs) != 0 {
		t.Fatalf("Apply: %v", errs)
	}
	obsolete, renamed, err := g.Flags(fmri.MustParse("library/foo@1.0"))
	if err != nil || !obsolete || renamed {
		t.Errorf("Flags = %v, %v, %v; want obsolete only", obsolete, renamed, err)
	}
}

func TestApply(t *testing.T) {
	g := graph.New(graph.Options{})
	for _, id := range []string{"library/old@1.0", "library/old@2.0", "library/libfoo@1.0", "library/gone@3"} {
		if _, err := g.AddPackage(fmri.MustParse(id), false, false, nil); err != nil {
			t.Fatal(err)
		}
	}
	recs, _, err := Parse(strings.NewReader(sample), "history")
	if err != nil {
		t.Fatal(err)
	}
	recs = append(recs,
		Record{FMRI: fmri.MustParse("library/unknown"), Line: 99},
		Record{FMRI: fmri.MustParse("library/libfoo@1.0"), Line: 100},
	)

	applied, errs := Apply(g, recs, nil)
	if applied != 3 {
		t.Errorf("applied = %d, want 3", applied)
	}
	if len(errs) != 2 {
		t.Fatalf("errs = %v, want 2", errs)
	}
	if !errors.Is(errs[0], graph.ErrPackageNotFound) {
		t.Errorf("errs[0] = %v, want ErrPackageNotFound", errs[0])
	}

	g.ResolveVersions()
	old, _ := g.PackageByName("library/old")
	if old.Active().Version.Release != "2.0" || old.IsObsolete() {
		t.Errorf("library/old active = %s, obsolete %v", old.Active().Version, old.IsObsolete())
	}
	libfoo, _ := g.PackageByName("library/libfoo")
	if !libfoo.IsRenamed() || libfoo.RenamedTo != "library/foo" {
		t.Errorf("library/libfoo renamed %v to %q", libfoo.IsRenamed(), libfoo.RenamedTo)
	}
	gone, _ := g.PackageByName("library/gone")
	if !gone.IsObsolete() || gone.FullyObsolete() {
		t.Errorf("library/gone obsolete %v fully %v", gone.IsObsolete(), gone.FullyObsolete())
	}
}
