package fmri

import (
	"testing"

	"github.com/matzehuels/pkgcheck/pkg/errors"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    FMRI
		wantErr bool
	}{
		{
			name:  "bare name",
			input: "library/zlib",
			want:  FMRI{Name: "library/zlib"},
		},
		{
			name:  "scheme without publisher",
			input: "pkg:/library/zlib@1.3.1",
			want:  FMRI{Name: "library/zlib", Version: Version{Release: "1.3.1"}},
		},
		{
			name:  "full form",
			input: "pkg://openindiana.org/library/zlib@1.3.1,5.11-2024.0.0.0:20240101T120000Z",
			want: FMRI{
				Publisher: "openindiana.org",
				Name:      "library/zlib",
				Version: Version{
					Release:      "1.3.1",
					BuildRelease: "5.11",
					Branch:       "2024.0.0.0",
					Timestamp:    "20240101T120000Z",
				},
			},
		},
		{
			name:  "name with version no scheme",
			input: "system/library@0.5.11-2017.0.0.16778",
			want:  FMRI{Name: "system/library", Version: Version{Release: "0.5.11", Branch: "2017.0.0.16778"}},
		},
		{
			name:  "surrounding whitespace",
			input: "  developer/gcc-13  ",
			want:  FMRI{Name: "developer/gcc-13"},
		},

		{name: "empty", input: "", wantErr: true},
		{name: "empty name", input: "pkg:/@1.0", wantErr: true},
		{name: "empty version", input: "library/zlib@", wantErr: true},
		{name: "empty publisher", input: "pkg:///library/zlib", wantErr: true},
		{name: "publisher without name", input: "pkg://openindiana.org", wantErr: true},
		{name: "empty version segment", input: "library/zlib@1..2", wantErr: true},
		{name: "empty branch", input: "library/zlib@1.2-", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, errors.ErrCodeInvalidFMRI) {
					t.Errorf("Parse(%q) error code = %v, want %v", tt.input, errors.GetCode(err), errors.ErrCodeInvalidFMRI)
				}
				return
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %#v, want %#v", tt.input, got, tt.want)
			}
		})
	}
}

func TestStringRoundTrip(t *testing.T) {
	inputs := []string{
		"library/zlib",
		"library/zlib@1.3.1",
		"pkg://openindiana.org/library/zlib@1.3.1,5.11-2024.0.0.0:20240101T120000Z",
		"system/library@0.5.11-2017.0.0.16778",
	}
	for _, in := range inputs {
		f := MustParse(in)
		if got := f.String(); got != in {
			t.Errorf("String() = %q, want %q", got, in)
		}
		again := MustParse(f.String())
		if again != f {
			t.Errorf("round trip of %q changed value: %#v != %#v", in, again, f)
		}
	}
}

func TestNormalize(t *testing.T) {
	f := MustParse("pkg://openindiana.org/library/zlib@1.3.1")
	n := f.Normalize()

	if n.Publisher != "" || n.HasVersion() {
		t.Errorf("Normalize() = %#v, want publisher and version stripped", n)
	}
	if n.String() != "library/zlib" {
		t.Errorf("Normalize().String() = %q, want %q", n.String(), "library/zlib")
	}
	if !n.NameEqual(f) {
		t.Error("normalized FMRI should be name-equal to the original")
	}
	if n.Equal(f) {
		t.Error("normalized FMRI should not be identical to the versioned original")
	}
}

func TestNameEqualVsEqual(t *testing.T) {
	a := MustParse("library/zlib@1.2")
	b := MustParse("pkg://other/library/zlib@1.3")
	c := MustParse("library/zlib@1.2")

	if !a.NameEqual(b) {
		t.Error("a.NameEqual(b) = false, want true")
	}
	if a.Equal(b) {
		t.Error("a.Equal(b) = true, want false")
	}
	if !a.Equal(c) {
		t.Error("a.Equal(c) = false, want true")
	}
}

func TestFMRICompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"library/a@1.0", "library/b@0.1", -1},
		{"library/a@1.0", "library/a@1.0", 0},
		{"library/a@1.10", "library/a@1.9", 1},
		{"library/a", "library/a@0.1", -1},
		{"pkg://x/library/a@1.0", "pkg://y/library/a@1.0", 0},
	}
	for _, tt := range tests {
		if got := MustParse(tt.a).Compare(MustParse(tt.b)); got != tt.want {
			t.Errorf("Compare(%s, %s) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestWithHelpers(t *testing.T) {
	f := MustParse("library/zlib")
	v := Version{Release: "2.0"}

	pinned := f.WithVersion(v).WithPublisher("openindiana.org")
	if pinned.String() != "pkg://openindiana.org/library/zlib@2.0" {
		t.Errorf("pinned = %q", pinned.String())
	}
	if f.HasVersion() {
		t.Error("WithVersion must not modify the receiver")
	}
	if got := pinned.StripPublisher().String(); got != "library/zlib@2.0" {
		t.Errorf("StripPublisher() = %q", got)
	}
}

func TestMustParsePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustParse(\"\") did not panic")
		}
	}()
	MustParse("")
}
