package errors

import (
	"net/url"
	"strings"
	"unicode"
)

const maxNameLength = 256

// ValidatePackageName checks an IPS package name such as "library/libxml2"
// or "developer/gcc-13": non-empty, at most 256 bytes, no whitespace or
// control characters, no empty or ".." segments and no backslashes.
func ValidatePackageName(name string) error {
	return validateName(ErrCodeInvalidFMRI, "package", name)
}

// ValidateComponentName checks a component name, the component directory
// relative to the components tree (e.g. "library/libxml2" or
// "encumbered/media/lame"). The rules are those of package names.
func ValidateComponentName(name string) error {
	return validateName(ErrCodeInvalidComponent, "component", name)
}

func validateName(code Code, what, name string) error {
	switch {
	case name == "":
		return New(code, "%s name cannot be empty", what)
	case len(name) > maxNameLength:
		return New(code, "%s name too long (max %d characters)", what, maxNameLength)
	case strings.Contains(name, `\`):
		return New(code, "%s name contains a backslash: %q", what, name)
	}
	for _, r := range name {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(code, "%s name contains invalid characters: %q", what, name)
		}
	}
	for _, seg := range strings.Split(name, "/") {
		if seg == "" || seg == ".." {
			return New(code, "%s name has an empty or %q segment: %q", what, "..", name)
		}
	}
	return nil
}

// ValidateURL checks that rawURL is an absolute http or https URL with a
// host, as required for catalog downloads.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return Wrap(ErrCodeInvalidInput, err, "parse URL %q", rawURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return New(ErrCodeInvalidInput, "URL must use http or https: %q", rawURL)
	}
	if u.Host == "" {
		return New(ErrCodeInvalidInput, "URL has no host: %q", rawURL)
	}
	return nil
}
