package types

import (
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// SemVer wraps Masterminds/semver/v3, adding the Helm-ism of accepting a
// literal 'v' prefix and 'x'/'X' version-component placeholders (e.g.
// "1.2.x"), substituted with "0" before delegating to the underlying
// parser. Supplemented from original_source's semver newtype, which the
// distilled spec does not mention but real chart metadata relies on.
type SemVer struct {
	v *semver.Version
}

// ParseSemVer parses s per semver 2.0, applying the 'v'-trim and 'x'/'X'
// substitution described above.
func ParseSemVer(s string) (SemVer, error) {
	trimmed := strings.TrimPrefix(s, "v")
	trimmed = strings.TrimPrefix(trimmed, "V")
	normalized := substituteWildcards(trimmed)

	parsed, err := semver.NewVersion(normalized)
	if err != nil {
		return SemVer{}, err
	}

	return SemVer{v: parsed}, nil
}

func substituteWildcards(s string) string {
	core, rest := s, ""
	if i := strings.IndexAny(s, "-+"); i >= 0 {
		core, rest = s[:i], s[i:]
	}
	parts := strings.Split(core, ".")
	for i, p := range parts {
		if p == "x" || p == "X" {
			parts[i] = "0"
		}
	}
	return strings.Join(parts, ".") + rest
}

// IsPrerelease reports whether the pre-release segment is non-empty.
func (s SemVer) IsPrerelease() bool {
	return s.v.Prerelease() != ""
}

// String returns the canonical string form (no leading 'v').
func (s SemVer) String() string {
	return s.v.String()
}

// Compare returns -1, 0, or 1 per semver ordering, consistent with
// Masterminds/semver/v3's Compare (pre-releases sort below their release).
func (s SemVer) Compare(other SemVer) int {
	return s.v.Compare(other.v)
}

// GreaterThan reports whether s > other under semver ordering.
func (s SemVer) GreaterThan(other SemVer) bool {
	return s.Compare(other) > 0
}

// MarshalJSON serializes a SemVer as its canonical string form.
func (s SemVer) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON parses a SemVer from its canonical string form.
func (s *SemVer) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	parsed, err := ParseSemVer(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// MarshalYAML serializes a SemVer as its canonical string form.
func (s SemVer) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}

// UnmarshalYAML parses a SemVer from its canonical string form.
func (s *SemVer) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := ParseSemVer(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// SortDescending sorts versions strictly descending per semver ordering,
// satisfying P3 and the ordering invariant in §4.3.
func SortDescending(versions []SemVer) {
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].Compare(versions[j]) > 0
	})
}
