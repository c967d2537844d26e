package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is an Oracle five part release number, e.g. 19.3.0.0.0
type Version struct {
	Major       int
	Minor       int
	Update      int
	PortRelease int
	PortUpdate  int
}

// ParseVersion accepts dotted versions with one to five numeric parts.
// Trailing text after the numeric prefix (" Production", "-beta") is ignored.
func ParseVersion(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if idx := strings.IndexFunc(s, func(r rune) bool { return r != '.' && (r < '0' || r > '9') }); idx >= 0 {
		s = s[:idx]
	}
	s = strings.TrimRight(s, ".")
	if s == "" {
		return Version{}, fmt.Errorf("invalid version format: empty")
	}

	parts := strings.Split(s, ".")
	if len(parts) > 5 {
		return Version{}, fmt.Errorf("invalid version format: %s has more than five parts", s)
	}
	nums := make([]int, 5)
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return Version{}, fmt.Errorf("invalid version part %q: %s", part, err)
		}
		if n < 0 || n > 99 {
			return Version{}, fmt.Errorf("invalid version part %q: out of range", part)
		}
		nums[i] = n
	}
	return Version{Major: nums[0], Minor: nums[1], Update: nums[2], PortRelease: nums[3], PortUpdate: nums[4]}, nil
}

// MustParseVersion panics on malformed input; meant for constants.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// VersionFromNumber decodes the packed form produced by Number.
func VersionFromNumber(n int64) Version {
	return Version{
		Major:       int(n / 100000000),
		Minor:       int(n / 1000000 % 100),
		Update:      int(n / 10000 % 100),
		PortRelease: int(n / 100 % 100),
		PortUpdate:  int(n % 100),
	}
}

// Number packs the version as MMmmuuppPP, so 18.3 is 1803000000.
func (v Version) Number() int64 {
	return int64(v.Major)*100000000 +
		int64(v.Minor)*1000000 +
		int64(v.Update)*10000 +
		int64(v.PortRelease)*100 +
		int64(v.PortUpdate)
}

func (v Version) Compare(other Version) int {
	a, b := v.Number(), other.Number()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (v Version) AtLeast(min Version) bool {
	return v.Compare(min) >= 0
}

func (v Version) IsZero() bool {
	return v == Version{}
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d.%d", v.Major, v.Minor, v.Update, v.PortRelease, v.PortUpdate)
}

// CompareVersionStrings compares two dotted version strings part by part.
// Missing parts count as zero; it returns an error if either side is malformed.
func CompareVersionStrings(a, b string) (int, error) {
	va, err := ParseVersion(a)
	if err != nil {
		return 0, err
	}
	vb, err := ParseVersion(b)
	if err != nil {
		return 0, err
	}
	return va.Compare(vb), nil
}
