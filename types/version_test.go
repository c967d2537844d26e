package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		input   string
		want    Version
		wantErr bool
	}{
		{input: "18.3", want: Version{Major: 18, Minor: 3}},
		{input: "19.3.0.0.0", want: Version{Major: 19, Minor: 3}},
		{input: "23.4.0.24.05", want: Version{Major: 23, Minor: 4, PortRelease: 24, PortUpdate: 5}},
		{input: "21.0.0.0.0 Production", want: Version{Major: 21}},
		{input: " 12.1.0.2.0", want: Version{Major: 12, Minor: 1, PortRelease: 2}},
		{input: "", wantErr: true},
		{input: "abc", wantErr: true},
		{input: "1.2.3.4.5.6", wantErr: true},
		{input: "100.1", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseVersion(tc.input)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestVersionNumber(t *testing.T) {
	v := MustParseVersion("18.3")
	assert.Equal(t, int64(1803000000), v.Number())
	assert.Equal(t, v, VersionFromNumber(1803000000))

	v = MustParseVersion("23.4.0.24.5")
	assert.Equal(t, v, VersionFromNumber(v.Number()))
	assert.Equal(t, "23.4.0.24.5", v.String())
}

func TestVersionCompare(t *testing.T) {
	min := MustParseVersion("18.3")
	assert.True(t, MustParseVersion("18.3.0.0.0").AtLeast(min))
	assert.True(t, MustParseVersion("19.0").AtLeast(min))
	assert.False(t, MustParseVersion("18.2.9.9.9").AtLeast(min))
	assert.False(t, MustParseVersion("12.2").AtLeast(min))
	assert.True(t, Version{}.IsZero())

	cmp, err := CompareVersionStrings("19.3", "19.3.0")
	require.NoError(t, err)
	assert.Equal(t, 0, cmp)

	cmp, err = CompareVersionStrings("21.1", "19.20")
	require.NoError(t, err)
	assert.Equal(t, 1, cmp)

	_, err = CompareVersionStrings("x", "1")
	require.Error(t, err)
}
