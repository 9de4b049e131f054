package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withVersion(t *testing.T, v string) {
	t.Helper()
	old := version
	version = v
	t.Cleanup(func() { version = old })
}

func TestGetVersionTrimsPrefix(t *testing.T) {
	withVersion(t, "v1.4.2")
	assert.Equal(t, "1.4.2", GetVersion())
}

func TestSemver(t *testing.T) {
	withVersion(t, "1.4.2")
	v, err := Semver()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v.Major())
	assert.Equal(t, uint64(4), v.Minor())
	assert.False(t, IsDevelopment())
}

func TestIsDevelopment(t *testing.T) {
	tests := []struct {
		version string
		want    bool
	}{
		{"0.1.0-dev", true},
		{"2.0.0-rc.1", true},
		{"2.0.0", false},
		{"not-a-version", true},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			withVersion(t, tt.version)
			assert.Equal(t, tt.want, IsDevelopment())
		})
	}
}

func TestString(t *testing.T) {
	withVersion(t, "1.0.0")
	out := String()
	assert.Contains(t, out, "1.0.0\n")
	assert.Contains(t, out, "commit: ")
	assert.Contains(t, out, "go: go")
}
