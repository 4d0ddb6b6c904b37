package version

import (
	"strings"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionIsValidSemver(t *testing.T) {
	v := GetVersion()
	if v == "main" {
		t.Skip("development build")
	}

	parsed, err := semver.NewVersion(strings.TrimPrefix(v, "v"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, parsed.Major(), uint64(1))
}
