package scriptkotlin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchesPrefix(t *testing.T) {
	testCases := []struct {
		filename string
		prefixes []string
		want     bool
	}{
		{"kotlin-stdlib-1.0.jar", []string{"kotlin-stdlib"}, true},
		{"gradle-core.jar", []string{"kotlin-stdlib", "gradle-script-kotlin"}, false},
		{"gradle-script-kotlin-runtime.jar", []string{"kotlin-stdlib", "gradle-script-kotlin"}, true},
		{"anything.jar", nil, false},
	}

	for _, tc := range testCases {
		t.Run(tc.filename, func(t *testing.T) {
			assert.Equal(t, tc.want, MatchesPrefix(tc.filename, tc.prefixes...))
		})
	}
}

func TestMatchesExtension(t *testing.T) {
	assert.True(t, MatchesExtension("gradle-api-3.0.jar", ".jar"))
	assert.True(t, MatchesExtension("GRADLE-API.JAR", "jar"))
	assert.False(t, MatchesExtension("gradle-api-3.0.jar", ".zip"))
}
