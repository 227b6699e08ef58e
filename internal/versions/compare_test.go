package versions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNewerVersion_StoreSchema(t *testing.T) {
	t.Parallel()

	const supported = "1.0.0"

	tests := []struct {
		name     string
		document string
		want     bool
	}{
		{name: "document from before schema versions", document: "", want: false},
		{name: "same schema", document: "1.0.0", want: false},
		{name: "same schema with v prefix", document: "v1.0.0", want: false},
		{name: "older schema", document: "0.9.3", want: false},
		{name: "patch bump", document: "1.0.1", want: true},
		{name: "minor bump", document: "1.1.0", want: true},
		{name: "major bump", document: "2.0.0", want: true},
		{name: "prerelease of supported schema", document: "1.0.0-rc.1", want: false},
		{name: "prerelease of next schema", document: "1.1.0-rc.1", want: true},
		{name: "garbage sorts after digits", document: "next", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsNewerVersion(tt.document, supported))
		})
	}
}

func TestIsNewerVersion_UnversionedBaseline(t *testing.T) {
	t.Parallel()

	assert.True(t, IsNewerVersion("1.0.0", ""))
	assert.False(t, IsNewerVersion("", ""))
}
