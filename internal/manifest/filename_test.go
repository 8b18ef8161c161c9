package manifest

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFileName(t *testing.T) {
	tests := []struct {
		fileName    string
		wantID      string
		wantVersion string
		wantKind    AssetKind
		wantErr     bool
	}{
		{"Velopack-1.0.0-full.nupkg", "Velopack", "1.0.0", KindFull, false},
		{"My.Cool-App-1.1.0-full.nupkg", "My.Cool-App", "1.1.0", KindFull, false},
		{"MyCoolApp-1.2.3.nupkg", "", "", KindFull, true},
		{"Sample-2.0.0-win-x64-delta.nupkg", "Sample", "2.0.0", KindDelta, false},
		{"Sample-2.0.0-DELTA.nupkg", "Sample", "2.0.0", KindDelta, false},
		{"NoVersionHere-full.nupkg", "", "", KindFull, true},
	}

	for _, tt := range tests {
		t.Run(tt.fileName, func(t *testing.T) {
			id, ver, kind, err := ParseFileName(tt.fileName)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
			assert.Equal(t, tt.wantVersion, ver.String())
			assert.Equal(t, tt.wantKind, kind)
		})
	}
}

func TestPackageFileNameRoundTrip(t *testing.T) {
	cases := []struct {
		id      string
		version string
		delta   bool
	}{
		{"Velopack", "1.0.0", false},
		{"My.Cool-App", "1.1.0", false},
		{"Sample", "9.9.9-beta.1", true},
	}

	for _, c := range cases {
		t.Run(fmt.Sprintf("%s-%s", c.id, c.version), func(t *testing.T) {
			m := &Manifest{ID: c.id}
			ver, err := newTestVersion(c.version)
			require.NoError(t, err)
			m.Version = ver

			var fileName string
			if c.delta {
				fileName = m.DeltaFileName()
			} else {
				fileName = m.PackageFileName()
			}

			gotID, gotVersion, gotKind, err := ParseFileName(fileName)
			require.NoError(t, err)
			assert.Equal(t, c.id, gotID)
			assert.Equal(t, c.version, gotVersion.String())
			if c.delta {
				assert.Equal(t, KindDelta, gotKind)
			} else {
				assert.Equal(t, KindFull, gotKind)
			}
		})
	}
}
