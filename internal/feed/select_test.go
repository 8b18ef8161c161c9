package feed

import (
	"testing"

	"github.com/Masterminds/semver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func v(t *testing.T, s string) *semver.Version {
	ver, err := semver.NewVersion(s)
	require.NoError(t, err)
	return ver
}

func TestSelectUpgrade(t *testing.T) {
	f := Feed{Assets: []Asset{{Type: TypeFull, Version: "1.1.0", FileName: "a-1.1.0-full.nupkg"}}}
	info := Select(f, v(t, "1.0.0"), false, "stable", "stable")
	assert.Equal(t, UpdateAvailable, info.Status)
	assert.False(t, info.IsDowngrade)
}

func TestSelectDowngradePrevented(t *testing.T) {
	// S4: feed has only 0.9.0, installed 1.0.0, downgrade=false.
	f := Feed{Assets: []Asset{{Type: TypeFull, Version: "0.9.0", FileName: "a-0.9.0-full.nupkg"}}}
	info := Select(f, v(t, "1.0.0"), false, "stable", "stable")
	assert.Equal(t, NoUpdate, info.Status)
}

func TestSelectDowngradeAllowed(t *testing.T) {
	f := Feed{Assets: []Asset{{Type: TypeFull, Version: "0.9.0", FileName: "a-0.9.0-full.nupkg"}}}
	info := Select(f, v(t, "1.0.0"), true, "stable", "stable")
	assert.Equal(t, UpdateAvailable, info.Status)
	assert.True(t, info.IsDowngrade)
}

func TestSelectChannelSwitch(t *testing.T) {
	// S5: installed 1.0.0 on "stable"; explicit channel "beta" feed has
	// 1.0.0; downgrade allowed -> UpdateAvailable, IsDowngrade=true.
	f := Feed{Assets: []Asset{{Type: TypeFull, Version: "1.0.0", FileName: "a-1.0.0-full.nupkg"}}}
	info := Select(f, v(t, "1.0.0"), true, "beta", "stable")
	assert.Equal(t, UpdateAvailable, info.Status)
	assert.True(t, info.IsDowngrade)
}

func TestSelectNoChannelSwitchNoOp(t *testing.T) {
	f := Feed{Assets: []Asset{{Type: TypeFull, Version: "1.0.0", FileName: "a-1.0.0-full.nupkg"}}}
	info := Select(f, v(t, "1.0.0"), true, "stable", "stable")
	assert.Equal(t, NoUpdate, info.Status)
}

func TestSelectEmptyFeed(t *testing.T) {
	info := Select(Feed{}, v(t, "1.0.0"), false, "stable", "stable")
	assert.Equal(t, RemoteEmpty, info.Status)
}

func TestSelectMonotonicity(t *testing.T) {
	// Property #3: fixed feed, downgrade=false. If the selector returns
	// UpdateAvailable for cur_b, it must also return UpdateAvailable for
	// any cur_a <= cur_b.
	f := Feed{Assets: []Asset{{Type: TypeFull, Version: "5.0.0", FileName: "a-5.0.0-full.nupkg"}}}

	curB := v(t, "3.0.0")
	infoB := Select(f, curB, false, "stable", "stable")
	require.Equal(t, UpdateAvailable, infoB.Status)

	for _, curA := range []string{"1.0.0", "2.9.9", "3.0.0"} {
		infoA := Select(f, v(t, curA), false, "stable", "stable")
		assert.Equal(t, UpdateAvailable, infoA.Status, "cur_a=%s", curA)
	}
}

func TestFeedFindCaseInsensitive(t *testing.T) {
	f := Feed{Assets: []Asset{{FileName: "Sample-1.0.0-full.nupkg"}}}
	_, ok := f.Find("sample-1.0.0-FULL.nupkg")
	assert.True(t, ok)
}
