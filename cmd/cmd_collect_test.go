// Copyright 2025 The Mektep Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abakirov/mektep/collect"
)

// Marking a flag as changed cannot be undone, so the flags-win phase has
// to run after every phase that needs pristine flags.
func TestApplyCollectEnv(t *testing.T) {
	saved := *collectOptions
	defer func() { *collectOptions = saved }()

	// Merges the persistent flags into the command's flag set, as Execute
	// would have.
	require.NoError(t, collectCmd.ParseFlags(nil))

	require.Equal(t, collect.DefaultTilesPerAxis, collectOptions.tiles)
	require.True(t, collectOptions.strict)

	t.Setenv("TILES_PER_AXIS", "5")
	t.Setenv("OUTPUT_DIR", "/tmp/mektep-test")
	t.Setenv("STRICT_SCHOOL_FILTER", "0")
	t.Setenv("YANDEX_LANG", "kk_KZ")

	require.NoError(t, applyCollectEnv(collectCmd))
	assert.Equal(t, 5, collectOptions.tiles)
	assert.Equal(t, "/tmp/mektep-test", collectOptions.outputDir)
	assert.False(t, collectOptions.strict)
	assert.Equal(t, "kk_KZ", collectOptions.lang)

	// Anything except "0" keeps the filter strict.
	t.Setenv("STRICT_SCHOOL_FILTER", "yes")
	require.NoError(t, applyCollectEnv(collectCmd))
	assert.True(t, collectOptions.strict)

	t.Setenv("TILES_PER_AXIS", "many")
	err := applyCollectEnv(collectCmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TILES_PER_AXIS")

	t.Setenv("TILES_PER_AXIS", "5")
	require.NoError(t, collectCmd.Flags().Set("tiles", "12"))
	require.NoError(t, collectCmd.Flags().Set("lang", "uz_UZ"))

	require.NoError(t, applyCollectEnv(collectCmd))
	assert.Equal(t, 12, collectOptions.tiles)
	assert.Equal(t, "uz_UZ", collectOptions.lang)
}
