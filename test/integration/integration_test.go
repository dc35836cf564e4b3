// Package integration compares the screen after a fixed number of frames
// against golden hashes. Set INTEGRATION_GENERATE_GOLDEN=true to record
// them. ROMs are looked up under test-roms/ and skipped when missing.
package integration

import (
	"crypto/md5"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valerio/jeebie/jeebie"
	"github.com/valerio/jeebie/jeebie/debug"
	"github.com/valerio/jeebie/jeebie/video"
)

const romsDir = "../../test-roms/game-boy-test-roms"

type IntegrationTestCase struct {
	ROMPath string
	Frames  int
	Name    string
}

func GetIntegrationTests() []IntegrationTestCase {
	return []IntegrationTestCase{
		{filepath.Join(romsDir, "dmg-acid2", "dmg-acid2.gb"), 10, "dmg-acid2"},
		{filepath.Join(romsDir, "blargg", "cpu_instrs", "cpu_instrs.gb"), 3300, "cpu_instrs"},
		{filepath.Join(romsDir, "blargg", "mem_timing", "individual", "01-read_timing.gb"), 60, "mem_timing_01-read"},
		{filepath.Join(romsDir, "blargg", "mem_timing", "individual", "02-write_timing.gb"), 60, "mem_timing_02-write"},
		{filepath.Join(romsDir, "blargg", "mem_timing", "individual", "03-modify_timing.gb"), 60, "mem_timing_03-modify"},
		{filepath.Join(romsDir, "blargg", "dmg_sound", "rom_singles", "01-registers.gb"), 60, "dmg_sound_01-registers"},
	}
}

// screenHash hashes the frame in a layout independent of the host byte
// order.
func screenHash(fb *video.FrameBuffer) string {
	buf := make([]byte, 0, len(fb.ToSlice())*4)
	for _, px := range fb.ToSlice() {
		buf = binary.LittleEndian.AppendUint32(buf, px)
	}
	return fmt.Sprintf("%x", md5.Sum(buf))
}

func runIntegrationTest(t *testing.T, tc IntegrationTestCase) {
	if _, err := os.Stat(tc.ROMPath); os.IsNotExist(err) {
		t.Skipf("ROM file not found: %s", tc.ROMPath)
	}

	emu, err := jeebie.NewWithFile(tc.ROMPath)
	require.NoError(t, err)
	for range tc.Frames {
		require.NoError(t, emu.RunUntilFrame())
	}

	fb := emu.Screen()
	hash := screenHash(fb)
	goldenPath := filepath.Join("testdata", tc.Name+".md5")

	if os.Getenv("INTEGRATION_GENERATE_GOLDEN") == "true" {
		require.NoError(t, os.MkdirAll(filepath.Join("testdata", "snapshots"), 0o755))
		require.NoError(t, os.WriteFile(goldenPath, []byte(hash+"\n"), 0o644))
		require.NoError(t, debug.SaveFramePNG(fb, filepath.Join("testdata", "snapshots", tc.Name+".png")))
		t.Logf("Reference files generated - hash: %s", hash)
		return
	}

	golden, err := os.ReadFile(goldenPath)
	if os.IsNotExist(err) {
		t.Skipf("golden hash not found: %s", goldenPath)
	}
	require.NoError(t, err)

	expected := strings.TrimSpace(string(golden))
	if !assert.Equal(t, expected, hash, "screen differs from golden") {
		actual := filepath.Join(t.TempDir(), tc.Name+"_actual.png")
		if err := debug.SaveFramePNG(fb, actual); err == nil {
			t.Logf("actual screen saved to %s", actual)
		}
	}
}

func TestIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}

	for _, tc := range GetIntegrationTests() {
		t.Run(tc.Name, func(t *testing.T) {
			t.Parallel()
			runIntegrationTest(t, tc)
		})
	}
}
