// Package blargg runs Blargg's test ROMs, which report their result as text
// on the serial port. ROMs are looked up under test-roms/ and skipped when
// missing.
package blargg

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/valerio/jeebie/jeebie"
	"github.com/valerio/jeebie/jeebie/addr"
	"github.com/valerio/jeebie/jeebie/serial"
)

const baseDir = "../../test-roms/game-boy-test-roms/blargg"

type BlarggTestCase struct {
	ROMPath   string
	MaxFrames int
	Name      string
}

func GetBlarggTests() []BlarggTestCase {
	individual := filepath.Join(baseDir, "cpu_instrs", "individual")
	cases := []BlarggTestCase{
		{filepath.Join(baseDir, "instr_timing", "instr_timing.gb"), 1200, "instr_timing"},
		{filepath.Join(baseDir, "halt_bug.gb"), 500, "halt_bug"},
	}
	for _, name := range []string{
		"01-special", "02-interrupts", "03-op sp,hl", "04-op r,imm", "05-op rp",
		"06-ld r,r", "07-jr,jp,call,ret,rst", "08-misc instrs",
	} {
		cases = append(cases, BlarggTestCase{filepath.Join(individual, name+".gb"), 500, name})
	}
	for _, name := range []string{"09-op r,r", "10-bit ops", "11-op a,(hl)"} {
		cases = append(cases, BlarggTestCase{filepath.Join(individual, name+".gb"), 1500, name})
	}
	return cases
}

// runBlarggTest runs the ROM until it prints its verdict and returns the
// whole serial output.
func runBlarggTest(t *testing.T, tc BlarggTestCase) string {
	t.Helper()
	if _, err := os.Stat(tc.ROMPath); os.IsNotExist(err) {
		t.Skipf("ROM file not found: %s", tc.ROMPath)
	}

	emu, err := jeebie.NewWithFile(tc.ROMPath)
	require.NoError(t, err)

	var output []string
	done := false
	mmu := emu.MMU()
	mmu.AttachSerial(serial.NewLogSink(
		func() { mmu.RequestInterrupt(addr.SerialInterrupt) },
		serial.WithLineHandler(func(line string) {
			output = append(output, line)
			if strings.Contains(line, "Passed") || strings.Contains(line, "Failed") {
				done = true
			}
		}),
	))

	for frame := 0; frame < tc.MaxFrames && !done; frame++ {
		require.NoError(t, emu.RunUntilFrame())
	}
	return strings.Join(output, "\n")
}

func TestBlargg(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping ROM tests in short mode")
	}

	for _, tc := range GetBlarggTests() {
		t.Run(tc.Name, func(t *testing.T) {
			t.Parallel()
			output := runBlarggTest(t, tc)
			require.Contains(t, output, "Passed", "serial output:\n%s", output)
		})
	}
}
