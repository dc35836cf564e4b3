package jeebie

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/valerio/jeebie/jeebie/audio"
	"github.com/valerio/jeebie/jeebie/snapshot"
)

// ErrTitleMismatch is returned when loading a save state taken with a
// different cartridge.
var ErrTitleMismatch = errors.New("save state belongs to a different cartridge")

// Snapshot captures the complete emulation state.
func (d *DMG) Snapshot() *snapshot.DMG {
	return &snapshot.DMG{
		Version: snapshot.Version,
		Title:   d.Title(),
		Ticks:   d.ticks,
		Frames:  d.gpu.Frames(),
		CPU:     d.cpu.State(),
		Memory:  d.mem.State(),
		Video:   d.gpu.State(),
		Audio:   d.apu.State(),
	}
}

// Restore replaces the emulation state with s. Memory goes first since the
// display controller derives its palettes from it. A fatal error is
// cleared, the restored state is assumed consistent.
func (d *DMG) Restore(s *snapshot.DMG) error {
	if s.Title != d.Title() {
		return fmt.Errorf("%w: %q, loaded %q", ErrTitleMismatch, s.Title, d.Title())
	}
	if s.CPU == nil || s.Memory == nil || s.Video == nil {
		return errors.New("incomplete save state")
	}
	// nothing is touched until every section is known to restore
	if err := audio.CheckState(s.Audio); err != nil {
		return err
	}

	if err := d.mem.SetState(s.Memory); err != nil {
		return fmt.Errorf("restoring memory: %w", err)
	}
	d.cpu.SetState(s.CPU)
	d.gpu.SetState(s.Video)
	if err := d.apu.SetState(s.Audio); err != nil {
		return err
	}

	d.ticks = s.Ticks
	d.frameTicks = 0
	d.vblank, d.frameDone, d.resume = false, false, false
	d.fatal = nil
	d.logger.Debug("Restored state", "title", s.Title, "ticks", s.Ticks, "frames", s.Frames)
	return nil
}

// SaveState writes the current state as JSON.
func (d *DMG) SaveState(w io.Writer) error {
	return snapshot.Encode(w, d.Snapshot())
}

// LoadState reads a state written by SaveState.
func (d *DMG) LoadState(r io.Reader) error {
	s, err := snapshot.Decode(r)
	if err != nil {
		return err
	}
	return d.Restore(s)
}

// SaveStateFile writes the current state to path.
func (d *DMG) SaveStateFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating save state: %w", err)
	}
	if err := d.SaveState(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadStateFile reads a state written by SaveStateFile.
func (d *DMG) LoadStateFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening save state: %w", err)
	}
	defer f.Close()
	return d.LoadState(f)
}
