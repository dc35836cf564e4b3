package debug

import (
	"fmt"
	"math"

	"github.com/valerio/jeebie/jeebie/addr"
	"github.com/valerio/jeebie/jeebie/audio"
)

type ChannelStatus struct {
	Enabled   bool
	Muted     bool
	Frequency float64
	Volume    uint8
	DutyCycle uint8
	Note      string
}

type AudioData struct {
	APUEnabled   bool
	MasterVolume struct {
		Left  uint8
		Right uint8
	}
	Channels           [4]ChannelStatus
	FrameSequencerStep uint8
	SampleRate         int
	BufferedSamples    int
}

// ExtractAudioData reads the live channel state from the APU, the
// registers only for what the APU does not expose.
func ExtractAudioData(apu *audio.APU, reader Memory) *AudioData {
	data := &AudioData{
		APUEnabled:         apu.Enabled(),
		FrameSequencerStep: apu.Sequencer().Value(),
		SampleRate:         apu.SampleRate(),
		BufferedSamples:    apu.SampleCount(),
	}

	nr50 := reader.LowLevelRead(addr.NR50)
	data.MasterVolume.Left = (nr50 >> 4) & 0x07
	data.MasterVolume.Right = nr50 & 0x07

	running := apu.ChannelStatus()
	sq1, sq2, wave, noise := apu.Square1(), apu.Square2(), apu.Wave(), apu.Noise()

	data.Channels[0] = ChannelStatus{
		Enabled:   sq1.Enabled(),
		Frequency: squareHz(sq1.Frequency()),
		Volume:    sq1.Volume(),
		DutyCycle: reader.LowLevelRead(addr.NR11) >> 6,
	}
	data.Channels[1] = ChannelStatus{
		Enabled:   sq2.Enabled(),
		Frequency: squareHz(sq2.Frequency()),
		Volume:    sq2.Volume(),
		DutyCycle: reader.LowLevelRead(addr.NR21) >> 6,
	}
	data.Channels[2] = ChannelStatus{
		Enabled:   wave.Enabled(),
		Frequency: float64(audio.CPUFrequency) / float64(64*(2048-int(wave.Frequency()))),
		Volume:    waveVolume(reader.LowLevelRead(addr.NR32)),
	}
	data.Channels[3] = ChannelStatus{
		Enabled: noise.Enabled(),
		Volume:  noise.Volume(),
	}
	if p := noise.Period(); p > 0 {
		data.Channels[3].Frequency = float64(audio.CPUFrequency) / float64(p)
	}

	for i := range data.Channels {
		ch := &data.Channels[i]
		ch.Muted = !running[i]
		ch.Note = frequencyToNote(ch.Frequency)
	}
	data.Channels[3].Note = "Noise"
	return data
}

func squareHz(f uint16) float64 {
	return float64(audio.CPUFrequency) / float64(audio.TickThreshold(f)*2)
}

// waveVolume maps the NR32 output level to the 0-15 scale of the other
// channels.
func waveVolume(nr32 uint8) uint8 {
	switch (nr32 >> 5) & 0x03 {
	case 1:
		return 15
	case 2:
		return 7
	case 3:
		return 3
	}
	return 0
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// frequencyToNote names the equal tempered note closest to freq.
func frequencyToNote(freq float64) string {
	if freq < 20 || freq > 20000 {
		return "--"
	}

	midi := int(math.Round(12*math.Log2(freq/440) + 69))
	octave := midi/12 - 1
	if octave < 0 || octave > 9 {
		return "--"
	}
	return fmt.Sprintf("%s%d", noteNames[midi%12], octave)
}
