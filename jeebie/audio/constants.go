package audio

// Timing constants
// Reference: https://gbdev.io/pandocs/Audio_details.html
const (
	// CPUFrequency is the master clock, in ticks per second.
	CPUFrequency = 4194304

	// DefaultSampleRate is the output rate used when none is configured.
	DefaultSampleRate = 44100

	// cyclesPerStep is the number of CPU cycles per frame sequencer tick.
	// The frame sequencer runs at 512 Hz: 4194304 Hz / 512 Hz = 8192 t-cycles
	cyclesPerStep = 8192
	sequencerBit  = 13
)

// Channel constants
const (
	channelCount = 4

	// waveRAMSize is the size of wave pattern RAM in bytes (16 bytes = 32 nibbles)
	waveRAMSize    = 16
	waveTableSize  = 32
	maxFrequency   = 2047
	squareLength   = 64
	waveLength     = 256
	noiseLength    = 64
	lfsrInitial    = 0x7FFF
	maxNoiseShift  = 13
	triggerBit     = 7
	lengthEnBit    = 6
	envelopeUpBit  = 3
	dacEnabledMask = 0xF8
	waveDACBit     = 7
	noiseWidthBit  = 3
	sweepDownBit   = 3
	powerBit       = 7
)

// Output levels. Four channels at full volume sum to 30720, which leaves
// headroom before the master volume is applied.
const (
	squareAmplitude = 512
	waveAmplitude   = 256
	maxVolume       = 15
	maxSample       = 32767
	minSample       = -32768

	// maxBufferedSamples bounds the mixed output when nobody drains it, the
	// oldest samples are dropped first.
	maxBufferedSamples = DefaultSampleRate
	bytesPerSample     = 4 // 16 bit stereo
)

// dutyPatterns are the 8 step waveforms of the square channels, bit 7 is
// the first step.
var dutyPatterns = [4]uint8{
	0b10000000, // 12.5%
	0b11000000, // 25%
	0b11110000, // 50%
	0b11111100, // 75%
}

var noiseDivisors = [8]uint32{8, 16, 32, 48, 64, 80, 96, 112}

// waveShifts maps NR32 bits 6-5 to the right shift applied to wave samples,
// 4 meaning silent.
var waveShifts = [4]uint8{4, 0, 1, 2}
