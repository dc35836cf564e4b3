package audio

// Provider is what frontends need from the sound hardware: the mixed
// output and the channel debugging controls.
type Provider interface {
	Buffer() []byte
	SampleCount() int
	ClearBuffer()
	SampleRate() int

	// Audio debugging controls

	ToggleChannel(channel int)
	SoloChannel(channel int)
	UnmuteAll()
	ChannelStatus() [channelCount]bool
}

var _ Provider = (*APU)(nil)
