// Package audio provides PCM conversion helpers for the speech-capture path:
// Opus decoding of browser microphone frames, downmixing and resampling to
// the 16 kHz mono format STT providers expect, and WAV encoding of buffered
// PCM for batch transcription uploads.
package audio

// STTSampleRate is the sample rate STT providers are optimised for.
const STTSampleRate = 16000

// Format describes the sample rate and channel count of a PCM stream.
type Format struct {
	SampleRate int
	Channels   int
}

// ToSTTFormat converts little-endian int16 PCM in the given format to
// 16 kHz mono. Input already in that format is returned unchanged.
func ToSTTFormat(pcm []byte, src Format) []byte {
	if src.Channels == 2 {
		pcm = StereoToMono(pcm)
	}
	if src.SampleRate != STTSampleRate {
		pcm = ResampleMono16(pcm, src.SampleRate, STTSampleRate)
	}
	return pcm
}
