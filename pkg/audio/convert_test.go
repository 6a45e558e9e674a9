package audio

import (
	"encoding/binary"
	"testing"
)

func TestStereoToMono_Averages(t *testing.T) {
	// Two stereo frames: (1000, 3000) and (-2000, -4000).
	pcm := Int16sToBytes([]int16{1000, 3000, -2000, -4000})
	mono := StereoToMono(pcm)
	got := BytesToInt16s(mono)
	if len(got) != 2 {
		t.Fatalf("expected 2 mono samples, got %d", len(got))
	}
	if got[0] != 2000 {
		t.Errorf("mono[0] = %d, want 2000", got[0])
	}
	if got[1] != -3000 {
		t.Errorf("mono[1] = %d, want -3000", got[1])
	}
}

func TestStereoToMono_Empty(t *testing.T) {
	if got := StereoToMono(nil); len(got) != 0 {
		t.Errorf("expected empty output, got %d bytes", len(got))
	}
}

func TestResampleMono16_SameRate(t *testing.T) {
	pcm := Int16sToBytes([]int16{1, 2, 3})
	out := ResampleMono16(pcm, 16000, 16000)
	if &out[0] != &pcm[0] {
		t.Error("same-rate resample should return input unchanged")
	}
}

func TestResampleMono16_Downsample(t *testing.T) {
	// 48 kHz -> 16 kHz should produce one third of the samples.
	src := make([]int16, 480)
	for i := range src {
		src[i] = int16(i)
	}
	out := ResampleMono16(Int16sToBytes(src), 48000, 16000)
	if len(out)/2 != 160 {
		t.Errorf("expected 160 samples, got %d", len(out)/2)
	}
}

func TestResampleMono16_InvalidRates(t *testing.T) {
	pcm := Int16sToBytes([]int16{1, 2})
	if got := ResampleMono16(pcm, 0, 16000); len(got) != len(pcm) {
		t.Error("zero source rate should return input unchanged")
	}
	if got := ResampleMono16(pcm, 16000, 0); len(got) != len(pcm) {
		t.Error("zero target rate should return input unchanged")
	}
}

func TestInt16RoundTrip(t *testing.T) {
	values := []int16{0, 1, -1, 32767, -32768, 12345}
	got := BytesToInt16s(Int16sToBytes(values))
	if len(got) != len(values) {
		t.Fatalf("length mismatch: %d vs %d", len(got), len(values))
	}
	for i := range values {
		if got[i] != values[i] {
			t.Errorf("sample[%d] = %d, want %d", i, got[i], values[i])
		}
	}
}

func TestToSTTFormat_StereoHighRate(t *testing.T) {
	// 480 stereo frames at 48 kHz -> 160 mono samples at 16 kHz.
	src := make([]int16, 960)
	out := ToSTTFormat(Int16sToBytes(src), Format{SampleRate: 48000, Channels: 2})
	if len(out)/2 != 160 {
		t.Errorf("expected 160 samples, got %d", len(out)/2)
	}
}

func TestToSTTFormat_AlreadyTarget(t *testing.T) {
	pcm := Int16sToBytes([]int16{5, 6, 7})
	out := ToSTTFormat(pcm, Format{SampleRate: 16000, Channels: 1})
	if &out[0] != &pcm[0] {
		t.Error("matching format should pass through unchanged")
	}
}

func TestEncodeWAV_Header(t *testing.T) {
	pcm := Int16sToBytes([]int16{100, -100, 200})
	wav := EncodeWAV(pcm, 16000, 1)

	if len(wav) != 44+len(pcm) {
		t.Fatalf("expected %d bytes, got %d", 44+len(pcm), len(wav))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Error("missing RIFF/WAVE markers")
	}
	if string(wav[12:16]) != "fmt " || string(wav[36:40]) != "data" {
		t.Error("missing fmt/data chunks")
	}
	if rate := binary.LittleEndian.Uint32(wav[24:28]); rate != 16000 {
		t.Errorf("sample rate = %d, want 16000", rate)
	}
	if ch := binary.LittleEndian.Uint16(wav[22:24]); ch != 1 {
		t.Errorf("channels = %d, want 1", ch)
	}
	if dataLen := binary.LittleEndian.Uint32(wav[40:44]); int(dataLen) != len(pcm) {
		t.Errorf("data length = %d, want %d", dataLen, len(pcm))
	}
	if string(wav[44:]) != string(pcm) {
		t.Error("PCM payload mismatch")
	}
}
