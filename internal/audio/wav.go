package audio

import "encoding/binary"

// EncodeWAV writes per-channel float samples as a standalone 16-bit PCM WAV
// blob at the given rate and channel count. Uncompressed PCM keeps the write
// path codec-free: the container is a fixed 44-byte header plus interleaved
// samples.
func EncodeWAV(sampleRate, channels int, samples [][]float64) []byte {
	frames := 0
	if len(samples) > 0 {
		frames = len(samples[0])
	}
	if channels > len(samples) {
		channels = len(samples)
	}
	if channels < 1 {
		channels = 1
	}

	blockAlign := channels * 2
	dataLen := frames * blockAlign
	out := make([]byte, 44+dataLen)

	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+dataLen))
	copy(out[8:12], "WAVE")

	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16)
	binary.LittleEndian.PutUint16(out[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(out[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(sampleRate*blockAlign))
	binary.LittleEndian.PutUint16(out[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:36], 16)

	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(dataLen))

	pos := 44
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			binary.LittleEndian.PutUint16(out[pos:], uint16(QuantizePCM16(samples[ch][i])))
			pos += 2
		}
	}
	return out
}
