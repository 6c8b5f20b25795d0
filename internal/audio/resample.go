package audio

import "encoding/binary"

// Resample converts src sampled at srcRate to dstRate by linear
// interpolation: each destination index maps to a fractional source index and
// interpolates between the two bounding source samples.
func Resample(src []float64, srcRate, dstRate int) []float64 {
	if len(src) == 0 || srcRate <= 0 || dstRate <= 0 {
		return nil
	}
	if srcRate == dstRate {
		out := make([]float64, len(src))
		copy(out, src)
		return out
	}

	n := int(float64(len(src)) * float64(dstRate) / float64(srcRate))
	if n < 1 {
		n = 1
	}
	out := make([]float64, n)
	ratio := float64(srcRate) / float64(dstRate)
	for i := range out {
		pos := float64(i) * ratio
		j := int(pos)
		if j >= len(src)-1 {
			out[i] = src[len(src)-1]
			continue
		}
		frac := pos - float64(j)
		out[i] = src[j]*(1-frac) + src[j+1]*frac
	}
	return out
}

// QuantizePCM16 clamps a sample to [-1, 1] and scales it to a signed 16-bit
// value. The scale is asymmetric (negative by 32768, positive by 32767)
// matching the asymmetric PCM integer range.
func QuantizePCM16(s float64) int16 {
	if s < -1 {
		s = -1
	}
	if s > 1 {
		s = 1
	}
	if s < 0 {
		return int16(s * 32768)
	}
	return int16(s * 32767)
}

// EncodePCM16LE converts samples to little-endian 16-bit PCM bytes.
func EncodePCM16LE(samples []float64) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(QuantizePCM16(s)))
	}
	return out
}
