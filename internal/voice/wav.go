package voice

import (
	"encoding/binary"
	"fmt"
)

// wavAudio is decoded PCM together with its source format.
type wavAudio struct {
	pcm        []byte // little-endian int16 samples, interleaved
	sampleRate int
	channels   int
}

// decodeWAV parses a RIFF wav file holding 16-bit PCM. Open JTalk emits
// plain headers, but chunk order is not assumed.
func decodeWAV(data []byte) (wavAudio, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return wavAudio{}, fmt.Errorf("voice: not a RIFF wave file")
	}

	var audio wavAudio
	var haveFmt, haveData bool

	// Walk the chunk list; only "fmt " and "data" matter.
	for off := 12; off+8 <= len(data); {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if body+size > len(data) {
			return wavAudio{}, fmt.Errorf("voice: truncated %q chunk", id)
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return wavAudio{}, fmt.Errorf("voice: short fmt chunk")
			}
			format := binary.LittleEndian.Uint16(data[body : body+2])
			if format != 1 {
				return wavAudio{}, fmt.Errorf("voice: unsupported wav format %d, want PCM", format)
			}
			audio.channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			audio.sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bits := binary.LittleEndian.Uint16(data[body+14 : body+16])
			if bits != 16 {
				return wavAudio{}, fmt.Errorf("voice: unsupported bit depth %d, want 16", bits)
			}
			haveFmt = true
		case "data":
			audio.pcm = data[body : body+size]
			haveData = true
		}

		// Chunks are word aligned.
		off = body + size
		if size%2 == 1 {
			off++
		}
	}

	if !haveFmt || !haveData {
		return wavAudio{}, fmt.Errorf("voice: missing fmt or data chunk")
	}
	if audio.channels < 1 || audio.channels > 2 {
		return wavAudio{}, fmt.Errorf("voice: unsupported channel count %d", audio.channels)
	}
	if audio.sampleRate <= 0 {
		return wavAudio{}, fmt.Errorf("voice: invalid sample rate %d", audio.sampleRate)
	}
	return audio, nil
}

// toOpusInput converts decoded wav audio to Discord's 48 kHz stereo frame
// format.
func toOpusInput(a wavAudio) []byte {
	pcm := a.pcm
	if a.sampleRate != opusSampleRate {
		if a.channels == 1 {
			pcm = resampleMono16(pcm, a.sampleRate, opusSampleRate)
		} else {
			pcm = resampleStereo16(pcm, a.sampleRate, opusSampleRate)
		}
	}
	if a.channels == 1 {
		pcm = monoToStereo(pcm)
	}
	return pcm
}

// monoToStereo duplicates each int16 mono sample into a stereo L+R pair.
func monoToStereo(pcm []byte) []byte {
	out := make([]byte, (len(pcm)/2)*4)
	for i := 0; i+1 < len(pcm); i += 2 {
		lo, hi := pcm[i], pcm[i+1]
		j := i * 2
		out[j] = lo
		out[j+1] = hi
		out[j+2] = lo
		out[j+3] = hi
	}
	return out
}

// resampleMono16 resamples 16-bit mono PCM from srcRate to dstRate using
// linear interpolation. If srcRate == dstRate, the input is returned
// unchanged.
func resampleMono16(pcm []byte, srcRate, dstRate int) []byte {
	if srcRate <= 0 || dstRate <= 0 {
		return pcm
	}
	if srcRate == dstRate || len(pcm) < 2 {
		return pcm
	}
	srcSamples := len(pcm) / 2
	dstSamples := int(int64(srcSamples) * int64(dstRate) / int64(srcRate))
	if dstSamples == 0 {
		return nil
	}

	out := make([]byte, dstSamples*2)
	ratio := float64(srcRate) / float64(dstRate)

	for i := range dstSamples {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		s0 := int16(pcm[srcIdx*2]) | int16(pcm[srcIdx*2+1])<<8
		var s1 int16
		if srcIdx+1 < srcSamples {
			s1 = int16(pcm[(srcIdx+1)*2]) | int16(pcm[(srcIdx+1)*2+1])<<8
		} else {
			s1 = s0
		}

		interpolated := int16(float64(s0)*(1-frac) + float64(s1)*frac)
		out[i*2] = byte(interpolated)
		out[i*2+1] = byte(interpolated >> 8)
	}
	return out
}

// resampleStereo16 resamples 16-bit stereo PCM from srcRate to dstRate using
// linear interpolation. Each stereo frame is 4 bytes (L+R interleaved).
func resampleStereo16(pcm []byte, srcRate, dstRate int) []byte {
	if srcRate <= 0 || dstRate <= 0 {
		return pcm
	}
	if srcRate == dstRate || len(pcm) < 4 {
		return pcm
	}
	srcFrames := len(pcm) / 4
	dstFrames := int(int64(srcFrames) * int64(dstRate) / int64(srcRate))
	if dstFrames == 0 {
		return nil
	}

	out := make([]byte, dstFrames*4)
	ratio := float64(srcRate) / float64(dstRate)

	for i := range dstFrames {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		l0 := int16(pcm[srcIdx*4]) | int16(pcm[srcIdx*4+1])<<8
		r0 := int16(pcm[srcIdx*4+2]) | int16(pcm[srcIdx*4+3])<<8

		var l1, r1 int16
		if srcIdx+1 < srcFrames {
			l1 = int16(pcm[(srcIdx+1)*4]) | int16(pcm[(srcIdx+1)*4+1])<<8
			r1 = int16(pcm[(srcIdx+1)*4+2]) | int16(pcm[(srcIdx+1)*4+3])<<8
		} else {
			l1 = l0
			r1 = r0
		}

		lInterp := int16(float64(l0)*(1-frac) + float64(l1)*frac)
		rInterp := int16(float64(r0)*(1-frac) + float64(r1)*frac)

		out[i*4] = byte(lInterp)
		out[i*4+1] = byte(lInterp >> 8)
		out[i*4+2] = byte(rInterp)
		out[i*4+3] = byte(rInterp >> 8)
	}
	return out
}
