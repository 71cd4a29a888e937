package paulstretch

// StretchBuffer is a convenience function for one-shot stretching of a
// multi-channel buffer. A zero factor selects DefaultStretchFactor and a
// zero windowSeconds selects DefaultWindowSeconds.
func StretchBuffer(channels [][]float32, sampleRate int, factor, windowSeconds float64) ([][]float32, error) {
	if factor == 0 {
		factor = DefaultStretchFactor
	}

	s, err := New(&Config{
		StretchFactor: factor,
		WindowSeconds: windowSeconds,
	})
	if err != nil {
		return nil, err
	}
	defer s.Close()

	out, err := s.Stretch(&AudioBlock{SampleRate: sampleRate, Channels: channels}, nil)
	if err != nil {
		return nil, err
	}
	return out.Channels, nil
}

// StretchMono is a convenience function for one-shot mono stretching with
// the default window length.
func StretchMono(input []float32, sampleRate int, factor float64) ([]float32, error) {
	out, err := StretchBuffer([][]float32{input}, sampleRate, factor, 0)
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// StretchStereo is a convenience function for one-shot stereo stretching
// with the default window length. The channels are processed
// independently.
func StretchStereo(left, right []float32, sampleRate int, factor float64) (leftOut, rightOut []float32, err error) {
	out, err := StretchBuffer([][]float32{left, right}, sampleRate, factor, 0)
	if err != nil {
		return nil, nil, err
	}
	return out[0], out[1], nil
}

// InterleaveToStereo converts two mono channels to interleaved stereo.
// Output format: [L0, R0, L1, R1, L2, R2, ...]
func InterleaveToStereo(left, right []float32) []float32 {
	minLen := min(len(left), len(right))
	result := make([]float32, minLen*stereoChannels)
	for i := range minLen {
		result[i*stereoChannels] = left[i]
		result[i*stereoChannels+1] = right[i]
	}
	return result
}

// DeinterleaveFromStereo converts interleaved stereo to two mono channels.
// Input format: [L0, R0, L1, R1, L2, R2, ...]
func DeinterleaveFromStereo(interleaved []float32) (left, right []float32) {
	numSamples := len(interleaved) / stereoChannels
	left = make([]float32, numSamples)
	right = make([]float32, numSamples)
	for i := range numSamples {
		left[i] = interleaved[i*stereoChannels]
		right[i] = interleaved[i*stereoChannels+1]
	}
	return left, right
}
