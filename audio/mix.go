package audio

// Downmix averages interleaved channels into one mono signal.
func Downmix(interleaved []float64, channels int) []float64 {
	if channels <= 1 {
		out := make([]float64, len(interleaved))
		copy(out, interleaved)
		return out
	}

	frames := len(interleaved) / channels
	out := make([]float64, frames)
	inv := 1 / float64(channels)

	for i := range out {
		sum := 0.0
		for _, v := range interleaved[i*channels : (i+1)*channels] {
			sum += v
		}
		out[i] = sum * inv
	}

	return out
}

// Mono decodes d into a single channel.
func (d *Decoded) Mono() []float64 {
	return Downmix(d.Samples, d.Channels)
}
