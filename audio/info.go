package audio

import "time"

// Format identifies a container format.
type Format string

const (
	FormatWAV Format = "WAV"
	FormatMP3 Format = "MP3"
)

// Info is header-level information about a file.
type Info struct {
	Format     Format
	SampleRate int
	Channels   int
	BitDepth   int
	Duration   time.Duration
}

func framesDuration(frames int64, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(frames) * time.Second / time.Duration(sampleRate)
}
