package catalog

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cwbudde/barkalign/audio"
)

// ErrEmpty is returned by Random when no valid sound is indexed.
var ErrEmpty = errors.New("catalog: no playable sounds")

// Status tells whether a file's header could be read.
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Sound is one indexed file.
type Sound struct {
	Name       string
	Path       string
	Type       audio.Format
	Duration   time.Duration
	SampleRate int
	SizeBytes  int64
	Status     Status
	Err        string
}

// Valid reports whether the sound can be played.
func (s Sound) Valid() bool { return s.Status == StatusOK }

// Stats aggregates the current index.
type Stats struct {
	Files         int
	Valid         int
	WAV           int
	MP3           int
	TotalDuration time.Duration
	TotalBytes    int64
	LastPick      string
}

// Option configures a Store.
type Option func(*Store)

// WithRegistry replaces the header readers.
func WithRegistry(r *audio.Registry) Option {
	return func(s *Store) {
		s.registry = r
	}
}

// WithRand sets the source for Random.
func WithRand(r *rand.Rand) Option {
	return func(s *Store) {
		s.rng = r
	}
}

// Store is an in-memory index of a sound directory.
type Store struct {
	dir      string
	registry *audio.Registry
	log      logrus.FieldLogger

	mu     sync.RWMutex
	rng    *rand.Rand
	sounds []Sound
	byName map[string]int
	last   string
}

// New returns an empty Store over dir. Call Refresh to populate it.
func New(dir string, log logrus.FieldLogger, opts ...Option) *Store {
	s := &Store{
		dir:      dir,
		registry: audio.DefaultRegistry(),
		log:      log,
		byName:   map[string]int{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	return s
}

// Dir returns the indexed directory.
func (s *Store) Dir() string { return s.dir }

// Refresh re-reads the directory and replaces the index. Files whose
// header cannot be read are kept with StatusError.
func (s *Store) Refresh(ctx context.Context) ([]Sound, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}

	sounds := make([]Sound, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.IsDir() {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		if _, ok := s.registry.Lookup(path); !ok {
			continue
		}
		sounds = append(sounds, s.inspect(path, e))
	}

	byName := make(map[string]int, len(sounds))
	for i, snd := range sounds {
		byName[snd.Name] = i
	}

	s.mu.Lock()
	s.sounds = sounds
	s.byName = byName
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"dir":   s.dir,
		"files": len(sounds),
	}).Info("catalog refreshed")

	return slices.Clone(sounds), nil
}

func (s *Store) inspect(path string, e os.DirEntry) Sound {
	snd := Sound{Name: e.Name(), Path: path, Status: StatusOK}

	if fi, err := e.Info(); err == nil {
		snd.SizeBytes = fi.Size()
	}

	info, err := s.registry.InfoFile(path)
	if err != nil {
		snd.Status = StatusError
		snd.Err = err.Error()
		s.log.WithField("file", snd.Name).WithError(err).Warn("unreadable sound header")
		return snd
	}

	snd.Type = info.Format
	snd.Duration = info.Duration
	snd.SampleRate = info.SampleRate
	return snd
}

// Get returns the sound called name.
func (s *Store) Get(name string) (Sound, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.byName[name]
	if !ok {
		return Sound{}, false
	}
	return s.sounds[i], true
}

// All returns a copy of the index in directory order.
func (s *Store) All() []Sound {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.sounds)
}

// Stats aggregates the index. Unreadable files count towards Files and
// TotalBytes only.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{Files: len(s.sounds), LastPick: s.last}
	for _, snd := range s.sounds {
		st.TotalBytes += snd.SizeBytes
		if !snd.Valid() {
			continue
		}
		st.Valid++
		st.TotalDuration += snd.Duration
		switch snd.Type {
		case audio.FormatWAV:
			st.WAV++
		case audio.FormatMP3:
			st.MP3++
		}
	}
	return st
}

// Random picks a valid sound. With two or more valid sounds the previous
// pick is never returned twice in a row.
func (s *Store) Random() (Sound, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	candidates := make([]int, 0, len(s.sounds))
	for i, snd := range s.sounds {
		if snd.Valid() {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return Sound{}, ErrEmpty
	}

	if len(candidates) > 1 {
		kept := candidates[:0]
		for _, i := range candidates {
			if s.sounds[i].Name != s.last {
				kept = append(kept, i)
			}
		}
		candidates = kept
	}

	pick := s.sounds[candidates[s.rng.IntN(len(candidates))]]
	s.last = pick.Name
	return pick, nil
}
