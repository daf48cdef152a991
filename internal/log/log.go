package log

import (
	"errors"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/zhangyunhao116/skipmap"
)

// segmentSet orders segments by creation time, newest first, so a lookup can
// stop at the first segment that knows the key.
type segmentSet = skipmap.FuncMap[int64, *Segment]

func newSegmentSet() *segmentSet {
	return skipmap.NewFunc[int64, *Segment](func(a, b int64) bool {
		return a > b
	})
}

/*
SegmentHandler owns the ordered set of segments that make up the log: any
number of sealed segments plus at most one active segment taking writes.

Writers are serialized on mu because deciding to rotate and then writing are
two file operations that must not interleave with another writer's decision.
Readers never take mu: they walk the segment set, which only ever grows, and
read files that are either append-only or sealed.
*/
type SegmentHandler struct {
	mu sync.Mutex

	// The directory the log stores its segments in.
	Dir    string
	Config Config

	segments *segmentSet
	active   atomic.Pointer[Segment]
	// creation time of the newest segment, the floor for the next name
	lastCreated int64

	logger *zerolog.Logger
}

/*
NewSegmentHandler opens the log stored in dir, creating the directory if
needed. Segment files already there are loaded in name order as sealed
segments; the first Add after opening starts a fresh active segment, so files
from an earlier process are never written again.
*/
func NewSegmentHandler(dir string, c Config) (*SegmentHandler, error) {
	if c.Segment.SizeLimit == 0 {
		c.Segment.SizeLimit = defaultSizeLimit
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Logger == nil {
		logger := zerolog.New(os.Stderr).With().Str("service", "segment-handler").Logger()
		c.Logger = &logger
	}

	h := &SegmentHandler{
		Dir:      dir,
		Config:   c,
		segments: newSegmentSet(),
		logger:   c.Logger,
	}

	return h, h.setup()
}

// setup loads the segments already on disk.
func (h *SegmentHandler) setup() error {
	if err := os.MkdirAll(h.Dir, 0755); err != nil {
		return ioError("setup", "", err)
	}
	files, err := os.ReadDir(h.Dir)
	if err != nil {
		return ioError("setup", "", err)
	}

	var created []int64
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != segmentExt {
			continue
		}
		ms, err := strconv.ParseInt(strings.TrimSuffix(file.Name(), segmentExt), 10, 64)
		if err != nil {
			h.logger.Warn().Str("file", file.Name()).Msg("skipping file with a non-numeric segment name")
			continue
		}
		created = append(created, ms)
	}
	slices.Sort(created)

	for _, ms := range created {
		s, err := openSegment(filepath.Join(h.Dir, strconv.FormatInt(ms, 10)+segmentExt), h.logger)
		if err != nil {
			return err
		}
		h.segments.Store(ms, s)
		h.lastCreated = ms
	}

	if len(created) > 0 {
		h.logger.Info().Str("dir", h.Dir).Int("segments", len(created)).Msg("loaded segments")
	}
	return nil
}

/*
createSegment starts a new active segment. Its name is its creation time in
milliseconds, bumped past the previous segment's so names strictly increase
even when the clock has not moved. If the new segment cannot be initialized
the error is returned and the current active segment stays in place.
*/
func (h *SegmentHandler) createSegment() error {
	createdAt := h.Config.Now().UnixMilli()
	if createdAt <= h.lastCreated {
		createdAt = h.lastCreated + 1
	}

	s := newSegment(h.Dir, createdAt, h.logger)
	if err := s.Init(); err != nil {
		return err
	}
	h.lastCreated = createdAt

	if prev := h.active.Load(); prev != nil {
		if err := prev.seal(); err != nil {
			h.logger.Warn().Err(err).Str("segment", prev.Name()).Msg("failed to seal segment")
		}
	}
	h.segments.Store(createdAt, s)
	h.active.Store(s)

	h.logger.Info().Str("segment", s.Name()).Msg("created segment")
	return nil
}

// Add writes e to the active segment, rotating first when there is no active
// segment yet or the active one has reached the size limit.
func (h *SegmentHandler) Add(e Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	rotate := true
	if active := h.active.Load(); active != nil {
		size, err := active.Size()
		if err != nil {
			return err
		}
		rotate = size >= h.Config.Segment.SizeLimit
	}
	if rotate {
		if err := h.createSegment(); err != nil {
			return err
		}
	}

	active := h.active.Load()
	if active == nil {
		return &Error{Kind: KindNoActiveSegment, Op: "add"}
	}
	_, err := active.Write(e)
	return err
}

// Find returns the live value for key. Segments are searched newest first and
// the newest record for the key decides: a tombstone means ErrNotFound even
// when older segments still hold values.
func (h *SegmentHandler) Find(key string) (string, error) {
	var (
		hit   Entry
		found bool
		err   error
	)
	h.segments.Range(func(_ int64, s *Segment) bool {
		hit, found, err = s.Lookup(key)
		return err == nil && !found
	})
	if err != nil {
		return "", err
	}
	if !found || hit.IsTombstone() {
		return "", &Error{Kind: KindNotFound, Op: "find", Err: errors.New(strconv.Quote(key))}
	}
	return hit.Value(), nil
}

// Scan returns every entry in the log, oldest segment first.
func (h *SegmentHandler) Scan() iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		for _, s := range h.Segments() {
			for e, err := range s.Scan() {
				if !yield(e, err) || err != nil {
					return
				}
			}
		}
	}
}

// Segments returns all segments, oldest first. The last one is the active
// segment once the handler has taken a write.
func (h *SegmentHandler) Segments() []*Segment {
	segments := make([]*Segment, 0, h.segments.Len())
	h.segments.Range(func(_ int64, s *Segment) bool {
		segments = append(segments, s)
		return true
	})
	slices.Reverse(segments)
	return segments
}

// Active returns the segment taking writes, or nil before the first Add.
func (h *SegmentHandler) Active() *Segment {
	return h.active.Load()
}

// Close releases every segment. Unmapping a sealed segment waits for scans
// still reading it; scans started afterwards read the file instead.
func (h *SegmentHandler) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	var err error
	h.segments.Range(func(_ int64, s *Segment) bool {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
		return true
	})
	h.active.Store(nil)
	return err
}

// Remove closes the handler and deletes its directory.
func (h *SegmentHandler) Remove() error {
	if err := h.Close(); err != nil {
		return err
	}
	if err := os.RemoveAll(h.Dir); err != nil {
		return ioError("remove", "", err)
	}
	return nil
}
