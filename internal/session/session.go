package session

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/image-ocr-mcp/internal/logging"
	"github.com/ironsheep/image-ocr-mcp/internal/ocr"
)

// Option configures a Session.
type Option func(*Session)

// WithLanguage sets the fixed language code passed to the engine.
func WithLanguage(code string) Option {
	return func(s *Session) {
		if code != "" {
			s.language = code
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(log *logrus.Entry) Option {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

type subscriber struct {
	id int
	fn func(Snapshot)
}

// Session is the image recognition session controller.
type Session struct {
	engine   ocr.Engine
	alloc    Allocator
	language string
	log      *logrus.Entry

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	image      Handle
	text       string
	running    bool
	recognized bool
	progress   *Progress
	lastErr    error
	generation uint64
	job        *Job
	closed     bool
	subs       []subscriber
	nextSub    int

	// outbox holds committed snapshots not yet delivered, in commit order.
	// Lock order is mu then outMu; neither is held while subscribers run.
	outMu      sync.Mutex
	outbox     []delivery
	delivering bool
}

type delivery struct {
	snap Snapshot
	subs []subscriber
}

// New creates an empty session that recognizes with engine and allocates
// image handles with alloc.
func New(engine ocr.Engine, alloc Allocator, opts ...Option) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		engine:   engine,
		alloc:    alloc,
		language: ocr.DefaultLanguage,
		log:      logging.Discard(),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Language returns the language code passed to the engine.
func (s *Session) Language() string { return s.language }

// SelectImage makes the first of files the session's image. Any previous
// handle is released first, the result text is reset and progress cleared.
// No files, or an empty first file, is a no-op; false is returned then.
func (s *Session) SelectImage(files ...[]byte) bool {
	if len(files) == 0 || len(files[0]) == 0 {
		return false
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.dropImageLocked()
	s.image = s.alloc.Allocate(files[0])
	s.log.WithFields(logrus.Fields{
		"image":      s.image.ID(),
		"bytes":      len(files[0]),
		"generation": s.generation,
	}).Debug("image selected")
	s.unlockAndPublish()
	return true
}

// Clear releases the image and resets the result text. It is a no-op when
// the session is already empty.
func (s *Session) Clear() {
	s.mu.Lock()
	if s.closed || (s.image == nil && s.text == "" && s.progress == nil && s.lastErr == nil) {
		s.mu.Unlock()
		return
	}
	s.dropImageLocked()
	s.log.WithField("generation", s.generation).Debug("session cleared")
	s.unlockAndPublish()
}

// dropImageLocked releases the current image, abandons any in-flight job and
// resets per-image state. The generation always advances.
func (s *Session) dropImageLocked() {
	if s.image != nil {
		img := s.image
		s.image = nil
		if err := img.Release(); err != nil {
			s.log.WithError(err).WithField("image", img.ID()).Warn("failed to release image handle")
		}
	}
	if s.job != nil {
		s.job.cancel()
		s.job = nil
	}
	s.running = false
	s.recognized = false
	s.text = ""
	s.progress = nil
	s.lastErr = nil
	s.generation++
}

// CanRun reports whether StartRecognition would start a recognition.
func (s *Session) CanRun() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canRunLocked()
}

func (s *Session) canRunLocked() bool {
	return !s.closed && s.image != nil && !s.running && !s.recognized
}

// StartRecognition runs the engine on the current image in the background.
// It returns false and changes nothing unless the session is in the
// ImageLoaded state.
func (s *Session) StartRecognition() (*Job, bool) {
	s.mu.Lock()
	if !s.canRunLocked() {
		s.mu.Unlock()
		return nil, false
	}

	ctx, cancel := context.WithCancel(s.ctx)
	img := s.image
	job := &Job{
		generation: s.generation,
		imageID:    img.ID(),
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	s.job = job
	s.running = true
	s.lastErr = nil
	s.progress = &Progress{Status: StatusInitializing, Fraction: 0}
	s.log.WithFields(logrus.Fields{
		"image":      job.imageID,
		"generation": job.generation,
		"engine":     s.engine.Name(),
	}).Info("recognition started")
	s.unlockAndPublish()

	go s.run(ctx, job, img)
	return job, true
}

func (s *Session) run(ctx context.Context, job *Job, img Handle) {
	result, err := s.recognize(ctx, job, img)
	s.finish(job, result, err)
}

func (s *Session) recognize(ctx context.Context, job *Job, img Handle) (result *ocr.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.WithFields(logrus.Fields{
				"image": job.imageID,
				"stack": string(debug.Stack()),
			}).Error("recognition engine panic")
			result, err = nil, fmt.Errorf("recognition engine panic: %v", r)
		}
	}()

	result, err = s.engine.Recognize(ctx, img, s.language, func(ev ocr.ProgressEvent) {
		s.applyProgress(job, ev)
	})
	if err == nil && result == nil {
		result = &ocr.Result{}
	}
	return result, err
}

// applyProgress records a numeric progress event for the current job.
// Status-only events are ignored, so the displayed status always pairs with
// the fraction it was reported with.
func (s *Session) applyProgress(job *Job, ev ocr.ProgressEvent) {
	if !ev.Numeric() {
		return
	}
	fraction := *ev.Progress
	if fraction < 0 {
		fraction = 0
	} else if fraction > 1 {
		fraction = 1
	}

	s.mu.Lock()
	if s.job != job {
		s.mu.Unlock()
		return
	}
	s.progress = &Progress{Status: ev.Status, Fraction: fraction}
	s.unlockAndPublish()
}

func (s *Session) finish(job *Job, result *ocr.Result, err error) {
	s.mu.Lock()
	job.cancel()

	fields := logrus.Fields{"image": job.imageID, "generation": job.generation}
	if s.job != job {
		s.mu.Unlock()
		if err == nil {
			err = ErrSuperseded
		}
		s.log.WithFields(fields).WithError(err).Debug("discarding stale recognition")
		job.complete(nil, err)
		return
	}

	s.job = nil
	s.running = false
	if err != nil {
		s.lastErr = err
		s.log.WithFields(fields).WithError(err).Warn("recognition failed")
	} else {
		s.text = result.Text
		s.recognized = true
		s.log.WithFields(fields).WithFields(logrus.Fields{
			"chars":      len(result.Text),
			"confidence": result.Confidence,
		}).Info("recognition finished")
	}
	s.unlockAndPublish()

	if err != nil {
		result = nil
	}
	job.complete(result, err)
}

// EditResultText overwrites the result text.
func (s *Session) EditResultText(text string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.text = text
	s.unlockAndPublish()
}

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:      s.stateLocked(),
		Text:       s.text,
		Running:    s.running,
		Generation: s.generation,
	}
	if s.image != nil {
		snap.ImageID = s.image.ID()
	}
	if s.progress != nil {
		p := *s.progress
		snap.Progress = &p
	}
	if s.lastErr != nil {
		snap.LastError = s.lastErr.Error()
	}
	return snap
}

func (s *Session) stateLocked() State {
	switch {
	case s.image == nil:
		return StateEmpty
	case s.running:
		return StateRecognizing
	case s.recognized:
		return StateDone
	default:
		return StateImageLoaded
	}
}

// Subscribe registers fn to receive a Snapshot after every change. The
// returned function unregisters it. fn is called with no session lock held.
func (s *Session) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// unlockAndPublish must be called with s.mu held. It queues the committed
// state, releases s.mu and delivers queued states to subscribers unless
// another goroutine is already doing so, in which case that goroutine
// delivers this state after the ones before it.
func (s *Session) unlockAndPublish() {
	d := delivery{snap: s.snapshotLocked(), subs: make([]subscriber, len(s.subs))}
	copy(d.subs, s.subs)

	s.outMu.Lock()
	s.outbox = append(s.outbox, d)
	if s.delivering {
		s.outMu.Unlock()
		s.mu.Unlock()
		return
	}
	s.delivering = true
	s.outMu.Unlock()
	s.mu.Unlock()

	s.drain()
}

func (s *Session) drain() {
	for {
		s.outMu.Lock()
		if len(s.outbox) == 0 {
			s.delivering = false
			s.outMu.Unlock()
			return
		}
		d := s.outbox[0]
		s.outbox[0] = delivery{}
		s.outbox = s.outbox[1:]
		s.outMu.Unlock()

		for _, sub := range d.subs {
			sub.fn(d.snap)
		}
	}
}

// Close tears the session down: the image is released, any in-flight
// recognition is abandoned and subscribers are dropped. Later calls to
// mutating methods are no-ops.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	var releaseErr error
	if s.image != nil {
		releaseErr = s.image.Release()
		s.image = nil
	}
	if s.job != nil {
		s.job.cancel()
		s.job = nil
	}
	s.running = false
	s.closed = true
	s.subs = nil
	s.mu.Unlock()

	s.cancel()
	if releaseErr != nil {
		return fmt.Errorf("failed to release image handle: %w", releaseErr)
	}
	return nil
}
