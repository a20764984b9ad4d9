// Package session owns the active photo, style and rendered frame of one
// frame-generator user. Any change to the photo or style re-renders the
// frame in full.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/peicooks/framegen/pkg/compositor"
	"github.com/peicooks/framegen/pkg/frame"
	"github.com/peicooks/framegen/pkg/photo"
)

var (
	// ErrUnknownStyle is returned for a style ID not in the catalog.
	ErrUnknownStyle = errors.New("unknown frame style")

	// ErrNoPhoto is returned when a frame is requested before a photo loads.
	ErrNoPhoto = compositor.ErrNoPhoto

	// ErrStale reports a decode that finished after a newer selection; its
	// result was discarded.
	ErrStale = errors.New("photo superseded by a newer selection")
)

// Ticket tags a photo selection. Only the newest ticket may install a photo.
type Ticket uint64

// Session is safe for concurrent use; decodes run on their own goroutines.
type Session struct {
	comp   *compositor.Compositor
	loader *photo.Loader
	log    *zap.Logger

	mu     sync.Mutex
	style  frame.Style
	photo  *photo.Photo
	frame  *image.RGBA
	latest Ticket
}

// New starts a session on the default style with no photo.
func New(comp *compositor.Compositor, loader *photo.Loader, log *zap.Logger) *Session {
	if loader == nil {
		loader = photo.NewLoader(photo.MaxBytes, log)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		comp:   comp,
		loader: loader,
		log:    log,
		style:  frame.Default(),
	}
}

// Style returns the active style.
func (s *Session) Style() frame.Style {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.style
}

// Photo returns the active photo, or nil.
func (s *Session) Photo() *photo.Photo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.photo
}

// Frame returns the current rendered frame. It fails with ErrNoPhoto until a
// photo has been installed.
func (s *Session) Frame() (*image.RGBA, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.photo == nil {
		return nil, ErrNoPhoto
	}
	if s.frame == nil {
		// An earlier render failed; try again.
		if err := s.renderLocked(); err != nil {
			return nil, err
		}
	}
	return s.frame, nil
}

// SelectStyle switches the style and re-renders if a photo is loaded.
func (s *Session) SelectStyle(id string) error {
	st, ok := frame.Lookup(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStyle, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.style.ID == st.ID && s.frame != nil {
		return nil
	}
	s.style = st
	if s.photo == nil {
		return nil
	}
	return s.renderLocked()
}

// Select registers a new photo selection of the given size. An oversized
// selection is rejected without superseding anything; otherwise the returned
// ticket supersedes every earlier one.
func (s *Session) Select(size int64) (Ticket, error) {
	if err := s.loader.CheckSize(size); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest++
	return s.latest, nil
}

// Complete installs p if t is still the newest selection and re-renders.
// A stale ticket is discarded with ErrStale.
func (s *Session) Complete(t Ticket, p *photo.Photo) error {
	if p == nil {
		return ErrNoPhoto
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if t != s.latest {
		s.log.Debug("discarding stale photo",
			zap.Uint64("ticket", uint64(t)),
			zap.Uint64("latest", uint64(s.latest)))
		return ErrStale
	}

	s.photo = p
	s.frame = nil
	return s.renderLocked()
}

// Load selects, decodes and installs a photo synchronously.
func (s *Session) Load(name string, r io.Reader, size int64) error {
	t, err := s.Select(size)
	if err != nil {
		return err
	}
	return s.finish(t, name, r, size)
}

// LoadAsync selects the photo now and decodes it on a new goroutine. The
// channel yields exactly one value: nil once installed, ErrStale if a newer
// selection won, or the load error. A size rejection is returned directly.
func (s *Session) LoadAsync(name string, r io.Reader, size int64) (Ticket, <-chan error, error) {
	t, err := s.Select(size)
	if err != nil {
		return 0, nil, err
	}

	done := make(chan error, 1)
	go func() {
		defer close(done)
		done <- s.finish(t, name, r, size)
	}()
	return t, done, nil
}

func (s *Session) finish(t Ticket, name string, r io.Reader, size int64) error {
	p, err := s.loader.Load(name, r, size)
	if err != nil {
		if s.isStale(t) {
			return ErrStale
		}
		s.log.Info("photo load failed", zap.String("name", name), zap.Error(err))
		return err
	}
	return s.Complete(t, p)
}

func (s *Session) isStale(t Ticket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return t != s.latest
}

// Previews renders the active photo in every catalog style.
func (s *Session) Previews(ctx context.Context) ([]*image.RGBA, error) {
	p := s.Photo()
	if p == nil {
		return nil, ErrNoPhoto
	}
	return s.comp.RenderAll(ctx, p.Bitmap, frame.All())
}

func (s *Session) renderLocked() error {
	img, err := s.comp.Render(s.photo.Bitmap, s.style)
	if err != nil {
		s.frame = nil
		return fmt.Errorf("render %s: %w", s.style.ID, err)
	}
	s.frame = img
	s.log.Debug("frame rendered", zap.String("style", s.style.ID), zap.String("photo", s.photo.Name))
	return nil
}
