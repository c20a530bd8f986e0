// Package workspace is the single state container behind the CLI and the HTTP
// API. Every command runs under one lock, and subscribers receive a Snapshot
// after each command that changed something.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"images_to_pdf/internal/collection"
	"images_to_pdf/internal/converter"
	"images_to_pdf/internal/ingest"
)

// State is the conversion state of the workspace.
type State string

const (
	Idle       State = "idle"
	Converting State = "converting"
	Done       State = "done"
)

// BannerKind distinguishes error banners from success banners.
type BannerKind string

const (
	BannerError   BannerKind = "error"
	BannerSuccess BannerKind = "success"
)

const (
	successMessage    = "PDF converted and downloaded successfully!"
	emptyMessage      = "Please upload at least one image to convert."
	failureMessageFmt = "PDF conversion failed: %v"
)

// Banner is a user-visible message that stays until dismissed or replaced.
type Banner struct {
	Kind    BannerKind `json:"kind"`
	Message string     `json:"message"`
}

// Snapshot is a consistent copy of the workspace.
type Snapshot struct {
	Records  []collection.Record `json:"images"`
	Options  converter.Options   `json:"options"`
	State    State               `json:"state"`
	Progress int                 `json:"progress"`
	Banner   *Banner             `json:"banner,omitempty"`
}

// Subscriber is notified after every state change. It runs with the lock
// released and must not block for long.
type Subscriber func(Snapshot)

// Workspace owns the collection, the options and the conversion state.
type Workspace struct {
	ingester    *ingest.Ingester
	transformer *converter.Transformer
	assembler   *converter.Assembler

	mu          sync.Mutex
	images      *collection.Collection
	options     converter.Options
	state       State
	progress    int
	banner      *Banner
	subscribers []Subscriber
}

// New returns an idle workspace with the given initial options.
func New(in *ingest.Ingester, t *converter.Transformer, a *converter.Assembler, opts converter.Options) *Workspace {
	return &Workspace{
		ingester:    in,
		transformer: t,
		assembler:   a,
		images:      collection.New(),
		options:     opts,
		state:       Idle,
	}
}

// Subscribe registers fn for change notifications.
func (w *Workspace) Subscribe(fn Subscriber) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.subscribers = append(w.subscribers, fn)
}

// Snapshot returns the current state.
func (w *Workspace) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

func (w *Workspace) snapshotLocked() Snapshot {
	s := Snapshot{
		Records:  w.images.Records(),
		Options:  w.options,
		State:    w.state,
		Progress: w.progress,
	}
	if w.banner != nil {
		b := *w.banner
		s.Banner = &b
	}
	return s
}

// update runs fn under the lock and notifies subscribers if it succeeded.
func (w *Workspace) update(fn func() error) error {
	w.mu.Lock()
	if w.state == Converting {
		w.mu.Unlock()
		return converter.ErrConversionInProgress
	}
	if err := fn(); err != nil {
		w.mu.Unlock()
		return err
	}
	snap := w.snapshotLocked()
	subs := append([]Subscriber(nil), w.subscribers...)
	w.mu.Unlock()

	for _, s := range subs {
		s(snap)
	}
	return nil
}

// Ingest reads files and adds the accepted ones to the collection. Any
// previous banner is cleared; rejections become an error banner.
func (w *Workspace) Ingest(ctx context.Context, files []ingest.File) (ingest.Result, error) {
	// Reads happen outside the lock; only the insert is serialized.
	w.mu.Lock()
	busy := w.state == Converting
	w.mu.Unlock()
	if busy {
		return ingest.Result{}, converter.ErrConversionInProgress
	}

	res := w.ingester.Ingest(ctx, files)
	err := w.update(func() error {
		w.banner = nil
		if msg := res.Message(); msg != "" {
			w.banner = &Banner{Kind: BannerError, Message: msg}
		}
		w.images.Insert(res.Records...)
		if len(res.Records) > 0 {
			w.state = Idle
		}
		return nil
	})
	return res, err
}

// Remove deletes the record with the given id and clears any banner.
// Removing an unknown id does nothing.
func (w *Workspace) Remove(id string) error {
	return w.update(func() error {
		w.banner = nil
		if !w.images.Remove(id) {
			slog.Debug("Remove of unknown image ignored", "id", id)
		}
		return nil
	})
}

// Rotate advances the record's rotation. Nothing is re-encoded: the rotation
// is applied when the image is next transformed, and the stale preview falls
// back to the original bytes until Preview is called.
func (w *Workspace) Rotate(id string) (int, error) {
	var deg int
	err := w.update(func() error {
		var err error
		deg, err = w.images.Rotate(id)
		if err != nil {
			return err
		}
		rec, _ := w.images.Get(id)
		return w.images.SetCurrent(id, rec.OriginalDataURL())
	})
	return deg, err
}

// MoveAdjacent swaps the record with its neighbour. Boundary moves are no-ops.
func (w *Workspace) MoveAdjacent(id string, dir collection.Direction) error {
	return w.update(func() error {
		if _, err := w.images.Get(id); err != nil {
			return err
		}
		w.images.MoveAdjacent(id, dir)
		return nil
	})
}

// Reposition moves the dragged record to the target's index.
func (w *Workspace) Reposition(id, targetID string) error {
	return w.update(func() error {
		if _, err := w.images.Get(id); err != nil {
			return err
		}
		if _, err := w.images.Get(targetID); err != nil {
			return err
		}
		w.images.Reposition(id, targetID)
		return nil
	})
}

// Clear empties the collection and any banner.
func (w *Workspace) Clear() error {
	return w.update(func() error {
		w.images.Clear()
		w.banner = nil
		w.progress = 0
		w.state = Idle
		return nil
	})
}

// SetOptions replaces the conversion options after validating them.
func (w *Workspace) SetOptions(opts converter.Options) error {
	opts, err := opts.Normalize()
	if err != nil {
		return err
	}
	return w.update(func() error {
		w.options = opts
		return nil
	})
}

// Options returns the current conversion options.
func (w *Workspace) Options() converter.Options {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.options
}

// DismissBanner removes the banner, if any.
func (w *Workspace) DismissBanner() error {
	return w.update(func() error {
		w.banner = nil
		return nil
	})
}

// Preview renders the record at its rotation, without compression, from the
// original bytes. The result is also stored as the record's current preview.
func (w *Workspace) Preview(ctx context.Context, id string) (converter.Result, error) {
	w.mu.Lock()
	rec, err := w.images.Get(id)
	w.mu.Unlock()
	if err != nil {
		return converter.Result{}, err
	}

	res, err := w.transformer.Transform(ctx, previewRequest(rec))
	if err != nil {
		return converter.Result{}, &converter.ImageError{ID: rec.ID, Name: rec.Name, Err: err}
	}

	w.mu.Lock()
	// The record may have been removed or rotated meanwhile; only store a
	// preview that still matches it.
	if cur, err := w.images.Get(id); err == nil && cur.Rotation == rec.Rotation {
		_ = w.images.SetCurrent(id, res.DataURL())
	}
	w.mu.Unlock()
	return res, nil
}

func previewRequest(rec collection.Record) converter.TransformRequest {
	return converter.TransformRequest{
		Name:     rec.Name,
		Original: rec.Original(),
		MIMEType: rec.MIMEType,
		Rotation: rec.Rotation,
		Quality:  converter.NoCompression(),
	}
}

// Convert assembles the collection into a PDF written to out. On success the
// collection is cleared and a success banner is shown; on failure the
// collection is kept and an error banner names the cause.
func (w *Workspace) Convert(ctx context.Context, out io.Writer) error {
	w.mu.Lock()
	if w.state == Converting {
		w.mu.Unlock()
		return converter.ErrConversionInProgress
	}
	if w.images.Len() == 0 {
		w.banner = &Banner{Kind: BannerError, Message: emptyMessage}
		w.mu.Unlock()
		w.notify()
		return converter.ErrEmptyCollection
	}
	records := w.images.Records()
	opts := w.options
	w.state = Converting
	w.progress = 0
	w.banner = nil
	w.mu.Unlock()
	w.notify()

	err := w.assembler.ConvertToPDF(ctx, records, opts, out, func(p int) {
		w.mu.Lock()
		w.progress = p
		w.mu.Unlock()
		w.notify()
	})

	w.mu.Lock()
	if err != nil {
		slog.Error("PDF conversion failed", "error", err)
		w.state = Idle
		w.progress = 0
		w.banner = &Banner{Kind: BannerError, Message: fmt.Sprintf(failureMessageFmt, err)}
	} else {
		w.state = Done
		w.progress = 100
		w.images.Clear()
		w.banner = &Banner{Kind: BannerSuccess, Message: successMessage}
	}
	w.mu.Unlock()
	w.notify()
	return err
}

func (w *Workspace) notify() {
	w.mu.Lock()
	snap := w.snapshotLocked()
	subs := append([]Subscriber(nil), w.subscribers...)
	w.mu.Unlock()
	for _, s := range subs {
		s(snap)
	}
}

// IsBusy reports whether err means the workspace refused a command because a
// conversion is running.
func IsBusy(err error) bool {
	return errors.Is(err, converter.ErrConversionInProgress)
}
