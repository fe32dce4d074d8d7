// Package upload stores supporting documents and reports progress while
// doing so. An upload can be cancelled at any tick.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"accreditation/internal/model"
)

// Store persists document bodies
type Store interface {
	Put(ctx context.Context, doc model.Document, r io.Reader) (string, error)
	Delete(ctx context.Context, id string) error
}

// Reader is implemented by stores that can hand documents back
type Reader interface {
	Open(ctx context.Context, id string) (model.Document, io.ReadCloser, error)
}

// File is an incoming document
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Progress is one tick of an upload
type Progress struct {
	Bytes   int64 `json:"bytes"`
	Total   int64 `json:"total"`
	Percent int   `json:"percent"`
}

var (
	ErrTooLarge = errors.New("file is larger than declared or allowed")
	ErrNotFound = errors.New("document not found")
)

// Manager starts uploads against a Store
type Manager struct {
	store  Store
	policy Policy
	logger *zap.Logger
	now    func() time.Time
}

func NewManager(store Store, policy Policy, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{store: store, policy: policy, logger: logger, now: time.Now}
}

// Policy returns the policy uploads are checked against
func (m *Manager) Policy() Policy {
	return m.policy
}

// Open streams a stored document back. The caller closes the body.
func (m *Manager) Open(ctx context.Context, id string) (model.Document, io.ReadCloser, error) {
	r, ok := m.store.(Reader)
	if !ok {
		return model.Document{}, nil, errors.New("document store does not support reads")
	}
	return r.Open(ctx, id)
}

// Remove deletes a stored document
func (m *Manager) Remove(ctx context.Context, id string) error {
	return m.store.Delete(ctx, id)
}

// Upload is an in-flight transfer
type Upload struct {
	progress chan Progress
	cancel   context.CancelFunc
	done     chan struct{}

	id  string
	err error
}

// Progress delivers ticks and is closed when the upload ends. Ticks are
// dropped rather than blocking the transfer when nobody is reading.
func (u *Upload) Progress() <-chan Progress {
	return u.progress
}

// Cancel aborts the transfer
func (u *Upload) Cancel() {
	u.cancel()
}

// Wait blocks until the upload ends and returns the stored document id
func (u *Upload) Wait() (string, error) {
	<-u.done
	return u.id, u.err
}

// Done is closed once the upload has ended
func (u *Upload) Done() <-chan struct{} {
	return u.done
}

// Start checks f against the policy and copies it to the store in the
// background. The upload is tied to ctx as well as to Cancel.
func (m *Manager) Start(ctx context.Context, f File) (*Upload, error) {
	if err := m.policy.Check(f.Name, f.ContentType, f.Size); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	u := &Upload{
		progress: make(chan Progress, 16),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	limit := f.Size
	if max := m.policy.MaxBytes(); max > 0 && (limit == 0 || limit > max) {
		limit = max
	}
	r := &progressReader{ctx: ctx, r: f.Body, total: f.Size, limit: limit, ticks: u.progress, lastPct: -1}
	doc := model.Document{Name: f.Name, ContentType: f.ContentType, Size: f.Size, UploadedAt: m.now().UTC()}

	go func() {
		defer close(u.done)
		defer close(u.progress)
		defer cancel()

		id, err := m.store.Put(ctx, doc, r)
		if err == nil && r.err != nil {
			err = r.err
		}
		if err != nil {
			if id != "" {
				if derr := m.store.Delete(context.Background(), id); derr != nil {
					m.logger.Warn("failed to remove partial document", zap.String("document", id), zap.Error(derr))
				}
			}
			u.err = fmt.Errorf("failed to store %s: %w", f.Name, err)
			m.logger.Info("upload aborted", zap.String("name", f.Name), zap.Error(err))
			return
		}
		u.id = id
		m.logger.Debug("upload finished", zap.String("name", f.Name), zap.String("document", id), zap.Int64("bytes", r.read))
	}()
	return u, nil
}

type progressReader struct {
	ctx     context.Context
	r       io.Reader
	total   int64
	limit   int64
	read    int64
	lastPct int
	ticks   chan<- Progress
	err     error
}

func (p *progressReader) Read(b []byte) (int, error) {
	if err := p.ctx.Err(); err != nil {
		p.err = err
		return 0, err
	}
	n, err := p.r.Read(b)
	p.read += int64(n)
	if cerr := p.ctx.Err(); cerr != nil {
		p.err = cerr
		return n, cerr
	}
	if p.limit > 0 && p.read > p.limit {
		p.err = ErrTooLarge
		return n, ErrTooLarge
	}
	if n > 0 {
		p.tick()
	}
	return n, err
}

func (p *progressReader) tick() {
	pct := 0
	if p.total > 0 {
		pct = int(p.read * 100 / p.total)
	}
	if pct == p.lastPct {
		return
	}
	p.lastPct = pct
	select {
	case p.ticks <- Progress{Bytes: p.read, Total: p.total, Percent: pct}:
	default:
	}
}
