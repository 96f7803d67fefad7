package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"ledger/internal/core"
)

// FormState is the lifecycle of the entry form.
type FormState int

const (
	Idle FormState = iota
	Editing
	Submitting
)

func (s FormState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Editing:
		return "editing"
	case Submitting:
		return "submitting"
	default:
		return "unknown"
	}
}

// ErrSubmitting is returned when the form is changed mid-submission.
var ErrSubmitting = errors.New("form is being submitted")

// Saver persists a submitted form.
type Saver interface {
	Create(ctx context.Context, in core.TransactionInput) (core.Transaction, error)
	Update(ctx context.Context, id int64, in core.TransactionInput) (core.Transaction, error)
}

// Form moves idle -> editing(id) -> submitting -> idle. Submitting without
// a loaded id creates a record; with one it updates that record. Success
// clears the form; failure restores the previous state and keeps the input.
type Form struct {
	saver Saver
	now   func() time.Time

	mu    sync.Mutex
	state FormState
	id    int64
	input core.TransactionInput
	err   error
}

func NewForm(saver Saver) *Form {
	return &Form{saver: saver, now: time.Now}
}

// WithClock replaces the clock used for the future-date check.
func (f *Form) WithClock(now func() time.Time) *Form {
	f.now = now
	return f
}

func (f *Form) State() FormState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// ID is the record being edited, or 0.
func (f *Form) ID() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.id
}

func (f *Form) Input() core.TransactionInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.input
}

// Err is the error of the last failed submission.
func (f *Form) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Edit loads tx into the form.
func (f *Form) Edit(tx core.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == Submitting {
		return ErrSubmitting
	}
	f.state = Editing
	f.id = tx.ID
	f.input = core.InputFrom(tx)
	f.err = nil
	return nil
}

// SetInput replaces the field values without changing the state.
func (f *Form) SetInput(in core.TransactionInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == Submitting {
		return ErrSubmitting
	}
	f.input = in
	return nil
}

// Reset clears the form back to idle.
func (f *Form) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == Submitting {
		return ErrSubmitting
	}
	f.clear()
	return nil
}

// Submit validates the input locally, then creates or updates.
func (f *Form) Submit(ctx context.Context) (core.Transaction, error) {
	f.mu.Lock()
	if f.state == Submitting {
		f.mu.Unlock()
		return core.Transaction{}, ErrSubmitting
	}
	prior, id, in := f.state, f.id, f.input
	f.state = Submitting
	f.err = nil
	f.mu.Unlock()

	saved, err := f.save(ctx, id, in)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.state = prior
		f.err = err
		return core.Transaction{}, err
	}
	f.clear()
	return saved, nil
}

func (f *Form) save(ctx context.Context, id int64, in core.TransactionInput) (core.Transaction, error) {
	if _, err := in.Parse(f.now()); err != nil {
		return core.Transaction{}, err
	}
	if id == 0 {
		return f.saver.Create(ctx, in)
	}
	return f.saver.Update(ctx, id, in)
}

func (f *Form) clear() {
	f.state = Idle
	f.id = 0
	f.input = core.TransactionInput{}
	f.err = nil
}
