package cart

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/fjod/lish_client/internal/api"
	"github.com/fjod/lish_client/internal/domain"
	"github.com/fjod/lish_client/internal/session"
)

// Backend is the slice of the remote cart service the synchronizer needs.
// Consumers define this interface, not the HTTP implementation.
type Backend interface {
	GetCart(ctx context.Context, userID int64) ([]domain.CartLine, error)
	AddItem(ctx context.Context, userID, productID int64, quantity int) error
	RemoveItem(ctx context.Context, userID, productID int64) error
	UpdateQuantity(ctx context.Context, lineID int64, quantity int) error
	DeleteLine(ctx context.Context, lineID int64) error
	ClearCart(ctx context.Context, userID int64) error
}

var (
	// ErrMutationInFlight means a mutation on the same line is still
	// outstanding; the request was dropped, not queued.
	ErrMutationInFlight = errors.New("mutation already in flight for this line")
	// ErrNotSignedIn means the operation needs a session and none exists.
	ErrNotSignedIn = errors.New("not signed in")
)

// MutationError wraps a failed mutating operation and records whether the
// optimistic local change was rolled back.
type MutationError struct {
	Op         string
	RolledBack bool
	Err        error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("cart %s failed (rolled back: %t): %v", e.Op, e.RolledBack, e.Err)
}

func (e *MutationError) Unwrap() error {
	return e.Err
}

// Synchronizer is the single in-process authority for the user's cart. It
// applies mutations optimistically, mediates them through the backend and
// restores the captured pre-mutation state when a request fails.
type Synchronizer struct {
	backend  Backend
	sessions session.Store

	mu       sync.Mutex
	snapshot domain.CartSnapshot
	// selected is presentation state keyed by line id, kept apart from the
	// server-confirmed line fields. A missing entry means selected.
	selected map[int64]bool
	inflight map[int64]bool
	subs     []func()

	onAuthExpired func()
}

func NewSynchronizer(backend Backend, sessions session.Store) *Synchronizer {
	return &Synchronizer{
		backend:  backend,
		sessions: sessions,
		selected: make(map[int64]bool),
		inflight: make(map[int64]bool),
	}
}

// OnAuthExpired registers the redirect signal fired after a 401 forces the
// session to be torn down.
func (s *Synchronizer) OnAuthExpired(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onAuthExpired = fn
}

// Subscribe registers a callback invoked after every snapshot or selection
// change. Callbacks run outside the synchronizer's lock.
func (s *Synchronizer) Subscribe(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// Load replaces the local snapshot with the server's copy. With no session the
// snapshot initializes empty and no network call is made. A fetch failure
// leaves the cart empty rather than blocking; the error is returned so the UI
// can show a warning.
func (s *Synchronizer) Load(ctx context.Context) error {
	sess, err := s.sessions.Load(ctx)
	if errors.Is(err, session.ErrNoSession) {
		s.replace(0, nil)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	lines, err := s.backend.GetCart(ctx, sess.UserID)
	if err != nil {
		log.Printf("cart load failed: %v", err)
		s.handleAuthFailure(ctx, err)
		s.replace(sess.UserID, nil)
		return err
	}

	s.replace(sess.UserID, lines)
	return nil
}

// AddItem increments the product's line (or inserts one with quantity 1)
// optimistically, then sends an add request for a single unit; the server
// merges into any existing server-side line.
func (s *Synchronizer) AddItem(ctx context.Context, p domain.Product) error {
	sess, err := s.currentSession(ctx)
	if err != nil {
		return &MutationError{Op: "add", Err: err}
	}

	s.mu.Lock()
	captured := s.captureLocked()
	if i := s.snapshot.FindByProduct(p.ID); i >= 0 {
		s.snapshot.Lines[i].Quantity++
	} else {
		s.snapshot.Lines = append(s.snapshot.Lines, domain.CartLine{
			ProductID: p.ID,
			Quantity:  1,
			UnitPrice: p.Price,
			Name:      p.Name,
			Thumbnail: p.Thumbnail,
		})
	}
	s.mu.Unlock()
	s.notify()

	if err := s.backend.AddItem(ctx, sess.UserID, p.ID, 1); err != nil {
		s.restore(captured)
		s.handleAuthFailure(ctx, err)
		return &MutationError{Op: "add", RolledBack: true, Err: err}
	}
	return nil
}

// DecrementItem removes one unit of the product; a line reaching zero is
// deleted from the snapshot, never stored at quantity 0.
func (s *Synchronizer) DecrementItem(ctx context.Context, productID int64) error {
	sess, err := s.currentSession(ctx)
	if err != nil {
		return &MutationError{Op: "decrement", Err: err}
	}

	s.mu.Lock()
	i := s.snapshot.FindByProduct(productID)
	if i < 0 {
		s.mu.Unlock()
		return nil
	}
	captured := s.captureLocked()
	if s.snapshot.Lines[i].Quantity <= 1 {
		delete(s.selected, s.snapshot.Lines[i].LineID)
		s.snapshot.Lines = append(s.snapshot.Lines[:i], s.snapshot.Lines[i+1:]...)
	} else {
		s.snapshot.Lines[i].Quantity--
	}
	s.mu.Unlock()
	s.notify()

	if err := s.backend.RemoveItem(ctx, sess.UserID, productID); err != nil {
		s.restore(captured)
		s.handleAuthFailure(ctx, err)
		return &MutationError{Op: "decrement", RolledBack: true, Err: err}
	}
	return nil
}

// SetQuantity sets the absolute quantity of a server-issued line. Quantities
// below 1 are ignored; removing a line goes through DeleteLine. A second
// mutation on a line with one outstanding is dropped with ErrMutationInFlight.
func (s *Synchronizer) SetQuantity(ctx context.Context, lineID int64, quantity int) error {
	if quantity < 1 {
		return nil
	}
	if !s.acquireLine(lineID) {
		return ErrMutationInFlight
	}
	defer s.releaseLine(lineID)

	s.mu.Lock()
	i := s.snapshot.FindByLine(lineID)
	if i < 0 {
		s.mu.Unlock()
		return nil
	}
	captured := s.captureLocked()
	s.snapshot.Lines[i].Quantity = quantity
	s.mu.Unlock()
	s.notify()

	if err := s.backend.UpdateQuantity(ctx, lineID, quantity); err != nil {
		s.restore(captured)
		s.handleAuthFailure(ctx, err)
		return &MutationError{Op: "set quantity", RolledBack: true, Err: err}
	}
	return nil
}

// DeleteLine removes a line. Unlike the other mutations this one is
// pessimistic: local state changes only after the server confirms.
func (s *Synchronizer) DeleteLine(ctx context.Context, lineID int64) error {
	if !s.acquireLine(lineID) {
		return ErrMutationInFlight
	}
	defer s.releaseLine(lineID)

	if err := s.backend.DeleteLine(ctx, lineID); err != nil {
		s.handleAuthFailure(ctx, err)
		return &MutationError{Op: "delete", RolledBack: false, Err: err}
	}

	s.mu.Lock()
	if i := s.snapshot.FindByLine(lineID); i >= 0 {
		s.snapshot.Lines = append(s.snapshot.Lines[:i], s.snapshot.Lines[i+1:]...)
	}
	delete(s.selected, lineID)
	s.mu.Unlock()
	s.notify()
	return nil
}

// ClearCart empties the server cart, then the local snapshot. Idempotent: a
// clear on an already-empty cart succeeds.
func (s *Synchronizer) ClearCart(ctx context.Context) error {
	sess, err := s.currentSession(ctx)
	if err != nil {
		return &MutationError{Op: "clear", Err: err}
	}

	if err := s.backend.ClearCart(ctx, sess.UserID); err != nil {
		s.handleAuthFailure(ctx, err)
		return &MutationError{Op: "clear", RolledBack: false, Err: err}
	}

	s.mu.Lock()
	s.snapshot.Lines = nil
	s.selected = make(map[int64]bool)
	s.mu.Unlock()
	s.notify()
	return nil
}

// ToggleSelect flips one line's selection. Pure local operation.
func (s *Synchronizer) ToggleSelect(lineID int64) {
	s.mu.Lock()
	s.selected[lineID] = !s.isSelectedLocked(lineID)
	s.mu.Unlock()
	s.notify()
}

// ToggleSelectAll sets every line's selection to the opposite of the current
// aggregate state.
func (s *Synchronizer) ToggleSelectAll() {
	s.mu.Lock()
	all := true
	for _, l := range s.snapshot.Lines {
		if !s.isSelectedLocked(l.LineID) {
			all = false
			break
		}
	}
	for _, l := range s.snapshot.Lines {
		s.selected[l.LineID] = !all
	}
	s.mu.Unlock()
	s.notify()
}

// Selected reports whether the line is selected. Lines the user never touched
// count as selected.
func (s *Synchronizer) Selected(lineID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isSelectedLocked(lineID)
}

// Snapshot returns a copy of the current cart state.
func (s *Synchronizer) Snapshot() domain.CartSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot.Clone()
}

// SelectedLines returns copies of the selected lines, in snapshot order.
func (s *Synchronizer) SelectedLines() []domain.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.CartLine
	for _, l := range s.snapshot.Lines {
		if s.isSelectedLocked(l.LineID) {
			out = append(out, l)
		}
	}
	return out
}

// TotalPrice sums unit price × quantity over the selected lines.
func (s *Synchronizer) TotalPrice() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, l := range s.snapshot.Lines {
		if s.isSelectedLocked(l.LineID) {
			total += l.Subtotal()
		}
	}
	return total
}

// SelectedCount counts the selected lines.
func (s *Synchronizer) SelectedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, l := range s.snapshot.Lines {
		if s.isSelectedLocked(l.LineID) {
			n++
		}
	}
	return n
}

type capturedState struct {
	snapshot domain.CartSnapshot
	selected map[int64]bool
}

// captureLocked snapshots cart and selection state before an optimistic
// mutation. Caller holds the lock.
func (s *Synchronizer) captureLocked() capturedState {
	sel := make(map[int64]bool, len(s.selected))
	for k, v := range s.selected {
		sel[k] = v
	}
	return capturedState{snapshot: s.snapshot.Clone(), selected: sel}
}

// restore puts back the captured pre-mutation state exactly.
func (s *Synchronizer) restore(c capturedState) {
	s.mu.Lock()
	s.snapshot = c.snapshot
	s.selected = c.selected
	s.mu.Unlock()
	s.notify()
}

func (s *Synchronizer) replace(userID int64, lines []domain.CartLine) {
	s.mu.Lock()
	s.snapshot = domain.CartSnapshot{UserID: userID, Lines: lines}
	// Server refresh resets selection: all lines selected by default.
	s.selected = make(map[int64]bool)
	s.mu.Unlock()
	s.notify()
}

func (s *Synchronizer) isSelectedLocked(lineID int64) bool {
	sel, ok := s.selected[lineID]
	if !ok {
		return true
	}
	return sel
}

func (s *Synchronizer) acquireLine(lineID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight[lineID] {
		return false
	}
	s.inflight[lineID] = true
	return true
}

func (s *Synchronizer) releaseLine(lineID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, lineID)
}

func (s *Synchronizer) currentSession(ctx context.Context) (*domain.Session, error) {
	sess, err := s.sessions.Load(ctx)
	if errors.Is(err, session.ErrNoSession) {
		return nil, ErrNotSignedIn
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return sess, nil
}

// handleAuthFailure tears the session down on a 401, regardless of which
// operation triggered it, and fires the redirect signal.
func (s *Synchronizer) handleAuthFailure(ctx context.Context, err error) {
	if !api.IsAuth(err) {
		return
	}
	if clearErr := s.sessions.Clear(ctx); clearErr != nil {
		log.Printf("session clear failed: %v", clearErr)
	}

	s.mu.Lock()
	s.snapshot = domain.CartSnapshot{}
	s.selected = make(map[int64]bool)
	cb := s.onAuthExpired
	s.mu.Unlock()
	s.notify()

	if cb != nil {
		cb()
	}
}

func (s *Synchronizer) notify() {
	s.mu.Lock()
	subs := make([]func(), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}
