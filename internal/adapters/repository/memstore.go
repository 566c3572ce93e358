package repository

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/okian/pacer/internal/domain/model"
)

type regKey struct {
	eventID int64
	email   string
}

type linkKey struct {
	eventID   int64
	sessionID int64
}

type reviewKey struct {
	target   model.ReviewTarget
	targetID int64
	email    string
}

// MemoryStore is a thread-safe in-memory Store.
//
// mu guards the maps. Event scopes handed out by LockEvent are separate
// per-event mutexes, so admission for one event never blocks another.
type MemoryStore struct {
	mu sync.RWMutex

	joggers       map[string]model.Jogger
	routes        map[int64]model.Route
	events        map[int64]model.Event
	sessions      map[int64]model.Session
	registrations map[regKey]model.Registration
	links         map[linkKey]struct{}
	reviews       map[int64]model.Review
	reviewIndex   map[reviewKey]int64

	nextRoute   int64
	nextEvent   int64
	nextSession int64
	nextReview  int64

	locksMu    sync.Mutex
	eventLocks map[int64]*sync.Mutex

	now func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		joggers:       make(map[string]model.Jogger),
		routes:        make(map[int64]model.Route),
		events:        make(map[int64]model.Event),
		sessions:      make(map[int64]model.Session),
		registrations: make(map[regKey]model.Registration),
		links:         make(map[linkKey]struct{}),
		reviews:       make(map[int64]model.Review),
		reviewIndex:   make(map[reviewKey]int64),
		eventLocks:    make(map[int64]*sync.Mutex),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) CreateJogger(_ context.Context, j model.Jogger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.joggers[j.Email]; ok {
		return fmt.Errorf("jogger %s: %w", j.Email, ErrDuplicate)
	}
	s.joggers[j.Email] = j
	return nil
}

func (s *MemoryStore) GetJogger(_ context.Context, email string) (model.Jogger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.joggers[email]
	if !ok {
		return model.Jogger{}, ErrJoggerNotFound
	}
	return j, nil
}

func (s *MemoryStore) CreateRoute(_ context.Context, r *model.Route) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextRoute++
	r.ID = s.nextRoute
	s.routes[r.ID] = *r
	return nil
}

func (s *MemoryStore) GetRoute(_ context.Context, id int64) (model.Route, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.routes[id]
	if !ok {
		return model.Route{}, ErrRouteNotFound
	}
	return r, nil
}

func (s *MemoryStore) CreateEvent(_ context.Context, e *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.RouteID != 0 {
		if _, ok := s.routes[e.RouteID]; !ok {
			return fmt.Errorf("event route %d: %w", e.RouteID, ErrInvalidReference)
		}
	}
	s.nextEvent++
	e.ID = s.nextEvent
	s.events[e.ID] = *e
	return nil
}

func (s *MemoryStore) GetEvent(_ context.Context, id int64) (model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	if !ok {
		return model.Event{}, ErrEventNotFound
	}
	return e, nil
}

func (s *MemoryStore) eventLock(eventID int64) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.eventLocks[eventID]
	if !ok {
		l = &sync.Mutex{}
		s.eventLocks[eventID] = l
	}
	return l
}

// LockEvent holds the event's mutex while fn runs. Writes made through tx
// are applied immediately; on error they are rolled back.
func (s *MemoryStore) LockEvent(ctx context.Context, eventID int64, fn func(ctx context.Context, tx RegistrationTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// Events are never deleted, so only known ids get a mutex.
	if _, err := s.GetEvent(ctx, eventID); err != nil {
		return err
	}
	l := s.eventLock(eventID)
	l.Lock()
	defer l.Unlock()

	event, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return err
	}
	tx := &memRegistrationTx{store: s, event: event}
	if err := fn(ctx, tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

func (s *MemoryStore) IsRegistered(_ context.Context, eventID int64, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.registrations[regKey{eventID, email}]
	return ok, nil
}

func (s *MemoryStore) CountRegistrations(_ context.Context, eventID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countLocked(eventID), nil
}

func (s *MemoryStore) Registrations(_ context.Context, eventID int64) ([]model.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Registration{}
	for k, reg := range s.registrations {
		if k.eventID == eventID {
			out = append(out, reg)
		}
	}
	slices.SortFunc(out, func(a, b model.Registration) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.JoggerEmail, b.JoggerEmail)
	})
	return out, nil
}

func (s *MemoryStore) countLocked(eventID int64) int {
	n := 0
	for k := range s.registrations {
		if k.eventID == eventID {
			n++
		}
	}
	return n
}

func (s *MemoryStore) CreateSession(_ context.Context, sess *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkSessionRefsLocked(*sess); err != nil {
		return err
	}
	s.nextSession++
	sess.ID = s.nextSession
	s.sessions[sess.ID] = *sess
	return nil
}

func (s *MemoryStore) checkSessionRefsLocked(sess model.Session) error {
	if _, ok := s.joggers[sess.JoggerEmail]; !ok {
		return fmt.Errorf("session jogger %s: %w", sess.JoggerEmail, ErrInvalidReference)
	}
	if sess.RouteID != 0 {
		if _, ok := s.routes[sess.RouteID]; !ok {
			return fmt.Errorf("session route %d: %w", sess.RouteID, ErrInvalidReference)
		}
	}
	return nil
}

func (s *MemoryStore) GetSession(_ context.Context, id int64) (model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return model.Session{}, ErrSessionNotFound
	}
	return sess, nil
}

func (s *MemoryStore) UpdateSession(_ context.Context, sess model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.ID]; !ok {
		return ErrSessionNotFound
	}
	if err := s.checkSessionRefsLocked(sess); err != nil {
		return err
	}
	s.sessions[sess.ID] = sess
	return nil
}

func (s *MemoryStore) DeleteSession(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	for k := range s.links {
		if k.sessionID == id {
			delete(s.links, k)
		}
	}
	return nil
}

func (s *MemoryStore) SessionsByJogger(_ context.Context, email string) ([]model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Session{}
	for _, sess := range s.sessions {
		if sess.JoggerEmail == email {
			out = append(out, sess)
		}
	}
	slices.SortFunc(out, func(a, b model.Session) int {
		if c := b.Start.Compare(a.Start); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *MemoryStore) LinkSession(_ context.Context, eventID, sessionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[eventID]; !ok {
		return ErrEventNotFound
	}
	if _, ok := s.sessions[sessionID]; !ok {
		return ErrSessionNotFound
	}
	s.links[linkKey{eventID, sessionID}] = struct{}{}
	return nil
}

func (s *MemoryStore) UnlinkSession(_ context.Context, eventID, sessionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := linkKey{eventID, sessionID}
	if _, ok := s.links[k]; !ok {
		return ErrLinkNotFound
	}
	delete(s.links, k)
	return nil
}

func (s *MemoryStore) LeaderboardRows(_ context.Context, eventID int64) ([]model.LeaderboardRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := []model.LeaderboardRow{}
	for k := range s.links {
		if k.eventID != eventID {
			continue
		}
		sess := s.sessions[k.sessionID]
		rows = append(rows, model.LeaderboardRow{
			EventID:     eventID,
			SessionID:   sess.ID,
			JoggerEmail: sess.JoggerEmail,
			JoggerName:  s.joggers[sess.JoggerEmail].Name,
			DistanceKm:  sess.DistanceKm,
			Start:       sess.Start,
			End:         sess.End,
		})
	}
	return rows, nil
}

func (s *MemoryStore) PerformerRows(_ context.Context, eventIDs []int64) ([]model.PerformerRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wanted := make(map[int64]struct{}, len(eventIDs))
	for _, id := range eventIDs {
		wanted[id] = struct{}{}
	}
	rows := []model.PerformerRow{}
	for k := range s.links {
		if _, ok := wanted[k.eventID]; !ok {
			continue
		}
		sess := s.sessions[k.sessionID]
		rows = append(rows, model.PerformerRow{
			EventID:     k.eventID,
			SessionID:   sess.ID,
			JoggerEmail: sess.JoggerEmail,
			JoggerName:  s.joggers[sess.JoggerEmail].Name,
			DistanceKm:  sess.DistanceKm,
		})
	}
	return rows, nil
}

func (s *MemoryStore) UpsertReview(_ context.Context, r *model.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.joggers[r.JoggerEmail]; !ok {
		return fmt.Errorf("review jogger %s: %w", r.JoggerEmail, ErrInvalidReference)
	}
	key := reviewKey{r.Target, r.TargetID, r.JoggerEmail}
	if id, ok := s.reviewIndex[key]; ok {
		existing := s.reviews[id]
		existing.Rating = r.Rating
		existing.Comment = r.Comment
		s.reviews[id] = existing
		*r = existing
		return nil
	}
	s.nextReview++
	r.ID = s.nextReview
	r.CreatedAt = s.now()
	s.reviews[r.ID] = *r
	s.reviewIndex[key] = r.ID
	return nil
}

func (s *MemoryStore) GetReview(_ context.Context, target model.ReviewTarget, id int64) (model.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reviews[id]
	if !ok || r.Target != target {
		return model.Review{}, ErrReviewNotFound
	}
	return r, nil
}

func (s *MemoryStore) DeleteReview(_ context.Context, target model.ReviewTarget, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reviews[id]
	if !ok || r.Target != target {
		return ErrReviewNotFound
	}
	delete(s.reviews, id)
	delete(s.reviewIndex, reviewKey{r.Target, r.TargetID, r.JoggerEmail})
	return nil
}

func (s *MemoryStore) Reviews(_ context.Context, target model.ReviewTarget, targetID int64) ([]model.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Review{}
	for _, r := range s.reviews {
		if r.Target == target && r.TargetID == targetID {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b model.Review) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *MemoryStore) Stats(_ context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Joggers:       len(s.joggers),
		Events:        len(s.events),
		Routes:        len(s.routes),
		Sessions:      len(s.sessions),
		Registrations: len(s.registrations),
		Reviews:       len(s.reviews),
	}, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

// memRegistrationTx records its writes so a failing callback can undo them.
type memRegistrationTx struct {
	store    *MemoryStore
	event    model.Event
	inserted []regKey
	deleted  []model.Registration
}

func (t *memRegistrationTx) Event() model.Event { return t.event }

func (t *memRegistrationTx) IsRegistered(ctx context.Context, email string) (bool, error) {
	return t.store.IsRegistered(ctx, t.event.ID, email)
}

func (t *memRegistrationTx) Count(ctx context.Context) (int, error) {
	return t.store.CountRegistrations(ctx, t.event.ID)
}

func (t *memRegistrationTx) Insert(_ context.Context, email string, at time.Time) error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.joggers[email]; !ok {
		return ErrJoggerNotFound
	}
	k := regKey{t.event.ID, email}
	if _, ok := s.registrations[k]; ok {
		return fmt.Errorf("registration %d/%s: %w", t.event.ID, email, ErrDuplicate)
	}
	s.registrations[k] = model.Registration{EventID: t.event.ID, JoggerEmail: email, CreatedAt: at}
	t.inserted = append(t.inserted, k)
	return nil
}

func (t *memRegistrationTx) Delete(_ context.Context, email string) error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	k := regKey{t.event.ID, email}
	reg, ok := s.registrations[k]
	if !ok {
		return ErrRegistrationNotFound
	}
	delete(s.registrations, k)
	t.deleted = append(t.deleted, reg)
	return nil
}

func (t *memRegistrationTx) rollback() {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range t.inserted {
		delete(s.registrations, k)
	}
	for _, reg := range t.deleted {
		s.registrations[regKey{reg.EventID, reg.JoggerEmail}] = reg
	}
}
