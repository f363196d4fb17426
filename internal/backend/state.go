package backend

import "context"

// SessionState binds a visitor key to its stored session and listeners.
// Drivers persist through it so every change is announced exactly once.
type SessionState struct {
	key       string
	storage   SessionStorage
	listeners *Listeners
}

func NewSessionState(key string, storage SessionStorage) *SessionState {
	return &SessionState{
		key:       key,
		storage:   storage,
		listeners: NewListeners(),
	}
}

func (s *SessionState) Key() string {
	return s.key
}

func (s *SessionState) Load(ctx context.Context) (*Session, error) {
	return s.storage.Load(ctx, s.key)
}

func (s *SessionState) Set(ctx context.Context, sess *Session, event AuthEvent) error {
	if err := s.storage.Save(ctx, s.key, sess); err != nil {
		return err
	}
	s.listeners.Emit(event, sess)
	return nil
}

// Clear forgets the session and announces SIGNED_OUT even when the
// storage delete fails.
func (s *SessionState) Clear(ctx context.Context) error {
	err := s.storage.Delete(ctx, s.key)
	s.listeners.Emit(EventSignedOut, nil)
	return err
}

func (s *SessionState) Subscribe(fn AuthChangeFunc) Subscription {
	return s.listeners.Add(fn)
}
