package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/finportal/portal/internal/core/domain"
)

// ---------------------------------------------------------------------------
// Session provider stub
// ---------------------------------------------------------------------------

type stubProvider struct {
	mu sync.Mutex

	session  *domain.Session
	getErr   error
	getGate  chan struct{} // when set, GetSession blocks until it is closed
	getCalls int

	passwords map[string]string // email -> password accepted by SignInWithPassword
	signInErr error

	signUpID    string
	signUpErr   error
	signUpCalls int

	signOutErr error

	deleteErr error
	deleted   []string

	listeners      map[int]func(domain.SessionEvent)
	nextID         int
	subscribeCalls int
}

func newStubProvider() *stubProvider {
	return &stubProvider{
		passwords: map[string]string{"ana@example.com": "s3cret"},
		signUpID:  "user-1",
		listeners: make(map[int]func(domain.SessionEvent)),
	}
}

func (p *stubProvider) GetSession(ctx context.Context) (*domain.Session, error) {
	p.mu.Lock()
	p.getCalls++
	gate := p.getGate
	p.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.getErr != nil {
		return nil, p.getErr
	}
	if p.session == nil {
		return nil, nil
	}
	s := *p.session
	return &s, nil
}

func (p *stubProvider) OnSessionChange(fn func(domain.SessionEvent)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribeCalls++
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	}
}

func (p *stubProvider) listenerCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.listeners)
}

func (p *stubProvider) emit(ev domain.SessionEvent) {
	p.mu.Lock()
	fns := make([]func(domain.SessionEvent), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func (p *stubProvider) SignInWithPassword(_ context.Context, email, password string) error {
	p.mu.Lock()
	if p.signInErr != nil {
		p.mu.Unlock()
		return p.signInErr
	}
	if want, ok := p.passwords[email]; !ok || want != password {
		p.mu.Unlock()
		return errors.New("provider: invalid login credentials")
	}
	p.session = &domain.Session{ID: "sess-" + email, UserID: "user-" + email, Email: email, ExpiresAt: time.Now().Add(time.Hour)}
	s := *p.session
	p.mu.Unlock()

	p.emit(domain.SessionEvent{Type: domain.EventSignedIn, Session: &s})
	return nil
}

func (p *stubProvider) SignUp(_ context.Context, email, password string, _ map[string]string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signUpCalls++
	if p.signUpErr != nil {
		return "", p.signUpErr
	}
	p.passwords[email] = password
	return p.signUpID, nil
}

func (p *stubProvider) SignOut(_ context.Context) error {
	p.mu.Lock()
	if p.signOutErr != nil {
		p.mu.Unlock()
		return p.signOutErr
	}
	p.session = nil
	p.mu.Unlock()

	p.emit(domain.SessionEvent{Type: domain.EventSignedOut})
	return nil
}

func (p *stubProvider) DeleteIdentity(_ context.Context, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, userID)
	return p.deleteErr
}

// ---------------------------------------------------------------------------
// Record store stub
// ---------------------------------------------------------------------------

type stubRecords struct {
	mu sync.Mutex

	customerID string
	genErr     error
	genCalls   int

	insertErr   error
	insertCalls int
	skipStore   bool // accept inserts without making them readable

	readErr   error
	readCalls int
	profiles  map[string]*domain.CustomerProfile

	employees map[string]string // username -> password
	checkErr  error
}

func newStubRecords() *stubRecords {
	return &stubRecords{
		customerID: "CUST-000001",
		profiles:   make(map[string]*domain.CustomerProfile),
		employees:  map[string]string{"Teller01": "Vault#9"},
	}
}

func (r *stubRecords) GenerateCustomerID(context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.genCalls++
	return r.customerID, r.genErr
}

func (r *stubRecords) InsertCustomerProfile(_ context.Context, p *domain.CustomerProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.insertCalls++
	if r.insertErr != nil {
		return r.insertErr
	}
	if !r.skipStore {
		clone := *p
		r.profiles[p.UserID] = &clone
	}
	return nil
}

func (r *stubRecords) ReadCustomerProfile(_ context.Context, userID string) (*domain.CustomerProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readCalls++
	if r.readErr != nil {
		return nil, r.readErr
	}
	p, ok := r.profiles[userID]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *stubRecords) CheckEmployeeCredentials(_ context.Context, username, password string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.checkErr != nil {
		return "", r.checkErr
	}
	if want, ok := r.employees[username]; !ok || want != password {
		return "", domain.ErrInvalidEmployeeCredentials
	}
	return "emp-token-" + username, nil
}

// ---------------------------------------------------------------------------
// Visitor storage stubs
// ---------------------------------------------------------------------------

type memLocal struct {
	mu     sync.Mutex
	values map[string]string
	err    error
}

func newMemLocal() *memLocal {
	return &memLocal{values: make(map[string]string)}
}

func (m *memLocal) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memLocal) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.values[key] = value
	return nil
}

func (m *memLocal) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.values, key)
	return nil
}

func (m *memLocal) Take(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.values[key]
	delete(m.values, key)
	return v, ok, nil
}

func (m *memLocal) peek(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok
}

type memNotices struct {
	mu      sync.Mutex
	visible map[string]domain.Notice
	order   []string
}

func newMemNotices() *memNotices {
	return &memNotices{visible: make(map[string]domain.Notice)}
}

func (m *memNotices) Add(_ context.Context, n domain.Notice, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.visible[n.Key]; ok {
		return false, nil
	}
	m.visible[n.Key] = n
	m.order = append(m.order, n.Key)
	return true, nil
}

func (m *memNotices) List(context.Context) ([]domain.Notice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Notice, 0, len(m.visible))
	for _, k := range m.order {
		if n, ok := m.visible[k]; ok {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memNotices) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.visible, key)
	return nil
}

func (m *memNotices) count(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, k := range m.order {
		if k == key {
			n++
		}
	}
	return n
}

// ---------------------------------------------------------------------------
// Fixture
// ---------------------------------------------------------------------------

type fixture struct {
	provider *stubProvider
	records  *stubRecords
	local    *memLocal
	notices  *memNotices
	portal   *Portal
}

func newFixture() *fixture {
	f := &fixture{
		provider: newStubProvider(),
		records:  newStubRecords(),
		local:    newMemLocal(),
		notices:  newMemNotices(),
	}
	f.portal = NewPortal("visitor-1", VisitorDeps{
		Sessions: f.provider,
		Local:    f.local,
		Notices:  f.notices,
	}, f.records, PortalConfig{SettleTimeout: time.Second}, testLogger())
	return f
}
