// Package memory provides process-local adapters for running the portal
// without Redis or a database. State is lost on restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/finportal/portal/internal/core/domain"
)

// Storage holds the key/value data and notices of every visitor.
type Storage struct {
	mu      sync.Mutex
	values  map[string]map[string]string
	notices map[string]map[string]notice
	order   map[string][]string
	now     func() time.Time
}

type notice struct {
	n         domain.Notice
	expiresAt time.Time
}

func NewStorage() *Storage {
	return &Storage{
		values:  make(map[string]map[string]string),
		notices: make(map[string]map[string]notice),
		order:   make(map[string][]string),
		now:     time.Now,
	}
}

// LocalStore returns the key/value store of visitorID.
func (s *Storage) LocalStore(visitorID string) *LocalStore {
	return &LocalStore{s: s, visitorID: visitorID}
}

// NoticeStore returns the notice store of visitorID.
func (s *Storage) NoticeStore(visitorID string) *NoticeStore {
	return &NoticeStore{s: s, visitorID: visitorID}
}

type LocalStore struct {
	s         *Storage
	visitorID string
}

func (l *LocalStore) Get(_ context.Context, key string) (string, bool, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	v, ok := l.s.values[l.visitorID][key]
	return v, ok, nil
}

func (l *LocalStore) Set(_ context.Context, key, value string) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	m, ok := l.s.values[l.visitorID]
	if !ok {
		m = make(map[string]string)
		l.s.values[l.visitorID] = m
	}
	m[key] = value
	return nil
}

func (l *LocalStore) Delete(_ context.Context, key string) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	delete(l.s.values[l.visitorID], key)
	return nil
}

func (l *LocalStore) Take(_ context.Context, key string) (string, bool, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	v, ok := l.s.values[l.visitorID][key]
	delete(l.s.values[l.visitorID], key)
	return v, ok, nil
}

type NoticeStore struct {
	s         *Storage
	visitorID string
}

func (n *NoticeStore) Add(_ context.Context, nt domain.Notice, ttl time.Duration) (bool, error) {
	n.s.mu.Lock()
	defer n.s.mu.Unlock()
	n.pruneLocked()

	m, ok := n.s.notices[n.visitorID]
	if !ok {
		m = make(map[string]notice)
		n.s.notices[n.visitorID] = m
	}
	if _, visible := m[nt.Key]; visible {
		return false, nil
	}
	m[nt.Key] = notice{n: nt, expiresAt: n.s.now().Add(ttl)}
	n.s.order[n.visitorID] = append(n.s.order[n.visitorID], nt.Key)
	return true, nil
}

// List returns the visible notices in the order they were added.
func (n *NoticeStore) List(context.Context) ([]domain.Notice, error) {
	n.s.mu.Lock()
	defer n.s.mu.Unlock()
	n.pruneLocked()

	m := n.s.notices[n.visitorID]
	out := make([]domain.Notice, 0, len(m))
	for _, k := range n.s.order[n.visitorID] {
		out = append(out, m[k].n)
	}
	return out, nil
}

func (n *NoticeStore) Remove(_ context.Context, key string) error {
	n.s.mu.Lock()
	defer n.s.mu.Unlock()
	n.removeLocked(key)
	return nil
}

func (n *NoticeStore) pruneLocked() {
	now := n.s.now()
	for k, nt := range n.s.notices[n.visitorID] {
		if !nt.expiresAt.After(now) {
			n.removeLocked(k)
		}
	}
}

func (n *NoticeStore) removeLocked(key string) {
	delete(n.s.notices[n.visitorID], key)
	order := n.s.order[n.visitorID]
	for i, k := range order {
		if k == key {
			n.s.order[n.visitorID] = append(order[:i:i], order[i+1:]...)
			break
		}
	}
}
