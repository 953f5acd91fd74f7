package memory

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/finportal/portal/internal/core/domain"
	"github.com/finportal/portal/internal/core/ports"
)

var (
	_ ports.RecordStore        = (*RecordStore)(nil)
	_ ports.IdentityRepository = (*IdentityRepository)(nil)
)

type RecordStore struct {
	mu        sync.Mutex
	seq       int64
	profiles  map[string]domain.CustomerProfile
	employees map[string][]byte
}

func NewRecordStore() *RecordStore {
	return &RecordStore{
		profiles:  make(map[string]domain.CustomerProfile),
		employees: make(map[string][]byte),
	}
}

func (s *RecordStore) GenerateCustomerID(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return fmt.Sprintf("CUST-%06d", s.seq), nil
}

func (s *RecordStore) InsertCustomerProfile(_ context.Context, p *domain.CustomerProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[p.UserID]; ok {
		return fmt.Errorf("insert customer profile: user %s already has a profile", p.UserID)
	}
	for _, existing := range s.profiles {
		if existing.CustomerID == p.CustomerID {
			return fmt.Errorf("insert customer profile: customer id %s taken", p.CustomerID)
		}
	}
	s.profiles[p.UserID] = *p
	return nil
}

func (s *RecordStore) ReadCustomerProfile(_ context.Context, userID string) (*domain.CustomerProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	return &p, nil
}

func (s *RecordStore) CheckEmployeeCredentials(_ context.Context, username, password string) (string, error) {
	s.mu.Lock()
	hash, ok := s.employees[username]
	s.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil {
		return "", domain.ErrInvalidEmployeeCredentials
	}
	return uuid.NewString(), nil
}

func (s *RecordStore) SeedEmployee(_ context.Context, username, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash employee password: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.employees[username] = hash
	return nil
}

type IdentityRepository struct {
	mu      sync.Mutex
	seq     int
	byEmail map[string]domain.Identity
}

func NewIdentityRepository() *IdentityRepository {
	return &IdentityRepository{byEmail: make(map[string]domain.Identity)}
}

func (r *IdentityRepository) Create(_ context.Context, identity *domain.Identity) (*domain.Identity, error) {
	email := strings.ToLower(strings.TrimSpace(identity.Email))

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[email]; ok {
		return nil, domain.ErrIdentityExists
	}
	r.seq++
	created := *identity
	created.ID = "usr_" + strconv.Itoa(r.seq)
	created.Email = email
	r.byEmail[email] = created
	return &created, nil
}

func (r *IdentityRepository) FindByEmail(_ context.Context, email string) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, domain.ErrIdentityNotFound
	}
	return &id, nil
}

func (r *IdentityRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for email, ident := range r.byEmail {
		if ident.ID == id {
			delete(r.byEmail, email)
			return nil
		}
	}
	return domain.ErrIdentityNotFound
}
