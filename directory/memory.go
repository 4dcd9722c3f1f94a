package directory

import (
	"context"
	"fmt"
	"sync"
	"time"

	authcore "github.com/MrEthical07/authcore"
)

// Memory is an in-process UserDirectory for tests, examples, and local
// development. Safe for concurrent use.
type Memory struct {
	mu     sync.RWMutex
	byUUID map[string]authcore.UserRecord
	now    func() time.Time
}

// NewMemory returns an empty directory. now is optional and defaults to
// time.Now.
func NewMemory(now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{byUUID: make(map[string]authcore.UserRecord), now: now}
}

func (m *Memory) FindByUUID(_ context.Context, uid string) (*authcore.UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if rec, ok := m.byUUID[uid]; ok {
		return &rec, nil
	}
	return nil, nil
}

func (m *Memory) FindByUsername(_ context.Context, username string) (*authcore.UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, rec := range m.byUUID {
		if rec.Username == username {
			rec := rec
			return &rec, nil
		}
	}
	return nil, nil
}

func (m *Memory) FindByEmail(_ context.Context, email string) (*authcore.UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, rec := range m.byUUID {
		if rec.Email == email {
			rec := rec
			return &rec, nil
		}
	}
	return nil, nil
}

func (m *Memory) Create(_ context.Context, rec authcore.UserRecord) (*authcore.UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byUUID[rec.UUID]; ok {
		return nil, authcore.ErrAccountExists
	}
	for _, existing := range m.byUUID {
		if existing.Username == rec.Username || existing.Email == rec.Email {
			return nil, authcore.ErrAccountExists
		}
	}

	rec.Updated = m.now()
	m.byUUID[rec.UUID] = rec
	return &rec, nil
}

func (m *Memory) Update(_ context.Context, uid string, upd authcore.UserUpdate) (*authcore.UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.byUUID[uid]
	if !ok {
		return nil, fmt.Errorf("directory: update: no such user %s", uid)
	}

	if upd.Email != nil {
		for other, existing := range m.byUUID {
			if other != uid && existing.Email == *upd.Email {
				return nil, authcore.ErrAccountExists
			}
		}
		rec.Email = *upd.Email
	}
	if upd.PasswordHash != nil {
		rec.PasswordHash = *upd.PasswordHash
	}
	if upd.Confirmed != nil {
		rec.Confirmed = *upd.Confirmed
	}
	if upd.Active != nil {
		rec.Active = *upd.Active
	}
	if upd.Admin != nil {
		rec.Admin = *upd.Admin
	}
	rec.Updated = m.now()
	m.byUUID[uid] = rec
	return &rec, nil
}
