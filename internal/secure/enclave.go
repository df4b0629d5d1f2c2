package secure

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/awnumar/memguard"

	"github.com/systmms/dscreds/pkg/credentials"
)

// SecureBuffer provides memory-safe storage for sensitive data.
// It wraps memguard.Enclave to encrypt secrets at rest in memory
// and protect them from swapping via mlock.
type SecureBuffer struct {
	enclave   *memguard.Enclave
	mu        sync.RWMutex
	destroyed bool
}

// NewSecureBuffer creates a protected buffer from secret bytes. memguard
// wipes data once it has been sealed; callers needing the value afterwards
// must keep their own copy.
func NewSecureBuffer(data []byte) (*SecureBuffer, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot seal an empty buffer")
	}
	return &SecureBuffer{
		enclave: memguard.NewEnclave(data),
	}, nil
}

// Open decrypts and returns the protected data in a locked buffer.
// The caller MUST call Destroy() on the returned LockedBuffer when done.
func (s *SecureBuffer) Open() (*memguard.LockedBuffer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.destroyed {
		return nil, fmt.Errorf("secure buffer has been destroyed")
	}
	return s.enclave.Open()
}

// Destroy marks the buffer unusable. It is idempotent.
func (s *SecureBuffer) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.enclave = nil
	s.destroyed = true
}

// SealedSet keeps a CredentialSet encrypted in memory between uses.
// Open returns a fresh plaintext copy each time.
type SealedSet struct {
	buf *SecureBuffer
}

// Seal encrypts set into a SealedSet.
func Seal(set credentials.CredentialSet) (*SealedSet, error) {
	data, err := json.Marshal(set)
	if err != nil {
		return nil, fmt.Errorf("failed to encode credentials: %w", err)
	}

	buf, err := NewSecureBuffer(data)
	if err != nil {
		return nil, err
	}
	return &SealedSet{buf: buf}, nil
}

// Open decrypts the set. The plaintext buffer is wiped before returning.
func (s *SealedSet) Open() (credentials.CredentialSet, error) {
	locked, err := s.buf.Open()
	if err != nil {
		return nil, err
	}
	defer locked.Destroy()

	var set credentials.CredentialSet
	if err := json.Unmarshal(locked.Bytes(), &set); err != nil {
		return nil, fmt.Errorf("failed to decode sealed credentials: %w", err)
	}
	return set, nil
}

// Destroy releases the enclave. Further Open calls fail.
func (s *SealedSet) Destroy() {
	s.buf.Destroy()
}
