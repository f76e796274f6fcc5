package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"pairchat/internal/custody"
	"pairchat/internal/domain"
)

const (
	keysDir   = "keys"
	keySuffix = ".key.json"
	fileMode  = 0o600
)

var (
	// ErrNotFound is returned when no record exists under the requested name.
	ErrNotFound = errors.New("key record not found")
	// ErrInvalidName is returned for names that are empty or would escape the
	// store directory.
	ErrInvalidName = errors.New("invalid key record name")
)

// KeyRecord is the on-disk form of one slot's key material.
type KeyRecord struct {
	Session          domain.SessionID   `json:"session,omitempty"`
	Slot             domain.Slot        `json:"slot,omitempty"`
	PublicKey        []byte             `json:"public_key"`
	WrappedKey       custody.WrappedKey `json:"wrapped_key"`
	SigningPublicKey []byte             `json:"signing_public_key,omitempty"`
	SigningKey       custody.WrappedKey `json:"signing_key,omitempty"`
	CreatedUTC       int64              `json:"created_utc"`
}

// NewKeyRecord builds a record from a wrapped keypair and an optional signer
// pair.
func NewKeyRecord(id domain.SessionID, slot domain.Slot, transport custody.KeyPair, signing *custody.KeyPair) KeyRecord {
	rec := KeyRecord{
		Session:    id,
		Slot:       slot,
		PublicKey:  append([]byte(nil), transport.PublicKey...),
		WrappedKey: append(custody.WrappedKey(nil), transport.Wrapped...),
		CreatedUTC: time.Now().UTC().Unix(),
	}
	if signing != nil {
		rec.SigningPublicKey = append([]byte(nil), signing.PublicKey...)
		rec.SigningKey = append(custody.WrappedKey(nil), signing.Wrapped...)
	}
	return rec
}

// Transport returns the record's transport keypair.
func (r KeyRecord) Transport() custody.KeyPair {
	return custody.KeyPair{PublicKey: r.PublicKey, Wrapped: r.WrappedKey}
}

// Validate checks the record carries both halves of the transport pair.
func (r KeyRecord) Validate() error {
	if len(r.WrappedKey) == 0 {
		return errors.New("key record: missing wrapped key")
	}
	if len(r.PublicKey) == 0 {
		return errors.New("key record: missing public key")
	}
	if len(r.SigningKey) != 0 && len(r.SigningPublicKey) == 0 {
		return errors.New("key record: signing key without public half")
	}
	return nil
}

// FileStore keeps key records under dir/keys.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore returns a FileStore rooted at dir.
func NewFileStore(dir string) *FileStore { return &FileStore{dir: dir} }

// Dir returns the root directory.
func (s *FileStore) Dir() string { return s.dir }

// Save writes rec under name, replacing any existing record.
func (s *FileStore) Save(name string, rec KeyRecord) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := rec.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(path, rec, fileMode)
}

// Load reads the record stored under name.
func (s *FileStore) Load(name string) (KeyRecord, error) {
	path, err := s.path(name)
	if err != nil {
		return KeyRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return ReadRecord(path)
}

// List returns the names of stored records in directory order.
func (s *FileStore) List() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(filepath.Join(s.dir, keysDir))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), keySuffix) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), keySuffix))
	}
	return names, nil
}

// Delete removes the record stored under name.
func (s *FileStore) Delete(name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(path); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	} else if err != nil {
		return err
	}
	return nil
}

func (s *FileStore) path(name string) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, keysDir, name+keySuffix), nil
}

// RecordName is the default store name for a session slot.
func RecordName(id domain.SessionID, slot domain.Slot) string {
	return id.String() + "-" + slot.String()
}

// WriteRecord writes rec to an explicit path.
func WriteRecord(path string, rec KeyRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	return writeJSON(path, rec, fileMode)
}

// ReadRecord reads a record from an explicit path.
func ReadRecord(path string) (KeyRecord, error) {
	var rec KeyRecord
	if err := readJSON(path, &rec); err != nil {
		return KeyRecord{}, err
	}
	if err := rec.Validate(); err != nil {
		return KeyRecord{}, fmt.Errorf("%s: %w", path, err)
	}
	return rec, nil
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
	}
	return nil
}
