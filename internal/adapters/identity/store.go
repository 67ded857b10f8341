// Package identity persists the server-issued user identifier in the
// per-server configuration directory, one identifier per line-oriented
// "user" file, so the same identity is reused across runs.
package identity

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bewley/remlab-cli/internal/domain"
	"github.com/bewley/remlab-cli/internal/ports"
)

const (
	userFileName = "user"
	storeDirMode = 0o700
	userFileMode = 0o600
	tempPattern  = ".user-*.tmp"
)

type Store struct {
	dir string
	mu  sync.RWMutex
}

var _ ports.IdentityStore = (*Store)(nil)

// NewStore returns a store rooted at dir, the configuration directory for
// one booking server.
func NewStore(dir string) *Store {
	return &Store{dir: filepath.Clean(dir)}
}

// Current reads the stored identifier. Only the first line counts; a
// missing or empty file yields domain.ErrNoUser.
func (s *Store) Current(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := os.Open(filepath.Join(s.dir, userFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", domain.ErrNoUser
		}
		return "", fmt.Errorf("read user file: %w", err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("read user file: %w", err)
		}
		return "", domain.ErrNoUser
	}

	user := strings.TrimSpace(scanner.Text())
	if user == "" {
		return "", domain.ErrNoUser
	}

	return user, nil
}

// Set overwrites the stored identifier unconditionally. This is how an
// identity created through another channel (e.g. the web booking page) is
// adopted, so a booking made there can be reused here.
func (s *Store) Set(ctx context.Context, user string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(user) == "" {
		return errors.New("user identifier is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, storeDirMode); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	tempFile, err := os.CreateTemp(s.dir, tempPattern)
	if err != nil {
		return fmt.Errorf("create temp user file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.WriteString(user + "\n"); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp user file: %w", err)
	}

	if err := tempFile.Chmod(userFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp user file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp user file: %w", err)
	}

	if err := os.Rename(tempName, filepath.Join(s.dir, userFileName)); err != nil {
		return fmt.Errorf("replace user file: %w", err)
	}

	cleanup = false
	return nil
}
