package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	annerrors "annot/internal/errors"
)

const guardDirName = "locks"

// Guard takes a cross-process lock named by key and holds it until the
// returned func is called. It serialises multi-step operations that span
// several document updates, such as an oracle round trip followed by a
// commit. The document lock is separate, so Update may run while a guard is
// held.
func (s *Store) Guard(ctx context.Context, key string) (func(), error) {
	if _, err := os.Stat(s.dir); err != nil {
		if os.IsNotExist(err) {
			return nil, annerrors.New(annerrors.StorageMissing,
				fmt.Sprintf("storage directory %s does not exist", s.dir), err)
		}
		return nil, err
	}
	dir := filepath.Join(s.dir, guardDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}
	sum := sha256.Sum256([]byte(key))
	fl, err := acquireFileLock(ctx, filepath.Join(dir, hex.EncodeToString(sum[:8])+".lock"))
	if err != nil {
		if ctx.Err() != nil {
			return nil, annerrors.New(annerrors.Cancelled, "gave up waiting for another annot process", err)
		}
		return nil, err
	}
	return fl.release, nil
}
