package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
)

const backupExt = ".json.zst"

// BackupInfo describes one compressed snapshot of the document.
type BackupInfo struct {
	Name    string    `json:"name"`
	Reason  string    `json:"reason"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
}

// writeBackup compresses raw into the backup directory and returns the
// file name. Names sort chronologically.
func (s *Store) writeBackup(raw []byte, reason string) (string, error) {
	if err := os.MkdirAll(s.backupDir, 0755); err != nil {
		return "", fmt.Errorf("creating backup directory: %w", err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return "", fmt.Errorf("creating zstd encoder: %w", err)
	}
	defer enc.Close()
	compressed := enc.EncodeAll(raw, make([]byte, 0, len(raw)/2))

	stamp := s.now().UTC().Format("20060102T150405.000000000Z")
	name := fmt.Sprintf("annotations-%s-%s%s", stamp, sanitizeReason(reason), backupExt)
	path := filepath.Join(s.backupDir, name)
	if err := os.WriteFile(path, compressed, 0644); err != nil {
		return "", fmt.Errorf("writing backup %s: %w", name, err)
	}
	s.logger.Info("Backed up annotation document", "backup", name, "reason", reason, "bytes", len(raw))
	return name, nil
}

func sanitizeReason(reason string) string {
	reason = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		}
		return '_'
	}, reason)
	if reason == "" {
		return "manual"
	}
	return reason
}

// readBackup returns the decompressed content of a backup.
func (s *Store) readBackup(name string) ([]byte, error) {
	if name != filepath.Base(name) || !strings.HasSuffix(name, backupExt) {
		return nil, fmt.Errorf("invalid backup name %q", name)
	}
	compressed, err := os.ReadFile(filepath.Join(s.backupDir, name))
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompressing backup %s: %w", name, err)
	}
	return raw, nil
}

// Backups lists the backups, newest first.
func (s *Store) Backups() ([]BackupInfo, error) {
	entries, err := os.ReadDir(s.backupDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading backup directory: %w", err)
	}

	var out []BackupInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), backupExt) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, BackupInfo{
			Name:    e.Name(),
			Reason:  backupReason(e.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name > out[j].Name })
	return out, nil
}

// backupReason extracts the reason from annotations-<stamp>-<reason>.json.zst.
func backupReason(name string) string {
	base := strings.TrimSuffix(strings.TrimPrefix(name, "annotations-"), backupExt)
	if i := strings.Index(base, "-"); i >= 0 {
		return base[i+1:]
	}
	return ""
}
