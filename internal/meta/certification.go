// Package meta persists per-layer certification records and per-directory
// image metadata.
package meta

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"github.com/MeKo-Tech/masklab/internal/storage"
)

const (
	// CertificationVersion tags records for forward compatibility.
	CertificationVersion = 1
	// DefaultSource marks records produced by this tool's own edits.
	DefaultSource = "masklab"
)

// Certification is the per-(image, layer) sign-off record. MD5Sum is the
// content hash of the serialized mask file, recomputed from file bytes rather
// than the in-memory bitmap so externally modified files are detected too.
// The hash is change detection, not security.
type Certification struct {
	Version     int    `json:"version"`
	Certified   bool   `json:"certified"`
	Username    string `json:"username"`
	Source      string `json:"source"`
	Timestamp   string `json:"timestamp"`
	MD5Sum      string `json:"md5sum"`
	HardExample bool   `json:"hard_example"`
}

// Default returns the record used when none is stored or the stored one is
// unreadable.
func Default() Certification {
	return Certification{Version: CertificationVersion, Source: DefaultSource}
}

// CertPath returns the certification file path for an image and layer:
// <dir>/<image-stem>.mask_<layer>.json
func CertPath(dir, imageName, layer string) string {
	stem := strings.TrimSuffix(imageName, path.Ext(imageName))
	name := stem + ".mask_" + layer + ".json"
	if dir == "" {
		return name
	}
	return strings.TrimSuffix(dir, "/") + "/" + name
}

// LoadCertification reads a certification record. A missing or corrupt file
// falls back to the default record; corruption is logged, never fatal.
func LoadCertification(ctx context.Context, b storage.Backend, filePath string, logger *slog.Logger) Certification {
	if logger == nil {
		logger = slog.Default()
	}
	data, err := b.Read(ctx, filePath)
	if errors.Is(err, storage.ErrNotFound) {
		return Default()
	}
	if err != nil {
		logger.Warn("certification file read failure", "path", filePath, "error", err)
		return Default()
	}
	var c Certification
	if err := json.Unmarshal(data, &c); err != nil {
		logger.Warn("certification file load failure", "path", filePath, "error", err)
		return Default()
	}
	return c
}

// Write persists the record as indented JSON.
func (c Certification) Write(ctx context.Context, b storage.Backend, filePath string) error {
	data, err := json.MarshalIndent(c, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal certification: %w", err)
	}
	if err := b.Write(ctx, filePath, data); err != nil {
		return fmt.Errorf("write certification: %w", err)
	}
	return nil
}

// NeedsWrite reports whether a new record must be persisted: only when the
// certified flag, the hard-example flag, or the mask content changed. This
// avoids needless rewrites and timestamp churn.
func (c Certification) NeedsWrite(certified, hardExample, maskChanged bool) bool {
	return c.Certified != certified || c.HardExample != hardExample || maskChanged
}

// Next builds the successor record. A content change resets the source to the
// default (the mask is no longer whatever produced the stored record) and
// refreshes the hash; an unchanged mask carries both through. Certification
// itself records a point-in-time decision, so a later edit does not clear the
// certified flag.
func (c Certification) Next(certified, hardExample, maskChanged bool, md5sum string) Certification {
	source := c.Source
	sum := c.MD5Sum
	if maskChanged {
		source = DefaultSource
		sum = md5sum
	}
	return Certification{
		Version:     CertificationVersion,
		Certified:   certified,
		Username:    os.Getenv("USER"),
		Source:      source,
		Timestamp:   time.Now().UTC().Format("2006-01-02T15:04:05"),
		MD5Sum:      sum,
		HardExample: hardExample,
	}
}

// HashFile computes the MD5 of a stored file's bytes. A missing file hashes
// to the empty string (the empty-mask state).
func HashFile(ctx context.Context, b storage.Backend, filePath string) (string, error) {
	data, err := b.Read(ctx, filePath)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:]), nil
}
