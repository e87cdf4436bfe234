// Package archive holds the ManifestArchive drivers that receive the
// manifests of purged deletion sets.
package archive

import (
	"context"
	"fmt"
	"path"
	"strings"

	"dms-object-service/internal/config"
	"dms-object-service/internal/core/ports/output"
)

const (
	DriverNone       = "none"
	DriverFilesystem = "fs"
	DriverMemory     = "memory"
	DriverS3         = "s3"
)

// Open selects a driver from config. It returns a nil archive for DriverNone;
// purges then skip the manifest.
func Open(ctx context.Context, cfg config.ArchiveConfig) (ports.ManifestArchive, error) {
	switch cfg.Driver {
	case "", DriverNone:
		return nil, nil
	case DriverFilesystem:
		return NewFilesystem(cfg.Root)
	case DriverMemory:
		return NewMemory(), nil
	case DriverS3:
		return NewS3(ctx, S3Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			PathStyle:       cfg.S3.PathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown archive driver %q", cfg.Driver)
	}
}

func sanitizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("empty archive key")
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid absolute archive key %q", key)
	}
	clean := path.Clean(key)
	if clean == ".." || strings.HasPrefix(clean, "../") || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid archive key %q", key)
	}
	return clean, nil
}
