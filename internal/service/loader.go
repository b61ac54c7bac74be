package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"forestnav/internal/domain"
	"forestnav/internal/pri"
	"forestnav/internal/schema"
)

// Loader turns PRI files into normalized datasets. It holds no per-file
// state and may be shared.
type Loader struct {
	resolver *schema.Resolver
	logger   *zap.Logger
}

// NewLoader creates a Loader. A nil resolver uses the built-in rules.
func NewLoader(resolver *schema.Resolver, logger *zap.Logger) *Loader {
	if resolver == nil {
		resolver = schema.NewResolver(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{resolver: resolver, logger: logger}
}

// Resolver returns the schema resolver used for new datasets.
func (l *Loader) Resolver() *schema.Resolver { return l.resolver }

// Parser returns a parser sharing the loader's logger.
func (l *Loader) Parser(opts ...pri.Option) *pri.Parser {
	return pri.NewParser(append([]pri.Option{pri.WithLogger(l.logger)}, opts...)...)
}

// LoadFile reads and loads the file at path.
func (l *Loader) LoadFile(path string, progress pri.ProgressFunc) (*domain.Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pri file: %w", err)
	}
	return l.Load(raw, path, progress)
}

// Load parses raw, resolves the semantic keys, and coerces the resolved
// numeric columns. The dataset is not stored.
func (l *Loader) Load(raw []byte, path string, progress pri.ProgressFunc) (*domain.Dataset, error) {
	res, err := l.Parser(pri.WithProgress(progress)).Parse(raw, filepath.Base(path))
	if err != nil {
		return nil, err
	}
	resolution := l.resolver.Normalize(res.Tree, res.Log)

	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return &domain.Dataset{
		SourcePath:  path,
		ContentHash: ContentHash(raw),
		Info:        res.Info,
		Tree:        res.Tree,
		Log:         res.Log,
		Resolution:  resolution,
		Warnings:    res.Warnings,
	}, nil
}

// ContentHash is the hex sha256 of a file's bytes.
func ContentHash(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
