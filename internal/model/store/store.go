// Package store provides persistence for trained models.
//
// Artifacts are serialized with gob and compressed with gzip. Each save
// bumps a per-appid version; Load always picks the latest, which gives
// retraining its overwrite semantics without racing a concurrent reader
// mid-write. Metadata (run id, counts, checksum) travels inside the
// artifact and the checksum is verified on load.
package store

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/cheevo/internal/model"
	"github.com/okian/cheevo/pkg/metrics"
)

// File layout constants.
const (
	artifactSuffix = ".gob.gz"
	dirPermission  = 0o750
	filePermission = 0o600
)

// Metadata describes a persisted model artifact.
type Metadata struct {
	// AppID is the game the model was trained for.
	AppID string

	// Version increases by one on every retrain.
	Version int

	// RunID uniquely identifies the training run that produced the artifact.
	RunID string

	// TrainedAt is when training finished.
	TrainedAt time.Time

	// PlayerCount is the number of players contributing sequences.
	PlayerCount int

	// SequenceCount is the number of non-empty training sequences.
	SequenceCount int

	// ItemCount is the vocabulary size.
	ItemCount int

	// Checksum is the SHA-256 of the serialized model payload.
	Checksum string
}

// envelope is what actually gets gob-encoded into the artifact.
type envelope struct {
	Metadata Metadata
	Payload  []byte // gob-encoded model.Model
}

// Store manages model artifacts under a base directory.
type Store struct {
	baseDir  string
	versions map[string]int // appid -> latest version
}

// New creates a Store at the given directory, scanning any existing
// artifacts so version numbering continues across process restarts.
func New(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, dirPermission); err != nil {
		return nil, fmt.Errorf("create model directory: %w", err)
	}

	s := &Store{
		baseDir:  baseDir,
		versions: make(map[string]int),
	}

	if err := s.scan(); err != nil {
		return nil, fmt.Errorf("scan existing models: %w", err)
	}
	return s, nil
}

// scan walks the base directory for existing artifacts.
func (s *Store) scan() error {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		appID, version, ok := parseArtifactName(entry.Name())
		if !ok {
			continue
		}
		if current, seen := s.versions[appID]; !seen || version > current {
			s.versions[appID] = version
		}
	}
	return nil
}

// parseArtifactName extracts appid and version from "<appid>_v<version>.gob.gz".
func parseArtifactName(name string) (appID string, version int, ok bool) {
	if !strings.HasSuffix(name, artifactSuffix) {
		return "", 0, false
	}
	stem := strings.TrimSuffix(name, artifactSuffix)

	sep := strings.LastIndex(stem, "_v")
	if sep <= 0 {
		return "", 0, false
	}

	v, err := strconv.Atoi(stem[sep+2:])
	if err != nil || v < 1 {
		return "", 0, false
	}
	return stem[:sep], v, true
}

// artifactPath returns the on-disk path for an appid+version.
func (s *Store) artifactPath(appID string, version int) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("%s_v%d%s", appID, version, artifactSuffix))
}

// Save persists a trained model for the given appid, bumping the version.
// The returned Metadata has Version, RunID, Checksum and TrainedAt filled in.
func (s *Store) Save(ctx context.Context, appID string, m *model.Model, meta Metadata) (Metadata, error) {
	if err := ctx.Err(); err != nil {
		return Metadata{}, err
	}

	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(m); err != nil {
		return Metadata{}, fmt.Errorf("encode model: %w", err)
	}

	sum := sha256.Sum256(payload.Bytes())

	meta.AppID = appID
	meta.Version = s.versions[appID] + 1
	meta.RunID = uuid.NewString()
	meta.TrainedAt = time.Now().UTC()
	meta.Checksum = hex.EncodeToString(sum[:])
	if m.Vocab != nil {
		meta.ItemCount = m.Vocab.Size()
	}

	var artifact bytes.Buffer
	gz := gzip.NewWriter(&artifact)
	if err := gob.NewEncoder(gz).Encode(envelope{Metadata: meta, Payload: payload.Bytes()}); err != nil {
		return Metadata{}, fmt.Errorf("encode artifact: %w", err)
	}
	if err := gz.Close(); err != nil {
		return Metadata{}, fmt.Errorf("compress artifact: %w", err)
	}

	// Write to a temp file and rename so a crash never leaves a truncated
	// artifact behind as the latest version.
	path := s.artifactPath(appID, meta.Version)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, artifact.Bytes(), filePermission); err != nil {
		return Metadata{}, fmt.Errorf("write artifact: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return Metadata{}, fmt.Errorf("publish artifact: %w", err)
	}

	// Older versions are superseded; keep the directory tidy.
	if prev := s.versions[appID]; prev > 0 {
		_ = os.Remove(s.artifactPath(appID, prev))
	}
	s.versions[appID] = meta.Version

	metrics.RecordModelSaved()
	return meta, nil
}

// Load reads back the latest model for the given appid. A missing artifact
// yields ErrModelNotFound: the caller must train first.
func (s *Store) Load(ctx context.Context, appID string) (*model.Model, Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, Metadata{}, err
	}

	version, ok := s.versions[appID]
	if !ok {
		return nil, Metadata{}, fmt.Errorf("appid %s: %w", appID, ErrModelNotFound)
	}

	f, err := os.Open(s.artifactPath(appID, version))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, Metadata{}, fmt.Errorf("appid %s: %w", appID, ErrModelNotFound)
		}
		return nil, Metadata{}, fmt.Errorf("open artifact: %w", err)
	}
	defer func() { _ = f.Close() }()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, Metadata{}, fmt.Errorf("decompress artifact: %w", err)
	}
	defer func() { _ = gz.Close() }()

	var env envelope
	if err := gob.NewDecoder(gz).Decode(&env); err != nil {
		return nil, Metadata{}, fmt.Errorf("decode artifact: %w", err)
	}

	sum := sha256.Sum256(env.Payload)
	if hex.EncodeToString(sum[:]) != env.Metadata.Checksum {
		return nil, Metadata{}, fmt.Errorf("appid %s version %d: %w", appID, version, ErrChecksumMismatch)
	}

	var m model.Model
	if err := gob.NewDecoder(bytes.NewReader(env.Payload)).Decode(&m); err != nil {
		return nil, Metadata{}, fmt.Errorf("decode model: %w", err)
	}

	metrics.RecordModelLoaded()
	return &m, env.Metadata, nil
}

// LatestVersion reports the newest stored version for an appid, zero when
// none exists.
func (s *Store) LatestVersion(appID string) int {
	return s.versions[appID]
}
