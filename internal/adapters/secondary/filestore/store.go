package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"nlu-service/internal/core/domain"
	ports "nlu-service/internal/core/ports/output"
)

const (
	snapshotFile  = "snapshot.json"
	modelDir      = "model"
	metaFile      = "meta.json"
	classifierDir = "classifier"
	extractorDir  = "extractor"
	healthProbe   = ".health-probe"

	retiredPrefix = ".retired-"
)

// modelMeta is written next to the artifacts so a loaded pair knows which
// snapshot it was built from.
type modelMeta struct {
	SnapshotDigest string    `json:"snapshot_digest"`
	TrainedAt      time.Time `json:"trained_at"`
}

// Store keeps one directory per application under root:
//
//	<root>/<id>/snapshot.json
//	<root>/<id>/model/{meta.json,classifier/,extractor/}
//
// The snapshot is replaced by rename and the model directory is swapped as a
// whole, so readers never see a partial write. A swap interrupted between its
// two renames leaves only a retired directory behind; the next read restores it.
// Callers serialise ReadArtifacts and WriteArtifacts per tenant.
type Store struct {
	root  string
	codec ports.ArtifactCodec
}

func New(root string, codec ports.ArtifactCodec) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create storage root: %w", domain.ErrStorage, err)
	}
	return &Store{root: root, codec: codec}, nil
}

func (s *Store) Exists(ctx context.Context, tenantID string) (bool, error) {
	if err := domain.ValidateTenantID(tenantID); err != nil {
		return false, err
	}
	info, err := os.Stat(s.tenantDir(tenantID))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: stat application: %w", domain.ErrStorage, err)
	}
	return info.IsDir(), nil
}

func (s *Store) Create(ctx context.Context, tenantID string) error {
	if err := domain.ValidateTenantID(tenantID); err != nil {
		return err
	}
	if err := os.MkdirAll(s.tenantDir(tenantID), 0o755); err != nil {
		return fmt.Errorf("%w: create application: %w", domain.ErrStorage, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("%w: list applications: %w", domain.ErrStorage, err)
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() && domain.ValidateTenantID(e.Name()) == nil {
			ids = append(ids, e.Name())
		}
	}
	return ids, nil
}

func (s *Store) ReadSnapshot(ctx context.Context, tenantID string) (*domain.Snapshot, error) {
	data, err := os.ReadFile(filepath.Join(s.tenantDir(tenantID), snapshotFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read snapshot: %w", domain.ErrStorage, err)
	}

	var snapshot domain.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		// An unreadable record can only force a retrain.
		log.WithError(err).WithField("tenant_id", tenantID).Warn("ignoring corrupt snapshot")
		return nil, fmt.Errorf("%w: corrupt snapshot: %w", domain.ErrSnapshotNotFound, err)
	}
	return &snapshot, nil
}

func (s *Store) WriteSnapshot(ctx context.Context, tenantID string, snapshot *domain.Snapshot) error {
	data, err := json.MarshalIndent(snapshot.Canonical(), "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode snapshot: %w", domain.ErrStorage, err)
	}
	if err := writeFileAtomic(filepath.Join(s.tenantDir(tenantID), snapshotFile), data); err != nil {
		return fmt.Errorf("%w: write snapshot: %w", domain.ErrStorage, err)
	}
	return nil
}

func (s *Store) ClearSnapshot(ctx context.Context, tenantID string) error {
	err := os.Remove(filepath.Join(s.tenantDir(tenantID), snapshotFile))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: clear snapshot: %w", domain.ErrStorage, err)
	}
	return nil
}

func (s *Store) ReadArtifacts(ctx context.Context, tenantID string) (*domain.ModelPair, error) {
	dir := filepath.Join(s.tenantDir(tenantID), modelDir)
	if _, err := os.Stat(dir); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: stat model: %w", domain.ErrStorage, err)
		}
		restored, err := s.restoreRetired(tenantID)
		if err != nil {
			return nil, err
		}
		if !restored {
			return nil, domain.ErrModelNotTrained
		}
	}

	var meta modelMeta
	data, err := os.ReadFile(filepath.Join(dir, metaFile))
	if err != nil {
		return nil, fmt.Errorf("%w: read model metadata: %w", domain.ErrLoadFailed, err)
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("%w: decode model metadata: %w", domain.ErrLoadFailed, err)
	}

	pair, err := s.codec.Load(artifactPaths(dir))
	if err != nil {
		if !errors.Is(err, domain.ErrLoadFailed) {
			err = fmt.Errorf("%w: %w", domain.ErrLoadFailed, err)
		}
		return nil, err
	}
	pair.SnapshotDigest = meta.SnapshotDigest
	pair.TrainedAt = meta.TrainedAt
	return pair, nil
}

// WriteArtifacts saves pair into a staging directory and swaps it in place
// of the current model directory.
func (s *Store) WriteArtifacts(ctx context.Context, tenantID string, pair *domain.ModelPair) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}

	tenantDir := s.tenantDir(tenantID)
	staging := filepath.Join(tenantDir, ".model-"+uuid.NewString())
	if err := s.stage(staging, pair); err != nil {
		_ = os.RemoveAll(staging)
		return fmt.Errorf("%w: stage artifacts: %w", domain.ErrStorage, err)
	}

	current := filepath.Join(tenantDir, modelDir)
	retired := ""
	if _, err := os.Stat(current); err == nil {
		retired = filepath.Join(tenantDir, retiredPrefix+uuid.NewString())
		if err := os.Rename(current, retired); err != nil {
			_ = os.RemoveAll(staging)
			return fmt.Errorf("%w: retire artifacts: %w", domain.ErrStorage, err)
		}
	}

	if err := os.Rename(staging, current); err != nil {
		if retired != "" {
			_ = os.Rename(retired, current)
		}
		_ = os.RemoveAll(staging)
		return fmt.Errorf("%w: install artifacts: %w", domain.ErrStorage, err)
	}

	s.removeRetired(tenantID)
	return nil
}

// retiredDirs lists the tenant's retired model directories, newest first.
func (s *Store) retiredDirs(tenantID string) ([]string, error) {
	tenantDir := s.tenantDir(tenantID)
	entries, err := os.ReadDir(tenantDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	type retiredDir struct {
		path    string
		modTime time.Time
	}
	var found []retiredDir
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), retiredPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		found = append(found, retiredDir{path: filepath.Join(tenantDir, e.Name()), modTime: info.ModTime()})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].modTime.After(found[j].modTime) })

	dirs := make([]string, len(found))
	for i, d := range found {
		dirs[i] = d.path
	}
	return dirs, nil
}

// restoreRetired moves the newest retired model directory back into place.
// It reports false when there is nothing to restore.
func (s *Store) restoreRetired(tenantID string) (bool, error) {
	dirs, err := s.retiredDirs(tenantID)
	if err != nil {
		return false, fmt.Errorf("%w: scan retired artifacts: %w", domain.ErrStorage, err)
	}
	if len(dirs) == 0 {
		return false, nil
	}

	current := filepath.Join(s.tenantDir(tenantID), modelDir)
	if err := os.Rename(dirs[0], current); err != nil {
		return false, fmt.Errorf("%w: restore retired artifacts: %w", domain.ErrStorage, err)
	}
	log.WithFields(log.Fields{
		"tenant_id": tenantID,
		"retired":   filepath.Base(dirs[0]),
	}).Warn("restored model from interrupted install")

	s.removeRetired(tenantID)
	return true, nil
}

func (s *Store) removeRetired(tenantID string) {
	dirs, err := s.retiredDirs(tenantID)
	if err != nil {
		log.WithError(err).WithField("tenant_id", tenantID).Warn("scan retired artifacts failed")
		return
	}
	for _, dir := range dirs {
		if err := os.RemoveAll(dir); err != nil {
			log.WithError(err).WithField("tenant_id", tenantID).Warn("remove retired artifacts failed")
		}
	}
}

func (s *Store) stage(dir string, pair *domain.ModelPair) error {
	paths := artifactPaths(dir)
	for _, p := range []string{paths.Classifier, paths.Extractor} {
		if err := os.MkdirAll(p, 0o755); err != nil {
			return err
		}
	}
	if err := s.codec.Save(pair, paths); err != nil {
		return err
	}
	meta, err := json.Marshal(modelMeta{SnapshotDigest: pair.SnapshotDigest, TrainedAt: pair.TrainedAt})
	if err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(dir, metaFile), meta)
}

// Healthy checks that the storage root is writable.
func (s *Store) Healthy(ctx context.Context) error {
	probe := filepath.Join(s.root, healthProbe)
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return fmt.Errorf("%w: storage root not writable: %w", domain.ErrStorage, err)
	}
	return os.Remove(probe)
}

func (s *Store) tenantDir(tenantID string) string {
	return filepath.Join(s.root, tenantID)
}

func artifactPaths(dir string) ports.ArtifactPaths {
	return ports.ArtifactPaths{
		Classifier: filepath.Join(dir, classifierDir),
		Extractor:  filepath.Join(dir, extractorDir),
	}
}

// writeFileAtomic writes data to a temp file in the target directory, syncs
// it and renames it over path.
func writeFileAtomic(path string, data []byte) error {
	dir, name := filepath.Split(path)
	tmp, err := os.CreateTemp(dir, "."+strings.TrimSuffix(name, filepath.Ext(name))+"-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	err = os.Rename(tmpName, path)
	return err
}
