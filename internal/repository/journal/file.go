package journal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/sos-button/internal/config"
	domain "github.com/oshokin/sos-button/internal/domain/sos"
	pb "github.com/oshokin/sos-button/internal/pb/v1"
)

// FileRepository persists the journal to a JSON file on disk.
// JSON is produced and consumed via protobuf JSON (protojson) so the file
// has the same shape as the ListAlerts response.
type FileRepository struct {
	// path is the filesystem location of the JSON journal.
	path string
	// mu protects concurrent access to the journal file.
	mu sync.Mutex
}

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	if path == "" {
		path = config.DefaultJournalFilename
	}

	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Append adds alert to the end of the journal unless its ID is already present.
func (r *FileRepository) Append(_ context.Context, alert *domain.Alert) (bool, error) {
	if alert == nil {
		return false, errAlertRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	alerts, err := r.load()
	if err != nil {
		return false, err
	}

	if slices.ContainsFunc(alerts, func(a *domain.Alert) bool { return a.ID == alert.ID }) {
		return false, nil
	}

	if err = r.save(append(alerts, alert.Clone())); err != nil {
		return false, err
	}

	return true, nil
}

// Get returns the journaled alert with the given ID.
func (r *FileRepository) Get(_ context.Context, id string) (*domain.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	alerts, err := r.load()
	if err != nil {
		return nil, err
	}

	for _, a := range alerts {
		if a.ID == id {
			return a, nil
		}
	}

	return nil, ErrNotFound
}

// List returns up to limit alerts, newest first. A non-positive limit returns all.
func (r *FileRepository) List(_ context.Context, limit int) ([]*domain.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	alerts, err := r.load()
	if err != nil {
		return nil, err
	}

	slices.Reverse(alerts)

	return alerts[:clampLimit(limit, len(alerts))], nil
}

// Close implements Repository.
func (r *FileRepository) Close() error {
	return nil
}

// load reads the journal in append order. A missing file is an empty journal.
func (r *FileRepository) load() ([]*domain.Alert, error) {
	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("read journal file: %w", err)
	}

	var document structpb.Struct
	if err = protojson.Unmarshal(contents, &document); err != nil {
		return nil, fmt.Errorf("decode journal file: %w", err)
	}

	alerts, err := pb.AlertListFromStruct(&document)
	if err != nil {
		return nil, fmt.Errorf("decode journal file: %w", err)
	}

	return alerts, nil
}

// save writes the journal to disk.
func (r *FileRepository) save(alerts []*domain.Alert) error {
	document, err := pb.AlertListToStruct(alerts)
	if err != nil {
		return err
	}

	marshalOptions := protojson.MarshalOptions{
		Multiline: true,
	}

	data, err := marshalOptions.Marshal(document)
	if err != nil {
		return fmt.Errorf("encode journal: %w", err)
	}

	if err = os.WriteFile(r.path, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write journal file: %w", err)
	}

	return nil
}
