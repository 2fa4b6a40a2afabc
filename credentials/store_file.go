package credentials

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const credentialsFileName = "credentials.json"

// FileStore persists credentials as plaintext JSON in the data folder so a
// session survives process restarts.
type FileStore struct {
	persistedStore
	path string
}

var _ Store = (*FileStore)(nil)

// NewFileStore stores credentials in <folder>/credentials.json, creating the
// folder when needed.
func NewFileStore(folder string) (*FileStore, error) {
	if err := os.MkdirAll(folder, 0o700); err != nil {
		return nil, errors.Wrap(err, "[NewFileStore] create data folder")
	}
	fs := &FileStore{path: filepath.Join(folder, credentialsFileName)}
	fs.persistedStore.backend = fileBackend{path: fs.path}
	return fs, nil
}

// Path returns the file backing the store.
func (fs *FileStore) Path() string {
	return fs.path
}

type fileBackend struct {
	path string
}

func (b fileBackend) load(_ context.Context) (document, error) {
	var doc document
	data, err := os.ReadFile(b.path)
	if os.IsNotExist(err) {
		return doc, nil
	}
	if err != nil {
		return doc, errors.Wrap(err, "[FileStore.load] read")
	}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return document{}, errors.Wrap(err, "[FileStore.load] decode")
	}
	return doc, nil
}

func (b fileBackend) save(_ context.Context, doc document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrap(err, "[FileStore.save] encode")
	}
	tmp, err := os.CreateTemp(filepath.Dir(b.path), credentialsFileName+".*")
	if err != nil {
		return errors.Wrap(err, "[FileStore.save] create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "[FileStore.save] write")
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return errors.Wrap(err, "[FileStore.save] chmod")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "[FileStore.save] close")
	}
	return errors.Wrap(os.Rename(tmp.Name(), b.path), "[FileStore.save] rename")
}

func (b fileBackend) remove(_ context.Context) error {
	if err := os.Remove(b.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "[FileStore.remove]")
	}
	return nil
}
