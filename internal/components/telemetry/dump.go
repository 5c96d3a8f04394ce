package telemetry

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// FilesystemOutput writes diagnostic files into a single directory.
type FilesystemOutput struct {
	directory string
}

func NewFilesystemOutput(dir string) (FilesystemOutput, error) {
	err := os.MkdirAll(dir, 0777)
	if err != nil {
		return FilesystemOutput{}, err
	}
	return FilesystemOutput{directory: dir}, nil
}

func (o FilesystemOutput) Directory() string {
	return o.directory
}

// Write implements HttpOutput, failures are only logged.
func (o FilesystemOutput) Write(id string, contents string) {
	err := os.WriteFile(filepath.Join(o.directory, id), []byte(contents), 0600)
	if err != nil {
		slog.Warn("failed to write message info file", "id", id, "err", err)
	}
}

// Dump writes contents to a new uniquely named file with the given extension and returns its path.
func (o FilesystemOutput) Dump(ext string, contents []byte) (string, error) {
	path := filepath.Join(o.directory, fmt.Sprintf("%s.%s", uuid.NewString(), ext))
	err := os.WriteFile(path, contents, 0600)
	if err != nil {
		return "", err
	}
	return path, nil
}
