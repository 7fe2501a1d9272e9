package provider

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

// ValidateAssets checks that every model file exists under dir and is at
// least minSize bytes. A truncated download usually shows up as a small
// file, and the native loader crashes on it instead of returning an error.
func ValidateAssets(dir string, files []string, minSize int64) error {
	for _, name := range files {
		path := filepath.Join(dir, name)

		info, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			return domain.ErrAssetMissing.WithError(fmt.Errorf("%s", path))
		}
		if err != nil {
			return domain.ErrAssetInvalid.WithError(fmt.Errorf("stat %s: %w", path, err))
		}
		if info.IsDir() {
			return domain.ErrAssetInvalid.WithError(fmt.Errorf("%s is a directory", path))
		}
		if info.Size() < minSize {
			return domain.ErrAssetInvalid.WithError(fmt.Errorf("%s is %d bytes, want at least %d", path, info.Size(), minSize))
		}
	}
	return nil
}
