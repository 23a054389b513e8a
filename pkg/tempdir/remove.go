package tempdir

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"zipdir/pkg/fserr"
	"zipdir/pkg/logging"
)

// RemoveTree deletes path and, if it is a directory, everything under it,
// children before parents. It returns at the first entry that cannot be
// deleted: siblings after it are left in place and nothing is retried.
func RemoveTree(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return fserr.New(fserr.ErrRecursiveDelete, fserr.OpStat, path, err)
	}

	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return fserr.New(fserr.ErrRecursiveDelete, fserr.OpReadDir, path, err)
		}
		for _, e := range entries {
			if err := RemoveTree(filepath.Join(path, e.Name())); err != nil {
				return err
			}
		}
	}

	if err := removeFile(path); err != nil {
		return fserr.New(fserr.ErrRecursiveDelete, fserr.OpRemove, path, err)
	}
	return nil
}

// DeleteTree is RemoveTree for callers that only need a yes/no answer: the
// failure is logged and reported as false. Entries deleted before the failure
// stay deleted.
func DeleteTree(path string, logger *zap.Logger) bool {
	if err := RemoveTree(path); err != nil {
		logging.OrNop(logger).Error("unable to delete", logging.Path(path), zap.Error(err))
		return false
	}
	return true
}
