package cookies

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/afero"
)

// fs backs file access in this package. SQLite itself always reads the OS
// filesystem, so this must stay an OS-backed Fs outside tests of the pure
// file helpers.
var fs afero.Fs = afero.NewOsFs()

// SafeCopy copies a SQLite cookie database (and its -wal and -shm
// companions, if present) into a fresh temporary directory so it can be
// read while the owning browser holds it open. The caller must call
// cleanup.
func SafeCopy(srcPath string) (tempDir string, cleanup func(), err error) {
	info, err := fs.Stat(srcPath)
	if err != nil {
		return "", nil, fmt.Errorf("cookie file not found: %s", srcPath)
	}
	if info.IsDir() {
		return "", nil, fmt.Errorf("%s is a directory, expected a cookie file", srcPath)
	}
	if info.Size() == 0 {
		return "", nil, fmt.Errorf("cookie file %s is empty", srcPath)
	}

	tempDir, err = afero.TempDir(fs, "", "cookiestore-import-")
	if err != nil {
		return "", nil, fmt.Errorf("create temp directory: %w", err)
	}
	cleanup = func() { fs.RemoveAll(tempDir) }

	base := filepath.Base(srcPath)
	if err := copyFile(srcPath, filepath.Join(tempDir, base)); err != nil {
		cleanup()
		return "", nil, err
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		if ok, _ := afero.Exists(fs, srcPath+suffix); ok {
			_ = copyFile(srcPath+suffix, filepath.Join(tempDir, base+suffix))
		}
	}
	return tempDir, cleanup, nil
}

func copyFile(src, dst string) error {
	in, err := fs.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := fs.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return out.Close()
}
