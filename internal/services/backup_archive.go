package services

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

var errNoFiles = errors.New("no valid files found to backup")

// writeZip archives sources into path. Directories keep their own folder
// name as the archive root. Missing sources are skipped.
func writeZip(path string, sources []string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}

	added := 0
	defer func() {
		if err != nil || added == 0 {
			_ = os.Remove(path)
		}
	}()

	zw := zip.NewWriter(f)
	for _, src := range sources {
		n, addErr := addToZip(zw, src)
		added += n
		if addErr != nil {
			_ = zw.Close()
			_ = f.Close()
			return addErr
		}
	}

	if err := zw.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	if added == 0 {
		return errNoFiles
	}
	return nil
}

func addToZip(zw *zip.Writer, src string) (int, error) {
	info, err := os.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	if !info.IsDir() {
		return 1, zipFile(zw, src, filepath.Base(src), info)
	}

	parent := filepath.Dir(src)
	added := 0
	err = filepath.WalkDir(src, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(parent, p)
		if err != nil {
			return err
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		if err := zipFile(zw, p, filepath.ToSlash(rel), fi); err != nil {
			return err
		}
		added++
		return nil
	})
	return added, err
}

func zipFile(zw *zip.Writer, path, name string, info fs.FileInfo) error {
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = name
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}

	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	_, err = io.Copy(w, in)
	return err
}

// mirrorTopLevel copies src into dest. A directory source has each of its
// top-level entries merged into dest, a file source is copied next to them.
// A .git entry at the top level is never copied.
func mirrorTopLevel(src, dest string) (int, error) {
	info, err := os.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	if !info.IsDir() {
		return 1, copyFile(src, filepath.Join(dest, filepath.Base(src)), info)
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return 0, err
	}

	copied := 0
	for _, entry := range entries {
		if entry.Name() == ".git" {
			continue
		}
		from := filepath.Join(src, entry.Name())
		to := filepath.Join(dest, entry.Name())
		if entry.IsDir() {
			if err := copyTree(from, to); err != nil {
				return copied, err
			}
		} else if entry.Type().IsRegular() {
			fi, err := entry.Info()
			if err != nil {
				return copied, err
			}
			if err := copyFile(from, to, fi); err != nil {
				return copied, err
			}
		} else {
			continue
		}
		copied++
	}
	return copied, nil
}

// copyTree merges the directory src into dst.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		info, err := d.Info()
		if err != nil {
			return err
		}
		if d.IsDir() {
			return os.MkdirAll(target, info.Mode().Perm()|0700)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return copyFile(p, target, info)
	})
}

// copyFile copies a regular file, keeping its mode and modification time.
func copyFile(src, dst string, info fs.FileInfo) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
