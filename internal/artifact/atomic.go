package artifact

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// pendingFile is a fully written temp file waiting to replace path.
type pendingFile struct {
	path      string
	tmp       string
	backup    string
	committed bool
}

// batch stages several files and moves them into place together. Either
// every target is replaced or every target keeps its previous content.
type batch struct {
	files []pendingFile
}

// add streams content into a temp file beside path. On failure the temp
// file is removed and nothing is staged.
func (b *batch) add(path string, write func(w io.Writer) error) error {
	tmp, err := stageTemp(path, write)
	if err != nil {
		return err
	}
	b.files = append(b.files, pendingFile{path: path, tmp: tmp})
	return nil
}

// addBytes is add for an in-memory payload.
func (b *batch) addBytes(path string, data []byte) error {
	return b.add(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// discard removes every staged temp file.
func (b *batch) discard() {
	for _, f := range b.files {
		os.Remove(f.tmp)
	}
	b.files = nil
}

// commit renames every staged file over its target. A regular file already
// at a target is moved aside first so a later failure can put it back.
func (b *batch) commit() error {
	defer b.discard()

	for i := range b.files {
		f := &b.files[i]
		if info, err := os.Lstat(f.path); err == nil && info.Mode().IsRegular() {
			backup := f.tmp + ".bak"
			if err := os.Rename(f.path, backup); err != nil {
				b.rollback()
				return fmt.Errorf("move aside %s: %w", f.path, err)
			}
			f.backup = backup
		}
		if err := os.Rename(f.tmp, f.path); err != nil {
			b.rollback()
			return fmt.Errorf("rename temp file: %w", err)
		}
		f.committed = true
	}

	for _, f := range b.files {
		if f.backup != "" {
			os.Remove(f.backup)
		}
	}
	return nil
}

// rollback undoes the renames of a partially committed batch.
func (b *batch) rollback() {
	for i := len(b.files) - 1; i >= 0; i-- {
		f := b.files[i]
		if f.committed {
			os.Remove(f.path)
		}
		if f.backup != "" {
			os.Rename(f.backup, f.path)
		}
	}
}

// stageTemp writes content into a synced temp file in the directory of
// path and returns its name.
func stageTemp(path string, write func(w io.Writer) error) (name string, err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err = write(bw); err != nil {
		return "", err
	}
	if err = bw.Flush(); err != nil {
		return "", fmt.Errorf("flush temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return "", fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Chmod(tmpName, 0644); err != nil {
		return "", fmt.Errorf("chmod temp file: %w", err)
	}
	return tmpName, nil
}

// writeAtomic replaces path with the streamed content. On failure path is
// left as it was.
func writeAtomic(path string, write func(w io.Writer) error) error {
	var b batch
	if err := b.add(path, write); err != nil {
		return err
	}
	return b.commit()
}

// writeBytesAtomic is writeAtomic for an in-memory payload.
func writeBytesAtomic(path string, data []byte) error {
	return writeAtomic(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}
