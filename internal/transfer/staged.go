package transfer

import (
	"fmt"
	"os"
	"path/filepath"
)

const stagedFileMode = 0o644

// stagedFile is a temp file in the destination's directory that only becomes
// visible under the final name on Commit. Until then the destination is never
// touched, so a failed or abandoned receive leaves it as it was.
type stagedFile struct {
	final string
	f     *os.File
	temp  string
}

func stage(final string) (*stagedFile, error) {
	dir := filepath.Dir(final)
	f, err := os.CreateTemp(dir, "."+filepath.Base(final)+".*.part")
	if err != nil {
		return nil, localErr("create temp file", err)
	}
	return &stagedFile{final: final, f: f, temp: f.Name()}, nil
}

func (s *stagedFile) Write(p []byte) (int, error) {
	return s.f.Write(p)
}

// Commit flushes the temp file and renames it over the destination.
func (s *stagedFile) Commit() error {
	if s.f == nil {
		return localErr("commit", fmt.Errorf("staged file %s already closed", s.temp))
	}
	if err := s.f.Chmod(stagedFileMode); err != nil {
		return localErr("chmod temp file", err)
	}
	if err := s.f.Sync(); err != nil {
		return localErr("sync temp file", err)
	}
	err := s.f.Close()
	s.f = nil
	if err != nil {
		return localErr("close temp file", err)
	}
	if err := os.Rename(s.temp, s.final); err != nil {
		return localErr("rename temp file", err)
	}
	s.temp = ""
	return nil
}

// Discard closes and removes the temp file. It is a no-op after Commit.
func (s *stagedFile) Discard() {
	if s.f != nil {
		_ = s.f.Close()
		s.f = nil
	}
	if s.temp != "" {
		_ = os.Remove(s.temp)
		s.temp = ""
	}
}

// checkSpace fails when the volume holding dir reports less free space than
// need. Platforms that cannot report free space always pass.
func checkSpace(dir string, need uint64) error {
	avail, ok := availableSpace(dir)
	if !ok || need <= avail {
		return nil
	}
	return localErr("check free space", fmt.Errorf("%w: need %d bytes, %d available in %s", ErrInsufficientSpace, need, avail, dir))
}
