//go:build linux || darwin || freebsd

package transfer

import (
	"golang.org/x/sys/unix"
)

// availableSpace reports the bytes available to an unprivileged writer on
// the volume holding dir.
func availableSpace(dir string) (uint64, bool) {
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return 0, false
	}
	return uint64(st.Bavail) * uint64(st.Bsize), true
}
