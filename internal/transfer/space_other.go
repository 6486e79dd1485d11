//go:build !(linux || darwin || freebsd)

package transfer

func availableSpace(dir string) (uint64, bool) {
	return 0, false
}
