//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package performance

import (
	"os"
	"syscall"
)

func mapFile(file *os.File, size int, writable bool) ([]byte, error) {
	prot := syscall.PROT_READ
	if writable {
		prot |= syscall.PROT_WRITE
	}
	return syscall.Mmap(int(file.Fd()), 0, size, prot, syscall.MAP_SHARED)
}

// MAP_SHARED の書き込みは munmap 後もファイルに残る
func unmapFile(_ *os.File, buf []byte, _ bool) error {
	return syscall.Munmap(buf)
}
