//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package performance

import (
	"io"
	"os"
)

// mmap がないプラットフォームではファイル全体をメモリに読み込む
func mapFile(file *os.File, size int, _ bool) ([]byte, error) {
	buf := make([]byte, size)
	if _, err := io.ReadFull(io.NewSectionReader(file, 0, int64(size)), buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func unmapFile(file *os.File, buf []byte, writable bool) error {
	if !writable {
		return nil
	}
	_, err := file.WriteAt(buf, 0)
	return err
}
