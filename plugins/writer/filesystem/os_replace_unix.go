//go:build !windows

package filesystem

import (
	"os"

	"golang.org/x/sys/unix"
)

// osReplace: POSIX rename 在同一文件系统内原子替换目标。
func osReplace(tmpPath, dest string) error {
	return os.Rename(tmpPath, dest)
}

// syncDir: 尽力 fsync 父目录，使 rename 元数据落盘。
func syncDir(dir string) error {
	fd, err := unix.Open(dir, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
	if err != nil {
		return err
	}
	defer unix.Close(fd)
	return unix.Fsync(fd)
}
