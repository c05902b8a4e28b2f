package extractor

import (
	"crypto/md5"
	"fmt"
	"os"
	"syscall"
	"time"
)

// GetPosixInfo identifies a file by path, inode, size and modification
// time, so that the index can tell when a document has been rewritten.
func GetPosixInfo(filePath string, fStat os.FileInfo) *PosixInfo {
	stat, ok := fStat.Sys().(*syscall.Stat_t)
	if !ok {
		return &PosixInfo{FilePath: filePath, Size: fStat.Size(), MTime: fStat.ModTime().UTC()}
	}
	fileSignature := fmt.Sprintf("%s%d%d%d%d", filePath, stat.Ino, stat.Size, stat.Mtim.Sec, stat.Mtim.Nsec)
	return &PosixInfo{
		FilePath: filePath,
		INode:    stat.Ino,
		Size:     stat.Size,
		MTime:    time.Unix(int64(stat.Mtim.Sec), int64(stat.Mtim.Nsec)).UTC(),
		CTime:    time.Unix(int64(stat.Ctim.Sec), int64(stat.Ctim.Nsec)).UTC(),
		ID:       fmt.Sprintf("%x", md5.Sum([]byte(fileSignature))),
	}
}
