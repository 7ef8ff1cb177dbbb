// Package file 提供会话级的上传文件存储
package file

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// MaxFileNameLength 文件名最大字节数
const MaxFileNameLength = 200

// SavedFile 保存结果
type SavedFile struct {
	Path string
	Size int64
}

// Storage 文件存储接口
type Storage interface {
	// Save 保存文件，同会话同名文件直接覆盖
	Save(ctx context.Context, sessionID, fileName string, r io.Reader) (*SavedFile, error)
	// Open 打开已保存的文件
	Open(ctx context.Context, sessionID, fileName string) (io.ReadCloser, error)
	// Delete 删除文件，文件不存在不视为错误
	Delete(ctx context.Context, sessionID, fileName string) error
}

// ValidateFileName 校验上传文件名
//
// 只接受纯文件名：拒绝空名、路径分隔符、上级目录引用和超长名称。
func ValidateFileName(name string) error {
	if name == "" {
		return fmt.Errorf("file name is required")
	}
	if len(name) > MaxFileNameLength {
		return fmt.Errorf("file name exceeds %d bytes", MaxFileNameLength)
	}
	if strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("file name must not contain path separators")
	}
	if name == "." || name == ".." {
		return fmt.Errorf("invalid file name: %s", name)
	}
	return nil
}
