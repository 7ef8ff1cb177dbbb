package file

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStorage 本地文件存储
//
// 布局为 {basePath}/{sessionID}/{fileName}，文件名保持用户上传时的原名，
// 重复上传同名文件覆盖旧内容。
type LocalStorage struct {
	basePath string
}

// NewLocalStorage 创建本地存储服务
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

// Save 保存文件到本地
func (s *LocalStorage) Save(ctx context.Context, sessionID, fileName string, r io.Reader) (*SavedFile, error) {
	if err := ValidateFileName(fileName); err != nil {
		return nil, err
	}

	dir := filepath.Join(s.basePath, sessionID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	fullPath := filepath.Join(dir, fileName)
	f, err := os.Create(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	return &SavedFile{Path: fullPath, Size: size}, nil
}

// Open 打开已保存的文件
func (s *LocalStorage) Open(ctx context.Context, sessionID, fileName string) (io.ReadCloser, error) {
	if err := ValidateFileName(fileName); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.basePath, sessionID, fileName))
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, nil
}

// Delete 删除文件
func (s *LocalStorage) Delete(ctx context.Context, sessionID, fileName string) error {
	if err := ValidateFileName(fileName); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.basePath, sessionID, fileName)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
