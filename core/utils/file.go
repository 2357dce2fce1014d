package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// SaveUpload 保存上传文件到指定目录, limited to maxBytes. The file name is
// reduced to its base name so callers cannot escape dir.
func SaveUpload(r io.Reader, dir, name string, maxBytes int64) (string, int64, error) {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		return "", 0, fmt.Errorf("invalid file name %q", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("创建目录失败: %w", err)
	}

	dest := filepath.Join(dir, base)
	out, err := os.Create(dest)
	if err != nil {
		return "", 0, fmt.Errorf("创建文件失败: %w", err)
	}
	defer out.Close()

	n, err := io.Copy(out, io.LimitReader(r, maxBytes+1))
	if err != nil {
		os.Remove(dest)
		return "", 0, fmt.Errorf("保存文件失败: %w", err)
	}
	if n > maxBytes {
		os.Remove(dest)
		return "", 0, fmt.Errorf("file %s exceeds %d bytes", base, maxBytes)
	}
	return dest, n, nil
}
