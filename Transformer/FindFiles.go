package Transformer

import (
	"os"
	"path/filepath"
	"strings"
)

// FindFiles 在目录下递归查找指定扩展名的文件
func FindFiles(root string, ext string) []string {
	var files []string
	filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if strings.HasSuffix(strings.ToLower(info.Name()), "."+ext) {
			files = append(files, path)
		}
		return nil
	})
	return files
}
