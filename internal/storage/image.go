package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var ErrImageNotAllowed = errors.New("image type not allowed")

var allowedExtensions = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// AllowedImage 扩展名在白名单内（大小写不敏感）
func AllowedImage(filename string) bool {
	_, ok := allowedExtensions[extension(filename)]
	return ok
}

func ContentType(filename string) string {
	if ct, ok := allowedExtensions[extension(filename)]; ok {
		return ct
	}
	return "application/octet-stream"
}

// ImageKey 生成对象 key：profile_pics/<userID>/<uuid>_<安全文件名>
func ImageKey(userID uint64, filename string) (string, error) {
	if !AllowedImage(filename) {
		return "", ErrImageNotAllowed
	}
	return fmt.Sprintf("profile_pics/%d/%s_%s", userID, uuid.NewString(), SanitizeFilename(filename)), nil
}

// SanitizeFilename 去掉路径，只保留安全字符
func SanitizeFilename(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	base = unsafeChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._")
	if base == "" {
		return "image"
	}
	return base
}

func extension(filename string) string {
	i := strings.LastIndex(filename, ".")
	if i < 0 {
		return ""
	}
	return strings.ToLower(filename[i+1:])
}
