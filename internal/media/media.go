// internal/media/media.go
package media

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Store — dostęp do biblioteki assetów. Pipeline czyta tylko ścieżki
// i bajty, nigdy nie pisze do źródła.
type Store interface {
	ListFiles(root string) ([]string, error)
	ReadFileBytes(path string) ([]byte, error)
}

// Local — biblioteka na lokalnym dysku
type Local struct{}

func NewLocal() Store {
	return Local{}
}

// ListFiles zwraca wszystkie pliki pod root (rekurencyjnie), posortowane —
// deterministyczna kolejność przebiegu niezależnie od systemu plików.
func (Local) ListFiles(root string) ([]string, error) {
	root = ExpandHome(root)
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		out = append(out, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

func (Local) ReadFileBytes(path string) ([]byte, error) {
	return os.ReadFile(ExpandHome(path))
}

func ExpandHome(p string) string {
	if strings.HasPrefix(p, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
