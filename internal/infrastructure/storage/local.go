// Package storage implementa rma.BlobStorage sobre disco local y sobre Google
// Cloud Storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrForeignURL la URL no pertenece a este almacenamiento.
var ErrForeignURL = errors.New("storage: la URL no pertenece a este almacenamiento")

// LocalStorage guarda los documentos bajo Root y los publica bajo BaseURL
// (el servidor HTTP sirve Root como estático).
type LocalStorage struct {
	root    string
	baseURL string
}

// NewLocalStorage crea root si no existe.
func NewLocalStorage(root, baseURL string) (*LocalStorage, error) {
	if root == "" {
		return nil, errors.New("storage: STORAGE_LOCAL_PATH es requerido")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: crear %s: %w", root, err)
	}
	return &LocalStorage{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Upload escribe content en root/key y devuelve baseURL/key.
func (s *LocalStorage) Upload(ctx context.Context, key string, content []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	full := filepath.Join(s.root, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("storage: crear carpeta: %w", err)
	}
	if err := os.WriteFile(full, content, 0o644); err != nil {
		return "", fmt.Errorf("storage: escribir %s: %w", clean, err)
	}
	return s.baseURL + "/" + clean, nil
}

// Delete borra el archivo de url. Un archivo inexistente no es error.
func (s *LocalStorage) Delete(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := keyFromURL(s.baseURL, url)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.root, filepath.FromSlash(key))); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: borrar %s: %w", key, err)
	}
	return nil
}

// Root carpeta física; el router la monta como estático.
func (s *LocalStorage) Root() string { return s.root }

func cleanKey(key string) (string, error) {
	clean := path.Clean("/" + strings.TrimSpace(key))[1:]
	if clean == "" || clean != strings.TrimPrefix(key, "/") {
		return "", fmt.Errorf("storage: clave inválida %q", key)
	}
	return clean, nil
}

func keyFromURL(base, url string) (string, error) {
	prefix := base + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", ErrForeignURL
	}
	return cleanKey(strings.TrimPrefix(url, prefix))
}
