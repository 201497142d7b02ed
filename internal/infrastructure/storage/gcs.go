package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSConfig bucket y credenciales. Sin CredentialsFile se usan las
// credenciales por defecto del entorno.
type GCSConfig struct {
	Bucket          string
	CredentialsFile string
	PublicBaseURL   string
}

// GCSStorage guarda las cotizaciones en un bucket de Google Cloud Storage.
type GCSStorage struct {
	client  *storage.Client
	bucket  string
	baseURL string
}

// NewGCSStorage abre el cliente de GCS.
func NewGCSStorage(ctx context.Context, cfg GCSConfig) (*GCSStorage, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage: GCS_BUCKET es requerido")
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: cliente gcs: %w", err)
	}
	return NewGCSStorageWithClient(client, cfg), nil
}

// NewGCSStorageWithClient usa un cliente ya construido.
func NewGCSStorageWithClient(client *storage.Client, cfg GCSConfig) *GCSStorage {
	base := strings.TrimRight(cfg.PublicBaseURL, "/")
	if base == "" {
		base = "https://storage.googleapis.com/" + cfg.Bucket
	}
	return &GCSStorage{client: client, bucket: cfg.Bucket, baseURL: base}
}

// Upload escribe el objeto key con su content type.
func (s *GCSStorage) Upload(ctx context.Context, key string, content []byte, contentType string) (string, error) {
	clean, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	w := s.client.Bucket(s.bucket).Object(clean).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(content); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("storage: escribir gs://%s/%s: %w", s.bucket, clean, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("storage: cerrar gs://%s/%s: %w", s.bucket, clean, err)
	}
	return s.baseURL + "/" + clean, nil
}

// Delete borra el objeto de url. Un objeto inexistente no es error.
func (s *GCSStorage) Delete(ctx context.Context, url string) error {
	key, err := keyFromURL(s.baseURL, url)
	if err != nil {
		return err
	}
	err = s.client.Bucket(s.bucket).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("storage: borrar gs://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}

// Close libera el cliente.
func (s *GCSStorage) Close() error { return s.client.Close() }
