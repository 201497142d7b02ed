package rma

import (
	"context"

	"github.com/jhoicas/rma-api/internal/domain/entity"
	"github.com/jhoicas/rma-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando el
// repositorio de RMAs atado a esa tx.
type TxRunner interface {
	Run(ctx context.Context, fn func(rmaRepo repository.RMARepository) error) error
}

// BlobStorage almacenamiento de documentos (cotizaciones).
type BlobStorage interface {
	// Upload guarda el contenido bajo key y devuelve la URL pública.
	Upload(ctx context.Context, key string, content []byte, contentType string) (string, error)
	// Delete borra el documento referenciado por url.
	Delete(ctx context.Context, url string) error
}

// GuideRenderer genera la guía PDF de un RMA aprobado.
type GuideRenderer interface {
	RenderGuide(r *entity.RMA) ([]byte, error)
}
