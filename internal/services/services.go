// Package services contiene la lógica de negocio de encuestas y cuentas
package services

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/pollsite/poll-api/internal/domain/common"
	"github.com/pollsite/poll-api/internal/domain/poll"
	"github.com/pollsite/poll-api/internal/storage/objectstore"
)

// invalid marca un error de validación como entrada inválida
func invalid(err error) error {
	return fmt.Errorf("%w: %w", common.ErrInvalidInput, err)
}

// removeBlobs borra los objetos de las imágenes ya eliminadas de la base.
// Un fallo solo deja objetos huérfanos, así que se registra y se continúa.
func removeBlobs(ctx context.Context, blobs objectstore.ImageStore, images []poll.Image, log *log.Logger) {
	for _, img := range images {
		if err := blobs.Delete(ctx, img.ObjectKey); err != nil {
			log.Warn("Failed to delete image object", "image_id", img.ID, "key", img.ObjectKey, "error", err)
		}
	}
}
