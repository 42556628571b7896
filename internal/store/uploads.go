package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kiranshivaraju/batchpulse/pkg/models"
)

const uploadColumns = `id, customer_id, file_type, product, file_name, file_path, file_size, processed, processing_log, uploaded_at`

func scanUpload(row pgx.Row) (*models.FileUpload, error) {
	var u models.FileUpload
	err := row.Scan(&u.ID, &u.CustomerID, &u.FileType, &u.Product, &u.FileName, &u.FilePath,
		&u.FileSize, &u.Processed, &u.ProcessingLog, &u.UploadedAt)
	return &u, err
}

func (s *PostgresStore) CreateFileUpload(ctx context.Context, u *models.FileUpload) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO file_uploads (`+uploadColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		u.ID, u.CustomerID, u.FileType, u.Product, u.FileName, u.FilePath, u.FileSize,
		u.Processed, u.ProcessingLog, u.UploadedAt)
	if err != nil {
		return fmt.Errorf("create file upload: %w", err)
	}
	return nil
}

func (s *PostgresStore) MarkFileUploadProcessed(ctx context.Context, id uuid.UUID, success bool, log string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE file_uploads SET processed = $2, processing_log = $3 WHERE id = $1`, id, success, log)
	if err != nil {
		return fmt.Errorf("update file upload: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListFileUploads(ctx context.Context, filter UploadFilter) ([]*models.FileUpload, int, error) {
	w := &where{}
	w.customer(filter.CustomerID)
	if filter.FileType != "" {
		w.add("file_type = $%d", filter.FileType)
	}
	return paged(ctx, s, "file_uploads", uploadColumns, w, "uploaded_at DESC", filter.Page, scanUpload)
}
