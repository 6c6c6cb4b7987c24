package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/medassist/medassist/internal/platform/blobstore"
	"github.com/medassist/medassist/internal/platform/hipaa"
	"github.com/rs/zerolog"
)

// Reencrypt moves every stored record, and the archived upload behind it,
// from one key to another. archive must be opened with from and may be nil.
// Records and uploads that do not open under from are left as they are and
// listed in the report. It must run while the server is stopped.
func Reencrypt(ctx context.Context, repo Repository, archive *blobstore.Archive, from, to *hipaa.Vault, logger zerolog.Logger) (hipaa.RekeyReport, error) {
	var report hipaa.RekeyReport

	sealed, err := repo.ListAllSealed(ctx)
	if err != nil {
		return report, fmt.Errorf("list records: %w", err)
	}

	for _, rec := range sealed {
		out, err := hipaa.Rekey(from, to, rec.Ciphertext)
		if err != nil {
			logger.Warn().Err(err).Str("record_id", rec.ID.String()).Msg("record not rekeyed")
			report.Failed = append(report.Failed, rec.ID.String())
		} else {
			if err := repo.ReplaceCiphertext(ctx, rec.ID, out); err != nil {
				return report, fmt.Errorf("write record %s: %w", rec.ID, err)
			}
			report.Rekeyed++
		}

		moved, err := archive.Rekey(ctx, rec.OwnerID, rec.ID, to)
		switch {
		case errors.Is(err, hipaa.ErrCrypto):
			logger.Warn().Err(err).Str("record_id", rec.ID.String()).Msg("upload not rekeyed")
			report.UploadsFailed = append(report.UploadsFailed, rec.ID.String())
		case err != nil:
			return report, fmt.Errorf("rekey upload %s: %w", rec.ID, err)
		case moved:
			report.UploadsRekeyed++
		}
	}

	logger.Info().
		Int("rekeyed", report.Rekeyed).
		Int("failed", len(report.Failed)).
		Int("uploads_rekeyed", report.UploadsRekeyed).
		Int("uploads_failed", len(report.UploadsFailed)).
		Msg("re-encryption finished")
	return report, nil
}
