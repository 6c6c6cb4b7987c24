package analysis

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/medassist/medassist/internal/domain/biomarker"
	"github.com/medassist/medassist/internal/domain/diet"
	"github.com/medassist/medassist/internal/platform/blobstore"
	"github.com/medassist/medassist/internal/platform/hipaa"
	"github.com/medassist/medassist/internal/platform/ocr"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

const (
	xrayText      = "X-Ray Image Analysis"
	xrayRegion    = "Chest"
	historyStatus = "Processed"
)

var xrayFindings = []string{
	"No acute osseous abnormality detected.",
	"Lungs are clear. No pleural effusion or pneumothorax.",
}

// Service runs analyses end to end: extraction, classification, planning,
// sealed storage, archiving and auditing.
type Service struct {
	store   *RecordStore
	ocr     ocr.Extractor
	archive *blobstore.Archive
	audit   *hipaa.Recorder
	logger  zerolog.Logger
}

// NewService wires the analysis pipeline. archive may be nil.
func NewService(store *RecordStore, extractor ocr.Extractor, archive *blobstore.Archive, audit *hipaa.Recorder, logger zerolog.Logger) *Service {
	return &Service{
		store:   store,
		ocr:     ocr.WithFallback(extractor, logger),
		archive: archive,
		audit:   audit,
		logger:  logger,
	}
}

// AnalyzeReport reads the report text from the original upload and archives
// a copy with image metadata removed.
func (s *Service) AnalyzeReport(ctx context.Context, ownerID uuid.UUID, upload []byte, origin string) (*Analysis, error) {
	text, _ := s.ocr.Extract(ctx, upload)

	result, err := biomarker.ClassifyText(text)
	if errors.Is(err, biomarker.ErrClassificationIncomplete) {
		s.logger.Warn().Str("owner_id", ownerID.String()).Msg("report classification incomplete, using reference panel")
	}
	plan := diet.Generate(result.Readings)
	interpretation := result.Interpretation

	payload := Payload{
		ExtractedText:  text,
		Biomarkers:     result.Readings,
		DietPlan:       &plan,
		Interpretation: &interpretation,
	}
	return s.persist(ctx, ownerID, KindReport, payload, s.scrub(upload, "report"), hipaa.ActionReportAnalysis, origin)
}

// scrub strips image metadata before an upload is archived. Anything that
// does not decode as an image, such as a PDF report, is kept as received.
func (s *Service) scrub(upload []byte, kind string) []byte {
	clean, _, err := ocr.StripMetadata(upload)
	if err != nil {
		s.logger.Warn().Err(err).Str("kind", kind).Msg("upload preprocessing failed, keeping original bytes")
		return upload
	}
	return clean
}

// AnalyzeXray stores the fixed chest findings for an image upload.
func (s *Service) AnalyzeXray(ctx context.Context, ownerID uuid.UUID, image []byte, contentType, origin string) (*Analysis, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return nil, ErrInvalidUpload
	}

	payload := Payload{
		ExtractedText: xrayText,
		Biomarkers:    []biomarker.Reading{},
		Findings:      append([]string(nil), xrayFindings[:2]...),
		Region:        xrayRegion,
	}
	return s.persist(ctx, ownerID, KindXray, payload, s.scrub(image, "xray"), hipaa.ActionXrayAnalysis, origin)
}

func (s *Service) persist(ctx context.Context, ownerID uuid.UUID, kind Kind, payload Payload, upload []byte, action, origin string) (*Analysis, error) {
	rec, err := s.store.Store(ctx, ownerID, kind, &payload)
	if err != nil {
		return nil, err
	}

	s.archive.Save(ctx, ownerID, rec.ID, upload)
	s.audit.Record(ctx, &ownerID, action, hipaa.ResultResource(rec.ID), origin)

	s.logger.Info().
		Str("record_id", rec.ID.String()).
		Str("kind", string(kind)).
		Int("biomarkers", len(payload.Biomarkers)).
		Msg("analysis stored")

	return &Analysis{Payload: payload, AnalysisID: rec.ID}, nil
}

// Report opens one analysis and records the read.
func (s *Service) Report(ctx context.Context, ownerID, id uuid.UUID, origin string) (*Analysis, error) {
	opened, err := s.store.Get(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, &ownerID, hipaa.ActionReportRead, hipaa.ResultResource(id), origin)
	return &Analysis{Payload: opened.Payload, AnalysisID: opened.ID}, nil
}

// Upload returns the archived source of one of the owner's analyses.
func (s *Service) Upload(ctx context.Context, ownerID, id uuid.UUID, origin string) ([]byte, error) {
	data, err := s.archive.Load(ctx, ownerID, id)
	switch {
	case errors.Is(err, blobstore.ErrBlobNotFound):
		return nil, ErrNotFound
	case errors.Is(err, hipaa.ErrCrypto):
		return nil, err
	case err != nil:
		return nil, unavailable("load upload", err)
	}
	s.audit.Record(ctx, &ownerID, hipaa.ActionUploadRead, hipaa.ResultResource(id), origin)
	return data, nil
}

// History lists report metadata, newest first.
func (s *Service) History(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]HistoryItem, int, error) {
	records, total, err := s.store.List(ctx, ownerID, KindReport, NewestFirst, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items := lo.Map(records, func(r Record, _ int) HistoryItem {
		return HistoryItem{ID: r.ID, Type: r.Kind, CreatedAt: r.CreatedAt, Status: historyStatus}
	})
	return items, total, nil
}

// Delete removes one of the owner's analyses and its archived upload.
func (s *Service) Delete(ctx context.Context, ownerID, id uuid.UUID, origin string) error {
	if err := s.store.Delete(ctx, id, ownerID); err != nil {
		return err
	}
	s.archive.Remove(ctx, ownerID, id)
	s.audit.Record(ctx, &ownerID, hipaa.ActionReportDelete, hipaa.ResultResource(id), origin)
	return nil
}

// Trends opens every report oldest first. Unreadable reports are skipped.
func (s *Service) Trends(ctx context.Context, ownerID uuid.UUID) ([]TrendPoint, error) {
	opened, err := s.store.DecryptAll(ctx, ownerID, KindReport, OldestFirst)
	if err != nil {
		return nil, err
	}
	return lo.Map(opened, func(o Opened, _ int) TrendPoint {
		var macros *diet.Macros
		if o.Payload.DietPlan != nil {
			m := o.Payload.DietPlan.Macros
			macros = &m
		}
		biomarkers := o.Payload.Biomarkers
		if biomarkers == nil {
			biomarkers = []biomarker.Reading{}
		}
		return TrendPoint{
			Date:          o.CreatedAt,
			Biomarkers:    biomarkers,
			Macros:        macros,
			VitalityScore: VitalityScore(len(biomarkers)),
		}
	}), nil
}

// DailyPlan returns the newest report's plan. A missing or unreadable
// report yields a message instead of an error.
func (s *Service) DailyPlan(ctx context.Context, ownerID uuid.UUID) (*DailyPlan, error) {
	latest, err := s.store.Latest(ctx, ownerID, KindReport)
	switch {
	case errors.Is(err, ErrNotFound):
		return &DailyPlan{Message: MessageNoReport}, nil
	case errors.Is(err, hipaa.ErrCrypto):
		s.logger.Warn().Err(err).Str("owner_id", ownerID.String()).Msg("latest report unreadable")
		return &DailyPlan{Message: MessageInaccessible}, nil
	case err != nil:
		return nil, err
	}
	date := latest.CreatedAt
	return &DailyPlan{DietPlan: latest.Payload.DietPlan, Date: &date}, nil
}
