package analysis

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/medassist/medassist/internal/domain/biomarker"
	"github.com/medassist/medassist/internal/platform/blobstore"
	"github.com/medassist/medassist/internal/platform/hipaa"
	"github.com/medassist/medassist/internal/platform/ocr"
	"github.com/rs/zerolog"
)

type stubExtractor struct {
	text string
	err  error
}

func (s stubExtractor) Extract(context.Context, []byte) (string, error) {
	return s.text, s.err
}

type recordingSink struct {
	mu      sync.Mutex
	entries []hipaa.AuditEntry
}

func (s *recordingSink) Append(_ context.Context, e hipaa.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return nil
}

func (s *recordingSink) actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Action
	}
	return out
}

type serviceFixture struct {
	*storeFixture
	svc     *Service
	blobs   *blobstore.InMemoryBlobStore
	archive *blobstore.Archive
	audit   *recordingSink
}

func newServiceFixture(t *testing.T, extractor ocr.Extractor) *serviceFixture {
	t.Helper()
	f := newStoreFixture(t)
	blobs := blobstore.NewInMemoryBlobStore()
	archive := blobstore.NewArchive(blobs, f.vault, zerolog.Nop())
	sink := &recordingSink{}
	rec := hipaa.NewRecorder(zerolog.Nop(), sink)

	return &serviceFixture{
		storeFixture: f,
		svc:          NewService(f.store, extractor, archive, rec, zerolog.Nop()),
		blobs:        blobs,
		archive:      archive,
		audit:        sink,
	}
}

const labText = `Patient lab panel
Glucose: 150 mg/dL
Systolic BP 160 mmHg
Creatinine 0.8 mg/dL`

func TestService_AnalyzeReport(t *testing.T) {
	f := newServiceFixture(t, stubExtractor{text: labText})

	res, err := f.svc.AnalyzeReport(context.Background(), f.owner, []byte("png bytes"), "10.0.0.1")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if res.AnalysisID == uuid.Nil {
		t.Fatal("expected analysis id")
	}
	if res.ExtractedText != labText {
		t.Errorf("unexpected text %q", res.ExtractedText)
	}
	if len(res.Biomarkers) != 3 {
		t.Errorf("expected 3 biomarkers, got %d", len(res.Biomarkers))
	}
	if res.DietPlan == nil || res.DietPlan.DietType != "Low Glycemic / Diabetic Friendly" {
		t.Errorf("glucose rule should win over blood pressure, got %+v", res.DietPlan)
	}
	if res.Interpretation == nil || *res.Interpretation == "" {
		t.Error("expected interpretation")
	}

	stored, err := f.store.Get(context.Background(), res.AnalysisID, f.owner)
	if err != nil {
		t.Fatalf("get stored: %v", err)
	}
	if stored.Kind != KindReport || stored.Payload.DietPlan.DietType != res.DietPlan.DietType {
		t.Errorf("stored record mismatch: %+v", stored)
	}

	entries := f.audit.entries
	if len(entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Action != hipaa.ActionReportAnalysis || e.Resource != hipaa.ResultResource(res.AnalysisID) ||
		e.Origin != "10.0.0.1" || e.UserID == nil || *e.UserID != f.owner {
		t.Errorf("unexpected audit entry %+v", e)
	}

	upload, err := f.archive.Load(context.Background(), f.owner, res.AnalysisID)
	if err != nil || string(upload) != "png bytes" {
		t.Errorf("archived upload = %q, %v", upload, err)
	}
}

func TestService_AnalyzeReport_OCRFailureFallsBack(t *testing.T) {
	f := newServiceFixture(t, stubExtractor{err: errors.New("tesseract crashed")})

	res, err := f.svc.AnalyzeReport(context.Background(), f.owner, []byte("x"), "")
	if err != nil {
		t.Fatalf("ocr failure must not fail the request: %v", err)
	}
	if res.ExtractedText != ocr.FallbackText {
		t.Errorf("expected fallback text, got %q", res.ExtractedText)
	}
	if len(res.Biomarkers) != len(biomarker.ReferencePanel()) {
		t.Errorf("expected reference panel, got %d readings", len(res.Biomarkers))
	}
	if res.DietPlan.Macros.Calories != 1800 {
		t.Errorf("expected 1800 kcal plan, got %d", res.DietPlan.Macros.Calories)
	}
	if *res.Interpretation != biomarker.FallbackInterpretation {
		t.Errorf("unexpected interpretation %q", *res.Interpretation)
	}
}

func TestService_AnalyzeXray(t *testing.T) {
	f := newServiceFixture(t, nil)

	if _, err := f.svc.AnalyzeXray(context.Background(), f.owner, []byte("%PDF"), "application/pdf", ""); !errors.Is(err, ErrInvalidUpload) {
		t.Fatalf("expected ErrInvalidUpload, got %v", err)
	}
	if f.blobs.Len() != 0 || len(f.audit.entries) != 0 {
		t.Error("rejected upload must not be archived or audited")
	}

	res, err := f.svc.AnalyzeXray(context.Background(), f.owner, []byte("not really a png"), "image/png", "")
	if err != nil {
		t.Fatalf("analyze xray: %v", err)
	}
	if res.ExtractedText != xrayText || res.Region != xrayRegion {
		t.Errorf("unexpected payload %+v", res.Payload)
	}
	if len(res.Findings) != 2 || res.Findings[0] != xrayFindings[0] {
		t.Errorf("unexpected findings %v", res.Findings)
	}
	if res.DietPlan != nil || res.Interpretation != nil {
		t.Error("x-ray carries no plan or interpretation")
	}

	upload, err := f.archive.Load(context.Background(), f.owner, res.AnalysisID)
	if err != nil || string(upload) != "not really a png" {
		t.Errorf("undecodable image should be archived as received, got %q, %v", upload, err)
	}
	if got := f.audit.actions(); len(got) != 1 || got[0] != hipaa.ActionXrayAnalysis {
		t.Errorf("unexpected audit actions %v", got)
	}

	history, total, _ := f.svc.History(context.Background(), f.owner, 10, 0)
	if total != 0 || len(history) != 0 {
		t.Error("x-ray analyses are not part of report history")
	}
}

func TestService_NilArchive(t *testing.T) {
	f := newStoreFixture(t)
	svc := NewService(f.store, nil, nil, hipaa.NewRecorder(zerolog.Nop()), zerolog.Nop())

	res, err := svc.AnalyzeReport(context.Background(), f.owner, []byte("x"), "")
	if err != nil {
		t.Fatalf("analyze without archive: %v", err)
	}
	if _, err := svc.Upload(context.Background(), f.owner, res.AnalysisID, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("upload without archive: expected ErrNotFound, got %v", err)
	}
	if err := svc.Delete(context.Background(), f.owner, res.AnalysisID, ""); err != nil {
		t.Fatalf("delete without archive: %v", err)
	}
}

func TestService_Upload(t *testing.T) {
	f := newServiceFixture(t, stubExtractor{text: labText})
	ctx := context.Background()

	res, err := f.svc.AnalyzeReport(ctx, f.owner, []byte("scan bytes"), "")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	data, err := f.svc.Upload(ctx, f.owner, res.AnalysisID, "10.0.0.2")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if string(data) != "scan bytes" {
		t.Errorf("unexpected upload %q", data)
	}
	if got := f.audit.actions(); len(got) != 2 || got[1] != hipaa.ActionUploadRead {
		t.Errorf("unexpected audit trail %v", got)
	}

	if _, err := f.svc.Upload(ctx, uuid.New(), res.AnalysisID, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign owner: expected ErrNotFound, got %v", err)
	}

	other, err := hipaa.NewVault(make([]byte, 32))
	if err != nil {
		t.Fatalf("vault: %v", err)
	}
	blobs := blobstore.NewInMemoryBlobStore()
	blobstore.NewArchive(blobs, other, zerolog.Nop()).Save(ctx, f.owner, res.AnalysisID, []byte("x"))
	svc := NewService(f.store, nil, blobstore.NewArchive(blobs, f.vault, zerolog.Nop()), hipaa.NewRecorder(zerolog.Nop()), zerolog.Nop())
	if _, err := svc.Upload(ctx, f.owner, res.AnalysisID, ""); !errors.Is(err, hipaa.ErrCrypto) {
		t.Errorf("foreign key: expected ErrCrypto, got %v", err)
	}

	if err := f.svc.Delete(ctx, f.owner, res.AnalysisID, ""); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.svc.Upload(ctx, f.owner, res.AnalysisID, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("after delete: expected ErrNotFound, got %v", err)
	}
}

func TestService_HistoryReportDelete(t *testing.T) {
	f := newServiceFixture(t, stubExtractor{text: labText})
	ctx := context.Background()

	first, _ := f.svc.AnalyzeReport(ctx, f.owner, []byte("a"), "")
	second, _ := f.svc.AnalyzeReport(ctx, f.owner, []byte("b"), "")

	items, total, err := f.svc.History(ctx, f.owner, 10, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Fatalf("expected 2 items, got %d (total %d)", len(items), total)
	}
	if items[0].ID != second.AnalysisID || items[0].Status != "Processed" || items[0].Type != KindReport {
		t.Errorf("unexpected first item %+v", items[0])
	}

	got, err := f.svc.Report(ctx, f.owner, first.AnalysisID, "")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if got.AnalysisID != first.AnalysisID {
		t.Errorf("unexpected id %s", got.AnalysisID)
	}

	if err := f.svc.Delete(ctx, f.owner, first.AnalysisID, ""); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.svc.Report(ctx, f.owner, first.AnalysisID, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if f.blobs.Len() != 1 {
		t.Errorf("expected archived upload removed, %d left", f.blobs.Len())
	}
	if err := f.svc.Delete(ctx, f.owner, first.AnalysisID, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}

	want := []string{
		hipaa.ActionReportAnalysis,
		hipaa.ActionReportAnalysis,
		hipaa.ActionReportRead,
		hipaa.ActionReportDelete,
	}
	actions := f.audit.actions()
	if len(actions) != len(want) {
		t.Fatalf("audit actions %v, want %v", actions, want)
	}
	for i := range want {
		if actions[i] != want[i] {
			t.Errorf("audit[%d] = %s, want %s", i, actions[i], want[i])
		}
	}
}

func TestService_Trends(t *testing.T) {
	f := newServiceFixture(t, stubExtractor{err: errors.New("no engine")})
	ctx := context.Background()

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		res, err := f.svc.AnalyzeReport(ctx, f.owner, []byte("x"), "")
		if err != nil {
			t.Fatalf("analyze: %v", err)
		}
		ids = append(ids, res.AnalysisID)
	}
	f.corrupt(t, ids[0])

	points, err := f.svc.Trends(ctx, f.owner)
	if err != nil {
		t.Fatalf("trends: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 readable points, got %d", len(points))
	}
	if !points[0].Date.Before(points[1].Date) {
		t.Error("trends must be oldest first")
	}
	p := points[0]
	if p.VitalityScore != 95 || len(p.Biomarkers) != 5 {
		t.Errorf("unexpected point %+v", p)
	}
	if p.Macros == nil || p.Macros.Calories != 1800 {
		t.Errorf("unexpected macros %+v", p.Macros)
	}
}

func TestService_TrendsEmpty(t *testing.T) {
	f := newServiceFixture(t, nil)
	points, err := f.svc.Trends(context.Background(), f.owner)
	if err != nil {
		t.Fatalf("trends: %v", err)
	}
	if points == nil || len(points) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", points)
	}
}

func TestService_DailyPlan(t *testing.T) {
	f := newServiceFixture(t, stubExtractor{text: labText})
	ctx := context.Background()

	plan, err := f.svc.DailyPlan(ctx, f.owner)
	if err != nil {
		t.Fatalf("daily plan: %v", err)
	}
	if plan.DietPlan != nil || plan.Message != MessageNoReport {
		t.Errorf("expected no-report message, got %+v", plan)
	}

	res, _ := f.svc.AnalyzeReport(ctx, f.owner, []byte("x"), "")
	plan, err = f.svc.DailyPlan(ctx, f.owner)
	if err != nil {
		t.Fatalf("daily plan: %v", err)
	}
	if plan.DietPlan == nil || plan.DietPlan.DietType != res.DietPlan.DietType || plan.Date == nil {
		t.Errorf("unexpected plan %+v", plan)
	}

	f.corrupt(t, res.AnalysisID)
	plan, err = f.svc.DailyPlan(ctx, f.owner)
	if err != nil {
		t.Fatalf("daily plan: %v", err)
	}
	if plan.DietPlan != nil || plan.Message != MessageInaccessible {
		t.Errorf("expected inaccessible message, got %+v", plan)
	}
}

// jpegWithExif encodes a small JPEG and splices an APP1 segment carrying
// marker right after the start-of-image marker.
func jpegWithExif(t *testing.T, marker string) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{200, 200, 200, 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode: %v", err)
	}
	raw := buf.Bytes()

	body := append([]byte("Exif\x00\x00"), marker...)
	n := len(body) + 2
	app1 := append([]byte{0xFF, 0xE1, byte(n >> 8), byte(n)}, body...)

	out := append([]byte{}, raw[:2]...)
	out = append(out, app1...)
	return append(out, raw[2:]...)
}

func TestService_ArchivedUploadsAreScrubbed(t *testing.T) {
	const marker = "GPS 51.5074N 0.1278W"
	photo := jpegWithExif(t, marker)
	if !bytes.Contains(photo, []byte(marker)) {
		t.Fatal("fixture should carry the metadata marker")
	}

	tests := []struct {
		name    string
		analyze func(f *serviceFixture, upload []byte) (*Analysis, error)
		upload  []byte
		cleaned bool
	}{
		{
			name: "report photo",
			analyze: func(f *serviceFixture, upload []byte) (*Analysis, error) {
				return f.svc.AnalyzeReport(context.Background(), f.owner, upload, "")
			},
			upload:  photo,
			cleaned: true,
		},
		{
			name: "xray photo",
			analyze: func(f *serviceFixture, upload []byte) (*Analysis, error) {
				return f.svc.AnalyzeXray(context.Background(), f.owner, upload, "image/jpeg", "")
			},
			upload:  photo,
			cleaned: true,
		},
		{
			name: "report pdf",
			analyze: func(f *serviceFixture, upload []byte) (*Analysis, error) {
				return f.svc.AnalyzeReport(context.Background(), f.owner, upload, "")
			},
			upload: []byte("%PDF-1.4 " + marker),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture(t, stubExtractor{text: labText})
			res, err := tt.analyze(f, tt.upload)
			if err != nil {
				t.Fatalf("analyze: %v", err)
			}
			stored, err := f.archive.Load(context.Background(), f.owner, res.AnalysisID)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if !tt.cleaned {
				if !bytes.Equal(stored, tt.upload) {
					t.Errorf("non-image upload should be archived as received, got %q", stored)
				}
				return
			}
			if bytes.Contains(stored, []byte(marker)) {
				t.Error("archived image still carries its metadata")
			}
			if _, err := jpeg.Decode(bytes.NewReader(stored)); err != nil {
				t.Errorf("archived image should stay a jpeg: %v", err)
			}
		})
	}
}
