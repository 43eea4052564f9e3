package services

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scriptsentries/clearance-engine/pkg/analysis"
	"github.com/scriptsentries/clearance-engine/pkg/clearance"
	"github.com/scriptsentries/clearance-engine/pkg/events"
	"github.com/scriptsentries/clearance-engine/pkg/export"
	"github.com/scriptsentries/clearance-engine/pkg/metrics"
	"github.com/scriptsentries/clearance-engine/pkg/models"
	"github.com/scriptsentries/clearance-engine/pkg/repositories"
)

// DefaultScriptFilename is used when an upload carries no filename.
const DefaultScriptFilename = "script.pdf"

// UploadRequest is a screenplay PDF to analyze.
type UploadRequest struct {
	Filename    string
	VersionName string
	Content     io.Reader
}

// ExportFile is a rendered clearance report.
type ExportFile struct {
	Filename string
	Content  *bytes.Buffer
}

// ScriptService runs the upload pipeline and serves script versions.
type ScriptService interface {
	// Upload stores the script metadata, analyzes the PDF and keeps only the
	// resulting flags. The PDF never outlives the call.
	Upload(ctx context.Context, actor clearance.Actor, projectID uuid.UUID, req UploadRequest) (*models.ScriptDetail, error)
	// Get returns the script with its flags sorted by severity then page.
	Get(ctx context.Context, actor clearance.Actor, projectID, scriptID uuid.UUID, filter models.RiskFilter) (*models.ScriptDetail, error)
	// Rename sets the version name. A blank name clears it.
	Rename(ctx context.Context, actor clearance.Actor, projectID, scriptID uuid.UUID, versionName string) (*models.Script, error)
	Delete(ctx context.Context, actor clearance.Actor, projectID, scriptID uuid.UUID) error
	Export(ctx context.Context, actor clearance.Actor, projectID, scriptID uuid.UUID) (*ExportFile, error)
}

type scriptService struct {
	scriptRepo repositories.ScriptRepository
	riskRepo   repositories.RiskFlagRepository
	extractor  analysis.PageExtractor
	detector   analysis.Detector
	publisher  events.Publisher
	metrics    *metrics.Metrics
	tempDir    string
	inTx       txRunner
	detach     txRunner
	logger     *zap.Logger
	now        func() time.Time
}

var _ ScriptService = (*scriptService)(nil)

// NewScriptService creates a ScriptService. tempDir may be empty to use the
// system temp directory.
func NewScriptService(
	scriptRepo repositories.ScriptRepository,
	riskRepo repositories.RiskFlagRepository,
	extractor analysis.PageExtractor,
	detector analysis.Detector,
	publisher events.Publisher,
	m *metrics.Metrics,
	tempDir string,
	logger *zap.Logger,
) ScriptService {
	return &scriptService{
		scriptRepo: scriptRepo,
		riskRepo:   riskRepo,
		extractor:  extractor,
		detector:   detector,
		publisher:  publisher,
		metrics:    m,
		tempDir:    tempDir,
		inTx:       defaultTx,
		detach:     defaultDetach,
		logger:     logger.Named("scripts"),
		now:        time.Now,
	}
}

func (s *scriptService) Upload(ctx context.Context, actor clearance.Actor, projectID uuid.UUID, req UploadRequest) (*models.ScriptDetail, error) {
	if err := authorize(s.metrics, actor, clearance.CapUploadScript); err != nil {
		return nil, err
	}

	filename := strings.TrimSpace(req.Filename)
	if filename == "" {
		filename = DefaultScriptFilename
	}

	versionName := strings.TrimSpace(req.VersionName)
	if versionName == "" {
		n, err := s.scriptRepo.CountActive(ctx, projectID)
		if err != nil {
			return nil, err
		}
		versionName = models.DefaultVersionName(n + 1)
	}

	script := &models.Script{
		ProjectID:   projectID,
		Filename:    filename,
		VersionName: &versionName,
		Status:      models.ScriptStatusProcessing,
		UploadedBy:  actor.UserID,
	}
	if err := s.scriptRepo.Create(ctx, script); err != nil {
		return nil, err
	}

	s.logger.Info("Received script for analysis",
		zap.String("script_id", script.ID.String()),
		zap.String("project_id", projectID.String()),
		zap.String("filename", filename))

	// Extraction and model calls hold no pooled connection.
	var pages []string
	var flags []*models.RiskFlag
	err := s.detach(ctx, func(ctx context.Context) error {
		var err error
		if pages, err = s.extract(req.Content); err != nil {
			return err
		}
		flags = s.detector.AnalyzePages(ctx, pages)
		return nil
	})

	// The outcome is recorded even when the client has gone.
	ctx = context.WithoutCancel(ctx)
	if err == nil {
		err = s.inTx(ctx, func(ctx context.Context) error {
			if len(flags) > 0 {
				if err := s.riskRepo.CreateBatch(ctx, script.ID, flags); err != nil {
					return fmt.Errorf("failed to save risk flags: %w", err)
				}
			}
			return s.record(ctx, script, models.ScriptStatusComplete, len(pages), flags)
		})
	}
	if err != nil {
		if recErr := s.record(ctx, script, models.ScriptStatusFailed, len(pages), nil); recErr == nil {
			s.report(ctx, script)
		}
		return nil, err
	}
	s.report(ctx, script)

	sortRisks(flags)
	if flags == nil {
		flags = []*models.RiskFlag{}
	}
	return &models.ScriptDetail{Script: *script, Risks: flags}, nil
}

// extract spools the upload to a private temp file, reads its pages and
// deletes the file before returning.
func (s *scriptService) extract(content io.Reader) ([]string, error) {
	tmp, err := os.CreateTemp(s.tempDir, "ss_*.pdf")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	path := tmp.Name()
	defer s.removeTemp(path)

	_, copyErr := io.Copy(tmp, content)
	closeErr := tmp.Close()
	if copyErr != nil {
		return nil, fmt.Errorf("failed to spool upload: %w", copyErr)
	}
	if closeErr != nil {
		return nil, fmt.Errorf("failed to spool upload: %w", closeErr)
	}

	pages, err := s.extractor.ExtractPages(path)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Extracted pages", zap.Int("pages", len(pages)))
	return pages, nil
}

func (s *scriptService) removeTemp(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Error("Failed to delete uploaded script, manual cleanup required",
			zap.String("path", path),
			zap.Error(err))
		return
	}
	s.logger.Debug("Deleted uploaded script", zap.String("path", path))
}

// record stores the pipeline outcome on the script.
func (s *scriptService) record(ctx context.Context, script *models.Script, status models.ScriptStatus, pages int, flags []*models.RiskFlag) error {
	script.Status = status
	script.TotalPages = pages
	script.RiskCount = len(flags)

	if err := s.scriptRepo.FinishAnalysis(ctx, script.ID, status, pages, len(flags)); err != nil {
		s.logger.Error("Failed to record analysis outcome",
			zap.String("script_id", script.ID.String()),
			zap.String("status", string(status)),
			zap.Error(err))
		return err
	}
	return nil
}

// report announces a recorded outcome.
func (s *scriptService) report(ctx context.Context, script *models.Script) {
	s.metrics.RecordScriptAnalyzed(string(script.Status), script.RiskCount)

	if err := s.publisher.PublishScriptAnalyzed(ctx, events.ScriptAnalyzed{
		ProjectID:  script.ProjectID,
		ScriptID:   script.ID,
		Status:     string(script.Status),
		TotalPages: script.TotalPages,
		RiskCount:  script.RiskCount,
	}); err != nil {
		s.logger.Warn("Failed to publish script analyzed event", zap.Error(err))
	}

	s.logger.Info("Analysis finished",
		zap.String("script_id", script.ID.String()),
		zap.String("status", string(script.Status)),
		zap.Int("pages", script.TotalPages),
		zap.Int("risks", script.RiskCount))
}

func (s *scriptService) Get(ctx context.Context, actor clearance.Actor, projectID, scriptID uuid.UUID, filter models.RiskFilter) (*models.ScriptDetail, error) {
	script, risks, err := s.load(ctx, projectID, scriptID)
	if err != nil {
		return nil, err
	}

	filtered := make([]*models.RiskFlag, 0, len(risks))
	for _, r := range risks {
		if filter.Matches(r) {
			filtered = append(filtered, r)
		}
	}
	return &models.ScriptDetail{Script: *script, Risks: filtered}, nil
}

func (s *scriptService) Rename(ctx context.Context, actor clearance.Actor, projectID, scriptID uuid.UUID, versionName string) (*models.Script, error) {
	if err := authorize(s.metrics, actor, clearance.CapRenameVersion); err != nil {
		return nil, err
	}

	var name *string
	if trimmed := strings.TrimSpace(versionName); trimmed != "" {
		name = &trimmed
	}
	if err := s.scriptRepo.Rename(ctx, projectID, scriptID, name); err != nil {
		return nil, err
	}
	return s.scriptRepo.Get(ctx, projectID, scriptID)
}

func (s *scriptService) Delete(ctx context.Context, actor clearance.Actor, projectID, scriptID uuid.UUID) error {
	if err := authorize(s.metrics, actor, clearance.CapDeleteScript); err != nil {
		return err
	}
	if err := s.scriptRepo.SoftDelete(ctx, projectID, scriptID); err != nil {
		return err
	}
	s.logger.Info("Deleted script",
		zap.String("script_id", scriptID.String()),
		zap.String("actor", actor.String()))
	return nil
}

func (s *scriptService) Export(ctx context.Context, actor clearance.Actor, projectID, scriptID uuid.UUID) (*ExportFile, error) {
	script, risks, err := s.load(ctx, projectID, scriptID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	buf, err := export.Build(export.Report{Script: script, Risks: risks, GeneratedAt: now})
	if err != nil {
		return nil, fmt.Errorf("failed to build report: %w", err)
	}

	s.logger.Info("Exported clearance report",
		zap.String("script_id", script.ID.String()),
		zap.String("summary", export.Summary(risks)))

	return &ExportFile{Filename: export.Filename(script.Filename, now), Content: buf}, nil
}

func (s *scriptService) load(ctx context.Context, projectID, scriptID uuid.UUID) (*models.Script, []*models.RiskFlag, error) {
	script, err := s.scriptRepo.Get(ctx, projectID, scriptID)
	if err != nil {
		return nil, nil, err
	}
	risks, err := s.riskRepo.ListByScript(ctx, script.ID)
	if err != nil {
		return nil, nil, err
	}
	sortRisks(risks)
	return script, risks, nil
}

// sortRisks orders flags HIGH to LOW, then by page.
func sortRisks(risks []*models.RiskFlag) {
	slices.SortStableFunc(risks, func(a, b *models.RiskFlag) int {
		if c := cmp.Compare(a.Severity.Rank(), b.Severity.Rank()); c != 0 {
			return c
		}
		return cmp.Compare(a.PageNumber, b.PageNumber)
	})
}
