package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"docvault/internal/config"
	"docvault/internal/domain"
	"docvault/internal/domain/models"
	"docvault/internal/domain/repositories"
	"docvault/internal/domain/services"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// branchNamePattern constrains branch names to path-safe identifiers.
var branchNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._/-]*$`)

// versionService implements the VersionService interface
type versionService struct {
	docRepo     repositories.DocumentRepository
	versionRepo repositories.VersionRepository
	txManager   repositories.TransactionManager
	notifier    services.IndexNotifier
	logger      *slog.Logger
}

// NewVersionService creates a new version lifecycle service
func NewVersionService(
	docRepo repositories.DocumentRepository,
	versionRepo repositories.VersionRepository,
	txManager repositories.TransactionManager,
	notifier services.IndexNotifier,
	logger *slog.Logger,
) services.VersionService {
	return &versionService{
		docRepo:     docRepo,
		versionRepo: versionRepo,
		txManager:   txManager,
		notifier:    notifier,
		logger:      logger,
	}
}

// CreateVersion commits new file content as the next version of a branch.
// The whole operation - branch lock, number assignment, insert, current
// flip - runs in one transaction; the index notification fires only after
// commit.
func (s *versionService) CreateVersion(ctx context.Context, req *services.CreateVersionRequest) (*models.DocumentVersion, error) {
	if err := s.validateCreateVersion(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	branch := req.Branch
	if branch == "" {
		branch = models.DefaultBranch
	}

	if _, err := s.docRepo.GetByID(ctx, req.DocumentID); err != nil {
		return nil, err
	}

	version := &models.DocumentVersion{
		DocumentID: req.DocumentID,
		BranchName: branch,
		File:       req.File,
		Comment:    strings.TrimSpace(req.Comment),
		CreatedBy:  req.ActorID,
	}

	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.docRepo.Lock(txCtx, req.DocumentID); err != nil {
			return err
		}
		if err := s.versionRepo.LockBranch(txCtx, req.DocumentID, branch); err != nil {
			return err
		}

		// Committing to a branch nobody created is only valid for the
		// default branch of a fresh document.
		if branch != models.DefaultBranch {
			exists, err := s.versionRepo.BranchExists(txCtx, req.DocumentID, branch)
			if err != nil {
				return err
			}
			if !exists {
				return &domain.NotFoundError{
					Message: fmt.Sprintf("branch '%s' of document %s not found", branch, req.DocumentID),
				}
			}
		}

		next, err := s.versionRepo.NextVersionNumber(txCtx, req.DocumentID, branch)
		if err != nil {
			return err
		}
		version.VersionNumber = next

		// New commits descend from the branch tip when one exists
		if tip, err := s.versionRepo.GetCurrent(txCtx, req.DocumentID, branch); err == nil {
			version.ParentVersionID = &tip.ID
		}

		if err := s.versionRepo.Insert(txCtx, version); err != nil {
			return err
		}
		return s.versionRepo.SetCurrent(txCtx, version)
	})
	if err != nil {
		return nil, err
	}

	s.notifyVersion(ctx, version, req.ActorID)
	return version, nil
}

// CreateBranch cuts a new branch from an existing version. Only the most
// recent file state is copied forward (by handle, not by bytes); the new
// branch starts at version 1 with the source as its parent.
func (s *versionService) CreateBranch(ctx context.Context, req *services.CreateBranchRequest) (*models.DocumentVersion, error) {
	if err := s.validateCreateBranch(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	source, err := s.versionRepo.GetByID(ctx, req.SourceVersionID)
	if err != nil {
		return nil, err
	}

	comment := strings.TrimSpace(req.Comment)
	if comment == "" {
		comment = fmt.Sprintf("Created branch %s", req.BranchName)
	}

	version := &models.DocumentVersion{
		DocumentID:      source.DocumentID,
		VersionNumber:   1,
		BranchName:      req.BranchName,
		File:            source.File,
		Comment:         comment,
		CreatedBy:       req.ActorID,
		ParentVersionID: &source.ID,
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		// Document-level lock: a brand-new branch has no rows to lock, so
		// two concurrent creations of the same branch name must serialize
		// here. The loser then fails the existence check.
		if err := s.docRepo.Lock(txCtx, source.DocumentID); err != nil {
			return err
		}

		exists, err := s.versionRepo.BranchExists(txCtx, source.DocumentID, req.BranchName)
		if err != nil {
			return err
		}
		if exists {
			return &domain.BranchExistsError{DocumentID: source.DocumentID, Branch: req.BranchName}
		}

		if err := s.versionRepo.LockBranch(txCtx, source.DocumentID, source.BranchName); err != nil {
			return err
		}

		// The source version becomes a historical node of its own branch;
		// its branch keeps no replacement tip until the next commit there.
		if err := s.versionRepo.ClearCurrent(txCtx, source); err != nil {
			return err
		}

		if err := s.versionRepo.Insert(txCtx, version); err != nil {
			return err
		}
		return s.versionRepo.SetCurrent(txCtx, version)
	})
	if err != nil {
		return nil, err
	}

	s.notifyVersion(ctx, version, req.ActorID)
	return version, nil
}

// MergeTo appends the source version's file state to the target branch and
// records provenance on the source. Administrative reconciliation only: no
// content-level conflict resolution happens here.
func (s *versionService) MergeTo(ctx context.Context, req *services.MergeRequest) (*models.DocumentVersion, error) {
	if err := s.validateMerge(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	source, err := s.versionRepo.GetByID(ctx, req.SourceVersionID)
	if err != nil {
		return nil, err
	}
	target, err := s.versionRepo.GetByID(ctx, req.TargetVersionID)
	if err != nil {
		return nil, err
	}

	if source.DocumentID != target.DocumentID {
		return nil, &domain.CrossDocumentMergeError{
			SourceDocumentID: source.DocumentID,
			TargetDocumentID: target.DocumentID,
		}
	}

	comment := strings.TrimSpace(req.Comment)
	if comment == "" {
		comment = fmt.Sprintf("Merged from %s version %d", source.BranchName, source.VersionNumber)
	}

	version := &models.DocumentVersion{
		DocumentID:      target.DocumentID,
		BranchName:      target.BranchName,
		File:            source.File,
		Comment:         comment,
		CreatedBy:       req.ActorID,
		ParentVersionID: &target.ID,
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.docRepo.Lock(txCtx, target.DocumentID); err != nil {
			return err
		}
		if err := s.versionRepo.LockBranch(txCtx, target.DocumentID, target.BranchName); err != nil {
			return err
		}

		next, err := s.versionRepo.NextVersionNumber(txCtx, target.DocumentID, target.BranchName)
		if err != nil {
			return err
		}
		version.VersionNumber = next

		if err := s.versionRepo.Insert(txCtx, version); err != nil {
			return err
		}
		if err := s.versionRepo.SetCurrent(txCtx, version); err != nil {
			return err
		}

		// Provenance pointer on the source. A second merge of the same
		// version overwrites it; lineage pointers are annotations, not a
		// graph traversed for correctness.
		return s.versionRepo.SetMergedTo(txCtx, source.ID, version.ID)
	})
	if err != nil {
		return nil, err
	}

	source.MergedToID = &version.ID
	s.notifyVersion(ctx, version, req.ActorID)
	return version, nil
}

// RestoreVersion points the document's current-version metadata at an
// historical version. Branch history and per-branch current flags are
// untouched; calling restore twice with the same version is a no-op the
// second time.
func (s *versionService) RestoreVersion(ctx context.Context, req *services.RestoreRequest) error {
	if err := s.validateRestore(req); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	version, err := s.versionRepo.GetByID(ctx, req.VersionID)
	if err != nil {
		return err
	}
	if version.DocumentID != req.DocumentID {
		return &domain.ForeignVersionError{DocumentID: req.DocumentID, VersionID: req.VersionID}
	}

	if err := s.docRepo.SetCurrentVersion(ctx, req.DocumentID, req.VersionID); err != nil {
		return err
	}

	if !req.SkipSideEffects {
		s.notifyVersion(ctx, version, req.ActorID)
	}
	return nil
}

// GetVersion retrieves a single version by id
func (s *versionService) GetVersion(ctx context.Context, versionID string) (*models.DocumentVersion, error) {
	if versionID == "" {
		return nil, &domain.ValidationError{Message: "version id is required"}
	}
	return s.versionRepo.GetByID(ctx, versionID)
}

// GetBranchHistory lists a branch's versions ascending by number
func (s *versionService) GetBranchHistory(ctx context.Context, documentID, branch string) ([]models.DocumentVersion, error) {
	if documentID == "" {
		return nil, &domain.ValidationError{Message: "document id is required"}
	}
	if branch == "" {
		branch = models.DefaultBranch
	}

	if _, err := s.docRepo.GetByID(ctx, documentID); err != nil {
		return nil, err
	}

	return s.versionRepo.ListBranchHistory(ctx, documentID, branch)
}

// ListBranches summarizes the document's branches and their tips
func (s *versionService) ListBranches(ctx context.Context, documentID string) ([]models.Branch, error) {
	if documentID == "" {
		return nil, &domain.ValidationError{Message: "document id is required"}
	}

	if _, err := s.docRepo.GetByID(ctx, documentID); err != nil {
		return nil, err
	}

	return s.versionRepo.ListBranches(ctx, documentID)
}

// CompareVersions returns a metadata diff between two versions of the
// same document
func (s *versionService) CompareVersions(ctx context.Context, versionID, otherVersionID string) (*models.VersionComparison, error) {
	if versionID == "" || otherVersionID == "" {
		return nil, &domain.ValidationError{Message: "two version ids are required"}
	}

	left, err := s.versionRepo.GetByID(ctx, versionID)
	if err != nil {
		return nil, err
	}
	right, err := s.versionRepo.GetByID(ctx, otherVersionID)
	if err != nil {
		return nil, err
	}

	if left.DocumentID != right.DocumentID {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("versions %s and %s belong to different documents", versionID, otherVersionID),
		}
	}

	return &models.VersionComparison{
		DocumentID: left.DocumentID,
		Left:       models.SummarizeVersion(left),
		Right:      models.SummarizeVersion(right),
		SizeDelta:  right.File.Size - left.File.Size,
		SameBranch: left.BranchName == right.BranchName,
		SameFile:   left.File.Handle == right.File.Handle,
	}, nil
}

// notifyVersion emits the best-effort index notification. The notifier
// owns failure handling; nothing here can fail a committed operation.
func (s *versionService) notifyVersion(ctx context.Context, v *models.DocumentVersion, actorID string) {
	s.notifier.VersionChanged(ctx, &services.IndexEvent{
		DocumentID:    v.DocumentID,
		VersionID:     v.ID,
		VersionNumber: v.VersionNumber,
		BranchName:    v.BranchName,
		IsCurrent:     v.IsCurrent,
		Comment:       v.Comment,
		ActorID:       actorID,
		CreatedAt:     v.CreatedAt,
	})
}

func (s *versionService) validateCreateVersion(req *services.CreateVersionRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.DocumentID, validation.Required),
		validation.Field(&req.ActorID, validation.Required),
		validation.Field(&req.Branch,
			validation.Length(0, config.MaxBranchNameLength),
			validation.Match(branchNamePattern).Error("branch name has invalid characters"),
		),
		validation.Field(&req.Comment, validation.Length(0, config.MaxCommentLength)),
		validation.Field(&req.File, validation.By(validateFileRef)),
	)
}

func (s *versionService) validateCreateBranch(req *services.CreateBranchRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.SourceVersionID, validation.Required),
		validation.Field(&req.ActorID, validation.Required),
		validation.Field(&req.BranchName,
			validation.Required,
			validation.Length(1, config.MaxBranchNameLength),
			validation.Match(branchNamePattern).Error("branch name has invalid characters"),
		),
		validation.Field(&req.Comment, validation.Length(0, config.MaxCommentLength)),
	)
}

func (s *versionService) validateMerge(req *services.MergeRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.SourceVersionID, validation.Required),
		validation.Field(&req.TargetVersionID, validation.Required),
		validation.Field(&req.ActorID, validation.Required),
		validation.Field(&req.Comment, validation.Length(0, config.MaxCommentLength)),
	)
}

func (s *versionService) validateRestore(req *services.RestoreRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.DocumentID, validation.Required),
		validation.Field(&req.VersionID, validation.Required),
		validation.Field(&req.ActorID, validation.Required),
	)
}

func validateFileRef(value interface{}) error {
	ref, ok := value.(models.FileRef)
	if !ok {
		return fmt.Errorf("expected a file reference")
	}
	if ref.Handle == "" {
		return fmt.Errorf("file handle is required")
	}
	if ref.Size < 0 {
		return fmt.Errorf("file size cannot be negative")
	}
	return nil
}
