package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"docvault/internal/domain"
	"docvault/internal/domain/models"
	"docvault/internal/domain/services"
)

type versionFixture struct {
	docRepo     *fakeDocRepo
	versionRepo *fakeVersionRepo
	notifier    *fakeNotifier
	svc         services.VersionService
	doc         *models.Document
}

func newVersionFixture(t *testing.T) *versionFixture {
	t.Helper()

	docRepo := newFakeDocRepo()
	versionRepo := newFakeVersionRepo()
	notifier := &fakeNotifier{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := NewVersionService(docRepo, versionRepo, &fakeTxManager{}, notifier, logger)

	doc := &models.Document{Title: "Contract", Status: models.StatusDraft, CreatedBy: "user-1"}
	if err := docRepo.Create(context.Background(), doc); err != nil {
		t.Fatalf("create document: %v", err)
	}

	return &versionFixture{
		docRepo:     docRepo,
		versionRepo: versionRepo,
		notifier:    notifier,
		svc:         svc,
		doc:         doc,
	}
}

func (f *versionFixture) commit(t *testing.T, branch, comment string) *models.DocumentVersion {
	t.Helper()
	v, err := f.svc.CreateVersion(context.Background(), &services.CreateVersionRequest{
		DocumentID: f.doc.ID,
		ActorID:    "user-1",
		Branch:     branch,
		Comment:    comment,
		File:       models.FileRef{Handle: "blob-" + comment, Size: int64(len(comment)), Mime: "text/plain"},
	})
	if err != nil {
		t.Fatalf("create version on %q: %v", branch, err)
	}
	return v
}

func TestCreateVersion_FirstOnMain(t *testing.T) {
	f := newVersionFixture(t)

	v := f.commit(t, "", "initial upload")

	if v.VersionNumber != 1 {
		t.Errorf("version number = %d, want 1", v.VersionNumber)
	}
	if v.BranchName != models.DefaultBranch {
		t.Errorf("branch = %q, want %q", v.BranchName, models.DefaultBranch)
	}
	if !v.IsCurrent {
		t.Error("first version should be current")
	}
	if v.ParentVersionID != nil {
		t.Error("first version should have no parent")
	}

	if got := f.notifier.len(); got != 1 {
		t.Fatalf("notifier events = %d, want 1", got)
	}
	event := f.notifier.last()
	if event.VersionID != v.ID || event.DocumentID != f.doc.ID || !event.IsCurrent {
		t.Errorf("unexpected index event: %+v", event)
	}
	if event.ActorID != "user-1" {
		t.Errorf("event actor = %q, want user-1", event.ActorID)
	}
}

func TestCreateVersion_SecondCommitRetiresFirst(t *testing.T) {
	f := newVersionFixture(t)

	v1 := f.commit(t, "main", "one")
	v2 := f.commit(t, "main", "two")

	if v2.VersionNumber != 2 {
		t.Errorf("version number = %d, want 2", v2.VersionNumber)
	}
	if v2.ParentVersionID == nil || *v2.ParentVersionID != v1.ID {
		t.Errorf("parent = %v, want %s", v2.ParentVersionID, v1.ID)
	}

	stored1, _ := f.versionRepo.GetByID(context.Background(), v1.ID)
	if stored1.IsCurrent {
		t.Error("first version should no longer be current")
	}
	if n := f.versionRepo.countCurrent(f.doc.ID, "main"); n != 1 {
		t.Errorf("current count = %d, want 1", n)
	}
}

func TestCreateVersion_MonotonicNumbering(t *testing.T) {
	f := newVersionFixture(t)

	f.commit(t, "main", "one")
	f.commit(t, "main", "two")
	f.commit(t, "main", "three")

	history, err := f.svc.GetBranchHistory(context.Background(), f.doc.ID, "main")
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("history length = %d, want 3", len(history))
	}
	for i, v := range history {
		if v.VersionNumber != i+1 {
			t.Errorf("history[%d].VersionNumber = %d, want %d", i, v.VersionNumber, i+1)
		}
	}
}

func TestCreateVersion_UnknownBranchRejected(t *testing.T) {
	f := newVersionFixture(t)
	f.commit(t, "main", "one")

	_, err := f.svc.CreateVersion(context.Background(), &services.CreateVersionRequest{
		DocumentID: f.doc.ID,
		ActorID:    "user-1",
		Branch:     "ghost",
		File:       models.FileRef{Handle: "blob", Size: 1, Mime: "text/plain"},
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestCreateVersion_Validation(t *testing.T) {
	f := newVersionFixture(t)

	tests := []struct {
		name string
		req  *services.CreateVersionRequest
	}{
		{
			name: "missing actor",
			req: &services.CreateVersionRequest{
				DocumentID: f.doc.ID,
				File:       models.FileRef{Handle: "blob", Size: 1},
			},
		},
		{
			name: "missing document",
			req: &services.CreateVersionRequest{
				ActorID: "user-1",
				File:    models.FileRef{Handle: "blob", Size: 1},
			},
		},
		{
			name: "missing file handle",
			req: &services.CreateVersionRequest{
				DocumentID: f.doc.ID,
				ActorID:    "user-1",
			},
		},
		{
			name: "branch name with spaces",
			req: &services.CreateVersionRequest{
				DocumentID: f.doc.ID,
				ActorID:    "user-1",
				Branch:     "not a branch",
				File:       models.FileRef{Handle: "blob", Size: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateVersion(context.Background(), tt.req)
			if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
		})
	}
}

func TestCreateBranch_FromTip(t *testing.T) {
	f := newVersionFixture(t)
	v1 := f.commit(t, "main", "one")

	branched, err := f.svc.CreateBranch(context.Background(), &services.CreateBranchRequest{
		SourceVersionID: v1.ID,
		BranchName:      "feature",
		ActorID:         "user-2",
	})
	if err != nil {
		t.Fatalf("create branch: %v", err)
	}

	if branched.BranchName != "feature" {
		t.Errorf("branch = %q, want feature", branched.BranchName)
	}
	if branched.VersionNumber != 1 {
		t.Errorf("version number = %d, want 1", branched.VersionNumber)
	}
	if branched.ParentVersionID == nil || *branched.ParentVersionID != v1.ID {
		t.Errorf("parent = %v, want %s", branched.ParentVersionID, v1.ID)
	}
	if !branched.IsCurrent {
		t.Error("branched version should be current on its branch")
	}
	if branched.File.Handle != v1.File.Handle {
		t.Errorf("file handle = %q, want source's %q", branched.File.Handle, v1.File.Handle)
	}
	if branched.Comment != "Created branch feature" {
		t.Errorf("comment = %q, want default branch comment", branched.Comment)
	}

	// The source version stops being current for its own branch
	stored1, _ := f.versionRepo.GetByID(context.Background(), v1.ID)
	if stored1.IsCurrent {
		t.Error("source version should no longer be current after branching")
	}
}

func TestCreateBranch_FromHistoricalNode(t *testing.T) {
	f := newVersionFixture(t)
	v1 := f.commit(t, "main", "one")
	v2 := f.commit(t, "main", "two")

	if _, err := f.svc.CreateBranch(context.Background(), &services.CreateBranchRequest{
		SourceVersionID: v1.ID,
		BranchName:      "hotfix",
		ActorID:         "user-1",
	}); err != nil {
		t.Fatalf("create branch: %v", err)
	}

	// Branching from a non-tip node must not disturb the branch tip
	stored2, _ := f.versionRepo.GetByID(context.Background(), v2.ID)
	if !stored2.IsCurrent {
		t.Error("main tip should stay current when branching from an older version")
	}
	if n := f.versionRepo.countCurrent(f.doc.ID, "main"); n != 1 {
		t.Errorf("main current count = %d, want 1", n)
	}
}

func TestCreateBranch_DuplicateName(t *testing.T) {
	f := newVersionFixture(t)
	v1 := f.commit(t, "main", "one")

	if _, err := f.svc.CreateBranch(context.Background(), &services.CreateBranchRequest{
		SourceVersionID: v1.ID,
		BranchName:      "feature",
		ActorID:         "user-1",
	}); err != nil {
		t.Fatalf("first create branch: %v", err)
	}

	before := f.versionRepo.count()
	_, err := f.svc.CreateBranch(context.Background(), &services.CreateBranchRequest{
		SourceVersionID: v1.ID,
		BranchName:      "feature",
		ActorID:         "user-1",
	})

	if !errors.Is(err, domain.ErrBranchExists) {
		t.Fatalf("err = %v, want ErrBranchExists", err)
	}
	var beErr *domain.BranchExistsError
	if !errors.As(err, &beErr) || beErr.Branch != "feature" {
		t.Errorf("err = %v, want BranchExistsError for feature", err)
	}
	if f.versionRepo.count() != before {
		t.Error("failed branch creation must not write rows")
	}
}

func TestCreateBranch_Concurrent(t *testing.T) {
	f := newVersionFixture(t)
	v1 := f.commit(t, "main", "one")

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = f.svc.CreateBranch(context.Background(), &services.CreateBranchRequest{
				SourceVersionID: v1.ID,
				BranchName:      "race",
				ActorID:         "user-1",
			})
		}(i)
	}
	wg.Wait()

	var succeeded, conflicted int
	for _, err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, domain.ErrBranchExists):
			conflicted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 || conflicted != 1 {
		t.Errorf("succeeded=%d conflicted=%d, want exactly one of each", succeeded, conflicted)
	}
	if n := f.versionRepo.countCurrent(f.doc.ID, "race"); n != 1 {
		t.Errorf("race branch current count = %d, want 1", n)
	}
}

func TestMergeTo(t *testing.T) {
	f := newVersionFixture(t)
	mainV1 := f.commit(t, "main", "one")

	if _, err := f.svc.CreateBranch(context.Background(), &services.CreateBranchRequest{
		SourceVersionID: mainV1.ID,
		BranchName:      "feature",
		ActorID:         "user-1",
	}); err != nil {
		t.Fatalf("create branch: %v", err)
	}
	featureV2 := f.commit(t, "feature", "feature work")

	merged, err := f.svc.MergeTo(context.Background(), &services.MergeRequest{
		SourceVersionID: featureV2.ID,
		TargetVersionID: mainV1.ID,
		ActorID:         "user-2",
	})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}

	if merged.BranchName != "main" {
		t.Errorf("merged branch = %q, want main", merged.BranchName)
	}
	if merged.VersionNumber != 2 {
		t.Errorf("merged version number = %d, want 2", merged.VersionNumber)
	}
	if merged.ParentVersionID == nil || *merged.ParentVersionID != mainV1.ID {
		t.Errorf("merged parent = %v, want %s", merged.ParentVersionID, mainV1.ID)
	}
	if !merged.IsCurrent {
		t.Error("merged version should be current on main")
	}
	if merged.File.Handle != featureV2.File.Handle {
		t.Errorf("merged file = %q, want source's %q", merged.File.Handle, featureV2.File.Handle)
	}
	if merged.Comment != "Merged from feature version 2" {
		t.Errorf("comment = %q, want default merge comment", merged.Comment)
	}

	// Provenance: source points at the merge result
	storedSrc, _ := f.versionRepo.GetByID(context.Background(), featureV2.ID)
	if storedSrc.MergedToID == nil || *storedSrc.MergedToID != merged.ID {
		t.Errorf("source merged_to = %v, want %s", storedSrc.MergedToID, merged.ID)
	}
	// The source branch's current flag is untouched by the merge
	if !storedSrc.IsCurrent {
		t.Error("source version should stay current on its own branch")
	}

	storedMainV1, _ := f.versionRepo.GetByID(context.Background(), mainV1.ID)
	if storedMainV1.IsCurrent {
		t.Error("prior main current should be retired by the merge")
	}
}

func TestMergeTo_CrossDocument(t *testing.T) {
	f := newVersionFixture(t)
	v1 := f.commit(t, "main", "one")

	otherDoc := &models.Document{Title: "Other", Status: models.StatusDraft, CreatedBy: "user-1"}
	if err := f.docRepo.Create(context.Background(), otherDoc); err != nil {
		t.Fatalf("create other document: %v", err)
	}
	otherV, err := f.svc.CreateVersion(context.Background(), &services.CreateVersionRequest{
		DocumentID: otherDoc.ID,
		ActorID:    "user-1",
		File:       models.FileRef{Handle: "other-blob", Size: 1, Mime: "text/plain"},
	})
	if err != nil {
		t.Fatalf("create version on other document: %v", err)
	}

	before := f.versionRepo.count()
	_, err = f.svc.MergeTo(context.Background(), &services.MergeRequest{
		SourceVersionID: otherV.ID,
		TargetVersionID: v1.ID,
		ActorID:         "user-1",
	})

	var cdErr *domain.CrossDocumentMergeError
	if !errors.As(err, &cdErr) {
		t.Fatalf("err = %v, want CrossDocumentMergeError", err)
	}
	if !errors.Is(err, domain.ErrInvalidReference) {
		t.Errorf("err should match ErrInvalidReference")
	}
	if f.versionRepo.count() != before {
		t.Error("failed merge must not write rows")
	}
}

func TestMergeTo_SecondMergeOverwritesProvenance(t *testing.T) {
	f := newVersionFixture(t)
	mainV1 := f.commit(t, "main", "one")

	if _, err := f.svc.CreateBranch(context.Background(), &services.CreateBranchRequest{
		SourceVersionID: mainV1.ID,
		BranchName:      "feature",
		ActorID:         "user-1",
	}); err != nil {
		t.Fatalf("create feature: %v", err)
	}
	featureV2 := f.commit(t, "feature", "work")

	if _, err := f.svc.CreateBranch(context.Background(), &services.CreateBranchRequest{
		SourceVersionID: featureV2.ID,
		BranchName:      "release",
		ActorID:         "user-1",
	}); err != nil {
		t.Fatalf("create release: %v", err)
	}
	releaseTip, err := f.versionRepo.GetCurrent(context.Background(), f.doc.ID, "release")
	if err != nil {
		t.Fatalf("release tip: %v", err)
	}

	first, err := f.svc.MergeTo(context.Background(), &services.MergeRequest{
		SourceVersionID: featureV2.ID,
		TargetVersionID: mainV1.ID,
		ActorID:         "user-1",
	})
	if err != nil {
		t.Fatalf("first merge: %v", err)
	}

	second, err := f.svc.MergeTo(context.Background(), &services.MergeRequest{
		SourceVersionID: featureV2.ID,
		TargetVersionID: releaseTip.ID,
		ActorID:         "user-1",
	})
	if err != nil {
		t.Fatalf("second merge: %v", err)
	}

	stored, _ := f.versionRepo.GetByID(context.Background(), featureV2.ID)
	if stored.MergedToID == nil || *stored.MergedToID != second.ID {
		t.Errorf("merged_to = %v, want latest merge %s (first was %s)", stored.MergedToID, second.ID, first.ID)
	}
}

func TestBranchIsolation(t *testing.T) {
	f := newVersionFixture(t)
	mainV1 := f.commit(t, "main", "one")
	mainV2 := f.commit(t, "main", "two")

	if _, err := f.svc.CreateBranch(context.Background(), &services.CreateBranchRequest{
		SourceVersionID: mainV1.ID,
		BranchName:      "feature",
		ActorID:         "user-1",
	}); err != nil {
		t.Fatalf("create branch: %v", err)
	}
	f.commit(t, "feature", "feature work")
	f.commit(t, "feature", "more feature work")

	// Activity on feature never touches main's current pointer
	storedMainV2, _ := f.versionRepo.GetByID(context.Background(), mainV2.ID)
	if !storedMainV2.IsCurrent {
		t.Error("main tip lost its current flag to activity on another branch")
	}
	if n := f.versionRepo.countCurrent(f.doc.ID, "main"); n != 1 {
		t.Errorf("main current count = %d, want 1", n)
	}
	if n := f.versionRepo.countCurrent(f.doc.ID, "feature"); n != 1 {
		t.Errorf("feature current count = %d, want 1", n)
	}
}

func TestRestoreVersion(t *testing.T) {
	f := newVersionFixture(t)
	v1 := f.commit(t, "main", "one")
	v2 := f.commit(t, "main", "two")

	req := &services.RestoreRequest{DocumentID: f.doc.ID, VersionID: v1.ID, ActorID: "user-1"}
	if err := f.svc.RestoreVersion(context.Background(), req); err != nil {
		t.Fatalf("restore: %v", err)
	}

	doc, _ := f.docRepo.GetByID(context.Background(), f.doc.ID)
	if doc.CurrentVersionID == nil || *doc.CurrentVersionID != v1.ID {
		t.Errorf("document current pointer = %v, want %s", doc.CurrentVersionID, v1.ID)
	}

	// Restore is metadata-only: branch history and flags are untouched
	stored2, _ := f.versionRepo.GetByID(context.Background(), v2.ID)
	if !stored2.IsCurrent {
		t.Error("restore must not alter per-branch current flags")
	}

	// Idempotent: a second restore leaves identical state
	if err := f.svc.RestoreVersion(context.Background(), req); err != nil {
		t.Fatalf("second restore: %v", err)
	}
	docAgain, _ := f.docRepo.GetByID(context.Background(), f.doc.ID)
	if docAgain.CurrentVersionID == nil || *docAgain.CurrentVersionID != v1.ID {
		t.Errorf("second restore changed the pointer: %v", docAgain.CurrentVersionID)
	}
}

func TestRestoreVersion_ForeignVersion(t *testing.T) {
	f := newVersionFixture(t)
	f.commit(t, "main", "one")

	otherDoc := &models.Document{Title: "Other", Status: models.StatusDraft, CreatedBy: "user-1"}
	if err := f.docRepo.Create(context.Background(), otherDoc); err != nil {
		t.Fatalf("create other document: %v", err)
	}
	otherV, err := f.svc.CreateVersion(context.Background(), &services.CreateVersionRequest{
		DocumentID: otherDoc.ID,
		ActorID:    "user-1",
		File:       models.FileRef{Handle: "other-blob", Size: 1, Mime: "text/plain"},
	})
	if err != nil {
		t.Fatalf("create version: %v", err)
	}

	err = f.svc.RestoreVersion(context.Background(), &services.RestoreRequest{
		DocumentID: f.doc.ID,
		VersionID:  otherV.ID,
		ActorID:    "user-1",
	})

	var fvErr *domain.ForeignVersionError
	if !errors.As(err, &fvErr) {
		t.Fatalf("err = %v, want ForeignVersionError", err)
	}
	doc, _ := f.docRepo.GetByID(context.Background(), f.doc.ID)
	if doc.CurrentVersionID != nil {
		t.Error("failed restore must not move the pointer")
	}
}

func TestRestoreVersion_SkipSideEffects(t *testing.T) {
	f := newVersionFixture(t)
	v1 := f.commit(t, "main", "one")

	before := f.notifier.len()
	err := f.svc.RestoreVersion(context.Background(), &services.RestoreRequest{
		DocumentID:      f.doc.ID,
		VersionID:       v1.ID,
		ActorID:         "user-1",
		SkipSideEffects: true,
	})
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if f.notifier.len() != before {
		t.Error("skip_side_effects must suppress the index notification")
	}
}

func TestListBranches(t *testing.T) {
	f := newVersionFixture(t)
	v1 := f.commit(t, "main", "one")
	f.commit(t, "main", "two")

	if _, err := f.svc.CreateBranch(context.Background(), &services.CreateBranchRequest{
		SourceVersionID: v1.ID,
		BranchName:      "feature",
		ActorID:         "user-1",
	}); err != nil {
		t.Fatalf("create branch: %v", err)
	}

	branches, err := f.svc.ListBranches(context.Background(), f.doc.ID)
	if err != nil {
		t.Fatalf("list branches: %v", err)
	}
	if len(branches) != 2 {
		t.Fatalf("branches = %d, want 2", len(branches))
	}
	if branches[0].Name != "feature" || branches[1].Name != "main" {
		t.Errorf("branch order = [%s %s], want [feature main]", branches[0].Name, branches[1].Name)
	}
	if branches[1].VersionCount != 2 || branches[1].TipNumber != 2 {
		t.Errorf("main summary = %+v, want 2 versions with tip 2", branches[1])
	}
}

func TestCompareVersions(t *testing.T) {
	f := newVersionFixture(t)
	v1 := f.commit(t, "main", "a")
	v2 := f.commit(t, "main", "longer comment")

	cmp, err := f.svc.CompareVersions(context.Background(), v1.ID, v2.ID)
	if err != nil {
		t.Fatalf("compare: %v", err)
	}

	if cmp.Left.VersionNumber != 1 || cmp.Right.VersionNumber != 2 {
		t.Errorf("numbers = %d/%d, want 1/2", cmp.Left.VersionNumber, cmp.Right.VersionNumber)
	}
	if cmp.SizeDelta != v2.File.Size-v1.File.Size {
		t.Errorf("size delta = %d, want %d", cmp.SizeDelta, v2.File.Size-v1.File.Size)
	}
	if !cmp.SameBranch {
		t.Error("versions are on the same branch")
	}
	if cmp.SameFile {
		t.Error("file handles differ")
	}
	if cmp.Left.CreatedBy != "user-1" {
		t.Errorf("left author = %q, want user-1", cmp.Left.CreatedBy)
	}
}

func TestCompareVersions_CrossDocument(t *testing.T) {
	f := newVersionFixture(t)
	v1 := f.commit(t, "main", "one")

	otherDoc := &models.Document{Title: "Other", Status: models.StatusDraft, CreatedBy: "user-1"}
	if err := f.docRepo.Create(context.Background(), otherDoc); err != nil {
		t.Fatalf("create other document: %v", err)
	}
	otherV, err := f.svc.CreateVersion(context.Background(), &services.CreateVersionRequest{
		DocumentID: otherDoc.ID,
		ActorID:    "user-1",
		File:       models.FileRef{Handle: "blob", Size: 1, Mime: "text/plain"},
	})
	if err != nil {
		t.Fatalf("create version: %v", err)
	}

	if _, err := f.svc.CompareVersions(context.Background(), v1.ID, otherV.ID); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}
