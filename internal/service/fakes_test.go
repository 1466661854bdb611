package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"docvault/internal/domain"
	"docvault/internal/domain/models"
	"docvault/internal/domain/repositories"
	"docvault/internal/domain/services"
)

// fakeTxManager serializes transactional sections with a mutex, the same
// ordering guarantee the row locks give the real implementation.
type fakeTxManager struct {
	mu sync.Mutex
}

func (m *fakeTxManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx)
}

// fakeDocRepo is an in-memory DocumentRepository
type fakeDocRepo struct {
	mu     sync.Mutex
	nextID int
	docs   map[string]*models.Document
}

func newFakeDocRepo() *fakeDocRepo {
	return &fakeDocRepo{docs: make(map[string]*models.Document)}
}

func (r *fakeDocRepo) Create(ctx context.Context, doc *models.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	doc.ID = fmt.Sprintf("doc-%d", r.nextID)
	doc.CreatedAt = time.Now()
	doc.UpdatedAt = doc.CreatedAt
	stored := *doc
	r.docs[doc.ID] = &stored
	return nil
}

func (r *fakeDocRepo) GetByID(ctx context.Context, id string) (*models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("document %s not found", id)}
	}
	copied := *doc
	return &copied, nil
}

func (r *fakeDocRepo) List(ctx context.Context) ([]models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Document{}
	for _, doc := range r.docs {
		out = append(out, *doc)
	}
	return out, nil
}

func (r *fakeDocRepo) Update(ctx context.Context, doc *models.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[doc.ID]; !ok {
		return &domain.NotFoundError{Message: fmt.Sprintf("document %s not found", doc.ID)}
	}
	stored := *doc
	r.docs[doc.ID] = &stored
	return nil
}

func (r *fakeDocRepo) SoftDelete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[id]; !ok {
		return &domain.NotFoundError{Message: fmt.Sprintf("document %s not found", id)}
	}
	delete(r.docs, id)
	return nil
}

func (r *fakeDocRepo) SetCurrentVersion(ctx context.Context, documentID, versionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[documentID]
	if !ok {
		return &domain.NotFoundError{Message: fmt.Sprintf("document %s not found", documentID)}
	}
	doc.CurrentVersionID = &versionID
	return nil
}

func (r *fakeDocRepo) Lock(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[id]; !ok {
		return &domain.NotFoundError{Message: fmt.Sprintf("document %s not found", id)}
	}
	return nil
}

// fakeVersionRepo is an in-memory VersionRepository honoring the same
// contract as the postgres implementation: insert rejects cross-document
// lineage pointers and duplicate numbers, SetCurrent/ClearCurrent are the
// only writers of is_current.
type fakeVersionRepo struct {
	mu       sync.Mutex
	nextID   int
	order    []string
	versions map[string]*models.DocumentVersion
}

func newFakeVersionRepo() *fakeVersionRepo {
	return &fakeVersionRepo{versions: make(map[string]*models.DocumentVersion)}
}

func (r *fakeVersionRepo) Insert(ctx context.Context, v *models.DocumentVersion) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, refID := range []*string{v.ParentVersionID, v.MergedToID} {
		if refID == nil {
			continue
		}
		ref, ok := r.versions[*refID]
		if !ok {
			return &domain.NotFoundError{Message: fmt.Sprintf("version %s not found", *refID)}
		}
		if ref.DocumentID != v.DocumentID {
			return &domain.InvalidReferenceError{
				Message: fmt.Sprintf("version %s belongs to another document", *refID),
			}
		}
	}

	for _, existing := range r.versions {
		if existing.DocumentID == v.DocumentID &&
			existing.BranchName == v.BranchName &&
			existing.VersionNumber == v.VersionNumber {
			return &domain.TransientError{Err: fmt.Errorf("duplicate version number %d", v.VersionNumber)}
		}
	}

	r.nextID++
	v.ID = fmt.Sprintf("v-%d", r.nextID)
	v.CreatedAt = time.Now()
	v.IsCurrent = false
	stored := *v
	r.versions[v.ID] = &stored
	r.order = append(r.order, v.ID)
	return nil
}

func (r *fakeVersionRepo) GetByID(ctx context.Context, id string) (*models.DocumentVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.versions[id]
	if !ok {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("version %s not found", id)}
	}
	copied := *v
	return &copied, nil
}

func (r *fakeVersionRepo) LockBranch(ctx context.Context, documentID, branch string) error {
	return nil
}

func (r *fakeVersionRepo) NextVersionNumber(ctx context.Context, documentID, branch string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	max := 0
	for _, v := range r.versions {
		if v.DocumentID == documentID && v.BranchName == branch && v.VersionNumber > max {
			max = v.VersionNumber
		}
	}
	return max + 1, nil
}

func (r *fakeVersionRepo) BranchExists(ctx context.Context, documentID, branch string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.versions {
		if v.DocumentID == documentID && v.BranchName == branch {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeVersionRepo) SetCurrent(ctx context.Context, v *models.DocumentVersion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	target, ok := r.versions[v.ID]
	if !ok {
		return &domain.NotFoundError{Message: fmt.Sprintf("version %s not found", v.ID)}
	}
	for _, other := range r.versions {
		if other.DocumentID == target.DocumentID && other.BranchName == target.BranchName && other.ID != target.ID {
			other.IsCurrent = false
		}
	}
	target.IsCurrent = true
	v.IsCurrent = true
	return nil
}

func (r *fakeVersionRepo) ClearCurrent(ctx context.Context, v *models.DocumentVersion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if stored, ok := r.versions[v.ID]; ok {
		stored.IsCurrent = false
	}
	v.IsCurrent = false
	return nil
}

func (r *fakeVersionRepo) GetCurrent(ctx context.Context, documentID, branch string) (*models.DocumentVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.versions {
		if v.DocumentID == documentID && v.BranchName == branch && v.IsCurrent {
			copied := *v
			return &copied, nil
		}
	}
	return nil, &domain.NotFoundError{Message: fmt.Sprintf("no current version on %s/%s", documentID, branch)}
}

func (r *fakeVersionRepo) SetMergedTo(ctx context.Context, versionID, mergedToID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.versions[versionID]
	if !ok {
		return &domain.NotFoundError{Message: fmt.Sprintf("version %s not found", versionID)}
	}
	v.MergedToID = &mergedToID
	return nil
}

func (r *fakeVersionRepo) ListBranchHistory(ctx context.Context, documentID, branch string) ([]models.DocumentVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.DocumentVersion{}
	for _, id := range r.order {
		v := r.versions[id]
		if v.DocumentID == documentID && v.BranchName == branch {
			out = append(out, *v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VersionNumber < out[j].VersionNumber })
	return out, nil
}

func (r *fakeVersionRepo) ListBranches(ctx context.Context, documentID string) ([]models.Branch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byBranch := map[string]*models.Branch{}
	for _, id := range r.order {
		v := r.versions[id]
		if v.DocumentID != documentID {
			continue
		}
		b, ok := byBranch[v.BranchName]
		if !ok {
			b = &models.Branch{Name: v.BranchName}
			byBranch[v.BranchName] = b
		}
		b.VersionCount++
		if v.IsCurrent {
			b.TipVersionID = v.ID
			b.TipNumber = v.VersionNumber
			b.LastCommitted = v.CreatedAt
		}
	}
	out := []models.Branch{}
	for _, b := range byBranch {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// countCurrent tallies versions flagged current on (document, branch)
func (r *fakeVersionRepo) countCurrent(documentID, branch string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, v := range r.versions {
		if v.DocumentID == documentID && v.BranchName == branch && v.IsCurrent {
			n++
		}
	}
	return n
}

func (r *fakeVersionRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.versions)
}

// fakeNotifier records emitted index events synchronously
type fakeNotifier struct {
	mu     sync.Mutex
	events []services.IndexEvent
}

func (n *fakeNotifier) VersionChanged(ctx context.Context, event *services.IndexEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, *event)
}

func (n *fakeNotifier) len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

func (n *fakeNotifier) last() services.IndexEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.events[len(n.events)-1]
}
