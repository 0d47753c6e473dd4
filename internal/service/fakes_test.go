package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sakif/secure-review/internal/analyzer"
	"github.com/sakif/secure-review/internal/apperror"
	"github.com/sakif/secure-review/internal/auth"
	"github.com/sakif/secure-review/internal/model"
	"github.com/sakif/secure-review/internal/repository"
)

// fakeStore keeps everything in maps and mimics the store's error
// translation: missing rows are ErrNotFound, duplicate emails ErrConflict.
// RunInTx snapshots the user table and restores it when fn fails.
type fakeStore struct {
	mu       sync.Mutex
	seq      int
	users    map[string]*model.User
	projects map[string]*model.Project
	analyses map[string]*model.Analysis
	vulns    []*model.Vulnerability

	// skipEmailCheck makes GetByEmail miss, to exercise the unique
	// constraint path of Register.
	skipEmailCheck bool
	createUserErr  error
	txCalls        int
}

var _ repository.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[string]*model.User),
		projects: make(map[string]*model.Project),
		analyses: make(map[string]*model.Analysis),
	}
}

func (f *fakeStore) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%03d", prefix, f.seq)
}

func (f *fakeStore) Users() repository.UserRepository {
	return fakeUsers{f}
}

func (f *fakeStore) Projects() repository.ProjectRepository {
	return fakeProjects{f}
}

func (f *fakeStore) Analyses() repository.AnalysisRepository {
	return fakeAnalyses{f}
}

// RunInTx fails on a cancelled context the way a database driver does.
func (f *fakeStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	f.txCalls++
	snapshot := make(map[string]model.User, len(f.users))
	for id, u := range f.users {
		snapshot[id] = *u
	}
	f.mu.Unlock()

	if err := fn(ctx, f); err != nil {
		f.mu.Lock()
		f.users = make(map[string]*model.User, len(snapshot))
		for id, u := range snapshot {
			u := u
			f.users[id] = &u
		}
		f.mu.Unlock()
		return err
	}
	return nil
}

type fakeUsers struct{ f *fakeStore }

func (r fakeUsers) Create(ctx context.Context, user *model.User) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if r.f.createUserErr != nil {
		return r.f.createUserErr
	}
	for _, u := range r.f.users {
		if u.Email == user.Email {
			return fmt.Errorf("fake: %w", apperror.Conflict("user", "email"))
		}
	}
	user.ID = r.f.nextID("user")
	user.CreatedAt = time.Now()
	copied := *user
	r.f.users[user.ID] = &copied
	return nil
}

func (r fakeUsers) GetByID(ctx context.Context, id string) (*model.User, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	u, ok := r.f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (r fakeUsers) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if !r.f.skipEmailCheck {
		for _, u := range r.f.users {
			if u.Email == email {
				copied := *u
				return &copied, nil
			}
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (r fakeUsers) Update(ctx context.Context, user *model.User) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if _, ok := r.f.users[user.ID]; !ok {
		return apperror.NotFound("user", user.ID)
	}
	copied := *user
	r.f.users[user.ID] = &copied
	return nil
}

type fakeProjects struct{ f *fakeStore }

func (r fakeProjects) Create(ctx context.Context, p *model.Project) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	p.ID = r.f.nextID("proj")
	p.CreatedAt = time.Now()
	copied := *p
	r.f.projects[p.ID] = &copied
	return nil
}

func (r fakeProjects) GetByID(ctx context.Context, id string) (*model.Project, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	p, ok := r.f.projects[id]
	if !ok {
		return nil, apperror.NotFound("project", id)
	}
	copied := *p
	return &copied, nil
}

func (r fakeProjects) ListByUser(ctx context.Context, userID string) ([]*model.Project, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	out := make([]*model.Project, 0)
	for _, p := range r.f.projects {
		if p.UserID == userID {
			copied := *p
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

type fakeAnalyses struct{ f *fakeStore }

func (r fakeAnalyses) Create(ctx context.Context, a *model.Analysis) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	a.ID = r.f.nextID("analysis")
	a.CreatedAt = time.Now()
	copied := *a
	r.f.analyses[a.ID] = &copied
	return nil
}

func (r fakeAnalyses) GetByID(ctx context.Context, id string) (*model.Analysis, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	a, ok := r.f.analyses[id]
	if !ok {
		return nil, apperror.NotFound("analysis", id)
	}
	copied := *a
	copied.Vulnerabilities = r.f.vulnsFor(id)
	return &copied, nil
}

func (r fakeAnalyses) Finish(ctx context.Context, a *model.Analysis) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	stored, ok := r.f.analyses[a.ID]
	if !ok {
		return apperror.NotFound("analysis", a.ID)
	}
	stored.Status = a.Status
	stored.Summary = a.Summary
	stored.SecurityScore = a.SecurityScore
	return nil
}

func (r fakeAnalyses) ListByProject(ctx context.Context, projectID string) ([]*model.Analysis, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	out := make([]*model.Analysis, 0)
	for _, a := range r.f.analyses {
		if a.ProjectID == projectID {
			copied := *a
			copied.Vulnerabilities = r.f.vulnsFor(a.ID)
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r fakeAnalyses) CreateVulnerabilities(ctx context.Context, vulns []*model.Vulnerability) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, v := range vulns {
		v.ID = r.f.nextID("vuln")
		copied := *v
		r.f.vulns = append(r.f.vulns, &copied)
	}
	return nil
}

// vulnsFor expects f.mu to be held.
func (f *fakeStore) vulnsFor(analysisID string) []*model.Vulnerability {
	out := make([]*model.Vulnerability, 0)
	for _, v := range f.vulns {
		if v.AnalysisID == analysisID {
			copied := *v
			out = append(out, &copied)
		}
	}
	return out
}

// fakeAnalyzer returns a fixed result and counts calls. When onCall is
// set it runs before the result is returned.
type fakeAnalyzer struct {
	result *analyzer.Result
	calls  int
	last   analyzer.Request
	onCall func()
}

func (f *fakeAnalyzer) AnalyzeCode(ctx context.Context, req analyzer.Request) *analyzer.Result {
	f.calls++
	f.last = req
	if f.onCall != nil {
		f.onCall()
	}
	return f.result
}

// fakeGitHub stands in for auth.GitHubProvider.
type fakeGitHub struct {
	profile   *auth.GitHubProfile
	err       error
	exchanges int
}

func (f *fakeGitHub) AuthURL(state string) string {
	return "https://github.com/login/oauth/authorize?client_id=test&scope=user%3Aemail&state=" + state
}

func (f *fakeGitHub) Exchange(ctx context.Context, code string) (*auth.GitHubProfile, error) {
	f.exchanges++
	if f.err != nil {
		return nil, f.err
	}
	copied := *f.profile
	return &copied, nil
}
