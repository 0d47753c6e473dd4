package sqlstore

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/secure-review/internal/apperror"
	"github.com/sakif/secure-review/internal/model"
)

func TestProjectCreateAndList(t *testing.T) {
	store := newTestDB(t).Store()
	ctx := context.Background()

	alice := createTestUser(t, store.Users(), "alice@example.com")
	bob := createTestUser(t, store.Users(), "bob@example.com")

	for _, name := range []string{"api", "web"} {
		p := &model.Project{UserID: alice.ID, Name: name}
		if err := store.Projects().Create(ctx, p); err != nil {
			t.Fatalf("Create(%s) error = %v", name, err)
		}
	}
	bobProject := &model.Project{UserID: bob.ID, Name: "cli", RepoURL: strPtr("https://github.com/bob/cli")}
	if err := store.Projects().Create(ctx, bobProject); err != nil {
		t.Fatalf("Create(cli) error = %v", err)
	}

	projects, err := store.Projects().ListByUser(ctx, alice.ID)
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(projects) != 2 {
		t.Fatalf("ListByUser() returned %d projects, want 2", len(projects))
	}
	if projects[0].Name != "web" {
		t.Errorf("first project = %q, want newest (web)", projects[0].Name)
	}

	got, err := store.Projects().GetByID(ctx, bobProject.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.RepoURL == nil || *got.RepoURL != "https://github.com/bob/cli" {
		t.Errorf("RepoURL = %v, want repo url", got.RepoURL)
	}

	empty, err := store.Projects().ListByUser(ctx, "nobody")
	if err != nil {
		t.Fatalf("ListByUser(nobody) error = %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("ListByUser(nobody) = %d projects, want 0", len(empty))
	}
}

func TestProjectCreate_UnknownUser(t *testing.T) {
	store := newTestDB(t).Store()

	err := store.Projects().Create(context.Background(), &model.Project{UserID: "missing", Name: "orphan"})
	if err == nil {
		t.Fatal("Create() should fail the foreign key check")
	}
}

func TestAnalysisLifecycle(t *testing.T) {
	store := newTestDB(t).Store()
	ctx := context.Background()

	user := createTestUser(t, store.Users(), "owner@example.com")
	project := &model.Project{UserID: user.ID, Name: "api"}
	if err := store.Projects().Create(ctx, project); err != nil {
		t.Fatalf("project Create() error = %v", err)
	}

	analysis := &model.Analysis{ProjectID: project.ID}
	if err := store.Analyses().Create(ctx, analysis); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if analysis.Status != model.AnalysisPending {
		t.Errorf("Status = %q, want pending", analysis.Status)
	}

	vulns := []*model.Vulnerability{
		{AnalysisID: analysis.ID, Type: "SQL Injection", Severity: "High", File: "db.py", Line: "12", Description: "raw query"},
		{AnalysisID: analysis.ID, Type: "XSS", Severity: "Medium", File: "db.py", Line: "40", Description: "unescaped output"},
	}
	if err := store.Analyses().CreateVulnerabilities(ctx, vulns); err != nil {
		t.Fatalf("CreateVulnerabilities() error = %v", err)
	}

	analysis.Status = model.AnalysisCompleted
	analysis.Summary = "two issues"
	analysis.SecurityScore = 55
	if err := store.Analyses().Finish(ctx, analysis); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	got, err := store.Analyses().GetByID(ctx, analysis.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Status != model.AnalysisCompleted || got.SecurityScore != 55 || got.Summary != "two issues" {
		t.Errorf("GetByID() = %+v, want completed/55/two issues", got)
	}
	if len(got.Vulnerabilities) != 2 || got.Vulnerabilities[0].Type != "SQL Injection" {
		t.Errorf("Vulnerabilities = %+v, want both rows in insert order", got.Vulnerabilities)
	}

	list, err := store.Analyses().ListByProject(ctx, project.ID)
	if err != nil {
		t.Fatalf("ListByProject() error = %v", err)
	}
	if len(list) != 1 || len(list[0].Vulnerabilities) != 2 {
		t.Errorf("ListByProject() = %+v, want one analysis with two vulnerabilities", list)
	}
	if got.Vulnerabilities[1].Line != "40" {
		t.Errorf("second vulnerability line = %q, want 40", got.Vulnerabilities[1].Line)
	}
}

func TestAnalysisGetByID_NotFound(t *testing.T) {
	store := newTestDB(t).Store()

	_, err := store.Analyses().GetByID(context.Background(), "missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestCreateVulnerabilities_Empty(t *testing.T) {
	store := newTestDB(t).Store()

	if err := store.Analyses().CreateVulnerabilities(context.Background(), nil); err != nil {
		t.Errorf("CreateVulnerabilities(nil) error = %v", err)
	}
}
