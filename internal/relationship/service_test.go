package relationship

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/medconfirm/internal/model"
	"github.com/hitoshi/medconfirm/internal/repository"
)

// --- モック定義 ---

type mockUserRepo struct {
	users map[string]*model.User // email → user
}

func (m *mockUserRepo) FindByID(_ context.Context, _ string) (*model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	return m.users[email], nil
}

func (m *mockUserRepo) Create(_ context.Context, _ *model.User) error {
	return nil
}

type mockRelationshipRepo struct {
	existsFn func(ctx context.Context, carerID, dependantID string) (bool, error)
	createFn func(ctx context.Context, rel *model.Relationship) error
	listFn   func(ctx context.Context, carerID string) ([]*model.User, error)
	created  []*model.Relationship
}

func (m *mockRelationshipRepo) Exists(ctx context.Context, carerID, dependantID string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, carerID, dependantID)
	}
	return false, nil
}

func (m *mockRelationshipRepo) Create(ctx context.Context, rel *model.Relationship) error {
	if m.createFn != nil {
		return m.createFn(ctx, rel)
	}
	m.created = append(m.created, rel)
	return nil
}

func (m *mockRelationshipRepo) ListDependants(ctx context.Context, carerID string) ([]*model.User, error) {
	if m.listFn != nil {
		return m.listFn(ctx, carerID)
	}
	return nil, nil
}

const testCarerID = "22222222-2222-2222-2222-222222222222"

func testUsers() *mockUserRepo {
	return &mockUserRepo{users: map[string]*model.User{
		"pat@example.com":   {ID: "d1", Email: "pat@example.com", Name: "Pat", Role: model.RoleDependant},
		"carer@example.com": {ID: "c2", Email: "carer@example.com", Name: "Sam", Role: model.RoleCarer},
	}}
}

func assertAPIErrorKind(t *testing.T, err error, kind model.ErrorKind) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *model.APIError", err)
	}
	if apiErr.Kind != kind {
		t.Errorf("Kind = %q, want %q (message %q)", apiErr.Kind, kind, apiErr.Message)
	}
}

func TestAddDependantByEmail_Links(t *testing.T) {
	rels := &mockRelationshipRepo{}
	svc := NewService(testUsers(), rels)

	dep, err := svc.AddDependantByEmail(context.Background(), testCarerID, "  Pat@Example.com ")
	if err != nil {
		t.Fatalf("AddDependantByEmail: %v", err)
	}
	if dep.ID != "d1" {
		t.Errorf("dependant ID = %q, want %q", dep.ID, "d1")
	}
	if len(rels.created) != 1 {
		t.Fatalf("created = %d, want 1", len(rels.created))
	}
	if rels.created[0].CarerID != testCarerID || rels.created[0].DependantID != "d1" {
		t.Errorf("relationship = %+v", rels.created[0])
	}
}

func TestAddDependantByEmail_EmailRequired(t *testing.T) {
	svc := NewService(testUsers(), &mockRelationshipRepo{})
	_, err := svc.AddDependantByEmail(context.Background(), testCarerID, " ")
	assertAPIErrorKind(t, err, model.KindValidation)
}

func TestAddDependantByEmail_NotFound(t *testing.T) {
	svc := NewService(testUsers(), &mockRelationshipRepo{})

	for _, email := range []string{"nobody@example.com", "carer@example.com"} {
		t.Run(email, func(t *testing.T) {
			_, err := svc.AddDependantByEmail(context.Background(), testCarerID, email)
			assertAPIErrorKind(t, err, model.KindNotFound)
		})
	}
}

func TestAddDependantByEmail_AlreadyLinked(t *testing.T) {
	rels := &mockRelationshipRepo{
		existsFn: func(_ context.Context, _, _ string) (bool, error) { return true, nil },
	}
	svc := NewService(testUsers(), rels)

	_, err := svc.AddDependantByEmail(context.Background(), testCarerID, "pat@example.com")
	assertAPIErrorKind(t, err, model.KindConflict)
	if len(rels.created) != 0 {
		t.Error("relationship should not be created")
	}
}

func TestAddDependantByEmail_DuplicateOnInsertRace(t *testing.T) {
	rels := &mockRelationshipRepo{
		createFn: func(_ context.Context, _ *model.Relationship) error { return repository.ErrDuplicate },
	}
	svc := NewService(testUsers(), rels)

	_, err := svc.AddDependantByEmail(context.Background(), testCarerID, "pat@example.com")
	assertAPIErrorKind(t, err, model.KindConflict)
}

func TestListDependants(t *testing.T) {
	rels := &mockRelationshipRepo{
		listFn: func(_ context.Context, carerID string) ([]*model.User, error) {
			if carerID != testCarerID {
				t.Errorf("carerID = %q", carerID)
			}
			return []*model.User{{ID: "d1", Name: "Pat"}}, nil
		},
	}
	svc := NewService(testUsers(), rels)

	users, err := svc.ListDependants(context.Background(), testCarerID)
	if err != nil {
		t.Fatalf("ListDependants: %v", err)
	}
	if len(users) != 1 {
		t.Errorf("len = %d, want 1", len(users))
	}
}

func TestListDependants_StoreError(t *testing.T) {
	rels := &mockRelationshipRepo{
		listFn: func(_ context.Context, _ string) ([]*model.User, error) {
			return nil, errors.New("boom")
		},
	}
	svc := NewService(testUsers(), rels)

	if _, err := svc.ListDependants(context.Background(), testCarerID); err == nil {
		t.Error("expected error")
	}
}
