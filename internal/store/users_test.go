package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/erazemk/assettrack/internal/db"
	"github.com/erazemk/assettrack/internal/model"
)

func TestCreateAndGetUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, err := CreateUser(ctx, database, UserFields{
		Name: "Ana Novak", Email: " Ana@Example.com ", Role: model.RoleEmployee, IsActive: true,
	}, "hash123")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.Email != "ana@example.com" {
		t.Errorf("expected normalized email, got %q", user.Email)
	}
	if user.Role != model.RoleEmployee || !user.IsActive {
		t.Errorf("unexpected user: %+v", user)
	}

	got, err := GetUserByEmail(ctx, database, "ANA@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if got == nil || got.ID != user.ID {
		t.Fatalf("expected to find user by email, got %+v", got)
	}
	if got.PasswordHash != "hash123" {
		t.Errorf("expected password hash 'hash123', got %q", got.PasswordHash)
	}

	missing, err := GetUserByEmail(ctx, database, "bob@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing user")
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	u := mustUser(t, database, "ana", model.RoleEmployee)

	_, err := CreateUser(ctx, database, UserFields{Name: "Other", Email: "ANA@example.com", Role: model.RoleEmployee}, "hash")
	if !errors.Is(err, model.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}

	_, err = CreateUser(ctx, database, UserFields{Name: "Other", Email: "x@example.com", Role: "owner"}, "hash")
	if model.KindOf(err) != model.KindValidation {
		t.Errorf("expected validation error for bad role, got %v", err)
	}

	// The email is free again once the user is deleted.
	admin := mustUser(t, database, "admin", model.RoleAdmin)
	if err := DeleteUser(ctx, database, u.ID, admin.ID, testNow); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if _, err := CreateUser(ctx, database, UserFields{Name: "Ana 2", Email: u.Email, Role: model.RoleEmployee}, "hash"); err != nil {
		t.Errorf("CreateUser after delete: %v", err)
	}
}

func TestListUsersAndEmployees(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	admin := mustUser(t, database, "admin", model.RoleAdmin)
	emp := mustUser(t, database, "emp", model.RoleEmployee)
	idle := mustUser(t, database, "idle", model.RoleEmployee)
	UpdateUser(ctx, database, idle.ID, UserFields{Name: idle.Name, Email: idle.Email, Role: idle.Role, IsActive: false}, "")

	cat := mustCategory(t, database, "Laptops")
	a := mustAsset(t, database, cat.ID, "ThinkPad")
	AssignAsset(ctx, database, a.ID, emp.ID, admin.ID, "", testNow)

	users, err := ListUsers(ctx, database, model.UserFilter{})
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("expected 3 users, got %d", len(users))
	}
	for _, u := range users {
		want := 0
		if u.ID == emp.ID {
			want = 1
		}
		if u.ActiveAssignments != want {
			t.Errorf("user %s: expected %d active assignments, got %d", u.Name, want, u.ActiveAssignments)
		}
	}

	employees, err := ListActiveEmployees(ctx, database)
	if err != nil {
		t.Fatalf("ListActiveEmployees: %v", err)
	}
	if len(employees) != 1 || employees[0].ID != emp.ID {
		t.Errorf("expected only emp, got %v", employees)
	}

	n, err := CountUsers(ctx, database)
	if err != nil {
		t.Fatalf("CountUsers: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 users, got %d", n)
	}
}

func TestDeleteUserGuards(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	admin := mustUser(t, database, "admin", model.RoleAdmin)
	emp := mustUser(t, database, "emp", model.RoleEmployee)
	cat := mustCategory(t, database, "Laptops")
	a := mustAsset(t, database, cat.ID, "ThinkPad")
	AssignAsset(ctx, database, a.ID, emp.ID, admin.ID, "", testNow)

	if err := DeleteUser(ctx, database, admin.ID, admin.ID, testNow); !errors.Is(err, model.ErrCannotDeleteSelf) {
		t.Errorf("expected ErrCannotDeleteSelf, got %v", err)
	}
	if err := DeleteUser(ctx, database, emp.ID, admin.ID, testNow); !errors.Is(err, model.ErrUserHasAssignments) {
		t.Errorf("expected ErrUserHasAssignments, got %v", err)
	}

	ReturnAsset(ctx, database, a.ID, "", testNow)
	if err := DeleteUser(ctx, database, emp.ID, admin.ID, testNow); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}

	users, _ := ListUsers(ctx, database, model.UserFilter{})
	if len(users) != 1 {
		t.Errorf("expected 1 user after delete, got %d", len(users))
	}

	if err := DeleteUser(ctx, database, emp.ID, admin.ID, testNow); !errors.Is(err, model.ErrUserMissing) {
		t.Errorf("expected ErrUserMissing, got %v", err)
	}
}

func TestUpdateUserPassword(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user := mustUser(t, database, "pwuser", model.RoleEmployee)
	UpdateUserPassword(ctx, database, user.ID, "newhash")

	got, _ := GetUser(ctx, database, user.ID)
	if got.PasswordHash != "newhash" {
		t.Errorf("expected password hash 'newhash', got %q", got.PasswordHash)
	}
}

func TestUpdateUserWithPasswordHash(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user := mustUser(t, database, "ana", model.RoleEmployee)

	got, err := UpdateUser(ctx, database, user.ID, UserFields{
		Name: "Ana", Email: user.Email, Role: model.RoleAdmin, IsActive: true,
	}, "newhash")
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if got.Role != model.RoleAdmin || got.PasswordHash != "newhash" {
		t.Errorf("expected role and hash to change together, got role %q hash %q", got.Role, got.PasswordHash)
	}

	// An empty hash keeps the current one.
	got, err = UpdateUser(ctx, database, user.ID, UserFields{
		Name: "Ana", Email: user.Email, Role: model.RoleEmployee, IsActive: true,
	}, "")
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if got.Role != model.RoleEmployee || got.PasswordHash != "newhash" {
		t.Errorf("expected hash kept, got role %q hash %q", got.Role, got.PasswordHash)
	}

	// A rejected update leaves the hash alone.
	other := mustUser(t, database, "bor", model.RoleEmployee)
	_, err = UpdateUser(ctx, database, user.ID, UserFields{
		Name: "Ana", Email: other.Email, Role: model.RoleEmployee, IsActive: true,
	}, "otherhash")
	if !errors.Is(err, model.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
	got, _ = GetUser(ctx, database, user.ID)
	if got.PasswordHash != "newhash" {
		t.Errorf("expected hash unchanged after failed update, got %q", got.PasswordHash)
	}
}

func TestListUsersFilter(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	mustUser(t, database, "admin", model.RoleAdmin)
	mustUser(t, database, "ana", model.RoleEmployee)
	mustUser(t, database, "bor", model.RoleEmployee)
	idle := mustUser(t, database, "cene", model.RoleEmployee)
	UpdateUser(ctx, database, idle.ID, UserFields{Name: idle.Name, Email: idle.Email, Role: idle.Role, IsActive: false}, "")

	active, inactive := true, false
	tests := []struct {
		name   string
		filter model.UserFilter
		want   []string
	}{
		{"all", model.UserFilter{}, []string{"admin", "ana", "bor", "cene"}},
		{"role", model.UserFilter{Role: model.RoleEmployee}, []string{"ana", "bor", "cene"}},
		{"active", model.UserFilter{Role: model.RoleEmployee, Active: &active}, []string{"ana", "bor"}},
		{"inactive", model.UserFilter{Active: &inactive}, []string{"cene"}},
		{"search name", model.UserFilter{Search: "bo"}, []string{"bor"}},
		{"search email", model.UserFilter{Search: "cene@"}, []string{"cene"}},
		{"page", model.UserFilter{Limit: 2, Offset: 1}, []string{"ana", "bor"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users, err := ListUsers(ctx, database, tt.filter)
			if err != nil {
				t.Fatalf("ListUsers: %v", err)
			}
			var names []string
			for _, u := range users {
				names = append(names, u.Name)
			}
			if strings.Join(names, ",") != strings.Join(tt.want, ",") {
				t.Errorf("expected %v, got %v", tt.want, names)
			}
		})
	}
}
