package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"image"
	"image/jpeg"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/assettrack/internal/blob"
	"github.com/erazemk/assettrack/internal/db"
	"github.com/erazemk/assettrack/internal/events"
	"github.com/erazemk/assettrack/internal/model"
	"github.com/erazemk/assettrack/internal/store"
)

var fixedNow = time.Date(2026, 5, 4, 8, 15, 0, 0, time.UTC)

type recordingSink struct {
	mu     sync.Mutex
	events []events.Event
	err    error
	panic  bool
}

func (s *recordingSink) Publish(_ context.Context, e events.Event) error {
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
	if s.panic {
		panic("sink exploded")
	}
	return s.err
}

func (s *recordingSink) all() []events.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]events.Event(nil), s.events...)
}

type fixture struct {
	svc   *Service
	db    *sql.DB
	sink  *recordingSink
	blobs *blob.Store
	admin model.Principal
	cat   *model.Category
}

// newFixture seeds an admin (id 1), employees 7 and 9, and one category.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	database := db.NewTestDB(t)

	for _, u := range []struct {
		id   int64
		name string
		role string
	}{
		{1, "Admin", model.RoleAdmin},
		{7, "Ana", model.RoleEmployee},
		{9, "Bor", model.RoleEmployee},
	} {
		_, err := database.Exec(
			`INSERT INTO users (id, name, email, password_hash, role) VALUES (?, ?, ?, 'x', ?)`,
			u.id, u.name, strings.ToLower(u.name)+"@example.com", u.role,
		)
		require.NoError(t, err)
	}

	blobs, err := blob.NewStore(t.TempDir())
	require.NoError(t, err)

	sink := &recordingSink{}
	svc := New(database, sink, blobs)
	svc.Clock = func() time.Time { return fixedNow }
	svc.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	cat, err := store.CreateCategory(context.Background(), database, "Laptops")
	require.NoError(t, err)

	return &fixture{
		svc:   svc,
		db:    database,
		sink:  sink,
		blobs: blobs,
		admin: model.Principal{UserID: 1, Role: model.RoleAdmin},
		cat:   cat,
	}
}

func (f *fixture) asset(t *testing.T, serial string) *model.Asset {
	t.Helper()
	a, err := f.svc.CreateAsset(context.Background(), f.admin, AssetInput{
		Name: "ThinkPad " + serial, SerialNumber: serial, CategoryID: f.cat.ID,
	}, nil)
	require.NoError(t, err)
	return a
}

func employee(id int64) model.Principal {
	return model.Principal{UserID: id, Role: model.RoleEmployee}
}

func testJPEG(t *testing.T) io.Reader {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8)), nil))
	return &buf
}

func TestAssignReturnScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.asset(t, "A-1")

	assignment, err := f.svc.AssignAsset(ctx, f.admin, a.ID, AssignInput{UserID: 7})
	require.NoError(t, err)
	assert.Equal(t, a.ID, assignment.AssetID)
	assert.Equal(t, int64(7), assignment.UserID)
	assert.Equal(t, int64(1), assignment.AssignedBy)
	assert.Nil(t, assignment.ReturnedAt)
	assert.True(t, assignment.AssignedAt.Equal(fixedNow))

	got, err := f.svc.GetAsset(ctx, f.admin, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AssetStatusAssigned, got.Status)

	_, err = f.svc.AssignAsset(ctx, f.admin, a.ID, AssignInput{UserID: 9})
	require.ErrorIs(t, err, model.ErrAssetNotAvailable)
	var de *model.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, model.AssetStatusAssigned, de.Status)
	assert.Equal(t, model.KindRule, model.KindOf(err))

	closed, err := f.svc.ReturnAsset(ctx, f.admin, a.ID, ReturnInput{})
	require.NoError(t, err)
	assert.Equal(t, assignment.ID, closed.ID)
	require.NotNil(t, closed.ReturnedAt)

	got, _ = f.svc.GetAsset(ctx, f.admin, a.ID)
	assert.Equal(t, model.AssetStatusAvailable, got.Status)

	_, err = f.svc.ReturnAsset(ctx, f.admin, a.ID, ReturnInput{})
	assert.ErrorIs(t, err, model.ErrNoActiveAssignment)
}

func TestNonAdminRejectedBeforeMutation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.asset(t, "A-1")
	emp := employee(7)

	_, err := f.svc.CreateAsset(ctx, emp, AssetInput{Name: "X", SerialNumber: "X-1", CategoryID: f.cat.ID}, nil)
	assert.ErrorIs(t, err, model.ErrForbidden)
	_, err = f.svc.UpdateAsset(ctx, emp, a.ID, AssetInput{Name: "X", SerialNumber: "A-1", CategoryID: f.cat.ID}, nil)
	assert.ErrorIs(t, err, model.ErrForbidden)
	assert.ErrorIs(t, f.svc.DeleteAsset(ctx, emp, a.ID), model.ErrForbidden)
	_, err = f.svc.AssignAsset(ctx, emp, a.ID, AssignInput{UserID: 7})
	assert.ErrorIs(t, err, model.ErrForbidden)
	_, err = f.svc.ReturnAsset(ctx, emp, a.ID, ReturnInput{})
	assert.ErrorIs(t, err, model.ErrForbidden)
	_, err = f.svc.CreateCategory(ctx, emp, CategoryInput{Name: "Phones"})
	assert.ErrorIs(t, err, model.ErrForbidden)
	assert.ErrorIs(t, f.svc.DeleteCategory(ctx, emp, f.cat.ID), model.ErrForbidden)

	// A principal without a role is rejected too.
	_, err = f.svc.AssignAsset(ctx, model.Principal{UserID: 1}, a.ID, AssignInput{UserID: 7})
	assert.ErrorIs(t, err, model.ErrForbidden)

	assets, err := store.ListAssets(ctx, f.db, model.AssetFilter{})
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, "ThinkPad A-1", assets[0].Name)
	assert.Equal(t, model.AssetStatusAvailable, assets[0].Status)

	history, _ := store.AssetHistory(ctx, f.db, a.ID)
	assert.Empty(t, history)
	categories, _ := store.ListCategories(ctx, f.db)
	assert.Len(t, categories, 1)
	assert.Empty(t, f.sink.all())
}

func TestEventsFollowCommits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.asset(t, "A-1")

	_, err := f.svc.AssignAsset(ctx, f.admin, a.ID, AssignInput{UserID: 7, Notes: "onboarding"})
	require.NoError(t, err)
	_, err = f.svc.AssignAsset(ctx, f.admin, a.ID, AssignInput{UserID: 9})
	require.Error(t, err)
	_, err = f.svc.ReturnAsset(ctx, f.admin, a.ID, ReturnInput{Notes: "ok"})
	require.NoError(t, err)

	got := f.sink.all()
	require.Len(t, got, 2, "failed operations must not emit events")

	assert.Equal(t, events.AssetAssigned, got[0].Type)
	assert.Equal(t, "Ana", got[0].HolderName)
	assert.Equal(t, a.Name, got[0].AssetName)
	assert.Equal(t, model.AssetStatusAssigned, got[0].Status)
	assert.True(t, got[0].OccurredAt.Equal(fixedNow))

	assert.Equal(t, events.AssetReturned, got[1].Type)
	assert.Equal(t, model.AssetStatusAvailable, got[1].Status)
}

func TestFailingSinkDoesNotAffectCommit(t *testing.T) {
	for _, sink := range []*recordingSink{
		{err: errors.New("broker down")},
		{panic: true},
	} {
		f := newFixture(t)
		f.svc.Events = sink
		ctx := context.Background()
		a := f.asset(t, "A-1")

		assignment, err := f.svc.AssignAsset(ctx, f.admin, a.ID, AssignInput{UserID: 7})
		require.NoError(t, err)
		require.NotNil(t, assignment)

		got, _ := store.GetAsset(ctx, f.db, a.ID)
		assert.Equal(t, model.AssetStatusAssigned, got.Status)
		assert.Len(t, sink.all(), 1)
	}
}

func TestConcurrentAssignThroughService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.asset(t, "A-1")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, holder := range []int64{7, 9} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.svc.AssignAsset(ctx, f.admin, a.ID, AssignInput{UserID: holder})
		}()
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, model.ErrAssetNotAvailable)
	}
	assert.Equal(t, 1, wins)
	assert.Len(t, f.sink.all(), 1)

	history, _ := store.AssetHistory(ctx, f.db, a.ID)
	assert.Len(t, history, 1)
}

func TestValidationReportsFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateAsset(ctx, f.admin, AssetInput{SerialNumber: "S-1"}, nil)
	require.Error(t, err)
	var de *model.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, model.KindValidation, de.Kind)
	assert.Equal(t, "required", de.Fields["name"])
	assert.Equal(t, "required", de.Fields["category_id"])

	_, err = f.svc.CreateAsset(ctx, f.admin, AssetInput{Name: "X", SerialNumber: "S-1", CategoryID: f.cat.ID, Status: "lost"}, nil)
	assert.ErrorIs(t, err, model.ErrInvalidStatus)

	f.asset(t, "S-2")
	_, err = f.svc.CreateAsset(ctx, f.admin, AssetInput{Name: "X", SerialNumber: "S-2", CategoryID: f.cat.ID}, nil)
	assert.ErrorIs(t, err, model.ErrDuplicateSerialNumber)

	_, err = f.svc.CreateAsset(ctx, f.admin, AssetInput{Name: "X", SerialNumber: "S-3", CategoryID: 999}, nil)
	assert.ErrorIs(t, err, model.ErrCategoryNotFound)

	_, err = f.svc.CreateCategory(ctx, f.admin, CategoryInput{Name: "Laptops"})
	assert.ErrorIs(t, err, model.ErrDuplicateCategoryName)

	a := f.asset(t, "S-4")
	_, err = f.svc.AssignAsset(ctx, f.admin, a.ID, AssignInput{UserID: 404})
	assert.ErrorIs(t, err, model.ErrUserNotFound)
	_, err = f.svc.AssignAsset(ctx, f.admin, a.ID, AssignInput{})
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "required", de.Fields["user_id"])
}

func TestDeletionGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.asset(t, "A-1")

	_, err := f.svc.AssignAsset(ctx, f.admin, a.ID, AssignInput{UserID: 7})
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.DeleteAsset(ctx, f.admin, a.ID), model.ErrAssetCurrentlyAssigned)
	assert.ErrorIs(t, f.svc.DeleteCategory(ctx, f.admin, f.cat.ID), model.ErrCategoryHasAssets)

	got, _ := store.GetAsset(ctx, f.db, a.ID)
	assert.Nil(t, got.DeletedAt)
	c, _ := store.GetCategory(ctx, f.db, f.cat.ID)
	assert.NotNil(t, c)
}

func TestImageReplacementDeletesOldBlob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.CreateAsset(ctx, f.admin, AssetInput{Name: "Cam", SerialNumber: "C-1", CategoryID: f.cat.ID}, testJPEG(t))
	require.NoError(t, err)
	require.NotEmpty(t, a.ImagePath)
	first := a.ImagePath

	updated, err := f.svc.UpdateAsset(ctx, f.admin, a.ID, AssetInput{Name: "Cam", SerialNumber: "C-1", CategoryID: f.cat.ID}, testJPEG(t))
	require.NoError(t, err)
	require.NotEqual(t, first, updated.ImagePath)

	_, err = f.blobs.Open(first)
	assert.ErrorIs(t, err, blob.ErrNotFound)

	replaced, err := f.svc.ReplaceAssetImage(ctx, f.admin, a.ID, testJPEG(t))
	require.NoError(t, err)
	_, err = f.blobs.Open(updated.ImagePath)
	assert.ErrorIs(t, err, blob.ErrNotFound)

	rc, err := f.svc.OpenAssetImage(ctx, employee(7), a.ID)
	require.NoError(t, err)
	rc.Close()

	// A failed update keeps the current image and discards the upload.
	_, err = f.svc.UpdateAsset(ctx, f.admin, a.ID, AssetInput{Name: "Cam", SerialNumber: "C-1", CategoryID: 999}, testJPEG(t))
	require.ErrorIs(t, err, model.ErrCategoryNotFound)
	rc, err = f.blobs.Open(replaced.ImagePath)
	require.NoError(t, err)
	rc.Close()

	_, err = f.svc.UpdateAsset(ctx, f.admin, a.ID, AssetInput{Name: "Cam", SerialNumber: "C-1", CategoryID: f.cat.ID},
		bytes.NewReader([]byte("not an image")))
	var de *model.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "mimes", de.Fields["image"])
}

func TestHoldingsAreSelfOrAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.asset(t, "A-1")
	f.asset(t, "A-2")

	_, err := f.svc.AssignAsset(ctx, f.admin, a.ID, AssignInput{UserID: 7})
	require.NoError(t, err)

	mine, err := f.svc.ListUserHoldings(ctx, employee(7), 7)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, a.ID, mine[0].ID)
	assert.True(t, mine[0].AssignedAt.Equal(fixedNow))

	_, err = f.svc.ListUserHoldings(ctx, employee(9), 7)
	assert.ErrorIs(t, err, model.ErrForbidden)

	theirs, err := f.svc.ListUserHoldings(ctx, f.admin, 7)
	require.NoError(t, err)
	assert.Len(t, theirs, 1)

	// Employees can only open assets they hold.
	_, err = f.svc.GetAsset(ctx, employee(7), a.ID)
	assert.NoError(t, err)
	_, err = f.svc.GetAsset(ctx, employee(9), a.ID)
	assert.ErrorIs(t, err, model.ErrForbidden)
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.asset(t, "A-1")
	f.asset(t, "A-2")
	_, err := f.svc.AssignAsset(ctx, f.admin, a.ID, AssignInput{UserID: 9})
	require.NoError(t, err)

	d, err := f.svc.Dashboard(ctx, f.admin)
	require.NoError(t, err)
	assert.Equal(t, 2, d.Stats.TotalAssets)
	assert.Equal(t, 1, d.Stats.AssignedAssets)
	assert.Equal(t, 2, d.Stats.TotalEmployees)
	assert.Equal(t, 1, d.Stats.TotalAdmins)
	assert.Equal(t, 1, d.AssetsByStatus[model.AssetStatusAvailable])
	require.Len(t, d.RecentAssignments, 1)
	assert.Equal(t, "Bor", d.RecentAssignments[0].UserName)

	_, err = f.svc.Dashboard(ctx, employee(7))
	assert.ErrorIs(t, err, model.ErrForbidden)
}
