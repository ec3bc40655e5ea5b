package lending

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/soseska/internal/model"
)

const (
	apartment int64 = 1
	ownerUser int64 = 10
	userB     int64 = 20
	userC     int64 = 30
	adminID   int64 = 40
)

// memRepo is an in-memory Repository with an atomic conditional update.
type memRepo struct {
	mu        sync.Mutex
	resources map[int64]model.Resource

	// afterGet, if set, runs after every successful read.
	afterGet func()
	getErr   error
}

func newMemRepo(resources ...model.Resource) *memRepo {
	repo := &memRepo{resources: map[int64]model.Resource{}}
	for _, r := range resources {
		repo.resources[r.ID] = r
	}
	return repo
}

func (m *memRepo) GetResource(_ context.Context, id int64) (*model.Resource, error) {
	m.mu.Lock()
	if m.getErr != nil {
		m.mu.Unlock()
		return nil, m.getErr
	}
	r, ok := m.resources[id]
	m.mu.Unlock()
	if !ok {
		return nil, nil
	}
	if m.afterGet != nil {
		m.afterGet()
	}
	return &r, nil
}

func (m *memRepo) UpdateResourceIf(_ context.Context, id int64, from, to model.LendingState) (*model.Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.resources[id]
	if !ok || r.Status != from.Status || !sameID(r.BorrowerID, from.BorrowerID) {
		return nil, nil
	}
	r.Status = to.Status
	r.BorrowerID = to.BorrowerID
	m.resources[id] = r
	return &r, nil
}

func (m *memRepo) get(id int64) model.Resource {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resources[id]
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func id(v int64) *int64 { return &v }

func resident(userID int64) Actor {
	return Actor{UserID: userID, Role: model.RoleResident, ApartmentID: id(apartment)}
}

func availableResource() model.Resource {
	return model.Resource{
		ID:          1,
		Title:       "Drill",
		Category:    model.CategoryTools,
		ApartmentID: apartment,
		OwnerID:     ownerUser,
		Status:      model.ResourceStatusAvailable,
	}
}

func withState(status string, borrower *int64) model.Resource {
	r := availableResource()
	r.Status = status
	r.BorrowerID = borrower
	return r
}

// assertBorrowerInvariant checks that a borrower is set exactly when the
// resource is requested or borrowed.
func assertBorrowerInvariant(t *testing.T, r model.Resource) {
	t.Helper()
	switch r.Status {
	case model.ResourceStatusAvailable, model.ResourceStatusDeclined:
		assert.Nil(t, r.BorrowerID, "status %s must have no borrower", r.Status)
	default:
		assert.NotNil(t, r.BorrowerID, "status %s must have a borrower", r.Status)
	}
}

func TestLendingLifecycle(t *testing.T) {
	repo := newMemRepo(availableResource())
	m := NewManager(repo)
	ctx := context.Background()

	r, err := m.Request(ctx, 1, resident(userB))
	require.NoError(t, err)
	assert.Equal(t, model.ResourceStatusRequested, r.Status)
	assert.Equal(t, userB, *r.BorrowerID)

	r, err = m.Approve(ctx, 1, resident(ownerUser))
	require.NoError(t, err)
	assert.Equal(t, model.ResourceStatusBorrowed, r.Status)
	assert.Equal(t, userB, *r.BorrowerID)

	_, err = m.Return(ctx, 1, resident(userC))
	assert.ErrorIs(t, err, ErrNotAuthorized)
	assert.Equal(t, model.ResourceStatusBorrowed, repo.get(1).Status)
	assert.Equal(t, userB, *repo.get(1).BorrowerID)

	r, err = m.Return(ctx, 1, resident(userB))
	require.NoError(t, err)
	assert.Equal(t, model.ResourceStatusAvailable, r.Status)
	assert.Nil(t, r.BorrowerID)
}

func TestRequestWrongStateRegardlessOfActor(t *testing.T) {
	actors := map[string]Actor{
		"owner":       resident(ownerUser),
		"other":       resident(userC),
		"borrower":    resident(userB),
		"super admin": {UserID: adminID, Role: model.RoleSuperAdmin},
	}
	for _, status := range []string{model.ResourceStatusRequested, model.ResourceStatusBorrowed} {
		for name, actor := range actors {
			t.Run(status+"/"+name, func(t *testing.T) {
				repo := newMemRepo(withState(status, id(userB)))
				_, err := NewManager(repo).Request(context.Background(), 1, actor)
				assert.ErrorIs(t, err, ErrInvalidState)
				assert.Equal(t, status, repo.get(1).Status)
			})
		}
	}
}

func TestRequestOwnResource(t *testing.T) {
	for _, status := range []string{model.ResourceStatusAvailable, model.ResourceStatusDeclined} {
		repo := newMemRepo(withState(status, nil))
		_, err := NewManager(repo).Request(context.Background(), 1, resident(ownerUser))
		assert.ErrorIs(t, err, ErrNotAuthorized, status)
		assert.Equal(t, status, repo.get(1).Status)
		assert.Nil(t, repo.get(1).BorrowerID)
	}
}

func TestRequestOtherApartment(t *testing.T) {
	repo := newMemRepo(availableResource())
	outsider := Actor{UserID: userC, Role: model.RoleResident, ApartmentID: id(apartment + 1)}

	_, err := NewManager(repo).Request(context.Background(), 1, outsider)
	assert.ErrorIs(t, err, ErrNotAuthorized)
	assert.Equal(t, model.ResourceStatusAvailable, repo.get(1).Status)
}

func TestApproveOnlyByOwner(t *testing.T) {
	others := []Actor{
		resident(userB),
		resident(userC),
		{UserID: adminID, Role: model.RoleApartmentAdmin, ApartmentID: id(apartment)},
		{UserID: adminID, Role: model.RoleSuperAdmin},
	}
	for _, actor := range others {
		repo := newMemRepo(withState(model.ResourceStatusRequested, id(userB)))
		_, err := NewManager(repo).Approve(context.Background(), 1, actor)
		assert.ErrorIs(t, err, ErrNotAuthorized, "actor %d/%s", actor.UserID, actor.Role)
		assert.Equal(t, model.ResourceStatusRequested, repo.get(1).Status)
	}

	for _, status := range []string{model.ResourceStatusAvailable, model.ResourceStatusBorrowed, model.ResourceStatusDeclined} {
		var borrower *int64
		if status == model.ResourceStatusBorrowed {
			borrower = id(userB)
		}
		repo := newMemRepo(withState(status, borrower))
		_, err := NewManager(repo).Approve(context.Background(), 1, resident(ownerUser))
		assert.ErrorIs(t, err, ErrInvalidState, status)
	}
}

func TestDeclineThenRequestAgain(t *testing.T) {
	ctx := context.Background()

	for _, next := range []int64{userB, userC} {
		repo := newMemRepo(withState(model.ResourceStatusRequested, id(userB)))
		m := NewManager(repo)

		r, err := m.Decline(ctx, 1, resident(ownerUser))
		require.NoError(t, err)
		assert.Equal(t, model.ResourceStatusDeclined, r.Status)
		assert.Nil(t, r.BorrowerID)

		r, err = m.Request(ctx, 1, resident(next))
		require.NoError(t, err)
		assert.Equal(t, model.ResourceStatusRequested, r.Status)
		assert.Equal(t, next, *r.BorrowerID)
	}
}

func TestDeclineAuthorization(t *testing.T) {
	tests := []struct {
		name  string
		actor Actor
		ok    bool
	}{
		{"owner", resident(ownerUser), true},
		{"apartment admin", Actor{UserID: adminID, Role: model.RoleApartmentAdmin, ApartmentID: id(apartment)}, true},
		{"super admin", Actor{UserID: adminID, Role: model.RoleSuperAdmin}, true},
		{"admin of another apartment", Actor{UserID: adminID, Role: model.RoleApartmentAdmin, ApartmentID: id(apartment + 1)}, false},
		{"requester", resident(userB), false},
		{"other resident", resident(userC), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemRepo(withState(model.ResourceStatusRequested, id(userB)))
			_, err := NewManager(repo).Decline(context.Background(), 1, tt.actor)
			if tt.ok {
				assert.NoError(t, err)
				assert.Equal(t, model.ResourceStatusDeclined, repo.get(1).Status)
			} else {
				assert.ErrorIs(t, err, ErrNotAuthorized)
				assert.Equal(t, model.ResourceStatusRequested, repo.get(1).Status)
			}
		})
	}
}

func TestDeclineWithoutPendingRequest(t *testing.T) {
	repo := newMemRepo(availableResource())
	_, err := NewManager(repo).Decline(context.Background(), 1, resident(ownerUser))
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.EqualError(t, err, "no pending request to decline")
}

func TestReturnOnlyByBorrower(t *testing.T) {
	repo := newMemRepo(withState(model.ResourceStatusBorrowed, id(userB)))
	m := NewManager(repo)

	_, err := m.Return(context.Background(), 1, resident(ownerUser))
	assert.ErrorIs(t, err, ErrNotAuthorized)

	_, err = m.Return(context.Background(), 1, Actor{UserID: adminID, Role: model.RoleSuperAdmin})
	assert.ErrorIs(t, err, ErrNotAuthorized)
	assert.Equal(t, model.ResourceStatusBorrowed, repo.get(1).Status)

	repo = newMemRepo(withState(model.ResourceStatusRequested, id(userB)))
	_, err = NewManager(repo).Return(context.Background(), 1, resident(userB))
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestNotFound(t *testing.T) {
	m := NewManager(newMemRepo())
	for _, op := range Operations {
		_, err := m.Do(context.Background(), op, 99, resident(userB))
		assert.ErrorIs(t, err, ErrNotFound, op)
	}
}

func TestUnknownOperation(t *testing.T) {
	_, err := NewManager(newMemRepo(availableResource())).Do(context.Background(), "steal", 1, resident(userB))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRepositoryErrorIsNotRejection(t *testing.T) {
	repo := newMemRepo(availableResource())
	repo.getErr = errors.New("disk on fire")

	_, err := NewManager(repo).Request(context.Background(), 1, resident(userB))
	require.Error(t, err)
	assert.Nil(t, Kind(err))
}

func TestStaleWriteIsConflict(t *testing.T) {
	repo := newMemRepo(availableResource())
	repo.afterGet = func() {
		// Another transition lands between the read and the write.
		repo.mu.Lock()
		r := repo.resources[1]
		r.Status = model.ResourceStatusRequested
		r.BorrowerID = id(userC)
		repo.resources[1] = r
		repo.mu.Unlock()
	}

	_, err := NewManager(repo).Request(context.Background(), 1, resident(userB))
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, userC, *repo.get(1).BorrowerID)
}

func TestConcurrentRequestsOneWinner(t *testing.T) {
	repo := newMemRepo(availableResource())

	// Hold both requests after their read so they race on the write.
	var read sync.WaitGroup
	read.Add(2)
	repo.afterGet = func() {
		read.Done()
		read.Wait()
	}

	m := NewManager(repo)
	actors := []int64{userB, userC}
	errs := make([]error, len(actors))

	var wg sync.WaitGroup
	for i, u := range actors {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = m.Request(context.Background(), 1, resident(u))
		}()
	}
	wg.Wait()

	var winners int
	var winner int64
	for i, err := range errs {
		if err == nil {
			winners++
			winner = actors[i]
			continue
		}
		kind := Kind(err)
		assert.True(t, kind == ErrInvalidState || kind == ErrConflict, "unexpected error: %v", err)
	}
	require.Equal(t, 1, winners)

	r := repo.get(1)
	assert.Equal(t, model.ResourceStatusRequested, r.Status)
	assert.Equal(t, winner, *r.BorrowerID)
}

func TestBorrowerInvariantAcrossTransitions(t *testing.T) {
	ctx := context.Background()
	steps := []struct {
		op    Operation
		actor Actor
	}{
		{OpRequest, resident(userB)},
		{OpDecline, resident(ownerUser)},
		{OpRequest, resident(userC)},
		{OpApprove, resident(ownerUser)},
		{OpReturn, resident(userC)},
		{OpRequest, resident(userB)},
		{OpApprove, resident(userB)},
		{OpReturn, resident(userB)},
	}

	repo := newMemRepo(availableResource())
	m := NewManager(repo)
	for _, step := range steps {
		_, _ = m.Do(ctx, step.op, 1, step.actor)
		assertBorrowerInvariant(t, repo.get(1))
	}
}

func TestIdentityUsesCanonicalIDs(t *testing.T) {
	// A resource known only by its expanded references.
	r := &model.Resource{
		ApartmentID: apartment,
		Status:      model.ResourceStatusBorrowed,
		Owner:       &model.UserRef{ID: ownerUser, Name: "owner"},
		Borrower:    &model.UserRef{ID: userB, Name: "b"},
	}

	assert.True(t, isOwner(resident(ownerUser), r))
	assert.True(t, isBorrower(resident(userB), r))
	assert.False(t, isBorrower(resident(ownerUser), r))
	assert.Equal(t, []Operation{OpReturn}, Allowed(resident(userB), r))
	assert.Empty(t, Allowed(resident(ownerUser), r))
}

func TestCanDecline(t *testing.T) {
	r := &model.Resource{ApartmentID: apartment, OwnerID: ownerUser}

	assert.True(t, CanDecline(resident(ownerUser), r))
	assert.True(t, CanDecline(Actor{UserID: adminID, Role: model.RoleSuperAdmin}, r))
	assert.True(t, CanDecline(Actor{UserID: adminID, Role: model.RoleApartmentAdmin, ApartmentID: id(apartment)}, r))
	assert.False(t, CanDecline(Actor{UserID: adminID, Role: model.RoleApartmentAdmin}, r))
	assert.False(t, CanDecline(resident(userB), r))
}

func TestAllowed(t *testing.T) {
	available := availableResource()
	assert.Equal(t, []Operation{OpRequest}, Allowed(resident(userB), &available))
	assert.Empty(t, Allowed(resident(ownerUser), &available))

	requested := withState(model.ResourceStatusRequested, id(userB))
	assert.Equal(t, []Operation{OpApprove, OpDecline}, Allowed(resident(ownerUser), &requested))
	assert.Empty(t, Allowed(resident(userB), &requested))
}

func TestNewDraft(t *testing.T) {
	d, err := NewDraft("  Drill ", "cordless", "TOOLS")
	require.NoError(t, err)
	assert.Equal(t, Draft{Title: "Drill", Description: "cordless", Category: model.CategoryTools}, d)

	d, err = NewDraft("Chair", "", "")
	require.NoError(t, err)
	assert.Equal(t, model.CategoryOther, d.Category)

	_, err = NewDraft("Gun", "", "weapons")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewDraft("   ", "", "books")
	assert.ErrorIs(t, err, ErrValidation)
}
