package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sujinchoi3/my-todolist/internal/common"
	"github.com/sujinchoi3/my-todolist/internal/cryptox"
	"github.com/sujinchoi3/my-todolist/internal/dbx"
	"github.com/sujinchoi3/my-todolist/internal/logging"
	"github.com/sujinchoi3/my-todolist/internal/server/auth"
	"github.com/sujinchoi3/my-todolist/internal/server/models"
	usersrepo "github.com/sujinchoi3/my-todolist/internal/server/repositories/users"
)

// --- helpers ---

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

type fakeUsersRepo struct {
	byEmail map[string]*models.User
	getErr  error

	createErr error
	created   []*models.User
}

func (f *fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, u)
	return u, nil
}

func (f *fakeUsersRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, common.ErrorNotFound
}

type fakeRepoManager struct {
	u *fakeUsersRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository    { return m.u }

// fakeHasher stores passwords as "h:"+password.
type fakeHasher struct {
	hashErr  error
	hashes   int
	compares int
}

func (h *fakeHasher) Hash(p string) (string, error) {
	h.hashes++
	if h.hashErr != nil {
		return "", h.hashErr
	}
	return "h:" + p, nil
}

func (h *fakeHasher) Compare(hash, p string) error {
	h.compares++
	if hash == "h:"+p {
		return nil
	}
	return cryptox.ErrMismatch
}

func newIssuer(t *testing.T) *auth.Issuer {
	t.Helper()
	iss, err := auth.NewIssuer(
		auth.Key{Secret: []byte("access-secret"), Validity: 15 * time.Minute},
		auth.Key{Secret: []byte("refresh-secret"), Validity: 7 * 24 * time.Hour},
	)
	require.NoError(t, err)
	return iss
}

func newService(t *testing.T, db *sql.DB, repo *fakeUsersRepo, h *fakeHasher) *AuthService {
	t.Helper()
	s := NewAuthService(db, &fakeRepoManager{u: repo}, h, newIssuer(t), logging.NewNop())
	s.newID = func() string { return "user-1" }
	return s
}

func existingUser() *models.User {
	return &models.User{ID: "u-42", Email: "a@b.co", Name: "Alice", PasswordHash: "h:passw0rd1"}
}

// --- Signup ---

func TestSignup_Success(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	repo := &fakeUsersRepo{}
	s := newService(t, db, repo, &fakeHasher{})

	u, err := s.Signup(context.Background(), "new@b.co", "passw0rd1", "  Bob ")
	require.NoError(t, err)

	assert.Equal(t, "user-1", u.ID)
	assert.Equal(t, "new@b.co", u.Email)
	assert.Equal(t, "Bob", u.Name)
	assert.Equal(t, "h:passw0rd1", u.PasswordHash, "password is stored hashed")
	assert.Len(t, repo.created, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSignup_EmailTaken(t *testing.T) {
	db, mock := newSQLMockDB(t)

	repo := &fakeUsersRepo{byEmail: map[string]*models.User{"a@b.co": existingUser()}}
	h := &fakeHasher{}
	s := newService(t, db, repo, h)

	_, err := s.Signup(context.Background(), "a@b.co", "passw0rd1", "Alice")
	require.ErrorIs(t, err, common.ErrEmailAlreadyExists)
	assert.Empty(t, repo.created, "no row may be created")
	assert.Equal(t, 0, h.hashes, "taken email is rejected before hashing")
	require.NoError(t, mock.ExpectationsWereMet(), "no transaction for a taken email")
}

func TestSignup_UniqueViolationRace(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	repo := &fakeUsersRepo{createErr: common.ErrEmailAlreadyExists}
	s := newService(t, db, repo, &fakeHasher{})

	_, err := s.Signup(context.Background(), "a@b.co", "passw0rd1", "Alice")
	require.ErrorIs(t, err, common.ErrEmailAlreadyExists)
}

func TestSignup_LookupError(t *testing.T) {
	db, _ := newSQLMockDB(t)

	s := newService(t, db, &fakeUsersRepo{getErr: errBoom{}}, &fakeHasher{})

	_, err := s.Signup(context.Background(), "a@b.co", "passw0rd1", "Alice")
	require.Error(t, err)
	assert.True(t, errors.As(err, new(errBoom)))

	var appErr *common.AppError
	assert.False(t, errors.As(err, &appErr), "storage failures are not domain errors")
}

func TestSignup_HashError(t *testing.T) {
	db, mock := newSQLMockDB(t)

	s := newService(t, db, &fakeUsersRepo{}, &fakeHasher{hashErr: errBoom{}})

	_, err := s.Signup(context.Background(), "a@b.co", "passw0rd1", "Alice")
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet(), "no transaction when hashing fails")
}

// --- Login ---

func TestLogin_Success(t *testing.T) {
	db, _ := newSQLMockDB(t)
	repo := &fakeUsersRepo{byEmail: map[string]*models.User{"a@b.co": existingUser()}}
	s := newService(t, db, repo, &fakeHasher{})

	res, err := s.Login(context.Background(), "a@b.co", "passw0rd1")
	require.NoError(t, err)
	assert.Equal(t, "u-42", res.User.ID)

	iss := newIssuer(t)
	id, err := iss.VerifyAccess(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, auth.Identity{UserID: "u-42", Email: "a@b.co"}, id)

	id, err = iss.VerifyRefresh(res.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "u-42", id.UserID)
}

func TestLogin_FailuresAreUniform(t *testing.T) {
	noHash := existingUser()
	noHash.PasswordHash = ""

	tests := []struct {
		name     string
		users    map[string]*models.User
		email    string
		password string
	}{
		{name: "unknown email", users: nil, email: "x@b.co", password: "passw0rd1"},
		{name: "wrong password", users: map[string]*models.User{"a@b.co": existingUser()}, email: "a@b.co", password: "wrong"},
		{name: "empty stored hash", users: map[string]*models.User{"a@b.co": noHash}, email: "a@b.co", password: "passw0rd1"},
		{name: "email is case sensitive", users: map[string]*models.User{"a@b.co": existingUser()}, email: "A@b.co", password: "passw0rd1"},
	}

	var msgs []string
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, _ := newSQLMockDB(t)
			s := newService(t, db, &fakeUsersRepo{byEmail: tt.users}, &fakeHasher{})

			res, err := s.Login(context.Background(), tt.email, tt.password)
			assert.Nil(t, res)
			require.ErrorIs(t, err, common.ErrInvalidCredentials)
			msgs = append(msgs, err.Error())
		})
	}

	for _, m := range msgs {
		assert.Equal(t, msgs[0], m)
	}
}

func TestLogin_UnknownEmailStillCompares(t *testing.T) {
	db, _ := newSQLMockDB(t)
	h := &fakeHasher{}
	s := newService(t, db, &fakeUsersRepo{}, h)

	_, err := s.Login(context.Background(), "ghost@b.co", "passw0rd1")
	require.ErrorIs(t, err, common.ErrInvalidCredentials)
	assert.Equal(t, 1, h.compares)
}

func TestLogin_StorageError(t *testing.T) {
	db, _ := newSQLMockDB(t)
	s := newService(t, db, &fakeUsersRepo{getErr: errBoom{}}, &fakeHasher{})

	_, err := s.Login(context.Background(), "a@b.co", "passw0rd1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, common.ErrInvalidCredentials))
}

// --- Refresh ---

func TestRefresh_Success(t *testing.T) {
	db, _ := newSQLMockDB(t)
	s := newService(t, db, &fakeUsersRepo{}, &fakeHasher{})
	iss := newIssuer(t)

	rt, err := iss.IssueRefresh(auth.Identity{UserID: "u-42", Email: "a@b.co"})
	require.NoError(t, err)

	access, err := s.Refresh(context.Background(), rt)
	require.NoError(t, err)

	id, err := iss.VerifyAccess(access)
	require.NoError(t, err)
	assert.Equal(t, "u-42", id.UserID)
}

func TestRefresh_Failures(t *testing.T) {
	iss := newIssuer(t)
	access, err := iss.IssueAccess(auth.Identity{UserID: "u-42", Email: "a@b.co"})
	require.NoError(t, err)

	expired, err := auth.GenerateToken(auth.Identity{UserID: "u-42"}, []byte("refresh-secret"), time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "malformed", token: "not.a.jwt"},
		{name: "access token used as refresh", token: access},
		{name: "expired", token: expired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, _ := newSQLMockDB(t)
			s := newService(t, db, &fakeUsersRepo{}, &fakeHasher{})

			got, err := s.Refresh(context.Background(), tt.token)
			assert.Empty(t, got)
			require.ErrorIs(t, err, common.ErrRefreshTokenExpired)
		})
	}
}

// --- Me / Logout ---

func TestMe(t *testing.T) {
	db, _ := newSQLMockDB(t)
	repo := &fakeUsersRepo{byEmail: map[string]*models.User{"a@b.co": existingUser()}}
	s := newService(t, db, repo, &fakeHasher{})

	u, err := s.Me(context.Background(), "u-42")
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.Name)

	_, err = s.Me(context.Background(), "missing")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestLogout_IsIdempotent(t *testing.T) {
	db, _ := newSQLMockDB(t)
	s := newService(t, db, &fakeUsersRepo{}, &fakeHasher{})

	require.NotPanics(t, func() {
		s.Logout(context.Background())
		s.Logout(context.Background())
	})
}
