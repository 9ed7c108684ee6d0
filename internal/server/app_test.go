package server

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophident/internal/dbx"
	"github.com/dmitrijs2005/gophident/internal/logging"
	"github.com/dmitrijs2005/gophident/internal/server/config"
	"github.com/dmitrijs2005/gophident/internal/server/repositories/users"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubManager struct {
	migrateErr error
	migrated   bool
}

func (m *stubManager) RunMigrations(context.Context, *sql.DB) error {
	m.migrated = true
	return m.migrateErr
}

func (m *stubManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

func testConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.EndpointAddrGRPC = "127.0.0.1:0"
	c.ShutdownTimeout = time.Second
	return c
}

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestNewApp_WiresServices(t *testing.T) {
	db, _ := newMockDB(t)
	defer db.Close()

	app, err := newApp(testConfig(), logging.NewNop(), db, &stubManager{})
	require.NoError(t, err)
	assert.NotNil(t, app.userService)
	assert.NotNil(t, app.chain)
}

func TestNewApp_BadConfig(t *testing.T) {
	db, _ := newMockDB(t)
	defer db.Close()

	c := testConfig()
	c.SigningAlgorithm = "none"
	_, err := newApp(c, logging.NewNop(), db, &stubManager{})
	assert.Error(t, err)

	c = testConfig()
	c.HashAlgorithm = "md5"
	_, err = newApp(c, logging.NewNop(), db, &stubManager{})
	assert.Error(t, err)
}

func TestOpenDB_MigrationFailure(t *testing.T) {
	boom := errors.New("boom")
	m := &stubManager{migrateErr: boom}

	_, err := OpenDB(context.Background(), "postgres://localhost:1/none", m)
	assert.ErrorIs(t, err, boom)
	assert.True(t, m.migrated)
}

func TestRun_StopsOnCancel(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectClose()

	app, err := newApp(testConfig(), logging.NewNop(), db, &stubManager{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}
