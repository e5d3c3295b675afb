package document

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestPostgresRead(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT content, version FROM document WHERE id = 1`).
		WillReturnRows(sqlmock.NewRows([]string{"content", "version"}).
			AddRow([]byte("hello"), int64(7)))

	state, err := repo.Read(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(state.Content) != "hello" || state.Version != 7 {
		t.Fatalf("unexpected state: %q v%d", state.Content, state.Version)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresWrite_CommitsUpdateAndHistory(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE document SET content = \$1, version = version \+ 1 WHERE id = 1 RETURNING version`).
		WithArgs([]byte("new body")).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(int64(4)))
	mock.ExpectExec(`INSERT INTO document_history \(version, client_id, ts\) VALUES \(\$1, \$2, now\(\)\)`).
		WithArgs(int64(4), "client-a").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	version, err := repo.Write(context.Background(), []byte("new body"), "client-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if version != 4 {
		t.Fatalf("want version 4, got %d", version)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresWrite_RollsBackOnHistoryError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE document SET content = \$1`).
		WithArgs([]byte("body")).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(int64(2)))
	mock.ExpectExec(`INSERT INTO document_history`).
		WithArgs(int64(2), "c").
		WillReturnError(errors.New("db is down"))
	mock.ExpectRollback()

	_, err := repo.Write(context.Background(), []byte("body"), "c")
	if err == nil || !regexp.MustCompile(`insert history: .*db is down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped history error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresHistorySince(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT version, client_id, ts FROM document_history WHERE version > \$1 ORDER BY version`).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"version", "client_id", "ts"}).
			AddRow(int64(3), "a", ts).
			AddRow(int64(4), "b", ts.Add(time.Second)))

	entries, err := repo.HistorySince(context.Background(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 || entries[0].Version != 3 || entries[1].Version != 4 {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	if entries[1].ClientID != "b" {
		t.Fatalf("unexpected client id: %q", entries[1].ClientID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
