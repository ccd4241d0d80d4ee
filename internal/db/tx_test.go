package db

import (
	"database/sql"
	"errors"
	"testing"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	_, err = conn.Exec(`CREATE TABLE plays (id INTEGER PRIMARY KEY, artist TEXT NOT NULL, album TEXT)`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	return conn
}

func countPlays(t *testing.T, conn *sql.DB) int {
	t.Helper()

	var n int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM plays`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestWithTxCommits(t *testing.T) {
	conn := openTestDB(t)

	err := WithTx(conn, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO plays (artist) VALUES (?)`, "Portishead"); err != nil {
			return err
		}
		_, err := tx.Exec(`INSERT INTO plays (artist) VALUES (?)`, "Massive Attack")
		return err
	})
	if err != nil {
		t.Fatalf("WithTx: %v", err)
	}

	if n := countPlays(t, conn); n != 2 {
		t.Errorf("rows after commit = %d, want 2", n)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	conn := openTestDB(t)
	boom := errors.New("boom")

	err := WithTx(conn, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO plays (artist) VALUES (?)`, "Portishead"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx err = %v, want the callback error", err)
	}

	if n := countPlays(t, conn); n != 0 {
		t.Errorf("rows after rollback = %d, want 0", n)
	}
}

func TestNullHelpers(t *testing.T) {
	if got := NullInt64Value(sql.NullInt64{Int64: 42, Valid: true}); got != 42 {
		t.Errorf("NullInt64Value(valid 42) = %d", got)
	}
	if got := NullInt64Value(sql.NullInt64{Int64: 42, Valid: false}); got != 0 {
		t.Errorf("NullInt64Value(invalid) = %d, want 0", got)
	}
	if got := NullStringValue(sql.NullString{String: "ok", Valid: true}); got != "ok" {
		t.Errorf("NullStringValue(valid) = %q", got)
	}
	if got := NullStringValue(sql.NullString{Valid: false}); got != "" {
		t.Errorf("NullStringValue(invalid) = %q, want empty", got)
	}
}

func TestNullableStringRoundTrip(t *testing.T) {
	conn := openTestDB(t)

	// Empty strings land as NULL, non-empty ones as themselves.
	_, err := conn.Exec(`INSERT INTO plays (artist, album) VALUES (?, ?), (?, ?)`,
		"Burial", NullableString(""),
		"Burial", NullableString("Untrue"))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	var nulls int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM plays WHERE album IS NULL`).Scan(&nulls); err != nil {
		t.Fatalf("count nulls: %v", err)
	}
	if nulls != 1 {
		t.Errorf("NULL albums = %d, want 1", nulls)
	}

	var album sql.NullString
	err = conn.QueryRow(`SELECT album FROM plays WHERE album IS NOT NULL`).Scan(&album)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if NullStringValue(album) != "Untrue" {
		t.Errorf("album = %q, want Untrue", album.String)
	}
}
