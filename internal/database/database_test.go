package database

import "testing"

func TestRebind(t *testing.T) {
	pg := &DB{Dialect: Postgres}
	got := pg.Rebind(`UPDATE posts SET title = ?, content = ? WHERE id = ?`)
	want := `UPDATE posts SET title = $1, content = $2 WHERE id = $3`
	if got != want {
		t.Errorf("postgres rebind = %q", got)
	}

	lite := &DB{Dialect: SQLite}
	q := `SELECT id FROM posts WHERE id = ?`
	if lite.Rebind(q) != q {
		t.Errorf("sqlite rebind changed the query")
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	for i := 0; i < 2; i++ {
		if err := db.Migrate(); err != nil {
			t.Fatalf("migrate #%d: %v", i+1, err)
		}
	}
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM posts`).Scan(&n); err != nil {
		t.Fatal(err)
	}
}

func TestOpenUnknownType(t *testing.T) {
	if _, err := Open("mysql", "", ""); err == nil {
		t.Fatal("expected an error for an unsupported storage type")
	}
}
