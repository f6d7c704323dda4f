// Package store keeps loaded rollouts in an in-memory sqlite index so the UI
// can search across every rollout in a tab. Nothing is persisted: the
// database lives and dies with the process.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"rollout-trace/internal/rollout"

	_ "github.com/mattn/go-sqlite3"
)

type Index struct {
	db  *sql.DB
	fts bool
	mu  sync.Mutex
}

func Open() (*Index, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open in-memory sqlite db: %w", err)
	}
	// A :memory: DSN gives every pooled connection its own database.
	db.SetMaxOpenConns(1)

	ix := &Index{db: db}
	if err := ix.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return ix, nil
}

func (ix *Index) Close() error {
	return ix.db.Close()
}

func (ix *Index) initSchema() error {
	_, err := ix.db.Exec(`CREATE VIRTUAL TABLE rollouts_fts USING fts5(
		tab UNINDEXED,
		pos UNINDEXED,
		content
	);`)
	if err == nil {
		ix.fts = true
		return nil
	}
	if !strings.Contains(strings.ToLower(err.Error()), "no such module: fts5") {
		return fmt.Errorf("create rollouts_fts: %w", err)
	}

	// Fallback for sqlite builds without FTS5 support.
	if _, err := ix.db.Exec(`CREATE TABLE rollouts_fts (
		tab INTEGER,
		pos INTEGER,
		content TEXT
	);`); err != nil {
		return fmt.Errorf("create rollouts_fts fallback table: %w", err)
	}
	if _, err := ix.db.Exec(`CREATE INDEX idx_rollouts_fts_tab ON rollouts_fts(tab);`); err != nil {
		return fmt.Errorf("create fallback rollouts_fts index: %w", err)
	}
	return nil
}

// AddTab indexes every rollout of one tab, replacing whatever that tab held
// before. pos is the 1-based position in the sorted sequence.
func (ix *Index) AddTab(tab int, rollouts []rollout.Rollout) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	tx, err := ix.db.Begin()
	if err != nil {
		return fmt.Errorf("begin index tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM rollouts_fts WHERE tab = ?;`, tab); err != nil {
		return fmt.Errorf("clear tab %d: %w", tab, err)
	}

	stmt, err := tx.Prepare(`INSERT INTO rollouts_fts(tab, pos, content) VALUES(?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare rollout insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range rollouts {
		if _, err := stmt.Exec(tab, i+1, flatten(r)); err != nil {
			return fmt.Errorf("index rollout %d of tab %d: %w", i+1, tab, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit index tx: %w", err)
	}
	return nil
}

// Search returns the 1-based positions of rollouts in tab whose text matches
// every term of query, ascending.
func (ix *Index) Search(tab int, query string) ([]int, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("empty search query")
	}

	var rows *sql.Rows
	var err error
	if ix.fts {
		rows, err = ix.searchFTS(tab, query)
		if err != nil {
			rows, err = ix.searchLike(tab, query)
		}
	} else {
		rows, err = ix.searchLike(tab, query)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var pos int
		if err := rows.Scan(&pos); err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		out = append(out, pos)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search rows: %w", err)
	}
	return out, nil
}

func (ix *Index) searchFTS(tab int, query string) (*sql.Rows, error) {
	ftsQuery := buildFTSQuery(query)
	if ftsQuery == "" {
		return nil, errors.New("empty fts query")
	}
	rows, err := ix.db.Query(`
		SELECT pos FROM rollouts_fts
		WHERE tab = ? AND rollouts_fts MATCH ?
		ORDER BY pos
	`, tab, ftsQuery)
	if err != nil {
		return nil, fmt.Errorf("fts query failed: %w", err)
	}
	return rows, nil
}

func (ix *Index) searchLike(tab int, query string) (*sql.Rows, error) {
	terms := tokenize(query)
	if len(terms) == 0 {
		return nil, errors.New("no usable search terms")
	}

	var b strings.Builder
	b.WriteString(`SELECT pos FROM rollouts_fts WHERE tab = ?`)
	args := []any{tab}
	for _, term := range terms {
		b.WriteString(` AND LOWER(content) LIKE ?`)
		args = append(args, "%"+term+"%")
	}
	b.WriteString(` ORDER BY pos`)

	rows, err := ix.db.Query(b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("like query failed: %w", err)
	}
	return rows, nil
}

func buildFTSQuery(raw string) string {
	terms := tokenize(raw)
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ReplaceAll(t, `"`, "")
		if t == "" {
			continue
		}
		quoted = append(quoted, fmt.Sprintf(`"%s"*`, t))
	}
	return strings.Join(quoted, " AND ")
}

func tokenize(raw string) []string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(raw)))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, "`\"'.,:;!?()[]{}<>|")
		if f == "" {
			continue
		}
		out = append(out, f)
	}
	return out
}

// flatten joins all renderable text of a rollout into one searchable blob.
func flatten(r rollout.Rollout) string {
	var parts []string
	if msg, ok := r.PromptMessage(); ok {
		if body := msg.Content.Body(); body != "" {
			parts = append(parts, body)
		}
	}
	for _, msg := range r.Conversation.Messages {
		if body := msg.Content.Body(); body != "" {
			parts = append(parts, body)
		}
	}
	return strings.Join(parts, "\n")
}
