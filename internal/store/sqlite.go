package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/joescharf/hcm/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned when no campaign matches a lookup.
var ErrNotFound = errors.New("campaign not found")

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Campaigns for the same client may be started from parallel shells.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// newULID generates a new ULID string.
func newULID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const campaignColumns = `id, client, job_id, branch, directory, repo_url, status, started_at, completed_at`

func (s *SQLiteStore) CreateCampaign(ctx context.Context, c *models.Campaign) error {
	if c.ID == "" {
		c.ID = newULID()
	}
	if c.Status == "" {
		c.Status = models.CampaignStatusStarted
	}
	c.StartedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO campaigns (`+campaignColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Client, c.JobID, c.Branch, c.Directory, c.RepoURL,
		string(c.Status), c.StartedAt, c.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("create campaign: %w", err)
	}
	return nil
}

// GetCampaign finds a campaign by full ID, falling back to a unique ID prefix.
func (s *SQLiteStore) GetCampaign(ctx context.Context, id string) (*models.Campaign, error) {
	c, err := s.getOne(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE id = ?`, id)
	if err == nil || !errors.Is(err, ErrNotFound) {
		return c, err
	}

	matches, err := s.scanCampaigns(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE id LIKE ? ORDER BY started_at DESC LIMIT 2`,
		strings.ToUpper(id)+"%")
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("ambiguous campaign ID prefix: %s", id)
	}
}

func (s *SQLiteStore) GetCampaignByDirectory(ctx context.Context, dir string) (*models.Campaign, error) {
	return s.getOne(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE directory = ?`, dir)
}

func (s *SQLiteStore) ListCampaigns(ctx context.Context, filter CampaignListFilter) ([]*models.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns`
	var conditions []string
	var args []any

	if filter.Client != "" {
		conditions = append(conditions, "client = ?")
		args = append(args, filter.Client)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY started_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	return s.scanCampaigns(ctx, query, args...)
}

func (s *SQLiteStore) CompleteCampaign(ctx context.Context, id string) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE campaigns SET status = ?, completed_at = ? WHERE id = ?`,
		string(models.CampaignStatusCompleted), now, id,
	)
	if err != nil {
		return fmt.Errorf("complete campaign: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (s *SQLiteStore) DeleteCampaign(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM campaigns WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete campaign: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (s *SQLiteStore) getOne(ctx context.Context, query string, arg string) (*models.Campaign, error) {
	c := &models.Campaign{}
	var status string
	var completedAt sql.NullTime

	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&c.ID, &c.Client, &c.JobID, &c.Branch, &c.Directory, &c.RepoURL,
		&status, &c.StartedAt, &completedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, arg)
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}

	c.Status = models.CampaignStatus(status)
	if completedAt.Valid {
		c.CompletedAt = &completedAt.Time
	}
	return c, nil
}

// scanCampaigns is a shared helper for scanning campaign rows.
func (s *SQLiteStore) scanCampaigns(ctx context.Context, query string, args ...any) ([]*models.Campaign, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var campaigns []*models.Campaign
	for rows.Next() {
		c := &models.Campaign{}
		var status string
		var completedAt sql.NullTime

		if err := rows.Scan(&c.ID, &c.Client, &c.JobID, &c.Branch, &c.Directory, &c.RepoURL,
			&status, &c.StartedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}

		c.Status = models.CampaignStatus(status)
		if completedAt.Valid {
			c.CompletedAt = &completedAt.Time
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}
