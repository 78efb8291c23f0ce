package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/softlyai/maya/internal/models"
)

// Store owns the three tables (users, memories, mood_logs). Every write
// is a single auto-committed statement; callers never hold direct state.
type Store struct {
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s := &Store{db: db}
	if err := s.configure(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("sqlite pragma %q: %w", p, err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema() error {
	stmts := []string{
		// The unique index on (platform, platform_user_id) is what keeps
		// concurrent first messages from creating duplicate user rows.
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			platform TEXT NOT NULL,
			platform_user_id TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			message_count INTEGER NOT NULL DEFAULT 0,
			last_reset TEXT NOT NULL,
			last_active INTEGER NOT NULL DEFAULT 0,
			last_reminder INTEGER NOT NULL DEFAULT 0,
			is_premium INTEGER NOT NULL DEFAULT 0,
			premium_expires_at INTEGER,
			created_at INTEGER NOT NULL DEFAULT 0,
			UNIQUE(platform, platform_user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS memories (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			platform TEXT NOT NULL,
			platform_user_id TEXT NOT NULL,
			summary TEXT NOT NULL,
			emotion_tag TEXT NOT NULL,
			created_at INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_memories_user ON memories(platform, platform_user_id, id)`,
		`CREATE TABLE IF NOT EXISTS mood_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			platform TEXT NOT NULL,
			platform_user_id TEXT NOT NULL,
			mood_score INTEGER NOT NULL,
			mood_label TEXT NOT NULL,
			created_at INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_mood_logs_user ON mood_logs(platform, platform_user_id, created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// ---------- users -----------------------------------------------------------

const userColumns = `id, platform, platform_user_id, name, message_count, last_reset,
	last_active, last_reminder, is_premium, premium_expires_at, created_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	var lastActive, lastReminder, createdAt int64
	var premiumExpires sql.NullInt64
	var isPremium int

	err := row.Scan(&u.ID, &u.Platform, &u.PlatformUserID, &u.Name, &u.MessageCount,
		&u.LastReset, &lastActive, &lastReminder, &isPremium, &premiumExpires, &createdAt)
	if err != nil {
		return nil, err
	}

	u.LastActive = time.Unix(lastActive, 0)
	u.LastReminder = time.Unix(lastReminder, 0)
	u.IsPremium = isPremium != 0
	u.CreatedAt = time.Unix(createdAt, 0)
	if premiumExpires.Valid {
		t := time.Unix(premiumExpires.Int64, 0)
		u.PremiumExpiresAt = &t
	}
	return &u, nil
}

// GetUser returns nil without error when the pair is unknown.
func (s *Store) GetUser(platform, userID string) (*models.User, error) {
	u, err := scanUser(s.db.QueryRow(
		`SELECT `+userColumns+` FROM users WHERE platform=? AND platform_user_id=?`,
		platform, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *Store) CreateUser(platform, userID, name string, now time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO users (platform, platform_user_id, name, message_count, last_reset, last_active, created_at)
		VALUES (?,?,?,0,?,?,?)`,
		platform, userID, name, now.Format("2006-01-02"), now.Unix(), now.Unix())
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *Store) ResetDailyCount(platform, userID, day string) error {
	_, err := s.db.Exec(`UPDATE users SET message_count=0, last_reset=? WHERE platform=? AND platform_user_id=?`,
		day, platform, userID)
	if err != nil {
		return fmt.Errorf("reset daily count: %w", err)
	}
	return nil
}

// IncrementMessageCount is a single statement so concurrent messages
// from the same user cannot lose an increment. It also stamps activity.
func (s *Store) IncrementMessageCount(platform, userID string, now time.Time) error {
	_, err := s.db.Exec(`UPDATE users SET message_count=message_count+1, last_active=? WHERE platform=? AND platform_user_id=?`,
		now.Unix(), platform, userID)
	if err != nil {
		return fmt.Errorf("increment message count: %w", err)
	}
	return nil
}

func (s *Store) Downgrade(platform, userID string) error {
	_, err := s.db.Exec(`UPDATE users SET is_premium=0 WHERE platform=? AND platform_user_id=?`,
		platform, userID)
	if err != nil {
		return fmt.Errorf("downgrade user: %w", err)
	}
	return nil
}

// SetPremium grants premium; a nil expiry means non-expiring.
func (s *Store) SetPremium(platform, userID string, expiresAt *time.Time) error {
	var expires sql.NullInt64
	if expiresAt != nil {
		expires = sql.NullInt64{Int64: expiresAt.Unix(), Valid: true}
	}
	_, err := s.db.Exec(`UPDATE users SET is_premium=1, premium_expires_at=? WHERE platform=? AND platform_user_id=?`,
		expires, platform, userID)
	if err != nil {
		return fmt.Errorf("set premium: %w", err)
	}
	return nil
}

func (s *Store) TouchReminder(platform, userID string, now time.Time) error {
	_, err := s.db.Exec(`UPDATE users SET last_reminder=? WHERE platform=? AND platform_user_id=?`,
		now.Unix(), platform, userID)
	if err != nil {
		return fmt.Errorf("touch reminder: %w", err)
	}
	return nil
}

// SilentUsers lists users whose last inbound message predates activeBefore
// and whose last nudge predates remindBefore.
func (s *Store) SilentUsers(activeBefore, remindBefore time.Time) ([]models.User, error) {
	rows, err := s.db.Query(
		`SELECT `+userColumns+` FROM users WHERE last_active < ? AND last_reminder < ?`,
		activeBefore.Unix(), remindBefore.Unix())
	if err != nil {
		return nil, fmt.Errorf("list silent users: %w", err)
	}
	defer rows.Close()

	var res []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan silent user: %w", err)
		}
		res = append(res, *u)
	}
	return res, rows.Err()
}

// UsersWithMoodSince lists users with at least one mood sample after since.
func (s *Store) UsersWithMoodSince(since time.Time) ([]models.User, error) {
	rows, err := s.db.Query(`
		SELECT `+userColumns+` FROM users u
		WHERE EXISTS (
			SELECT 1 FROM mood_logs m
			WHERE m.platform = u.platform AND m.platform_user_id = u.platform_user_id
			  AND m.created_at >= ?
		)`, since.Unix())
	if err != nil {
		return nil, fmt.Errorf("list users with mood: %w", err)
	}
	defer rows.Close()

	var res []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user with mood: %w", err)
		}
		res = append(res, *u)
	}
	return res, rows.Err()
}

// ---------- memories --------------------------------------------------------

func (s *Store) InsertMemory(platform, userID, summary, emotionTag string, now time.Time) error {
	_, err := s.db.Exec(`INSERT INTO memories (platform, platform_user_id, summary, emotion_tag, created_at) VALUES (?,?,?,?,?)`,
		platform, userID, summary, emotionTag, now.Unix())
	if err != nil {
		return fmt.Errorf("insert memory: %w", err)
	}
	return nil
}

// RecentMemories returns up to limit entries, newest first.
func (s *Store) RecentMemories(platform, userID string, limit int) ([]models.MemoryEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, platform, platform_user_id, summary, emotion_tag, created_at
		FROM memories WHERE platform=? AND platform_user_id=?
		ORDER BY id DESC LIMIT ?`, platform, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent memories: %w", err)
	}
	defer rows.Close()

	var res []models.MemoryEntry
	for rows.Next() {
		var m models.MemoryEntry
		var createdAt int64
		if err := rows.Scan(&m.ID, &m.Platform, &m.PlatformUserID, &m.Summary, &m.EmotionTag, &createdAt); err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		m.CreatedAt = time.Unix(createdAt, 0)
		res = append(res, m)
	}
	return res, rows.Err()
}

// ---------- mood logs -------------------------------------------------------

func (s *Store) InsertMoodLog(platform, userID string, score int, label string, now time.Time) error {
	_, err := s.db.Exec(`INSERT INTO mood_logs (platform, platform_user_id, mood_score, mood_label, created_at) VALUES (?,?,?,?,?)`,
		platform, userID, score, label, now.Unix())
	if err != nil {
		return fmt.Errorf("insert mood log: %w", err)
	}
	return nil
}

// MoodsSince returns the user's mood samples after since, oldest first.
func (s *Store) MoodsSince(platform, userID string, since time.Time) ([]models.MoodLogEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, platform, platform_user_id, mood_score, mood_label, created_at
		FROM mood_logs WHERE platform=? AND platform_user_id=? AND created_at >= ?
		ORDER BY id`, platform, userID, since.Unix())
	if err != nil {
		return nil, fmt.Errorf("moods since: %w", err)
	}
	defer rows.Close()

	var res []models.MoodLogEntry
	for rows.Next() {
		var m models.MoodLogEntry
		var createdAt int64
		if err := rows.Scan(&m.ID, &m.Platform, &m.PlatformUserID, &m.MoodScore, &m.MoodLabel, &createdAt); err != nil {
			return nil, fmt.Errorf("scan mood log: %w", err)
		}
		m.CreatedAt = time.Unix(createdAt, 0)
		res = append(res, m)
	}
	return res, rows.Err()
}
