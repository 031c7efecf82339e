package taskstore

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hochfrequenz/fiztarefa/internal/domain"
	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when no row matches the given id
	ErrNotFound = errors.New("not found")
	// ErrAmbiguous is returned when an id prefix matches more than one task
	ErrAmbiguous = errors.New("ambiguous id prefix")
	// ErrEmptyTitle is returned when creating a task or list without a name
	ErrEmptyTitle = errors.New("title must not be empty")
)

// Store provides SQLite-backed task, list and local state persistence
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// busyTimeout is how long a write waits for another process holding the
// database lock
const busyTimeout = 5 * time.Second

// New creates a new Store with the given database path
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, err
	}
	// SQLite has a single writer; one connection also keeps :memory: databases shared
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening %s: %w", dbPath, err)
	}

	// Run migrations
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// dsn applies the connection pragmas. The CLI, the terminal timer and the
// web server may hold the same file open at once.
func dsn(dbPath string) string {
	pragmas := []string{
		fmt.Sprintf("busy_timeout(%d)", busyTimeout.Milliseconds()),
		"foreign_keys(1)",
	}
	if dbPath != ":memory:" {
		pragmas = append(pragmas, "journal_mode(WAL)")
	}
	q := url.Values{"_pragma": pragmas}
	return dbPath + "?" + q.Encode()
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateList inserts a new list. An empty color picks one from the palette.
func (s *Store) CreateList(name, color string) (*domain.List, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyTitle
	}
	if color == "" {
		var count int
		if err := s.db.QueryRow(`SELECT COUNT(*) FROM lists`).Scan(&count); err != nil {
			return nil, err
		}
		color = domain.DefaultListColor(count)
	}

	list := &domain.List{
		ID:        uuid.NewString(),
		Name:      name,
		Color:     color,
		CreatedAt: s.now(),
	}
	_, err := s.db.Exec(`INSERT INTO lists (id, name, color, created_at) VALUES (?, ?, ?, ?)`,
		list.ID, list.Name, list.Color, list.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting list: %w", err)
	}
	return list, nil
}

// ListLists returns all lists, oldest first
func (s *Store) ListLists() ([]*domain.List, error) {
	rows, err := s.db.Query(`SELECT id, name, color, created_at FROM lists ORDER BY created_at, rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lists []*domain.List
	for rows.Next() {
		var list domain.List
		var color sql.NullString
		if err := rows.Scan(&list.ID, &list.Name, &color, &list.CreatedAt); err != nil {
			return nil, err
		}
		list.Color = color.String
		lists = append(lists, &list)
	}
	return lists, rows.Err()
}

// DeleteList removes a list. Its tasks are kept without a list.
func (s *Store) DeleteList(id string) error {
	res, err := s.db.Exec(`DELETE FROM lists WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// CreateTask inserts a new task, optionally inside a list
func (s *Store) CreateTask(title, listID string) (*domain.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}

	if listID != "" {
		if err := s.requireList(listID); err != nil {
			return nil, err
		}
	}

	now := s.now()
	task := &domain.Task{
		ID:        uuid.NewString(),
		ListID:    listID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.Exec(`
		INSERT INTO tasks (id, list_id, title, description, completed, pomodoros_completed, created_at, updated_at)
		VALUES (?, ?, ?, ?, FALSE, 0, ?, ?)
	`,
		task.ID,
		nullString(task.ListID),
		task.Title,
		nullString(task.Description),
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting task: %w", err)
	}
	return task, nil
}

// GetTask retrieves a task by ID
func (s *Store) GetTask(id string) (*domain.Task, error) {
	row := s.db.QueryRow(`
		SELECT id, list_id, title, description, completed, pomodoros_completed, created_at, updated_at
		FROM tasks WHERE id = ?
	`, id)

	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return task, err
}

// ResolveTaskID expands a unique id prefix into the full task id
func (s *Store) ResolveTaskID(prefix string) (string, error) {
	if prefix == "" {
		return "", fmt.Errorf("task %q: %w", prefix, ErrNotFound)
	}
	rows, err := s.db.Query(`SELECT id FROM tasks WHERE id LIKE ? || '%' LIMIT 2`, prefix)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	switch len(ids) {
	case 0:
		return "", fmt.Errorf("task %q: %w", prefix, ErrNotFound)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("task %q: %w", prefix, ErrAmbiguous)
	}
}

// ListOptions specifies filters for listing tasks
type ListOptions struct {
	ListID           string
	IncludeCompleted bool
}

// ListTasks returns tasks matching the given options, open tasks first and
// newest first within each group
func (s *Store) ListTasks(opts ListOptions) ([]*domain.Task, error) {
	query := `SELECT id, list_id, title, description, completed, pomodoros_completed, created_at, updated_at FROM tasks WHERE 1=1`
	var args []interface{}

	if opts.ListID != "" {
		query += " AND list_id = ?"
		args = append(args, opts.ListID)
	}
	if !opts.IncludeCompleted {
		query += " AND completed = FALSE"
	}

	query += " ORDER BY completed ASC, created_at DESC, rowid DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	return tasks, rows.Err()
}

// UpdateTask changes a task's title and description
func (s *Store) UpdateTask(id, title, description string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}
	res, err := s.db.Exec(`UPDATE tasks SET title = ?, description = ?, updated_at = ? WHERE id = ?`,
		title, nullString(description), s.now(), id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// SetCompleted marks a task done or open again
func (s *Store) SetCompleted(id string, completed bool) error {
	res, err := s.db.Exec(`UPDATE tasks SET completed = ?, updated_at = ? WHERE id = ?`,
		completed, s.now(), id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// DeleteTask removes a task
func (s *Store) DeleteTask(id string) error {
	res, err := s.db.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// IncrementPomodoros adds one completed pomodoro to a task
func (s *Store) IncrementPomodoros(id string) error {
	res, err := s.db.Exec(`
		UPDATE tasks SET pomodoros_completed = pomodoros_completed + 1, updated_at = ?
		WHERE id = ?
	`, s.now(), id)
	if err != nil {
		return err
	}
	if err := expectOne(res); err != nil {
		return fmt.Errorf("task %s: %w", id, err)
	}
	return nil
}

func (s *Store) requireList(id string) error {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM lists WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("list %s: %w", id, ErrNotFound)
	}
	return err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row scanner) (*domain.Task, error) {
	var task domain.Task
	var listID, description sql.NullString

	err := row.Scan(&task.ID, &listID, &task.Title, &description, &task.Completed, &task.PomodorosCompleted, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return nil, err
	}

	task.ListID = listID.String
	task.Description = description.String
	return &task, nil
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
