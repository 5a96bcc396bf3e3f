package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"virtual-courtroom/internal/domain"
)

// SQLiteStore implements domain.CaseStore using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ domain.CaseStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) a SQLite database at dbPath
// and runs the schema migration.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open case db: %w", err)
	}
	// WAL mode for better concurrent reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate case db: %w", err)
	}
	return &SQLiteStore{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS cases (
			id          TEXT PRIMARY KEY,
			title       TEXT NOT NULL,
			case_type   TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status      TEXT NOT NULL DEFAULT 'active',
			metadata    TEXT NOT NULL DEFAULT '{}',
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS participants (
			id            TEXT PRIMARY KEY,
			case_id       TEXT NOT NULL REFERENCES cases(id),
			role          TEXT NOT NULL,
			agent_type    TEXT NOT NULL DEFAULT '',
			name          TEXT NOT NULL,
			system_prompt TEXT NOT NULL DEFAULT '',
			params        TEXT NOT NULL DEFAULT '{}',
			created_at    TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_participants_case ON participants(case_id);
		CREATE TABLE IF NOT EXISTS conversations (
			id                TEXT PRIMARY KEY,
			case_id           TEXT NOT NULL REFERENCES cases(id),
			title             TEXT NOT NULL,
			conversation_type TEXT NOT NULL,
			status            TEXT NOT NULL,
			metadata          TEXT NOT NULL DEFAULT '{}',
			started_at        TEXT NOT NULL,
			ended_at          TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_conversations_case ON conversations(case_id);
		CREATE TABLE IF NOT EXISTS messages (
			id               TEXT PRIMARY KEY,
			conversation_id  TEXT NOT NULL REFERENCES conversations(id),
			participant_id   TEXT NOT NULL DEFAULT '',
			participant_name TEXT NOT NULL DEFAULT '',
			participant_role TEXT NOT NULL DEFAULT '',
			role             TEXT NOT NULL,
			content          TEXT NOT NULL,
			metadata         TEXT NOT NULL DEFAULT '{}',
			timestamp        TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, timestamp);
	`)
	return err
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func newID() string {
	return ulid.Make().String()
}

// --- cases ---

func (s *SQLiteStore) CreateCase(ctx context.Context, c *domain.Case) error {
	meta, err := marshalJSON(c.Metadata)
	if err != nil {
		return fmt.Errorf("marshal case metadata: %w", err)
	}
	if c.ID == "" {
		c.ID = newID()
	}
	if c.Status == "" {
		c.Status = "active"
	}
	now := s.now()
	c.CreatedAt = now
	c.UpdatedAt = now
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO cases (id, title, case_type, description, status, metadata, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		c.ID, c.Title, c.CaseType, c.Description, c.Status, meta,
		formatTime(now), formatTime(now),
	)
	if err != nil {
		return domain.WrapOp("store.CreateCase", err)
	}
	return nil
}

func (s *SQLiteStore) GetCase(ctx context.Context, id string) (*domain.Case, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, title, case_type, description, status, metadata, created_at, updated_at FROM cases WHERE id = ?", id,
	)
	var c domain.Case
	var meta, createdStr, updatedStr string
	if err := row.Scan(&c.ID, &c.Title, &c.CaseType, &c.Description, &c.Status, &meta, &createdStr, &updatedStr); err != nil {
		return nil, notFound("case", id, err)
	}
	if err := unmarshalJSON(meta, &c.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal case metadata: %w", err)
	}
	c.CreatedAt = parseTime(createdStr)
	c.UpdatedAt = parseTime(updatedStr)
	return &c, nil
}

// --- participants ---

func (s *SQLiteStore) AddParticipant(ctx context.Context, p *domain.Participant) error {
	if _, err := s.GetCase(ctx, p.CaseID); err != nil {
		return err
	}
	params, err := marshalJSON(p.Params)
	if err != nil {
		return fmt.Errorf("marshal participant params: %w", err)
	}
	if p.ID == "" {
		p.ID = newID()
	}
	p.CreatedAt = s.now()
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO participants (id, case_id, role, agent_type, name, system_prompt, params, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		p.ID, p.CaseID, p.Role, p.AgentType, p.Name, p.SystemPrompt, params, formatTime(p.CreatedAt),
	)
	if err != nil {
		return domain.WrapOp("store.AddParticipant", err)
	}
	return nil
}

const participantColumns = "id, case_id, role, agent_type, name, system_prompt, params, created_at"

func (s *SQLiteStore) GetParticipant(ctx context.Context, id string) (*domain.Participant, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+participantColumns+" FROM participants WHERE id = ?", id)
	p, err := scanParticipant(row)
	if err != nil {
		return nil, notFound("participant", id, err)
	}
	return p, nil
}

// UpdateParticipant overwrites name, agent type, system prompt and params.
func (s *SQLiteStore) UpdateParticipant(ctx context.Context, p *domain.Participant) error {
	params, err := marshalJSON(p.Params)
	if err != nil {
		return fmt.Errorf("marshal participant params: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE participants SET name = ?, agent_type = ?, system_prompt = ?, params = ? WHERE id = ?",
		p.Name, p.AgentType, p.SystemPrompt, params, p.ID,
	)
	if err != nil {
		return domain.WrapOp("store.UpdateParticipant", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.NewDomainError("store.UpdateParticipant", domain.ErrNotFound, p.ID)
	}
	return nil
}

// ListParticipants returns a case's participants in insertion order.
func (s *SQLiteStore) ListParticipants(ctx context.Context, caseID string) ([]*domain.Participant, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+participantColumns+" FROM participants WHERE case_id = ? ORDER BY created_at, rowid", caseID,
	)
	if err != nil {
		return nil, domain.WrapOp("store.ListParticipants", err)
	}
	defer rows.Close()

	var out []*domain.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// --- simulations ---

func (s *SQLiteStore) CreateSimulation(ctx context.Context, sim *domain.Simulation) error {
	if _, err := s.GetCase(ctx, sim.CaseID); err != nil {
		return err
	}
	meta, err := marshalJSON(sim.Metadata)
	if err != nil {
		return fmt.Errorf("marshal simulation metadata: %w", err)
	}
	if sim.ID == "" {
		sim.ID = newID()
	}
	if sim.Status == "" {
		sim.Status = domain.SimulationActive
	}
	sim.StartedAt = s.now()
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO conversations (id, case_id, title, conversation_type, status, metadata, started_at, ended_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		sim.ID, sim.CaseID, sim.Title, sim.ConversationType, sim.Status, meta,
		formatTime(sim.StartedAt), nullTime(sim.EndedAt),
	)
	if err != nil {
		return domain.WrapOp("store.CreateSimulation", err)
	}
	return nil
}

const simulationColumns = "id, case_id, title, conversation_type, status, metadata, started_at, ended_at"

func (s *SQLiteStore) GetSimulation(ctx context.Context, id string) (*domain.Simulation, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+simulationColumns+" FROM conversations WHERE id = ?", id)
	sim, err := scanSimulation(row)
	if err != nil {
		return nil, notFound("simulation", id, err)
	}
	return sim, nil
}

// ListSimulations returns a case's simulations, newest first.
func (s *SQLiteStore) ListSimulations(ctx context.Context, caseID string) ([]*domain.Simulation, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+simulationColumns+" FROM conversations WHERE case_id = ? ORDER BY started_at DESC, rowid DESC", caseID,
	)
	if err != nil {
		return nil, domain.WrapOp("store.ListSimulations", err)
	}
	defer rows.Close()

	var out []*domain.Simulation
	for rows.Next() {
		sim, err := scanSimulation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sim)
	}
	return out, rows.Err()
}

// UpdateSimulation overwrites title, status, metadata and ended_at.
func (s *SQLiteStore) UpdateSimulation(ctx context.Context, sim *domain.Simulation) error {
	meta, err := marshalJSON(sim.Metadata)
	if err != nil {
		return fmt.Errorf("marshal simulation metadata: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE conversations SET title = ?, status = ?, metadata = ?, ended_at = ? WHERE id = ?",
		sim.Title, sim.Status, meta, nullTime(sim.EndedAt), sim.ID,
	)
	if err != nil {
		return domain.WrapOp("store.UpdateSimulation", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.NewDomainError("store.UpdateSimulation", domain.ErrNotFound, sim.ID)
	}
	return nil
}

// DeleteSimulation removes the simulation together with its messages.
func (s *SQLiteStore) DeleteSimulation(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.WrapOp("store.DeleteSimulation", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE conversation_id = ?", id); err != nil {
		return domain.WrapOp("store.DeleteSimulation", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM conversations WHERE id = ?", id)
	if err != nil {
		return domain.WrapOp("store.DeleteSimulation", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.NewDomainError("store.DeleteSimulation", domain.ErrNotFound, id)
	}
	return tx.Commit()
}

// --- messages ---

func (s *SQLiteStore) AppendMessage(ctx context.Context, m *domain.SimulationMessage) error {
	if _, err := s.GetSimulation(ctx, m.SimulationID); err != nil {
		return err
	}
	meta, err := marshalJSON(m.Metadata)
	if err != nil {
		return fmt.Errorf("marshal message metadata: %w", err)
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = s.now()
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO messages (id, conversation_id, participant_id, participant_name, participant_role, role, content, metadata, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		m.ID, m.SimulationID, m.ParticipantID, m.ParticipantName, m.ParticipantRole,
		m.Role, m.Content, meta, formatTime(m.Timestamp),
	)
	if err != nil {
		return domain.WrapOp("store.AppendMessage", err)
	}
	return nil
}

// ListMessages returns a page of a simulation's messages in chronological
// order. A non-positive limit returns everything after offset.
func (s *SQLiteStore) ListMessages(ctx context.Context, simulationID string, offset, limit int) ([]*domain.SimulationMessage, error) {
	if limit <= 0 {
		limit = -1
	}
	offset = max(offset, 0)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, participant_id, participant_name, participant_role, role, content, metadata, timestamp
		 FROM messages WHERE conversation_id = ? ORDER BY timestamp, rowid LIMIT ? OFFSET ?`,
		simulationID, limit, offset,
	)
	if err != nil {
		return nil, domain.WrapOp("store.ListMessages", err)
	}
	defer rows.Close()

	var out []*domain.SimulationMessage
	for rows.Next() {
		var m domain.SimulationMessage
		var meta, ts string
		if err := rows.Scan(&m.ID, &m.SimulationID, &m.ParticipantID, &m.ParticipantName,
			&m.ParticipantRole, &m.Role, &m.Content, &meta, &ts); err != nil {
			return nil, err
		}
		if err := unmarshalJSON(meta, &m.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal message metadata: %w", err)
		}
		m.Timestamp = parseTime(ts)
		out = append(out, &m)
	}
	return out, rows.Err()
}

// --- helpers ---

type scanner interface {
	Scan(dest ...any) error
}

func scanParticipant(row scanner) (*domain.Participant, error) {
	var p domain.Participant
	var params, createdStr string
	if err := row.Scan(&p.ID, &p.CaseID, &p.Role, &p.AgentType, &p.Name, &p.SystemPrompt, &params, &createdStr); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(params, &p.Params); err != nil {
		return nil, fmt.Errorf("unmarshal participant params: %w", err)
	}
	p.CreatedAt = parseTime(createdStr)
	return &p, nil
}

func scanSimulation(row scanner) (*domain.Simulation, error) {
	var sim domain.Simulation
	var meta, startedStr string
	var endedStr sql.NullString
	if err := row.Scan(&sim.ID, &sim.CaseID, &sim.Title, &sim.ConversationType, &sim.Status,
		&meta, &startedStr, &endedStr); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(meta, &sim.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal simulation metadata: %w", err)
	}
	sim.StartedAt = parseTime(startedStr)
	if endedStr.Valid {
		sim.EndedAt = new(parseTime(endedStr.String))
	}
	return &sim, nil
}

func notFound(kind, id string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NewDomainError("store.Get", domain.ErrNotFound, kind+" "+id)
	}
	return err
}

func marshalJSON(v map[string]any) (string, error) {
	if v == nil {
		return "{}", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// unmarshalJSON leaves dst nil for an empty object.
func unmarshalJSON(s string, dst *map[string]any) error {
	if s == "" || s == "{}" {
		return nil
	}
	return json.Unmarshal([]byte(s), dst)
}

// timeLayout is fixed-width so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}
