package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/iWorld-y/fin_advisor/app/finance/pkg/model"
	"github.com/iWorld-y/fin_advisor/app/finance/pkg/normalize"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrDuplicateUser = errors.New("username already exists")
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id SERIAL PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS analyses (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL,
	kind TEXT NOT NULL,
	source TEXT NOT NULL,
	payload JSONB NOT NULL,
	diagnostics TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_analyses_username ON analyses (username, created_at DESC);
`

// Storage 用户与分析历史的 PostgreSQL 存储
type Storage struct {
	db *sql.DB
}

// NewStorage 连接数据库并初始化表结构
func NewStorage(ctx context.Context, dsn string) (*Storage, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Storage{db: db}, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

// User 用户记录
type User struct {
	ID           int
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

func (s *Storage) CreateUser(ctx context.Context, username, passwordHash string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash) VALUES ($1, $2)`, username, passwordHash)
	if err != nil && strings.Contains(err.Error(), "duplicate key") {
		return ErrDuplicateUser
	}
	return err
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE username = $1`, username).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Analysis 一次分析的存档
type Analysis struct {
	ID          string
	Username    string
	Kind        model.Kind
	Source      normalize.Source
	Payload     json.RawMessage
	Diagnostics []string
	CreatedAt   time.Time
}

// NewAnalysis 由归一化结果构造存档记录
func NewAnalysis(username string, res normalize.Result) (*Analysis, error) {
	payload, err := json.Marshal(res.Entity())
	if err != nil {
		return nil, fmt.Errorf("marshal analysis payload: %w", err)
	}
	return &Analysis{
		ID:          uuid.NewString(),
		Username:    username,
		Kind:        res.Kind,
		Source:      res.Source,
		Payload:     payload,
		Diagnostics: res.Diagnostics,
	}, nil
}

// SaveAnalyses 在一个事务里写入多条分析记录
func (s *Storage) SaveAnalyses(ctx context.Context, items ...*Analysis) error {
	if len(items) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO analyses (id, username, kind, source, payload, diagnostics) VALUES ($1, $2, $3, $4, $5, $6)`)
	if err != nil {
		return rollback(tx, err)
	}
	defer stmt.Close()

	for _, a := range items {
		diags := cleanText(strings.Join(a.Diagnostics, "\n"))
		if _, err := stmt.ExecContext(ctx, a.ID, a.Username, string(a.Kind), string(a.Source),
			strings.ReplaceAll(cleanText(string(a.Payload)), `\u0000`, ""), diags); err != nil {
			return rollback(tx, err)
		}
	}
	return tx.Commit()
}

// ListAnalyses 按时间倒序分页列出某个用户的分析记录
func (s *Storage) ListAnalyses(ctx context.Context, username string, page, pageSize int) ([]*Analysis, int, error) {
	offset := (page - 1) * pageSize

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, kind, source, payload, diagnostics, created_at
		FROM analyses WHERE username = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, username, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*Analysis
	for rows.Next() {
		var (
			a       Analysis
			kind    string
			src     string
			payload []byte
			diags   string
		)
		if err := rows.Scan(&a.ID, &a.Username, &kind, &src, &payload, &diags, &a.CreatedAt); err != nil {
			return nil, 0, err
		}
		a.Kind, a.Source, a.Payload = model.Kind(kind), normalize.Source(src), payload
		if diags != "" {
			a.Diagnostics = strings.Split(diags, "\n")
		}
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM analyses WHERE username = $1`, username).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func rollback(tx *sql.Tx, err error) error {
	if rerr := tx.Rollback(); rerr != nil {
		err = fmt.Errorf("%w: %v", err, rerr)
	}
	return err
}

// cleanText 移除无效 UTF-8 与 NULL 字节，PostgreSQL 文本字段不接受 NULL 字节
func cleanText(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	return strings.ReplaceAll(s, "\x00", "")
}
