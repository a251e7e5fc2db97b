// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mmeshcher/clube-madua/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrUserExists возвращается при попытке создать пользователя с уже существующим логином.
var (
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrNotFound возвращается, если статья, курс или урок не найдены.
	ErrNotFound = errors.New("not found")
	// ErrSlugExists возвращается при попытке создать статью с занятым адресом.
	ErrSlugExists = errors.New("slug already exists")
	// ErrTaskNotFound возвращается, если задача не найдена или принадлежит другому пользователю.
	ErrTaskNotFound = errors.New("routine task not found")
	// ErrCategoryExists возвращается при попытке создать рубрику с занятым названием.
	ErrCategoryExists = errors.New("category already exists")
	// ErrCategoryNotFound возвращается, если статья ссылается на несуществующую рубрику.
	ErrCategoryNotFound = errors.New("category not found")
)

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

var retryDelays = []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

// withRetry повторяет fn при временных ошибках: конфликт сериализации,
// взаимная блокировка или обрыв соединения.
func withRetry(ctx context.Context, delays []time.Duration, fn func() error) error {
	var err error

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		// Ошибка контекста: выходим сразу
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		if !isRetryable(err) || i == len(delays) {
			break
		}

		timer := time.NewTimer(delays[i])
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
	}
	return isConnectionError(err)
}

func isConnectionError(err error) bool {
	// Упрощенная проверка на ошибки соединения
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation
}

// Ping проверяет соединение с БД.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// CreateUser создаёт нового пользователя с неактивной подпиской.
func (r *PostgresRepository) CreateUser(ctx context.Context, login string, passwordHash []byte) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO users (login, password_hash) VALUES ($1, $2) RETURNING id`,
		login, passwordHash,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %s", ErrUserExists, login)
		}
		return 0, fmt.Errorf("create user: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO subscriptions (user_id, status) VALUES ($1, $2)`,
		id, string(model.SubscriptionInactive),
	)
	if err != nil {
		return 0, fmt.Errorf("create subscription: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}

	return id, nil
}

const userColumns = `id, login, password_hash, is_admin, timezone, created_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Login, &u.PasswordHash, &u.IsAdmin, &u.Timezone, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// GetUserByLogin возвращает пользователя по логину.
func (r *PostgresRepository) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE login = $1`,
		login,
	))
}

// GetUserByID возвращает пользователя по идентификатору.
func (r *PostgresRepository) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	))
}

// GetViewer собирает статус подписки и список купленных курсов пользователя.
// Пользователь без записи о подписке считается неактивным.
func (r *PostgresRepository) GetViewer(ctx context.Context, userID int64) (model.Viewer, error) {
	viewer := model.Viewer{
		UserID:             userID,
		Status:             model.SubscriptionInactive,
		PurchasedCourseIDs: map[int64]struct{}{},
	}

	err := withRetry(ctx, retryDelays, func() error {
		var status string
		err := r.pool.QueryRow(ctx,
			`SELECT status FROM subscriptions WHERE user_id = $1`,
			userID,
		).Scan(&status)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
		case err != nil:
			return fmt.Errorf("select subscription: %w", err)
		default:
			viewer.Status = model.ParseSubscriptionStatus(status)
		}

		rows, err := r.pool.Query(ctx,
			`SELECT course_id FROM course_purchases WHERE user_id = $1`,
			userID,
		)
		if err != nil {
			return fmt.Errorf("select purchases: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var courseID int64
			if err := rows.Scan(&courseID); err != nil {
				return fmt.Errorf("scan purchase: %w", err)
			}
			viewer.PurchasedCourseIDs[courseID] = struct{}{}
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows error: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.Viewer{}, err
	}

	return viewer, nil
}

// SetSubscriptionStatus обновляет статус подписки пользователя.
func (r *PostgresRepository) SetSubscriptionStatus(ctx context.Context, userID int64, status model.SubscriptionStatus) error {
	cmdTag, err := r.pool.Exec(ctx,
		`INSERT INTO subscriptions (user_id, status, updated_at)
		 SELECT id, $2, NOW() FROM users WHERE id = $1
		 ON CONFLICT (user_id) DO UPDATE SET status = EXCLUDED.status, updated_at = NOW()`,
		userID, string(status),
	)
	if err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetUserTimezone сохраняет часовой пояс пользователя.
func (r *PostgresRepository) SetUserTimezone(ctx context.Context, userID int64, tz string) error {
	cmdTag, err := r.pool.Exec(ctx, `UPDATE users SET timezone = $2 WHERE id = $1`, userID, tz)
	if err != nil {
		return fmt.Errorf("update timezone: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
