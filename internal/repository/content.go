package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/clube-madua/internal/model"
)

// CreateCategory создаёт рубрику.
func (r *PostgresRepository) CreateCategory(ctx context.Context, name string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO categories (name) VALUES ($1) RETURNING id`,
		name,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %s", ErrCategoryExists, name)
		}
		return 0, fmt.Errorf("create category: %w", err)
	}
	return id, nil
}

// ListCategories возвращает рубрики по алфавиту.
func (r *PostgresRepository) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM categories ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("select categories: %w", err)
	}
	defer rows.Close()

	var res []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		res = append(res, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// CreatePost сохраняет статью или рецепт.
func (r *PostgresRepository) CreatePost(ctx context.Context, p model.Post) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO posts (slug, title, kind, content, category_id, is_premium, is_published)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		p.Slug, p.Title, string(p.Kind), p.Content, p.CategoryID, p.IsPremium, p.IsPublished,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %s", ErrSlugExists, p.Slug)
		}
		if isForeignKeyViolation(err) {
			return 0, ErrCategoryNotFound
		}
		return 0, fmt.Errorf("create post: %w", err)
	}
	return id, nil
}

// GetPostBySlug возвращает статью или рецепт по адресу, включая неопубликованные.
func (r *PostgresRepository) GetPostBySlug(ctx context.Context, slug string) (*model.Post, error) {
	var (
		p    model.Post
		kind string
	)
	err := withRetry(ctx, retryDelays, func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, slug, title, kind, content, category_id, is_premium, is_published, created_at
			 FROM posts WHERE slug = $1`,
			slug,
		).Scan(&p.ID, &p.Slug, &p.Title, &kind, &p.Content, &p.CategoryID, &p.IsPremium, &p.IsPublished, &p.CreatedAt)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get post: %w", err)
	}
	p.Kind = model.ContentKind(kind)
	return &p, nil
}

// AddComment сохраняет комментарий к статье.
func (r *PostgresRepository) AddComment(ctx context.Context, postID, userID int64, body string) (*model.Comment, error) {
	c := model.Comment{PostID: postID, UserID: userID, Body: body}
	err := r.pool.QueryRow(ctx,
		`WITH inserted AS (
		     INSERT INTO comments (post_id, user_id, body) VALUES ($1, $2, $3)
		     RETURNING id, created_at, user_id
		 )
		 SELECT inserted.id, inserted.created_at, users.login
		 FROM inserted JOIN users ON users.id = inserted.user_id`,
		postID, userID, body,
	).Scan(&c.ID, &c.CreatedAt, &c.Login)
	if err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}
	return &c, nil
}

// ListComments возвращает комментарии статьи в порядке добавления.
func (r *PostgresRepository) ListComments(ctx context.Context, postID int64) ([]model.Comment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT c.id, c.post_id, c.user_id, u.login, c.body, c.created_at
		 FROM comments c
		 JOIN users u ON u.id = c.user_id
		 WHERE c.post_id = $1
		 ORDER BY c.created_at, c.id`,
		postID,
	)
	if err != nil {
		return nil, fmt.Errorf("select comments: %w", err)
	}
	defer rows.Close()

	var res []model.Comment
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.UserID, &c.Login, &c.Body, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		res = append(res, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

const courseColumns = `id, title, description, is_premium, is_published, is_in_club, is_standalone, price_cents, created_at`

func scanCourse(row pgx.Row) (model.Course, error) {
	var c model.Course
	err := row.Scan(&c.ID, &c.Title, &c.Description, &c.IsPremium, &c.IsPublished,
		&c.IsInClub, &c.IsStandalone, &c.PriceCents, &c.CreatedAt)
	return c, err
}

// CreateCourse сохраняет курс.
func (r *PostgresRepository) CreateCourse(ctx context.Context, c model.Course) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO courses (title, description, is_premium, is_published, is_in_club, is_standalone, price_cents)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		c.Title, c.Description, c.IsPremium, c.IsPublished, c.IsInClub, c.IsStandalone, c.PriceCents,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create course: %w", err)
	}
	return id, nil
}

// GetCourse возвращает курс по идентификатору.
func (r *PostgresRepository) GetCourse(ctx context.Context, id int64) (*model.Course, error) {
	var c model.Course
	err := withRetry(ctx, retryDelays, func() error {
		var err error
		c, err = scanCourse(r.pool.QueryRow(ctx,
			`SELECT `+courseColumns+` FROM courses WHERE id = $1`,
			id,
		))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get course: %w", err)
	}
	return &c, nil
}

// ListCourses возвращает все курсы каталога.
func (r *PostgresRepository) ListCourses(ctx context.Context) ([]model.Course, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+courseColumns+` FROM courses ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("select courses: %w", err)
	}
	defer rows.Close()

	var res []model.Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		res = append(res, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// CreateLesson сохраняет урок курса.
func (r *PostgresRepository) CreateLesson(ctx context.Context, l model.Lesson) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO lessons (course_id, title, position) VALUES ($1, $2, $3) RETURNING id`,
		l.CourseID, l.Title, l.Order,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create lesson: %w", err)
	}
	return id, nil
}

// MarkLessonComplete отмечает урок пройденным. Урок должен принадлежать курсу.
func (r *PostgresRepository) MarkLessonComplete(ctx context.Context, userID, courseID, lessonID int64) error {
	cmdTag, err := r.pool.Exec(ctx,
		`INSERT INTO lesson_progress (user_id, lesson_id)
		 SELECT $1, id FROM lessons WHERE id = $3 AND course_id = $2
		 ON CONFLICT (user_id, lesson_id) DO NOTHING`,
		userID, courseID, lessonID,
	)
	if err != nil {
		return fmt.Errorf("insert lesson progress: %w", err)
	}

	if cmdTag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	err = r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM lessons WHERE id = $2 AND course_id = $1)`,
		courseID, lessonID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check lesson: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return nil
}

// GetCourseProgress возвращает число пройденных пользователем уроков курса и их общее число.
func (r *PostgresRepository) GetCourseProgress(ctx context.Context, userID, courseID int64) (model.CourseProgress, error) {
	var p model.CourseProgress
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(l.id), COUNT(lp.lesson_id)
		 FROM lessons l
		 LEFT JOIN lesson_progress lp ON lp.lesson_id = l.id AND lp.user_id = $1
		 WHERE l.course_id = $2`,
		userID, courseID,
	).Scan(&p.Total, &p.Completed)
	if err != nil {
		return model.CourseProgress{}, fmt.Errorf("count lessons: %w", err)
	}
	return p, nil
}

// RecordPurchase сохраняет отдельную покупку курса и сообщает, была ли она сделана раньше.
func (r *PostgresRepository) RecordPurchase(ctx context.Context, userID, courseID int64) (bool, error) {
	cmdTag, err := r.pool.Exec(ctx,
		`INSERT INTO course_purchases (user_id, course_id) VALUES ($1, $2)
		 ON CONFLICT (user_id, course_id) DO NOTHING`,
		userID, courseID,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, ErrUserNotFound
		}
		return false, fmt.Errorf("insert purchase: %w", err)
	}
	return cmdTag.RowsAffected() == 0, nil
}
