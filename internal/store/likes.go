package store

import (
	"context"
	"database/sql"
	"fmt"

	"blog/internal/models"
)

// LikeState is the outcome of ToggleLike.
type LikeState struct {
	// Created is false when the user had already liked the post.
	Created bool
	Count   int
	// Like is the user's like row, new or pre-existing.
	Like models.Like
}

// ToggleLike records that the user likes the post. Despite the name it never
// removes a like: a second call leaves the existing row alone. The unique
// index on (user_id, post_id) makes concurrent double submits collapse into
// one row.
func (s *Store) ToggleLike(ctx context.Context, userID, postID int64) (LikeState, error) {
	var st LikeState
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO likes(user_id,post_id,created_at) VALUES(?,?,?)
			ON CONFLICT(user_id,post_id) DO NOTHING`, userID, postID, s.now())
		if err != nil {
			if foreignKeyViolation(err) {
				return ErrNotFound
			}
			return fmt.Errorf("like post %d: %w", postID, err)
		}
		n, err := affected(res)
		if err != nil {
			return err
		}
		st.Created = n > 0
		err = tx.QueryRowContext(ctx, `SELECT id, user_id, post_id, created_at FROM likes
			WHERE user_id = ? AND post_id = ?`, userID, postID).
			Scan(&st.Like.ID, &st.Like.UserID, &st.Like.PostID, &st.Like.CreatedAt)
		if err != nil {
			return fmt.Errorf("like post %d: %w", postID, err)
		}
		return tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM likes WHERE post_id = ?`, postID).Scan(&st.Count)
	})
	if err != nil {
		return LikeState{}, err
	}
	return st, nil
}

// PostLikers returns the users who liked the post, in the order they did.
func (s *Store) PostLikers(ctx context.Context, postID int64) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT u.id, u.email, u.username, u.created_at
		FROM likes l JOIN users u ON u.id = l.user_id
		WHERE l.post_id = ? ORDER BY l.created_at, l.id`, postID)
	if err != nil {
		return nil, fmt.Errorf("post likers: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Username, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("post likers: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
