// Package repository provides data access for questionnaire responses and matches.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/ColeUyematsu/RoomMatchv2/internal/matcherrors"
	"github.com/ColeUyematsu/RoomMatchv2/internal/models"
	"github.com/ColeUyematsu/RoomMatchv2/pkg/vector"
)

// questionColumns is "question1, question2, ..., question25" in question order.
var questionColumns = func() string {
	cols := make([]string, models.QuestionCount)
	for i := range cols {
		cols[i] = fmt.Sprintf("question%d", i+1)
	}
	return strings.Join(cols, ", ")
}()

// ResponsesRepository handles data access for questionnaire responses.
type ResponsesRepository struct {
	db *pgxpool.Pool
}

// NewResponsesRepository creates a new responses repository.
func NewResponsesRepository(db *pgxpool.Pool) *ResponsesRepository {
	return &ResponsesRepository{db: db}
}

// Submit stores a new response row for the user. The filled vector is written
// to the embedding column so the vector index can serve similarity previews.
func (r *ResponsesRepository) Submit(ctx context.Context, req *models.SubmitResponsesRequest) (*models.QuestionnaireResponse, error) {
	if req.UserID <= 0 {
		return nil, matcherrors.NewValidationError("user_id", "must be a positive integer")
	}
	if len(req.Answers) > models.QuestionCount {
		return nil, matcherrors.NewValidationError("answers", fmt.Sprintf("at most %d answers allowed", models.QuestionCount))
	}

	resp := &models.QuestionnaireResponse{UserID: req.UserID}
	for i, a := range req.Answers {
		if a == nil {
			continue
		}
		if *a < models.AnswerMin || *a > models.AnswerMax {
			return nil, matcherrors.NewValidationError(
				fmt.Sprintf("answers[%d]", i),
				fmt.Sprintf("rating must be between %d and %d", models.AnswerMin, models.AnswerMax),
			)
		}
		resp.Answers[i] = a
	}

	placeholders := make([]string, 0, models.QuestionCount+2)
	args := make([]any, 0, models.QuestionCount+2)
	args = append(args, req.UserID)
	placeholders = append(placeholders, "$1")
	for i := 0; i < models.QuestionCount; i++ {
		args = append(args, resp.Answers[i])
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
	}
	args = append(args, pgvector.NewVector(resp.Vector().Slice()))
	placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))

	query := fmt.Sprintf(`
		INSERT INTO responses (user_id, %s, embedding)
		VALUES (%s)
		RETURNING created_at
	`, questionColumns, strings.Join(placeholders, ", "))

	if err := r.db.QueryRow(ctx, query, args...).Scan(&resp.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to store response: %w", err)
	}

	return resp, nil
}

// Latest retrieves the most recent raw response for a user.
func (r *ResponsesRepository) Latest(ctx context.Context, userID int64) (*models.QuestionnaireResponse, error) {
	query := fmt.Sprintf(`
		SELECT user_id, %s, created_at
		FROM responses
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, questionColumns)

	resp, err := scanResponse(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, matcherrors.NewNotFoundError("responses", fmt.Sprintf("no responses for user %d", userID))
		}
		return nil, fmt.Errorf("failed to load latest response: %w", err)
	}

	return resp, nil
}

// LatestVector returns the filled vector of the user's most recent response.
func (r *ResponsesRepository) LatestVector(ctx context.Context, userID int64) (vector.Vector, error) {
	resp, err := r.Latest(ctx, userID)
	if err != nil {
		return vector.Vector{}, err
	}
	return resp.Vector(), nil
}

// AllLatestVectors returns one filled vector per user, taken from each user's
// most recent response row.
func (r *ResponsesRepository) AllLatestVectors(ctx context.Context) (map[int64]vector.Vector, error) {
	query := fmt.Sprintf(`
		SELECT DISTINCT ON (user_id) user_id, %s, created_at
		FROM responses
		ORDER BY user_id, created_at DESC, id DESC
	`, questionColumns)

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load response vectors: %w", err)
	}
	defer rows.Close()

	vectors := make(map[int64]vector.Vector)
	for rows.Next() {
		resp, err := scanResponse(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan response row: %w", err)
		}
		vectors[resp.UserID] = resp.Vector()
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate response rows: %w", err)
	}

	return vectors, nil
}

// NearestByUser returns up to limit users ranked by cosine distance of their
// stored vectors to the given user's latest vector. The queried user is
// excluded; distance ties order by ascending user id.
func (r *ResponsesRepository) NearestByUser(ctx context.Context, userID int64, limit int) ([]models.SimilarUser, error) {
	query := `
		WITH target AS (
			SELECT embedding
			FROM responses
			WHERE user_id = $1 AND embedding IS NOT NULL
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		),
		latest AS (
			SELECT DISTINCT ON (user_id) user_id, embedding
			FROM responses
			WHERE embedding IS NOT NULL
			ORDER BY user_id, created_at DESC, id DESC
		)
		SELECT l.user_id, 1 - (l.embedding <=> t.embedding) AS score
		FROM latest l, target t
		WHERE l.user_id <> $1
		ORDER BY l.embedding <=> t.embedding, l.user_id
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query similar users: %w", err)
	}
	defer rows.Close()

	var similar []models.SimilarUser
	for rows.Next() {
		var s models.SimilarUser
		if err := rows.Scan(&s.UserID, &s.Score); err != nil {
			return nil, fmt.Errorf("failed to scan similar user: %w", err)
		}
		similar = append(similar, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate similar users: %w", err)
	}

	if similar == nil {
		// Distinguish "user has no stored vector" from "no peers yet".
		var exists bool
		target := `SELECT EXISTS (SELECT 1 FROM responses WHERE user_id = $1 AND embedding IS NOT NULL)`
		if err := r.db.QueryRow(ctx, target, userID).Scan(&exists); err != nil {
			return nil, fmt.Errorf("failed to check stored vector: %w", err)
		}
		if !exists {
			return nil, matcherrors.NewNotFoundError("responses", fmt.Sprintf("no stored vector for user %d", userID))
		}
	}

	return similar, nil
}

// CountRespondents returns how many distinct users have submitted responses.
func (r *ResponsesRepository) CountRespondents(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(DISTINCT user_id) FROM responses`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count respondents: %w", err)
	}
	return count, nil
}

// CountResponses returns the total number of stored response rows.
func (r *ResponsesRepository) CountResponses(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM responses`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count responses: %w", err)
	}
	return count, nil
}

// scanResponse scans a row of (user_id, question1..questionN, created_at).
func scanResponse(row pgx.Row) (*models.QuestionnaireResponse, error) {
	resp := &models.QuestionnaireResponse{}

	dests := make([]any, 0, models.QuestionCount+2)
	dests = append(dests, &resp.UserID)
	for i := 0; i < models.QuestionCount; i++ {
		dests = append(dests, &resp.Answers[i])
	}
	dests = append(dests, &resp.CreatedAt)

	if err := row.Scan(dests...); err != nil {
		return nil, err
	}

	return resp, nil
}
