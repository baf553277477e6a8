package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ewintr.nl/eduvid/model"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"golang.org/x/exp/slog"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

type PostgresInfo struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
}

func (pi PostgresInfo) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable", pi.Host, pi.Port, pi.User, pi.Password, pi.Database)
}

type Postgres struct {
	db *sql.DB
}

// NewPostgres opens the database, waits for it to accept connections and
// brings the schema up to date.
func NewPostgres(ctx context.Context, dsn string, logger *slog.Logger) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second
	ping := func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		return db.PingContext(pingCtx)
	}
	notify := func(err error, next time.Duration) {
		logger.Warn("postgres not ready", slog.String("error", err.Error()), slog.Duration("retry_in", next))
	}
	if err := backoff.RetryNotify(ping, backoff.WithContext(bo, ctx), notify); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not connect to postgres: %w", err)
	}

	return NewPostgresFromDB(db)
}

func NewPostgresFromDB(db *sql.DB) (*Postgres, error) {
	p := &Postgres{db: db}
	if err := p.migrate(pgMigration); err != nil {
		return &Postgres{}, err
	}

	return p, nil
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

func (p *Postgres) migrate(wanted []string) error {
	query := `CREATE TABLE IF NOT EXISTS migration
("id" SERIAL PRIMARY KEY, "query" TEXT)`
	_, err := p.db.Exec(query)
	if err != nil {
		return err
	}

	// find existing
	rows, err := p.db.Query(`SELECT query FROM migration ORDER BY id`)
	if err != nil {
		return err
	}

	existing := []string{}
	for rows.Next() {
		var query string
		if err := rows.Scan(&query); err != nil {
			rows.Close()
			return err
		}
		existing = append(existing, query)
	}
	rows.Close()

	missing, err := compareMigrations(wanted, existing)
	if err != nil {
		return err
	}

	for _, query := range missing {
		if _, err := p.db.Exec(query); err != nil {
			return err
		}
		if _, err := p.db.Exec(`
INSERT INTO migration
(query) VALUES ($1)
`, query); err != nil {
			return err
		}
	}

	return nil
}

func compareMigrations(wanted, existing []string) ([]string, error) {
	needed := []string{}
	if len(wanted) < len(existing) {
		return []string{}, fmt.Errorf("not enough migrations")
	}

	for i, want := range wanted {
		switch {
		case i >= len(existing):
			needed = append(needed, want)
		case want == existing[i]:
			// do nothing
		case want != existing[i]:
			return []string{}, fmt.Errorf("incompatible migration: %v", want)
		}
	}

	return needed, nil
}

type PostgresVideoRepository struct {
	*Postgres
}

func NewPostgresVideoRepository(postgres *Postgres) *PostgresVideoRepository {
	return &PostgresVideoRepository{postgres}
}

const videoColumns = `id, youtube_id, title, thumbnail, channel_name, transcript, concepts, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanVideo(row scanner) (*model.Video, error) {
	video := &model.Video{}
	var ytID string
	var concepts []byte
	if err := row.Scan(&video.ID, &ytID, &video.Title, &video.Thumbnail, &video.ChannelName, &video.Transcript, &concepts, &video.CreatedAt, &video.UpdatedAt); err != nil {
		return nil, err
	}
	video.YoutubeID = model.YoutubeVideoID(ytID)
	if err := json.Unmarshal(concepts, &video.Concepts); err != nil {
		return nil, fmt.Errorf("invalid concepts for %s: %w", ytID, err)
	}

	return video, nil
}

func (p *PostgresVideoRepository) FindByYoutubeID(ctx context.Context, id model.YoutubeVideoID) (*model.Video, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+videoColumns+` FROM video WHERE youtube_id = $1`, string(id))
	video, err := scanVideo(row)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to find video %s: %w", id, err)
	}

	return video, nil
}

func (p *PostgresVideoRepository) FindAll(ctx context.Context) ([]*model.Video, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT `+videoColumns+` FROM video ORDER BY created_at, youtube_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	defer rows.Close()

	videos := []*model.Video{}
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		videos = append(videos, video)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over video rows: %w", err)
	}

	return videos, nil
}

func (p *PostgresVideoRepository) DeleteAll(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM video`); err != nil {
		return fmt.Errorf("failed to delete videos: %w", err)
	}

	return nil
}

func (p *PostgresVideoRepository) InsertMany(ctx context.Context, videos []*model.Video) error {
	return p.inTx(ctx, func(tx *sql.Tx) error {
		return insertVideos(ctx, tx, videos)
	})
}

func (p *PostgresVideoRepository) ReplaceAll(ctx context.Context, videos []*model.Video) error {
	return p.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM video`); err != nil {
			return fmt.Errorf("failed to delete videos: %w", err)
		}
		return insertVideos(ctx, tx, videos)
	})
}

func (p *PostgresVideoRepository) SaveConcepts(ctx context.Context, id model.YoutubeVideoID, transcript string, concepts []model.Concept) error {
	if concepts == nil {
		concepts = []model.Concept{}
	}
	body, err := json.Marshal(concepts)
	if err != nil {
		return err
	}
	res, err := p.db.ExecContext(ctx, `
UPDATE video
SET concepts = $1, transcript = $2, updated_at = $3
WHERE youtube_id = $4`, body, transcript, time.Now().UTC(), string(id))
	if err != nil {
		return fmt.Errorf("failed to save concepts for %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}

func (p *Postgres) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func insertVideos(ctx context.Context, tx *sql.Tx, videos []*model.Video) error {
	now := time.Now().UTC()
	for _, video := range videos {
		if video.ID == uuid.Nil {
			video.ID = uuid.New()
		}
		if video.CreatedAt.IsZero() {
			video.CreatedAt = now
		}
		video.UpdatedAt = now
		concepts := video.Concepts
		if concepts == nil {
			concepts = []model.Concept{}
		}
		body, err := json.Marshal(concepts)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO video (`+videoColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			video.ID, string(video.YoutubeID), video.Title, video.Thumbnail, video.ChannelName,
			video.Transcript, body, video.CreatedAt, video.UpdatedAt); err != nil {
			if isPQCode(err, pqUniqueViolation) {
				return fmt.Errorf("%w: %s", ErrDuplicate, video.YoutubeID)
			}
			return fmt.Errorf("failed to insert video %s: %w", video.YoutubeID, err)
		}
	}

	return nil
}

func isPQCode(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == code
}

type PostgresChannelRepository struct {
	*Postgres
}

func NewPostgresChannelRepository(postgres *Postgres) *PostgresChannelRepository {
	return &PostgresChannelRepository{postgres}
}

func (p *PostgresChannelRepository) FindByYoutubeChannelID(ctx context.Context, id model.YoutubeChannelID) (*model.Channel, error) {
	channel := &model.Channel{YoutubeChannelID: id}
	err := p.db.QueryRowContext(ctx, `
SELECT id, name, created_at, updated_at
FROM channel
WHERE youtube_channel_id = $1`, string(id)).Scan(&channel.ID, &channel.Name, &channel.CreatedAt, &channel.UpdatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to find channel %s: %w", id, err)
	}

	rows, err := p.db.QueryContext(ctx, `
SELECT youtube_id
FROM channel_video
WHERE youtube_channel_id = $1
ORDER BY position`, string(id))
	if err != nil {
		return nil, fmt.Errorf("failed to list channel videos: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ytID string
		if err := rows.Scan(&ytID); err != nil {
			return nil, err
		}
		channel.VideoIDs = append(channel.VideoIDs, model.YoutubeVideoID(ytID))
	}

	return channel, rows.Err()
}

func (p *PostgresChannelRepository) Save(ctx context.Context, channel *model.Channel) error {
	if channel.ID == uuid.Nil {
		channel.ID = uuid.New()
	}
	now := time.Now().UTC()
	if channel.CreatedAt.IsZero() {
		channel.CreatedAt = now
	}
	channel.UpdatedAt = now

	return p.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO channel (id, youtube_channel_id, name, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (youtube_channel_id)
DO UPDATE SET name = EXCLUDED.name, updated_at = EXCLUDED.updated_at`,
			channel.ID, string(channel.YoutubeChannelID), channel.Name, channel.CreatedAt, channel.UpdatedAt); err != nil {
			return fmt.Errorf("failed to save channel %s: %w", channel.YoutubeChannelID, err)
		}
		for _, videoID := range channel.VideoIDs {
			if err := addChannelVideo(ctx, tx, channel.YoutubeChannelID, videoID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (p *PostgresChannelRepository) AddVideo(ctx context.Context, channelID model.YoutubeChannelID, videoID model.YoutubeVideoID) error {
	return p.inTx(ctx, func(tx *sql.Tx) error {
		return addChannelVideo(ctx, tx, channelID, videoID)
	})
}

func addChannelVideo(ctx context.Context, tx *sql.Tx, channelID model.YoutubeChannelID, videoID model.YoutubeVideoID) error {
	_, err := tx.ExecContext(ctx, `
INSERT INTO channel_video (youtube_channel_id, youtube_id)
VALUES ($1, $2)
ON CONFLICT DO NOTHING`, string(channelID), string(videoID))
	switch {
	case isPQCode(err, pqForeignKeyViolation):
		return ErrNotFound
	case err != nil:
		return fmt.Errorf("failed to add video %s to channel %s: %w", videoID, channelID, err)
	}

	return nil
}
