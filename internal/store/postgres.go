package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tvdeck/tvdeck/internal/models"
)

// Postgres implements Store using PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres store from a DSN. Caller must call Close.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// SavePlaylist registers the playlist, replaces its channels in one
// transaction, and marks it active.
func (p *Postgres) SavePlaylist(ctx context.Context, pl *models.Playlist) (int64, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO playlists (name, source, source_url, epg_url, channel_count, active, loaded_at)
		 VALUES ($1, $2, NULLIF($3,''), NULLIF($4,''), $5, true, $6)
		 ON CONFLICT (name) DO UPDATE SET
		   source = EXCLUDED.source, source_url = EXCLUDED.source_url,
		   epg_url = EXCLUDED.epg_url, channel_count = EXCLUDED.channel_count,
		   active = true, loaded_at = EXCLUDED.loaded_at
		 RETURNING id`,
		pl.Name, pl.Source, pl.SourceURL, pl.EPGURL, pl.TotalCount, pl.LoadedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert playlist: %w", err)
	}

	if _, err := tx.Exec(ctx, `UPDATE playlists SET active = false WHERE id <> $1`, id); err != nil {
		return 0, fmt.Errorf("deactivate playlists: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM channels WHERE playlist_id = $1`, id); err != nil {
		return 0, fmt.Errorf("wipe channels: %w", err)
	}

	batch := &pgx.Batch{}
	for i, ch := range pl.Channels {
		batch.Queue(
			`INSERT INTO channels
			   (playlist_id, channel_id, position, name, url, logo, group_name,
			    tvg_id, tvg_name, tvg_logo, language, country)
			 VALUES ($1,$2,$3,$4,$5,NULLIF($6,''),NULLIF($7,''),NULLIF($8,''),
			         NULLIF($9,''),NULLIF($10,''),NULLIF($11,''),NULLIF($12,''))`,
			id, ch.ID, i, ch.Name, ch.URL, ch.Logo, ch.Group,
			ch.TvgID, ch.TvgName, ch.TvgLogo, ch.Language, ch.Country,
		)
	}
	if batch.Len() > 0 {
		br := tx.SendBatch(ctx, batch)
		for range pl.Channels {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return 0, fmt.Errorf("insert channel: %w", err)
			}
		}
		if err := br.Close(); err != nil {
			return 0, fmt.Errorf("close batch: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

const playlistColumns = `id, name, source, COALESCE(source_url,''), COALESCE(epg_url,''),
	channel_count, active, added_at, loaded_at`

func scanPlaylist(row pgx.Row) (*models.StoredPlaylist, error) {
	var pl models.StoredPlaylist
	err := row.Scan(&pl.ID, &pl.Name, &pl.Source, &pl.SourceURL, &pl.EPGURL,
		&pl.ChannelCount, &pl.Active, &pl.AddedAt, &pl.LoadedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &pl, nil
}

func (p *Postgres) ListPlaylists(ctx context.Context) ([]models.StoredPlaylist, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+playlistColumns+` FROM playlists ORDER BY added_at, id`)
	if err != nil {
		return nil, fmt.Errorf("ListPlaylists: %w", err)
	}
	defer rows.Close()

	var out []models.StoredPlaylist
	for rows.Next() {
		pl, err := scanPlaylist(rows)
		if err != nil {
			return nil, fmt.Errorf("ListPlaylists scan: %w", err)
		}
		out = append(out, *pl)
	}
	return out, rows.Err()
}

func (p *Postgres) GetPlaylist(ctx context.Context, id int64) (*models.StoredPlaylist, error) {
	return scanPlaylist(p.pool.QueryRow(ctx,
		`SELECT `+playlistColumns+` FROM playlists WHERE id = $1`, id))
}

func (p *Postgres) DeletePlaylist(ctx context.Context, id int64) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM playlists WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("DeletePlaylist: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) SetActivePlaylist(ctx context.Context, id int64) error {
	var exists bool
	if err := p.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM playlists WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("SetActivePlaylist: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	if _, err := p.pool.Exec(ctx, `UPDATE playlists SET active = (id = $1)`, id); err != nil {
		return fmt.Errorf("SetActivePlaylist: %w", err)
	}
	return nil
}

func (p *Postgres) ActivePlaylist(ctx context.Context) (*models.StoredPlaylist, error) {
	return scanPlaylist(p.pool.QueryRow(ctx,
		`SELECT `+playlistColumns+` FROM playlists WHERE active LIMIT 1`))
}

const channelColumns = `c.channel_id, c.name, c.url, COALESCE(c.logo,''),
	COALESCE(c.group_name,''), COALESCE(c.tvg_id,''), COALESCE(c.tvg_name,''),
	COALESCE(c.tvg_logo,''), COALESCE(c.language,''), COALESCE(c.country,''),
	(f.channel_id IS NOT NULL)`

func (p *Postgres) ListChannels(ctx context.Context, filter ChannelFilter) ([]models.Channel, int, error) {
	filter.normalize()
	where, args := channelWhere(filter)

	var total int
	countSQL := `SELECT COUNT(*) FROM channels c
		LEFT JOIN favorites f ON f.channel_id = c.channel_id ` + where
	if err := p.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ListChannels count: %w", err)
	}

	listSQL := fmt.Sprintf(`SELECT %s FROM channels c
		LEFT JOIN favorites f ON f.channel_id = c.channel_id
		%s ORDER BY c.position LIMIT $%d OFFSET $%d`,
		channelColumns, where, len(args)+1, len(args)+2)
	rows, err := p.pool.Query(ctx, listSQL, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("ListChannels: %w", err)
	}
	defer rows.Close()

	var out []models.Channel
	for rows.Next() {
		var ch models.Channel
		if err := rows.Scan(&ch.ID, &ch.Name, &ch.URL, &ch.Logo, &ch.Group,
			&ch.TvgID, &ch.TvgName, &ch.TvgLogo, &ch.Language, &ch.Country, &ch.Favorite); err != nil {
			return nil, 0, fmt.Errorf("ListChannels scan: %w", err)
		}
		out = append(out, ch)
	}
	return out, total, rows.Err()
}

// channelWhere builds the WHERE clause and positional args for a filter.
func channelWhere(filter ChannelFilter) (string, []any) {
	conds := []string{"c.playlist_id = $1"}
	args := []any{filter.PlaylistID}

	if filter.Group != "" {
		if filter.Group == models.GroupSentinel {
			conds = append(conds, "(c.group_name IS NULL OR c.group_name = '')")
		} else {
			args = append(args, filter.Group)
			conds = append(conds, fmt.Sprintf("c.group_name = $%d", len(args)))
		}
	}
	if filter.FavoritesOnly {
		conds = append(conds, "f.channel_id IS NOT NULL")
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conds = append(conds, fmt.Sprintf("c.name ILIKE $%d", len(args)))
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func (p *Postgres) GetChannel(ctx context.Context, playlistID int64, channelID string) (*models.Channel, error) {
	var ch models.Channel
	err := p.pool.QueryRow(ctx, `SELECT `+channelColumns+` FROM channels c
		LEFT JOIN favorites f ON f.channel_id = c.channel_id
		WHERE c.playlist_id = $1 AND c.channel_id = $2
		ORDER BY c.position LIMIT 1`, playlistID, channelID).
		Scan(&ch.ID, &ch.Name, &ch.URL, &ch.Logo, &ch.Group,
			&ch.TvgID, &ch.TvgName, &ch.TvgLogo, &ch.Language, &ch.Country, &ch.Favorite)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetChannel: %w", err)
	}
	return &ch, nil
}

func (p *Postgres) ListGroups(ctx context.Context, playlistID int64) ([]models.ChannelGroup, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT COALESCE(NULLIF(group_name, ''), $2), COUNT(*)
		 FROM channels WHERE playlist_id = $1
		 GROUP BY 1 ORDER BY LOWER(COALESCE(NULLIF(group_name, ''), $2))`,
		playlistID, models.GroupSentinel)
	if err != nil {
		return nil, fmt.Errorf("ListGroups: %w", err)
	}
	defer rows.Close()

	var out []models.ChannelGroup
	for rows.Next() {
		var g models.ChannelGroup
		if err := rows.Scan(&g.Name, &g.Count); err != nil {
			return nil, fmt.Errorf("ListGroups scan: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (p *Postgres) ToggleFavorite(ctx context.Context, channelID string) (bool, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM favorites WHERE channel_id = $1`, channelID)
	if err != nil {
		return false, fmt.Errorf("ToggleFavorite: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return false, nil
	}
	if _, err := p.pool.Exec(ctx,
		`INSERT INTO favorites (channel_id) VALUES ($1) ON CONFLICT DO NOTHING`, channelID); err != nil {
		return false, fmt.Errorf("ToggleFavorite: %w", err)
	}
	return true, nil
}

func (p *Postgres) ListFavorites(ctx context.Context) ([]string, error) {
	rows, err := p.pool.Query(ctx, `SELECT channel_id FROM favorites ORDER BY added_at, channel_id`)
	if err != nil {
		return nil, fmt.Errorf("ListFavorites: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ListFavorites scan: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (p *Postgres) ClearFavorites(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM favorites`); err != nil {
		return fmt.Errorf("ClearFavorites: %w", err)
	}
	return nil
}

func (p *Postgres) Preferences(ctx context.Context) (map[string]string, error) {
	rows, err := p.pool.Query(ctx, `SELECT key, value FROM preferences`)
	if err != nil {
		return nil, fmt.Errorf("Preferences: %w", err)
	}
	defer rows.Close()

	prefs := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("Preferences scan: %w", err)
		}
		prefs[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return mergeDefaults(prefs), nil
}

func (p *Postgres) SetPreference(ctx context.Context, key, value string) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO preferences (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		key, value)
	if err != nil {
		return fmt.Errorf("SetPreference: %w", err)
	}
	return nil
}
