package storage

var pgMigration = []string{
	`CREATE TABLE video (
id uuid PRIMARY KEY,
youtube_id VARCHAR(255) NOT NULL UNIQUE,
title VARCHAR(255) NOT NULL,
thumbnail VARCHAR(1024) NOT NULL,
channel_name VARCHAR(255) NOT NULL DEFAULT '',
transcript TEXT NOT NULL DEFAULT '',
concepts JSONB NOT NULL DEFAULT '[]',
created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE TABLE channel (
id uuid PRIMARY KEY,
youtube_channel_id VARCHAR(255) NOT NULL UNIQUE,
name VARCHAR(255) NOT NULL,
created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE TABLE channel_video (
youtube_channel_id VARCHAR(255) NOT NULL REFERENCES channel(youtube_channel_id) ON DELETE CASCADE,
youtube_id VARCHAR(255) NOT NULL,
position SERIAL,
PRIMARY KEY (youtube_channel_id, youtube_id)
)`,
}
