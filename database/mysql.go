package database

import (
	"database/sql"
	"log"

	_ "github.com/go-sql-driver/mysql"

	"quickchat/config"
)

func Connect() (*sql.DB, error) {
	db, err := sql.Open("mysql", config.Cfg.MysqlDSN)
	if err != nil {
		return nil, err
	}

	if err = db.Ping(); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	log.Println("Database connected successfully")
	return db, nil
}

func CreateTables(db *sql.DB) error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id              VARCHAR(36) PRIMARY KEY,
			name            VARCHAR(100) NOT NULL,
			email           VARCHAR(255) NOT NULL,
			password        VARCHAR(255) NOT NULL,
			avatar          VARCHAR(255),
			who_can_add_me  ENUM('everyone', 'friends_of_friends', 'nobody') DEFAULT 'everyone',
			created_at      DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at      DATETIME DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			UNIQUE KEY uk_email (email)
		)`,
		`CREATE TABLE IF NOT EXISTS friendships (
			id          VARCHAR(36) PRIMARY KEY,
			user_lo     VARCHAR(36) NOT NULL,
			user_hi     VARCHAR(36) NOT NULL,
			created_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY uk_pair (user_lo, user_hi),
			INDEX idx_hi (user_hi)
		)`,
		`CREATE TABLE IF NOT EXISTS friend_requests (
			id           VARCHAR(36) PRIMARY KEY,
			sender_id    VARCHAR(36) NOT NULL,
			receiver_id  VARCHAR(36) NOT NULL,
			status       ENUM('pending', 'accepted', 'rejected') DEFAULT 'pending',
			created_at   DATETIME DEFAULT CURRENT_TIMESTAMP,
			responded_at DATETIME NULL,
			INDEX idx_receiver_status (receiver_id, status),
			INDEX idx_sender_status (sender_id, status)
		)`,
		`CREATE TABLE IF NOT EXISTS blocks (
			id          VARCHAR(36) PRIMARY KEY,
			blocker_id  VARCHAR(36) NOT NULL,
			blocked_id  VARCHAR(36) NOT NULL,
			created_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY uk_block (blocker_id, blocked_id),
			INDEX idx_blocked (blocked_id)
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id          VARCHAR(36) PRIMARY KEY,
			seq         BIGINT NOT NULL AUTO_INCREMENT,
			sender_id   VARCHAR(36) NOT NULL,
			receiver_id VARCHAR(36) NOT NULL,
			content     TEXT NOT NULL,
			file_url    VARCHAR(255),
			file_type   ENUM('image', 'video', 'audio', 'file') NULL,
			file_name   VARCHAR(255),
			file_size   BIGINT DEFAULT 0,
			duration    INT DEFAULT 0,
			is_read     BOOLEAN DEFAULT FALSE,
			read_at     DATETIME NULL,
			created_at  DATETIME(3) DEFAULT CURRENT_TIMESTAMP(3),
			UNIQUE KEY uk_seq (seq),
			INDEX idx_pair_time (sender_id, receiver_id, created_at),
			INDEX idx_unread (receiver_id, is_read)
		)`,
	}

	for _, table := range tables {
		if _, err := db.Exec(table); err != nil {
			return err
		}
	}

	log.Println("Database tables created successfully")
	return nil
}
