// Package database stores participants and messages in MariaDB/MySQL.
package database

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/go-sql-driver/mysql"

	"chatrelay/internal/config"
)

// Init opens and pings the MySQL connection described by cfg.
func Init(cfg config.Config) (*sql.DB, error) {
	db, err := sql.Open("mysql", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 接続テスト
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("✅ Database connection established")
	return db, nil
}

// DSN builds the driver DSN. ClientFoundRows makes a heartbeat that does not
// change last_seen still report one affected row.
func DSN(cfg config.Config) string {
	mc := mysql.NewConfig()
	mc.User = cfg.DBUser
	mc.Passwd = cfg.DBPassword
	mc.Net = "tcp"
	mc.Addr = cfg.DBHost + ":" + cfg.DBPort
	mc.DBName = cfg.DBName
	mc.ParseTime = true
	mc.ClientFoundRows = true
	return mc.FormatDSN()
}

const participantsDDL = `
CREATE TABLE IF NOT EXISTS participants (
	name VARCHAR(255) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin PRIMARY KEY,
	last_seen DATETIME(6) NOT NULL,
	INDEX idx_participants_last_seen (last_seen)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;
`

const messagesDDL = `
CREATE TABLE IF NOT EXISTS messages (
	seq BIGINT AUTO_INCREMENT PRIMARY KEY,
	id CHAR(36) NOT NULL UNIQUE,
	from_name VARCHAR(255) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL,
	to_name VARCHAR(255) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL,
	text TEXT NOT NULL,
	type VARCHAR(32) NOT NULL,
	time CHAR(8) NOT NULL,
	INDEX idx_messages_from (from_name),
	INDEX idx_messages_to (to_name)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;
`

// Migrate creates the tables if they do not exist.
func Migrate(db *sql.DB) error {
	for _, ddl := range []string{participantsDDL, messagesDDL} {
		if _, err := db.Exec(ddl); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}
	return nil
}
