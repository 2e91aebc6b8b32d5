package db

import (
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	connectAttempts = 6
	initialBackoff  = 500 * time.Millisecond
	maxBackoff      = 8 * time.Second
)

var passwordRegex = regexp.MustCompile(`(password=)([^\s]+)`)

// Connect opens the Postgres connection, retrying transient failures with
// bounded exponential backoff before giving up.
func Connect(dsn string) (*gorm.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("DATABASE_DSN is empty")
	}
	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "1" {
		logLevel = logger.Info
	}
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}

	var conn *gorm.DB
	var err error
	backoff := initialBackoff
	for i := 0; i < connectAttempts; i++ {
		conn, err = gorm.Open(postgres.Open(dsn), cfg)
		if err == nil {
			if pingErr := conn.Exec("SELECT 1").Error; pingErr == nil {
				log.Printf("[DB] connected: %s", maskDSN(dsn))
				return conn, nil
			} else {
				err = pingErr
			}
		}
		log.Printf("[DB] connect attempt %d/%d failed: %v", i+1, connectAttempts, err)
		time.Sleep(backoff)
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
	return nil, fmt.Errorf("failed to connect database after %d attempts: %w", connectAttempts, err)
}

func maskDSN(dsn string) string {
	masked := passwordRegex.ReplaceAllString(dsn, `${1}***`)
	if u := strings.Index(masked, "://"); u >= 0 {
		if at := strings.Index(masked, "@"); at > u {
			masked = masked[:u+3] + "***" + masked[at:]
		}
	}
	return masked
}
