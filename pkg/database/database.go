package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/binhbb2204/litverse/pkg/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

func InitDatabase(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	var err error
	DB, err = sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	if err = DB.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	logger.Info("database_connection_established", "path", dbPath)

	if err = createTables(DB); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Debug("database_tables_ready")
	return nil
}

func createTables(db *sql.DB) error {
	schema := `
    CREATE TABLE IF NOT EXISTS users (
        id TEXT PRIMARY KEY,
        username TEXT UNIQUE NOT NULL,
        email TEXT UNIQUE NOT NULL,
        password_hash TEXT NOT NULL,
        first_name TEXT DEFAULT '',
        last_name TEXT DEFAULT '',
        bio TEXT DEFAULT '',
        favorite_genres TEXT DEFAULT '[]',
        reading_speed INTEGER DEFAULT 200,
        is_active INTEGER DEFAULT 1,
        created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS reader_stats (
        user_id TEXT PRIMARY KEY,
        reading_points INTEGER DEFAULT 0,
        social_points INTEGER DEFAULT 0,
        challenge_points INTEGER DEFAULT 0,
        redeemed_points INTEGER DEFAULT 0,
        current_streak INTEGER DEFAULT 0,
        longest_streak INTEGER DEFAULT 0,
        last_reading_date TEXT,
        total_books_read INTEGER DEFAULT 0,
        total_pages_read INTEGER DEFAULT 0,
        reading_minutes INTEGER DEFAULT 0,
        FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
    );

    CREATE TABLE IF NOT EXISTS badges (
        user_id TEXT NOT NULL,
        name TEXT NOT NULL,
        description TEXT,
        icon TEXT,
        earned_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
        PRIMARY KEY (user_id, name),
        FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
    );

    CREATE TABLE IF NOT EXISTS redemptions (
        id TEXT PRIMARY KEY,
        user_id TEXT NOT NULL,
        amount INTEGER NOT NULL,
        reward TEXT NOT NULL,
        created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
    );

    CREATE TABLE IF NOT EXISTS books (
        id TEXT PRIMARY KEY,
        title TEXT NOT NULL,
        author TEXT NOT NULL,
        description TEXT DEFAULT '',
        genres TEXT DEFAULT '[]',
        isbn TEXT,
        pages INTEGER DEFAULT 0,
        status TEXT DEFAULT 'published',
        physical_available INTEGER DEFAULT 1,
        physical_price TEXT DEFAULT '0',
        physical_stock INTEGER DEFAULT 0,
        ebook_available INTEGER DEFAULT 0,
        ebook_price TEXT DEFAULT '0',
        audiobook_available INTEGER DEFAULT 0,
        audiobook_price TEXT DEFAULT '0',
        rating_sum INTEGER DEFAULT 0,
        rating_count INTEGER DEFAULT 0,
        review_count INTEGER DEFAULT 0,
        is_featured INTEGER DEFAULT 0,
        is_bestseller INTEGER DEFAULT 0,
        publication_date TEXT DEFAULT '',
        cover_url TEXT DEFAULT '',
        created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS library (
        user_id TEXT NOT NULL,
        book_id TEXT NOT NULL,
        shelf TEXT NOT NULL,
        updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
        PRIMARY KEY (user_id, book_id),
        FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
        FOREIGN KEY (book_id) REFERENCES books(id) ON DELETE CASCADE
    );

    CREATE TABLE IF NOT EXISTS completions (
        user_id TEXT NOT NULL,
        book_id TEXT NOT NULL,
        completed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
        PRIMARY KEY (user_id, book_id),
        FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
        FOREIGN KEY (book_id) REFERENCES books(id) ON DELETE CASCADE
    );

    -- books already on the completed shelf were counted when they got there
    INSERT OR IGNORE INTO completions (user_id, book_id, completed_at)
        SELECT user_id, book_id, updated_at FROM library WHERE shelf = 'completed';

    CREATE TABLE IF NOT EXISTS follows (
        follower_id TEXT NOT NULL,
        followee_id TEXT NOT NULL,
        created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
        PRIMARY KEY (follower_id, followee_id),
        FOREIGN KEY (follower_id) REFERENCES users(id) ON DELETE CASCADE,
        FOREIGN KEY (followee_id) REFERENCES users(id) ON DELETE CASCADE
    );

    CREATE TABLE IF NOT EXISTS orders (
        id TEXT PRIMARY KEY,
        order_number TEXT UNIQUE NOT NULL,
        user_id TEXT NOT NULL,
        status TEXT NOT NULL,
        coupon_code TEXT DEFAULT '',
        subtotal TEXT NOT NULL,
        discount TEXT NOT NULL,
        shipping TEXT NOT NULL,
        tax TEXT NOT NULL,
        total TEXT NOT NULL,
        shipping_address TEXT DEFAULT '{}',
        created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
    );

    CREATE TABLE IF NOT EXISTS order_items (
        order_id TEXT NOT NULL,
        position INTEGER NOT NULL,
        book_id TEXT NOT NULL,
        title TEXT NOT NULL,
        format TEXT NOT NULL,
        unit_price TEXT NOT NULL,
        quantity INTEGER NOT NULL,
        PRIMARY KEY (order_id, position),
        FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE
    );

    CREATE TABLE IF NOT EXISTS book_clubs (
        id TEXT PRIMARY KEY,
        name TEXT NOT NULL,
        description TEXT NOT NULL,
        is_public INTEGER DEFAULT 1,
        creator_id TEXT NOT NULL,
        current_book_id TEXT DEFAULT '',
        created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (creator_id) REFERENCES users(id) ON DELETE CASCADE
    );

    CREATE TABLE IF NOT EXISTS book_club_members (
        club_id TEXT NOT NULL,
        user_id TEXT NOT NULL,
        role TEXT DEFAULT 'member',
        joined_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
        PRIMARY KEY (club_id, user_id),
        FOREIGN KEY (club_id) REFERENCES book_clubs(id) ON DELETE CASCADE,
        FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
    );

    CREATE INDEX IF NOT EXISTS idx_books_title ON books(title);
    CREATE INDEX IF NOT EXISTS idx_books_author ON books(author);
    CREATE INDEX IF NOT EXISTS idx_library_user ON library(user_id);
    CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id);
    `

	if _, err := db.Exec(schema); err != nil {
		return err
	}
	// Migration for databases created before covers were tracked
	return ensureColumn(db, "books", "cover_url", `ALTER TABLE books ADD COLUMN cover_url TEXT DEFAULT '';`)
}

func ensureColumn(db *sql.DB, table, column, ddl string) error {
	found, err := hasColumn(db, table, column)
	if err != nil {
		return err
	}
	if !found {
		if _, err := db.Exec(ddl); err != nil {
			logger.Warn("add_column_failed", "table", table, "column", column, "error", err.Error())
		} else {
			logger.Info("column_added", "table", table, "column", column)
		}
	}
	return nil
}

func hasColumn(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(`PRAGMA table_info(` + table + `);`)
	if err != nil {
		return false, err
	}
	defer rows.Close()
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt interface{}
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false, err
		}
		if strings.EqualFold(name, column) {
			return true, nil
		}
	}
	return false, rows.Err()
}

func Close() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}
