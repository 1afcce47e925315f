package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema creates the tables the service needs when they are missing. The
// statements are idempotent so Migrate can run on every start.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		username VARCHAR(50) NOT NULL UNIQUE,
		email VARCHAR(100) NOT NULL UNIQUE,
		hashed_password VARCHAR(255) NOT NULL,
		full_name VARCHAR(100) NOT NULL,
		phone VARCHAR(20) NULL,
		role ENUM('user','admin','driver') NOT NULL DEFAULT 'user',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS bus_routes (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		departure_location VARCHAR(100) NOT NULL,
		destination VARCHAR(100) NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS buses (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		bus_number VARCHAR(20) NOT NULL UNIQUE,
		route_id BIGINT UNSIGNED NOT NULL,
		driver_id BIGINT UNSIGNED NULL,
		bus_type ENUM('28-seat','45-seat') NOT NULL DEFAULT '28-seat',
		total_seats INT NOT NULL,
		departure_time TIME NOT NULL,
		arrival_time TIME NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		CONSTRAINT fk_buses_route FOREIGN KEY (route_id) REFERENCES bus_routes(id),
		CONSTRAINT fk_buses_driver FOREIGN KEY (driver_id) REFERENCES users(id) ON DELETE SET NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS reservations (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT UNSIGNED NOT NULL,
		bus_id BIGINT UNSIGNED NOT NULL,
		seat_number VARCHAR(4) NOT NULL,
		reservation_date DATE NOT NULL,
		status ENUM('confirmed','cancelled','completed') NOT NULL DEFAULT 'confirmed',
		cancelled_by BIGINT UNSIGNED NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY idx_reservations_bus_date (bus_id, reservation_date, status),
		KEY idx_reservations_user (user_id),
		CONSTRAINT fk_reservations_user FOREIGN KEY (user_id) REFERENCES users(id),
		CONSTRAINT fk_reservations_bus FOREIGN KEY (bus_id) REFERENCES buses(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64) NOT NULL UNIQUE,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT fk_refresh_tokens_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate applies the schema.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
