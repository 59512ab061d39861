// Package db opens the PostgreSQL connection and prepares the schema.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    email TEXT NOT NULL UNIQUE,
    full_name TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role TEXT NOT NULL,
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    sede TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    last_login TIMESTAMPTZ,
    updated_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS inventory_items (
    id TEXT PRIMARY KEY,
    dni CHAR(8) NOT NULL UNIQUE,
    persona TEXT NOT NULL,
    dispositivo TEXT NOT NULL,
    control_patrimonial TEXT NOT NULL,
    modelo TEXT NOT NULL,
    numero_serie TEXT NOT NULL,
    imei TEXT,
    funda_tablet BOOLEAN NOT NULL DEFAULT FALSE,
    plan_datos BOOLEAN NOT NULL DEFAULT FALSE,
    power_tech BOOLEAN NOT NULL DEFAULT FALSE,
    telefono TEXT NOT NULL,
    correo_personal TEXT NOT NULL,
    fecha_entrega TIMESTAMPTZ NOT NULL,
    estado TEXT NOT NULL,
    robado BOOLEAN NOT NULL DEFAULT FALSE,
    motivo_reparacion TEXT,
    ubicacion_actual TEXT NOT NULL,
    responsable_entrega TEXT NOT NULL,
    observaciones TEXT,
    valor_estimado DOUBLE PRECISION,
    garantia_vence TIMESTAMPTZ,
    proveedor TEXT,
    fecha_compra TIMESTAMPTZ,
    created_by TEXT NOT NULL,
    updated_by TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS inventory_items_dispositivo_idx ON inventory_items (dispositivo);
CREATE INDEX IF NOT EXISTS inventory_items_estado_idx ON inventory_items (estado);

CREATE TABLE IF NOT EXISTS audit_logs (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    username TEXT NOT NULL,
    action TEXT NOT NULL,
    resource_type TEXT NOT NULL,
    resource_id TEXT,
    details JSONB NOT NULL DEFAULT '{}'::jsonb,
    timestamp TIMESTAMPTZ NOT NULL,
    sede TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS audit_logs_timestamp_idx ON audit_logs (timestamp DESC);
`

// InitPostgres opens a connection pool for dsn, verifies it and applies the schema.
func InitPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := Prepare(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Prepare pings db and creates any missing tables and indexes.
func Prepare(ctx context.Context, db *sql.DB) error {
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}
