package db

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"regexp"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	ClinicIDKey contextKey = "clinic_id"
	DBConnKey   contextKey = "db_conn"
	DBTxKey     contextKey = "db_tx"
)

// ClinicHeader selects the clinic when the token carries no clinic claim.
const ClinicHeader = "X-Clinic-ID"

var clinicIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// SchemaName returns the schema holding a clinic's tables.
func SchemaName(clinicID string) string {
	return "clinic_" + clinicID
}

// ValidClinicID reports whether id can name a clinic schema.
func ValidClinicID(id string) bool {
	return clinicIDPattern.MatchString(id)
}

// ClinicMiddleware resolves the clinic for the request, acquires a pooled
// connection with search_path set to the clinic schema and stores it in the
// request context for the duration of the request. Public paths (as decided
// by skip) bypass it.
func ClinicMiddleware(pool *pgxpool.Pool, defaultClinic string, skip func(echo.Context) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skip != nil && skip(c) {
				return next(c)
			}

			clinicID := extractClinicID(c, defaultClinic)
			if !ValidClinicID(clinicID) {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid clinic identifier")
			}

			ctx := c.Request().Context()
			conn, err := pool.Acquire(ctx)
			if err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "database unavailable")
			}
			defer conn.Release()

			if _, err := conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s, public", quoteSchema(SchemaName(clinicID)))); err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "clinic resolution failed")
			}
			// Reset before the connection returns to the pool.
			defer conn.Exec(context.Background(), "RESET search_path")

			ctx = context.WithValue(ctx, ClinicIDKey, clinicID)
			ctx = context.WithValue(ctx, DBConnKey, conn)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set("clinic_id", clinicID)

			return next(c)
		}
	}
}

func extractClinicID(c echo.Context, defaultClinic string) string {
	if id, ok := c.Get("jwt_clinic_id").(string); ok && id != "" {
		return id
	}
	if id := c.Request().Header.Get(ClinicHeader); id != "" {
		return id
	}
	return defaultClinic
}

func ConnFromContext(ctx context.Context) *pgxpool.Conn {
	conn, _ := ctx.Value(DBConnKey).(*pgxpool.Conn)
	return conn
}

func ClinicFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ClinicIDKey).(string)
	return id
}

// CreateClinicSchema creates the clinic schema and applies all migrations to
// it. A nil migrations FS skips the migrations.
func CreateClinicSchema(ctx context.Context, pool *pgxpool.Pool, clinicID string, migrations fs.FS) error {
	if !ValidClinicID(clinicID) {
		return fmt.Errorf("invalid clinic identifier: %s", clinicID)
	}
	schema := SchemaName(clinicID)

	if _, err := pool.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+quoteSchema(schema)); err != nil {
		return fmt.Errorf("create schema %s: %w", schema, err)
	}
	if migrations != nil {
		if _, err := NewMigrator(pool, migrations).Up(ctx, schema); err != nil {
			return fmt.Errorf("run migrations for %s: %w", schema, err)
		}
	}
	return nil
}
