package infra

import (
	"context"
	"os"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// claimsTZ matches the +05:30 offset claims are stamped with.
const claimsTZ = "Asia/Kolkata"

// PGContainer wraps a Postgres test container. A zero value means an
// externally provided database is in use.
type PGContainer struct {
	C *postgres.PostgresContainer
}

// StartPostgres starts a Postgres 16 container running in IST and returns
// its DSN. When overrideDSN or CLAIMDESK_TEST_PG_DSN is set, that database
// is reused as is.
func StartPostgres(ctx context.Context, overrideDSN string) (*PGContainer, string, error) {
	if overrideDSN != "" {
		return &PGContainer{}, overrideDSN, nil
	}
	if dsn := os.Getenv("CLAIMDESK_TEST_PG_DSN"); dsn != "" {
		return &PGContainer{}, dsn, nil
	}

	pgC, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("claims"),
		postgres.WithUsername("claims"),
		postgres.WithPassword("claims"),
		testcontainers.WithEnv(map[string]string{"TZ": claimsTZ, "PGTZ": claimsTZ}),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		return nil, "", err
	}

	dsn, err := pgC.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = pgC.Terminate(ctx)
		return nil, "", err
	}
	return &PGContainer{C: pgC}, dsn, nil
}

func (p *PGContainer) Terminate(ctx context.Context) error {
	if p == nil || p.C == nil {
		return nil
	}
	return p.C.Terminate(ctx)
}
