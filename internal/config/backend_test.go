package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResolveBackend(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*Config)
		want   Backend
	}{
		{
			name:   "no connection string uses the local file",
			modify: func(c *Config) { c.DBFilepath = "/tmp/lapor.sqlite" },
			want:   LocalFile{Path: "/tmp/lapor.sqlite"},
		},
		{
			name: "serverless uses the managed cloud profile",
			modify: func(c *Config) {
				c.DatabaseURL = "postgres://u:p@db.example.com/lapor"
				c.Serverless = true
			},
			want: ManagedCloud{
				URL:  "postgres://u:p@db.example.com/lapor",
				Pool: ServerlessPool(),
			},
		},
		{
			name: "production uses the managed cloud profile",
			modify: func(c *Config) {
				c.DatabaseURL = "postgres://u:p@db.example.com/lapor"
				c.Environment = Production
			},
			want: ManagedCloud{
				URL:  "postgres://u:p@db.example.com/lapor",
				Pool: ServerlessPool(),
			},
		},
		{
			name:   "generic postgres",
			modify: func(c *Config) { c.DatabaseURL = "postgres://u:p@localhost:5432/lapor" },
			want: GenericPostgres{
				URL:  "postgres://u:p@localhost:5432/lapor",
				Pool: DefaultPool(),
			},
		},
		{
			name: "known managed host relaxes TLS",
			modify: func(c *Config) {
				c.DatabaseURL = "postgres://u:p@dpg-abc.oregon-postgres.render.com/lapor"
			},
			want: GenericPostgres{
				URL:        "postgres://u:p@dpg-abc.oregon-postgres.render.com/lapor",
				Pool:       DefaultPool(),
				RelaxedTLS: true,
			},
		},
		{
			name: "lookalike host keeps TLS strict",
			modify: func(c *Config) {
				c.DatabaseURL = "postgres://u:p@render.com.attacker.example/lapor"
			},
			want: GenericPostgres{
				URL:  "postgres://u:p@render.com.attacker.example/lapor",
				Pool: DefaultPool(),
			},
		},
		{
			name: "pool overrides replace defaults field by field",
			modify: func(c *Config) {
				c.DatabaseURL = "postgres://localhost/lapor"
				c.Pool = PoolConfig{MaxConns: 20, IdleTimeout: time.Minute}
			},
			want: GenericPostgres{
				URL: "postgres://localhost/lapor",
				Pool: Pool{
					MaxConns:       20,
					MinConns:       0,
					AcquireTimeout: 30 * time.Second,
					IdleTimeout:    time.Minute,
				},
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			cfg := Default()
			test.modify(&cfg)
			assert.Equal(t, test.want, ResolveBackend(cfg))
		})
	}
}

func TestDefaultPool(t *testing.T) {
	t.Parallel()

	pool := DefaultPool()
	assert.Equal(t, int32(5), pool.MaxConns)
	assert.Equal(t, int32(0), pool.MinConns)
	assert.Equal(t, 30*time.Second, pool.AcquireTimeout)
	assert.Equal(t, 10*time.Second, pool.IdleTimeout)
}

func TestLocalFile_PoolSettings(t *testing.T) {
	t.Parallel()

	pool := LocalFile{Path: "db.sqlite"}.PoolSettings()
	assert.Equal(t, int32(1), pool.MaxConns)
	assert.Positive(t, pool.AcquireTimeout)
}
