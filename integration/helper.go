package integration

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/iyhunko/price-tracker/internal/cache"
	"github.com/iyhunko/price-tracker/internal/config"
	reposql "github.com/iyhunko/price-tracker/internal/repository/sql"
	_ "github.com/lib/pq"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/redis/go-redis/v9"
)

const containerTTLSeconds = 120

// TestDB holds the test database connection and the container backing it
type TestDB struct {
	DB       *sql.DB
	Pool     *dockertest.Pool
	Resource *dockertest.Resource
}

// TestRedis holds a client for a throwaway Redis container
type TestRedis struct {
	Client   *redis.Client
	Pool     *dockertest.Pool
	Resource *dockertest.Resource
}

// runContainer starts an auto-removed container that expires on its own if the test run dies.
func runContainer(t *testing.T, opts *dockertest.RunOptions) (*dockertest.Pool, *dockertest.Resource) {
	t.Helper()

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("Could not connect to docker: %s", err)
	}
	pool.MaxWait = 120 * time.Second

	resource, err := pool.RunWithOptions(opts, func(hostConfig *docker.HostConfig) {
		hostConfig.AutoRemove = true
		hostConfig.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("Could not start %s: %s", opts.Repository, err)
	}
	if err := resource.Expire(containerTTLSeconds); err != nil {
		t.Fatalf("Could not set expiration: %s", err)
	}
	return pool, resource
}

func purge(t *testing.T, pool *dockertest.Pool, resource *dockertest.Resource) {
	t.Helper()
	if pool != nil && resource != nil {
		if err := pool.Purge(resource); err != nil {
			t.Errorf("Could not purge resource: %s", err)
		}
	}
}

// SetupTestDB starts PostgreSQL and applies the service migrations
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	pool, resource := runContainer(t, &dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16",
		Env: []string{
			"POSTGRES_PASSWORD=secret",
			"POSTGRES_USER=testuser",
			"POSTGRES_DB=testdb",
			"listen_addresses='*'",
		},
	})

	databaseURL := fmt.Sprintf("postgres://testuser:secret@%s/testdb?sslmode=disable", resource.GetHostPort("5432/tcp"))
	log.Println("Connecting to database on url: ", databaseURL)

	var db *sql.DB
	if err := pool.Retry(func() error {
		var err error
		db, err = sql.Open("postgres", databaseURL)
		if err != nil {
			return err
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("Could not connect to postgres: %s", err)
	}

	// Get the migrations path - go up from integration folder to root
	migrationsPath := "../migrations"
	if _, err := os.Stat(migrationsPath); os.IsNotExist(err) {
		t.Fatalf("Migrations directory not found: %s", migrationsPath)
	}
	if err := reposql.RunMigrations(db, "file://"+migrationsPath); err != nil {
		t.Fatalf("Could not run migrations: %s", err)
	}

	return &TestDB{DB: db, Pool: pool, Resource: resource}
}

// Cleanup closes the database connection and purges the Docker container
func (tdb *TestDB) Cleanup(t *testing.T) {
	t.Helper()

	if tdb.DB != nil {
		if err := tdb.DB.Close(); err != nil {
			t.Errorf("Could not close database: %s", err)
		}
	}
	purge(t, tdb.Pool, tdb.Resource)
}

// TruncateTables empties every service table
func (tdb *TestDB) TruncateTables(t *testing.T) {
	t.Helper()

	ctx := context.Background()
	tables := []string{"events", "price_history", "products", "users"}

	for _, table := range tables {
		_, err := tdb.DB.ExecContext(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table))
		if err != nil {
			t.Fatalf("Could not truncate table %s: %s", table, err)
		}
	}
}

// SetupTestRedis starts Redis and connects to it the way the service does
func SetupTestRedis(t *testing.T) *TestRedis {
	t.Helper()

	pool, resource := runContainer(t, &dockertest.RunOptions{Repository: "redis", Tag: "7-alpine"})
	redisConf := config.Redis{URL: fmt.Sprintf("redis://%s/0", resource.GetHostPort("6379/tcp"))}

	var client *redis.Client
	if err := pool.Retry(func() error {
		var err error
		client, err = cache.ConnectRedis(context.Background(), redisConf)
		return err
	}); err != nil {
		t.Fatalf("Could not connect to redis: %s", err)
	}

	return &TestRedis{Client: client, Pool: pool, Resource: resource}
}

// Cleanup closes the client and purges the Docker container
func (tr *TestRedis) Cleanup(t *testing.T) {
	t.Helper()

	if tr.Client != nil {
		if err := tr.Client.Close(); err != nil {
			t.Errorf("Could not close redis client: %s", err)
		}
	}
	purge(t, tr.Pool, tr.Resource)
}
