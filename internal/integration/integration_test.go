package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"guild-quiz-bot/internal/app"
	"guild-quiz-bot/internal/domain"
	"guild-quiz-bot/internal/infra/postgres"
	pgmigrations "guild-quiz-bot/internal/infra/postgres/migrations"
	infraredis "guild-quiz-bot/internal/infra/redis"
)

func TestQuizSessionEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateDB(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	questions := postgres.NewQuestionStore(pool)
	cache := infraredis.NewQuestionCache(redisClient, questions, 5*time.Minute)
	importer := app.NewQuestionImporter(questions, cache)
	csv := "prompt,A,B,C,D,answer\nWhat is 2 + 2?,3,4,5,6,B\nWhat is 3 * 3?,6,9,12,33,B\n"
	if n, err := importer.Import(ctx, "g1", strings.NewReader(csv)); err != nil || n != 2 {
		t.Fatalf("import: n=%d err=%v", n, err)
	}

	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	service := app.NewQuizService(
		infraredis.NewSessionStore(redisClient),
		postgres.NewAnswerStore(pool),
		postgres.NewGuildStore(pool),
		cache,
		app.WithClock(clock),
		app.WithDefaults(1800, 2),
	)
	if _, err := service.RegisterGuild(ctx, "g1", "Integration"); err != nil {
		t.Fatalf("register guild: %v", err)
	}

	started, err := service.Start(ctx, "g1", domain.User{ID: "u1", Name: "Alice"})
	if err != nil || started.Status != domain.StartFirstQuestion {
		t.Fatalf("start: status=%v err=%v", started.Status, err)
	}

	now = now.Add(time.Minute)
	first, err := service.SubmitAnswer(ctx, "g1", "u1", started.Question.Token, domain.OptionB)
	if err != nil || first.Status != domain.AnswerNextQuestion {
		t.Fatalf("first answer: status=%v err=%v", first.Status, err)
	}
	stale, err := service.SubmitAnswer(ctx, "g1", "u1", started.Question.Token, domain.OptionB)
	if err != nil || stale.Status != domain.AnswerStale {
		t.Fatalf("replayed answer: status=%v err=%v", stale.Status, err)
	}

	now = now.Add(time.Minute)
	last, err := service.SubmitAnswer(ctx, "g1", "u1", first.Question.Token, domain.OptionA)
	if err != nil || last.Status != domain.AnswerCompleted {
		t.Fatalf("last answer: status=%v err=%v", last.Status, err)
	}

	export, err := service.ExportCSV(ctx, "g1")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(export.Rows) != 2 {
		t.Fatalf("expected header and one row, got %v", export.Rows)
	}
	row := export.Rows[1]
	if row[0] != "Alice" || row[1] != "50%" || row[3] != "0h2m0s" || row[4] != "1" {
		t.Fatalf("unexpected export row %v", row)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func migrateDB(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
