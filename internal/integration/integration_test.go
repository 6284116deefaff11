package integration

import (
	"context"
	"database/sql"
	"encoding/json"
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

	"medprep-exam-service/internal/app"
	"medprep-exam-service/internal/domain"
	"medprep-exam-service/internal/infra/memory"
	pgstore "medprep-exam-service/internal/infra/postgres"
	pgmigrations "medprep-exam-service/internal/infra/postgres/migrations"
	infraredis "medprep-exam-service/internal/infra/redis"
)

func TestExamEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedQuestions(t, ctx, pgURL, sampleBank())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	questions := infraredis.NewQuestionRepository(redisClient, pgstore.NewQuestionLoader(pool), 5*time.Minute)
	results := pgstore.NewResultStore(pool)
	outbox := infraredis.NewOutbox(redisClient)

	exams := app.NewExamService(questions, results, outbox, app.ExamConfig{
		TargetCount:     5,
		DurationSeconds: 600,
		Weights: []domain.SubjectWeight{
			{Subject: "anatomy", Fraction: 0.6},
			{Subject: "physiology", Fraction: 0.4},
		},
	})

	session, err := exams.StartExam(ctx, "u1", app.StartOptions{})
	if err != nil {
		t.Fatalf("start exam: %v", err)
	}
	paper := session.Questions()
	if len(paper) != 5 {
		t.Fatalf("expected 5-question paper, got %d", len(paper))
	}

	for _, q := range paper {
		if err := exams.Answer(session.ID(), q.ID, q.ShuffledOptions[q.CorrectIndex]); err != nil {
			t.Fatalf("answer %s: %v", q.ID, err)
		}
	}

	result, err := exams.Submit(ctx, session.ID())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Score != 500 || result.CorrectCount != 5 {
		t.Fatalf("expected perfect paper worth 500, got %+v", result)
	}

	stored, err := exams.GetResult(ctx, result.ID)
	if err != nil {
		t.Fatalf("get result: %v", err)
	}
	if stored.Score != result.Score || len(stored.Attempts) != 5 {
		t.Fatalf("stored result mismatch: %+v", stored)
	}
	for _, attempt := range stored.Attempts {
		if !attempt.IsCorrect {
			t.Fatalf("expected all attempts correct, got %+v", attempt)
		}
	}
}

func TestBattleResultPersistsDurably(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedQuestions(t, ctx, pgURL, sampleBank())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	questions := infraredis.NewQuestionRepository(redisClient, pgstore.NewQuestionLoader(pool), 5*time.Minute)
	scores := app.NewDurableScoreStore(
		infraredis.NewScoreStore(redisClient, time.Hour),
		pgstore.NewBattleResultStore(pool),
	)
	battles := app.NewBattleService(memory.NewRoomStore(), scores, questions, infraredis.NewOutbox(redisClient), app.BattleConfig{
		QuestionCount: 3,
		Weights: []domain.SubjectWeight{
			{Subject: "anatomy", Fraction: 1.0},
		},
	})

	_, paper, err := battles.Join(ctx, "room-1", "u1", "Asha")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	q := paper[0]
	_, awarded, _, correct, err := battles.SubmitAnswer(ctx, "room-1", "u1", q.ID, q.ShuffledOptions[q.CorrectIndex], 15)
	if err != nil {
		t.Fatalf("submit answer: %v", err)
	}
	if !correct || awarded != 130 {
		t.Fatalf("expected 130 points with 15s remaining, got correct=%v awarded=%d", correct, awarded)
	}

	result, err := battles.Finish(ctx, "room-1", "u1")
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if result.Rank != 1 || result.FinalScore != 130 {
		t.Fatalf("unexpected final result: %+v", result)
	}

	var (
		finalScore int
		rank       int
	)
	row := pool.QueryRow(ctx, `SELECT final_score, rank FROM battle_results WHERE room_id = $1 AND user_id = $2`, "room-1", "u1")
	if err := row.Scan(&finalScore, &rank); err != nil {
		t.Fatalf("read battle_results row: %v", err)
	}
	if finalScore != 130 || rank != 1 {
		t.Fatalf("durable row mismatch: score=%d rank=%d", finalScore, rank)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "exam", "POSTGRES_PASSWORD": "exampass", "POSTGRES_DB": "examdb"},
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
	dsn := fmt.Sprintf("postgres://exam:exampass@%s:%s/examdb?sslmode=disable", host, port.Port())
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

func seedQuestions(t *testing.T, ctx context.Context, dsn string, bank []domain.Question) {
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

	for _, q := range bank {
		opts, err := json.Marshal(q.Options)
		if err != nil {
			t.Fatalf("marshal options: %v", err)
		}
		_, err = db.ExecContext(ctx, `
			INSERT INTO questions (id, text, options, correct_option, explanation, subject_id, chapter_id)
			VALUES (?, ?, ?::jsonb, ?, ?, ?, ?)
			ON CONFLICT (id) DO NOTHING`,
			q.ID, q.Text, string(opts), q.CorrectOption, q.Explanation, q.SubjectID, q.ChapterID)
		if err != nil {
			t.Fatalf("insert question %s: %v", q.ID, err)
		}
	}
}

func sampleBank() []domain.Question {
	var bank []domain.Question
	for i := 0; i < 6; i++ {
		bank = append(bank, domain.Question{
			ID:            fmt.Sprintf("anatomy-%d", i),
			Text:          fmt.Sprintf("Anatomy question %d", i),
			Options:       []string{"A", "B", "C", "D"},
			CorrectOption: "B",
			SubjectID:     "anatomy",
		})
	}
	for i := 0; i < 4; i++ {
		bank = append(bank, domain.Question{
			ID:            fmt.Sprintf("physiology-%d", i),
			Text:          fmt.Sprintf("Physiology question %d", i),
			Options:       []string{"A", "B", "C", "D"},
			CorrectOption: "D",
			SubjectID:     "physiology",
		})
	}
	return bank
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
