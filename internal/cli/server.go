package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"medprep-exam-service/internal/app"
	"medprep-exam-service/internal/config"
	"medprep-exam-service/internal/domain"
	"medprep-exam-service/internal/infra/memory"
	pgstore "medprep-exam-service/internal/infra/postgres"
	redisstore "medprep-exam-service/internal/infra/redis"
	transport "medprep-exam-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the exam server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
	questionTTL := config.TTLDuration(cfg.Questions.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.QuestionLoader = memory.NewStaticQuestionLoader(sampleQuestions())
	if pool != nil {
		loader = pgstore.NewQuestionLoader(pool)
	}

	var questionRepo app.QuestionRepository
	if redisClient != nil {
		questionRepo = redisstore.NewQuestionRepository(redisClient, loader, questionTTL)
	} else {
		questionRepo = memory.NewQuestionRepository(loader, questionTTL)
	}

	var resultStore app.ResultStore = memory.NewResultStore()
	if pool != nil {
		resultStore = pgstore.NewResultStore(pool)
	}

	var scoreStore app.ScoreStore
	if redisClient != nil {
		scoreStore = redisstore.NewScoreStore(redisClient, redisTTL)
	} else {
		scoreStore = memory.NewScoreStore()
	}
	if pool != nil {
		scoreStore = app.NewDurableScoreStore(scoreStore, pgstore.NewBattleResultStore(pool))
	}

	var outbox app.Outbox = memory.NewOutbox()
	if redisClient != nil {
		outbox = redisstore.NewOutbox(redisClient)
	}

	examService := app.NewExamService(questionRepo, resultStore, outbox, app.ExamConfig{
		TargetCount:     cfg.Exam.TargetCount,
		DurationSeconds: cfg.Exam.DurationSeconds,
		Weights:         cfg.Exam.Weights,
	})
	battleService := app.NewBattleService(memory.NewRoomStore(), scoreStore, questionRepo, outbox, app.BattleConfig{
		QuestionCount: cfg.Battle.QuestionCount,
		Weights:       cfg.Exam.Weights,
	})

	flushCtx, stopFlusher := context.WithCancel(ctx)
	defer stopFlusher()
	flusher := app.NewFlusher(outbox, resultStore, scoreStore, config.TTLDuration(cfg.Outbox.FlushInterval, 5*time.Second))
	go flusher.Run(flushCtx)

	apiHandler := transport.NewAPIHandler(examService)
	wsHandler := transport.NewWSHandler(battleService)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(apiHandler, wsHandler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting exam service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuestions seeds a small demo bank; production deployments load the
// bank from Postgres instead.
func sampleQuestions() []domain.Question {
	subjects := []string{"anatomy", "physiology", "biochemistry", "pathology", "pharmacology"}
	var questions []domain.Question
	for _, subject := range subjects {
		for i := 1; i <= 30; i++ {
			id := fmt.Sprintf("%s-q%d", subject, i)
			questions = append(questions, domain.Question{
				ID:            id,
				Text:          fmt.Sprintf("Sample %s question %d", subject, i),
				Options:       []string{"Option A", "Option B", "Option C", "Option D"},
				CorrectOption: "Option B",
				Explanation:   "Option B is correct in the sample bank.",
				SubjectID:     subject,
				ChapterID:     fmt.Sprintf("%s-ch%d", subject, (i-1)/4+1),
			})
		}
	}
	return questions
}
