package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hlmaths/practice-backend/internal/config"
	"github.com/hlmaths/practice-backend/internal/database"
	"github.com/hlmaths/practice-backend/internal/logger"
	"github.com/hlmaths/practice-backend/internal/model"
	"github.com/hlmaths/practice-backend/internal/progress"
	"github.com/hlmaths/practice-backend/internal/repository"
	"github.com/hlmaths/practice-backend/internal/service"
)

// seedQuestion is one entry in a per-topic question file. The topic is
// taken from the filename, so entries only carry a number suffix plus
// content.
type seedQuestion struct {
	Number     int    `json:"number"`
	Prompt     string `json:"prompt"`
	Answer     string `json:"answer"`
	Solution   string `json:"solution"`
	Difficulty int    `json:"difficulty"`
	SourceYear int    `json:"source_year"`
}

func main() {
	var dir string
	flag.StringVar(&dir, "dir", "data/questions", "Directory of per-topic question JSON files")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	pm := progress.DefaultPaperMap()
	if cfg.PaperMapPath != "" {
		loaded, err := progress.LoadPaperMap(cfg.PaperMapPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.PaperMapPath).Msg("Failed to load paper map")
		}
		pm = loaded
	}

	questionRepo := repository.NewQuestionRepository(pool)
	questionService := service.NewQuestionService(questionRepo, pm, log)

	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", dir).Msg("Failed to read question directory")
	}

	fmt.Printf("=== Seeding Questions from %s ===\n", dir)

	total := 0
	created := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		// Filename is the topic: alg.json holds alg-<number> questions.
		topic := strings.TrimSuffix(entry.Name(), ".json")

		raw, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			log.Fatal().Err(err).Str("file", entry.Name()).Msg("Failed to read question file")
		}

		var seeds []seedQuestion
		if err := json.Unmarshal(raw, &seeds); err != nil {
			log.Fatal().Err(err).Str("file", entry.Name()).Msg("Malformed question file")
		}

		for _, s := range seeds {
			total++
			req := model.CreateQuestionRequest{
				ID:         fmt.Sprintf("%s-%d", topic, s.Number),
				Prompt:     s.Prompt,
				Answer:     s.Answer,
				Solution:   s.Solution,
				Difficulty: s.Difficulty,
				SourceYear: s.SourceYear,
			}

			if _, err := questionService.Create(ctx, req); err != nil {
				if err == repository.ErrDuplicate {
					fmt.Printf("Skipping %s: already exists\n", req.ID)
					continue
				}
				fmt.Printf("Error creating %s: %v\n", req.ID, err)
				continue
			}
			created++
			if created%50 == 0 {
				fmt.Printf("Created %d questions...\n", created)
			}
		}
	}

	fmt.Printf("\nSeed completed! Successfully added %d/%d questions.\n", created, total)
}
