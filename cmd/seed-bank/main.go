package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/opopir/opopir-backend/internal/config"
	"github.com/opopir/opopir-backend/internal/database"
	"github.com/opopir/opopir-backend/internal/logger"
	"github.com/opopir/opopir-backend/internal/model"
	"github.com/opopir/opopir-backend/internal/repository"
)

// bankFile is the JSON layout consumed by the seeder: scales with their
// questions nested under them. Scale codes are upserted, so re-running the
// seeder refreshes names without duplicating rows.
type bankFile struct {
	Scales []struct {
		Code      string `json:"code"`
		Name      string `json:"name"`
		Questions []struct {
			Text          string          `json:"text"`
			Options       json.RawMessage `json:"options"`
			CorrectOption string          `json:"correct_option"`
			Explanation   string          `json:"explanation"`
		} `json:"questions"`
	} `json:"scales"`
}

func main() {
	var bankPath string
	flag.StringVar(&bankPath, "file", "bank.json", "Path to the question bank JSON file")
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

	scaleRepo := repository.NewScaleRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)

	raw, err := os.ReadFile(bankPath)
	if err != nil {
		log.Fatal().Err(err).Str("file", bankPath).Msg("Failed to read bank file")
	}

	var bank bankFile
	if err := json.Unmarshal(raw, &bank); err != nil {
		log.Fatal().Err(err).Msg("Failed to parse bank file")
	}

	fmt.Printf("=== Seeding %d scales ===\n", len(bank.Scales))

	scaleCount := 0
	questionCount := 0
	for _, s := range bank.Scales {
		scale := &model.Scale{Code: s.Code, Name: s.Name}
		if err := scaleRepo.Create(ctx, scale); err != nil {
			log.Fatal().Err(err).Str("code", s.Code).Msg("Failed to upsert scale")
		}
		scaleCount++

		for _, q := range s.Questions {
			question := &model.Question{
				ScaleID:       scale.ID,
				QuestionText:  q.Text,
				Options:       q.Options,
				CorrectOption: q.CorrectOption,
				Explanation:   q.Explanation,
			}
			if err := questionRepo.Create(ctx, question); err != nil {
				log.Fatal().Err(err).Str("scale", s.Code).Msg("Failed to insert question")
			}
			questionCount++
		}
		fmt.Printf("Seeded scale %s (%d questions)\n", s.Code, len(s.Questions))
	}

	fmt.Printf("\nDone: %d scales, %d questions\n", scaleCount, questionCount)
}
