package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/examarena/examarena-backend/internal/config"
	"github.com/examarena/examarena-backend/internal/database"
	"github.com/examarena/examarena-backend/internal/logger"
	"github.com/examarena/examarena-backend/internal/model"
	"github.com/examarena/examarena-backend/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

const seedPassword = "examarena123"

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	profileRepo := repository.NewProfileRepository(pool)
	examRepo := repository.NewExamRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)

	fmt.Println("=== Seeding Demo Data ===")

	// Seeding twice would spam duplicate-email errors. Bail out if
	// student accounts already exist.
	existing, err := profileRepo.CountByRole(ctx, model.RoleStudent)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to count existing students")
	}
	if existing > 0 {
		fmt.Printf("Found %d student accounts, database already seeded. Nothing to do.\n", existing)
		return
	}

	// ─── Students ──────────────────────────────────────────────────────
	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash seed password")
	}

	names := []string{
		"Aarav Sharma", "Bella Nguyen", "Carlos Mendez", "Diana Okafor", "Elena Petrova",
		"Felix Bauer", "Grace Kim", "Hassan Ali", "Ines Costa", "Jonas Lindqvist",
		"Keiko Tanaka", "Liam O'Brien", "Mina Haddad", "Noah Fischer", "Olivia Brown",
		"Priya Patel", "Quentin Dubois", "Rosa Alvarez", "Samuel Adeyemi", "Tara Singh",
	}

	successCount := 0
	for i, name := range names {
		email := fmt.Sprintf("student%d@examarena.dev", i+1)
		student := &model.Profile{
			Email:        email,
			FullName:     name,
			PasswordHash: string(hash),
			Role:         model.RoleStudent,
		}

		if err := profileRepo.Create(ctx, student); err != nil {
			fmt.Printf("Error creating student %s (%s): %v\n", name, email, err)
			continue
		}
		successCount++
	}
	fmt.Printf("Created %d/%d students (password: %s)\n", successCount, len(names), seedPassword)

	// ─── Demo Exam ─────────────────────────────────────────────────────
	now := time.Now()
	exam := &model.Exam{
		Title:           "General Knowledge Sprint",
		Description:     "A short demo exam covering general knowledge. 10 questions, 15 minutes.",
		StartTime:       now.Add(5 * time.Minute),
		EndTime:         now.Add(24 * time.Hour),
		DurationMinutes: 15,
		TotalMarks:      40,
		ExamType:        "demo",
		Status:          model.ExamStatusDraft,
	}
	if err := examRepo.Create(ctx, exam); err != nil {
		log.Fatal().Err(err).Msg("Failed to create demo exam")
	}
	fmt.Printf("Created exam '%s' with ID: %s\n", exam.Title, exam.ID)

	// ─── Questions ─────────────────────────────────────────────────────
	// Format: question;A;B;C;D;correct
	raw := []string{
		"Which planet is known as the Red Planet?;Venus;Mars;Jupiter;Mercury;B",
		"What is the chemical symbol for gold?;Au;Ag;Gd;Go;A",
		"Which ocean is the largest by area?;Atlantic;Indian;Pacific;Arctic;C",
		"Who wrote the play Romeo and Juliet?;Dickens;Shakespeare;Chaucer;Austen;B",
		"What is the square root of 144?;10;11;12;14;C",
		"Which gas makes up most of Earth's atmosphere?;Oxygen;Nitrogen;Carbon dioxide;Argon;B",
		"In which year did the first moon landing occur?;1965;1967;1969;1971;C",
		"What is the capital of Australia?;Sydney;Melbourne;Perth;Canberra;D",
		"How many sides does a hexagon have?;5;6;7;8;B",
		"Which element has the atomic number 1?;Helium;Oxygen;Hydrogen;Carbon;C",
	}

	questions := make([]model.Question, 0, len(raw))
	for i, line := range raw {
		parts := strings.Split(line, ";")
		questions = append(questions, model.Question{
			ExamID:        exam.ID,
			QuestionText:  parts[0],
			OptionA:       parts[1],
			OptionB:       parts[2],
			OptionC:       parts[3],
			OptionD:       parts[4],
			CorrectAnswer: parts[5],
			Marks:         4,
			NegativeMarks: 1,
			QuestionOrder: i + 1,
		})
	}

	inserted, err := questionRepo.BulkCreate(ctx, questions)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to insert demo questions")
	}
	fmt.Printf("Inserted %d questions\n", inserted)

	// Publish so the exam shows up in the catalog right away.
	if err := examRepo.UpdateStatus(ctx, exam.ID, model.ExamStatusUpcoming); err != nil {
		log.Fatal().Err(err).Msg("Failed to publish demo exam")
	}

	fmt.Println("\nSeed completed! The demo exam goes active in ~5 minutes.")
}
