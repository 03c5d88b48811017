package main

import (
	"fmt"
	"os"
	"time"

	"trawell-be/internal/dto"
	"trawell-be/internal/pkg/serverutils"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// defaultAnswers is a relaxed beach traveler.
var defaultAnswers = map[string]string{
	"traveler_type":          "I mostly want to relax and recharge, maybe one small excursion.",
	"activity_level":         "Pretty low, a swim and a short walk a day is plenty.",
	"accommodation":          "All inclusive resorts so I never have to plan meals.",
	"environment":            "Beaches, warm water and sand.",
	"budget_sensitivity":     "Medium, I'll pay more for comfort but not for luxury.",
	"culture_interest":       "Low, one museum per trip at most.",
	"food_importance":        "High, trying local seafood is half the fun.",
	"dietary_restrictions":   "None.",
	"mobility_accessibility": "No limitations.",
	"climate_preference":     "Hot and sunny, I hate the cold.",
	"past_destinations":      "Bali, Mallorca and Phuket.",
	"wishlist_regions":       "The Maldives and the Caribbean.",
	"language_comfort":       "English and a bit of Spanish.",
}

var (
	answersFile string
	resume      bool
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Run a profiling session to completion",
	Long: `Start (or resume) a profiling session and answer every question.

Answers come from --answers, a YAML map of question id to answer text, or
from a built-in relaxed beach traveler.`,
	RunE: runProfile,
}

func init() {
	profileCmd.Flags().StringVar(&answersFile, "answers", "", "YAML file of question id to answer")
	profileCmd.Flags().BoolVar(&resume, "resume", true, "resume the open session instead of failing")
}

func loadAnswers(path string) (map[string]string, error) {
	if path == "" {
		return defaultAnswers, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	answers := make(map[string]string)
	if err := yaml.Unmarshal(raw, &answers); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return answers, nil
}

func runProfile(cmd *cobra.Command, args []string) error {
	answers, err := loadAnswers(answersFile)
	if err != nil {
		return err
	}
	client := newAPIClient("")

	color.Cyan("🚀 Starting profiling simulation against %s\n", baseURL)

	var session serverutils.BaseResponse[dto.ProfilingSessionResponse]
	if err := client.do("POST", "/profiling/start", dto.StartProfilingRequest{Resume: resume}, &session); err != nil {
		return err
	}
	s := session.Data
	if s.Resumed {
		color.Yellow("Resumed session %s at question %d/%d", s.SessionId, s.Progress.Current, s.Progress.Total)
	} else {
		color.Green("Session %s started as %s", s.SessionId, s.Owner)
	}
	if s.Intro != "" {
		fmt.Printf("\nAI: %s\n", s.Intro)
	}

	question := s.CurrentQuestion
	for question != nil {
		fmt.Printf("\nAI: %s\n", question.Prompt)

		answer, ok := answers[question.ID]
		if !ok {
			answer = "I don't mind, anything works."
		}
		fmt.Printf("YOU: %s\n", answer)

		start := time.Now()
		var res serverutils.BaseResponse[dto.SubmitAnswerResponse]
		err := client.do("POST", "/profiling/session/"+s.SessionId+"/answer", dto.SubmitAnswerRequest{
			QuestionId: question.ID,
			Answer:     answer,
		}, &res)
		if err != nil {
			return err
		}

		out := res.Data.Outcome
		status := color.GreenString(string(out.Status))
		if !out.Advanced {
			status = color.YellowString(string(out.Status))
		}
		fmt.Printf("   [%s] value=%q completeness=%.2f (%s)\n", status, out.Value.String(), out.Completeness, time.Since(start).Round(time.Millisecond))
		if out.FollowUp != "" {
			color.Yellow("   follow-up: %s", out.FollowUp)
		}

		if res.Data.Profile != nil {
			printProfile(res.Data.Profile, res.Data.Message)
			return nil
		}
		question = res.Data.NextQuestion
	}

	var done serverutils.BaseResponse[dto.CompleteProfilingResponse]
	if err := client.do("POST", "/profiling/session/"+s.SessionId+"/complete", nil, &done); err != nil {
		return err
	}
	printProfile(done.Data.Profile, done.Data.Message)
	return nil
}

func printProfile(p *dto.ProfileResponse, message string) {
	color.Green("\n✅ Profile complete (%.0f%%)", p.Completeness*100)
	for k, v := range p.Preferences {
		fmt.Printf("   %-22s %s\n", k, v)
	}
	for k, v := range p.Constraints {
		fmt.Printf("   %-22s %v\n", k, v)
	}
	if message != "" {
		fmt.Printf("\nAI: %s\n", message)
	}
}
