package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"quiz-orchestrator/internal/domain"
	"quiz-orchestrator/internal/validation"
)

// NewCheckCmd validates quiz documents offline, the same way uploads are checked.
func NewCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>...",
		Short: "Validate quiz JSON files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				quiz, err := checkQuizFile(path)
				if err != nil {
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: ok, %q with %d questions\n", path, quiz.DisplayTitle(), len(quiz.Questions))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d quiz files invalid", failed, len(args))
			}
			return nil
		},
	}
}

func checkQuizFile(path string) (domain.Quiz, error) {
	if _, err := validation.Filename(filepath.Base(path)); err != nil {
		return domain.Quiz{}, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.Quiz{}, err
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("parse: %w", err)
	}
	if err := validation.QuizDocument(quiz); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}
