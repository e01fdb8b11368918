package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/teemow/chatscout/internal/assistant"
	"github.com/teemow/chatscout/internal/console"
	"github.com/teemow/chatscout/internal/gemini"
	"github.com/teemow/chatscout/internal/google"
	"github.com/teemow/chatscout/internal/logging"
	"github.com/teemow/chatscout/internal/runtime"
)

func newChatCmd() *cobra.Command {
	var (
		orchestratorModel string
		analysisModel     string
		historyFile       string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start the interactive Google Chat assistant",
		Long: `Start a conversational session in your terminal. The assistant finds the
chat spaces you ask about and answers questions about their messages,
walking you through Google authorization the first time it needs access.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(orchestratorModel, analysisModel, historyFile)
		},
	}

	cmd.Flags().StringVar(&orchestratorModel, "model", "", "Model for the orchestrator agent (default: gemini-2.5-flash)")
	cmd.Flags().StringVar(&analysisModel, "analysis-model", "", "Model for the message analysis agent (default: gemini-2.5-pro)")
	cmd.Flags().StringVar(&historyFile, "history-file", "", "Readline history file (default: under the system temp directory)")
	return cmd
}

func runChat(orchestratorModel, analysisModel, historyFile string) error {
	logging.Setup(debugMode)

	// A missing .env file is fine; the variables may come from the
	// environment directly.
	_ = godotenv.Load()

	conf, err := google.ConfigFromEnv()
	if err != nil {
		fmt.Println("ERROR: Please set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET in your .env file or environment.")
		return nil
	}

	apiKey := os.Getenv(gemini.EnvAPIKey)
	if apiKey == "" {
		return fmt.Errorf("missing required environment variable: %s", gemini.EnvAPIKey)
	}
	models, err := gemini.NewClient(apiKey)
	if err != nil {
		return fmt.Errorf("failed to create Gemini client: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	oauthConf := conf.OAuthConfig()
	store := google.NewStore()
	broker := google.NewBroker(oauthConf, store)
	auth := google.NewLifecycle(oauthConf, store, broker)

	agent := assistant.New(models, assistant.NewToolset(auth),
		assistant.WithOrchestratorModel(orchestratorModel),
		assistant.WithAnalysisModel(analysisModel))

	sessions := runtime.NewInMemorySessionService()
	sess, err := sessions.Create(ctx, "chat-agent-cli", "cli-user", "")
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	runner := runtime.NewRunner(agent, sessions, broker)

	loop, err := console.NewLoop(runner, sess.ID, console.WithHistoryFile(historyFile))
	if err != nil {
		return err
	}
	return loop.Run(ctx)
}
