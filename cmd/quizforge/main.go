package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/quizforge/quizforge/internal/assess"
	"github.com/quizforge/quizforge/internal/handler"
	appI18n "github.com/quizforge/quizforge/internal/i18n"
	"github.com/quizforge/quizforge/internal/llm"
	"github.com/quizforge/quizforge/internal/model"
	"github.com/quizforge/quizforge/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "quizforge",
		Short: "AI-assisted quiz generation and grading",
	}

	serve := serveCmd()
	root.AddCommand(serve, generateCmd(), gradeCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func addLLMFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("api-key", "", "Gemini API key (or set QUIZFORGE_API_KEY)")
	f.String("llm-url", llm.DefaultBaseURL, "Text-generation API base URL")
	f.String("llm-model", llm.DefaultModel, "Model name")
	f.Bool("strict-validation", false, "Reject generated choice questions with bad option lists")
}

func addLogFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP assessment API",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "quizforge.db", "SQLite database path")
	f.StringP("lang", "l", "en", "Feedback language (en, ru)")
	addLLMFlags(cmd)
	addLogFlags(cmd)
	return cmd
}

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a quiz and write it as JSON",
		RunE:  runGenerate,
	}
	f := cmd.Flags()
	f.StringP("subject", "s", "", "Subject name (required)")
	f.StringP("topic", "t", "", "Topic description (required)")
	f.IntP("num-questions", "n", 5, "Number of questions")
	f.StringP("difficulty", "d", "medium", "Difficulty (easy, medium, hard)")
	f.StringSliceP("kinds", "k", []string{"multiple_choice"}, "Question kinds (repeatable)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	addLLMFlags(cmd)
	addLogFlags(cmd)

	_ = cmd.MarkFlagRequired("subject")
	_ = cmd.MarkFlagRequired("topic")

	return cmd
}

func gradeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grade",
		Short: "Grade answers against a quiz file and print the report",
		RunE:  runGrade,
	}
	f := cmd.Flags()
	f.StringP("questions", "q", "", "Path to the quiz questions JSON file (required)")
	f.String("answers", "", "Path to the student answers JSON file (required)")
	f.Bool("fallback-only", false, "Skip the AI and grade with the local engine")
	f.StringP("lang", "l", "en", "Feedback language (en, ru)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	addLLMFlags(cmd)
	addLogFlags(cmd)

	_ = cmd.MarkFlagRequired("questions")
	_ = cmd.MarkFlagRequired("answers")

	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("QUIZFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("quizforge")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/quizforge")
	v.AddConfigPath("/etc/quizforge")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func newLLMClient(v *viper.Viper) (*llm.Client, error) {
	return llm.New(llm.Config{
		APIKey:  v.GetString("api-key"),
		BaseURL: v.GetString("llm-url"),
		Model:   v.GetString("llm-model"),
	})
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	client, err := newLLMClient(v)
	if err != nil {
		return fmt.Errorf("create LLM client: %w", err)
	}
	if err := client.Ping(context.Background()); err != nil {
		return fmt.Errorf("LLM health check: %w", err)
	}
	slog.Info("LLM endpoint OK", "url", v.GetString("llm-url"), "model", client.Model())

	svc := assess.NewService(client, v.GetBool("strict-validation"))
	h := handler.New(db, svc)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"model", client.Model(),
		"lang", lang,
		"strict_validation", v.GetBool("strict-validation"),
	)
	return http.ListenAndServe(addr, r)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	client, err := newLLMClient(v)
	if err != nil {
		return fmt.Errorf("create LLM client: %w", err)
	}
	svc := assess.NewService(client, v.GetBool("strict-validation"))

	kinds := make([]model.QuestionKind, 0, len(v.GetStringSlice("kinds")))
	for _, k := range v.GetStringSlice("kinds") {
		kinds = append(kinds, model.QuestionKind(k))
	}
	req := model.GenerationRequest{
		Subject:      v.GetString("subject"),
		Topic:        v.GetString("topic"),
		NumQuestions: v.GetInt("num-questions"),
		Difficulty:   model.Difficulty(v.GetString("difficulty")),
		Kinds:        kinds,
	}

	questions, err := svc.Generate(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("generate quiz: %w", err)
	}

	return writeOutput(v.GetString("output"), questions)
}

func runGrade(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	ctx := appI18n.WithLocalizer(cmd.Context(), appI18n.NewLocalizer(lang))

	var questions []model.Question
	if err := readJSONFile(v.GetString("questions"), &questions); err != nil {
		return err
	}
	var answers []model.StudentAnswer
	if err := readJSONFile(v.GetString("answers"), &answers); err != nil {
		return err
	}

	var report model.GradingReport
	if v.GetBool("fallback-only") {
		report = assess.GradeLocally(ctx, questions, answers)
		report.GradedAt = time.Now().UTC()
	} else {
		client, err := newLLMClient(v)
		if err != nil {
			return fmt.Errorf("create LLM client: %w", err)
		}
		svc := assess.NewService(client, v.GetBool("strict-validation"))
		report = svc.Grade(ctx, questions, answers)
	}

	return writeOutput(v.GetString("output"), report)
}

func readJSONFile(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func writeOutput(outPath string, result any) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	_, _ = fmt.Fprintln(w)

	return nil
}
