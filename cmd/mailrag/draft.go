package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/mailrag/internal/domain"
	"github.com/kailas-cloud/mailrag/internal/domain/style"
	draftuc "github.com/kailas-cloud/mailrag/internal/usecase/draft"
)

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Draft one reply from the command line",
	Long: `draft runs the same pipeline as POST /api/chat for a single message read from
--message or, when that flag is empty, from standard input. The answer goes to
stdout; evidence citations and token usage go to stderr.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		msg, _ := cmd.Flags().GetString("message")
		if msg == "" {
			b, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), draftuc.MaxMessageBytes+1))
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			msg = string(b)
		}
		st, _ := cmd.Flags().GetString("style")
		asJSON, _ := cmd.Flags().GetBool("json")
		return runDraft(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), msg, style.Parse(st), asJSON)
	},
}

func init() {
	draftCmd.Flags().StringP("message", "m", "", "mail text to answer (default: read stdin)")
	draftCmd.Flags().StringP("style", "s", "", "reply style: concise, standard or detailed")
	draftCmd.Flags().Bool("json", false, "print the client payload as JSON")
	rootCmd.AddCommand(draftCmd)
}

func runDraft(ctx context.Context, stdout, stderr io.Writer, msg string, st style.Style, asJSON bool) error {
	if strings.TrimSpace(msg) == "" {
		return errors.New("no message given")
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, usage := domain.NewContextWithUsage(ctx)
	res, err := a.draft.Draft(ctx, draftuc.Request{Message: msg, Style: st})
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res.Reply); err != nil {
			return fmt.Errorf("encode reply: %w", err)
		}
	} else {
		fmt.Fprintln(stdout, strings.ReplaceAll(res.Reply.Answer, "<br>", "\n"))
	}

	for _, c := range res.Evidence.Citations() {
		fmt.Fprintf(stderr, "source: %s\n", c)
	}
	if res.Evidence.IsDegraded() {
		fmt.Fprintf(stderr, "warning: degraded retrieval, failed paths %v\n", res.Evidence.Degraded())
	}
	fmt.Fprintf(stderr, "tokens: embedding=%d generation=%d images=%d\n",
		usage.EmbeddingTokens, usage.GenerationTokens, len(res.Reply.Images))
	return nil
}
