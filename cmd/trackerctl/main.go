package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/spec-kit/tracker-central/internal/auth"
	"github.com/spec-kit/tracker-central/internal/config"
	"github.com/spec-kit/tracker-central/internal/domain"
	"github.com/spec-kit/tracker-central/internal/form"
	"github.com/spec-kit/tracker-central/internal/render"
	"github.com/spec-kit/tracker-central/internal/templates"
)

var version = "dev"

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "trackerctl",
		Short: "Inspect tracker templates and issue agent tokens",
		Long: `trackerctl works with the tracker templates bundled into the service.

It lists and shows templates, renders subjects and descriptions for a set
of values, and issues agent tokens for local testing.`,
		Version:      version,
		SilenceUsage: true,
	}
	root.SetOut(out)

	templatesCmd := &cobra.Command{Use: "templates", Short: "Work with tracker templates"}
	templatesCmd.AddCommand(newTemplatesListCmd(), newTemplatesShowCmd())

	tokenCmd := &cobra.Command{Use: "token", Short: "Agent tokens"}
	tokenCmd.AddCommand(newTokenIssueCmd())

	root.AddCommand(templatesCmd, newPreviewCmd(), tokenCmd)
	return root
}

func loadRegistry() (*templates.Registry, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return templates.Load(templates.WithResourceOptions(cfg.Freshdesk.ResourceOptions))
}

func newTemplatesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry, err := loadRegistry()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tTITLE\tSUBJECT FORMAT")
			for _, tpl := range registry.List() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", tpl.Key, tpl.Title, tpl.Subject.Format)
			}
			return w.Flush()
		},
	}
}

func newTemplatesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <key>",
		Short: "Print a template with resource options applied",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := loadRegistry()
			if err != nil {
				return err
			}
			tpl, err := registry.Resolved(args[0])
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(tpl)
		},
	}
}

func newPreviewCmd() *cobra.Command {
	var (
		valuesFile  string
		sets        []string
		description bool
	)
	cmd := &cobra.Command{
		Use:   "preview <key>",
		Short: "Render the subject (and optionally the description) for a set of values",
		Long: `preview renders a template the way a submission would.

Values come from a YAML or JSON file (--values) and from repeated
--set field=value flags, which win over the file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := loadRegistry()
			if err != nil {
				return err
			}
			tpl, err := registry.Resolved(args[0])
			if err != nil {
				return err
			}
			values, err := readValues(valuesFile, sets)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			form.Prepare(tpl, values, nil)
			subject := values.Trimmed(tpl.SubjectTarget())
			fmt.Fprintf(out, "Subject: %s\n", subject)
			for _, warning := range render.ValidateSubject(subject, tpl.Subject.Rules) {
				fmt.Fprintf(out, "warning: %s\n", warning)
			}
			for _, msg := range form.Validate(tpl, values) {
				fmt.Fprintf(out, "error: %s\n", msg)
			}
			if description {
				fmt.Fprintf(out, "\n%s\n", render.GenerateDescription(tpl, values))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&valuesFile, "values", "", "YAML or JSON file of field values")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "field=value, repeatable")
	cmd.Flags().BoolVar(&description, "description", false, "Also print the generated HTML description")
	return cmd
}

// readValues merges a values file and --set pairs. JSON parses as YAML.
func readValues(path string, sets []string) (domain.FieldValues, error) {
	values := domain.FieldValues{}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read values: %w", err)
		}
		if err := yaml.Unmarshal(raw, &values); err != nil {
			return nil, fmt.Errorf("parse values: %w", err)
		}
	}
	for _, pair := range sets {
		field, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(field) == "" {
			return nil, fmt.Errorf("invalid --set %q, want field=value", pair)
		}
		values[strings.TrimSpace(field)] = value
	}
	return values, nil
}

func newTokenIssueCmd() *cobra.Command {
	var agent domain.Agent
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a bearer token for an agent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.AccessTokenTTLMinutes)
			token, expires, err := tokens.GenerateToken(agent)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expires.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&agent.ID, "agent", "", "Agent id (required)")
	cmd.Flags().StringVar(&agent.Email, "email", "", "Agent email (required)")
	cmd.Flags().StringVar(&agent.Name, "name", "", "Agent display name")
	_ = cmd.MarkFlagRequired("agent")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
