package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/access"
	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/bot"
	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/catalog"
	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/chat"
	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/db"
	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/domain"
	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/export"
	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/migrate"
	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/repo"
	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/server"
	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/session"
	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/telegram"
)

var rootCmd = &cobra.Command{
	Use:   "maintbot",
	Short: "Maintenance issue bot",
	Long: `Maintbot runs a Telegram assistant for reporting equipment breakdowns.
Workers walk a button menu (area, subarea, equipment, component), type a
description, and the issue lands in a local SQLite store. Standard users can
close open issues; administrators can export everything to Excel.

The bot runs either as a webhook behind the ops API (maintbot serve) or as a
long poller (maintbot poll). The ops API also exposes the issue store over
HTTP for integrations, authenticated with JWT bearer tokens or ops keys.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("MAINTBOT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("admins", "", "comma-separated admin chat ids")
	rootCmd.PersistentFlags().String("catalog-file", "", "YAML catalog override")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("admins", rootCmd.PersistentFlags().Lookup("admins"))
	_ = viper.BindPFlag("catalog-file", rootCmd.PersistentFlags().Lookup("catalog-file"))
}

func registerCommands() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(pollCmd())
	rootCmd.AddCommand(issuesCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(opskeyCmd())
	rootCmd.AddCommand(catalogCmd())
}

func serveCmd() *cobra.Command {
	var addr, basePath, webhookURL string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook bot and ops API",
		RunE: func(cmd *cobra.Command, args []string) error {
			token := viper.GetString("token")
			if token == "" {
				return fmt.Errorf("MAINTBOT_TOKEN is required")
			}
			conn, err := openDB()
			if err != nil {
				return err
			}
			defer conn.Close()
			client := telegram.NewClient(token)
			d, err := buildDispatcher(conn, &telegram.Gateway{Client: client})
			if err != nil {
				return err
			}
			secret := viper.GetString("webhook-secret")
			webhook := &telegram.WebhookHandler{Handler: d, Secret: secret}
			authCfg := server.AuthConfig{JWTSecret: os.Getenv("MAINTBOT_OPS_JWT_SECRET")}
			if authCfg.JWTSecret == "" {
				log.Printf("MAINTBOT_OPS_JWT_SECRET not set; ops API accepts ops keys only")
			}
			handler, err := server.New(server.Config{
				Repo:     repo.Repo{DB: conn},
				Exporter: export.Excel{},
				BasePath: basePath,
				Auth:     authCfg,
				Webhook:  webhook,
			})
			if err != nil {
				return err
			}
			if webhookURL != "" {
				if err := client.SetWebhook(cmd.Context(), webhookURL, secret); err != nil {
					return fmt.Errorf("set webhook: %w", err)
				}
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving bot webhook on http://%s/webhook, ops API under %s\n", addr, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "ops API base path")
	cmd.Flags().StringVar(&webhookURL, "register-webhook", "", "public webhook URL to register with Telegram")
	return cmd
}

func pollCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Run the bot over long polling",
		RunE: func(cmd *cobra.Command, args []string) error {
			token := viper.GetString("token")
			if token == "" {
				return fmt.Errorf("MAINTBOT_TOKEN is required")
			}
			conn, err := openDB()
			if err != nil {
				return err
			}
			defer conn.Close()
			client := telegram.NewClient(token)
			d, err := buildDispatcher(conn, &telegram.Gateway{Client: client})
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			fmt.Println("Polling for updates, Ctrl-C to stop")
			p := telegram.Poller{Client: client, Handler: d}
			if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	return cmd
}

func issuesCmd() *cobra.Command {
	issues := &cobra.Command{Use: "issues", Short: "Inspect and manage issues"}
	issues.AddCommand(issuesListCmd())
	issues.AddCommand(issuesCloseCmd())
	issues.AddCommand(issuesPurgeCmd())
	return issues
}

func issuesListCmd() *cobra.Command {
	var status string
	var reporter int64
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List issues",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				filters := repo.IssueFilters{Status: status, Limit: limit}
				if reporter != 0 {
					filters.ReporterID = &reporter
				}
				items, err := r.ListAll(ctx, filters)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Created", "Status", "Place", "Description", "Reporter"})
				for _, i := range items {
					tw.AppendRow(table.Row{i.ID, i.CreatedAt, i.Status, i.Place(), i.Description, i.ReporterNameSnapshot})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status filter (open, closed)")
	cmd.Flags().Int64Var(&reporter, "reporter", 0, "reporter chat id filter")
	cmd.Flags().IntVar(&limit, "limit", 0, "max rows (0 for all)")
	return cmd
}

func issuesCloseCmd() *cobra.Command {
	var resolver string
	cmd := &cobra.Command{
		Use:   "close <id>",
		Short: "Close an open issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid issue id %q", args[0])
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				closed, err := r.CloseIssue(ctx, id, 0, resolver)
				if err != nil {
					return err
				}
				if !closed {
					return fmt.Errorf("issue %d not open", id)
				}
				i, err := r.GetIssue(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(i)
			})
		},
	}
	cmd.Flags().StringVar(&resolver, "resolver", "ops", "resolver display name to record")
	return cmd
}

func issuesPurgeCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete all issues and reset numbering",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("purge is irreversible; pass --yes to confirm")
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				if err := r.PurgeAll(ctx); err != nil {
					return err
				}
				fmt.Println("all issues deleted, numbering reset")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm purge")
	return cmd
}

func exportCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all issues to an Excel file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListAll(ctx, repo.IssueFilters{})
				if err != nil {
					return err
				}
				data, err := export.Excel{}.Render(items)
				if err != nil {
					return err
				}
				if err := os.WriteFile(file, data, 0o644); err != nil {
					return err
				}
				fmt.Printf("wrote %d issues to %s\n", len(items), file)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "issues_export.xlsx", "output path")
	return cmd
}

func opskeyCmd() *cobra.Command {
	keys := &cobra.Command{Use: "opskey", Short: "Manage ops API keys"}
	keys.AddCommand(opskeyCreateCmd())
	keys.AddCommand(opskeyListCmd())
	keys.AddCommand(opskeyDeleteCmd())
	return keys
}

func opskeyCreateCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an ops API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				raw := uuid.NewString()
				key := domain.OpsKey{
					ID:      uuid.NewString(),
					Name:    name,
					KeyHash: repo.HashOpsKey(raw),
				}
				if err := r.InsertOpsKey(ctx, key); err != nil {
					return err
				}
				// The raw key is shown once; only the hash is stored.
				fmt.Printf("id:  %s\nkey: %s\n", key.ID, raw)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "key label")
	return cmd
}

func opskeyListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ops API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				keys, err := r.ListOpsKeys(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(keys)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Created"})
				for _, k := range keys {
					tw.AppendRow(table.Row{k.ID, k.Name, k.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func opskeyDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an ops API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				return r.DeleteOpsKey(ctx, args[0])
			})
		},
	}
	return cmd
}

func catalogCmd() *cobra.Command {
	cat := &cobra.Command{Use: "catalog", Short: "Inspect the equipment catalog"}
	cat.AddCommand(catalogValidateCmd())
	cat.AddCommand(catalogShowCmd())
	return cat
}

func catalogValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the catalog (override file if configured)",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := catalog.Load(viper.GetString("catalog-file"))
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("catalog OK")
			return nil
		},
	}
	return cmd
}

func catalogShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := catalog.Load(viper.GetString("catalog-file"))
			if err != nil {
				return err
			}
			return printJSON(c)
		},
	}
	return cmd
}

// --- helpers ---

func openDB() (*sql.DB, error) {
	conn, err := db.Open(db.Config{Workspace: viper.GetString("workspace")})
	if err != nil {
		return nil, err
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	conn, err := openDB()
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(ctx, repo.Repo{DB: conn})
}

func buildDispatcher(conn *sql.DB, gw chat.Gateway) (*bot.Dispatcher, error) {
	r := repo.Repo{DB: conn}
	cat, err := catalog.Load(viper.GetString("catalog-file"))
	if err != nil {
		return nil, err
	}
	acl := access.NewResolver(parseAdmins(viper.GetString("admins")), r)
	return bot.New(r, session.NewStore(), cat, acl, gw, export.Excel{}), nil
}

func parseAdmins(raw string) []int64 {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			log.Printf("ignoring invalid admin id %q", part)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
