package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rm-hull/authfetch/cmd"
	"github.com/rm-hull/authfetch/internal"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	settings := cmd.LoadSettings()
	var verbose bool

	rootCmd := &cobra.Command{
		Use:          "authfetch",
		Short:        "Authenticated API client with transparent token refresh",
		SilenceUsage: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&settings.DBPath, "db", settings.DBPath, "Path to the session database")
	rootCmd.PersistentFlags().StringVar(&settings.RedisAddr, "redis", settings.RedisAddr, "Redis address; stores the session in redis instead of sqlite")
	rootCmd.PersistentFlags().StringVar(&settings.APIURL, "api-url", settings.APIURL, "Fixed API origin, overrides origin detection")
	rootCmd.PersistentFlags().StringVar(&settings.PageURL, "page-url", settings.PageURL, "Location the client runs at, used to detect the API origin")
	rootCmd.PersistentFlags().StringVar(&settings.LoginPath, "login-path", settings.LoginPath, "Where to send the user when the session expires")

	var reqArgs cmd.RequestArgs
	requestCmd := &cobra.Command{
		Use:   "request METHOD PATH",
		Short: "Send an authenticated request and print the response",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			reqArgs.Method, reqArgs.Path = args[0], args[1]
			reqArgs.Out = c.OutOrStdout()
			return cmd.Request(ctx, settings, reqArgs)
		},
	}
	requestCmd.Flags().StringVarP(&reqArgs.Data, "data", "d", "", "Request body, sent as JSON unless a Content-Type header is given")
	requestCmd.Flags().StringVar(&reqArgs.DataFile, "data-file", "", "Send the contents of a file as the request body")
	requestCmd.Flags().StringArrayVarP(&reqArgs.Headers, "header", "H", nil, "Extra request header, 'Name: value'")

	var access, refresh string
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect or change the stored session",
	}
	sessionSetCmd := &cobra.Command{
		Use:   "set",
		Short: "Store the credentials issued by the login flow",
		RunE: func(_ *cobra.Command, _ []string) error {
			return cmd.SessionSet(ctx, settings, access, refresh)
		},
	}
	sessionSetCmd.Flags().StringVar(&access, "access", "", "Access credential")
	sessionSetCmd.Flags().StringVar(&refresh, "refresh", "", "Refresh credential")
	_ = sessionSetCmd.MarkFlagRequired("access")

	sessionCmd.AddCommand(
		sessionSetCmd,
		&cobra.Command{
			Use:   "status",
			Short: "Show whether a session is stored and when it expires",
			RunE: func(c *cobra.Command, _ []string) error {
				return cmd.SessionStatus(ctx, settings, c.OutOrStdout())
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Log out by deleting both credentials",
			RunE: func(_ *cobra.Command, _ []string) error {
				return cmd.SessionClear(ctx, settings)
			},
		},
	)

	var serveArgs cmd.ServeArgs
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the authenticating gateway",
		RunE: func(_ *cobra.Command, _ []string) error {
			return cmd.ProxyServer(settings, serveArgs)
		},
	}
	serveCmd.Flags().IntVar(&serveArgs.Port, "port", 8080, "Port to run HTTP server on")
	serveCmd.Flags().BoolVar(&serveArgs.Debug, "debug", false, "Enable pprof endpoints")
	serveCmd.Flags().StringVar(&serveArgs.KeepalivePath, "keepalive-path", "", "Path requested periodically to keep the session fresh")
	serveCmd.Flags().StringVar(&serveArgs.KeepaliveSchedule, "keepalive-schedule", internal.DefaultKeepaliveSchedule, "Cron schedule for the keepalive request")

	rootCmd.AddCommand(requestCmd, sessionCmd, serveCmd)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Msg(err.Error())
		os.Exit(1)
	}
}
