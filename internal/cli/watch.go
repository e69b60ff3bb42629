package cli

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/roach88/acctql/internal/model"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Server  string
	Count   int
	Timeout time.Duration
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "watch <topic>",
		Short: "Stream change events from a running server",
		Long: `Subscribe to a topic on a running acctql server and print each event.

Topics are "accounts", "transactions" and "account:<id>". Only events
published after the subscription starts are delivered.

Example:
  acctql watch accounts --server http://localhost:8080
  acctql watch account:acc-001 --count 1 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, args[0], cmd)
		},
	}
	cmd.Flags().StringVar(&opts.Server, "server", "", "server base URL (default from config http.addr)")
	cmd.Flags().IntVarP(&opts.Count, "count", "n", 0, "exit after N events (0 = until interrupted)")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "give up if no event arrives within this duration")
	return cmd
}

func runWatch(opts *WatchOptions, topic string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	server := opts.Server
	if server == "" {
		cfg, err := opts.loadConfig()
		if err != nil {
			return formatter.Report(err)
		}
		server = "http://" + localAddr(cfg.HTTP.Addr)
	}
	wsURL, err := streamURL(server, topic)
	if err != nil {
		_ = formatter.Error(ErrCodeBadArgs, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid server URL", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter.VerboseLog("Connecting to %s", wsURL)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		_ = formatter.Error(ErrCodeStream, err.Error(), nil)
		return WrapExitError(ExitFailure, "failed to connect", err)
	}
	defer conn.Close()

	// Unblock ReadJSON when the command is cancelled.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for n := 0; opts.Count == 0 || n < opts.Count; n++ {
		if opts.Timeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(opts.Timeout))
		}
		var ev model.Event
		if err := conn.ReadJSON(&ev); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) || ctx.Err() != nil {
				return nil
			}
			_ = formatter.Error(ErrCodeStream, err.Error(), nil)
			return WrapExitError(ExitFailure, "event stream failed", err)
		}
		if err := formatter.Success(ev); err != nil {
			return err
		}
	}

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return nil
}

// localAddr turns a listen address like ":8080" into "localhost:8080".
func localAddr(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	return addr
}

// streamURL builds the websocket URL of topic on server.
func streamURL(server, topic string) (string, error) {
	u, err := url.Parse(server)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/subscribe/" + topic
	return u.String(), nil
}
